// Package llm talks to the external language models that act as AI judges.
// Their output is untrusted text; parsing it is the caller's job.
package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"
)

// Options are the sampling parameters of a single generation.
type Options struct {
	Temperature float32
	MaxTokens   int
	TopP        float32
}

// Generator produces free text for a prompt.
type Generator interface {
	Name() string
	Generate(ctx context.Context, prompt string, opts Options) (string, error)
}

// GenerateError is returned when a generation fails so the caller can tell
// "model said something odd" apart from "model was unreachable".
type GenerateError struct {
	Provider string
	Reason   string
	Wrapped  error
}

func (e *GenerateError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("%s: %s: %v", e.Provider, e.Reason, e.Wrapped)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Reason)
}

func (e *GenerateError) Unwrap() error {
	return e.Wrapped
}

// RetryPolicy bounds how transient failures are retried.
type RetryPolicy struct {
	MaxRetries uint64
	Base       time.Duration
	Max        time.Duration
}

// DefaultRetryPolicy retries twice with a short exponential backoff.
// The judge runs under a caller deadline, so long waits only delay the fallback.
var DefaultRetryPolicy = RetryPolicy{MaxRetries: 2, Base: 300 * time.Millisecond, Max: 2 * time.Second}

func (p RetryPolicy) backoff() retry.Backoff {
	base := p.Base
	if base <= 0 {
		base = DefaultRetryPolicy.Base
	}
	b := retry.NewExponential(base)
	if p.Max > 0 {
		b = retry.WithCappedDuration(p.Max, b)
	}
	return retry.WithMaxRetries(p.MaxRetries, retry.WithJitter(50*time.Millisecond, b))
}

// withRetry runs call until it succeeds, returns a non-retryable error or the
// policy is exhausted. call signals transient failures with retry.RetryableError.
func withRetry(ctx context.Context, policy RetryPolicy, call func(ctx context.Context) (string, error)) (string, error) {
	var out string
	err := retry.Do(ctx, policy.backoff(), func(ctx context.Context) error {
		text, err := call(ctx)
		if err != nil {
			return err
		}
		out = text
		return nil
	})
	return out, err
}
