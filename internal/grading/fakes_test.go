package grading_test

import (
	"context"
	"errors"
	"math"
	"sync/atomic"
	"time"

	"github.com/remaimber-it/autograde/internal/llm"
	"github.com/remaimber-it/autograde/internal/textnorm"
)

// fakeGenerator returns a canned reply, an error, or blocks until the
// context ends when delay is set.
type fakeGenerator struct {
	reply string
	err   error
	delay time.Duration

	calls      atomic.Int32
	lastPrompt atomic.Value
	lastOpts   atomic.Value
}

func (f *fakeGenerator) Name() string { return "fake" }

func (f *fakeGenerator) Generate(ctx context.Context, prompt string, opts llm.Options) (string, error) {
	f.calls.Add(1)
	f.lastPrompt.Store(prompt)
	f.lastOpts.Store(opts)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

// offlineGenerator reports itself unavailable.
type offlineGenerator struct{ fakeGenerator }

func (*offlineGenerator) Available() bool { return false }

// fakeProvider maps normalized text to fixed vectors. Unknown text gets a
// vector orthogonal to everything registered.
type fakeProvider struct {
	vectors     map[string][]float32
	unavailable bool
	err         error
	calls       atomic.Int32
}

func (p *fakeProvider) Available() bool { return !p.unavailable }

func (p *fakeProvider) Encode(_ context.Context, text string) ([]float32, error) {
	p.calls.Add(1)
	if p.err != nil {
		return nil, p.err
	}
	if v, ok := p.vectors[text]; ok {
		return append([]float32(nil), v...), nil
	}
	return []float32{0, 0, 1}, nil
}

// similarPair registers expected and student texts whose cosine similarity
// is sim.
func similarPair(expected, student string, sim float64) *fakeProvider {
	return &fakeProvider{vectors: map[string][]float32{
		textnorm.Normalize(expected): {1, 0, 0},
		textnorm.Normalize(student):  {float32(sim), float32(math.Sqrt(1 - sim*sim)), 0},
	}}
}

var errBackend = errors.New("backend exploded")
