package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sethvargo/go-retry"
)

// OpenAIGenerator calls an OpenAI-compatible chat completions endpoint
// (OpenAI, Ollama, LM Studio, vLLM, ...).
type OpenAIGenerator struct {
	model  string
	client *resty.Client
	retry  RetryPolicy
}

var _ Generator = (*OpenAIGenerator)(nil)

// NewOpenAIGenerator creates a generator for baseURL, e.g. "http://localhost:1234".
// apiKey may be empty for local servers.
func NewOpenAIGenerator(baseURL, model, apiKey string, timeout time.Duration) *OpenAIGenerator {
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")
	if apiKey != "" {
		client.SetAuthToken(apiKey)
	}
	return &OpenAIGenerator{model: model, client: client, retry: DefaultRetryPolicy}
}

// SetRetryPolicy replaces the default retry policy.
func (g *OpenAIGenerator) SetRetryPolicy(p RetryPolicy) {
	g.retry = p
}

func (g *OpenAIGenerator) Name() string { return "openai" }

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float32       `json:"temperature"`
	TopP        float32       `json:"top_p,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Generate sends prompt as a single user message and returns the first choice.
// 429 and 5xx responses are retried; other failures are returned as is.
func (g *OpenAIGenerator) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	body := chatRequest{
		Model:       g.model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: opts.Temperature,
		TopP:        opts.TopP,
		MaxTokens:   opts.MaxTokens,
	}

	return withRetry(ctx, g.retry, func(ctx context.Context) (string, error) {
		var out chatResponse
		resp, err := g.client.R().
			SetContext(ctx).
			SetBody(body).
			SetResult(&out).
			Post("/v1/chat/completions")
		if err != nil {
			if ctx.Err() != nil {
				return "", &GenerateError{Provider: g.Name(), Reason: "request cancelled", Wrapped: err}
			}
			return "", retry.RetryableError(&GenerateError{Provider: g.Name(), Reason: "request failed", Wrapped: err})
		}

		if code := resp.StatusCode(); code != http.StatusOK {
			genErr := &GenerateError{Provider: g.Name(), Reason: fmt.Sprintf("status %d", code)}
			if code == http.StatusTooManyRequests || code >= http.StatusInternalServerError {
				return "", retry.RetryableError(genErr)
			}
			return "", genErr
		}

		if len(out.Choices) == 0 {
			return "", &GenerateError{Provider: g.Name(), Reason: "no choices"}
		}
		content := out.Choices[0].Message.Content
		if strings.TrimSpace(content) == "" {
			return "", &GenerateError{Provider: g.Name(), Reason: "empty content"}
		}
		return content, nil
	})
}
