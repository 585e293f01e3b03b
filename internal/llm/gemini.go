package llm

import (
	"context"
	"errors"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/sethvargo/go-retry"
	"google.golang.org/api/option"
)

// DefaultGeminiModel is the model used when none is configured.
const DefaultGeminiModel = "gemini-2.0-flash"

// GeminiGenerator calls Google's Gemini API.
// The underlying client is shared and safe for concurrent use.
type GeminiGenerator struct {
	client *genai.Client
	model  string
	retry  RetryPolicy
}

var _ Generator = (*GeminiGenerator)(nil)

// NewGeminiGenerator opens a Gemini client. Call Close when done.
func NewGeminiGenerator(ctx context.Context, apiKey, model string) (*GeminiGenerator, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini: api key is empty")
	}
	model = strings.TrimSpace(model)
	if model == "" {
		model = DefaultGeminiModel
	}

	cl, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, &GenerateError{Provider: "gemini", Reason: "create client", Wrapped: err}
	}
	return &GeminiGenerator{client: cl, model: model, retry: DefaultRetryPolicy}, nil
}

func (g *GeminiGenerator) Name() string { return "gemini" }

// Close releases the client connection.
func (g *GeminiGenerator) Close() error {
	return g.client.Close()
}

// Generate sends prompt as a single user turn and returns the first text part.
func (g *GeminiGenerator) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	m := g.client.GenerativeModel(g.model)
	m.SetTemperature(opts.Temperature)
	if opts.TopP > 0 {
		m.SetTopP(opts.TopP)
	}
	if opts.MaxTokens > 0 {
		m.SetMaxOutputTokens(int32(opts.MaxTokens))
	}

	return withRetry(ctx, g.retry, func(ctx context.Context) (string, error) {
		resp, err := m.GenerateContent(ctx, genai.Text(prompt))
		if err != nil {
			if ctx.Err() != nil {
				return "", &GenerateError{Provider: g.Name(), Reason: "request cancelled", Wrapped: err}
			}
			return "", retry.RetryableError(&GenerateError{Provider: g.Name(), Reason: "generate content", Wrapped: err})
		}
		txt := firstText(resp)
		if txt == "" {
			return "", &GenerateError{Provider: g.Name(), Reason: "empty response"}
		}
		return txt, nil
	})
}

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	for _, c := range resp.Candidates {
		if c == nil || c.Content == nil {
			continue
		}
		for _, p := range c.Content.Parts {
			if t, ok := p.(genai.Text); ok && strings.TrimSpace(string(t)) != "" {
				return string(t)
			}
		}
	}
	return ""
}
