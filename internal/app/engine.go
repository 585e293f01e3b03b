// Package app assembles the grading engine from configuration.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/remaimber-it/autograde/internal/embedding"
	"github.com/remaimber-it/autograde/internal/grading"
	"github.com/remaimber-it/autograde/internal/infrastructure/config"
	"github.com/remaimber-it/autograde/internal/llm"
)

// BuildEngine wires the configured judge and embedding backends into a
// grading engine. The returned closer releases backend connections.
//
// A backend that cannot be constructed is logged and left out; semantic
// questions then degrade along the usual fallback chain.
func BuildEngine(ctx context.Context, cfg *config.Config, logger *slog.Logger, rec grading.Recorder) (*grading.Engine, io.Closer, error) {
	closers := multiCloser{}
	opts := []grading.Option{
		grading.WithLogger(logger),
		grading.WithJudgeTimeout(cfg.JudgeTimeout),
	}
	if rec != nil {
		opts = append(opts, grading.WithRecorder(rec))
	}

	gen, closer, err := buildGenerator(ctx, cfg)
	switch {
	case err != nil:
		logger.Warn("ai judge disabled", "provider", cfg.JudgeProvider, "error", err)
	case gen != nil:
		logger.Info("ai judge enabled", "provider", gen.Name())
		opts = append(opts, grading.WithJudge(gen))
		if closer != nil {
			closers = append(closers, closer)
		}
	}

	provider, err := embedding.New(ctx, cfg.Embedding)
	if err != nil {
		logger.Warn("embeddings disabled", "provider", cfg.Embedding.Kind, "error", err)
		provider = embedding.Unavailable{}
	}
	if provider.Available() {
		logger.Info("embeddings enabled", "provider", cfg.Embedding.Kind, "cache_size", cfg.Embedding.CacheSize)
	}
	opts = append(opts, grading.WithEmbedder(provider))

	engine, err := grading.NewEngine(opts...)
	if err != nil {
		closers.Close()
		return nil, nil, err
	}
	return engine, closers, nil
}

func buildGenerator(ctx context.Context, cfg *config.Config) (llm.Generator, io.Closer, error) {
	switch cfg.JudgeProvider {
	case config.JudgeGemini:
		g, err := llm.NewGeminiGenerator(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, nil, err
		}
		return g, g, nil
	case config.JudgeOpenAI:
		return llm.NewOpenAIGenerator(cfg.LLMURL, cfg.LLMModel, cfg.LLMAPIKey, cfg.JudgeTimeout), nil, nil
	case config.JudgeNone, "":
		return nil, nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown judge provider %q", cfg.JudgeProvider)
	}
}

type multiCloser []io.Closer

func (m multiCloser) Close() error {
	var first error
	for _, c := range m {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
