package grading

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/remaimber-it/autograde/internal/embedding"
	"github.com/remaimber-it/autograde/internal/textnorm"
)

// SemanticGrader scores answers by cosine similarity of their embeddings.
// It fails soft: a missing or broken provider yields a zero score with an
// explanation, never an error.
type SemanticGrader struct {
	provider   embedding.Provider
	thresholds ThresholdTable
	logger     *slog.Logger
}

// NewSemanticGrader builds a grader over provider. A nil provider behaves
// like one that is unavailable.
func NewSemanticGrader(provider embedding.Provider, thresholds ThresholdTable, logger *slog.Logger) *SemanticGrader {
	if provider == nil {
		provider = embedding.Unavailable{}
	}
	if thresholds == nil {
		thresholds = DefaultThresholds
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &SemanticGrader{provider: provider, thresholds: thresholds, logger: logger}
}

// Available reports whether the underlying provider can be used right now.
func (g *SemanticGrader) Available() bool {
	return g.provider.Available()
}

// Grade compares the normalized answers in embedding space.
func (g *SemanticGrader) Grade(ctx context.Context, student, expected string, maxScore int) Result {
	res := Result{MaxScore: maxScore, Origin: OriginEmbedding}

	if !g.provider.Available() {
		res.Explanation = "AI unavailable"
		return res
	}

	sim, err := g.Similarity(ctx, student, expected)
	if err != nil {
		g.logger.Warn("embedding grading failed", "error", err)
		res.Explanation = "AI grading failed"
		return res
	}

	res.Score = g.thresholds.Score(sim, maxScore)
	res.Explanation = fmt.Sprintf("semantic match: %.2f", sim)
	return res
}

// Similarity returns the cosine similarity of the normalized texts.
func (g *SemanticGrader) Similarity(ctx context.Context, a, b string) (float64, error) {
	va, err := g.provider.Encode(ctx, textnorm.Normalize(a))
	if err != nil {
		return 0, fmt.Errorf("encode student answer: %w", err)
	}
	vb, err := g.provider.Encode(ctx, textnorm.Normalize(b))
	if err != nil {
		return 0, fmt.Errorf("encode expected answer: %w", err)
	}
	return embedding.CosineSimilarity(va, vb)
}
