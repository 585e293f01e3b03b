package grading

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/remaimber-it/autograde/internal/embedding"
	"github.com/remaimber-it/autograde/internal/llm"
	"github.com/remaimber-it/autograde/internal/textnorm"
)

// Recorder receives grading telemetry. Implementations must be safe for
// concurrent use.
type Recorder interface {
	ObserveGrade(mode Mode, origin Origin)
	ObserveJudge(elapsed time.Duration, ok bool)
	ObserveFallback(reason string)
}

type noopRecorder struct{}

func (noopRecorder) ObserveGrade(Mode, Origin)         {}
func (noopRecorder) ObserveJudge(time.Duration, bool) {}
func (noopRecorder) ObserveFallback(string)           {}

// Engine selects a strategy per request and runs the fallback chain
// AI judge → embedding similarity for semantic questions.
//
// An Engine holds no per-call state; one instance serves concurrent callers.
type Engine struct {
	judge    *Judge
	semantic *SemanticGrader
	logger   *slog.Logger
	recorder Recorder
}

// Option configures an Engine.
type Option func(*config)

type config struct {
	generator    llm.Generator
	judgeTimeout time.Duration
	embedder     embedding.Provider
	thresholds   ThresholdTable
	logger       *slog.Logger
	recorder     Recorder
}

// WithJudge enables the AI judge for semantic questions.
func WithJudge(g llm.Generator) Option { return func(c *config) { c.generator = g } }

// WithJudgeTimeout bounds each AI judge call.
func WithJudgeTimeout(d time.Duration) Option { return func(c *config) { c.judgeTimeout = d } }

// WithEmbedder sets the embedding provider for local semantic grading.
func WithEmbedder(p embedding.Provider) Option { return func(c *config) { c.embedder = p } }

// WithThresholds replaces DefaultThresholds.
func WithThresholds(t ThresholdTable) Option { return func(c *config) { c.thresholds = t } }

func WithLogger(l *slog.Logger) Option { return func(c *config) { c.logger = l } }

func WithRecorder(r Recorder) Option { return func(c *config) { c.recorder = r } }

// NewEngine builds an engine. Without options it grades exact, keyword,
// numeric and manual questions; semantic questions score 0 with
// "AI unavailable".
func NewEngine(opts ...Option) (*Engine, error) {
	cfg := &config{
		thresholds: DefaultThresholds,
		logger:     slog.New(slog.DiscardHandler),
		recorder:   noopRecorder{},
	}
	for _, o := range opts {
		o(cfg)
	}
	if err := cfg.thresholds.Validate(); err != nil {
		return nil, fmt.Errorf("grading engine: %w", err)
	}
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.DiscardHandler)
	}
	if cfg.recorder == nil {
		cfg.recorder = noopRecorder{}
	}

	e := &Engine{
		semantic: NewSemanticGrader(cfg.embedder, cfg.thresholds, cfg.logger),
		logger:   cfg.logger,
		recorder: cfg.recorder,
	}
	if cfg.generator != nil {
		e.judge = NewJudge(cfg.generator, cfg.judgeTimeout)
	}
	return e, nil
}

// Grade scores one answer. The returned error is non-nil only for
// ErrInvalidMaxScore; every other failure is folded into the Result.
func (e *Engine) Grade(ctx context.Context, req Request) (Result, error) {
	if req.MaxScore <= 0 {
		return Result{}, fmt.Errorf("%w: got %d", ErrInvalidMaxScore, req.MaxScore)
	}

	mode := req.Mode
	if !mode.Valid() {
		e.logger.Warn("unknown grading mode, needs manual grading", "mode", req.Mode)
		mode = ModeManual
	}

	var res Result
	switch mode {
	case ModeExact:
		res = GradeExact(req.StudentAnswer, req.ExpectedAnswer, req.MaxScore)
	case ModeKeyword:
		res = GradeKeyword(req.StudentAnswer, req.ExpectedAnswer, req.MaxScore)
	case ModeNumeric:
		res = GradeNumeric(req.StudentAnswer, req.ExpectedAnswer, req.MaxScore)
	case ModeSemantic:
		res = e.gradeSemantic(ctx, req)
	default:
		res = gradeManual(req.MaxScore)
	}

	res.Score = clampScore(res.Score, req.MaxScore)
	res.MaxScore = req.MaxScore
	e.recorder.ObserveGrade(mode, res.Origin)
	return res, nil
}

func (e *Engine) gradeSemantic(ctx context.Context, req Request) Result {
	if e.judge.Available() {
		start := time.Now()
		verdict, err := e.judge.Grade(ctx, req)
		e.recorder.ObserveJudge(time.Since(start), err == nil)
		if err == nil {
			return Result{
				Score:       verdict.Score,
				MaxScore:    req.MaxScore,
				Explanation: "AI judge: " + verdict.Feedback,
				Origin:      OriginAIJudge,
			}
		}

		reason := JudgeReasonGenerate
		var jerr *JudgeError
		if errors.As(err, &jerr) {
			reason = jerr.Reason
		}
		e.logger.Warn("ai judge gave no verdict, falling back to embeddings",
			"reason", reason,
			"error", err,
		)
		e.recorder.ObserveFallback(reason)
	}

	return e.semantic.Grade(ctx, req.StudentAnswer, req.ExpectedAnswer, req.MaxScore)
}

// MaxSimilarity returns the highest cosine similarity between answer and any
// of previous, for spotting near-copies between submissions. It returns 0 when
// there is nothing to compare or embeddings cannot be computed.
func (e *Engine) MaxSimilarity(ctx context.Context, answer string, previous []string) float64 {
	if len(previous) == 0 || !e.semantic.Available() {
		return 0
	}

	provider := e.semantic.provider
	current, err := provider.Encode(ctx, textnorm.Normalize(answer))
	if err != nil {
		e.logger.Warn("similarity check failed", "error", err)
		return 0
	}

	best := -1.0
	for _, prev := range previous {
		v, err := provider.Encode(ctx, textnorm.Normalize(prev))
		if err != nil {
			e.logger.Warn("similarity check failed", "error", err)
			return 0
		}
		sim, err := embedding.CosineSimilarity(current, v)
		if err != nil {
			e.logger.Warn("similarity check failed", "error", err)
			return 0
		}
		best = max(best, sim)
	}
	return best
}
