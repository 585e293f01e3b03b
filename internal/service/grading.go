// internal/service/grading.go
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/remaimber-it/autograde/internal/grading"
	"github.com/remaimber-it/autograde/internal/worker"
)

// Grader is the part of grading.Engine the service depends on.
type Grader interface {
	Grade(ctx context.Context, req grading.Request) (grading.Result, error)
	MaxSimilarity(ctx context.Context, answer string, previous []string) float64
}

// BatchItem is one answer in a batch. An empty ID is replaced by a
// generated one.
type BatchItem struct {
	ID      string
	Request grading.Request
}

// BatchResult pairs an item ID with its grade or the error that prevented
// grading.
type BatchResult struct {
	ID     string
	Result grading.Result
	Err    error
}

// DefaultItemTimeout bounds the grading of one batch item: a full AI judge
// call plus the embedding fallback.
const DefaultItemTimeout = grading.DefaultJudgeTimeout + 10*time.Second

// GradingService runs the grading engine for single answers and batches.
type GradingService struct {
	grader      Grader
	logger      *slog.Logger
	workers     int
	itemTimeout time.Duration
}

// NewGradingService creates a GradingService. workers bounds how many
// answers of one batch are graded at the same time.
func NewGradingService(g Grader, workers int, logger *slog.Logger) *GradingService {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &GradingService{
		grader:      g,
		logger:      logger,
		workers:     max(workers, 1),
		itemTimeout: DefaultItemTimeout,
	}
}

// SetItemTimeout replaces DefaultItemTimeout. Values <= 0 are ignored.
func (gs *GradingService) SetItemTimeout(d time.Duration) {
	if d > 0 {
		gs.itemTimeout = d
	}
}

// Grade scores one answer.
func (gs *GradingService) Grade(ctx context.Context, req grading.Request) (grading.Result, error) {
	start := time.Now()
	res, err := gs.grader.Grade(ctx, req)
	if err != nil {
		gs.logger.Warn("grading rejected",
			"mode", req.Mode,
			"max_score", req.MaxScore,
			"error", err,
		)
		return grading.Result{}, err
	}

	gs.logger.Debug("answer graded",
		"mode", req.Mode,
		"origin", res.Origin,
		"score", res.Score,
		"max_score", res.MaxScore,
		"elapsed", time.Since(start),
	)
	return res, nil
}

// GradeBatch grades items concurrently and returns one result per item in
// input order. A failing item does not affect the others.
//
// Each item gets its own deadline of itemTimeout from the moment a worker
// picks it up, so queue position does not eat into its grading time. Once
// ctx is done, items that have not started are reported as errors instead
// of being graded against a dead context.
func (gs *GradingService) GradeBatch(ctx context.Context, items []BatchItem) []BatchResult {
	out := make([]BatchResult, len(items))
	if len(items) == 0 {
		return out
	}

	index := make(map[string]int, len(items))
	pool := worker.NewPool[BatchResult](min(gs.workers, len(items)), len(items))
	for i, item := range items {
		if item.ID == "" {
			item.ID = uuid.NewString()
		}
		// Duplicate IDs from the caller still need distinct job keys.
		key := uuid.NewString()
		index[key] = i
		pool.Submit(key, func() BatchResult {
			return gs.gradeItem(ctx, item)
		})
	}
	pool.Close()

	failed := 0
	for r := range pool.Results() {
		if r.Output.Err != nil {
			failed++
		}
		out[index[r.JobID]] = r.Output
	}

	gs.logger.Info("batch graded", "items", len(items), "failed", failed)
	return out
}

func (gs *GradingService) gradeItem(ctx context.Context, item BatchItem) BatchResult {
	if err := ctx.Err(); err != nil {
		return BatchResult{ID: item.ID, Err: fmt.Errorf("batch item not started: %w", err)}
	}

	itemCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), gs.itemTimeout)
	defer cancel()

	res, err := gs.Grade(itemCtx, item.Request)
	return BatchResult{ID: item.ID, Result: res, Err: err}
}

// Similarity reports how close answer is to the closest of previous.
func (gs *GradingService) Similarity(ctx context.Context, answer string, previous []string) float64 {
	return gs.grader.MaxSimilarity(ctx, answer, previous)
}
