package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/remaimber-it/autograde/internal/grading"
	"github.com/remaimber-it/autograde/internal/service"
)

// ── Request / Response types ────────────────────────────────────────────────

type GradeRequest struct {
	StudentAnswer  string `json:"student_answer" validate:"max=20000"`
	ExpectedAnswer string `json:"expected_answer" validate:"max=20000"`
	MaxScore       int    `json:"max_score" validate:"max=1000000"`
	Mode           string `json:"mode" validate:"required,oneof=exact keyword semantic manual numeric"`
	Question       string `json:"question,omitempty" validate:"max=5000"`
	Rubric         string `json:"rubric,omitempty" validate:"max=5000"`
}

func (r GradeRequest) toDomain() grading.Request {
	return grading.Request{
		StudentAnswer:  r.StudentAnswer,
		ExpectedAnswer: r.ExpectedAnswer,
		MaxScore:       r.MaxScore,
		Mode:           grading.Mode(r.Mode),
		Question:       r.Question,
		Rubric:         r.Rubric,
	}
}

type GradeResponse struct {
	Score       int     `json:"score"`
	MaxScore    int     `json:"max_score"`
	Percentage  float64 `json:"percentage"`
	Band        string  `json:"band"`
	Explanation string  `json:"explanation"`
	Origin      string  `json:"origin"`
}

func newGradeResponse(res grading.Result) GradeResponse {
	return GradeResponse{
		Score:       res.Score,
		MaxScore:    res.MaxScore,
		Percentage:  res.Percentage(),
		Band:        string(res.Band()),
		Explanation: res.Explanation,
		Origin:      string(res.Origin),
	}
}

type BatchGradeItem struct {
	ID string `json:"id,omitempty" validate:"max=128"`
	GradeRequest
}

type BatchGradeRequest struct {
	Items []BatchGradeItem `json:"items" validate:"required,min=1,max=500,dive"`
}

type BatchGradeItemResponse struct {
	ID     string         `json:"id"`
	Result *GradeResponse `json:"result,omitempty"`
	Error  string         `json:"error,omitempty"`
}

type BatchGradeResponse struct {
	Results []BatchGradeItemResponse `json:"results"`
	Failed  int                      `json:"failed"`
}

type SimilarityRequest struct {
	Answer   string   `json:"answer" validate:"required,max=20000"`
	Previous []string `json:"previous" validate:"max=500,dive,max=20000"`
}

type SimilarityResponse struct {
	Similarity float64 `json:"similarity"`
}

// ── Handlers ────────────────────────────────────────────────────────────────

// POST /grade
func (h *Handler) grade(w http.ResponseWriter, r *http.Request) {
	var req GradeRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	res, err := h.svc.Grade(r.Context(), req.toDomain())
	if h.handleGradeError(w, err) {
		return
	}

	respondJSON(w, http.StatusOK, newGradeResponse(res))
}

// POST /grade/batch
func (h *Handler) gradeBatch(w http.ResponseWriter, r *http.Request) {
	var req BatchGradeRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	// A large batch outlives the server's write timeout; every item is
	// bounded by its own deadline in the service instead.
	if err := http.NewResponseController(w).SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
		h.logger.Warn("could not lift write deadline for batch", "error", err)
	}

	items := make([]service.BatchItem, len(req.Items))
	for i, it := range req.Items {
		items[i] = service.BatchItem{ID: it.ID, Request: it.toDomain()}
	}

	results := h.svc.GradeBatch(r.Context(), items)

	resp := BatchGradeResponse{Results: make([]BatchGradeItemResponse, len(results))}
	for i, br := range results {
		out := BatchGradeItemResponse{ID: br.ID}
		if br.Err != nil {
			out.Error = br.Err.Error()
			resp.Failed++
		} else {
			gr := newGradeResponse(br.Result)
			out.Result = &gr
		}
		resp.Results[i] = out
	}

	respondJSON(w, http.StatusOK, resp)
}

// POST /similarity
func (h *Handler) similarity(w http.ResponseWriter, r *http.Request) {
	var req SimilarityRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	respondJSON(w, http.StatusOK, SimilarityResponse{
		Similarity: h.svc.Similarity(r.Context(), req.Answer, req.Previous),
	})
}

// GET /health
func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
