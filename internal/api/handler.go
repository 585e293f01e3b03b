// internal/api/handler.go
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/remaimber-it/autograde/internal/grading"
	"github.com/remaimber-it/autograde/internal/service"
)

// maxBodyBytes caps request bodies; a batch of long essays fits comfortably.
const maxBodyBytes = 4 << 20

// GradingService is what the handlers need from service.GradingService.
type GradingService interface {
	Grade(ctx context.Context, req grading.Request) (grading.Result, error)
	GradeBatch(ctx context.Context, items []service.BatchItem) []service.BatchResult
	Similarity(ctx context.Context, answer string, previous []string) float64
}

// Handler holds all dependencies needed by HTTP handlers.
type Handler struct {
	svc      GradingService
	validate *validator.Validate
	logger   *slog.Logger
}

// NewHandler creates a Handler with the given dependencies.
func NewHandler(svc GradingService, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handler{
		svc:      svc,
		validate: newValidator(),
		logger:   logger,
	}
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report JSON field names so messages match what the client sent.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// respondJSON writes a JSON response with the given status code.
func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Error string `json:"error"`
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, errorResponse{Error: msg})
}

// decodeAndValidate reads a JSON body into dst and runs struct validation.
// It writes a 400 and returns false when either step fails.
func (h *Handler) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "invalid json: "+err.Error())
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		respondError(w, http.StatusBadRequest, validationMessage(err))
		return false
	}
	return true
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s: must satisfy %s=%s", fe.Namespace(), fe.Tag(), fe.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s: %s", fe.Namespace(), fe.Tag()))
		}
	}
	return strings.Join(msgs, "; ")
}

// handleGradeError maps engine errors to HTTP statuses. Returns true if an
// error was handled (caller should return).
func (h *Handler) handleGradeError(w http.ResponseWriter, err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, grading.ErrInvalidMaxScore) {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return true
	}
	h.logger.Error("grading error", "error", err)
	respondError(w, http.StatusInternalServerError, "internal error")
	return true
}
