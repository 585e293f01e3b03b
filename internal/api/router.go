// internal/api/router.go
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterOptions configures NewRouter.
type RouterOptions struct {
	Logger         *slog.Logger
	AllowedOrigins []string
	// Metrics is mounted at /metrics when non-nil.
	Metrics http.Handler
	// RequestTimeout bounds each single-answer request, including AI judge
	// calls. Batch items carry their own per-item deadline instead.
	RequestTimeout time.Duration
}

// NewRouter mounts every route on a chi router.
func NewRouter(h *Handler, opts RouterOptions) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, Logging(logger), middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
		ExposedHeaders: []string{"Content-Length", middleware.RequestIDHeader},
		MaxAge:         300,
	}))

	r.Get("/health", h.health)
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}

	r.Group(func(tr chi.Router) {
		if opts.RequestTimeout > 0 {
			tr.Use(middleware.Timeout(opts.RequestTimeout))
		}
		tr.Post("/grade", h.grade)
		tr.Post("/similarity", h.similarity)
	})
	r.Post("/grade/batch", h.gradeBatch)

	return r
}
