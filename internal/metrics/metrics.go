// Package metrics exposes grading telemetry in Prometheus format.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/remaimber-it/autograde/internal/grading"
)

const namespace = "autograde"

// Recorder implements grading.Recorder on top of Prometheus collectors.
type Recorder struct {
	graded    *prometheus.CounterVec
	fallbacks *prometheus.CounterVec
	judge     *prometheus.HistogramVec
}

var _ grading.Recorder = (*Recorder)(nil)

// NewRecorder registers the grading collectors on reg.
func NewRecorder(reg prometheus.Registerer) (*Recorder, error) {
	r := &Recorder{
		graded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "answers_graded_total",
			Help:      "Answers graded, by requested mode and the grader that produced the score.",
		}, []string{"mode", "origin"}),
		fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "judge_fallbacks_total",
			Help:      "Semantic questions that fell back from the AI judge to embeddings.",
		}, []string{"reason"}),
		judge: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "judge_duration_seconds",
			Help:      "Latency of AI judge calls.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20},
		}, []string{"outcome"}),
	}

	for _, c := range []prometheus.Collector{r.graded, r.fallbacks, r.judge} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Recorder) ObserveGrade(mode grading.Mode, origin grading.Origin) {
	r.graded.WithLabelValues(string(mode), string(origin)).Inc()
}

func (r *Recorder) ObserveJudge(elapsed time.Duration, ok bool) {
	outcome := "ok"
	if !ok {
		outcome = "failed"
	}
	r.judge.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

func (r *Recorder) ObserveFallback(reason string) {
	r.fallbacks.WithLabelValues(reason).Inc()
}

// NewRegistry returns a registry carrying the Go runtime and process
// collectors, ready for NewRecorder.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler serves the contents of reg for scraping.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}
