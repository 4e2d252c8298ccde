// Package metrics exposes Prometheus instrumentation for prediction runs.
//
// Metrics exposed:
//   - blendpredict_stage_seconds: Histogram of time spent reaching each run stage
//   - blendpredict_runs_total: Counter of finished runs by final stage and error category
//   - blendpredict_model_ready: Gauge, 1 when a model bundle is loaded
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"blendpredict/internal/core/domain"
)

type Metrics struct {
	StageSeconds *prometheus.HistogramVec
	RunsTotal    *prometheus.CounterVec
	ModelReady   prometheus.Gauge
}

// New registers all metrics with reg. Pass prometheus.DefaultRegisterer to
// serve them from promhttp.Handler().
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		StageSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "blendpredict_stage_seconds",
			Help:    "Time spent in the step that reached each run stage",
			Buckets: prometheus.DefBuckets,
		}, []string{"stage"}),

		RunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "blendpredict_runs_total",
			Help: "Finished prediction runs by final stage and error category",
		}, []string{"stage", "category"}),

		ModelReady: factory.NewGauge(prometheus.GaugeOpts{
			Name: "blendpredict_model_ready",
			Help: "1 if a model bundle is loaded, 0 otherwise",
		}),
	}
}

func (m *Metrics) ObserveStage(stage domain.RunStage, elapsed time.Duration) {
	m.StageSeconds.WithLabelValues(string(stage)).Observe(elapsed.Seconds())
}

// RunFinished counts a run. Successful runs carry the category "none".
func (m *Metrics) RunFinished(stage domain.RunStage, category domain.ErrorCategory) {
	c := string(category)
	if c == "" {
		c = "none"
	}
	m.RunsTotal.WithLabelValues(string(stage), c).Inc()
}

func (m *Metrics) SetModelReady(ready bool) {
	if ready {
		m.ModelReady.Set(1)
		return
	}
	m.ModelReady.Set(0)
}
