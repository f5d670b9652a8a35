package metrics

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"ArticlesPipeline/internal/domain"
	"ArticlesPipeline/internal/ports"
)

const namespace = "articles_pipeline"

// Recorder turns stage reports into Prometheus series on a private registry.
type Recorder struct {
	registry *prometheus.Registry
	items    *prometheus.CounterVec
	lastRun  *prometheus.GaugeVec
	duration *prometheus.GaugeVec
}

var _ ports.StageObserver = (*Recorder)(nil)

// NewRecorder registers the pipeline collectors.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		items: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "items_total",
			Help:      "Items handled per stage, by outcome.",
		}, []string{"stage", "outcome"}),
		lastRun: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the stage last finished.",
		}, []string{"stage"}),
		duration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_duration_seconds",
			Help:      "Wall time of the last stage sweep.",
		}, []string{"stage"}),
	}
	r.registry.MustRegister(r.items, r.lastRun, r.duration)
	return r
}

// Observe implements ports.StageObserver.
func (r *Recorder) Observe(report domain.StageReport) {
	for outcome, n := range report.Outcomes {
		r.items.WithLabelValues(report.Stage, string(outcome)).Add(float64(n))
	}
	if !report.FinishedAt.IsZero() {
		r.lastRun.WithLabelValues(report.Stage).Set(float64(report.FinishedAt.Unix()))
		r.duration.WithLabelValues(report.Stage).Set(report.FinishedAt.Sub(report.StartedAt).Seconds())
	}
}

// Registry exposes the private registry.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// Push sends the current values to a Pushgateway.
func (r *Recorder) Push(ctx context.Context, gatewayURL, job string) error {
	if err := push.New(gatewayURL, job).Gatherer(r.registry).PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
