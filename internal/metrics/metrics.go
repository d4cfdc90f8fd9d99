package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PipelineMetrics counts pipeline activity for the /metrics endpoint.
type PipelineMetrics struct {
	ComputationsTotal *prometheus.CounterVec
	FetchErrorsTotal  *prometheus.CounterVec
	HistoryFallbacks  prometheus.Counter
	EmailsSentTotal   prometheus.Counter
	EmailFailures     prometheus.Counter
	PipelineDuration  prometheus.Histogram
}

// New registers pipeline metrics against the given registerer.
func New(reg prometheus.Registerer) *PipelineMetrics {
	factory := promauto.With(reg)
	return &PipelineMetrics{
		ComputationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fxalert_computations_total",
				Help: "Completed rate computations by pair and status",
			},
			[]string{"pair", "status"},
		),
		FetchErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fxalert_fetch_errors_total",
				Help: "External fetch failures by pipeline stage",
			},
			[]string{"stage"},
		),
		HistoryFallbacks: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "fxalert_history_fallbacks_total",
				Help: "History averages substituted with the fallback constant",
			},
		),
		EmailsSentTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "fxalert_emails_sent_total",
				Help: "Notification emails handed to the SMTP transport",
			},
		),
		EmailFailures: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "fxalert_email_failures_total",
				Help: "Notification passes aborted by an SMTP failure",
			},
		),
		PipelineDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "fxalert_pipeline_duration_seconds",
				Help:    "Duration of a full compute-store-notify pass",
				Buckets: prometheus.DefBuckets,
			},
		),
	}
}
