package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for the chat pipeline.
type Metrics struct {
	ChatRequests        *prometheus.CounterVec
	AdmissionRejections *prometheus.CounterVec
	ModelFallbacks      prometheus.Counter
	ToolExecutions      *prometheus.CounterVec
	DeliveryFailures    *prometheus.CounterVec
	ChatDuration        prometheus.Histogram
}

// NewMetrics creates and registers the ClawSync collectors on the given
// registerer. Pass prometheus.DefaultRegisterer in production; tests use
// a fresh prometheus.NewRegistry to avoid duplicate registration.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ChatRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clawsync",
			Name:      "chat_requests_total",
			Help:      "Chat requests by terminal outcome.",
		}, []string{"outcome"}),
		AdmissionRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clawsync",
			Name:      "admission_rejections_total",
			Help:      "Requests rejected before generation, by reason.",
		}, []string{"reason"}),
		ModelFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "clawsync",
			Name:      "model_fallbacks_total",
			Help:      "Requests served by a fallback or default model.",
		}),
		ToolExecutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clawsync",
			Name:      "tool_executions_total",
			Help:      "Tool executions by status.",
		}, []string{"tool", "status"}),
		DeliveryFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clawsync",
			Name:      "delivery_failures_total",
			Help:      "Outbound channel delivery failures.",
		}, []string{"channel"}),
		ChatDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "clawsync",
			Name:      "chat_duration_seconds",
			Help:      "End-to-end chat request duration.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
		}),
	}

	reg.MustRegister(
		m.ChatRequests,
		m.AdmissionRejections,
		m.ModelFallbacks,
		m.ToolExecutions,
		m.DeliveryFailures,
		m.ChatDuration,
	)
	return m
}
