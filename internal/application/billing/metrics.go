package billing

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the billing counters
type Metrics struct {
	webhooks *prometheus.CounterVec
}

// NewMetrics creates the counters on reg; a nil reg leaves them unregistered
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		webhooks: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: "flowdesk",
			Name:      "webhook_events_total",
			Help:      "Verified Stripe webhook deliveries by event type.",
		}, []string{"type"}),
	}
}
