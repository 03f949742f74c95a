package session

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Validation results recorded by flowdesk_session_validations_total
const (
	resultOK          = "ok"
	resultRenewed     = "renewed"
	resultRenewFailed = "renew_failed"
	resultNotFound    = "not_found"
	resultInvalid     = "invalid"
	resultError       = "error"
)

// Metrics holds the session counters
type Metrics struct {
	created     prometheus.Counter
	revoked     prometheus.Counter
	validations *prometheus.CounterVec
}

// NewMetrics creates the counters on reg. A nil reg leaves them
// unregistered, which is what tests want.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		created: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "flowdesk",
			Name:      "sessions_created_total",
			Help:      "Sessions created by signup, login and password flows.",
		}),
		revoked: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "flowdesk",
			Name:      "sessions_revoked_total",
			Help:      "Sessions removed by logout or revocation.",
		}),
		validations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flowdesk",
			Name:      "session_validations_total",
			Help:      "Session token validations by result.",
		}, []string{"result"}),
	}
}
