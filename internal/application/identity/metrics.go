package identity

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Login results recorded by flowdesk_logins_total
const (
	loginSuccess  = "success"
	loginInvalid  = "invalid_credentials"
	loginDisabled = "disabled"
	loginError    = "error"
)

// Metrics holds the identity counters
type Metrics struct {
	logins *prometheus.CounterVec
}

// NewMetrics creates the counters on reg; a nil reg leaves them unregistered
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		logins: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: "flowdesk",
			Name:      "logins_total",
			Help:      "Login attempts by result.",
		}, []string{"result"}),
	}
}
