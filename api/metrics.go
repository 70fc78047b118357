package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// metrics are the service-level counters exported on /metrics.
type metrics struct {
	loginAttempts *prometheus.CounterVec
	tokenRenewals prometheus.Counter
	logouts       prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) *metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &metrics{
		loginAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "adminauth",
			Name:      "login_attempts_total",
			Help:      "Login attempts by outcome.",
		}, []string{"outcome"}),
		tokenRenewals: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "adminauth",
			Name:      "token_renewals_total",
			Help:      "Successful access-token renewals.",
		}),
		logouts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "adminauth",
			Name:      "logouts_total",
			Help:      "Logouts with bulk token revocation.",
		}),
	}
}
