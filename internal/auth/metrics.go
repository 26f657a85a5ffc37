package auth

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	decisions     *prometheus.CounterVec //nolint:gochecknoglobals
	decisionsOnce sync.Once              //nolint:gochecknoglobals
)

// decisionCounter registers authz_decisions_total once.
func decisionCounter() *prometheus.CounterVec {
	decisionsOnce.Do(func() {
		decisions = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "authz_decisions_total",
				Help: "Number of authorization decisions, differentiated by outcome.",
			},
			[]string{"outcome"},
		)
	})

	return decisions
}
