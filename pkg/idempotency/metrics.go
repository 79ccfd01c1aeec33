package idempotency

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	outcomeTotal *prometheus.CounterVec
}

var metricsSingleton = sync.OnceValue(func() *metrics {
	return &metrics{
		outcomeTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "idempotency",
			Name:      "outcome_total",
			Help:      "Total number of idempotency decisions by outcome.",
		}, []string{"outcome"}),
	}
})

func getMetrics() *metrics {
	return metricsSingleton()
}

const (
	outcomeStarted   = "started"
	outcomeReplayed  = "replayed"
	outcomeCompleted = "completed"
	outcomeFailed    = "failed"
)
