package delivery

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	enqueueTotal *prometheus.CounterVec
	attemptTotal *prometheus.CounterVec
	cycleTotal   *prometheus.CounterVec

	sendLatency *prometheus.HistogramVec

	pending *prometheus.GaugeVec
}

var metricsSingleton = sync.OnceValue(func() *metrics {
	return &metrics{
		enqueueTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "delivery",
			Name:      "enqueue_total",
			Help:      "Total number of delivery tasks enqueued at publish time.",
		}, []string{"table"}),
		attemptTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "delivery",
			Name:      "attempt_total",
			Help:      "Total number of delivery attempts by result.",
		}, []string{"result"}),
		cycleTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "delivery",
			Name:      "cycle_total",
			Help:      "Total number of worker cycles by outcome.",
		}, []string{"outcome"}),
		sendLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "delivery",
			Name:      "send_latency_seconds",
			Help:      "Latency distribution for outbound email sends.",
			Buckets: []float64{
				0.005, 0.01, 0.02, 0.05,
				0.1, 0.2, 0.5,
				1, 2, 5, 10,
			},
		}, []string{"result"}),
		pending: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "delivery",
			Name:      "pending",
			Help:      "Current number of tasks waiting in the delivery queue.",
		}, []string{"table"}),
	}
})

func getMetrics() *metrics {
	return metricsSingleton()
}

const (
	resultSent             = "sent"
	resultSendFailed       = "send_failed"
	resultInvalidRecipient = "invalid_recipient"
)
