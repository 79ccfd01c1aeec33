package mail

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	sendTotal *prometheus.CounterVec
}

var metricsSingleton = sync.OnceValue(func() *metrics {
	return &metrics{
		sendTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mail",
			Name:      "send_total",
			Help:      "Total number of SMTP send attempts by result.",
		}, []string{"host", "result"}),
	}
})

func getMetrics() *metrics {
	return metricsSingleton()
}
