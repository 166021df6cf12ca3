package outbox

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	enqueueTotal    *prometheus.CounterVec
	dispatchTotal   *prometheus.CounterVec
	deadTotal       *prometheus.CounterVec
	dispatchLatency *prometheus.HistogramVec
	pending         *prometheus.GaugeVec
	locked          *prometheus.GaugeVec
	relayLeader     *prometheus.GaugeVec
}

var getMetrics = sync.OnceValue(func() *metrics {
	return &metrics{
		enqueueTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kanban",
			Subsystem: "outbox",
			Name:      "enqueue_total",
			Help:      "Outbox rows written inside ordering transactions.",
		}, []string{"table", "topic"}),
		dispatchTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kanban",
			Subsystem: "outbox",
			Name:      "dispatch_total",
			Help:      "Outbox dispatch attempts by result.",
		}, []string{"table", "topic", "result"}),
		deadTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kanban",
			Subsystem: "outbox",
			Name:      "dead_total",
			Help:      "Outbox rows that exhausted their attempts.",
		}, []string{"table", "topic"}),
		dispatchLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "kanban",
			Subsystem: "outbox",
			Name:      "dispatch_latency_seconds",
			Help:      "Outbox dispatch latency.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
		}, []string{"table", "topic", "result"}),
		pending: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "kanban",
			Subsystem: "outbox",
			Name:      "pending",
			Help:      "Unpublished outbox rows.",
		}, []string{"table"}),
		locked: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "kanban",
			Subsystem: "outbox",
			Name:      "locked",
			Help:      "Unpublished outbox rows currently claimed by a relay.",
		}, []string{"table"}),
		relayLeader: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "kanban",
			Subsystem: "outbox",
			Name:      "relay_leader",
			Help:      "1 when this instance holds the relay leader lock for the table.",
		}, []string{"table"}),
	}
})
