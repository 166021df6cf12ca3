package services

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	orderingOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "kanban",
		Subsystem: "ordering",
		Name:      "operations_total",
		Help:      "Ordering operations broken down by entity, operation and result.",
	}, []string{"entity", "op", "result"})

	orderingLockWait = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "kanban",
		Subsystem: "ordering",
		Name:      "lock_wait_seconds",
		Help:      "Time spent opening the ordering transaction and acquiring the board lock.",
		Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	})

	writeConflicts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "kanban",
		Subsystem: "write",
		Name:      "conflicts_total",
		Help:      "Ordering write conflicts broken down by reason.",
	}, []string{"reason"})

	notifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "kanban",
		Name:      "notifications_total",
		Help:      "Order-changed notifications broken down by topic and result.",
	}, []string{"topic", "result"})
)

func recordOperation(entity, op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
		if svcErr, ok := AsServiceError(err); ok {
			result = svcErr.Kind.String()
		}
	}
	orderingOperations.WithLabelValues(entity, op, result).Inc()
}

func recordLockWait(d time.Duration) {
	orderingLockWait.Observe(d.Seconds())
}

func recordWriteConflict(reason string) {
	if reason == "" {
		reason = "other"
	}
	writeConflicts.WithLabelValues(reason).Inc()
}

func recordNotification(topic, result string) {
	notifications.WithLabelValues(topic, result).Inc()
}
