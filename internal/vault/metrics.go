package vault

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	accessDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lockbox_access_decisions_total",
		Help: "Authorization decisions by operation and result.",
	}, []string{"operation", "result"})

	cascadeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "lockbox_cascade_duration_seconds",
		Help:    "Duration of recursive delete, lock and unlock operations.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	cascadeNodes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lockbox_cascade_nodes_total",
		Help: "Nodes touched by recursive operations.",
	}, []string{"operation"})

	partialDeletes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lockbox_partial_deletes_total",
		Help: "Recursive deletes aborted part way.",
	})
)

func decisionResult(err error) string {
	switch {
	case err == nil:
		return "allowed"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrLocked):
		return "locked"
	default:
		return "error"
	}
}
