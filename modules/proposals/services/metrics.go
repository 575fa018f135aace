package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	codesAllocated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gms",
		Subsystem: "codes",
		Name:      "allocated_total",
		Help:      "Total number of identifiers issued, by kind (proposal or external investigator).",
	}, []string{"kind"})

	allocationConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "gms",
		Subsystem: "codes",
		Name:      "allocation_conflicts_total",
		Help:      "Total number of proposal inserts that hit the code uniqueness constraint.",
	})

	statusTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gms",
		Subsystem: "workflow",
		Name:      "transitions_total",
		Help:      "Total number of committed status transitions.",
	}, []string{"from", "to"})

	illegalTransitions = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "gms",
		Subsystem: "workflow",
		Name:      "illegal_transitions_total",
		Help:      "Total number of rejected status transitions.",
	})

	auditWriteFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "gms",
		Subsystem: "changelog",
		Name:      "write_failures_total",
		Help:      "Total number of mutations rolled back because the changelog write failed.",
	})

	changelogEntries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gms",
		Subsystem: "changelog",
		Name:      "entries_total",
		Help:      "Total number of changelog entries written, by change type.",
	}, []string{"type"})
)

func recordTransition(from, to string) {
	statusTransitions.WithLabelValues(from, to).Inc()
}
