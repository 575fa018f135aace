package outbox

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	enqueued   *prometheus.CounterVec
	dispatched *prometheus.CounterVec
	dead       *prometheus.CounterVec
	cleaned    *prometheus.CounterVec
	latency    *prometheus.HistogramVec

	pending *prometheus.GaugeVec
	locked  *prometheus.GaugeVec
	leader  *prometheus.GaugeVec
}

func counter(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gms", Subsystem: "outbox", Name: name, Help: help,
	}, labels)
}

func gauge(name, help string) *prometheus.GaugeVec {
	return promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "gms", Subsystem: "outbox", Name: name, Help: help,
	}, []string{"table"})
}

var getMetrics = sync.OnceValue(func() *metrics {
	return &metrics{
		enqueued:   counter("enqueue_total", "Events staged in the outbox.", "table", "topic"),
		dispatched: counter("dispatch_total", "Dispatch attempts by result.", "table", "topic", "result"),
		dead:       counter("dead_total", "Events that exhausted their attempts.", "table", "topic"),
		cleaned:    counter("cleaned_total", "Rows pruned by the cleaner.", "table"),
		latency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "gms",
			Subsystem: "outbox",
			Name:      "dispatch_latency_seconds",
			Help:      "Time spent in Dispatch.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2.5, 12),
		}, []string{"table", "topic", "result"}),
		pending: gauge("pending", "Unpublished rows."),
		locked:  gauge("locked", "Unpublished rows currently claimed by a relay."),
		leader:  gauge("relay_leader", "1 while this instance holds the relay lock for the table."),
	}
})
