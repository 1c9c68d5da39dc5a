// Package metrics owns the Prometheus collectors of finkeeper. Each
// Collector has its own registry so tests and multiple instances never
// clash on registration. A nil *Collector is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	registry *prometheus.Registry

	CacheHits    prometheus.Counter
	CacheMisses  prometheus.Counter
	CacheExpired prometheus.Counter

	QueueEnqueued *prometheus.CounterVec
	QueueReplayed *prometheus.CounterVec
	QueueFailed   *prometheus.CounterVec
	QueueParked   prometheus.Counter
	QueuePending  prometheus.Gauge
	DrainDuration prometheus.Histogram

	RPCRequests *prometheus.CounterVec
}

// NewCollector creates all collectors under namespace and registers them
// on a fresh registry.
func NewCollector(namespace string) *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "hits_total",
			Help:      "Cache reads that returned a live entry.",
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "misses_total",
			Help:      "Cache reads that found no entry.",
		}),
		CacheExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "expired_total",
			Help:      "Cache entries deleted because their TTL elapsed.",
		}),
		QueueEnqueued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "enqueued_total",
			Help:      "Mutations recorded in the sync queue.",
		}, []string{"type"}),
		QueueReplayed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "replayed_total",
			Help:      "Queued mutations confirmed by the server.",
		}, []string{"type"}),
		QueueFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "failed_total",
			Help:      "Replay attempts that failed.",
		}, []string{"type"}),
		QueueParked: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "parked_total",
			Help:      "Mutations that reached the retry ceiling.",
		}),
		QueuePending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "pending",
			Help:      "Items currently held in the sync queue.",
		}),
		DrainDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "drain_duration_seconds",
			Help:      "Duration of queue drain passes.",
			Buckets:   prometheus.DefBuckets,
		}),
		RPCRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rpc",
			Name:      "requests_total",
			Help:      "Handled gRPC requests by method and status code.",
		}, []string{"method", "code"}),
	}

	c.registry.MustRegister(
		c.CacheHits, c.CacheMisses, c.CacheExpired,
		c.QueueEnqueued, c.QueueReplayed, c.QueueFailed, c.QueueParked, c.QueuePending,
		c.DrainDuration, c.RPCRequests,
	)

	return c
}

func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// Handler serves the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

func (c *Collector) CacheHit() {
	if c != nil {
		c.CacheHits.Inc()
	}
}

func (c *Collector) CacheMiss() {
	if c != nil {
		c.CacheMisses.Inc()
	}
}

func (c *Collector) CacheExpire(n int) {
	if c != nil && n > 0 {
		c.CacheExpired.Add(float64(n))
	}
}

func (c *Collector) Enqueued(opType string) {
	if c != nil {
		c.QueueEnqueued.WithLabelValues(opType).Inc()
	}
}

func (c *Collector) Replayed(opType string) {
	if c != nil {
		c.QueueReplayed.WithLabelValues(opType).Inc()
	}
}

// ReplayFailed counts a failed replay; parked reports whether the item has
// now hit the retry ceiling.
func (c *Collector) ReplayFailed(opType string, parked bool) {
	if c == nil {
		return
	}
	c.QueueFailed.WithLabelValues(opType).Inc()
	if parked {
		c.QueueParked.Inc()
	}
}

func (c *Collector) SetPending(n int) {
	if c != nil {
		c.QueuePending.Set(float64(n))
	}
}

func (c *Collector) ObserveDrain(d time.Duration) {
	if c != nil {
		c.DrainDuration.Observe(d.Seconds())
	}
}

func (c *Collector) RPC(method, code string) {
	if c != nil {
		c.RPCRequests.WithLabelValues(method, code).Inc()
	}
}
