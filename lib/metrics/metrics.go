// Package metrics exposes the cluster's Prometheus surface: gauges
// sampled from periodic Cluster.Stats() snapshots, plus counters and a
// histogram fed from Cluster hooks.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Cluster struct {
	idleConnections *prometheus.GaugeVec
	queueDepth      prometheus.Gauge
	pendingRequests prometheus.Gauge
	liveNodes       prometheus.Gauge

	dispatchLatency prometheus.Histogram
	requestsExpired prometheus.Counter
}

var (
	once    sync.Once
	cluster *Cluster
)

// ForCluster returns the process-wide Cluster metrics bundle, registering
// its collectors with the default Prometheus registry on first use.
func ForCluster() *Cluster {
	once.Do(func() {
		cluster = &Cluster{
			idleConnections: promauto.NewGaugeVec(prometheus.GaugeOpts{
				Name: "dbfleet_idle_connections",
				Help: "idle connections currently parked, per pool",
			}, []string{"pool"}),
			queueDepth: promauto.NewGauge(prometheus.GaugeOpts{
				Name: "dbfleet_queue_depth",
				Help: "aggregate pending-request count across every composite queue",
			}),
			pendingRequests: promauto.NewGauge(prometheus.GaugeOpts{
				Name: "dbfleet_pending_requests",
				Help: "distinct in-flight connection requests",
			}),
			liveNodes: promauto.NewGauge(prometheus.GaugeOpts{
				Name: "dbfleet_live_nodes",
				Help: "nodes currently registered with the cluster",
			}),
			dispatchLatency: promauto.NewHistogram(prometheus.HistogramOpts{
				Name:    "dbfleet_dispatch_latency_seconds",
				Help:    "time a request spent queued before being matched to a connection",
				Buckets: prometheus.DefBuckets,
			}),
			requestsExpired: promauto.NewCounter(prometheus.CounterOpts{
				Name: "dbfleet_requests_expired_total",
				Help: "pending requests aborted by the TTL reaper",
			}),
		}
	})
	return cluster
}

// Observe sets every gauge from a single snapshot. Its arguments mirror
// gat.Stats's fields without importing lib/gat, keeping this package usable
// by anything that can produce the same four numbers.
func (m *Cluster) Observe(idleByPool map[string]int, queueDepth, pendingRequests, liveNodes int) {
	for pool, n := range idleByPool {
		m.idleConnections.WithLabelValues(pool).Set(float64(n))
	}
	m.queueDepth.Set(float64(queueDepth))
	m.pendingRequests.Set(float64(pendingRequests))
	m.liveNodes.Set(float64(liveNodes))
}

// ObserveDispatch records how long a dispatched request waited queued.
func (m *Cluster) ObserveDispatch(d time.Duration) {
	m.dispatchLatency.Observe(d.Seconds())
}

// IncExpired records n requests aborted by the TTL reaper.
func (m *Cluster) IncExpired(n int) {
	m.requestsExpired.Add(float64(n))
}
