package main

import (
	"time"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"

	"gfx.cafe/gfx/dbfleet/lib/config"
	"gfx.cafe/gfx/dbfleet/lib/gat"
	"gfx.cafe/gfx/dbfleet/lib/instrumentation/prom"
	"gfx.cafe/gfx/dbfleet/lib/metrics"

	_ "gfx.cafe/gfx/dbfleet/lib/driver/mock"
)

// buildCluster loads the config file at path, constructs a Cluster wired
// to both metrics surfaces (aggregate gauges via Observe, per-pool
// counters via hooks) plus a span around every queued wait, and adds
// every configured node. The returned *sdktrace.TracerProvider must be
// shut down by the caller.
func buildCluster(path string, logger *zap.Logger) (*gat.Cluster, *config.File, *sdktrace.TracerProvider, error) {
	file, err := config.Load(path)
	if err != nil {
		return nil, nil, nil, err
	}

	clusterMetrics := metrics.ForCluster()
	tp := sdktrace.NewTracerProvider()

	cfg := file.ClusterConfig()
	cfg.Logger = logger
	cfg.Tracer = tp.Tracer("gfx.cafe/gfx/dbfleet")
	cfg.OnDispatch = func(pool string, wait time.Duration) {
		clusterMetrics.ObserveDispatch(wait)
		prom.Requests.Dispatched(prom.PoolLabels{Pool: pool}).Inc()
	}
	cfg.OnExpire = func(pool string) {
		clusterMetrics.IncExpired(1)
		prom.Requests.Expired(prom.PoolLabels{Pool: pool}).Inc()
	}
	cfg.OnEnqueue = func(pool string) {
		prom.Requests.Enqueued(prom.PoolLabels{Pool: pool}).Inc()
	}
	cfg.OnNodeRegistered = func(pool string) {
		prom.Pools.NodesRegistered(prom.PoolLabels{Pool: pool}).Inc()
	}
	cfg.OnNodeRemoved = func(pool string) {
		prom.Pools.NodesRemoved(prom.PoolLabels{Pool: pool}).Inc()
	}
	cfg.OnAbort = func(pool string) {
		prom.Requests.Aborted(prom.PoolLabels{Pool: pool}).Inc()
	}

	cluster, err := gat.NewCluster(cfg)
	if err != nil {
		return nil, nil, nil, err
	}

	for _, nodeCfg := range file.NodeConfigs() {
		if _, err := cluster.AddNode(nodeCfg); err != nil {
			return nil, nil, nil, err
		}
	}

	return cluster, file, tp, nil
}

// pollStats periodically samples cluster.Stats() into the Prometheus
// gauges until stop is closed.
func pollStats(cluster *gat.Cluster, interval time.Duration, stop <-chan struct{}) {
	clusterMetrics := metrics.ForCluster()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			stats := cluster.Stats()
			clusterMetrics.Observe(stats.IdleByPool, stats.QueueDepth, stats.Requests, stats.LiveNodes)
		}
	}
}
