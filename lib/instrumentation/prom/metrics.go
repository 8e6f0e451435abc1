// Package prom holds the cluster's per-pool labeled metrics, declared
// with gotoprom's struct-tag idiom rather than hand-built promauto
// calls.
package prom

import (
	"gfx.cafe/open/gotoprom"
	"github.com/prometheus/client_golang/prometheus"
)

type PoolLabels struct {
	Pool string `label:"pool"`
}

var Pools struct {
	NodesRegistered func(PoolLabels) prometheus.Counter `name:"nodes_registered" help:"nodes that started advertising this pool"`
	NodesRemoved    func(PoolLabels) prometheus.Counter `name:"nodes_removed" help:"nodes that stopped advertising this pool"`
}

var Requests struct {
	Enqueued  func(PoolLabels) prometheus.Counter `name:"enqueued" help:"requests enqueued for this pool"`
	Dispatched func(PoolLabels) prometheus.Counter `name:"dispatched" help:"requests matched to a connection for this pool"`
	Expired   func(PoolLabels) prometheus.Counter `name:"expired" help:"requests that timed out waiting for this pool"`
	Aborted   func(PoolLabels) prometheus.Counter `name:"aborted" help:"requests aborted for this pool for any other reason"`
}

func init() {
	gotoprom.MustInit(&Pools, "dbfleet_pool", prometheus.Labels{})
	gotoprom.MustInit(&Requests, "dbfleet_request", prometheus.Labels{})
}
