package gat

import (
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"gfx.cafe/gfx/dbfleet/lib/driver"
)

const (
	DefaultTTL              = 60 * time.Second
	DefaultTTLCheckInterval = 30 * time.Second
	DefaultMaxQueueLength   = 10000

	DefaultNodeHost           = "localhost"
	DefaultNodeMaxConnections = 100
)

var DefaultNodePools = []string{"read", "write"}

// Config holds everything NewCluster needs to build a Cluster. Driver is
// required; everything else has a documented default.
type Config struct {
	// Driver names the vendor family to resolve from Registry.
	Driver string

	// TTL is how long a pending request may wait before TTLReaper
	// expires it. Zero means DefaultTTL.
	TTL time.Duration

	// TTLCheckInterval is how often TTLReaper sweeps every queue. Zero
	// means DefaultTTLCheckInterval.
	TTLCheckInterval time.Duration

	// MaxQueueLength bounds the aggregate (double-counted) queue depth
	// before getDBConnection starts failing with QueueFull. Zero means
	// DefaultMaxQueueLength.
	MaxQueueLength int

	// Registry defaults to driver.Global() when nil.
	Registry *driver.Registry

	// Logger defaults to zap.NewNop() when nil.
	Logger *zap.Logger

	// OnDispatch, if set, is called every time a queued request is
	// matched to an idle connection, with the pool it targeted and how
	// long it waited. Wired to Prometheus by cmd/dbfleet; nil is a valid
	// no-op.
	OnDispatch func(pool string, wait time.Duration)

	// OnExpire, if set, is called once per request a TTLReaper sweep
	// expires, with the pool it targeted.
	OnExpire func(pool string)

	// OnEnqueue, if set, is called every time GetDBConnection queues a
	// request rather than satisfying it immediately.
	OnEnqueue func(pool string)

	// OnNodeRegistered/OnNodeRemoved, if set, fire once per pool a node
	// advertises as it is added to or removed from the cluster.
	OnNodeRegistered func(pool string)
	OnNodeRemoved    func(pool string)

	// OnAbort, if set, fires once per request rejected for a reason other
	// than expiry: its owning node disappeared, or the cluster is
	// shutting down immediately.
	OnAbort func(pool string)

	// Tracer, if set, spans the time GetDBConnection spends waiting on a
	// queued request, from enqueue to dispatch or abort. nil disables
	// tracing.
	Tracer trace.Tracer
}

func (c Config) withDefaults() Config {
	if c.TTL == 0 {
		c.TTL = DefaultTTL
	}
	if c.TTLCheckInterval == 0 {
		c.TTLCheckInterval = DefaultTTLCheckInterval
	}
	if c.MaxQueueLength == 0 {
		c.MaxQueueLength = DefaultMaxQueueLength
	}
	if c.Registry == nil {
		c.Registry = driver.Global()
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	return c
}
