package gat

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"gfx.cafe/gfx/dbfleet/lib/clustererr"
	"gfx.cafe/gfx/dbfleet/lib/driver"
	"gfx.cafe/gfx/dbfleet/lib/pool"
	"gfx.cafe/gfx/dbfleet/lib/request"
)

// Cluster orchestrates a PoolRegistry, QueueRegistry, Dispatcher and
// TTLReaper behind a single public surface: AddNode, GetConnection/
// GetDBConnection, the query façade, and graceful/forced End.
//
// Every mutation of pools/queues happens with mu held; mu is never held
// across a call into caller-supplied code (a resolve/reject closure, a
// driver dial) — see Dispatcher and TTLReaper for the same pattern.
type Cluster struct {
	config  Config
	factory driver.Factory
	logger  *zap.Logger

	mu        sync.Mutex
	drainCond *sync.Cond
	pools     *PoolRegistry
	queues    *QueueRegistry

	dispatcher *Dispatcher
	reaper     *TTLReaper

	nodes map[uuid.UUID]*pool.Node
	ended bool
}

// NewCluster resolves Driver against Registry (or the process-wide
// default) and starts the TTL reaper.
func NewCluster(config Config) (*Cluster, error) {
	if config.Driver == "" {
		return nil, clustererr.New(clustererr.ConfigError, "driver is required")
	}
	config = config.withDefaults()

	factory, ok := config.Registry.Lookup(config.Driver)
	if !ok {
		return nil, clustererr.New(clustererr.DriverLoadError, "driver not registered: "+config.Driver)
	}

	c := &Cluster{
		config:  config,
		factory: factory,
		logger:  config.Logger,
		pools:   NewPoolRegistry(),
		queues:  NewQueueRegistry(),
		nodes:   make(map[uuid.UUID]*pool.Node),
	}
	c.drainCond = sync.NewCond(&c.mu)
	c.dispatcher = NewDispatcher(&c.mu, c.pools, c.queues)
	c.dispatcher.notify = c.drainCond.Broadcast
	c.dispatcher.onDispatch = config.OnDispatch
	c.reaper = NewTTLReaper(&c.mu, c.queues, config.TTL, config.TTLCheckInterval, c.logger)
	c.reaper.notify = c.drainCond.Broadcast
	c.reaper.onExpire = config.OnExpire
	c.reaper.Start()

	return c, nil
}

// AddNode normalizes cfg (defaults, sorted pools), constructs a Node,
// registers it with PoolRegistry and QueueRegistry, and starts it. It
// blocks until the node's initial connection attempt has been made —
// the Go realization of "resolves when Node emits load".
func (c *Cluster) AddNode(cfg pool.Config) (*pool.Node, error) {
	cfg = c.applyNodeDefaults(cfg)

	c.mu.Lock()
	if c.ended {
		c.mu.Unlock()
		return nil, clustererr.New(clustererr.Ended, "cluster has been ended")
	}

	node := pool.NewNode(cfg, c.logger)
	node.OnEvents(c.onNodeConnection, c.onNodeEnd)

	c.pools.Register(node)
	c.queues.Register(node)
	c.nodes[node.ID()] = node
	c.mu.Unlock()

	if c.config.OnNodeRegistered != nil {
		for _, p := range node.Pools() {
			c.config.OnNodeRegistered(p)
		}
	}

	node.Start()
	return node, nil
}

func (c *Cluster) applyNodeDefaults(cfg pool.Config) pool.Config {
	if cfg.Host == "" {
		cfg.Host = DefaultNodeHost
	}
	if cfg.MaxConnections == 0 {
		cfg.MaxConnections = DefaultNodeMaxConnections
	}
	if len(cfg.Pools) == 0 {
		cfg.Pools = append([]string(nil), DefaultNodePools...)
	}
	pools := append([]string(nil), cfg.Pools...)
	sort.Strings(pools)
	cfg.Pools = pools

	if cfg.NewConnection == nil {
		cfg.NewConnection = c.factory.NewConnection
	}
	return cfg
}

func (c *Cluster) onNodeConnection(_ *pool.Node, conn *pool.Connection) {
	conn.OnEvents(c.dispatcher.OnIdle, c.dispatcher.OnEnd)
}

func (c *Cluster) onNodeEnd(n *pool.Node) {
	c.mu.Lock()
	c.pools.Unregister(n)
	orphaned := c.queues.Unregister(n)
	delete(c.nodes, n.ID())
	if len(orphaned) > 0 {
		c.drainCond.Broadcast()
	}
	c.mu.Unlock()

	if c.config.OnNodeRemoved != nil {
		for _, p := range n.Pools() {
			c.config.OnNodeRemoved(p)
		}
	}

	for _, r := range orphaned {
		if c.config.OnAbort != nil {
			c.config.OnAbort(r.Pool())
		}
		r.Abort(clustererr.New(clustererr.NoServer, "owning node was removed"))
	}
}

type getResult struct {
	conn *pool.Connection
	err  error
}

// GetDBConnection returns a connection from poolName, still owned by its
// node. An immediately idle connection is unparked and returned right
// away; if none is available the caller's request is queued and this
// call blocks until it is executed, aborted, or expires.
func (c *Cluster) GetDBConnection(poolName string) (*pool.Connection, error) {
	c.mu.Lock()

	if c.ended {
		c.mu.Unlock()
		return nil, clustererr.New(clustererr.Ended, "cluster has been ended")
	}

	if c.pools.Len(poolName) > 0 {
		conn := c.pools.Unpark(poolName)
		c.mu.Unlock()
		return conn, nil
	}

	if !c.queues.Has(poolName) {
		c.mu.Unlock()
		return nil, clustererr.New(clustererr.NoServer, "no live node advertises pool "+poolName)
	}

	if c.queues.Depth() >= c.config.MaxQueueLength {
		c.mu.Unlock()
		return nil, clustererr.New(clustererr.QueueFull, "queue is full")
	}

	resultCh := make(chan getResult, 1)
	req := request.New(poolName,
		func(conn request.Connection) {
			resultCh <- getResult{conn: conn.(*pool.Connection)}
		},
		func(err error) {
			resultCh <- getResult{err: err}
		},
	)

	if err := c.queues.Enqueue(req); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	c.mu.Unlock()

	if c.config.OnEnqueue != nil {
		c.config.OnEnqueue(poolName)
	}

	var span trace.Span
	if c.config.Tracer != nil {
		_, span = c.config.Tracer.Start(context.Background(), "gat.queue_wait",
			trace.WithAttributes(attribute.String("pool", poolName)))
	}

	res := <-resultCh

	if span != nil {
		if res.err != nil {
			span.SetStatus(codes.Error, res.err.Error())
		}
		span.End()
	}

	return res.conn, res.err
}

// GetConnection is identical to GetDBConnection, but the caller assumes
// ownership of the connection and must End() it themselves.
func (c *Cluster) GetConnection(poolName string) (*pool.Connection, error) {
	conn, err := c.GetDBConnection(poolName)
	if err != nil {
		return nil, err
	}
	conn.RemoveFromPool()
	return conn, nil
}

// Stats is a read-only snapshot of cluster state for admin/metrics use.
type Stats struct {
	IdleByPool map[string]int
	QueueDepth int
	Requests   int
	LiveNodes  int
}

func (c *Cluster) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Stats{
		IdleByPool: c.pools.Snapshot(),
		QueueDepth: c.queues.Depth(),
		Requests:   c.queues.Requests(),
		LiveNodes:  len(c.nodes),
	}
}

// End marks the cluster ended and stops the TTL reaper, then either
// aborts every pending request immediately (endNow) or waits for every
// queue to drain naturally, before ending every node.
func (c *Cluster) End(endNow bool) error {
	c.mu.Lock()
	if c.ended {
		c.mu.Unlock()
		return nil
	}
	c.ended = true
	c.mu.Unlock()

	c.reaper.Stop()

	if endNow {
		c.mu.Lock()
		toAbort := c.queues.DrainAll()
		c.mu.Unlock()

		for _, r := range toAbort {
			if c.config.OnAbort != nil {
				c.config.OnAbort(r.Pool())
			}
			r.Abort(clustererr.New(clustererr.Shutdown, "cluster is shutting down"))
		}
	} else {
		c.mu.Lock()
		for c.queues.Requests() > 0 {
			c.drainCond.Wait()
		}
		c.mu.Unlock()
	}

	c.mu.Lock()
	nodes := make([]*pool.Node, 0, len(c.nodes))
	for _, n := range c.nodes {
		nodes = append(nodes, n)
	}
	c.mu.Unlock()

	for _, n := range nodes {
		n.End()
	}

	return nil
}
