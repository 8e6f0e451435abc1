package gat

import (
	"sync"
	"time"

	"gfx.cafe/gfx/dbfleet/lib/pool"
)

// Dispatcher matches an idle connection to the oldest compatible pending
// request, or parks it, every time a Node reports one of its connections
// idle. Composite-level matching means any node serving a given queue
// trivially satisfies every request in it, so the dispatcher never has to
// probe pool membership per request — it only has to find the queue keyed
// by the idle connection's own composite key.
type Dispatcher struct {
	mu     *sync.Mutex
	pools  *PoolRegistry
	queues *QueueRegistry

	// notify, if set, is called while mu is held whenever a request leaves
	// a queue by being claimed — Cluster uses it to wake End(false)'s
	// drain wait.
	notify func()

	// onDispatch, if set, is called after mu is released with the pool a
	// claimed request targeted and how long it spent queued. Wired to
	// metrics by cmd/dbfleet.
	onDispatch func(pool string, wait time.Duration)
}

func NewDispatcher(mu *sync.Mutex, pools *PoolRegistry, queues *QueueRegistry) *Dispatcher {
	return &Dispatcher{mu: mu, pools: pools, queues: queues}
}

// OnIdle is the Connection idle event handler.
func (d *Dispatcher) OnIdle(c *pool.Connection) {
	d.mu.Lock()

	if c.IsRemoved() {
		// caller took ownership via RemoveFromPool; do not auto-route it.
		d.mu.Unlock()
		return
	}

	req := d.queues.ClaimForComposite(c.Node().Composite())
	if req == nil {
		d.pools.Park(c)
		d.mu.Unlock()
		return
	}

	if d.notify != nil {
		d.notify()
	}
	d.mu.Unlock()

	if d.onDispatch != nil {
		d.onDispatch(req.Pool(), time.Since(req.CreatedAt()))
	}

	// Execute runs the caller's resolve callback; never hold the cluster
	// mutex across it, since the callback can block on arbitrary caller code.
	req.Execute(c)
}

// OnEnd is the Connection end event handler: it drops the connection from
// every pool it might still be parked in.
func (d *Dispatcher) OnEnd(c *pool.Connection) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.pools.Drop(c)
}
