// Package pool implements the physical entities the cluster schedules
// over: Node (one database host, owning a bounded set of Connections) and
// Connection (one physical connection, single-assignment between the
// pool and whichever request it is currently serving).
//
// A Node dials up to MaxConnections lazily, backs off on dial failure,
// and reports state transitions to its owner rather than having the
// owner poll for them.
package pool

import (
	"sync"

	"github.com/google/uuid"

	"gfx.cafe/gfx/dbfleet/lib/driver"
)

type connState int

const (
	connIdle connState = iota
	connBusy
	connClosed
)

// Connection wraps one physical driver connection. It is single-assignment:
// at any instant it is either parked in the pools its node serves, handed
// to exactly one request, or closed.
type Connection struct {
	id   uuid.UUID
	node *Node
	raw  driver.Connection

	mu      sync.Mutex
	state   connState
	removed bool // true once RemoveFromPool has transferred ownership out

	onIdle func(*Connection)
	onEnd  func(*Connection)
}

func newConnection(node *Node, raw driver.Connection) *Connection {
	return &Connection{
		id:    uuid.New(),
		node:  node,
		raw:   raw,
		state: connBusy,
	}
}

func (c *Connection) ID() uuid.UUID {
	return c.id
}

// Pools returns the sorted pool memberships of the owning node.
func (c *Connection) Pools() []string {
	return c.node.Pools()
}

// Raw returns the underlying driver connection for issuing queries.
func (c *Connection) Raw() driver.Connection {
	return c.raw
}

// Node returns the owning node.
func (c *Connection) Node() *Node {
	return c.node
}

// OnEvents registers the single idle/end subscriber for this connection.
// Called exactly once by the cluster as the connection is wired in.
func (c *Connection) OnEvents(onIdle, onEnd func(*Connection)) {
	c.mu.Lock()
	c.onIdle, c.onEnd = onIdle, onEnd
	c.mu.Unlock()
}

// wrapOnEnd composes wrapper around the currently-registered onEnd
// subscriber, used by Node to guarantee its own bookkeeping always runs
// regardless of what the cluster has already registered.
func (c *Connection) wrapOnEnd(wrapper func(func(*Connection)) func(*Connection)) {
	c.mu.Lock()
	c.onEnd = wrapper(c.onEnd)
	c.mu.Unlock()
}

// Idle marks the connection as reusable and fires the idle subscriber.
// The driver calls this once a query/transaction has finished; tests call
// it directly to simulate a connection becoming free.
func (c *Connection) Idle() {
	var fn func(*Connection)
	c.mu.Lock()
	if c.state == connClosed {
		c.mu.Unlock()
		return
	}
	c.state = connIdle
	c.removed = false
	fn = c.onIdle
	c.mu.Unlock()

	if fn != nil {
		fn(c)
	}
}

// RemoveFromPool marks the connection as owned by the caller; while the
// mark is set the dispatcher does not route it. Idle clears the mark
// before firing the idle subscriber, so calling Idle gives the connection
// back to normal dispatch. Used by Cluster.GetConnection.
func (c *Connection) RemoveFromPool() {
	c.mu.Lock()
	c.removed = true
	c.mu.Unlock()
}

// IsRemoved reports whether ownership has been transferred to a caller
// via RemoveFromPool and not yet given back.
func (c *Connection) IsRemoved() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.removed
}

// End closes the connection and fires the end subscriber exactly once.
func (c *Connection) End() {
	var fn func(*Connection)
	c.mu.Lock()
	if c.state == connClosed {
		c.mu.Unlock()
		return
	}
	c.state = connClosed
	fn = c.onEnd
	c.mu.Unlock()

	_ = c.raw.Close()

	if fn != nil {
		fn(c)
	}
}
