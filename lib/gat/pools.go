// Package gat is the cluster orchestration layer: PoolRegistry,
// QueueRegistry, Dispatcher, TTLReaper and the Cluster façade that wires
// them together.
//
// Concurrency note: PoolRegistry and QueueRegistry keep no locks of
// their own. Every method assumes the caller already holds the owning
// Cluster's single mutex. Only Cluster is safe to use concurrently from
// multiple goroutines.
package gat

import (
	"github.com/google/uuid"

	"gfx.cafe/gfx/dbfleet/lib/pool"
	"gfx.cafe/gfx/dbfleet/lib/util/orderedindex"
)

// PoolRegistry is the per-pool-name index of idle connections, with a
// node-count refcount per pool so a pool's idle index is torn down once
// its last advertising node leaves.
type PoolRegistry struct {
	idle      map[string]*orderedindex.Index[uuid.UUID, *pool.Connection]
	nodeCount map[string]int
}

func NewPoolRegistry() *PoolRegistry {
	return &PoolRegistry{
		idle:      make(map[string]*orderedindex.Index[uuid.UUID, *pool.Connection]),
		nodeCount: make(map[string]int),
	}
}

// Register records that node contributes to every pool it advertises.
func (r *PoolRegistry) Register(node *pool.Node) {
	for _, p := range node.Pools() {
		if _, ok := r.idle[p]; !ok {
			r.idle[p] = &orderedindex.Index[uuid.UUID, *pool.Connection]{}
		}
		r.nodeCount[p]++
	}
}

// Unregister reverses Register. When a pool's refcount reaches zero its
// idle index is deleted, along with any stale idle connections left in
// it (the node that owned them is gone).
func (r *PoolRegistry) Unregister(node *pool.Node) {
	for _, p := range node.Pools() {
		r.nodeCount[p]--
		if r.nodeCount[p] <= 0 {
			delete(r.nodeCount, p)
			delete(r.idle, p)
		}
	}
}

// Park inserts an idle connection into every pool its node serves.
func (r *PoolRegistry) Park(c *pool.Connection) {
	for _, p := range c.Pools() {
		idx, ok := r.idle[p]
		if !ok {
			continue
		}
		idx.Push(c.ID(), c)
	}
}

// Unpark pops the oldest idle connection serving pool P, and atomically
// removes it from every other pool it also serves.
func (r *PoolRegistry) Unpark(p string) *pool.Connection {
	idx, ok := r.idle[p]
	if !ok {
		return nil
	}
	c, ok := idx.Shift()
	if !ok {
		return nil
	}

	for _, other := range c.Pools() {
		if other == p {
			continue
		}
		if oi, ok := r.idle[other]; ok {
			oi.Remove(c.ID())
		}
	}
	return c
}

// Drop removes c from every pool it serves, without returning it to a
// request. Used when a connection ends while still parked.
func (r *PoolRegistry) Drop(c *pool.Connection) {
	for _, p := range c.Pools() {
		if idx, ok := r.idle[p]; ok {
			idx.Remove(c.ID())
		}
	}
}

// Len reports the number of idle connections currently parked in pool P.
func (r *PoolRegistry) Len(p string) int {
	idx, ok := r.idle[p]
	if !ok {
		return 0
	}
	return idx.Len()
}

// Has reports whether pool P is currently advertised by any live node.
func (r *PoolRegistry) Has(p string) bool {
	_, ok := r.idle[p]
	return ok
}

// Snapshot returns idle-connection depth per pool, for metrics/admin use.
func (r *PoolRegistry) Snapshot() map[string]int {
	out := make(map[string]int, len(r.idle))
	for p, idx := range r.idle {
		out[p] = idx.Len()
	}
	return out
}
