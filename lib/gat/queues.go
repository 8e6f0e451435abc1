package gat

import (
	"time"

	"github.com/google/uuid"

	"gfx.cafe/gfx/dbfleet/lib/clustererr"
	"gfx.cafe/gfx/dbfleet/lib/pool"
	"gfx.cafe/gfx/dbfleet/lib/request"
	"gfx.cafe/gfx/dbfleet/lib/util/orderedindex"
)

// QueueRegistry holds one ordered queue of pending requests per
// composite pool-set, plus a reverse index (queueMap) from pool name to
// the set of composite keys that serve it.
//
// A composite key and its queue are in 1:1 correspondence, so the string
// itself is already an O(1)-lookup reference into the queues map.
type QueueRegistry struct {
	queues    map[string]*orderedindex.Index[uuid.UUID, *request.Request]
	nodeCount map[string]int
	queueMap  map[string]map[string]struct{} // pool name -> set of composite keys

	all map[uuid.UUID]*request.Request // precise in-flight request count
}

func NewQueueRegistry() *QueueRegistry {
	return &QueueRegistry{
		queues:    make(map[string]*orderedindex.Index[uuid.UUID, *request.Request]),
		nodeCount: make(map[string]int),
		queueMap:  make(map[string]map[string]struct{}),
		all:       make(map[uuid.UUID]*request.Request),
	}
}

// Register wires node's composite key into Queues and every pool it
// advertises into QueueMap.
func (q *QueueRegistry) Register(node *pool.Node) {
	k := node.Composite()
	if _, ok := q.queues[k]; !ok {
		q.queues[k] = &orderedindex.Index[uuid.UUID, *request.Request]{}
	}
	q.nodeCount[k]++

	for _, p := range node.Pools() {
		set, ok := q.queueMap[p]
		if !ok {
			set = make(map[string]struct{})
			q.queueMap[p] = set
		}
		set[k] = struct{}{}
	}
}

// Unregister decrements node's composite refcount; at zero it tears down
// that queue, orphaning any request left in it that has no other
// compatible queue to fall back on. The returned slice must be aborted
// by the caller outside the cluster mutex.
func (q *QueueRegistry) Unregister(node *pool.Node) []*request.Request {
	k := node.Composite()
	q.nodeCount[k]--
	if q.nodeCount[k] > 0 {
		return nil
	}
	delete(q.nodeCount, k)

	var orphaned []*request.Request
	if idx, ok := q.queues[k]; ok {
		idx.Range(func(_ uuid.UUID, r *request.Request) bool {
			if len(q.queueMap[r.Pool()]) <= 1 {
				orphaned = append(orphaned, r)
				delete(q.all, r.ID())
			}
			return true
		})
	}
	delete(q.queues, k)

	for _, p := range node.Pools() {
		set := q.queueMap[p]
		if len(set) <= 1 {
			delete(q.queueMap, p)
		} else {
			delete(set, k)
		}
	}

	return orphaned
}

// Enqueue inserts r into every queue compatible with its pool. Fails
// with NoServer if no live node currently advertises that pool.
func (q *QueueRegistry) Enqueue(r *request.Request) error {
	set := q.queueMap[r.Pool()]
	if len(set) == 0 {
		return clustererr.New(clustererr.NoServer, "no live node advertises pool "+r.Pool())
	}
	for k := range set {
		q.queues[k].Push(r.ID(), r)
	}
	q.all[r.ID()] = r
	return nil
}

// ClaimForComposite pops the oldest request queued under composite key k
// and removes it from every sibling queue it was also enqueued in.
func (q *QueueRegistry) ClaimForComposite(k string) *request.Request {
	idx, ok := q.queues[k]
	if !ok {
		return nil
	}
	r, ok := idx.Shift()
	if !ok {
		return nil
	}
	q.removeFromSiblings(r, k)
	delete(q.all, r.ID())
	return r
}

func (q *QueueRegistry) removeFromSiblings(r *request.Request, except string) {
	for k := range q.queueMap[r.Pool()] {
		if k == except {
			continue
		}
		if idx, ok := q.queues[k]; ok {
			idx.Remove(r.ID())
		}
	}
}

// ExpireOlderThan walks every queue from the head, removing and
// returning every request older than ttl. The caller aborts them with
// Timeout outside the cluster mutex.
func (q *QueueRegistry) ExpireOlderThan(ttl time.Duration) []*request.Request {
	var expired []*request.Request
	for k, idx := range q.queues {
		for {
			r, ok := idx.GetFirst()
			if !ok || !r.IsExpired(ttl) {
				break
			}
			idx.Shift()
			q.removeFromSiblings(r, k)
			delete(q.all, r.ID())
			expired = append(expired, r)
		}
	}
	return expired
}

// Has reports whether any queue currently serves pool P.
func (q *QueueRegistry) Has(p string) bool {
	return len(q.queueMap[p]) > 0
}

// Depth is the sum of per-queue lengths across all composite queues. A
// request present in N queues is counted N times, since it occupies N
// slots; used as the cheap backpressure signal for MaxQueueLength.
func (q *QueueRegistry) Depth() int {
	total := 0
	for _, idx := range q.queues {
		total += idx.Len()
	}
	return total
}

// Requests is the precise count of distinct in-flight requests,
// regardless of how many queues each one occupies.
func (q *QueueRegistry) Requests() int {
	return len(q.all)
}

// DrainAll empties every queue and returns each distinct pending request
// exactly once, for immediate (non-graceful) shutdown. The caller aborts
// them outside the cluster mutex.
func (q *QueueRegistry) DrainAll() []*request.Request {
	out := make([]*request.Request, 0, len(q.all))
	for _, r := range q.all {
		out = append(out, r)
	}
	for _, idx := range q.queues {
		for idx.Len() > 0 {
			idx.Shift()
		}
	}
	q.all = make(map[uuid.UUID]*request.Request)
	return out
}
