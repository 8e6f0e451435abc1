package gat

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"gfx.cafe/gfx/dbfleet/lib/clustererr"
)

// TTLReaper periodically expires requests that have waited longer than
// ttl, across every queue. It walks each queue from the head while
// expired, since Enqueue only ever appends: a non-expired head means no
// expired entries remain anywhere behind it.
type TTLReaper struct {
	queues   *QueueRegistry
	mu       *sync.Mutex
	ttl      time.Duration
	interval time.Duration
	logger   *zap.Logger

	closed chan struct{}
	wg     sync.WaitGroup

	// notify, if set, is called while mu is held whenever a sweep expires
	// at least one request — Cluster uses it to wake End(false)'s drain
	// wait.
	notify func()

	// onExpire, if set, is called once per expired request, after mu is
	// released, with the pool it targeted. Wired to metrics by
	// cmd/dbfleet.
	onExpire func(pool string)
}

func NewTTLReaper(mu *sync.Mutex, queues *QueueRegistry, ttl, interval time.Duration, logger *zap.Logger) *TTLReaper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TTLReaper{
		queues:   queues,
		mu:       mu,
		ttl:      ttl,
		interval: interval,
		logger:   logger,
		closed:   make(chan struct{}),
	}
}

// Start launches the reaper's background ticker.
func (t *TTLReaper) Start() {
	t.wg.Add(1)
	go t.run()
}

func (t *TTLReaper) run() {
	defer t.wg.Done()

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-t.closed:
			return
		case <-ticker.C:
			t.sweep()
		}
	}
}

func (t *TTLReaper) sweep() {
	t.mu.Lock()
	expired := t.queues.ExpireOlderThan(t.ttl)
	if len(expired) > 0 && t.notify != nil {
		t.notify()
	}
	t.mu.Unlock()

	if len(expired) == 0 {
		return
	}
	t.logger.Debug("expired pending requests", zap.Int("count", len(expired)))
	for _, r := range expired {
		if t.onExpire != nil {
			t.onExpire(r.Pool())
		}
		r.Abort(clustererr.New(clustererr.Timeout, "request expired before being served"))
	}
}

// Stop halts the ticker and waits for the current sweep, if any, to
// finish. Not idempotent — calling it twice panics on a closed channel.
// Cluster.End calls it exactly once.
func (t *TTLReaper) Stop() {
	close(t.closed)
	t.wg.Wait()
}
