package gat

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"gfx.cafe/gfx/dbfleet/lib/clustererr"
	"gfx.cafe/gfx/dbfleet/lib/request"
)

func TestTTLReaper_ExpiresStaleRequests(t *testing.T) {
	var mu sync.Mutex
	queues := NewQueueRegistry()
	node, _ := newTestNode([]string{"read"}, 0)
	defer node.End()

	mu.Lock()
	queues.Register(node)
	mu.Unlock()

	var rejectErr error
	var wg sync.WaitGroup
	wg.Add(1)
	r := request.New("read", func(request.Connection) {}, func(err error) {
		rejectErr = err
		wg.Done()
	})

	mu.Lock()
	require.NoError(t, queues.Enqueue(r))
	mu.Unlock()

	reaper := NewTTLReaper(&mu, queues, time.Millisecond, 2*time.Millisecond, nil)
	reaper.Start()
	defer reaper.Stop()

	wg.Wait()
	require.True(t, clustererr.Is(rejectErr, clustererr.Timeout))
}

func TestTTLReaper_StartStopWithNothingQueued(t *testing.T) {
	var mu sync.Mutex
	queues := NewQueueRegistry()
	reaper := NewTTLReaper(&mu, queues, time.Hour, time.Hour, nil)
	reaper.Start()
	reaper.Stop()
}
