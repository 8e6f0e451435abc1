package pool

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"gfx.cafe/gfx/dbfleet/lib/driver"
)

type stubConnection struct {
	closed atomic.Bool
}

func (s *stubConnection) Query(ctx *driver.QueryContext) error { return nil }
func (s *stubConnection) Close() error                          { s.closed.Store(true); return nil }

func alwaysDials() driver.ConnectionConstructor {
	return func(driver.NodeCredentials) (driver.Connection, error) {
		return &stubConnection{}, nil
	}
}

func failsNTimes(n int) driver.ConnectionConstructor {
	var attempts atomic.Int64
	return func(driver.NodeCredentials) (driver.Connection, error) {
		if attempts.Add(1) <= int64(n) {
			return nil, fmt.Errorf("dial failed")
		}
		return &stubConnection{}, nil
	}
}

func TestNode_DialsUpToMaxConnections(t *testing.T) {
	var announced []*Connection
	node := NewNode(Config{
		MaxConnections:       3,
		Pools:                []string{"read"},
		NewConnection:        alwaysDials(),
		ReconnectInitialTime: time.Millisecond,
		ReconnectMaxTime:     10 * time.Millisecond,
	}, nil)
	node.OnEvents(func(_ *Node, c *Connection) { announced = append(announced, c) }, nil)

	node.Start()
	require.Eventually(t, func() bool { return node.LiveCount() == 3 }, time.Second, time.Millisecond)
	require.Len(t, announced, 3)

	node.End()
	require.Eventually(t, func() bool { return node.LiveCount() == 0 }, time.Second, time.Millisecond)
}

func TestNode_BacksOffAndRecoversFromDialFailure(t *testing.T) {
	node := NewNode(Config{
		MaxConnections:       1,
		Pools:                []string{"read"},
		NewConnection:        failsNTimes(2),
		ReconnectInitialTime: time.Millisecond,
		ReconnectMaxTime:     5 * time.Millisecond,
	}, nil)

	node.Start()
	require.Eventually(t, func() bool { return node.LiveCount() == 1 }, time.Second, time.Millisecond)

	node.End()
}

func TestNode_CompositeIsSortedJoin(t *testing.T) {
	node := NewNode(Config{Pools: []string{"write", "read"}}, nil)
	require.Equal(t, "read/write", node.Composite())
	require.Equal(t, []string{"read", "write"}, node.Pools())
}

func TestConnection_IdleResetsRemovedFlag(t *testing.T) {
	node := NewNode(Config{Pools: []string{"read"}}, nil)
	conn := newConnection(node, &stubConnection{})

	conn.RemoveFromPool()
	require.True(t, conn.IsRemoved())

	conn.Idle()
	require.False(t, conn.IsRemoved())
}

func TestConnection_EndIsIdempotent(t *testing.T) {
	node := NewNode(Config{Pools: []string{"read"}}, nil)
	raw := &stubConnection{}
	conn := newConnection(node, raw)

	var endCount int
	conn.OnEvents(nil, func(*Connection) { endCount++ })

	conn.End()
	conn.End()

	require.Equal(t, 1, endCount)
	require.True(t, raw.closed.Load())
}

func TestConnection_EndAfterCloseDoesNotReidle(t *testing.T) {
	node := NewNode(Config{Pools: []string{"read"}}, nil)
	conn := newConnection(node, &stubConnection{})

	var idleCount int
	conn.OnEvents(func(*Connection) { idleCount++ }, nil)

	conn.End()
	conn.Idle()

	require.Equal(t, 0, idleCount)
}
