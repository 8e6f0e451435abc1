package gat

import (
	"time"

	"gfx.cafe/gfx/dbfleet/lib/driver"
	"gfx.cafe/gfx/dbfleet/lib/pool"
)

type stubConn struct{}

func (stubConn) Query(ctx *driver.QueryContext) error {
	ctx.Result = ctx.SQL
	return nil
}

func (stubConn) Close() error { return nil }

func stubDial() driver.ConnectionConstructor {
	return func(driver.NodeCredentials) (driver.Connection, error) {
		return stubConn{}, nil
	}
}

// newTestNode starts a node with n stub connections already dialed, and
// returns it along with those connections in dial order.
func newTestNode(pools []string, n int) (*pool.Node, []*pool.Connection) {
	ch := make(chan *pool.Connection, n)
	node := pool.NewNode(pool.Config{
		Pools:                pools,
		MaxConnections:       n,
		NewConnection:        stubDial(),
		ReconnectInitialTime: time.Millisecond,
		ReconnectMaxTime:     10 * time.Millisecond,
	}, nil)
	node.OnEvents(func(_ *pool.Node, c *pool.Connection) { ch <- c }, nil)
	node.Start()

	conns := make([]*pool.Connection, n)
	for i := 0; i < n; i++ {
		conns[i] = <-ch
	}
	return node, conns
}
