package gat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"gfx.cafe/gfx/dbfleet/lib/clustererr"
	"gfx.cafe/gfx/dbfleet/lib/driver"
	_ "gfx.cafe/gfx/dbfleet/lib/driver/mock"
	"gfx.cafe/gfx/dbfleet/lib/pool"
)

func newMockCluster(t *testing.T) *Cluster {
	return newTestCluster(t, func(cfg *Config) {
		cfg.Driver = "mock"
		cfg.Registry = driver.Global()
	})
}

func TestCluster_QueryCompilesAndRenders(t *testing.T) {
	c := newMockCluster(t)
	_, err := c.AddNode(pool.Config{MaxConnections: 1, Pools: []string{"read"}})
	require.NoError(t, err)

	ctx := &driver.QueryContext{Pool: "read", AST: "select 1"}
	require.NoError(t, c.Query(ctx))
	require.Equal(t, "select 1;", ctx.Result)

	require.Eventually(t, func() bool { return c.Stats().IdleByPool["read"] == 1 }, time.Second, time.Millisecond)
}

func TestCluster_QuerySkipsCompileRenderWhenAlreadyReady(t *testing.T) {
	c := newMockCluster(t)
	_, err := c.AddNode(pool.Config{MaxConnections: 1, Pools: []string{"read"}})
	require.NoError(t, err)

	ctx := &driver.QueryContext{Pool: "read", SQL: "select 2;"}
	ctx.MarkReady()

	require.NoError(t, c.Query(ctx))
	require.Equal(t, "select 2;", ctx.Result)
}

func TestCluster_QueryFailsWithoutAPool(t *testing.T) {
	c := newMockCluster(t)
	err := c.Query(&driver.QueryContext{AST: "select 1"})
	require.True(t, clustererr.Is(err, clustererr.BadInput))
}

func TestCluster_QueryReturnsConnectionToRotationOnSuccess(t *testing.T) {
	c := newMockCluster(t)
	_, err := c.AddNode(pool.Config{MaxConnections: 1, Pools: []string{"read"}})
	require.NoError(t, err)

	require.NoError(t, c.Query(&driver.QueryContext{Pool: "read", AST: "select 1"}))
	require.Eventually(t, func() bool { return c.Stats().IdleByPool["read"] == 1 }, time.Second, time.Millisecond)
}

func TestCluster_DescribeReturnsFixedSchemaAndEndsConnection(t *testing.T) {
	c := newMockCluster(t)
	_, err := c.AddNode(pool.Config{MaxConnections: 1, Pools: []string{"read"}})
	require.NoError(t, err)

	desc, err := c.Describe([]string{"users"})
	require.NoError(t, err)
	require.Equal(t, []string{"id"}, desc.Tables["users"].Columns)

	// Describe always ends the connection rather than idling it, so a
	// fresh one must be dialed to replace it.
	require.Eventually(t, func() bool { return c.Stats().IdleByPool["read"] == 1 }, time.Second, time.Millisecond)
}

func TestCluster_DescribeFailsWhenNoNodeServesRead(t *testing.T) {
	c := newMockCluster(t)
	_, err := c.Describe([]string{"users"})
	require.True(t, clustererr.Is(err, clustererr.NoServer))
}
