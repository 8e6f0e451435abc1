package gat

import (
	"gfx.cafe/gfx/dbfleet/lib/clustererr"
	"gfx.cafe/gfx/dbfleet/lib/driver"
)

// Query compiles an AST-bearing context if it isn't already final SQL,
// acquires a connection for ctx.Pool, renders it if still not ready, then
// executes it. The connection is returned to its pool (triggering the
// normal idle-dispatch path) once Query returns, whether it succeeded or
// not.
func (c *Cluster) Query(ctx *driver.QueryContext) error {
	if ctx.Pool == "" {
		return clustererr.New(clustererr.BadInput, "query requires a pool")
	}

	if ctx.AST != nil && !ctx.IsReady() {
		compiler := c.factory.NewQueryCompiler
		if compiler == nil {
			return clustererr.New(clustererr.ConfigError, "driver does not support compiling queries")
		}
		if err := compiler().Compile(ctx); err != nil {
			return clustererr.Wrap(clustererr.BadInput, "compile failed", err)
		}
	}

	conn, err := c.GetDBConnection(ctx.Pool)
	if err != nil {
		return err
	}
	defer conn.Idle()

	if !ctx.IsReady() {
		builder := c.factory.NewQueryBuilder
		if builder == nil {
			return clustererr.New(clustererr.ConfigError, "driver does not support rendering queries")
		}
		if err := builder(conn.Raw()).Render(ctx); err != nil {
			return clustererr.Wrap(clustererr.BadInput, "render failed", err)
		}
	}

	return conn.Raw().Query(ctx)
}

// Describe always runs against the "read" pool, and always ends the
// connection afterward regardless of outcome — schema introspection
// never returns a connection to rotation, since the analyzer may have
// left it in a non-idle state (e.g. mid-transaction on some drivers).
func (c *Cluster) Describe(names []string) (driver.Description, error) {
	conn, err := c.GetConnection("read")
	if err != nil {
		return driver.Description{}, err
	}
	defer conn.End()

	newAnalyzer := c.factory.NewAnalyzer
	if newAnalyzer == nil {
		return driver.Description{}, clustererr.New(clustererr.ConfigError, "driver does not support schema analysis")
	}

	return newAnalyzer(conn.Raw()).Analyze(names)
}
