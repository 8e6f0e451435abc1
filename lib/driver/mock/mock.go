// Package mock is a reference driver used by tests and by cmd/dbfleet when
// its config file sets driver "mock": an in-memory connection that never
// dials a real socket,
// a query builder/compiler that round-trip a string AST into SQL, and an
// analyzer that reports a fixed schema. It exists so the cluster core is
// exercisable end-to-end without a real database, matching the contracts
// in lib/driver.
package mock

import (
	"fmt"

	"gfx.cafe/gfx/dbfleet/lib/driver"
)

func init() {
	_ = driver.Global().Register("mock", driver.Factory{
		NewConnection:    NewConnection,
		NewQueryBuilder:  func(driver.Connection) driver.QueryBuilder { return builder{} },
		NewQueryCompiler: func() driver.QueryCompiler { return compiler{} },
		NewAnalyzer:      func(driver.Connection) driver.Analyzer { return analyzer{} },
	})
}

// Connection is a fake physical connection: Query just echoes the SQL
// back into the context's Result.
type Connection struct {
	creds  driver.NodeCredentials
	closed bool
}

// NewConnection satisfies driver.ConnectionConstructor.
func NewConnection(creds driver.NodeCredentials) (driver.Connection, error) {
	return &Connection{creds: creds}, nil
}

func (c *Connection) Query(ctx *driver.QueryContext) error {
	if c.closed {
		return fmt.Errorf("mock: connection closed")
	}
	ctx.Result = ctx.SQL
	return nil
}

func (c *Connection) Close() error {
	c.closed = true
	return nil
}

// builder renders an AST already compiled to SQL text into its final
// form; the mock driver's AST is just a string, so there is nothing left
// to do beyond marking the context ready.
type builder struct{}

func (builder) Render(ctx *driver.QueryContext) error {
	ctx.MarkReady()
	return nil
}

// compiler turns a string AST into SQL by appending the statement
// terminator.
type compiler struct{}

func (compiler) Compile(ctx *driver.QueryContext) error {
	sql, ok := ctx.AST.(string)
	if !ok {
		return fmt.Errorf("mock: ast must be a string, got %T", ctx.AST)
	}
	ctx.SQL = sql + ";"
	return nil
}

// analyzer reports a fixed single-column schema for every requested name.
type analyzer struct{}

func (analyzer) Analyze(names []string) (driver.Description, error) {
	tables := make(map[string]driver.TableDescription, len(names))
	for _, name := range names {
		tables[name] = driver.TableDescription{Columns: []string{"id"}}
	}
	return driver.Description{Tables: tables}, nil
}
