package mock

import (
	"testing"

	"github.com/stretchr/testify/require"

	"gfx.cafe/gfx/dbfleet/lib/driver"
)

func TestMock_RegistersItself(t *testing.T) {
	factory, ok := driver.Global().Lookup("mock")
	require.True(t, ok)
	require.NotNil(t, factory.NewConnection)
}

func TestMock_CompileRenderQuery(t *testing.T) {
	conn, err := NewConnection(driver.NodeCredentials{Host: "localhost"})
	require.NoError(t, err)

	ctx := &driver.QueryContext{Pool: "read", AST: "select 1"}
	require.False(t, ctx.IsReady())

	require.NoError(t, compiler{}.Compile(ctx))
	require.Equal(t, "select 1;", ctx.SQL)

	require.NoError(t, builder{}.Render(ctx))
	require.True(t, ctx.IsReady())

	require.NoError(t, conn.Query(ctx))
	require.Equal(t, "select 1;", ctx.Result)
}

func TestMock_CompileRejectsNonStringAST(t *testing.T) {
	ctx := &driver.QueryContext{Pool: "read", AST: 42}
	require.Error(t, compiler{}.Compile(ctx))
}

func TestMock_QueryAfterCloseFails(t *testing.T) {
	conn, err := NewConnection(driver.NodeCredentials{})
	require.NoError(t, err)
	require.NoError(t, conn.Close())

	err = conn.Query(&driver.QueryContext{SQL: "select 1;"})
	require.Error(t, err)
}

func TestMock_AnalyzerReturnsFixedSchema(t *testing.T) {
	desc, err := analyzer{}.Analyze([]string{"users", "orders"})
	require.NoError(t, err)
	require.Len(t, desc.Tables, 2)
	require.Equal(t, []string{"id"}, desc.Tables["users"].Columns)
}
