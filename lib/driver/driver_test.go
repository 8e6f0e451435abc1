package driver

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistry_RegisterAndLookup(t *testing.T) {
	r := NewRegistry()

	factory := Factory{NewConnection: func(NodeCredentials) (Connection, error) { return nil, nil }}
	require.NoError(t, r.Register("fake", factory))

	got, ok := r.Lookup("fake")
	require.True(t, ok)
	require.NotNil(t, got.NewConnection)

	_, ok = r.Lookup("missing")
	require.False(t, ok)
}

func TestRegistry_DuplicateRegisterFails(t *testing.T) {
	r := NewRegistry()
	factory := Factory{NewConnection: func(NodeCredentials) (Connection, error) { return nil, nil }}

	require.NoError(t, r.Register("fake", factory))
	require.Error(t, r.Register("fake", factory))
}

func TestQueryContext_ReadyFlag(t *testing.T) {
	ctx := &QueryContext{Pool: "read"}
	require.False(t, ctx.IsReady())
	ctx.MarkReady()
	require.True(t, ctx.IsReady())
}
