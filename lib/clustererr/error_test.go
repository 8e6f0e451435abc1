package clustererr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIs_MatchesOwnKind(t *testing.T) {
	err := New(NoServer, "no live node")
	require.True(t, Is(err, NoServer))
	require.False(t, Is(err, Timeout))
}

func TestIs_WalksWrapChain(t *testing.T) {
	cause := New(BadInput, "malformed ast")
	wrapped := Wrap(Internal, "compile step failed", cause)

	require.True(t, Is(wrapped, Internal))
	require.True(t, Is(wrapped, BadInput))
	require.False(t, Is(wrapped, Timeout))
}

func TestIs_FlattenedStandardErrorDoesNotMatch(t *testing.T) {
	base := New(QueueFull, "queue is full")
	wrapped := errors.New("outer: " + base.Error())

	require.False(t, Is(wrapped, QueueFull))
}

func TestError_MessageIncludesCause(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := Wrap(DriverLoadError, "failed to dial", cause)

	require.Contains(t, err.Error(), "failed to dial")
	require.Contains(t, err.Error(), "connection refused")
	require.ErrorIs(t, err, cause)
}
