package lifecycle

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"inferd/internal/engine"
)

func TestEnsureUnknownModel(t *testing.T) {
	c := newTestController(&fakeEngine{})
	err := c.EnsureEngine(context.Background(), "nope", engine.SessionParams{})
	require.True(t, IsModelNotFound(err))
	require.False(t, c.Ready())
}

func TestEnsureEmptyModelNoDefault(t *testing.T) {
	c := newTestController(&fakeEngine{})
	err := c.EnsureEngine(context.Background(), "", engine.SessionParams{})
	require.True(t, IsModelNotFound(err))
}

func TestEnsureEmptyModelUsesDefault(t *testing.T) {
	e := &fakeEngine{}
	c := newTestController(e, func(cfg *Config) { cfg.DefaultModel = "m1" })
	require.NoError(t, c.EnsureEngine(context.Background(), "", engine.SessionParams{}))
	require.True(t, c.Ready())
	require.Equal(t, "m1", c.Status().Model)
}

func TestEnsureSameModelIsNoop(t *testing.T) {
	e := &fakeEngine{}
	c := newTestController(e)
	ensureReady(t, c)
	ensureReady(t, c)
	require.Equal(t, int32(1), atomic.LoadInt32(&e.loadCalls))
}

func TestEnsureAfterResetReloads(t *testing.T) {
	e := &fakeEngine{}
	c := newTestController(e)
	ensureReady(t, c)
	require.NoError(t, c.ResetContext())
	ensureReady(t, c)
	require.Equal(t, int32(2), atomic.LoadInt32(&e.loadCalls))
	require.True(t, c.Ready())
}

func TestEnsureLoadFailure(t *testing.T) {
	boom := errors.New("mmap failed")
	c := newTestController(&fakeEngine{loadErr: boom})
	err := c.EnsureEngine(context.Background(), "m1", engine.SessionParams{})
	require.True(t, IsEngineFailure(err))
	require.ErrorIs(t, err, boom)
	require.False(t, c.Ready())
}

func TestEnsureOpenSessionFailureClosesModel(t *testing.T) {
	e := &fakeEngine{openErr: errors.New("no kv slots")}
	c := newTestController(e)
	err := c.EnsureEngine(context.Background(), "m1", engine.SessionParams{})
	require.True(t, IsEngineFailure(err))
	require.False(t, c.Ready())
	require.Equal(t, int32(1), atomic.LoadInt32(&e.models[0].closes))
}

func TestEnsureUnavailablePassesThrough(t *testing.T) {
	c := newTestController(&fakeEngine{loadErr: engine.ErrUnavailable("llama support not built")})
	err := c.EnsureEngine(context.Background(), "m1", engine.SessionParams{})
	require.True(t, IsEngineFailure(err))
	require.True(t, engine.IsUnavailable(err))
}
