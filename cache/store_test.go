package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Fahmiduzzaman2003/MyPortfolio-sub001/logger"
	"github.com/Fahmiduzzaman2003/MyPortfolio-sub001/types"
)

func TestStore_GetBeforeAndAfterTTL(t *testing.T) {
	clock := newFakeClock()
	store := NewStore(nopLogger(), nil, WithClock(clock.Now))
	ctx := context.Background()

	store.Set(ctx, "api:/profile", []byte(`{"name":"x"}`), 10*time.Second)

	value, ok := store.Get(ctx, "api:/profile")
	require.True(t, ok)
	assert.Equal(t, `{"name":"x"}`, string(value))

	clock.Advance(11 * time.Second)

	_, ok = store.Get(ctx, "api:/profile")
	assert.False(t, ok)
	assert.Equal(t, 0, store.Len(), "expired entry is evicted on read")
}

func TestStore_NeverSetKeyMisses(t *testing.T) {
	store := NewStore(nopLogger(), nil)

	_, ok := store.Get(context.Background(), "api:/nothing")
	assert.False(t, ok)

	_, ok = store.Get(context.Background(), "")
	assert.False(t, ok)
}

func TestStore_NonPositiveTTLUsesDefault(t *testing.T) {
	clock := newFakeClock()
	store := NewStore(nopLogger(), nil, WithClock(clock.Now))
	ctx := context.Background()

	store.Set(ctx, "k", []byte("v"), 0)
	store.Set(ctx, "n", []byte("v"), -time.Second)

	clock.Advance(299 * time.Second)
	_, ok := store.Get(ctx, "k")
	assert.True(t, ok)

	clock.Advance(2 * time.Second)
	_, ok = store.Get(ctx, "k")
	assert.False(t, ok)
	_, ok = store.Get(ctx, "n")
	assert.False(t, ok)
}

func TestStore_SetCopiesValue(t *testing.T) {
	store := NewStore(nopLogger(), nil)
	ctx := context.Background()

	buf := []byte("original")
	store.Set(ctx, "k", buf, time.Minute)
	copy(buf, "mutated!")

	value, ok := store.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, "original", string(value))
}

func TestStore_DeletePatternBothTiers(t *testing.T) {
	external := newFakeExternal()
	store := NewStore(nopLogger(), external)
	ctx := context.Background()

	for _, key := range []string{"api:/a", "api:/b", "other:/c"} {
		store.Set(ctx, key, []byte(key), time.Minute)
	}

	store.Delete(ctx, "api:*")

	assert.False(t, external.has("api:/a"))
	assert.False(t, external.has("api:/b"))
	assert.True(t, external.has("other:/c"))
	assert.Equal(t, []string{"api:*"}, external.globSeen)

	// Take the external tier away to inspect the local one alone.
	external.ready = false
	_, ok := store.Get(ctx, "api:/a")
	assert.False(t, ok)
	_, ok = store.Get(ctx, "api:/b")
	assert.False(t, ok)
	_, ok = store.Get(ctx, "other:/c")
	assert.True(t, ok)
}

func TestStore_DeletePatternIsLiteralOutsideStar(t *testing.T) {
	store := NewStore(nopLogger(), nil)
	ctx := context.Background()

	store.Set(ctx, "api:/a?b=1", []byte("1"), time.Minute)
	store.Set(ctx, "api:/axb=1", []byte("2"), time.Minute)

	store.Delete(ctx, "api:/a?b*")

	_, ok := store.Get(ctx, "api:/a?b=1")
	assert.False(t, ok)
	_, ok = store.Get(ctx, "api:/axb=1")
	assert.True(t, ok)
}

func TestStore_DeleteSingleKey(t *testing.T) {
	external := newFakeExternal()
	store := NewStore(nopLogger(), external)
	ctx := context.Background()

	store.Set(ctx, "api:/a", []byte("a"), time.Minute)
	store.Set(ctx, "api:/ab", []byte("ab"), time.Minute)
	store.Delete(ctx, "api:/a")

	assert.False(t, external.has("api:/a"))
	assert.True(t, external.has("api:/ab"))
	assert.Equal(t, 1, store.Len())
}

func TestStore_ClearThenMiss(t *testing.T) {
	external := newFakeExternal()
	store := NewStore(nopLogger(), external)
	ctx := context.Background()

	store.Set(ctx, "a", []byte("1"), time.Minute)
	store.Set(ctx, "b", []byte("2"), time.Minute)
	store.Clear(ctx)

	_, ok := store.Get(ctx, "a")
	assert.False(t, ok)
	assert.Equal(t, 0, store.Len())
	assert.False(t, external.has("b"))
}

func TestStore_ExternalHitWins(t *testing.T) {
	external := newFakeExternal()
	store := NewStore(nopLogger(), external)
	ctx := context.Background()

	store.Set(ctx, "k", []byte("local"), time.Minute)
	external.data["k"] = []byte("shared")

	value, ok := store.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, "shared", string(value))
}

func TestStore_ExternalMissFallsThroughToLocal(t *testing.T) {
	external := newFakeExternal()
	store := NewStore(nopLogger(), external)
	ctx := context.Background()

	store.Set(ctx, "k", []byte("v"), time.Minute)
	delete(external.data, "k")

	value, ok := store.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, "v", string(value))
}

func TestStore_ExternalFailureFallsBackToLocal(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	external := newFakeExternal()
	external.failing = true
	store := NewStore(logger.NewZapWrapper(zap.New(core)), external)
	ctx := context.Background()

	store.Set(ctx, "k", []byte("v"), time.Minute)

	value, ok := store.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, "v", string(value))

	store.Delete(ctx, "api:*")
	store.Clear(ctx)

	assert.Equal(t, 4, logs.FilterMessage("External cache unavailable, using local tier").Len())
}

func TestStore_NotReadyExternalIsNotCalled(t *testing.T) {
	external := newFakeExternal()
	external.ready = false
	store := NewStore(nopLogger(), external)
	ctx := context.Background()

	store.Set(ctx, "k", []byte("v"), time.Minute)
	_, ok := store.Get(ctx, "k")

	assert.True(t, ok)
	assert.Equal(t, 0, external.callCount())
}

func TestStore_SweepEvictsOnlyExpired(t *testing.T) {
	clock := newFakeClock()
	store := NewStore(nopLogger(), nil, WithClock(clock.Now))
	ctx := context.Background()

	store.Set(ctx, "short", []byte("1"), time.Second)
	store.Set(ctx, "long", []byte("2"), time.Hour)

	clock.Advance(2 * time.Second)

	assert.Equal(t, 2, store.Len(), "expiry is lazy until swept")
	assert.Equal(t, 1, store.Sweep())
	assert.Equal(t, 1, store.Len())
}

func TestStore_JanitorSweepsOnInterval(t *testing.T) {
	store := NewStore(nopLogger(), nil, WithSweepInterval(10*time.Millisecond))
	require.NoError(t, store.Start())
	t.Cleanup(func() { _ = store.Stop() })

	store.Set(context.Background(), "k", []byte("v"), time.Millisecond)

	deadline := time.Now().Add(2 * time.Second)
	for store.Len() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("janitor did not evict expired entry")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestStore_SetAsyncThenDrain(t *testing.T) {
	external := newFakeExternal()
	store := NewStore(nopLogger(), external)

	for i := 0; i < 20; i++ {
		store.SetAsync("api:/profile", []byte("body"), time.Minute)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, store.Drain(ctx))

	value, ok := store.Get(context.Background(), "api:/profile")
	require.True(t, ok)
	assert.Equal(t, "body", string(value))
	assert.True(t, external.has("api:/profile"))
}

func TestStore_SetAsyncRecoversPanic(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	external := newFakeExternal()
	external.panicky = true
	store := NewStore(logger.NewZapWrapper(zap.New(core)), external)

	store.SetAsync("k", []byte("v"), time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, store.Drain(ctx))

	assert.Equal(t, 1, logs.FilterMessage("Detached cache write panicked").Len())
}

func TestStore_DrainHonoursContext(t *testing.T) {
	store := NewStore(nopLogger(), nil)
	store.tasks.add()
	defer store.tasks.done()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := store.Drain(ctx)
	assert.ErrorIs(t, err, types.ErrCacheDrainTimeout)
}

func TestStore_Lifecycle(t *testing.T) {
	store := NewStore(nopLogger(), nil)

	require.NoError(t, store.Start())
	assert.True(t, store.IsRunning())
	assert.ErrorIs(t, store.Start(), types.ErrCacheIsRunning)

	require.NoError(t, store.Stop())
	assert.False(t, store.IsRunning())
	assert.ErrorIs(t, store.Stop(), types.ErrCacheNotRunning)

	require.NoError(t, store.Start(), "janitor can be restarted")
	require.NoError(t, store.Stop())
}

type lifecycleExternal struct {
	*fakeExternal
	running bool
	starts  int
	stops   int
}

func (l *lifecycleExternal) Start() error {
	l.running = true
	l.starts++
	return nil
}

func (l *lifecycleExternal) Stop() error {
	l.running = false
	l.stops++
	return nil
}

func (l *lifecycleExternal) IsRunning() bool {
	return l.running
}

func TestStore_LeavesForeignExternalLifecycleAlone(t *testing.T) {
	external := &lifecycleExternal{fakeExternal: newFakeExternal()}
	require.NoError(t, external.Start())

	store := NewStore(nopLogger(), external)
	require.NoError(t, store.Start())
	require.NoError(t, store.Stop())

	assert.True(t, external.IsRunning())
	assert.Equal(t, 1, external.starts)
	assert.Zero(t, external.stops)
}

func TestStore_StopsExternalItStarted(t *testing.T) {
	external := &lifecycleExternal{fakeExternal: newFakeExternal()}

	store := NewStore(nopLogger(), external)
	require.NoError(t, store.Start())
	assert.True(t, external.IsRunning())

	require.NoError(t, store.Stop())
	assert.False(t, external.IsRunning())
	assert.Equal(t, 1, external.stops)
}
