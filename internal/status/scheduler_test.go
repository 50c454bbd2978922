package status

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/SHIBINSOJU/SHOT-MC/internal/store"
)

// newFastStore allows millisecond intervals so timer tests finish quickly.
func newFastStore(t *testing.T) *store.Store {
	t.Helper()
	return store.New(newTestDB(t), time.Millisecond)
}

func newTestRegistry(t *testing.T, st *store.Store, sink Sink) *Registry {
	t.Helper()
	rec := NewReconciler(st, &fakeProber{status: onlineStatus(1, 10)}, sink, NewFeed(),
		time.Second, time.Second, zerolog.Nop())
	reg := NewRegistry(st, rec, zerolog.Nop())
	t.Cleanup(reg.Stop)
	return reg
}

func deliveries(sink *fakeSink) int {
	sends, edits := sink.counts()
	return sends + edits
}

func TestRegistryStartArmsPersistedSubscriptions(t *testing.T) {
	st := newFastStore(t)
	subscribe(t, st, "g1")
	require.NoError(t, st.SetInterval("g1", 25*time.Millisecond))
	sink := newFakeSink()
	reg := newTestRegistry(t, st, sink)

	require.NoError(t, reg.Start())
	require.True(t, reg.Active("g1"))

	require.Eventually(t, func() bool { return deliveries(sink) >= 2 },
		2*time.Second, 5*time.Millisecond, "timer should tick past the initial reconcile")
}

func TestRegistryUnsubscribeStopsTimer(t *testing.T) {
	st := newFastStore(t)
	subscribe(t, st, "g1")
	require.NoError(t, st.SetInterval("g1", 20*time.Millisecond))
	sink := newFakeSink()
	reg := newTestRegistry(t, st, sink)

	reg.Ensure("g1", 20*time.Millisecond)
	require.Eventually(t, func() bool { return deliveries(sink) >= 1 },
		2*time.Second, 5*time.Millisecond)

	require.NoError(t, st.ClearSubscription("g1"))

	// The timer discovers the unsubscribe on its next tick and removes itself.
	require.Eventually(t, func() bool { return !reg.Active("g1") },
		2*time.Second, 5*time.Millisecond)

	before := deliveries(sink)
	time.Sleep(100 * time.Millisecond)
	require.Equal(t, before, deliveries(sink), "a stopped timer must not keep reconciling")
}

func TestRegistryEnsureReplacesTimer(t *testing.T) {
	st := newFastStore(t)
	subscribe(t, st, "g1")
	// A long persisted interval keeps the timer quiet after the initial tick,
	// so each arm contributes exactly one delivery.
	require.NoError(t, st.SetInterval("g1", time.Hour))
	sink := newFakeSink()
	reg := newTestRegistry(t, st, sink)

	reg.Ensure("g1", time.Hour)
	require.Eventually(t, func() bool { return deliveries(sink) == 1 },
		2*time.Second, 5*time.Millisecond)

	reg.Ensure("g1", time.Hour)
	require.Eventually(t, func() bool { return deliveries(sink) == 2 },
		2*time.Second, 5*time.Millisecond)
	require.True(t, reg.Active("g1"))

	time.Sleep(100 * time.Millisecond)
	require.Equal(t, 2, deliveries(sink), "a replaced timer must not keep ticking")
}

func TestRegistryDropsTimerForMissingGuild(t *testing.T) {
	st := newFastStore(t)
	sink := newFakeSink()
	reg := newTestRegistry(t, st, sink)

	reg.Ensure("gone", 20*time.Millisecond)
	require.Eventually(t, func() bool { return !reg.Active("gone") },
		2*time.Second, 5*time.Millisecond)
	require.Equal(t, 0, deliveries(sink))
}

func TestRegistryRemove(t *testing.T) {
	st := newFastStore(t)
	subscribe(t, st, "g1")
	require.NoError(t, st.SetInterval("g1", time.Hour))
	sink := newFakeSink()
	reg := newTestRegistry(t, st, sink)

	reg.Ensure("g1", time.Hour)
	require.True(t, reg.Active("g1"))

	reg.Remove("g1")
	require.False(t, reg.Active("g1"))
}
