package keycache

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/strefethen/mcws-go/internal/mcwstest"
	"github.com/strefethen/mcws-go/pkg/mcws/endpoint"
)

func setupTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cache", "keys.db")

	pair, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { pair.Close() })

	return NewStore(pair), path
}

func sampleState() endpoint.State {
	return endpoint.State{
		Strategy:        endpoint.StrategyRemote,
		KeyID:           "ABC123",
		LocalCandidates: []string{"192.168.1.20", "10.0.0.4"},
		Remote:          "203.0.113.5",
		Port:            "52199",
		HTTPSPort:       "52200",
		HardwareIDs:     []string{"00:11:22:33:44:55"},
		LastResolvedAt:  time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC),
	}
}

func TestStore_LoadMissing(t *testing.T) {
	store, _ := setupTestStore(t)

	_, ok, err := store.Load(context.Background(), "nope")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestStore_SaveLoad(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "ABC123", sampleState()))

	got, ok, err := store.Load(ctx, "ABC123")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, endpoint.StrategyRemote, got.Strategy)
	require.Equal(t, []string{"192.168.1.20", "10.0.0.4"}, got.LocalCandidates)
	require.Equal(t, "203.0.113.5", got.Remote)
	require.Equal(t, "52200", got.HTTPSPort)
	require.Equal(t, []string{"00:11:22:33:44:55"}, got.HardwareIDs)
	require.True(t, got.LastResolvedAt.Equal(sampleState().LastResolvedAt))
	require.Equal(t, "203.0.113.5", got.Address())
}

func TestStore_SaveOverwrites(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "ABC123", sampleState()))

	updated := sampleState()
	updated.Strategy = endpoint.StrategyLocal
	updated.ActiveLocal = "10.0.0.4"
	updated.HardwareIDs = nil
	require.NoError(t, store.Save(ctx, "ABC123", updated))

	got, ok, err := store.Load(ctx, "ABC123")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, endpoint.StrategyLocal, got.Strategy)
	require.Equal(t, "10.0.0.4", got.Address())
	require.Empty(t, got.HardwareIDs)

	entries, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestStore_ListAndDelete(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return base }
	require.NoError(t, store.Save(ctx, "OLD", sampleState()))
	store.now = func() time.Time { return base.Add(time.Hour) }
	require.NoError(t, store.Save(ctx, "NEW", sampleState()))

	entries, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "NEW", entries[0].Key)
	require.Equal(t, "OLD", entries[1].Key)
	require.True(t, entries[1].UpdatedAt.Equal(base))

	require.NoError(t, store.Delete(ctx, "OLD"))
	require.NoError(t, store.Delete(ctx, "OLD"))
	_, ok, err := store.Load(ctx, "OLD")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestOpen_Reopen(t *testing.T) {
	store, path := setupTestStore(t)
	require.NoError(t, store.Save(context.Background(), "ABC123", sampleState()))

	pair, err := Open(path)
	require.NoError(t, err)
	defer pair.Close()

	got, ok, err := NewStore(pair).Load(context.Background(), "ABC123")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "52200", got.HTTPSPort)
	require.Equal(t, []string{"00:11:22:33:44:55"}, got.HardwareIDs)
}

func TestOpen_RequiresPath(t *testing.T) {
	_, err := Open("")
	require.Error(t, err)
}

func TestStore_WarmStartsResolver(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()

	fake := mcwstest.NewServer(t)
	lookup := mcwstest.NewLookupServer(t, mcwstest.LookupReply(
		"ABC123", fake.Host(), fake.Port(), []string{fake.Host()}, "", nil,
	))

	first := endpoint.New("ABC123", "", "", endpoint.WithLookupURL(lookup.LookupURL()), endpoint.WithStateStore(store))
	ok, err := first.Resolve(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 1, lookup.Hits())

	saved, found, err := store.Load(ctx, "ABC123")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, endpoint.StrategyLocal, saved.Strategy)

	second := endpoint.New("ABC123", "", "", endpoint.WithLookupURL(lookup.LookupURL()), endpoint.WithStateStore(store))
	_, err = second.Send(ctx, "Alive", nil)
	require.NoError(t, err)
	require.Equal(t, 1, lookup.Hits())
}
