package geocache_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manzanit0/geosearch/pkg/geocache"
	"github.com/manzanit0/geosearch/pkg/geocode"
)

func newRedisStore(t *testing.T) (*geocache.RedisStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return geocache.NewRedisStore(rdb), mr
}

func TestRedisStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, mr := newRedisStore(t)

	require.NoError(t, store.Save(ctx, "rev:4.00000,-75.00000", []byte(`{"address":"somewhere"}`), 10*time.Minute))
	assert.True(t, mr.Exists("geosearch:rev:4.00000,-75.00000"))

	payload, ttl, ok, err := store.Load(ctx, "rev:4.00000,-75.00000")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"address":"somewhere"}`, string(payload))
	assert.InDelta(t, (10 * time.Minute).Seconds(), ttl.Seconds(), 1)
}

func TestRedisStoreMiss(t *testing.T) {
	store, _ := newRedisStore(t)

	_, _, ok, err := store.Load(context.Background(), "fwd:nowhere")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStoreExpiry(t *testing.T) {
	ctx := context.Background()
	store, mr := newRedisStore(t)

	require.NoError(t, store.Save(ctx, "fwd:carrera 80", []byte(`{}`), 5*time.Minute))
	mr.FastForward(5*time.Minute + time.Second)

	_, _, ok, err := store.Load(ctx, "fwd:carrera 80")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCacheOverRedis(t *testing.T) {
	ctx := context.Background()
	store, _ := newRedisStore(t)

	geocache.New(geocache.WithStore(store)).PutAddress(ctx, 4.6097, -74.0817, "Carrera 7 #24-89, Bogotá")

	got, ok := geocache.New(geocache.WithStore(store)).Address(ctx, 4.609701, -74.081699)
	require.True(t, ok)
	assert.Equal(t, "Carrera 7 #24-89, Bogotá", got)

	_, ok = geocache.New(geocache.WithStore(store)).Candidates(ctx, geocode.NewSearchQuery("Carrera 7", nil))
	assert.False(t, ok)
}
