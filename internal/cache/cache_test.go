package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

func TestCache_SetAndGet(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(0)

	v := c.Begin(KeyTemplates)
	stored, err := c.Set(ctx, KeyTemplates, []item{{ID: 1, Name: "a"}}, v)
	require.NoError(t, err)
	assert.True(t, stored)

	var got []item
	ok, err := c.Get(ctx, KeyTemplates, &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []item{{ID: 1, Name: "a"}}, got)
}

func TestCache_OlderVersionDropped(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(0)

	slow := c.Begin(KeyTemplates)
	fast := c.Begin(KeyTemplates)

	stored, err := c.Set(ctx, KeyTemplates, []item{{ID: 2}}, fast)
	require.NoError(t, err)
	assert.True(t, stored)

	stored, err = c.Set(ctx, KeyTemplates, []item{{ID: 1}}, slow)
	require.NoError(t, err)
	assert.False(t, stored, "older response must not overwrite newer one")

	var got []item
	_, err = c.Get(ctx, KeyTemplates, &got)
	require.NoError(t, err)
	assert.Equal(t, []item{{ID: 2}}, got)
}

func TestCache_WriteBegunBeforeInvalidateDropped(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(0)

	inFlight := c.Begin(KeyTemplates)
	require.NoError(t, c.Invalidate(ctx, KeyTemplates))

	stored, err := c.Set(ctx, KeyTemplates, []item{{ID: 1}}, inFlight)
	require.NoError(t, err)
	assert.False(t, stored)

	var got []item
	ok, err := c.Get(ctx, KeyTemplates, &got)
	require.NoError(t, err)
	assert.False(t, ok)

	// A fetch started after the invalidation is accepted
	after := c.Begin(KeyTemplates)
	stored, err = c.Set(ctx, KeyTemplates, []item{{ID: 3}}, after)
	require.NoError(t, err)
	assert.True(t, stored)
}

func TestCache_InvalidatePrefix(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(0)

	newKey := ClientsKey("new", 50, 0)
	allKey := ClientsKey("", 1000, 0)

	for _, key := range []string{newKey, allKey, KeySettings} {
		_, err := c.Set(ctx, key, []item{{ID: 1}}, c.Begin(key))
		require.NoError(t, err)
	}
	inFlight := c.Begin(newKey)

	require.NoError(t, c.InvalidatePrefix(ctx, PrefixClients))

	var got []item
	for _, key := range []string{newKey, allKey} {
		ok, err := c.Get(ctx, key, &got)
		require.NoError(t, err)
		assert.False(t, ok, key)
	}
	ok, err := c.Get(ctx, KeySettings, &got)
	require.NoError(t, err)
	assert.True(t, ok, "unrelated keys survive a prefix invalidation")

	stored, err := c.Set(ctx, newKey, []item{{ID: 9}}, inFlight)
	require.NoError(t, err)
	assert.False(t, stored)
}

func TestLoad(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(0)

	calls := 0
	fetch := func(ctx context.Context) ([]item, error) {
		calls++
		return []item{{ID: calls}}, nil
	}

	first, err := Load(ctx, c, KeyTemplates, fetch)
	require.NoError(t, err)
	second, err := Load(ctx, c, KeyTemplates, fetch)
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.Equal(t, first, second)

	require.NoError(t, c.Invalidate(ctx, KeyTemplates))
	third, err := Load(ctx, c, KeyTemplates, fetch)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, []item{{ID: 2}}, third)
}

func TestLoad_FetchErrorNotCached(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(0)
	boom := errors.New("boom")

	_, err := Load(ctx, c, KeySettings, func(ctx context.Context) (item, error) {
		return item{}, boom
	})
	assert.ErrorIs(t, err, boom)

	var got item
	ok, err := c.Get(ctx, KeySettings, &got)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLoad_NilCacheAlwaysFetches(t *testing.T) {
	calls := 0
	fetch := func(ctx context.Context) (int, error) {
		calls++
		return calls, nil
	}

	_, err := Load[int](context.Background(), nil, KeySettings, fetch)
	require.NoError(t, err)
	_, err = Load[int](context.Background(), nil, KeySettings, fetch)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)

	var c *Cache
	assert.NoError(t, c.Invalidate(context.Background(), KeySettings))
	assert.NoError(t, c.InvalidatePrefix(context.Background(), PrefixClients))
}

func TestMemoryStore_TTL(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	store := NewMemoryStore()
	store.now = func() time.Time { return now }

	require.NoError(t, store.Set(ctx, "k", []byte(`1`), time.Minute))

	_, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)

	now = now.Add(time.Minute)
	_, ok, err = store.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStore(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)

	store := NewRedisStoreFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	defer store.Close()

	c := New(store, time.Minute)

	for _, key := range []string{ClientsKey("new", 50, 0), ClientsKey("converted", 50, 0), KeyTemplates} {
		_, err := c.Set(ctx, key, []item{{ID: 1, Name: key}}, c.Begin(key))
		require.NoError(t, err)
	}
	assert.True(t, mr.Exists("leadwatch:templates"))

	var got []item
	ok, err := c.Get(ctx, KeyTemplates, &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "templates", got[0].Name)

	require.NoError(t, c.InvalidatePrefix(ctx, PrefixClients))
	assert.False(t, mr.Exists("leadwatch:clients:new:50:0"))
	assert.False(t, mr.Exists("leadwatch:clients:converted:50:0"))
	assert.True(t, mr.Exists("leadwatch:templates"))

	mr.FastForward(2 * time.Minute)
	ok, err = c.Get(ctx, KeyTemplates, &got)
	require.NoError(t, err)
	assert.False(t, ok, "entries expire after the TTL")
}

func TestCache_CorruptEntryIsMiss(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Set(ctx, KeySettings, []byte(`{not json`), 0))

	c := New(store, 0)
	var got item
	ok, err := c.Get(ctx, KeySettings, &got)
	assert.Error(t, err)
	assert.False(t, ok)

	_, present, _ := store.Get(ctx, KeySettings)
	assert.False(t, present)
}
