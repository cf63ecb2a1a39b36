package cache

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type profile struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := NewWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestGetOrLoadJSON_CachesValue(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()
	var loads int32
	load := func(context.Context) (*profile, error) {
		atomic.AddInt32(&loads, 1)
		return &profile{ID: 7, Name: "Ada"}, nil
	}

	for i := 0; i < 3; i++ {
		p, err := GetOrLoadJSON(c, ctx, "user:profile:7", time.Minute, load)
		require.NoError(t, err)
		assert.Equal(t, "Ada", p.Name)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&loads))
	assert.True(t, mr.Exists("timeclock:user:profile:7"))

	mr.FastForward(2 * time.Minute)
	_, err := GetOrLoadJSON(c, ctx, "user:profile:7", time.Minute, load)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&loads))
}

func TestDelete_ForcesReload(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()
	name := "Ada"
	load := func(context.Context) (*profile, error) { return &profile{ID: 1, Name: name}, nil }

	_, err := GetOrLoadJSON(c, ctx, "k", time.Minute, load)
	require.NoError(t, err)

	name = "Grace"
	p, err := GetOrLoadJSON(c, ctx, "k", time.Minute, load)
	require.NoError(t, err)
	assert.Equal(t, "Ada", p.Name)

	require.NoError(t, c.Delete(ctx, "k"))
	p, err = GetOrLoadJSON(c, ctx, "k", time.Minute, load)
	require.NoError(t, err)
	assert.Equal(t, "Grace", p.Name)
}

func TestGetOrLoadJSON_ErrorsAreNotCached(t *testing.T) {
	c, mr := newTestCache(t)
	boom := errors.New("boom")
	_, err := GetOrLoadJSON(c, context.Background(), "k", time.Minute, func(context.Context) (*profile, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.False(t, mr.Exists("timeclock:k"))
}

func TestNilCache_CallsThrough(t *testing.T) {
	var c *Cache
	p, err := GetOrLoadJSON(c, context.Background(), "k", time.Minute, func(context.Context) (*profile, error) {
		return &profile{ID: 3}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, uint(3), p.ID)
	assert.NoError(t, c.Delete(context.Background(), "k"))
	assert.NoError(t, c.Ping(context.Background()))
	assert.NoError(t, c.Close())
}

func TestGetOrLoadJSON_ReloadsUndecodableEntry(t *testing.T) {
	c, mr := newTestCache(t)
	require.NoError(t, mr.Set("timeclock:k", "{not json"))

	p, err := GetOrLoadJSON(c, context.Background(), "k", time.Minute, func(context.Context) (*profile, error) {
		return &profile{ID: 4, Name: "Eve"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "Eve", p.Name)

	raw, err := mr.Get("timeclock:k")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":4,"name":"Eve"}`, raw)
}
