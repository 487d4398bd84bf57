// SPDX-License-Identifier: MIT

package cache

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
)

func newRedis(t *testing.T) *RedisCache {
	t.Helper()
	srv := miniredis.RunT(t)
	c, err := NewRedisCache(RedisConfig{Addr: srv.Addr()})
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func TestRedisGetSet(t *testing.T) {
	c := newRedis(t)

	_, ok := c.Get("missing")
	require.False(t, ok)

	c.Set(RecordKey("rec-1"), []byte("payload"), time.Minute)
	got, ok := c.Get(RecordKey("rec-1"))
	require.True(t, ok)
	require.Equal(t, []byte("payload"), got)
}

func TestRedisDelete(t *testing.T) {
	c := newRedis(t)

	c.Set("k", []byte("v"), time.Minute)
	c.Delete("k")

	_, ok := c.Get("k")
	require.False(t, ok)
}

func TestRedisInvalidateRecord(t *testing.T) {
	c := newRedis(t)

	c.Set(RecordKey("rec-1"), []byte("a"), time.Minute)
	c.Set(RecordKey("rec-2"), []byte("b"), time.Minute)
	c.Set(ListKey(), []byte("list"), time.Minute)
	c.Set(SearchKey("demo"), []byte("results"), time.Minute)

	c.InvalidateRecord("rec-1")

	_, ok := c.Get(RecordKey("rec-1"))
	require.False(t, ok)
	_, ok = c.Get(ListKey())
	require.False(t, ok)
	_, ok = c.Get(SearchKey("demo"))
	require.False(t, ok)
	_, ok = c.Get(RecordKey("rec-2"))
	require.True(t, ok)
}

func TestRedisConnectionFailure(t *testing.T) {
	_, err := NewRedisCache(RedisConfig{Addr: "127.0.0.1:1"})
	require.Error(t, err)
}

func TestRedisStats(t *testing.T) {
	c := newRedis(t)

	c.Set("k", []byte("v"), time.Minute)
	c.Get("k")
	c.Get("missing")

	stats := c.Stats()
	require.Equal(t, int64(1), stats.Hits)
	require.Equal(t, int64(1), stats.Misses)
	require.Equal(t, int64(1), stats.Sets)
}
