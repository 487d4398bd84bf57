// SPDX-License-Identifier: MIT

package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemoryCacheGetSet(t *testing.T) {
	c := NewMemoryCache(0)
	defer c.Close()

	_, ok := c.Get("missing")
	require.False(t, ok)

	c.Set(RecordKey("rec-1"), []byte("payload"), time.Minute)
	got, ok := c.Get(RecordKey("rec-1"))
	require.True(t, ok)
	require.Equal(t, []byte("payload"), got)
}

func TestMemoryCacheExpiry(t *testing.T) {
	c := NewMemoryCache(0)
	defer c.Close()

	c.Set("k", []byte("v"), 10*time.Millisecond)
	time.Sleep(30 * time.Millisecond)

	_, ok := c.Get("k")
	require.False(t, ok)
}

func TestMemoryCacheJanitorEvicts(t *testing.T) {
	c := NewMemoryCache(10 * time.Millisecond)
	defer c.Close()

	c.Set("k", []byte("v"), time.Millisecond)

	require.Eventually(t, func() bool {
		return c.Stats().Evictions >= 1 && c.Stats().CurrentSize == 0
	}, 2*time.Second, 5*time.Millisecond)
}

func TestInvalidateRecordDropsDerivedEntries(t *testing.T) {
	c := NewMemoryCache(0)
	defer c.Close()

	c.Set(RecordKey("rec-1"), []byte("a"), time.Minute)
	c.Set(RecordKey("rec-2"), []byte("b"), time.Minute)
	c.Set(ListKey(), []byte("list"), time.Minute)
	c.Set(SearchKey("dashboard"), []byte("results"), time.Minute)

	c.InvalidateRecord("rec-1")

	_, ok := c.Get(RecordKey("rec-1"))
	require.False(t, ok)
	_, ok = c.Get(ListKey())
	require.False(t, ok)
	_, ok = c.Get(SearchKey("dashboard"))
	require.False(t, ok)

	// unrelated records survive
	_, ok = c.Get(RecordKey("rec-2"))
	require.True(t, ok)
}

func TestStatsCounters(t *testing.T) {
	c := NewMemoryCache(0)
	defer c.Close()

	c.Set("k", []byte("v"), time.Minute)
	c.Get("k")
	c.Get("missing")

	stats := c.Stats()
	require.Equal(t, int64(1), stats.Hits)
	require.Equal(t, int64(1), stats.Misses)
	require.Equal(t, int64(1), stats.Sets)
	require.Equal(t, 1, stats.CurrentSize)
}

func TestSearchKeyIsCaseInsensitive(t *testing.T) {
	require.Equal(t, SearchKey("dashboard"), SearchKey("DashBoard"))
}

func TestMemoryCacheZeroTTLNeverExpires(t *testing.T) {
	c := NewMemoryCache(0)
	defer c.Close()

	c.Set("k", []byte("v"), 0)
	time.Sleep(20 * time.Millisecond)

	_, ok := c.Get("k")
	require.True(t, ok)
}
