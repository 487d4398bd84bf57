// SPDX-License-Identifier: MIT

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/loomverse/studio/internal/config"
	"github.com/loomverse/studio/internal/log"
	"github.com/loomverse/studio/internal/store"
)

func TestOpenRepositoryPrefersSQLite(t *testing.T) {
	cfg := &config.Config{DataDir: t.TempDir()}

	repo := openRepository(cfg, log.WithComponent("test"))
	t.Cleanup(func() { _ = repo.Close() })

	_, ok := repo.(*store.FallbackRepository)
	require.False(t, ok, "healthy data dir must use sqlite")
}

func TestOpenRepositoryFallsBack(t *testing.T) {
	// A directory squatting on the sqlite path makes the open fail; the
	// JSON fallback next to it stays usable.
	cfg := &config.Config{DataDir: t.TempDir()}
	require.NoError(t, os.MkdirAll(cfg.RecordsPath(), 0o755))

	repo := openRepository(cfg, log.WithComponent("test"))
	t.Cleanup(func() { _ = repo.Close() })

	_, ok := repo.(*store.FallbackRepository)
	require.True(t, ok, "sqlite open failure must fall back to the file repository")
	require.Equal(t, filepath.Join(cfg.DataDir, "recordings.json"), cfg.FallbackPath())
}

func TestOpenCacheWithoutRedis(t *testing.T) {
	c := openCache(&config.Config{}, log.WithComponent("test"))
	t.Cleanup(c.Close)

	c.Set("k", []byte("v"), 0)
	got, ok := c.Get("k")
	require.True(t, ok)
	require.Equal(t, []byte("v"), got)
}

func TestOpenCacheRedisUnreachableFallsBack(t *testing.T) {
	c := openCache(&config.Config{RedisAddr: "127.0.0.1:1"}, log.WithComponent("test"))
	t.Cleanup(c.Close)

	c.Set("k", []byte("v"), 0)
	_, ok := c.Get("k")
	require.True(t, ok, "fallback must be the in-memory cache")
}
