package infra

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/eliteGoblin/wsl-toast/internal/domain"
)

func TestFileCheckCache_SaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	cache := NewFileCheckCache(dir, zap.NewNop())

	results := map[domain.CheckName]domain.CheckResult{
		domain.CheckWSL: {
			Name:      domain.CheckWSL,
			Passed:    true,
			Fatal:     true,
			Message:   "running inside WSL",
			Timestamp: time.Now().Truncate(time.Second),
		},
		domain.CheckWSLPath: {
			Name:      domain.CheckWSLPath,
			Passed:    false,
			Fatal:     false,
			Remedy:    "install wslpath",
			Timestamp: time.Now().Truncate(time.Second),
		},
	}

	require.NoError(t, cache.Save(results))

	loaded := cache.Load()
	require.Len(t, loaded, 2)
	assert.True(t, loaded[domain.CheckWSL].Passed)
	assert.Equal(t, "install wslpath", loaded[domain.CheckWSLPath].Remedy)
}

func TestFileCheckCache_MissingFileIsEmpty(t *testing.T) {
	cache := NewFileCheckCache(t.TempDir(), zap.NewNop())
	assert.Empty(t, cache.Load())
}

func TestFileCheckCache_CorruptFileIsCacheMiss(t *testing.T) {
	dir := t.TempDir()
	cache := NewFileCheckCache(dir, zap.NewNop())
	require.NoError(t, os.WriteFile(cache.Path(), []byte("{ not json"), 0600))

	assert.Empty(t, cache.Load())

	// Next save overwrites the corrupt file.
	require.NoError(t, cache.Save(map[domain.CheckName]domain.CheckResult{
		domain.CheckWSL: {Name: domain.CheckWSL, Passed: true, Timestamp: time.Now()},
	}))
	assert.Len(t, cache.Load(), 1)
}

func TestFileCheckCache_NoTempFilesLeftBehind(t *testing.T) {
	dir := t.TempDir()
	cache := NewFileCheckCache(dir, zap.NewNop())

	require.NoError(t, cache.Save(map[domain.CheckName]domain.CheckResult{}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, filepath.Base(cache.Path()), entries[0].Name())
}

func TestCheckResult_Expired(t *testing.T) {
	now := time.Now()
	fresh := domain.CheckResult{Timestamp: now.Add(-time.Hour)}
	stale := domain.CheckResult{Timestamp: now.Add(-25 * time.Hour)}

	assert.False(t, fresh.Expired(CacheTTL, now))
	assert.True(t, stale.Expired(CacheTTL, now))
}
