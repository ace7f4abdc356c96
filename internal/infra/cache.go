package infra

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/eliteGoblin/wsl-toast/internal/domain"
)

const cacheFileName = "checks.json"

// FileCheckCache implements domain.CheckCache as a flat JSON file mapping
// probe name to its last CheckResult. The whole file is read and
// atomically rewritten; it is never patched in place.
type FileCheckCache struct {
	path   string
	logger *zap.Logger
}

// NewFileCheckCache creates a cache store under cacheDir. The directory is
// created lazily on first save.
func NewFileCheckCache(cacheDir string, logger *zap.Logger) *FileCheckCache {
	return &FileCheckCache{
		path:   filepath.Join(cacheDir, cacheFileName),
		logger: logger,
	}
}

// DefaultCacheDir returns the per-user cache directory.
func DefaultCacheDir() string {
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return filepath.Join(xdg, "wsl-toast")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".cache", "wsl-toast")
}

// Path returns the cache file location.
func (c *FileCheckCache) Path() string {
	return c.path
}

// Load reads the cache. Corruption is a cache miss, not an error: the
// checker proceeds as if no cache existed and overwrites it on next save.
func (c *FileCheckCache) Load() map[domain.CheckName]domain.CheckResult {
	data, err := os.ReadFile(c.path)
	if err != nil {
		return map[domain.CheckName]domain.CheckResult{}
	}

	var entries map[domain.CheckName]domain.CheckResult
	if err := json.Unmarshal(data, &entries); err != nil {
		if c.logger != nil {
			c.logger.Warn("check cache is corrupt, ignoring", zap.String("path", c.path), zap.Error(err))
		}
		return map[domain.CheckName]domain.CheckResult{}
	}
	if entries == nil {
		return map[domain.CheckName]domain.CheckResult{}
	}
	return entries
}

// Save overwrites the cache atomically (temp file + rename).
func (c *FileCheckCache) Save(results map[domain.CheckName]domain.CheckResult) error {
	if err := os.MkdirAll(filepath.Dir(c.path), 0700); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize check cache: %w", err)
	}

	// Unique temp name per process to avoid races between invocations.
	tmpPath := fmt.Sprintf("%s.%d.tmp", c.path, os.Getpid())
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write check cache: %w", err)
	}
	if err := os.Rename(tmpPath, c.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace check cache: %w", err)
	}
	return nil
}

// Ensure FileCheckCache implements domain.CheckCache.
var _ domain.CheckCache = (*FileCheckCache)(nil)
