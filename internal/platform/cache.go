package platform

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"recbase/internal/logging"
)

// ProfileEntry caches one name lookup. An empty ProfileID records a miss.
type ProfileEntry struct {
	Name      string    `json:"name"`
	ProfileID string    `json:"profile_id,omitempty"`
	CachedAt  time.Time `json:"cached_at"`
}

// ProfileCache provides thread-safe access to the on-disk profile cache. A
// nil cache or one without a path is a no-op.
type ProfileCache struct {
	path    string
	logger  *slog.Logger
	mu      sync.RWMutex
	entries map[string]ProfileEntry
}

// NewProfileCache loads the cache at path. The file is created lazily on the
// first Store.
func NewProfileCache(path string, logger *slog.Logger) *ProfileCache {
	if logger == nil {
		logger = logging.NewNop()
	}
	c := &ProfileCache{
		path:    strings.TrimSpace(path),
		logger:  logging.NewComponentLogger(logger, "profile-cache"),
		entries: make(map[string]ProfileEntry),
	}
	if c.path == "" {
		return c
	}
	if err := c.load(); err != nil {
		logging.WarnWithContext(c.logger, "failed to load profile cache", "profile_cache_load_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "cache will start empty"))
	}
	return c
}

func cacheKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Lookup returns the cached entry for name.
func (c *ProfileCache) Lookup(name string) (ProfileEntry, bool) {
	key := cacheKey(name)
	if c == nil || c.path == "" || key == "" {
		return ProfileEntry{}, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[key]
	return entry, ok
}

// Store adds or replaces an entry and persists the cache.
func (c *ProfileCache) Store(entry ProfileEntry) error {
	key := cacheKey(entry.Name)
	if key == "" {
		return errors.New("player name cannot be empty")
	}
	if c == nil || c.path == "" {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry
	if err := c.save(); err != nil {
		return fmt.Errorf("persist cache: %w", err)
	}
	return nil
}

// Count returns the number of cached names.
func (c *ProfileCache) Count() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *ProfileCache) load() error {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read cache file: %w", err)
	}
	if len(data) == 0 {
		return nil
	}
	var entries []ProfileEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("parse cache file: %w", err)
	}
	for _, entry := range entries {
		if key := cacheKey(entry.Name); key != "" {
			c.entries[key] = entry
		}
	}
	c.logger.Debug("loaded profile cache",
		logging.Int("entry_count", len(c.entries)),
		logging.String("path", c.path))
	return nil
}

// save writes the cache atomically. Callers hold mu.
func (c *ProfileCache) save() error {
	entries := make([]ProfileEntry, 0, len(c.entries))
	for _, entry := range c.entries {
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		return cacheKey(entries[i].Name) < cacheKey(entries[j].Name)
	})
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal cache: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("create cache directory: %w", err)
	}
	tmpPath := c.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, c.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
