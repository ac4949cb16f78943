// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package cache stores raw provider responses on disk so repeated runs
// within the TTL window reuse them without network calls.
//
// Each entry is one file named after the MD5 digest of the request URL.
// The file modification time is the TTL reference point.
package cache

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/pdiddy/library-querier/internal/fingerprint"
)

const (
	// DefaultTTL is how long an entry is served after it was written.
	DefaultTTL = 24 * time.Hour

	filePrefix = "library-querier-"
	fileSuffix = ".tmp"
)

// Cache is a TTL-gated, content-addressed response store.
type Cache struct {
	// Dir holds the entry files. Empty means os.TempDir().
	Dir string

	// TTL is the entry lifetime. Zero means DefaultTTL.
	TTL time.Duration

	// Now returns the current time. Nil means time.Now.
	Now func() time.Time
}

// New returns a cache rooted at dir with the given TTL.
func New(dir string, ttl time.Duration) *Cache {
	return &Cache{Dir: dir, TTL: ttl}
}

// Key derives the cache key for an outgoing request URL.
func Key(url string) string {
	return fingerprint.Hash(url)
}

// Path returns the file that backs key.
func (c *Cache) Path(key string) string {
	return filepath.Join(c.Root(), filePrefix+key+fileSuffix)
}

// Get returns the body stored under key when it exists and is younger
// than the TTL. Expired, missing and unreadable entries are all absent.
func (c *Cache) Get(key string) ([]byte, bool) {
	path := c.Path(key)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return nil, false
	}
	if c.expired(info.ModTime()) {
		return nil, false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}
	return data, true
}

// Put persists body under key. The body is written to a sibling temp file
// and renamed into place, so concurrent writers of one key never leave a
// partially written entry behind.
func (c *Cache) Put(key string, body []byte) error {
	dir := c.Root()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrapf(err, "creating cache directory %s", dir)
	}

	tmp, err := os.CreateTemp(dir, filePrefix+key+"-*.part")
	if err != nil {
		return eris.Wrap(err, "creating cache temp file")
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(body); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return eris.Wrap(err, "writing cache entry")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return eris.Wrap(err, "closing cache entry")
	}
	if err := os.Rename(tmpName, c.Path(key)); err != nil {
		os.Remove(tmpName)
		return eris.Wrap(err, "renaming cache entry")
	}
	return nil
}

// Prune removes expired entries and returns how many were deleted.
func (c *Cache) Prune() (int, error) {
	return c.remove(func(info os.FileInfo) bool { return c.expired(info.ModTime()) })
}

// Clear removes every entry and returns how many were deleted.
func (c *Cache) Clear() (int, error) {
	return c.remove(func(os.FileInfo) bool { return true })
}

func (c *Cache) remove(match func(os.FileInfo) bool) (int, error) {
	entries, err := os.ReadDir(c.Root())
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, eris.Wrapf(err, "reading cache directory %s", c.Root())
	}

	removed := 0
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		info, err := entry.Info()
		if err != nil || !match(info) {
			continue
		}
		if err := os.Remove(filepath.Join(c.Root(), name)); err != nil && !os.IsNotExist(err) {
			return removed, eris.Wrapf(err, "removing cache entry %s", name)
		}
		removed++
	}
	return removed, nil
}

func (c *Cache) expired(mod time.Time) bool {
	return c.now().Sub(mod) >= c.ttl()
}

// Root returns the directory holding entries.
func (c *Cache) Root() string {
	if c.Dir == "" {
		return os.TempDir()
	}
	return c.Dir
}

func (c *Cache) ttl() time.Duration {
	if c.TTL <= 0 {
		return DefaultTTL
	}
	return c.TTL
}

func (c *Cache) now() time.Time {
	if c.Now == nil {
		return time.Now()
	}
	return c.Now()
}
