package cache

import (
	"time"
)

// DefaultTTL is the time-to-live used when a caller has no better value.
const DefaultTTL = 2 * time.Hour

// Forever is a TTL for responses that never change once observed
// (for example merged pull requests).
const Forever = 100 * 365 * 24 * time.Hour

// Cache is the capability shared by the file backed cache and the Null cache.
type Cache interface {
	// Ensure creates the cache directory if it is missing.
	Ensure() error
	// Open loads the index. A missing, unreadable, or stale-versioned index
	// starts a cold cache without error.
	Open() error
	// Put stores data under name/file for ttl. It reports false when
	// caching is disabled.
	Put(name, file string, data []byte, ttl time.Duration) (bool, error)
	// Get returns the payload for name/file, or false when absent or
	// expired. Expired entries and entries whose payload vanished are purged.
	Get(name, file string) ([]byte, bool)
	// Close persists the index if it changed since the last write.
	Close() error
	// Enabled reports whether Put can ever store anything.
	Enabled() bool
}

// Entry is the index metadata for one cached payload. Times are epoch seconds.
type Entry struct {
	Name      string `json:"name"`
	File      string `json:"file"`
	CreatedAt int64  `json:"createdAt"`
	TimeoutAt int64  `json:"timeoutAt"`
}

// ID returns the entry key, name + "/" + file.
func (e Entry) ID() string {
	return entryID(e.Name, e.File)
}

// TTL returns the configured lifetime of the entry.
func (e Entry) TTL() time.Duration {
	return time.Duration(e.TimeoutAt-e.CreatedAt) * time.Second
}

func entryID(name, file string) string {
	return name + "/" + file
}

// New returns a File cache rooted at dir when enabled, otherwise Null.
func New(dir string, enabled bool, opts ...Option) Cache {
	if !enabled {
		return Null{}
	}
	return NewFile(dir, opts...)
}

// Null is the disabled cache. Every read misses and every write is dropped.
type Null struct{}

var _ Cache = Null{}

func (Null) Ensure() error { return nil }

func (Null) Open() error { return nil }

func (Null) Put(string, string, []byte, time.Duration) (bool, error) { return false, nil }

func (Null) Get(string, string) ([]byte, bool) { return nil, false }

func (Null) Close() error { return nil }

func (Null) Enabled() bool { return false }
