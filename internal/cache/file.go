package cache

import (
	"encoding/json"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/nodech/hsd-tools/internal/errors"
	"github.com/nodech/hsd-tools/internal/logging"
)

// IndexFileName is the name of the index file inside the cache directory.
const IndexFileName = "hs-tools-cache-info.json"

// IndexVersion is the schema version of the index file. Indexes written with
// any other version are discarded on Open.
const IndexVersion = 1

// JitterFunc returns a value in [0, span) seconds.
type JitterFunc func(span int64) int64

// Option configures a File cache.
type Option func(*File)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(f *File) {
		f.now = now
	}
}

// WithJitter overrides the expiry jitter source.
func WithJitter(jitter JitterFunc) Option {
	return func(f *File) {
		f.jitter = jitter
	}
}

// WithLogger sets the logger used for silent fallbacks.
func WithLogger(logger *logging.Logger) Option {
	return func(f *File) {
		f.logger = logger.WithComponent("cache")
	}
}

// File is the file backed Cache. It is safe for concurrent use.
type File struct {
	dir    string
	now    func() time.Time
	jitter JitterFunc
	logger *logging.Logger

	mu      sync.Mutex
	entries map[string]Entry
	dirty   bool
}

var _ Cache = (*File)(nil)

// NewFile creates a File cache rooted at dir. Call Ensure and Open before use.
func NewFile(dir string, opts ...Option) *File {
	f := &File{
		dir:     dir,
		now:     time.Now,
		jitter:  uniformJitter,
		logger:  logging.NopLogger(),
		entries: make(map[string]Entry),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func uniformJitter(span int64) int64 {
	if span <= 0 {
		return 0
	}
	return rand.Int64N(span)
}

// Dir returns the cache root directory.
func (f *File) Dir() string {
	return f.dir
}

// Enabled always reports true for a File cache.
func (f *File) Enabled() bool {
	return true
}

// Ensure creates the cache directory if it is missing.
func (f *File) Ensure() error {
	if err := os.MkdirAll(f.dir, 0755); err != nil {
		return errors.NewCacheError("failed to create cache directory", err).WithPath(f.dir)
	}
	return nil
}

// Open loads the index file. An index with another version, or one that
// cannot be read or parsed, is discarded and the cache starts cold.
func (f *File) Open() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.entries = make(map[string]Entry)
	f.dirty = false

	data, err := os.ReadFile(f.indexPath())
	if err != nil {
		if !os.IsNotExist(err) {
			f.logger.Warn("cache index unreadable, starting cold", "error", err.Error())
		}
		return nil
	}

	var idx index
	if err := json.Unmarshal(data, &idx); err != nil {
		f.logger.Warn("cache index corrupt, starting cold", "error", err.Error())
		return nil
	}
	if idx.Version != IndexVersion {
		stale := errors.NewCacheError("discarding index", errors.ErrCacheIndexVersion).WithPath(f.indexPath())
		f.logger.Info("cache index version mismatch, starting cold",
			"error", stale.Error(), "version", idx.Version, "expected", IndexVersion)
		return nil
	}

	for _, e := range idx.Entries {
		f.entries[e.ID()] = e
	}
	return nil
}

// Put writes data to <dir>/<name>/<file> and records it in the index.
func (f *File) Put(name, file string, data []byte, ttl time.Duration) (bool, error) {
	if err := validateKey(name, file); err != nil {
		return false, err
	}

	path := f.payloadPath(name, file)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return false, errors.NewCacheError("failed to create cache bucket", err).WithEntry(name, file)
	}
	if err := writeFileAtomic(path, data); err != nil {
		return false, errors.NewCacheError("failed to write payload", err).
			WithEntry(name, file).WithSeverity(errors.SeverityWarning)
	}

	now := f.now().Unix()
	entry := Entry{
		Name:      name,
		File:      file,
		CreatedAt: now,
		TimeoutAt: now + int64(ttl/time.Second),
	}

	f.mu.Lock()
	f.entries[entry.ID()] = entry
	f.dirty = true
	f.mu.Unlock()

	return true, nil
}

// Get returns the payload for name/file. Expired entries and entries whose
// payload file vanished are removed from the index.
func (f *File) Get(name, file string) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	id := entryID(name, file)
	entry, ok := f.entries[id]
	if !ok {
		return nil, false
	}

	if f.hasExpired(entry) {
		f.purgeLocked(entry)
		return nil, false
	}

	data, err := os.ReadFile(f.payloadPath(name, file))
	if err != nil {
		if os.IsNotExist(err) {
			missing := errors.NewCacheError("purging entry", errors.ErrCachePayloadMissing).WithEntry(name, file)
			f.logger.Debug("cache payload missing, purging entry", "entry", id, "error", missing.Error())
		} else {
			f.logger.Warn("cache payload unreadable, purging entry", "entry", id, "error", err.Error())
		}
		f.purgeLocked(entry)
		return nil, false
	}
	return data, true
}

// hasExpired reports whether the entry is past timeoutAt plus a random
// jitter bounded by the entry's own TTL.
func (f *File) hasExpired(e Entry) bool {
	jitter := f.jitter(e.TimeoutAt - e.CreatedAt)
	return f.now().Unix() >= e.TimeoutAt+jitter
}

func (f *File) purgeLocked(e Entry) {
	delete(f.entries, e.ID())
	f.dirty = true
	if err := os.Remove(f.payloadPath(e.Name, e.File)); err != nil && !os.IsNotExist(err) {
		f.logger.Warn("failed to remove cache payload", "entry", e.ID(), "error", err.Error())
	}
}

// Remove deletes a single entry and its payload.
func (f *File) Remove(name, file string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	entry, ok := f.entries[entryID(name, file)]
	if !ok {
		return false
	}
	f.purgeLocked(entry)
	return true
}

// Entries returns a copy of the index sorted by entry ID.
func (f *File) Entries() []Entry {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]Entry, 0, len(f.entries))
	for _, e := range f.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// Size returns the payload size of an entry in bytes, or -1 if unknown.
func (f *File) Size(e Entry) int64 {
	info, err := os.Stat(f.payloadPath(e.Name, e.File))
	if err != nil {
		return -1
	}
	return info.Size()
}

// Clear removes every indexed payload and empties the index.
func (f *File) Clear() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := len(f.entries)
	for _, e := range f.entries {
		f.purgeLocked(e)
	}
	f.dirty = true
	return n
}

// Close writes the index back if it changed since the last write.
func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.dirty {
		return nil
	}

	idx := index{Version: IndexVersion, Entries: make([]Entry, 0, len(f.entries))}
	for _, e := range f.entries {
		idx.Entries = append(idx.Entries, e)
	}
	sort.Slice(idx.Entries, func(i, j int) bool { return idx.Entries[i].ID() < idx.Entries[j].ID() })

	data, err := json.Marshal(idx)
	if err != nil {
		return errors.NewCacheError("failed to encode index", err)
	}
	if err := os.MkdirAll(f.dir, 0755); err != nil {
		return errors.NewCacheError("failed to create cache directory", err).WithPath(f.dir)
	}
	if err := writeFileAtomic(f.indexPath(), data); err != nil {
		return errors.NewCacheError("failed to write index", err).WithPath(f.indexPath())
	}

	f.dirty = false
	return nil
}

func (f *File) indexPath() string {
	return filepath.Join(f.dir, IndexFileName)
}

func (f *File) payloadPath(name, file string) string {
	return filepath.Join(f.dir, name, file)
}

func validateKey(name, file string) error {
	for _, part := range []string{name, file} {
		if part == "" || part == "." || part == ".." || strings.ContainsAny(part, `/\`) {
			return errors.NewCacheError("invalid cache key", errors.ErrInvalidInput).WithEntry(name, file)
		}
	}
	return nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return errors.Wrapf(err, "rename %s", tmpName)
	}
	return nil
}

// index is the on-disk layout:
//
//	{"version": 1, "entries": [["npm/a.json", {"name": ..., "file": ..., ...}], ...]}
type index struct {
	Version int
	Entries []Entry
}

type indexJSON struct {
	Version int                  `json:"version"`
	Entries [][2]json.RawMessage `json:"entries"`
}

func (idx index) MarshalJSON() ([]byte, error) {
	out := indexJSON{Version: idx.Version, Entries: make([][2]json.RawMessage, 0, len(idx.Entries))}
	for _, e := range idx.Entries {
		id, err := json.Marshal(e.ID())
		if err != nil {
			return nil, err
		}
		body, err := json.Marshal(e)
		if err != nil {
			return nil, err
		}
		out.Entries = append(out.Entries, [2]json.RawMessage{id, body})
	}
	return json.Marshal(out)
}

func (idx *index) UnmarshalJSON(data []byte) error {
	var in indexJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	idx.Version = in.Version
	idx.Entries = make([]Entry, 0, len(in.Entries))
	for _, pair := range in.Entries {
		var e Entry
		if err := json.Unmarshal(pair[1], &e); err != nil {
			return err
		}
		idx.Entries = append(idx.Entries, e)
	}
	return nil
}
