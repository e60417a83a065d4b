package cache

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nodech/hsd-tools/internal/errors"
	"github.com/nodech/hsd-tools/internal/logging"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// maxJitter always returns the largest possible jitter.
func maxJitter(span int64) int64 {
	if span <= 0 {
		return 0
	}
	return span - 1
}

func noJitter(int64) int64 { return 0 }

func newTestCache(t *testing.T, clock *fakeClock, jitter JitterFunc) *File {
	t.Helper()
	c := NewFile(filepath.Join(t.TempDir(), ".hs-tools"), WithClock(clock.Now), WithJitter(jitter))
	if err := c.Ensure(); err != nil {
		t.Fatalf("Ensure() = %v", err)
	}
	if err := c.Open(); err != nil {
		t.Fatalf("Open() = %v", err)
	}
	return c
}

func TestFile_RoundTrip(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	c := newTestCache(t, clock, maxJitter)

	ok, err := c.Put("a", "b", []byte("payload"), time.Hour)
	if err != nil || !ok {
		t.Fatalf("Put() = (%v, %v), want (true, nil)", ok, err)
	}

	got, hit := c.Get("a", "b")
	if !hit || string(got) != "payload" {
		t.Fatalf("Get() = (%q, %v), want (payload, true)", got, hit)
	}

	onDisk, err := os.ReadFile(filepath.Join(c.Dir(), "a", "b"))
	if err != nil {
		t.Fatalf("payload file missing: %v", err)
	}
	if string(onDisk) != "payload" {
		t.Errorf("payload on disk = %q", onDisk)
	}
}

func TestFile_ExpiryWithJitter(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	c := newTestCache(t, clock, maxJitter)

	if _, err := c.Put("a", "b", []byte("data"), time.Hour); err != nil {
		t.Fatal(err)
	}

	// Past timeoutAt but still inside the jitter window.
	clock.Advance(time.Hour + 30*time.Minute)
	if _, hit := c.Get("a", "b"); !hit {
		t.Fatal("entry expired before timeoutAt + jitter")
	}

	// Past timeoutAt plus the maximum jitter.
	clock.Advance(31 * time.Minute)
	if _, hit := c.Get("a", "b"); hit {
		t.Fatal("entry still served after timeoutAt + max jitter")
	}
	for _, e := range c.Entries() {
		if e.ID() == "a/b" {
			t.Fatal("expired entry still present in index")
		}
	}
	if _, err := os.Stat(filepath.Join(c.Dir(), "a", "b")); !os.IsNotExist(err) {
		t.Errorf("expired payload not removed: %v", err)
	}
}

func TestFile_JitterSpansTTL(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_000, 0)}
	var spans []int64
	c := newTestCache(t, clock, func(span int64) int64 {
		spans = append(spans, span)
		return 0
	})

	if _, err := c.Put("n", "f", []byte("x"), 90*time.Second); err != nil {
		t.Fatal(err)
	}
	c.Get("n", "f")

	if len(spans) != 1 || spans[0] != 90 {
		t.Errorf("jitter spans = %v, want [90]", spans)
	}
}

func TestFile_MissingPayloadPurges(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	c := newTestCache(t, clock, noJitter)

	if _, err := c.Put("npm", "pkg.json", []byte("{}"), time.Hour); err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(filepath.Join(c.Dir(), "npm", "pkg.json")); err != nil {
		t.Fatal(err)
	}

	if _, hit := c.Get("npm", "pkg.json"); hit {
		t.Fatal("Get() hit after payload removal")
	}
	if n := len(c.Entries()); n != 0 {
		t.Errorf("entries = %d, want 0", n)
	}
}

func TestFile_FallbacksAreLogged(t *testing.T) {
	var logs bytes.Buffer
	dir := t.TempDir()
	index := `{"version":0,"entries":[]}`
	if err := os.WriteFile(filepath.Join(dir, IndexFileName), []byte(index), 0644); err != nil {
		t.Fatal(err)
	}

	c := NewFile(dir, WithLogger(logging.NewWriterLogger(&logs, logging.LevelDebug)))
	if err := c.Open(); err != nil {
		t.Fatalf("Open() = %v", err)
	}
	if _, err := c.Put("npm", "pkg.json", []byte("{}"), time.Hour); err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(filepath.Join(dir, "npm", "pkg.json")); err != nil {
		t.Fatal(err)
	}
	if _, hit := c.Get("npm", "pkg.json"); hit {
		t.Fatal("Get() hit after payload removal")
	}

	for _, sentinel := range []error{errors.ErrCacheIndexVersion, errors.ErrCachePayloadMissing} {
		if !strings.Contains(logs.String(), sentinel.Error()) {
			t.Errorf("log missing %q:\n%s", sentinel.Error(), logs.String())
		}
	}
}

func TestFile_PersistsIndex(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	dir := filepath.Join(t.TempDir(), ".hs-tools")

	first := NewFile(dir, WithClock(clock.Now), WithJitter(noJitter))
	if err := first.Ensure(); err != nil {
		t.Fatal(err)
	}
	if err := first.Open(); err != nil {
		t.Fatal(err)
	}
	if _, err := first.Put("github-pulls", "o-r-1.json", []byte(`{"merged":true}`), Forever); err != nil {
		t.Fatal(err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close() = %v", err)
	}

	raw, err := os.ReadFile(filepath.Join(dir, IndexFileName))
	if err != nil {
		t.Fatalf("index not written: %v", err)
	}
	var layout struct {
		Version int                  `json:"version"`
		Entries [][2]json.RawMessage `json:"entries"`
	}
	if err := json.Unmarshal(raw, &layout); err != nil {
		t.Fatalf("index layout: %v", err)
	}
	if layout.Version != IndexVersion || len(layout.Entries) != 1 {
		t.Fatalf("index = %s", raw)
	}
	var id string
	if err := json.Unmarshal(layout.Entries[0][0], &id); err != nil || id != "github-pulls/o-r-1.json" {
		t.Errorf("entry id = %q (%v)", id, err)
	}

	second := NewFile(dir, WithClock(clock.Now), WithJitter(noJitter))
	if err := second.Open(); err != nil {
		t.Fatal(err)
	}
	got, hit := second.Get("github-pulls", "o-r-1.json")
	if !hit || string(got) != `{"merged":true}` {
		t.Errorf("reopened Get() = (%q, %v)", got, hit)
	}
}

func TestFile_CloseOnlyWritesWhenDirty(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	c := newTestCache(t, clock, noJitter)

	if err := c.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(c.Dir(), IndexFileName)); !os.IsNotExist(err) {
		t.Errorf("clean Close() wrote an index: %v", err)
	}
}

func TestFile_OpenDiscardsStaleIndex(t *testing.T) {
	tests := []struct {
		name  string
		index string
	}{
		{"old version", `{"version":0,"entries":[["a/b",{"name":"a","file":"b","createdAt":1,"timeoutAt":99999999999}]]}`},
		{"garbage", `not json`},
		{"wrong shape", `{"version":1,"entries":{"a/b":{}}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			if err := os.WriteFile(filepath.Join(dir, IndexFileName), []byte(tt.index), 0644); err != nil {
				t.Fatal(err)
			}
			if err := os.MkdirAll(filepath.Join(dir, "a"), 0755); err != nil {
				t.Fatal(err)
			}
			if err := os.WriteFile(filepath.Join(dir, "a", "b"), []byte("x"), 0644); err != nil {
				t.Fatal(err)
			}

			c := NewFile(dir)
			if err := c.Open(); err != nil {
				t.Fatalf("Open() = %v, want nil", err)
			}
			if _, hit := c.Get("a", "b"); hit {
				t.Error("stale index served an entry")
			}
		})
	}
}

func TestFile_RejectsUnsafeKeys(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1, 0)}
	c := newTestCache(t, clock, noJitter)

	for _, key := range [][2]string{{"..", "x"}, {"a", "../x"}, {"", "x"}, {"a", ""}, {"a/b", "c"}} {
		if ok, err := c.Put(key[0], key[1], []byte("x"), time.Hour); ok || err == nil {
			t.Errorf("Put(%q, %q) = (%v, %v), want rejection", key[0], key[1], ok, err)
		}
	}
}

func TestFile_Clear(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	c := newTestCache(t, clock, noJitter)

	for _, f := range []string{"a.json", "b.json"} {
		if _, err := c.Put("npm", f, []byte("{}"), time.Hour); err != nil {
			t.Fatal(err)
		}
	}
	if n := c.Clear(); n != 2 {
		t.Errorf("Clear() = %d, want 2", n)
	}
	if n := len(c.Entries()); n != 0 {
		t.Errorf("entries after Clear = %d", n)
	}
}

func TestNull(t *testing.T) {
	var c Cache = New("/nonexistent", false)
	if c.Enabled() {
		t.Error("Null cache reports enabled")
	}
	if err := c.Ensure(); err != nil {
		t.Error(err)
	}
	if err := c.Open(); err != nil {
		t.Error(err)
	}
	ok, err := c.Put("a", "b", []byte("x"), time.Hour)
	if ok || err != nil {
		t.Errorf("Put() = (%v, %v), want (false, nil)", ok, err)
	}
	if _, hit := c.Get("a", "b"); hit {
		t.Error("Null cache hit")
	}
	if err := c.Close(); err != nil {
		t.Error(err)
	}
}
