// Package lock implements the cross-process advisory lock that serializes
// hs-tools invocations against one working directory.
//
// The lock is a zero-byte file created with O_CREATE|O_EXCL. While held, a
// heartbeat refreshes its modification time so that another process can
// tell a live holder from an abandoned lock.
package lock

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/nodech/hsd-tools/internal/errors"
	"github.com/nodech/hsd-tools/internal/logging"
)

// FileName is the lock file name inside the state directory.
const FileName = ".lock"

// Defaults for Options fields left zero.
const (
	DefaultStaleAfter = 30 * time.Second
	DefaultRetries    = 3
	DefaultRetryDelay = 2 * time.Second
	DefaultHeartbeat  = 5 * time.Second
)

// Options controls acquisition and heartbeat.
type Options struct {
	// StaleAfter is how old the lock file's mtime must be before the lock
	// is considered abandoned and removed.
	StaleAfter time.Duration
	// Retries is the number of extra acquisition attempts. Negative means none.
	Retries int
	// RetryDelay bounds the wait for the holder to release between attempts.
	RetryDelay time.Duration
	// Heartbeat is the refresh interval while the lock is held.
	Heartbeat time.Duration

	Logger *logging.Logger
	Now    func() time.Time
}

func (o Options) withDefaults() Options {
	if o.StaleAfter <= 0 {
		o.StaleAfter = DefaultStaleAfter
	}
	if o.Retries == 0 {
		o.Retries = DefaultRetries
	}
	if o.Retries < 0 {
		o.Retries = 0
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = DefaultRetryDelay
	}
	if o.Heartbeat <= 0 {
		o.Heartbeat = DefaultHeartbeat
	}
	if o.Logger == nil {
		o.Logger = logging.NopLogger()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Lock is a held lock.
type Lock struct {
	path   string
	info   os.FileInfo
	logger *logging.Logger
	now    func() time.Time

	stop chan struct{}
	done chan struct{}
	once sync.Once

	mu   sync.Mutex
	lost bool
}

// errHeld marks an attempt that found a live lock.
var errHeld = errors.New("lock held")

// Acquire takes the lock in dir, creating dir if needed. A stale lock is
// removed and the attempt repeated. A live lock is waited on for up to
// RetryDelay per retry; when retries run out a *errors.LockError naming the
// lock path is returned.
func Acquire(ctx context.Context, dir string, opts Options) (*Lock, error) {
	opts = opts.withDefaults()
	logger := opts.Logger.WithComponent("lock")
	path := filepath.Join(dir, FileName)

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.NewLockError("failed to create lock directory", err).WithPath(path)
	}

	attempts := opts.Retries + 1
	attempt := 0
	var info os.FileInfo

	err := retry.Do(
		func() error {
			attempt++
			fi, err := create(path)
			if err == nil {
				info = fi
				return nil
			}
			if !os.IsExist(err) {
				return retry.Unrecoverable(err)
			}

			if stale(path, opts.StaleAfter, opts.Now()) {
				logger.Warn("removing stale lock", "path", path)
				if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
					return retry.Unrecoverable(err)
				}
				if fi, err := create(path); err == nil {
					info = fi
					return nil
				}
			}

			if attempt < attempts {
				waitRelease(ctx, path, opts.RetryDelay)
			}
			return errHeld
		},
		retry.Attempts(uint(attempts)),
		retry.DelayType(retry.FixedDelay),
		retry.Delay(0),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			logger.Debug("lock busy, retrying", "path", path, "attempt", n+1)
		}),
	)

	if ctxErr := ctx.Err(); ctxErr != nil && info == nil {
		return nil, errors.NewLockError("lock acquisition interrupted", ctxErr).WithPath(path)
	}
	if err != nil {
		if errors.Is(err, errHeld) {
			logger.Error("failed to acquire lock", "path", path, "attempts", attempts)
			return nil, errors.NewLockError("another hs-tools process holds the lock", errors.ErrLocked).WithPath(path)
		}
		return nil, errors.NewLockError("failed to create lock file", err).WithPath(path)
	}

	l := &Lock{
		path:   path,
		info:   info,
		logger: logger,
		now:    opts.Now,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go l.heartbeat(opts.Heartbeat)

	logger.Info("lock acquired", "path", path, "pid", os.Getpid())
	return l, nil
}

func create(path string) (os.FileInfo, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return f.Stat()
}

func stale(path string, after time.Duration, now time.Time) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return now.Sub(info.ModTime()) > after
}

// waitRelease blocks until path is removed, d elapses or ctx is done.
func waitRelease(ctx context.Context, path string, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		select {
		case <-timer.C:
		case <-ctx.Done():
		}
		return
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		select {
		case <-timer.C:
		case <-ctx.Done():
		}
		return
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return
	}

	for {
		select {
		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) == filepath.Clean(path) && ev.Has(fsnotify.Remove|fsnotify.Rename) {
				return
			}
		case <-watcher.Errors:
		case <-timer.C:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (l *Lock) heartbeat(interval time.Duration) {
	defer close(l.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			if err := l.touch(); err != nil {
				l.mu.Lock()
				l.lost = true
				l.mu.Unlock()
				l.logger.Error("lock heartbeat failed", "path", l.path, "error", err.Error())
				return
			}
		}
	}
}

func (l *Lock) touch() error {
	if !l.owned() {
		return fmt.Errorf("%w: %s", errors.ErrLockLost, l.path)
	}
	if err := os.Truncate(l.path, 0); err != nil {
		return err
	}
	now := l.now()
	return os.Chtimes(l.path, now, now)
}

// owned reports whether the file at path is still the one this lock created.
func (l *Lock) owned() bool {
	info, err := os.Stat(l.path)
	if err != nil {
		return false
	}
	return os.SameFile(info, l.info)
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// Err returns errors.ErrLockLost if the heartbeat found the lock file gone
// or replaced.
func (l *Lock) Err() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.lost {
		return errors.NewLockError("lock lost while running", errors.ErrLockLost).WithPath(l.path)
	}
	return nil
}

// Release stops the heartbeat and removes the lock file if this lock still
// owns it. Safe to call multiple times and on a nil Lock.
func (l *Lock) Release() error {
	if l == nil {
		return nil
	}
	var err error
	l.once.Do(func() {
		close(l.stop)
		<-l.done

		if !l.owned() {
			return
		}
		if rmErr := os.Remove(l.path); rmErr != nil && !os.IsNotExist(rmErr) {
			err = errors.NewLockError("failed to remove lock file", rmErr).WithPath(l.path)
			return
		}
		l.logger.Info("lock released", "path", l.path)
	})
	return err
}
