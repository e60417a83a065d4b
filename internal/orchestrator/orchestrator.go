// Package orchestrator runs one operation under the progress engine.
//
// The operation runs on its own goroutine and reports through an
// event.Reporter backed by a queue. The orchestrator goroutine is the only
// writer of the registry: it applies queued messages, redraws on a fixed
// tick, and after the operation returns draws once more and flushes the
// buffered output lines to the primary stream.
package orchestrator

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"time"

	"github.com/nodech/hsd-tools/internal/errors"
	"github.com/nodech/hsd-tools/internal/event"
	"github.com/nodech/hsd-tools/internal/lock"
	"github.com/nodech/hsd-tools/internal/logging"
	"github.com/nodech/hsd-tools/internal/progress"
	"github.com/nodech/hsd-tools/internal/render"
)

// DefaultTick is the redraw interval.
const DefaultTick = 100 * time.Millisecond

// DefaultGrace is how long an interrupted operation may take to return.
const DefaultGrace = 2 * time.Second

const defaultQueueSize = 256

// Operation is a long running command that reports progress.
type Operation interface {
	Name() string
	Run(ctx context.Context, r *event.Reporter) error
}

// Func adapts a function to Operation.
type Func struct {
	OpName string
	Fn     func(ctx context.Context, r *event.Reporter) error
}

// Name returns the operation name.
func (f Func) Name() string { return f.OpName }

// Run calls f.Fn.
func (f Func) Run(ctx context.Context, r *event.Reporter) error { return f.Fn(ctx, r) }

// Config wires an Orchestrator.
type Config struct {
	// Renderer draws progress. Defaults to a Text renderer on stderr.
	Renderer render.Renderer
	// Out receives buffered output lines at the end of the run. Defaults
	// to stdout.
	Out io.Writer
	// Tick is the redraw interval.
	Tick time.Duration
	// QueueSize is the message buffer between operation and orchestrator.
	QueueSize int
	// Grace bounds the wait for a canceled operation to return, so its
	// cleanup finishes while the lock is still held.
	Grace time.Duration

	// LockDir is where the advisory lock is taken. Empty skips locking.
	LockDir string
	// Force skips locking.
	Force bool
	Lock  lock.Options

	Logger *logging.Logger
}

// Orchestrator runs operations. It is not safe for concurrent Run calls.
type Orchestrator struct {
	cfg      Config
	logger   *logging.Logger
	registry *progress.Registry
	out      []event.LogLine
}

// New creates an Orchestrator.
func New(cfg Config) *Orchestrator {
	if cfg.Renderer == nil {
		cfg.Renderer = render.NewText(os.Stderr)
	}
	if cfg.Out == nil {
		cfg.Out = os.Stdout
	}
	if cfg.Tick <= 0 {
		cfg.Tick = DefaultTick
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}
	if cfg.Grace <= 0 {
		cfg.Grace = DefaultGrace
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NopLogger()
	}
	return &Orchestrator{
		cfg:      cfg,
		logger:   cfg.Logger,
		registry: progress.NewRegistry(),
	}
}

// Snapshot returns the current registry state.
func (o *Orchestrator) Snapshot() progress.Snapshot {
	return o.registry.Snapshot()
}

// Run takes the lock, runs op to completion and returns its error. If ctx
// is canceled first, Run waits up to Grace for op to return, restores the
// terminal, flushes what it has and returns errors.ErrInterrupted.
func (o *Orchestrator) Run(ctx context.Context, op Operation) (err error) {
	logger := o.logger.WithOperation(op.Name())

	if o.cfg.LockDir != "" && !o.cfg.Force {
		lockOpts := o.cfg.Lock
		if lockOpts.Logger == nil {
			lockOpts.Logger = logger
		}
		l, lockErr := lock.Acquire(ctx, o.cfg.LockDir, lockOpts)
		if lockErr != nil {
			return lockErr
		}
		defer func() {
			if lostErr := l.Err(); lostErr != nil {
				logger.Warn("lock was lost during the run", "error", lostErr.Error())
			}
			if relErr := l.Release(); relErr != nil {
				logger.Warn("failed to release lock", "error", relErr.Error())
			}
		}()
	} else if o.cfg.Force {
		logger.Info("locking skipped")
	}

	queue := event.NewQueue(o.cfg.QueueSize)
	reporter := event.NewReporter(queue)
	result := make(chan error, 1)

	logger.Info("operation started")
	start := time.Now()

	go func() {
		defer queue.Close()
		result <- runSafely(ctx, op, reporter)
	}()

	defer func() {
		if closeErr := o.cfg.Renderer.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
		o.flush(logger)
	}()

	ticker := time.NewTicker(o.cfg.Tick)
	defer ticker.Stop()

	for {
		select {
		case m, ok := <-queue.C():
			if !ok {
				o.draw(logger)
				err = <-result
				logger.Info("operation finished", "duration", time.Since(start).String(), "ok", err == nil)
				return err
			}
			o.handle(logger, m)
		case <-ticker.C:
			o.draw(logger)
		case <-ctx.Done():
			o.settle(logger, queue)
			o.draw(logger)
			logger.Warn("operation interrupted", "duration", time.Since(start).String())
			return errors.Wrap(errors.ErrInterrupted, op.Name())
		}
	}
}

func runSafely(ctx context.Context, op Operation, r *event.Reporter) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("operation %s panicked: %v\n%s", op.Name(), p, debug.Stack())
		}
	}()
	return op.Run(ctx, r)
}

func (o *Orchestrator) handle(logger *logging.Logger, m event.Message) {
	o.cfg.Renderer.Notify(m)
	if o.registry.Apply(m) {
		return
	}
	switch m := m.(type) {
	case event.LogLine:
		o.out = append(o.out, m)
	case event.ErrorRaised:
		if m.Err == nil {
			return
		}
		args := append([]any{"error", m.Err.Error()}, contextArgs(m.Context)...)
		switch errors.GetSeverity(m.Err) {
		case errors.SeverityDebug:
			logger.Debug("operation reported an error", args...)
		case errors.SeverityInfo:
			logger.Info("operation reported an error", args...)
		case errors.SeverityWarning:
			logger.Warn("operation reported an error", args...)
		default:
			logger.Error("operation reported an error", args...)
		}
	}
}

// settle applies messages until the canceled operation closes the queue or
// Grace runs out. An operation still running after that gets a discarding
// reader.
func (o *Orchestrator) settle(logger *logging.Logger, queue *event.Queue) {
	timer := time.NewTimer(o.cfg.Grace)
	defer timer.Stop()
	for {
		select {
		case m, ok := <-queue.C():
			if !ok {
				return
			}
			o.handle(logger, m)
		case <-timer.C:
			logger.Warn("operation did not stop in time", "grace", o.cfg.Grace.String())
			go discard(queue)
			return
		}
	}
}

// discard keeps a still running operation from blocking on a full queue.
func discard(queue *event.Queue) {
	for range queue.C() {
	}
}

func (o *Orchestrator) draw(logger *logging.Logger) {
	if err := o.cfg.Renderer.Draw(o.registry.Snapshot()); err != nil {
		logger.Debug("draw failed", "error", err.Error())
	}
}

func (o *Orchestrator) flush(logger *logging.Logger) {
	for _, line := range o.out {
		if _, err := fmt.Fprintln(o.cfg.Out, line.Text()); err != nil {
			logger.Warn("failed to write output", "error", err.Error())
			break
		}
	}
	o.out = nil
}

// contextArgs turns error context values into log attributes. Values
// without a string key are logged positionally.
func contextArgs(values []any) []any {
	args := make([]any, 0, len(values))
	for i := 0; i < len(values); i++ {
		if key, ok := values[i].(string); ok && i+1 < len(values) {
			args = append(args, key, values[i+1])
			i++
			continue
		}
		args = append(args, fmt.Sprintf("context%d", i), values[i])
	}
	return args
}
