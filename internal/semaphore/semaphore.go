// Package semaphore bounds how many jobs may share one external resource
// (an HTTP endpoint, a git subprocess channel) at the same time.
//
// Jobs are admitted in FIFO submission order. A failing job settles only its
// own caller; the next queued job is admitted as soon as any job returns.
package semaphore

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Unbounded is the max value that disables the bound.
const Unbounded = 0

// Semaphore is a bounded-concurrency gate. A nil *Semaphore admits every job
// immediately.
type Semaphore struct {
	max int
	w   *semaphore.Weighted
}

// New creates a Semaphore admitting at most max concurrent jobs.
// max <= 0 means unbounded.
func New(max int) *Semaphore {
	if max <= Unbounded {
		return &Semaphore{}
	}
	return &Semaphore{max: max, w: semaphore.NewWeighted(int64(max))}
}

// Max returns the configured bound, or 0 when unbounded.
func (s *Semaphore) Max() int {
	if s == nil {
		return Unbounded
	}
	return s.max
}

// Acquire blocks until a slot is free or ctx is done. Each successful Acquire
// must be paired with Release.
func (s *Semaphore) Acquire(ctx context.Context) error {
	if s == nil || s.w == nil {
		return ctx.Err()
	}
	return s.w.Acquire(ctx, 1)
}

// Release frees a slot taken by Acquire.
func (s *Semaphore) Release() {
	if s == nil || s.w == nil {
		return
	}
	s.w.Release(1)
}

// Do runs job once a slot is free and returns its result. The slot is released
// when job returns, whether it succeeded, failed, or panicked.
func Do[T any](ctx context.Context, s *Semaphore, job func(ctx context.Context) (T, error)) (T, error) {
	if err := s.Acquire(ctx); err != nil {
		var zero T
		return zero, err
	}
	defer s.Release()
	return job(ctx)
}

// Run is Do for jobs without a result value.
func Run(ctx context.Context, s *Semaphore, job func(ctx context.Context) error) error {
	_, err := Do(ctx, s, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, job(ctx)
	})
	return err
}
