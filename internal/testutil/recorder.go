package testutil

import (
	"strings"
	"sync"
	"testing"

	"github.com/nodech/hsd-tools/internal/event"
	"github.com/nodech/hsd-tools/internal/progress"
)

// Recorder is an Emitter that applies messages to a Registry the way the
// orchestrator does, keeping output lines and reported errors aside.
type Recorder struct {
	t *testing.T

	mu       sync.Mutex
	registry *progress.Registry
	lines    []string
	errs     []error
}

// NewRecorder creates an empty Recorder.
func NewRecorder(t *testing.T) *Recorder {
	return &Recorder{t: t, registry: progress.NewRegistry()}
}

// Emit implements event.Emitter.
func (r *Recorder) Emit(m event.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch m := m.(type) {
	case event.LogLine:
		r.lines = append(r.lines, m.Text())
	case event.ErrorRaised:
		r.errs = append(r.errs, m.Err)
	default:
		r.registry.Apply(m)
	}
}

// Reporter returns a Reporter emitting into r.
func (r *Recorder) Reporter() *event.Reporter {
	return event.NewReporter(r)
}

// Task returns a copy of the named task, failing the test if it is missing.
func (r *Recorder) Task(name string) *progress.Task {
	r.t.Helper()
	for _, task := range r.Snapshot().Tasks {
		if task.Name == name {
			return task
		}
	}
	r.t.Fatalf("task %q was never created", name)
	return nil
}

// Step returns the named step of task, failing the test if it is missing.
func (r *Recorder) Step(task, name string) progress.Step {
	r.t.Helper()
	step, ok := r.Task(task).Step(name)
	if !ok {
		r.t.Fatalf("step %s/%s was never created", task, name)
	}
	return step
}

// Snapshot returns the current registry state.
func (r *Recorder) Snapshot() progress.Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.registry.Snapshot()
}

// Lines returns the buffered output lines.
func (r *Recorder) Lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.lines...)
}

// Output returns the buffered output joined by newlines.
func (r *Recorder) Output() string {
	return strings.Join(r.Lines(), "\n")
}

// Errors returns the reported non-fatal errors.
func (r *Recorder) Errors() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]error(nil), r.errs...)
}
