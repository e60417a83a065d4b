package progress

import (
	"github.com/nodech/hsd-tools/internal/event"
)

// Counts tallies the steps of a task by status.
type Counts struct {
	Stopped int
	Running int
	Failed  int
	Skipped int
	Done    int
}

// Total returns the number of counted steps.
func (c Counts) Total() int {
	return c.Stopped + c.Running + c.Failed + c.Skipped + c.Done
}

// Of returns the count for a status.
func (c Counts) Of(s event.Status) int {
	switch s {
	case event.Stopped:
		return c.Stopped
	case event.Running:
		return c.Running
	case event.Failed:
		return c.Failed
	case event.Skipped:
		return c.Skipped
	case event.Done:
		return c.Done
	}
	return 0
}

func (c *Counts) add(s event.Status, delta int) {
	switch s {
	case event.Stopped:
		c.Stopped += delta
	case event.Running:
		c.Running += delta
	case event.Failed:
		c.Failed += delta
	case event.Skipped:
		c.Skipped += delta
	case event.Done:
		c.Done += delta
	}
}

// Step is a named sub-unit of a task.
type Step struct {
	Name    string
	Status  event.Status
	Message string
}

// Task is a named unit of work with ordered steps.
type Task struct {
	Name    string
	Status  event.Status
	Message string
	Counts  Counts

	steps []*Step
	index map[string]int
}

func newTask(name string) *Task {
	return &Task{Name: name, Status: event.Stopped, index: make(map[string]int)}
}

// Steps returns the steps in creation order.
func (t *Task) Steps() []Step {
	out := make([]Step, len(t.steps))
	for i, s := range t.steps {
		out[i] = *s
	}
	return out
}

// Step looks up a step by name.
func (t *Task) Step(name string) (Step, bool) {
	i, ok := t.index[name]
	if !ok {
		return Step{}, false
	}
	return *t.steps[i], true
}

// Len returns the number of steps.
func (t *Task) Len() int {
	return len(t.steps)
}

func (t *Task) ensureStep(name string) *Step {
	if i, ok := t.index[name]; ok {
		return t.steps[i]
	}
	s := &Step{Name: name, Status: event.Stopped}
	t.index[name] = len(t.steps)
	t.steps = append(t.steps, s)
	t.Counts.Stopped++
	return s
}

func (t *Task) clone() *Task {
	c := &Task{
		Name:    t.Name,
		Status:  t.Status,
		Message: t.Message,
		Counts:  t.Counts,
		steps:   make([]*Step, len(t.steps)),
		index:   make(map[string]int, len(t.index)),
	}
	for i, s := range t.steps {
		cp := *s
		c.steps[i] = &cp
	}
	for k, v := range t.index {
		c.index[k] = v
	}
	return c
}

// Registry is the ordered set of tasks.
type Registry struct {
	tasks []*Task
	index map[string]int
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{index: make(map[string]int)}
}

func (r *Registry) ensureTask(name string) *Task {
	if i, ok := r.index[name]; ok {
		return r.tasks[i]
	}
	t := newTask(name)
	r.index[name] = len(r.tasks)
	r.tasks = append(r.tasks, t)
	return t
}

// Apply updates the registry from a message. It reports whether the message
// touched a task or step; LogLine and ErrorRaised are not registry messages.
func (r *Registry) Apply(m event.Message) bool {
	switch m := m.(type) {
	case event.TaskCreated:
		t := r.ensureTask(m.Task)
		if m.Note.Set {
			t.Message = m.Note.Text
		}
	case event.TaskStatusChanged:
		t := r.ensureTask(m.Task)
		t.Status = m.Status
		if m.Note.Set {
			t.Message = m.Note.Text
		}
	case event.StepCreated:
		s := r.ensureTask(m.Task).ensureStep(m.Step)
		if m.Note.Set {
			s.Message = m.Note.Text
		}
	case event.StepStatusChanged:
		t := r.ensureTask(m.Task)
		s := t.ensureStep(m.Step)
		if m.Status == event.Stopped && m.Note.Set {
			// Annotated wait: message only, counts untouched.
			s.Message = m.Note.Text
			return true
		}
		if s.Status != m.Status {
			t.Counts.add(s.Status, -1)
			t.Counts.add(m.Status, 1)
			s.Status = m.Status
		}
		if m.Note.Set {
			s.Message = m.Note.Text
		}
	default:
		return false
	}
	return true
}

// Task looks up a task by name.
func (r *Registry) Task(name string) (*Task, bool) {
	i, ok := r.index[name]
	if !ok {
		return nil, false
	}
	return r.tasks[i], true
}

// Len returns the number of tasks.
func (r *Registry) Len() int {
	return len(r.tasks)
}

// Snapshot returns a deep copy of the registry.
func (r *Registry) Snapshot() Snapshot {
	tasks := make([]*Task, len(r.tasks))
	for i, t := range r.tasks {
		tasks[i] = t.clone()
	}
	return Snapshot{Tasks: tasks}
}

// Snapshot is an immutable view of the registry in task creation order.
type Snapshot struct {
	Tasks []*Task
}

// Finished reports whether every task in the snapshot is in a terminal
// status.
func (s Snapshot) Finished() bool {
	for _, t := range s.Tasks {
		if !t.Status.Finished() {
			return false
		}
	}
	return true
}
