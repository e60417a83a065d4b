package event

import (
	"fmt"
	"time"
)

// Status is the lifecycle state of a task or step.
type Status int

const (
	Stopped Status = iota
	Running
	Failed
	Skipped
	Done
)

// Statuses lists every status in declaration order.
func Statuses() []Status {
	return []Status{Stopped, Running, Failed, Skipped, Done}
}

// String returns the lower-case status name.
func (s Status) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Running:
		return "running"
	case Failed:
		return "failed"
	case Skipped:
		return "skipped"
	case Done:
		return "done"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Finished reports whether the status is terminal.
func (s Status) Finished() bool {
	return s == Failed || s == Skipped || s == Done
}

// Message is one progress message. The set of implementations is closed.
type Message interface {
	Timestamp() time.Time
	isMessage()
}

type baseMessage struct {
	at time.Time
}

func (m baseMessage) Timestamp() time.Time { return m.at }
func (baseMessage) isMessage()             {}

func newBase() baseMessage {
	return baseMessage{at: time.Now()}
}

// Note is an optional message text. The zero value means "not given".
type Note struct {
	Text string
	Set  bool
}

// NoteOf builds a Note from an optional variadic argument.
func NoteOf(text ...string) Note {
	if len(text) == 0 {
		return Note{}
	}
	return Note{Text: text[0], Set: true}
}

// TaskCreated registers a task; if it exists only its message is updated.
type TaskCreated struct {
	baseMessage
	Task string
	Note Note
}

// TaskStatusChanged sets a task's status, creating the task if needed.
type TaskStatusChanged struct {
	baseMessage
	Task   string
	Status Status
	Note   Note
}

// StepCreated registers a step under a task; if it exists only its message
// is updated.
type StepCreated struct {
	baseMessage
	Task string
	Step string
	Note Note
}

// StepStatusChanged moves a step to a new status, creating it if needed.
type StepStatusChanged struct {
	baseMessage
	Task   string
	Step   string
	Status Status
	Note   Note
}

// LogLine is buffered output destined for the primary output stream.
type LogLine struct {
	baseMessage
	Values []any
}

// Text renders the values the way fmt.Sprintln does, without the newline.
func (l LogLine) Text() string {
	s := fmt.Sprintln(l.Values...)
	return s[:len(s)-1]
}

// ErrorRaised reports a non-fatal error with optional context values.
type ErrorRaised struct {
	baseMessage
	Err     error
	Context []any
}

// NewTaskCreated creates a TaskCreated message.
func NewTaskCreated(task string, note ...string) TaskCreated {
	return TaskCreated{baseMessage: newBase(), Task: task, Note: NoteOf(note...)}
}

// NewTaskStatusChanged creates a TaskStatusChanged message.
func NewTaskStatusChanged(task string, status Status, note ...string) TaskStatusChanged {
	return TaskStatusChanged{baseMessage: newBase(), Task: task, Status: status, Note: NoteOf(note...)}
}

// NewStepCreated creates a StepCreated message.
func NewStepCreated(task, step string, note ...string) StepCreated {
	return StepCreated{baseMessage: newBase(), Task: task, Step: step, Note: NoteOf(note...)}
}

// NewStepStatusChanged creates a StepStatusChanged message.
func NewStepStatusChanged(task, step string, status Status, note ...string) StepStatusChanged {
	return StepStatusChanged{baseMessage: newBase(), Task: task, Step: step, Status: status, Note: NoteOf(note...)}
}

// NewLogLine creates a LogLine message.
func NewLogLine(values ...any) LogLine {
	return LogLine{baseMessage: newBase(), Values: values}
}

// NewErrorRaised creates an ErrorRaised message.
func NewErrorRaised(err error, context ...any) ErrorRaised {
	return ErrorRaised{baseMessage: newBase(), Err: err, Context: context}
}
