package render

import (
	"fmt"
	"io"
	"sync"

	"github.com/nodech/hsd-tools/internal/event"
	"github.com/nodech/hsd-tools/internal/progress"
	"github.com/nodech/hsd-tools/internal/util"
)

// Text prints one line per task or step status transition.
type Text struct {
	w      io.Writer
	styles *Styles
	width  int

	mu   sync.Mutex
	last map[subjectKey]event.Status
}

// subjectKey names a task (empty step) or one of its steps.
type subjectKey struct {
	task, step string
}

// NewText creates a Text renderer writing to w.
func NewText(w io.Writer, opts ...Option) *Text {
	o := buildOptions(opts)
	return &Text{
		w:      w,
		styles: o.newStyles(w),
		width:  o.width,
		last:   make(map[subjectKey]event.Status),
	}
}

// Notify prints status transitions. Repeated statuses, Stopped and
// non-status messages print nothing.
func (t *Text) Notify(m event.Message) {
	var key subjectKey
	var subject string
	var status event.Status
	var note event.Note

	switch m := m.(type) {
	case event.TaskStatusChanged:
		key = subjectKey{task: m.Task}
		subject = "Task " + t.styles.Paint(ToneBold, m.Task)
		status, note = m.Status, m.Note
	case event.StepStatusChanged:
		key = subjectKey{task: m.Task, step: m.Step}
		subject = fmt.Sprintf("Step %s of %s", t.styles.Paint(ToneBold, m.Step), m.Task)
		status, note = m.Status, m.Note
	default:
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if prev, ok := t.last[key]; ok && prev == status {
		return
	}
	t.last[key] = status

	verb := transition(status)
	if verb == "" {
		return
	}

	out := t.styles.Paint(StatusTone(status), glyph(status, 0)) + " " + subject + " " +
		t.styles.Paint(StatusTone(status), verb)
	if note.Set && note.Text != "" {
		out += t.styles.Paint(ToneMuted, ": "+note.Text)
	}

	_, _ = io.WriteString(t.w, util.TruncateANSI(out, t.width)+"\n")
}

func transition(status event.Status) string {
	switch status {
	case event.Running:
		return "has started"
	case event.Done:
		return "has finished"
	case event.Failed:
		return "has failed"
	case event.Skipped:
		return "was skipped"
	default:
		return ""
	}
}

// Draw is a no-op; Text output is driven by Notify.
func (t *Text) Draw(progress.Snapshot) error {
	return nil
}

// Close is a no-op.
func (t *Text) Close() error {
	return nil
}
