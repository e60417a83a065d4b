package render

import (
	"io"
	"strings"
	"sync"

	"github.com/nodech/hsd-tools/internal/event"
	"github.com/nodech/hsd-tools/internal/progress"
)

// Live redraws the whole registry in place on every Draw.
type Live struct {
	w      io.Writer
	styles *Styles
	width  int
	fb     frameBuilder

	mu     sync.Mutex
	prev   []line
	hidden bool
}

// NewLive creates a Live renderer writing to w.
func NewLive(w io.Writer, opts ...Option) *Live {
	o := buildOptions(opts)
	return &Live{
		w:      w,
		styles: o.newStyles(w),
		width:  o.width,
		fb:     frameBuilder{maxSteps: o.maxSteps},
	}
}

// Notify is a no-op; Live only reacts to snapshots.
func (l *Live) Notify(event.Message) {}

// Draw writes the difference between the last frame and snap.
func (l *Live) Draw(snap progress.Snapshot) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	next := l.fb.build(snap)
	for i := range next {
		next[i] = next[i].fit(l.width)
	}

	var b strings.Builder
	if !l.hidden {
		b.WriteString(hideCursor)
		l.hidden = true
	}
	diffFrame(&b, l.styles, l.prev, next)

	l.prev = next
	l.fb.spin++

	_, err := io.WriteString(l.w, b.String())
	return err
}

// Close shows the cursor again if Draw hid it.
func (l *Live) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.hidden {
		return nil
	}
	l.hidden = false
	_, err := io.WriteString(l.w, showCursor)
	return err
}
