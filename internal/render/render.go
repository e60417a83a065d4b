package render

import (
	"io"

	"github.com/muesli/termenv"

	"github.com/nodech/hsd-tools/internal/event"
	"github.com/nodech/hsd-tools/internal/progress"
)

// DefaultMaxSteps is the number of step lines shown per task before eliding.
const DefaultMaxSteps = 8

// MinMaxSteps is the smallest cap that leaves every non-empty step group at
// least one line, so a hidden group always shows its placeholder.
const MinMaxSteps = 5

// Renderer draws progress for one run.
type Renderer interface {
	// Notify is called for every message before it is applied.
	Notify(m event.Message)
	// Draw renders a snapshot of the registry.
	Draw(snap progress.Snapshot) error
	// Close restores the terminal. It does not draw.
	Close() error
}

var (
	_ Renderer = (*Text)(nil)
	_ Renderer = (*Live)(nil)
)

type options struct {
	maxSteps int
	width    int
	profile  *termenv.Profile
}

// Option configures a renderer.
type Option func(*options)

// WithMaxSteps sets the step line cap per task. Zero or less disables eliding;
// positive caps below MinMaxSteps are raised to it.
func WithMaxSteps(n int) Option {
	return func(o *options) {
		if n > 0 && n < MinMaxSteps {
			n = MinMaxSteps
		}
		o.maxSteps = n
	}
}

// WithWidth truncates lines to n columns. Zero means unlimited.
func WithWidth(n int) Option {
	return func(o *options) {
		o.width = n
	}
}

// WithProfile forces a color profile instead of detecting one.
func WithProfile(p termenv.Profile) Option {
	return func(o *options) {
		o.profile = &p
	}
}

func buildOptions(opts []Option) options {
	o := options{maxSteps: DefaultMaxSteps}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o options) newStyles(w io.Writer) *Styles {
	if o.profile != nil {
		return NewStyles(w, *o.profile)
	}
	return NewStyles(w)
}
