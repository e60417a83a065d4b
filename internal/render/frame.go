package render

import (
	"fmt"
	"strings"

	"github.com/nodech/hsd-tools/internal/event"
	"github.com/nodech/hsd-tools/internal/progress"
	"github.com/nodech/hsd-tools/internal/util"
)

const stepIndent = "  "

// span is a run of text drawn in one tone.
type span struct {
	tone Tone
	text string
}

// line is one frame row.
type line []span

func (l line) plain() string {
	var b strings.Builder
	for _, s := range l {
		b.WriteString(s.text)
	}
	return b.String()
}

func (l line) paint(st *Styles) string {
	var b strings.Builder
	for _, s := range l {
		b.WriteString(st.Paint(s.tone, s.text))
	}
	return b.String()
}

func (l line) equal(o line) bool {
	if len(l) != len(o) {
		return false
	}
	for i := range l {
		if l[i] != o[i] {
			return false
		}
	}
	return true
}

// fit cuts the line to width visible columns. Zero width means unlimited.
func (l line) fit(width int) line {
	if width <= 0 {
		return l
	}
	used := 0
	for i, s := range l {
		w := util.Width(s.text)
		if used+w <= width {
			used += w
			continue
		}
		out := make(line, i, i+1)
		copy(out, l[:i])
		if rest := width - used; rest > 0 {
			out = append(out, span{tone: s.tone, text: util.TruncateANSI(s.text, rest)})
		}
		return out
	}
	return l
}

// frameBuilder turns a snapshot into frame lines.
type frameBuilder struct {
	maxSteps int
	spin     int
}

func (fb frameBuilder) build(snap progress.Snapshot) []line {
	var out []line
	for _, t := range snap.Tasks {
		out = append(out, fb.header(t))
		if t.Status == event.Done {
			continue
		}
		out = append(out, fb.steps(t)...)
	}
	return out
}

func (fb frameBuilder) header(t *progress.Task) line {
	l := line{
		{StatusTone(t.Status), glyph(t.Status, fb.spin)},
		{TonePlain, " "},
	}
	if t.Status != event.Done && t.Len() > 0 {
		l = append(l,
			span{ToneMuted, fmt.Sprintf("(%d/%d)", t.Counts.Done, t.Len())},
			span{TonePlain, " "},
		)
	}
	l = append(l, span{ToneBold, t.Name})
	if t.Message != "" {
		l = append(l, span{TonePlain, " - "}, span{ToneMuted, t.Message})
	}
	return l
}

func (fb frameBuilder) step(s progress.Step) line {
	l := line{
		{TonePlain, stepIndent},
		{StatusTone(s.Status), glyph(s.Status, fb.spin)},
		{TonePlain, " "},
		{TonePlain, s.Name},
	}
	if s.Message != "" {
		l = append(l, span{TonePlain, " - "}, span{ToneMuted, s.Message})
	}
	return l
}

func (fb frameBuilder) more(status event.Status, n int) line {
	return line{
		{TonePlain, stepIndent},
		{StatusTone(status), glyph(status, fb.spin)},
		{TonePlain, " "},
		{ToneMuted, fmt.Sprintf("...%d more...", n)},
	}
}

func (fb frameBuilder) steps(t *progress.Task) []line {
	steps := t.Steps()
	if fb.maxSteps <= 0 || len(steps) <= fb.maxSteps {
		out := make([]line, 0, len(steps))
		for _, s := range steps {
			out = append(out, fb.step(s))
		}
		return out
	}

	var done, running, waiting []progress.Step
	for _, s := range steps {
		switch s.Status {
		case event.Running:
			running = append(running, s)
		case event.Stopped:
			waiting = append(waiting, s)
		default:
			done = append(done, s)
		}
	}

	b := calculateSteps(len(done), len(running), len(waiting), fb.maxSteps)
	out := make([]line, 0, fb.maxSteps)
	out = append(out, fb.group(done, b.Done, b.HideDone, event.Done, true)...)
	out = append(out, fb.group(running, b.Running, b.HideRunning, event.Running, false)...)
	out = append(out, fb.group(waiting, b.Waiting, b.HideWaiting, event.Stopped, false)...)
	return out
}

// group renders slots lines for steps. A hidden group gives one slot to the
// placeholder; tail keeps the most recent steps instead of the first ones.
func (fb frameBuilder) group(steps []progress.Step, slots int, hidden bool, status event.Status, tail bool) []line {
	if !hidden {
		out := make([]line, 0, len(steps))
		for _, s := range steps {
			out = append(out, fb.step(s))
		}
		return out
	}
	if slots <= 0 {
		return nil
	}

	keep := slots - 1
	placeholder := fb.more(status, len(steps)-keep)
	out := make([]line, 0, slots)
	if tail {
		out = append(out, placeholder)
		for _, s := range steps[len(steps)-keep:] {
			out = append(out, fb.step(s))
		}
		return out
	}
	for _, s := range steps[:keep] {
		out = append(out, fb.step(s))
	}
	return append(out, placeholder)
}
