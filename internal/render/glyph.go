package render

import (
	"github.com/charmbracelet/bubbles/spinner"

	"github.com/nodech/hsd-tools/internal/event"
)

const (
	filledGlyph  = "●"
	outlineGlyph = "○"
)

// SpinnerFrames is the glyph sequence cycled for running items.
var SpinnerFrames = spinner.MiniDot.Frames

// glyph returns the status marker. frame selects the spinner frame for
// running items.
func glyph(status event.Status, frame int) string {
	switch status {
	case event.Running:
		return SpinnerFrames[frame%len(SpinnerFrames)]
	case event.Done:
		return filledGlyph
	default:
		return outlineGlyph
	}
}
