// Package render draws progress snapshots to a terminal.
//
// Two renderers exist. Text appends one line per status transition and is
// used when the progress stream is not an interactive terminal. Live keeps
// the previously printed frame and redraws it in place, patching single
// characters where it can instead of rewriting whole lines.
//
// Frames are built from styled spans rather than pre-rendered strings so the
// diff works on visible text and never has to look inside escape sequences.
package render
