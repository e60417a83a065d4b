package render

import (
	"strconv"
	"strings"

	"github.com/nodech/hsd-tools/internal/util"
)

// Terminal control sequences.
const (
	esc          = "\x1b["
	eraseLine    = esc + "2K"
	eraseToEnd   = esc + "0K"
	hideCursor   = esc + "?25l"
	showCursor   = esc + "?25h"
	carriageHome = "\r"
)

func cursorUp(n int) string {
	return esc + strconv.Itoa(n) + "A"
}

func cursorForward(n int) string {
	return esc + strconv.Itoa(n) + "C"
}

// diffFrame writes the update that turns the printed prev frame into next.
// The cursor is expected on the line below prev and is left on the line
// below next.
func diffFrame(b *strings.Builder, st *Styles, prev, next []line) {
	if len(prev) > 0 {
		b.WriteString(cursorUp(len(prev)))
	}

	for i, l := range next {
		if i >= len(prev) {
			writeFull(b, st, l)
			continue
		}
		writeUpdate(b, st, prev[i], l)
	}

	if extra := len(prev) - len(next); extra > 0 {
		for range extra {
			b.WriteString(carriageHome + eraseLine + "\n")
		}
		b.WriteString(cursorUp(extra))
	}
}

func writeFull(b *strings.Builder, st *Styles, l line) {
	b.WriteString(carriageHome + eraseToEnd)
	b.WriteString(l.paint(st))
	b.WriteString("\n")
}

func writeUpdate(b *strings.Builder, st *Styles, prev, next line) {
	if prev.equal(next) {
		b.WriteString("\n")
		return
	}
	col, patch, ok := singleChange(prev, next)
	if !ok {
		writeFull(b, st, next)
		return
	}
	b.WriteString(carriageHome)
	if col > 0 {
		b.WriteString(cursorForward(col))
	}
	b.WriteString(st.Paint(patch.tone, patch.text))
	b.WriteString("\n")
}

// singleChange reports whether next differs from prev by exactly one
// character of equal width, returning the column of that character and the
// span to write there.
func singleChange(prev, next line) (int, span, bool) {
	if len(prev) != len(next) {
		return 0, span{}, false
	}

	col := 0
	found := false
	var patch span
	patchCol := 0

	for i := range next {
		a, b := prev[i], next[i]
		if a.tone != b.tone {
			return 0, span{}, false
		}
		if a.text == b.text {
			col += util.Width(b.text)
			continue
		}
		if found {
			return 0, span{}, false
		}

		ar, br := []rune(a.text), []rune(b.text)
		if len(ar) != len(br) {
			return 0, span{}, false
		}
		at := -1
		for j := range br {
			if ar[j] == br[j] {
				continue
			}
			if at >= 0 {
				return 0, span{}, false
			}
			at = j
		}
		if at < 0 {
			return 0, span{}, false
		}
		if util.Width(string(ar[at])) != util.Width(string(br[at])) {
			return 0, span{}, false
		}

		found = true
		patchCol = col + util.Width(string(br[:at]))
		patch = span{tone: b.tone, text: string(br[at])}
		col += util.Width(b.text)
	}

	return patchCol, patch, found
}
