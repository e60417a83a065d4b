package render

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

// Mode selects a renderer.
type Mode string

const (
	ModeAuto Mode = "auto"
	ModeLive Mode = "live"
	ModeText Mode = "text"
)

// Modes lists the accepted mode names.
func Modes() []string {
	return []string{string(ModeAuto), string(ModeLive), string(ModeText)}
}

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeAuto, ModeLive, ModeText:
		return Mode(s), nil
	case "":
		return ModeAuto, nil
	}
	return "", fmt.Errorf("unknown ui mode %q (want auto, live or text)", s)
}

var getenv = os.Getenv

// Interactive reports whether w is a terminal that can take cursor
// movement: a TTY, TERM is not "dumb" and CI is unset.
func Interactive(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return false
	}
	if getenv("TERM") == "dumb" || getenv("CI") != "" {
		return false
	}
	return true
}

// TerminalWidth returns the column count of w, or 0 when unknown.
func TerminalWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok {
		return 0
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil {
		return 0
	}
	return width
}

// New picks a renderer for mode. Auto chooses Live on an interactive
// terminal and Text otherwise. Live lines are cut to the terminal width so
// wrapping cannot break the redraw.
func New(mode Mode, w io.Writer, opts ...Option) Renderer {
	if mode == ModeAuto {
		mode = ModeText
		if Interactive(w) {
			mode = ModeLive
		}
	}
	if mode == ModeLive {
		if width := TerminalWidth(w); width > 0 {
			opts = append([]Option{WithWidth(width)}, opts...)
		}
		return NewLive(w, opts...)
	}
	return NewText(w, opts...)
}
