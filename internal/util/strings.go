// Package util provides small string helpers shared by the renderers and
// command output.
package util

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/x/ansi"
)

// Ellipsis is appended to truncated text.
const Ellipsis = "..."

// TruncateANSI truncates s to maxWidth visual columns, adding "..." if
// truncated. Escape sequences are preserved and wide characters are
// measured by cell width. A maxWidth of zero or less disables truncation.
func TruncateANSI(s string, maxWidth int) string {
	if maxWidth <= 0 || ansi.StringWidth(s) <= maxWidth {
		return s
	}
	if maxWidth <= len(Ellipsis) {
		return ansi.Truncate(s, maxWidth, "")
	}
	return ansi.Truncate(s, maxWidth, Ellipsis)
}

// Width returns the visual width of s, ignoring escape sequences.
func Width(s string) int {
	return ansi.StringWidth(s)
}

// Plural formats n with word in its plural form when n != 1. Only the
// regular English endings are handled.
func Plural(n int, word string) string {
	switch {
	case n == 1:
		return fmt.Sprintf("%d %s", n, word)
	case strings.HasSuffix(word, "s"):
		return fmt.Sprintf("%d %ses", n, word)
	case strings.HasSuffix(word, "y"):
		return fmt.Sprintf("%d %sies", n, strings.TrimSuffix(word, "y"))
	default:
		return fmt.Sprintf("%d %ss", n, word)
	}
}
