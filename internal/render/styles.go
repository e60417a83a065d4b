package render

import (
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/nodech/hsd-tools/internal/event"
)

// Tone is the color role of a span.
type Tone int

const (
	TonePlain Tone = iota
	ToneAccent
	ToneSuccess
	ToneError
	ToneWarning
	ToneMuted
	ToneBold
)

// Palette colors, shared with the rest of the CLI output.
var (
	AccentColor  = lipgloss.Color("#A78BFA")
	SuccessColor = lipgloss.Color("#10B981")
	ErrorColor   = lipgloss.Color("#F87171")
	WarningColor = lipgloss.Color("#F59E0B")
	MutedColor   = lipgloss.Color("#9CA3AF")
)

// Styles paints spans for one output stream.
type Styles struct {
	renderer *lipgloss.Renderer
	tones    map[Tone]lipgloss.Style
}

// NewStyles creates Styles for w. The color profile is detected from w
// unless profile is given.
func NewStyles(w io.Writer, profile ...termenv.Profile) *Styles {
	r := lipgloss.NewRenderer(w)
	if len(profile) > 0 {
		r.SetColorProfile(profile[0])
	}
	return &Styles{
		renderer: r,
		tones: map[Tone]lipgloss.Style{
			TonePlain:   r.NewStyle(),
			ToneAccent:  r.NewStyle().Foreground(AccentColor),
			ToneSuccess: r.NewStyle().Foreground(SuccessColor),
			ToneError:   r.NewStyle().Foreground(ErrorColor),
			ToneWarning: r.NewStyle().Foreground(WarningColor),
			ToneMuted:   r.NewStyle().Foreground(MutedColor),
			ToneBold:    r.NewStyle().Bold(true),
		},
	}
}

// Paint renders text in the given tone.
func (s *Styles) Paint(t Tone, text string) string {
	if text == "" || t == TonePlain {
		return text
	}
	style, ok := s.tones[t]
	if !ok {
		return text
	}
	return style.Render(text)
}

// Profile returns the color profile in use.
func (s *Styles) Profile() termenv.Profile {
	return s.renderer.ColorProfile()
}

// StatusTone maps a status to its tone.
func StatusTone(status event.Status) Tone {
	switch status {
	case event.Running:
		return ToneAccent
	case event.Done:
		return ToneSuccess
	case event.Failed:
		return ToneError
	case event.Skipped:
		return ToneWarning
	default:
		return ToneMuted
	}
}
