// Package theme maps the light/dark/system preference onto terminal colors.
package theme

import (
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/trackerhq/tracker/internal/settings"
)

// Palette is the set of colors used by the command-line shell.
type Palette struct {
	Dark bool

	NormalText lipgloss.Color
	FaintText  lipgloss.Color
	Heading    lipgloss.Color
	Link       lipgloss.Color
	Code       lipgloss.Color
	Border     lipgloss.Color

	// Issue status.
	Ongoing  lipgloss.Color
	Resolved lipgloss.Color

	// Health endpoint status.
	Up      lipgloss.Color
	Down    lipgloss.Color
	Unknown lipgloss.Color
}

// DarkPalette suits 256-color terminals with a dark background.
var DarkPalette = Palette{
	Dark:       true,
	NormalText: lipgloss.Color("252"),
	FaintText:  lipgloss.Color("245"),
	Heading:    lipgloss.Color("255"),
	Link:       lipgloss.Color("75"),
	Code:       lipgloss.Color("180"),
	Border:     lipgloss.Color("240"),
	Ongoing:    lipgloss.Color("220"), // amber
	Resolved:   lipgloss.Color("114"), // green
	Up:         lipgloss.Color("114"),
	Down:       lipgloss.Color("196"),
	Unknown:    lipgloss.Color("245"),
}

// LightPalette suits light backgrounds.
var LightPalette = Palette{
	NormalText: lipgloss.Color("235"),
	FaintText:  lipgloss.Color("242"),
	Heading:    lipgloss.Color("16"),
	Link:       lipgloss.Color("25"),
	Code:       lipgloss.Color("94"),
	Border:     lipgloss.Color("250"),
	Ongoing:    lipgloss.Color("130"),
	Resolved:   lipgloss.Color("28"),
	Up:         lipgloss.Color("28"),
	Down:       lipgloss.Color("160"),
	Unknown:    lipgloss.Color("242"),
}

// Resolve picks the palette for a preference. For the system preference
// darkBackground is consulted; a nil func means dark.
func Resolve(pref settings.Theme, darkBackground func() bool) Palette {
	switch pref {
	case settings.ThemeLight:
		return LightPalette
	case settings.ThemeDark:
		return DarkPalette
	default:
		if darkBackground == nil || darkBackground() {
			return DarkPalette
		}
		return LightPalette
	}
}

// ForOutput resolves the preference against a terminal's background.
func ForOutput(pref settings.Theme, out *termenv.Output) Palette {
	return Resolve(pref, out.HasDarkBackground)
}

// NewRenderer returns a lipgloss renderer pinned to profile, so output does
// not depend on detecting a TTY.
func NewRenderer(w io.Writer, profile termenv.Profile) *lipgloss.Renderer {
	r := lipgloss.NewRenderer(w, termenv.WithProfile(profile))
	r.SetColorProfile(profile)
	return r
}

// Styles are the lipgloss styles derived from a palette.
type Styles struct {
	Palette Palette

	Title lipgloss.Style
	Text  lipgloss.Style
	Faint lipgloss.Style
	Label lipgloss.Style
	Error lipgloss.Style

	renderer *lipgloss.Renderer
}

// NewStyles builds styles for a palette on renderer.
func NewStyles(r *lipgloss.Renderer, p Palette) Styles {
	return Styles{
		Palette:  p,
		Title:    r.NewStyle().Bold(true).Foreground(p.Heading),
		Text:     r.NewStyle().Foreground(p.NormalText),
		Faint:    r.NewStyle().Foreground(p.FaintText),
		Label:    r.NewStyle().Foreground(p.FaintText).Width(12),
		Error:    r.NewStyle().Bold(true).Foreground(p.Down),
		renderer: r,
	}
}

// Renderer returns the lipgloss renderer the styles were built on.
func (s Styles) Renderer() *lipgloss.Renderer {
	return s.renderer
}

// Badge renders text in color as a bold label.
func (s Styles) Badge(text string, color lipgloss.Color) string {
	return s.renderer.NewStyle().Bold(true).Foreground(color).Render(text)
}
