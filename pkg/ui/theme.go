package ui

import (
	"image/color"
	"os"

	"github.com/charmbracelet/colorprofile"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/kerrigan/pkg/encode"
)

// TermProfile holds the detected terminal color profile. Computed once at
// package init so every style helper can branch without re-detecting.
var TermProfile colorprofile.Profile

func init() {
	TermProfile = colorprofile.Detect(os.Stdout, os.Environ())
}

// EncodedColor converts an encoder color for the terminal. Below ANSI256 the
// green/red ramp collapses to the two nearest basic colors.
func EncodedColor(c color.RGBA) lipgloss.TerminalColor {
	if TermProfile < colorprofile.ANSI256 {
		switch {
		case c.R > c.G:
			return lipgloss.ANSIColor(1)
		case c.G > c.R && c.G > 0x90:
			return lipgloss.ANSIColor(2)
		default:
			return lipgloss.ANSIColor(8)
		}
	}
	return lipgloss.Color(encode.CSS(c))
}

// Theme bundles the renderer with the styles every panel shares.
type Theme struct {
	Renderer *lipgloss.Renderer

	Primary   lipgloss.AdaptiveColor
	Secondary lipgloss.AdaptiveColor
	Subtext   lipgloss.AdaptiveColor
	Border    lipgloss.AdaptiveColor
	Highlight lipgloss.AdaptiveColor
	Muted     lipgloss.AdaptiveColor

	Base      lipgloss.Style
	Selected  lipgloss.Style
	Header    lipgloss.Style
	Panel     lipgloss.Style
	MutedText lipgloss.Style
	InfoBold  lipgloss.Style
	TabActive lipgloss.Style
	TabIdle   lipgloss.Style
	Label     lipgloss.Style
}

// DefaultTheme returns the standard Dracula-inspired theme (adaptive)
func DefaultTheme(r *lipgloss.Renderer) Theme {
	t := Theme{
		Renderer: r,

		Primary:   lipgloss.AdaptiveColor{Light: "#6B47D9", Dark: "#BD93F9"},
		Secondary: lipgloss.AdaptiveColor{Light: "#555555", Dark: "#6272A4"},
		Subtext:   lipgloss.AdaptiveColor{Light: "#666666", Dark: "#BFBFBF"},
		Border:    lipgloss.AdaptiveColor{Light: "#AAAAAA", Dark: "#44475A"},
		Highlight: lipgloss.AdaptiveColor{Light: "#E0E0E0", Dark: "#44475A"},
		Muted:     lipgloss.AdaptiveColor{Light: "#555555", Dark: "#6272A4"},
	}

	t.Base = r.NewStyle().Foreground(ColorText)

	t.Selected = r.NewStyle().
		Background(t.Highlight).
		Foreground(ColorText).
		Bold(true)

	t.Header = r.NewStyle().
		Background(t.Primary).
		Foreground(lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#282A36"}).
		Bold(true).
		Padding(0, 1)

	t.Panel = r.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Border).
		Padding(0, 1)

	t.MutedText = r.NewStyle().Foreground(ColorMuted)
	t.InfoBold = r.NewStyle().Foreground(ColorInfo).Bold(true)
	t.TabActive = r.NewStyle().
		Background(ColorBgHighlight).
		Foreground(ColorText).
		Bold(true).
		Padding(0, 1)
	t.TabIdle = r.NewStyle().Foreground(ColorSubtext).Padding(0, 1)
	t.Label = r.NewStyle().Foreground(ColorText)

	return t
}

// TestTheme returns a theme suitable for use in tests.
func TestTheme() Theme {
	return DefaultTheme(lipgloss.NewRenderer(os.Stdout))
}
