// Package encode maps link and node attributes to visual attributes: color,
// stroke width, spring distance and label sizing. Every mapping is a pure
// function of its inputs.
package encode

import (
	"fmt"
	"image/color"
	"math"
	"strings"

	"github.com/vanderheijden86/kerrigan/pkg/model"
)

// LabelFontSize is the label size in points regardless of zoom.
const LabelFontSize = 12.0

var (
	DefaultHighlight = color.RGBA{0x00, 0x80, 0x00, 0xff} // green
	DefaultNode      = color.RGBA{0x80, 0x80, 0x80, 0xff} // gray
)

// Config parameterizes the encoder.
type Config struct {
	// ColorBy selects the attribute that drives link color: strength or risk.
	ColorBy model.Attribute
	// DistanceScale converts link time into spring distance.
	DistanceScale float64
	// WidthScale multiplies strength into stroke width.
	WidthScale float64
	// MinWidth is the narrowest stroke drawn; values below 1 are raised to 1.
	MinWidth float64

	Highlight color.RGBA
	Default   color.RGBA
}

// DefaultConfig colors by strength with the original distance factor of 100.
func DefaultConfig() Config {
	return Config{
		ColorBy:       model.AttrStrength,
		DistanceScale: 100,
		WidthScale:    5,
		MinWidth:      1,
		Highlight:     DefaultHighlight,
		Default:       DefaultNode,
	}
}

// Encoder applies a Config.
type Encoder struct {
	cfg Config
}

// New returns an encoder; zero-valued fields fall back to DefaultConfig.
func New(cfg Config) Encoder {
	def := DefaultConfig()
	if cfg.ColorBy != model.AttrRisk {
		cfg.ColorBy = model.AttrStrength
	}
	if !finite(cfg.DistanceScale) || cfg.DistanceScale <= 0 {
		cfg.DistanceScale = def.DistanceScale
	}
	if !finite(cfg.WidthScale) || cfg.WidthScale < 0 {
		cfg.WidthScale = def.WidthScale
	}
	if !finite(cfg.MinWidth) || cfg.MinWidth < 1 {
		cfg.MinWidth = 1
	}
	if cfg.Highlight == (color.RGBA{}) {
		cfg.Highlight = def.Highlight
	}
	if cfg.Default == (color.RGBA{}) {
		cfg.Default = def.Default
	}
	return Encoder{cfg: cfg}
}

// Config returns the effective configuration.
func (e Encoder) Config() Config { return e.cfg }

// ColorFraction returns the [0,1] position of a link on the color ramp.
func (e Encoder) ColorFraction(l model.Link) float64 {
	var a float64
	if e.cfg.ColorBy == model.AttrRisk {
		a = l.Risk / 10
	} else {
		a = (l.Strength + 1) / 2
	}
	if !finite(a) {
		if math.IsInf(a, 1) {
			return 1
		}
		return 0
	}
	return a
}

// LinkColor ramps from green (low) to red (high), blue fixed at zero.
func (e Encoder) LinkColor(l model.Link) color.RGBA {
	red := clampChannel(math.Floor(e.ColorFraction(l) * 255))
	return color.RGBA{R: red, G: 255 - red, B: 0, A: 0xff}
}

// LinkWidth is proportional to strength with a floor of MinWidth.
func (e Encoder) LinkWidth(l model.Link) float64 {
	w := l.Strength * e.cfg.WidthScale
	if !finite(w) || w < e.cfg.MinWidth {
		return e.cfg.MinWidth
	}
	return w
}

// LinkDistance is the spring rest length for the force layout.
func (e Encoder) LinkDistance(l model.Link) float64 {
	d := l.Time * e.cfg.DistanceScale
	if !finite(d) || d < 0 {
		return 0
	}
	return d
}

// Highlighted reports whether a node label contains the search term,
// ignoring case. An empty term highlights nothing.
func Highlighted(n model.Node, search string) bool {
	if search == "" {
		return false
	}
	return strings.Contains(strings.ToLower(n.DisplayLabel()), strings.ToLower(search))
}

// NodeColor returns the fill for a node under the current search term.
func (e Encoder) NodeColor(n model.Node, search string) color.RGBA {
	if Highlighted(n, search) {
		return e.cfg.Highlight
	}
	return e.cfg.Default
}

// NormalizeScale guards zoom factors used as divisors.
func NormalizeScale(scale float64) float64 {
	if !finite(scale) || scale <= 0 {
		return 1
	}
	return scale
}

// LabelSize returns the font size to use in world units so that labels keep
// LabelFontSize on screen at the given zoom.
func LabelSize(scale float64) float64 {
	return LabelFontSize / NormalizeScale(scale)
}

// CSS formats a color as #rrggbb.
func CSS(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// RGB formats a color as rgb(r, g, b).
func RGB(c color.RGBA) string {
	return fmt.Sprintf("rgb(%d, %d, %d)", c.R, c.G, c.B)
}

func clampChannel(v float64) uint8 {
	switch {
	case !(v > 0):
		return 0
	case v > 255:
		return 255
	default:
		return uint8(v)
	}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
