package render

import (
	"fmt"
	"image/color"
	"math"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// ColorTheme is a predefined colour scheme for markers and series. All themes
// stay dark enough to read on a white background.
type ColorTheme string

const (
	ClassicTheme   ColorTheme = "classic"   // Blue to red transition
	GrayscaleTheme ColorTheme = "grayscale" // Dark to mid gray
	JungleTheme    ColorTheme = "jungle"    // Dark green to olive
	ThermalTheme   ColorTheme = "thermal"   // Dark red to orange
	MarineTheme    ColorTheme = "marine"    // Deep blue to teal

	DefaultColorTheme = ClassicTheme
)

var validThemes = map[ColorTheme]struct{}{
	ClassicTheme:   {},
	GrayscaleTheme: {},
	JungleTheme:    {},
	ThermalTheme:   {},
	MarineTheme:    {},
}

func ParseColorTheme(s string) (ColorTheme, error) {
	t := ColorTheme(strings.ToLower(strings.TrimSpace(s)))
	if t == "" {
		return DefaultColorTheme, nil
	}
	if _, ok := validThemes[t]; !ok {
		return "", fmt.Errorf("invalid color theme: %s", s)
	}
	return t, nil
}

// HSV represents a color in HSV (Hue, Saturation, Value) color space
type HSV struct {
	H float64 // Hue angle in degrees [0-360]
	S float64 // Saturation [0-1]
	V float64 // Value/Brightness [0-1]
}

func (hsv HSV) RGB() color.Color {
	return colorful.Hsv(math.Mod(hsv.H+360, 360), clamp01(hsv.S), clamp01(hsv.V)).Clamped()
}

// Color maps v in [0, 1] to a colour of the theme
func (t ColorTheme) Color(v float64) color.Color {
	v = clamp01(v)

	switch t {
	case GrayscaleTheme:
		return HSV{S: 0, V: 0.15 + v*0.45}.RGB()
	case JungleTheme:
		return HSV{H: 150 - v*90, S: 0.9, V: 0.35 + v*0.35}.RGB()
	case ThermalTheme:
		return HSV{H: v * 40, S: 1, V: 0.6 + v*0.35}.RGB()
	case MarineTheme:
		return HSV{H: 240 - v*60, S: 1 - v*0.4, V: 0.45 + v*0.35}.RGB()
	default:
		return HSV{H: 240 - v*240, S: 0.85, V: 0.8}.RGB()
	}
}

// Palette returns n colours evenly spread over the theme
func (t ColorTheme) Palette(n int) []color.Color {
	out := make([]color.Color, n)
	for i := range out {
		if n == 1 {
			out[i] = t.Color(0)
			continue
		}
		out[i] = t.Color(float64(i) / float64(n-1))
	}
	return out
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
