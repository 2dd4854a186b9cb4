package export

import (
	"fmt"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// GradientBands is the number of bands in a page gradient
const GradientBands = 30

// PDFColor represents an RGB color
type PDFColor struct {
	R int `json:"r"`
	G int `json:"g"`
	B int `json:"b"`
}

// ParseHexColor parses "#rrggbb" into a PDFColor
func ParseHexColor(hex string) (PDFColor, error) {
	c, err := colorful.Hex(hex)
	if err != nil {
		return PDFColor{}, fmt.Errorf("invalid color %q: %w", hex, err)
	}
	return fromColorful(c), nil
}

// MustHexColor is ParseHexColor for built-in constants
func MustHexColor(hex string) PDFColor {
	c, err := ParseHexColor(hex)
	if err != nil {
		panic(err)
	}
	return c
}

// Hex formats the color as "#rrggbb"
func (c PDFColor) Hex() string {
	return c.colorful().Hex()
}

func (c PDFColor) colorful() colorful.Color {
	return colorful.Color{R: float64(c.R) / 255, G: float64(c.G) / 255, B: float64(c.B) / 255}
}

func fromColorful(c colorful.Color) PDFColor {
	r, g, b := c.Clamped().RGB255()
	return PDFColor{R: int(r), G: int(g), B: int(b)}
}

// Gradient returns n colors linearly interpolated in RGB from one endpoint
// to the other, both endpoints included.
func Gradient(from, to PDFColor, n int) []PDFColor {
	if n < 2 {
		return []PDFColor{from}
	}
	a, b := from.colorful(), to.colorful()
	out := make([]PDFColor, n)
	for i := range out {
		t := float64(i) / float64(n-1)
		out[i] = fromColorful(a.BlendRgb(b, t))
	}
	return out
}
