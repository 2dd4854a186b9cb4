// Package layout holds the pure geometry behind every generated document:
// page boxes, image fitting, caption reservation and block flow. Nothing
// here draws; the export package turns these numbers into PDF operations.
package layout

// Dimensions of A4 in points.
const (
	A4Short = 595.28
	A4Long  = 841.89
)

type Orientation string

const (
	Portrait  Orientation = "portrait"
	Landscape Orientation = "landscape"
)

// Code returns the gofpdf orientation code.
func (o Orientation) Code() string {
	if o == Landscape {
		return "L"
	}
	return "P"
}

type Size struct {
	W float64
	H float64
}

type Rect struct {
	X float64
	Y float64
	W float64
	H float64
}

// Bottom is the y coordinate of the lower edge.
func (r Rect) Bottom() float64 { return r.Y + r.H }

// Page is the fixed geometry every primitive checks against.
type Page struct {
	Width         float64
	Height        float64
	Margin        float64
	HeaderReserve float64
	FooterReserve float64
}

// A4 returns the default page for the given orientation.
func A4(o Orientation) Page {
	p := Page{Width: A4Short, Height: A4Long, Margin: 40, HeaderReserve: 50, FooterReserve: 30}
	if o == Landscape {
		p.Width, p.Height = A4Long, A4Short
	}
	return p
}

func (p Page) ContentTop() float64 { return p.Margin + p.HeaderReserve }

// ContentBottom is the boundary no advancing primitive may cross.
func (p Page) ContentBottom() float64 { return p.Height - p.FooterReserve - p.Margin }

func (p Page) ContentWidth() float64 { return p.Width - 2*p.Margin }

func (p Page) ContentHeight() float64 { return p.ContentBottom() - p.ContentTop() }

// Fits reports whether a block of height h starting at y stays above the
// content bottom.
func (p Page) Fits(y, h float64) bool {
	return y+h <= p.ContentBottom()+epsilon
}

const epsilon = 1e-6
