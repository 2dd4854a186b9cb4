package export

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/skip2/go-qrcode"

	"manutencao-predial/portal-backend/internal/reports/imaging"
	"manutencao-predial/portal-backend/internal/reports/layout"
	"manutencao-predial/portal-backend/pkg/security"
)

// HeaderMode selects the running header drawn when a page is opened
type HeaderMode int

const (
	// HeaderNone leaves the page bare (covers, separators)
	HeaderNone HeaderMode = iota
	// HeaderFull draws logo, company name and contact lines
	HeaderFull
	// HeaderSimple draws a single compact line
	HeaderSimple
)

// PDFGenerator draws report pages on top of gofpdf. It tracks the current
// page and cursor; every primitive that advances the cursor checks the
// page's content bottom and opens a continuation page when crossed.
type PDFGenerator struct {
	pdf     *gofpdf.Fpdf
	options PDFOptions
	page    layout.Page
	tr      func(string) string

	nextMode     HeaderMode
	mode         HeaderMode
	continuation HeaderMode
	footerOff    bool
	images       map[*imaging.EncodedImage]string
}

// PDFOptions configures PDF generation
type PDFOptions struct {
	Orientation     layout.Orientation    `json:"orientation"`
	Title           string                `json:"title"`
	Author          string                `json:"author,omitempty"`
	DateFormat      string                `json:"date_format"`
	IncludeHeader   bool                  `json:"include_header"`
	IncludeFooter   bool                  `json:"include_footer"`
	IncludePageNum  bool                  `json:"include_page_num"`
	CompanyName     string                `json:"company_name"`
	CompanyContacts []string              `json:"company_contacts,omitempty"`
	HeaderLogo      *imaging.EncodedImage `json:"-"`
	FooterBrand     string                `json:"footer_brand,omitempty"`
	PrimaryColor    PDFColor              `json:"primary_color"`
	AccentColor     PDFColor              `json:"accent_color"`
	FontFamily      string                `json:"font_family"`
	FontSize        float64               `json:"font_size"`
	HeaderFontSize  float64               `json:"header_font_size"`
	TitleFontSize   float64               `json:"title_font_size"`
	GeneratedAt     time.Time             `json:"-"`
}

// DefaultPDFOptions returns default PDF options
func DefaultPDFOptions() PDFOptions {
	return PDFOptions{
		Orientation:    layout.Portrait,
		Title:          "Relatório",
		DateFormat:     "02/01/2006",
		IncludeHeader:  true,
		IncludeFooter:  true,
		IncludePageNum: true,
		PrimaryColor:   PDFColor{R: 31, G: 78, B: 121},
		AccentColor:    PDFColor{R: 242, G: 153, B: 0},
		FontFamily:     "Arial",
		FontSize:       11,
		HeaderFontSize: 14,
		TitleFontSize:  22,
	}
}

// NewPDFGenerator creates a new PDF generator
func NewPDFGenerator(options PDFOptions) *PDFGenerator {
	if options.GeneratedAt.IsZero() {
		options.GeneratedAt = time.Now()
	}

	page := layout.A4(options.Orientation)
	pdf := gofpdf.New(options.Orientation.Code(), "pt", "A4", "")
	pdf.SetMargins(page.Margin, page.ContentTop(), page.Margin)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AliasNbPages("{nb}")

	g := &PDFGenerator{
		pdf:          pdf,
		options:      options,
		page:         page,
		tr:           pdf.UnicodeTranslatorFromDescriptor(""),
		continuation: HeaderSimple,
		images:       make(map[*imaging.EncodedImage]string),
	}
	if options.Title != "" {
		pdf.SetTitle(options.Title, true)
	}
	if options.Author != "" {
		pdf.SetAuthor(options.Author, true)
	}
	pdf.SetCreator("portal-backend", true)

	pdf.SetHeaderFunc(g.drawRunningHeader)
	pdf.SetFooterFunc(g.drawRunningFooter)
	return g
}

// Page returns the page geometry
func (g *PDFGenerator) Page() layout.Page { return g.page }

// Options returns the generator options
func (g *PDFGenerator) Options() PDFOptions { return g.options }

// SetContinuationHeader sets the header used by pages opened on overflow
func (g *PDFGenerator) SetContinuationHeader(mode HeaderMode) { g.continuation = mode }

// AddPage opens a page with the given running header and places the
// cursor at the top of its content area.
func (g *PDFGenerator) AddPage(mode HeaderMode) {
	if !g.options.IncludeHeader && mode != HeaderNone {
		mode = HeaderNone
	}
	g.nextMode = mode
	g.pdf.AddPage()
	if mode == HeaderNone {
		g.pdf.SetY(g.page.Margin)
	}
}

// AddBarePage opens a page without header or footer
func (g *PDFGenerator) AddBarePage() {
	g.AddPage(HeaderNone)
	g.footerOff = true
}

func (g *PDFGenerator) Y() float64 { return g.pdf.GetY() }

func (g *PDFGenerator) SetY(y float64) { g.pdf.SetY(y) }

// EnsureSpace opens a continuation page when h does not fit below the
// cursor. It reports whether a page was added.
func (g *PDFGenerator) EnsureSpace(h float64) bool {
	if g.page.Fits(g.pdf.GetY(), h) {
		return false
	}
	g.AddPage(g.continuation)
	return true
}

// Measure returns a width function for the given font
func (g *PDFGenerator) Measure(size float64, bold bool) layout.Measure {
	return func(s string) float64 {
		g.setFont(size, bold)
		return g.pdf.GetStringWidth(g.tr(s))
	}
}

func (g *PDFGenerator) setFont(size float64, bold bool) {
	style := ""
	if bold {
		style = "B"
	}
	g.pdf.SetFont(g.options.FontFamily, style, size)
}

func lineHeight(size float64) float64 { return size * 1.4 }

// DrawCenteredText draws a single centered line and advances the cursor
func (g *PDFGenerator) DrawCenteredText(text string, size float64, bold bool) {
	h := lineHeight(size)
	g.EnsureSpace(h)
	g.setFont(size, bold)
	w := g.pdf.GetStringWidth(g.tr(text))
	y := g.pdf.GetY()
	g.pdf.SetXY((g.page.Width-w)/2, y)
	g.pdf.CellFormat(w, h, g.tr(text), "", 0, "C", false, 0, "")
	g.pdf.SetY(y + h)
}

// DrawWrappedText wraps text to the width between leftX and the right
// margin, paginating line by line.
func (g *PDFGenerator) DrawWrappedText(text string, size float64, bold bool, leftX float64) {
	g.DrawWrappedTextWidth(text, size, bold, leftX, g.page.Width-g.page.Margin-leftX)
}

// DrawWrappedTextWidth is DrawWrappedText with an explicit line width
func (g *PDFGenerator) DrawWrappedTextWidth(text string, size float64, bold bool, leftX, width float64) {
	h := lineHeight(size)
	for _, line := range layout.WrapText(g.Measure(size, bold), text, width) {
		g.EnsureSpace(h)
		g.setFont(size, bold)
		y := g.pdf.GetY()
		g.pdf.SetXY(leftX, y)
		g.pdf.CellFormat(width, h, g.tr(line), "", 0, "L", false, 0, "")
		g.pdf.SetY(y + h)
	}
}

// DrawCenteredWrappedText wraps text to width and centers every line
func (g *PDFGenerator) DrawCenteredWrappedText(text string, size float64, bold bool, width float64) {
	for _, line := range layout.WrapText(g.Measure(size, bold), text, width) {
		g.DrawCenteredText(line, size, bold)
	}
}

// DrawTextAt draws one line at a fixed position without moving the cursor
func (g *PDFGenerator) DrawTextAt(text string, size float64, bold bool, x, y, w float64, align string) {
	g.setFont(size, bold)
	cy := g.pdf.GetY()
	g.pdf.SetXY(x, y)
	g.pdf.CellFormat(w, lineHeight(size), g.tr(text), "", 0, align, false, 0, "")
	g.pdf.SetY(cy)
}

// SetTextColor sets the color for subsequent text
func (g *PDFGenerator) SetTextColor(c PDFColor) { g.pdf.SetTextColor(c.R, c.G, c.B) }

// DrawGradientBackground fills the whole page with horizontal bands
// blending from one color to the other.
func (g *PDFGenerator) DrawGradientBackground(from, to PDFColor) {
	bands := Gradient(from, to, GradientBands)
	bandH := g.page.Height / float64(len(bands))
	for i, c := range bands {
		g.pdf.SetFillColor(c.R, c.G, c.B)
		// overlap by a point to avoid hairline gaps between bands
		g.pdf.Rect(0, float64(i)*bandH, g.page.Width, bandH+1, "F")
	}
}

// FillRect draws a filled rectangle
func (g *PDFGenerator) FillRect(r layout.Rect, c PDFColor) {
	g.pdf.SetFillColor(c.R, c.G, c.B)
	g.pdf.Rect(r.X, r.Y, r.W, r.H, "F")
}

// DrawRoundedRect draws a rectangle with rounded corners. style follows
// gofpdf: "D" stroke, "F" fill, "FD" both.
func (g *PDFGenerator) DrawRoundedRect(r layout.Rect, radius float64, style string) {
	radius = min(radius, r.W/2, r.H/2)
	// bezier control offset for a quarter circle
	k := radius * 0.5523
	x, y, w, h := r.X, r.Y, r.W, r.H

	g.pdf.MoveTo(x+radius, y)
	g.pdf.LineTo(x+w-radius, y)
	g.pdf.CurveBezierCubicTo(x+w-radius+k, y, x+w, y+radius-k, x+w, y+radius)
	g.pdf.LineTo(x+w, y+h-radius)
	g.pdf.CurveBezierCubicTo(x+w, y+h-radius+k, x+w-radius+k, y+h, x+w-radius, y+h)
	g.pdf.LineTo(x+radius, y+h)
	g.pdf.CurveBezierCubicTo(x+radius-k, y+h, x, y+h-radius+k, x, y+h-radius)
	g.pdf.LineTo(x, y+radius)
	g.pdf.CurveBezierCubicTo(x, y+radius-k, x+radius-k, y, x+radius, y)
	g.pdf.ClosePath()
	g.pdf.DrawPath(style)
}

// FillRoundedRect fills a rounded rectangle with c
func (g *PDFGenerator) FillRoundedRect(r layout.Rect, radius float64, c PDFColor) {
	g.pdf.SetFillColor(c.R, c.G, c.B)
	g.DrawRoundedRect(r, radius, "F")
}

const framePadding = 6

// DrawImageFrame draws the photo card: drop shadow, bordered background,
// the image inset by a fixed padding and a thin accent border. The image is
// registered with the document once and reused on later placements.
func (g *PDFGenerator) DrawImageFrame(img *imaging.EncodedImage, r layout.Rect) error {
	name, err := g.register(img)
	if err != nil {
		return err
	}

	outer := layout.Rect{X: r.X - framePadding, Y: r.Y - framePadding, W: r.W + 2*framePadding, H: r.H + 2*framePadding}

	g.pdf.SetAlpha(0.25, "Normal")
	g.pdf.SetFillColor(60, 60, 60)
	g.DrawRoundedRect(layout.Rect{X: outer.X + 3, Y: outer.Y + 3, W: outer.W, H: outer.H}, 6, "F")
	g.pdf.SetAlpha(1, "Normal")

	g.pdf.SetFillColor(255, 255, 255)
	g.pdf.SetDrawColor(220, 220, 220)
	g.pdf.SetLineWidth(0.8)
	g.DrawRoundedRect(outer, 6, "FD")

	g.pdf.ImageOptions(name, r.X, r.Y, r.W, r.H, false, gofpdf.ImageOptions{ImageType: img.ImageType()}, 0, "")

	a := g.options.AccentColor
	g.pdf.SetDrawColor(a.R, a.G, a.B)
	g.pdf.SetLineWidth(0.6)
	g.pdf.Rect(r.X, r.Y, r.W, r.H, "D")
	return nil
}

func (g *PDFGenerator) register(img *imaging.EncodedImage) (string, error) {
	if img == nil {
		return "", &imaging.ImageReadError{Name: "(ausente)", Err: fmt.Errorf("sem conteúdo")}
	}
	if name, ok := g.images[img]; ok {
		return name, nil
	}

	name := fmt.Sprintf("img%d", len(g.images)+1)
	g.pdf.RegisterImageOptionsReader(name, gofpdf.ImageOptions{ImageType: img.ImageType()}, bytes.NewReader(img.Data))
	if g.pdf.Err() {
		err := g.pdf.Error()
		// gofpdf errors are sticky; one bad photo must not poison the document
		g.pdf.ClearError()
		return "", &imaging.ImageReadError{Name: name, Err: err}
	}
	g.images[img] = name
	return name, nil
}

// DrawPlaceholder draws the neutral box used when a photo cannot be placed
func (g *PDFGenerator) DrawPlaceholder(r layout.Rect, message string) {
	g.pdf.SetFillColor(240, 240, 240)
	g.pdf.SetDrawColor(200, 200, 200)
	g.pdf.SetLineWidth(0.8)
	g.pdf.Rect(r.X, r.Y, r.W, r.H, "FD")

	g.pdf.SetTextColor(140, 140, 140)
	g.DrawTextAt(message, g.options.FontSize, false, r.X, r.Y+r.H/2-lineHeight(g.options.FontSize)/2, r.W, "C")
	g.pdf.SetTextColor(0, 0, 0)
}

// DrawRule draws a horizontal accent line across the content width
func (g *PDFGenerator) DrawRule() {
	g.EnsureSpace(10)
	y := g.pdf.GetY() + 4
	a := g.options.AccentColor
	g.pdf.SetDrawColor(a.R, a.G, a.B)
	g.pdf.SetLineWidth(1.5)
	g.pdf.Line(g.page.Margin, y, g.page.Width-g.page.Margin, y)
	g.pdf.SetY(y + 10)
}

// DrawLabelValue draws "Label: value" with a bold label; long values wrap
// under the label column.
func (g *PDFGenerator) DrawLabelValue(label, value string) {
	size := g.options.FontSize
	h := lineHeight(size)
	g.EnsureSpace(h)

	labelText := label + ":"
	g.setFont(size, true)
	lw := g.pdf.GetStringWidth(g.tr(labelText)) + 6
	y := g.pdf.GetY()
	g.pdf.SetTextColor(g.options.PrimaryColor.R, g.options.PrimaryColor.G, g.options.PrimaryColor.B)
	g.pdf.SetXY(g.page.Margin, y)
	g.pdf.CellFormat(lw, h, g.tr(labelText), "", 0, "L", false, 0, "")
	g.pdf.SetTextColor(0, 0, 0)
	g.pdf.SetY(y)

	g.DrawWrappedText(value, size, false, g.page.Margin+lw)
	g.pdf.SetY(g.pdf.GetY() + 2)
}

// DrawBanner draws a full-width colored bar with white bold text
func (g *PDFGenerator) DrawBanner(text string, c PDFColor) {
	size := g.options.FontSize + 1
	h := lineHeight(size) + 8
	g.EnsureSpace(h)

	y := g.pdf.GetY()
	g.FillRect(layout.Rect{X: g.page.Margin, Y: y, W: g.page.ContentWidth(), H: h}, c)
	g.pdf.SetTextColor(255, 255, 255)
	g.DrawTextAt(text, size, true, g.page.Margin+10, y+4, g.page.ContentWidth()-20, "L")
	g.pdf.SetTextColor(0, 0, 0)
	g.pdf.SetY(y + h + 8)
}

// DrawQRCode renders content as a QR code image of side size at (x, y)
func (g *PDFGenerator) DrawQRCode(content string, x, y, size float64) error {
	png, err := qrcode.Encode(content, qrcode.Medium, 256)
	if err != nil {
		return fmt.Errorf("failed to encode qr code: %w", err)
	}
	return g.DrawImageAt(&imaging.EncodedImage{Data: png, MimeType: "image/png", Width: 256, Height: 256},
		layout.Rect{X: x, Y: y, W: size, H: size})
}

// DrawImageAt places an image without frame decoration
func (g *PDFGenerator) DrawImageAt(img *imaging.EncodedImage, r layout.Rect) error {
	name, err := g.register(img)
	if err != nil {
		return err
	}
	g.pdf.ImageOptions(name, r.X, r.Y, r.W, r.H, false, gofpdf.ImageOptions{ImageType: img.ImageType()}, 0, "")
	return nil
}

// Protect restricts the finished document (permissions + owner password)
func (g *PDFGenerator) Protect(p security.Protection) {
	g.pdf.SetProtection(byte(p.Permissions), "", p.OwnerPassword)
}

// PageCount returns the number of pages drawn so far
func (g *PDFGenerator) PageCount() int { return g.pdf.PageCount() }

// PageNo returns the current page number
func (g *PDFGenerator) PageNo() int { return g.pdf.PageNo() }

// Err returns the first drawing error, if any
func (g *PDFGenerator) Err() error { return g.pdf.Error() }

// drawRunningHeader runs on every AddPage
func (g *PDFGenerator) drawRunningHeader() {
	g.mode = g.nextMode
	g.footerOff = false

	switch g.mode {
	case HeaderFull:
		g.drawFullHeader()
	case HeaderSimple:
		g.drawSimpleHeader()
	}
	g.pdf.SetTextColor(0, 0, 0)
}

func (g *PDFGenerator) drawFullHeader() {
	m := g.page.Margin
	x := m
	top := m - 10

	if g.options.HeaderLogo != nil {
		logoH := 40.0
		logoW := logoH * g.options.HeaderLogo.AspectRatio()
		if err := g.DrawImageAt(g.options.HeaderLogo, layout.Rect{X: m, Y: top, W: logoW, H: logoH}); err == nil {
			x = m + logoW + 12
		}
	}

	p := g.options.PrimaryColor
	g.pdf.SetTextColor(p.R, p.G, p.B)
	g.DrawTextAt(g.options.CompanyName, g.options.HeaderFontSize, true, x, top, g.page.Width-m-x, "L")

	g.pdf.SetTextColor(90, 90, 90)
	y := top + lineHeight(g.options.HeaderFontSize)
	for _, line := range g.options.CompanyContacts {
		g.DrawTextAt(line, 8, false, x, y, g.page.Width-m-x, "L")
		y += lineHeight(8)
	}

	bottom := max(y, top+40) + 6
	g.pdf.SetDrawColor(p.R, p.G, p.B)
	g.pdf.SetLineWidth(1)
	g.pdf.Line(m, bottom, g.page.Width-m, bottom)
	g.pdf.SetY(max(g.page.ContentTop(), bottom+14))
}

func (g *PDFGenerator) drawSimpleHeader() {
	m := g.page.Margin
	p := g.options.PrimaryColor
	g.pdf.SetTextColor(p.R, p.G, p.B)
	name := g.options.CompanyName
	if g.options.Title != "" && name != "" {
		name = name + " - " + g.options.Title
	}
	g.DrawTextAt(name, 9, true, m, m-6, g.page.ContentWidth(), "L")

	y := m + lineHeight(9)
	g.pdf.SetDrawColor(200, 200, 200)
	g.pdf.SetLineWidth(0.5)
	g.pdf.Line(m, y, g.page.Width-m, y)
	g.pdf.SetY(g.page.ContentTop())
}

// drawRunningFooter runs when a page is closed, so it sees that page's mode
func (g *PDFGenerator) drawRunningFooter() {
	if !g.options.IncludeFooter || g.footerOff {
		return
	}

	m := g.page.Margin
	y := g.page.Height - m - g.page.FooterReserve + 12
	w := g.page.ContentWidth()

	g.pdf.SetDrawColor(210, 210, 210)
	g.pdf.SetLineWidth(0.5)
	g.pdf.Line(m, y-4, g.page.Width-m, y-4)

	g.pdf.SetTextColor(120, 120, 120)
	g.DrawTextAt(g.options.GeneratedAt.Format(g.options.DateFormat), 8, false, m, y, w, "L")
	if g.options.FooterBrand != "" {
		g.DrawTextAt(g.options.FooterBrand, 8, true, m, y, w, "C")
	}
	if g.options.IncludePageNum {
		g.DrawTextAt(fmt.Sprintf("Página %d de {nb}", g.pdf.PageNo()), 8, false, m, y, w, "R")
	}
	g.pdf.SetTextColor(0, 0, 0)
}

// OutputToBytes returns the PDF as bytes
func (g *PDFGenerator) OutputToBytes() ([]byte, error) {
	var buf bytes.Buffer
	err := g.pdf.Output(&buf)
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// TitlePageDocument renders a one-page document with title centered on it
func TitlePageDocument(title string) ([]byte, error) {
	opts := DefaultPDFOptions()
	opts.IncludeHeader = false
	opts.IncludeFooter = false
	opts.Title = strings.TrimSpace(title)

	g := NewPDFGenerator(opts)
	g.AddBarePage()
	size := opts.TitleFontSize + 6
	lines := layout.WrapText(g.Measure(size, true), opts.Title, g.page.ContentWidth()*0.8)
	g.SetY((g.page.Height - float64(len(lines))*lineHeight(size)) / 2)
	for _, line := range lines {
		g.DrawCenteredText(line, size, true)
	}
	return g.OutputToBytes()
}
