package cronograma

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"manutencao-predial/portal-backend/internal/reports/export"
	"manutencao-predial/portal-backend/internal/reports/imaging"
	"manutencao-predial/portal-backend/internal/reports/layout"
)

// Status colors; anything else prints gray
var statusColors = map[Status]export.PDFColor{
	StatusPending:    export.MustHexColor("#f59e0b"),
	StatusInProgress: export.MustHexColor("#3b82f6"),
	StatusDone:       export.MustHexColor("#22c55e"),
}

var unknownStatusColor = export.MustHexColor("#9ca3af")

// StatusColor returns the card color of s
func StatusColor(s Status) export.PDFColor {
	if c, ok := statusColors[s]; ok {
		return c
	}
	return unknownStatusColor
}

const (
	cardHeight      = 52
	cardObsHeight   = 14
	cardGap         = 8
	cardBar         = 6
	badgeWidth      = 92
	badgeHeight     = 16
	progressHeight  = 14
	summaryHeight   = 170
	defaultTitle    = "Cronograma de atividades"
	defaultLogoName = "logo.png"
)

var (
	cardBackground = export.PDFColor{R: 248, G: 248, B: 248}
	barBackground  = export.PDFColor{R: 229, G: 231, B: 235}
	white          = export.PDFColor{R: 255, G: 255, B: 255}
	black          = export.PDFColor{}
	muted          = export.PDFColor{R: 90, G: 90, B: 90}
)

// LogoSource provides the optional header logo
type LogoSource interface {
	Optional(name string) *imaging.EncodedImage
}

// RendererOptions carries company data printed on every page
type RendererOptions struct {
	CompanyName     string
	CompanyContacts []string
	Brand           string
	Logo            string
	PrimaryColor    string
}

// Renderer prints a schedule as status-colored activity cards followed by
// a summary with a progress bar
type Renderer struct {
	options RendererOptions
	logos   LogoSource
	logger  *zap.Logger
}

func NewRenderer(options RendererOptions, logos LogoSource, logger *zap.Logger) *Renderer {
	if options.Logo == "" {
		options.Logo = defaultLogoName
	}
	return &Renderer{options: options, logos: logos, logger: logger}
}

// Render returns the document and its page count
func (r *Renderer) Render(doc Document) ([]byte, int, error) {
	g, items, err := r.compose(doc)
	if err != nil {
		return nil, 0, err
	}
	pages := g.PageCount()
	pdf, err := g.OutputToBytes()
	if err != nil {
		return nil, 0, err
	}

	r.logger.Info("Schedule rendered", zap.Int("items", items), zap.Int("pages", pages))
	return pdf, pages, nil
}

// compose draws doc and returns the generator before serialization
func (r *Renderer) compose(doc Document) (*export.PDFGenerator, int, error) {
	if doc.GeneratedAt.IsZero() {
		doc.GeneratedAt = time.Now()
	}
	title := strings.TrimSpace(doc.Title)
	if title == "" {
		title = defaultTitle
	}

	opts := export.DefaultPDFOptions()
	opts.Title = title
	opts.Author = r.options.CompanyName
	opts.CompanyName = r.options.CompanyName
	opts.CompanyContacts = r.options.CompanyContacts
	opts.FooterBrand = r.options.Brand
	opts.GeneratedAt = doc.GeneratedAt
	if r.options.PrimaryColor != "" {
		c, err := export.ParseHexColor(r.options.PrimaryColor)
		if err != nil {
			return nil, 0, err
		}
		opts.PrimaryColor = c
	}
	if r.logos != nil {
		opts.HeaderLogo = r.logos.Optional(r.options.Logo)
	}

	g := export.NewPDFGenerator(opts)
	g.SetContinuationHeader(export.HeaderSimple)
	g.AddPage(export.HeaderFull)

	g.SetTextColor(opts.PrimaryColor)
	g.DrawCenteredWrappedText(title, opts.TitleFontSize, true, g.Page().ContentWidth()*0.7)
	g.SetTextColor(muted)
	g.DrawCenteredText(fmt.Sprintf("%d atividades | emitido em %s", len(doc.Items), doc.GeneratedAt.Format("02/01/2006")), 10, false)
	g.SetTextColor(black)
	g.DrawRule()

	items := append([]Item(nil), doc.Items...)
	sortByOrder(items)

	plan := planPages(g.Page(), g.Y()-g.Page().ContentTop(), items)
	for i, item := range items {
		turnTo(g, plan[i])
		r.drawCard(g, i+1, item)
	}
	turnTo(g, plan[len(items)])
	r.drawSummary(g, ComputeStats(items))

	if err := g.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to render schedule: %w", err)
	}
	return g, len(items), nil
}

// planPages assigns every card, then the summary, to a 0-based page. Cards
// and the summary are never split; the title block opens the first page.
func planPages(page layout.Page, titleHeight float64, items []Item) []int {
	heights := make([]float64, 0, len(items)+2)
	heights = append(heights, titleHeight)
	for _, item := range items {
		heights = append(heights, cardHeightOf(item)+cardGap)
	}
	heights = append(heights, summaryHeight)
	return layout.FlowBlocks(page, heights)[1:]
}

// turnTo opens continuation pages until the 0-based page index is current
func turnTo(g *export.PDFGenerator, page int) {
	for g.PageNo() < page+1 {
		g.AddPage(export.HeaderSimple)
	}
}

func cardHeightOf(item Item) float64 {
	if strings.TrimSpace(item.Observations) != "" {
		return cardHeight + cardObsHeight
	}
	return cardHeight
}

func (r *Renderer) drawCard(g *export.PDFGenerator, n int, item Item) {
	page := g.Page()
	h := cardHeightOf(item)
	obs := strings.TrimSpace(item.Observations)

	y := g.Y()
	x := page.Margin
	w := page.ContentWidth()
	color := StatusColor(item.Status)

	card := layout.Rect{X: x, Y: y, W: w, H: h}
	g.FillRoundedRect(card, 4, cardBackground)
	g.FillRect(layout.Rect{X: x, Y: y, W: cardBar, H: h}, color)

	textX := x + cardBar + 10
	badgeX := x + w - badgeWidth - 10
	titleW := badgeX - textX - 10

	label := fmt.Sprintf("%d. ", n)
	activity := layout.Truncate(g.Measure(11, true), label+strings.TrimSpace(item.Activity), titleW)
	g.DrawTextAt(activity, 11, true, textX, y+8, titleW, "L")

	g.FillRoundedRect(layout.Rect{X: badgeX, Y: y + 8, W: badgeWidth, H: badgeHeight}, badgeHeight/2, color)
	g.SetTextColor(white)
	g.DrawTextAt(item.Status.Label(), 8, true, badgeX, y+10, badgeWidth, "C")

	g.SetTextColor(muted)
	g.DrawTextAt(periodText(item.StartDate, item.EndDate), 9, false, textX, y+28, w-cardBar-20, "L")
	if obs != "" {
		text := layout.Truncate(g.Measure(9, false), "Obs.: "+obs, w-cardBar-20)
		g.DrawTextAt(text, 9, false, textX, y+28+cardObsHeight, w-cardBar-20, "L")
	}
	g.SetTextColor(black)
	g.SetY(card.Bottom() + cardGap)
}

func (r *Renderer) drawSummary(g *export.PDFGenerator, s Stats) {
	g.SetY(g.Y() + 6)
	g.DrawBanner("Resumo", g.Options().PrimaryColor)

	size := g.Options().FontSize
	for _, row := range []struct {
		label string
		value int
		color export.PDFColor
	}{
		{"Pendentes", s.Pending, StatusColor(StatusPending)},
		{"Em andamento", s.InProgress, StatusColor(StatusInProgress)},
		{"Concluídas", s.Done, StatusColor(StatusDone)},
	} {
		y := g.Y()
		g.FillRect(layout.Rect{X: g.Page().Margin, Y: y + 3, W: 8, H: 8}, row.color)
		g.DrawTextAt(fmt.Sprintf("%s: %d", row.label, row.value), size, false, g.Page().Margin+14, y, 200, "L")
		g.SetY(y + size*1.4)
	}
	if s.Other > 0 {
		g.DrawLabelValue("Sem status reconhecido", fmt.Sprintf("%d", s.Other))
	}
	g.DrawLabelValue("Total de atividades", fmt.Sprintf("%d", s.Total))
	g.DrawLabelValue("Conclusão", fmt.Sprintf("%.0f%%", s.Percent))

	y := g.Y() + 4
	bar := layout.Rect{X: g.Page().Margin, Y: y, W: g.Page().ContentWidth(), H: progressHeight}
	g.FillRoundedRect(bar, progressHeight/2, barBackground)
	if fill := s.FillWidth(bar.W); fill > 0 {
		g.FillRoundedRect(layout.Rect{X: bar.X, Y: bar.Y, W: fill, H: bar.H}, progressHeight/2, StatusColor(StatusDone))
	}
	g.SetY(y + progressHeight + 8)
}

func periodText(start, end string) string {
	start, end = formatDate(start), formatDate(end)
	switch {
	case start != "" && end != "":
		return "Período: " + start + " a " + end
	case start != "":
		return "Início: " + start
	case end != "":
		return "Término: " + end
	}
	return "Período não informado"
}

func formatDate(s string) string {
	s = strings.TrimSpace(s)
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t.Format("02/01/2006")
	}
	return s
}
