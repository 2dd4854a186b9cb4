package composer

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"manutencao-predial/portal-backend/internal/reports/export"
	"manutencao-predial/portal-backend/internal/reports/layout"
)

const (
	placeholderText = "Erro ao carregar imagem"
	captionSize     = 9
	captionLine     = 13
	slotGap         = 24
	slotInset       = 10
)

var (
	white = export.PDFColor{R: 255, G: 255, B: 255}
	black = export.PDFColor{}
)

const photographicIntro = "Este relatório fotográfico registra a execução dos serviços listados, " +
	"com imagens organizadas por atividade para acompanhamento do cliente."

func (b *build) cover() error {
	g := b.g
	page := g.Page()
	g.AddBarePage()
	g.DrawGradientBackground(b.pal.from, b.pal.to)

	y := page.Height * 0.2
	if b.logo != nil {
		size := layout.FitImage(
			layout.Size{W: float64(b.logo.Width), H: float64(b.logo.Height)},
			layout.Size{W: page.Width * 0.5, H: 120},
			layout.Size{W: 40, H: 40},
		)
		r := layout.Rect{X: (page.Width - size.W) / 2, Y: y, W: size.W, H: size.H}
		if err := g.DrawImageAt(b.logo, r); err != nil {
			b.warn("Logo could not be drawn on cover", zap.Error(err))
		} else {
			y += size.H + 30
		}
	}

	g.SetY(y)
	g.SetTextColor(white)
	g.DrawCenteredWrappedText(b.skin.CoverTitle, 28, true, page.ContentWidth()*0.8)
	if b.report.Title != "" {
		g.SetY(g.Y() + 10)
		g.DrawCenteredWrappedText(b.report.Title, 18, false, page.ContentWidth()*0.7)
	}

	g.SetY(page.Height * 0.75)
	if b.opts.CompanyName != "" {
		g.DrawCenteredText(b.opts.CompanyName, 14, true)
	}
	g.DrawCenteredText(b.report.GeneratedAt.Format("02/01/2006"), 11, false)

	if b.opts.Website != "" {
		const qr = 64.0
		x := page.Width - page.Margin - qr
		qy := page.Height - page.Margin - qr
		if err := g.DrawQRCode(b.opts.Website, x, qy, qr); err != nil {
			b.warn("QR code skipped", zap.Error(err))
		}
	}
	g.SetTextColor(black)
	return nil
}

func (b *build) titleInfo() error {
	g := b.g
	r := b.report
	mode := b.runningHeader()
	if r.Config.CompanyHeader {
		mode = export.HeaderFull
	}
	g.AddPage(mode)

	title := r.Title
	if title == "" {
		title = b.skin.CoverTitle
	}
	opts := g.Options()
	g.SetTextColor(b.pal.primary)
	// titles wrap narrower than body text
	g.DrawCenteredWrappedText(title, opts.TitleFontSize, true, g.Page().ContentWidth()*0.7)
	g.SetTextColor(black)
	g.DrawRule()

	pairs := []struct{ label, value string }{
		{"Cliente", r.Company},
		{"Local", r.Location},
		{"Endereço", r.Address},
		{"Data", formatDate(r.Date)},
		{"Horário", timeRange(r.StartTime, r.EndTime)},
	}
	if !b.skin.Has(SectionDescription) {
		pairs = append(pairs, struct{ label, value string }{"Descrição", r.Description})
	}
	for _, p := range pairs {
		if strings.TrimSpace(p.value) != "" {
			g.DrawLabelValue(p.label, p.value)
		}
	}

	if r.Config.PhotographicReport {
		g.SetY(g.Y() + 12)
		b.heading("Relatório fotográfico")
		g.DrawWrappedText(photographicIntro, opts.FontSize, false, g.Page().Margin)
	}
	return nil
}

func (b *build) description() error {
	if !b.skin.Has(SectionDescription) || strings.TrimSpace(b.report.Description) == "" {
		return nil
	}
	b.g.AddPage(b.runningHeader())
	b.heading("Descrição dos serviços")
	b.g.DrawWrappedText(b.report.Description, b.g.Options().FontSize, false, b.g.Page().Margin)
	return nil
}

// contentList paginates like any other wrapped text
func (b *build) contentList() error {
	cfg := b.report.Config
	if !b.skin.Has(SectionContentList) || !cfg.ServicesList || len(b.services) == 0 ||
		b.skin.groupingFor(cfg) != ByService {
		return nil
	}

	g := b.g
	g.AddPage(b.runningHeader())
	b.heading("Serviços executados")
	for i, s := range b.services {
		line := fmt.Sprintf("%d. %s", i+1, s.Name)
		if cfg.ServiceDates {
			if dr := dateRange(s.StartDate, s.EndDate); dr != "" {
				line += " (" + dr + ")"
			}
		}
		g.DrawWrappedText(line, g.Options().FontSize, false, g.Page().Margin+10)
	}
	return nil
}

func (b *build) photos() error {
	var groups []PhotoGroup
	byPhase := b.skin.groupingFor(b.report.Config) == ByPhase
	if byPhase {
		groups = GroupByPhase(b.report.Images)
	} else {
		groups = GroupImages(b.services, b.report.Images)
	}

	for _, group := range groups {
		if err := b.ctx.Err(); err != nil {
			return err
		}
		if byPhase {
			b.phaseSeparator(group.Phase)
		}

		summary := GroupSummary{Key: group.Key, Title: group.Title, Photos: len(group.Images)}
		if len(group.Images) > 0 {
			before := b.g.PageCount()
			b.photoPages(group, byPhase)
			summary.Pages = b.g.PageCount() - before
		}
		b.groups = append(b.groups, summary)
	}
	return nil
}

func (b *build) phaseSeparator(p Phase) {
	g := b.g
	page := g.Page()
	g.AddBarePage()
	g.FillRect(layout.Rect{W: page.Width, H: page.Height}, b.pal.separator)
	g.SetTextColor(white)
	g.SetY(page.Height/2 - 30)
	g.DrawCenteredText("FASE: "+p.Label(), 36, true)
	g.SetTextColor(black)
}

func (b *build) photoPages(group PhotoGroup, byPhase bool) {
	g := b.g
	page := g.Page()
	perPage := b.skin.PhotosPerPage

	for ci, ch := range layout.Chunk(len(group.Images), perPage) {
		g.AddPage(b.runningHeader())
		b.groupBanner(group, ci == 0)

		// long observations leave too little room; photos move to a fresh page
		if page.ContentBottom()-g.Y() < page.ContentHeight()*0.4 {
			g.AddPage(b.runningHeader())
			b.groupBanner(group, false)
		}

		area := layout.Rect{
			X: page.Margin,
			Y: g.Y() + slotInset,
			W: page.ContentWidth(),
			H: page.ContentBottom() - g.Y() - 2*slotInset,
		}
		slots := layout.Slots(area, perPage, slotGap)
		for k, idx := range group.Images[ch[0]:ch[1]] {
			b.placePhoto(idx, slots[k], byPhase)
		}
	}
}

func (b *build) groupBanner(group PhotoGroup, first bool) {
	g := b.g
	cfg := b.report.Config
	if group.Service == nil {
		g.DrawBanner(group.Title, b.pal.primary)
		return
	}

	g.DrawBanner("Serviço: "+group.Title, b.pal.primary)
	size := g.Options().FontSize - 1
	if cfg.ServiceDates {
		if dr := dateRange(group.Service.StartDate, group.Service.EndDate); dr != "" {
			g.DrawWrappedText("Período: "+dr, size, false, g.Page().Margin)
		}
	}
	if first && cfg.ServiceObservations && strings.TrimSpace(group.Service.Observations) != "" {
		g.DrawWrappedText("Observações: "+group.Service.Observations, size, false, g.Page().Margin)
	}
}

func (b *build) placePhoto(idx int, slot layout.Rect, byPhase bool) {
	img := b.report.Images[idx]
	b.photoNo++

	label := fmt.Sprintf("Foto %d", b.photoNo)
	if byPhase && img.ServiceName != "" {
		label += " - " + img.ServiceName
	}
	caption := layout.Caption{Label: label, LineHeight: captionLine}
	if img.CaptureDate != "" {
		caption.Date = "Data: " + formatDate(img.CaptureDate)
	}
	if b.report.Config.ImageComments {
		caption.Comment = strings.TrimSpace(img.Comment)
	}

	b.placeBlock(b.images[idx], img.Filename, caption, slot)
}

// placeBlock draws one image block (label, framed image, date, comment)
// inside slot, substituting a placeholder when the image is unusable.
func (b *build) placeBlock(enc encoded, name string, caption layout.Caption, slot layout.Rect) {
	g := b.g
	size := layout.Size{W: 4, H: 3}
	if enc.img != nil {
		size = layout.Size{W: float64(enc.img.Width), H: float64(enc.img.Height)}
	}

	block := layout.PlaceImageBlock(g.Measure(captionSize, false), size, caption, slot)
	g.SetTextColor(b.pal.primary)
	g.DrawTextAt(caption.Label, captionSize+1, true, slot.X, block.LabelY, slot.W, "C")
	g.SetTextColor(black)

	err := enc.err
	if err == nil {
		err = g.DrawImageFrame(enc.img, block.Image)
	}
	if err != nil {
		g.DrawPlaceholder(block.Image, placeholderText)
		if enc.err == nil {
			b.warn("Image could not be embedded, placeholder drawn", zap.String("filename", name), zap.Error(err))
			b.warnings = append(b.warnings, fmt.Sprintf("imagem ilegível substituída: %s", name))
		}
	}

	if caption.Date != "" {
		g.DrawTextAt(caption.Date, captionSize, false, block.Image.X, block.DateY, block.Image.W, "C")
	}
	for i, line := range block.CommentLines {
		g.DrawTextAt(line, captionSize, false, block.Image.X, block.CommentY+float64(i)*captionLine, block.Image.W, "C")
	}
}

func (b *build) flowchartPages() error {
	if !b.skin.Has(SectionFlowcharts) {
		return nil
	}
	for i, fc := range b.report.Flowcharts {
		b.g.AddPage(b.runningHeader())
		b.heading(fmt.Sprintf("Fluxograma %d", i+1))
		caption := layout.Caption{Label: fc.Filename, Comment: strings.TrimSpace(fc.Comment), LineHeight: captionLine}
		b.placeBlock(b.flowcharts[i], fc.Filename, caption, b.remainingArea())
	}
	return nil
}

func (b *build) resultPage() error {
	if !b.skin.Has(SectionResult) || !b.report.Config.ResultImage || b.result == nil {
		return nil
	}
	b.g.AddPage(b.runningHeader())
	b.heading("Resultado")
	img := b.report.ResultImage
	caption := layout.Caption{Label: "Resultado final", LineHeight: captionLine}
	if b.report.Config.ImageComments {
		caption.Comment = strings.TrimSpace(img.Comment)
	}
	b.placeBlock(*b.result, img.Filename, caption, b.remainingArea())
	return nil
}

func (b *build) considerations() error {
	text := strings.TrimSpace(b.report.FinalConsiderations)
	if !b.skin.Has(SectionConsiderations) || !b.report.Config.FinalConsiderations || text == "" {
		return nil
	}
	b.g.AddPage(b.runningHeader())
	b.heading("Considerações finais")
	b.g.DrawWrappedText(text, b.g.Options().FontSize, false, b.g.Page().Margin)
	return nil
}

// termsPage fills one page with the supplied image inside a themed border
func (b *build) termsPage() error {
	if !b.skin.Has(SectionTerms) || b.terms == nil {
		return nil
	}
	g := b.g
	page := g.Page()
	g.AddPage(export.HeaderNone)

	area := layout.Rect{X: page.Margin, Y: page.Margin, W: page.ContentWidth(), H: page.ContentBottom() - page.Margin}
	size := layout.Size{W: 4, H: 3}
	if b.terms.img != nil {
		size = layout.Size{W: float64(b.terms.img.Width), H: float64(b.terms.img.Height)}
	}
	fit := layout.FitImage(size, layout.Size{W: area.W - 2*slotInset, H: area.H - 2*slotInset}, layout.MinImageSize)
	r := layout.Rect{X: area.X + (area.W-fit.W)/2, Y: area.Y + (area.H-fit.H)/2, W: fit.W, H: fit.H}

	g.FillRect(layout.Rect{X: r.X - 4, Y: r.Y - 4, W: r.W + 8, H: r.H + 8}, b.pal.primary)
	err := b.terms.err
	if err == nil {
		err = g.DrawImageAt(b.terms.img, r)
	}
	if err != nil {
		g.DrawPlaceholder(r, placeholderText)
	}
	return nil
}

func (b *build) heading(text string) {
	g := b.g
	g.SetTextColor(b.pal.primary)
	g.DrawWrappedText(text, g.Options().HeaderFontSize, true, g.Page().Margin)
	g.SetTextColor(black)
	g.SetY(g.Y() + 6)
}

func (b *build) remainingArea() layout.Rect {
	page := b.g.Page()
	y := b.g.Y() + slotInset
	return layout.Rect{X: page.Margin, Y: y, W: page.ContentWidth(), H: page.ContentBottom() - y - slotInset}
}

func timeRange(start, end string) string {
	start, end = strings.TrimSpace(start), strings.TrimSpace(end)
	switch {
	case start != "" && end != "":
		return start + " às " + end
	case start != "":
		return start
	}
	return end
}
