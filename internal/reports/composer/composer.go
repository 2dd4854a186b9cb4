// Package composer turns a report request into a finished PDF. All five
// skins run the same staged pipeline; a skin only supplies colors,
// orientation, photo density, grouping and the optional sections it
// enables.
package composer

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"manutencao-predial/portal-backend/internal/apperr"
	"manutencao-predial/portal-backend/internal/reports/export"
	"manutencao-predial/portal-backend/internal/reports/imaging"
	"manutencao-predial/portal-backend/pkg/security"
	"manutencao-predial/portal-backend/pkg/workflows"
)

// Pipeline stages, in the only order they may run
const (
	StageStart          = "start"
	StageCover          = "cover"
	StageTitleInfo      = "title_info"
	StageDescription    = "description"
	StageContentList    = "content_list"
	StagePhotos         = "photos"
	StageFlowcharts     = "flowcharts"
	StageResult         = "result"
	StageConsiderations = "considerations"
	StageTerms          = "terms"
	StageDone           = "done"
)

// the machine starts in StageStart, which no step advances into
var pipeline = []string{
	StageStart, StageCover, StageTitleInfo, StageDescription, StageContentList, StagePhotos,
	StageFlowcharts, StageResult, StageConsiderations, StageTerms, StageDone,
}

// AssetSource provides optional static images
type AssetSource interface {
	Optional(name string) *imaging.EncodedImage
}

// Options carries company data shared by every skin
type Options struct {
	CompanyName     string
	CompanyContacts []string
	Website         string
	ProtectOutput   bool
}

// Composer renders reports. It holds no per-request state and is safe for
// concurrent use.
type Composer struct {
	skins     *SkinRegistry
	assets    AssetSource
	passwords security.PasswordSource
	options   Options
	logger    *zap.Logger
}

func NewComposer(skins *SkinRegistry, assets AssetSource, passwords security.PasswordSource, options Options, logger *zap.Logger) *Composer {
	return &Composer{
		skins:     skins,
		assets:    assets,
		passwords: passwords,
		options:   options,
		logger:    logger,
	}
}

// Skins returns the registry the composer resolves skins from
func (c *Composer) Skins() *SkinRegistry { return c.skins }

type encoded struct {
	img *imaging.EncodedImage
	err error
}

// build is the transient layout context of one generation
type build struct {
	ctx      context.Context
	report   *Report
	skin     Skin
	pal      palette
	opts     Options
	g        *export.PDFGenerator
	sm       *workflows.StateMachine
	logger   *zap.Logger
	services []Service
	logo     *imaging.EncodedImage

	images     []encoded
	flowcharts []encoded
	result     *encoded
	terms      *encoded

	photoNo  int
	groups   []GroupSummary
	warnings []string
}

// Compose validates the report, normalizes every photo once and renders
// the document. Either a complete document or an error is returned.
func (c *Composer) Compose(ctx context.Context, r *Report) (*Result, error) {
	skin, ok := c.skins.Get(r.Skin)
	if !ok {
		return nil, apperr.Validation("skin", fmt.Sprintf("modelo de relatório desconhecido: %q", r.Skin))
	}
	if r.GeneratedAt.IsZero() {
		r.GeneratedAt = time.Now()
	}

	logger := c.logger.With(zap.String("skin", skin.ID))

	services, dropped := DedupeServices(r.Services)
	b := &build{
		ctx:      ctx,
		report:   r,
		skin:     skin,
		opts:     c.options,
		sm:       workflows.NewLinearStateMachine(pipeline),
		logger:   logger,
		services: services,
	}
	for _, id := range dropped {
		logger.Warn("Duplicate service collapsed", zap.String("service_id", id))
		b.warnings = append(b.warnings, fmt.Sprintf("serviço duplicado ignorado: %s", id))
	}

	if err := Validate(r, skin, services); err != nil {
		return nil, err
	}

	pal, err := skin.palette()
	if err != nil {
		return nil, apperr.Internal(err)
	}
	b.pal = pal

	b.normalizeAll()
	b.logo = c.assets.Optional(skin.Logo)
	b.g = export.NewPDFGenerator(b.pdfOptions())
	b.g.SetContinuationHeader(b.runningHeader())

	steps := []struct {
		stage string
		run   func() error
	}{
		{StageCover, b.cover},
		{StageTitleInfo, b.titleInfo},
		{StageDescription, b.description},
		{StageContentList, b.contentList},
		{StagePhotos, b.photos},
		{StageFlowcharts, b.flowchartPages},
		{StageResult, b.resultPage},
		{StageConsiderations, b.considerations},
		{StageTerms, b.termsPage},
	}
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := b.sm.Advance(step.stage); err != nil {
			return nil, apperr.Internal(err)
		}
		if err := step.run(); err != nil {
			return nil, err
		}
	}
	if err := b.sm.Advance(StageDone); err != nil {
		return nil, apperr.Internal(err)
	}

	if skin.Protect && c.options.ProtectOutput {
		p, err := security.PrintOnly(c.passwords)
		if err != nil {
			return nil, apperr.Internal(fmt.Errorf("owner password: %w", err))
		}
		b.g.Protect(p)
	}

	if err := b.g.Err(); err != nil {
		return nil, apperr.Internal(fmt.Errorf("render %s: %w", skin.ID, err))
	}
	pages := b.g.PageCount()
	pdf, err := b.g.OutputToBytes()
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("serialize %s: %w", skin.ID, err))
	}

	logger.Info("Report composed",
		zap.Int("pages", pages),
		zap.Int("photos", len(r.Images)),
		zap.Int("groups", len(b.groups)),
		zap.Int("bytes", len(pdf)),
	)

	return &Result{
		PDF:      pdf,
		Pages:    pages,
		Groups:   b.groups,
		Warnings: b.warnings,
		Filename: reportFilename(r, skin),
	}, nil
}

func (b *build) normalizeAll() {
	n := imaging.NewNormalizer(b.skin.ImageBudgetKB << 10)
	encode := func(img Image) encoded {
		enc, err := n.NormalizeBytes(img.Data, img.Filename, img.MimeType)
		if err != nil {
			b.logger.Warn("Image unreadable, placeholder will be drawn",
				zap.String("filename", img.Filename),
				zap.Error(err),
			)
			b.warnings = append(b.warnings, fmt.Sprintf("imagem ilegível substituída: %s", img.Filename))
		}
		return encoded{img: enc, err: err}
	}

	b.images = make([]encoded, len(b.report.Images))
	for i, img := range b.report.Images {
		b.images[i] = encode(img)
	}
	b.flowcharts = make([]encoded, len(b.report.Flowcharts))
	for i, img := range b.report.Flowcharts {
		b.flowcharts[i] = encode(img)
	}
	if b.report.ResultImage != nil {
		e := encode(*b.report.ResultImage)
		b.result = &e
	}
	if b.report.TermsImage != nil {
		e := encode(*b.report.TermsImage)
		b.terms = &e
	}
}

func (b *build) pdfOptions() export.PDFOptions {
	cfg := b.report.Config
	opts := export.DefaultPDFOptions()
	opts.Orientation = b.skin.Orientation
	opts.Title = b.skin.Name
	if b.report.Title != "" {
		opts.Title = b.report.Title
	}
	opts.Author = b.opts.CompanyName
	opts.CompanyName = b.opts.CompanyName
	opts.CompanyContacts = b.opts.CompanyContacts
	opts.FooterBrand = b.skin.Brand
	opts.PrimaryColor = b.pal.primary
	opts.AccentColor = b.pal.accent
	opts.IncludeHeader = cfg.HeaderFooter || cfg.CompanyHeader
	opts.IncludeFooter = cfg.HeaderFooter
	opts.GeneratedAt = b.report.GeneratedAt
	if cfg.CompanyHeader {
		opts.HeaderLogo = b.logo
	}
	return opts
}

// runningHeader is the header of ordinary content pages
func (b *build) runningHeader() export.HeaderMode {
	if b.report.Config.HeaderFooter {
		return export.HeaderSimple
	}
	return export.HeaderNone
}

func (b *build) warn(msg string, fields ...zap.Field) {
	b.logger.Warn(msg, fields...)
}

func reportFilename(r *Report, skin Skin) string {
	base := Slugify(r.Title)
	if base == "" {
		base = "relatorio-" + skin.ID
	}
	return fmt.Sprintf("%s-%s.pdf", base, r.GeneratedAt.Format("20060102-150405"))
}
