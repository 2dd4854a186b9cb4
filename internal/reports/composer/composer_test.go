package composer

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"testing"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"manutencao-predial/portal-backend/internal/apperr"
	"manutencao-predial/portal-backend/internal/reports/imaging"
	"manutencao-predial/portal-backend/pkg/security"
	"manutencao-predial/portal-backend/pkg/workflows"
)

func init() {
	api.DisableConfigDir()
}

type stubAssets map[string]*imaging.EncodedImage

func (s stubAssets) Optional(name string) *imaging.EncodedImage { return s[name] }

func pageCount(t *testing.T, pdf []byte) int {
	t.Helper()
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	n, err := api.PageCount(bytes.NewReader(pdf), conf)
	require.NoError(t, err)
	return n
}

func jpegBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: 120, B: uint8(y), A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

func photo(t *testing.T, name, serviceID string) Image {
	return Image{
		Filename:    name,
		MimeType:    "image/jpeg",
		Data:        jpegBytes(t, 160, 120),
		ServiceID:   serviceID,
		Comment:     "Vista geral da fachada após a limpeza",
		CaptureDate: "2026-03-10",
	}
}

func newComposer(t *testing.T, logger *zap.Logger, protect bool) *Composer {
	t.Helper()
	skins, err := NewSkinRegistry(BuiltinSkins())
	require.NoError(t, err)
	return NewComposer(skins, stubAssets{}, security.NewPasswordSource(), Options{
		CompanyName:     "Manutenção Predial",
		CompanyContacts: []string{"(11) 4000-0000", "contato@example.com"},
		Website:         "https://example.com",
		ProtectOutput:   protect,
	}, logger)
}

func baseReport(skin string) *Report {
	return &Report{
		Skin:        skin,
		Title:       "Limpeza de fachada",
		Company:     "Condomínio Jardim",
		Location:    "Bloco A",
		Address:     "Rua das Flores, 100",
		Date:        "2026-03-10",
		Config:      DefaultReportConfig(),
		GeneratedAt: time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC),
	}
}

func TestCompose_DuplicateServicesCollapse(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	c := newComposer(t, zap.New(core), false)

	r := baseReport("standard")
	r.Services = []Service{
		{ID: "s1", Name: "Limpeza"},
		{ID: "s1", Name: "Limpeza"},
		{ID: "s3", Name: "Pintura"},
	}
	r.Images = []Image{
		photo(t, "foto10.jpg", "s1"),
		photo(t, "foto2.jpg", "s1"),
		photo(t, "foto1.jpg", "s1"),
		photo(t, "foto3.jpg", "s1"),
	}

	res, err := c.Compose(context.Background(), r)
	require.NoError(t, err)

	require.Len(t, res.Groups, 2)
	assert.Equal(t, GroupSummary{Key: "s1", Title: "Limpeza", Photos: 4, Pages: 2}, res.Groups[0])
	assert.Equal(t, GroupSummary{Key: "s3", Title: "Pintura", Photos: 0, Pages: 0}, res.Groups[1])
	assert.Contains(t, res.Warnings, "serviço duplicado ignorado: s1")
	assert.Equal(t, 1, logs.FilterMessage("Duplicate service collapsed").Len())

	// cover, title, content list, two photo pages
	assert.Equal(t, 5, res.Pages)
	assert.Equal(t, res.Pages, pageCount(t, res.PDF))
	assert.Equal(t, "limpeza-de-fachada-20260310-093000.pdf", res.Filename)
}

func TestCompose_PhaseGrouping(t *testing.T) {
	c := newComposer(t, zap.NewNop(), false)

	r := baseReport("process")
	r.Images = []Image{
		{Filename: "b.jpg", Data: jpegBytes(t, 120, 90), Phase: PhaseBefore, ServiceName: "Limpeza"},
		{Filename: "a.jpg", Data: jpegBytes(t, 120, 90), Phase: PhaseBefore},
		{Filename: "c.jpg", Data: jpegBytes(t, 120, 90)},
		{Filename: "d.jpg", Data: jpegBytes(t, 120, 90), Phase: PhaseAfter},
	}

	res, err := c.Compose(context.Background(), r)
	require.NoError(t, err)

	require.Len(t, res.Groups, 3)
	assert.Equal(t, "antes", res.Groups[0].Key)
	assert.Equal(t, 2, res.Groups[0].Pages)
	assert.Equal(t, "durante", res.Groups[1].Key)
	assert.Equal(t, 1, res.Groups[1].Pages)
	assert.Equal(t, "depois", res.Groups[2].Key)

	// cover, title, three separators, four single-photo pages
	assert.Equal(t, 9, res.Pages)
	assert.Equal(t, res.Pages, pageCount(t, res.PDF))
}

func TestPipelineAdvancesThroughEveryStage(t *testing.T) {
	sm := workflows.NewLinearStateMachine(pipeline)
	assert.Equal(t, StageStart, sm.Current())
	for _, stage := range pipeline[1:] {
		require.NoError(t, sm.Advance(stage))
	}
	assert.Equal(t, StageDone, sm.Current())
}

func TestCompose_SinglePhotoStandard(t *testing.T) {
	c := newComposer(t, zap.NewNop(), false)

	r := baseReport("standard")
	r.Services = []Service{{ID: "s1", Name: "Limpeza"}}
	r.Images = []Image{photo(t, "foto1.jpg", "s1")}

	res, err := c.Compose(context.Background(), r)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, res.Pages, 2)
	assert.Equal(t, res.Pages, pageCount(t, res.PDF))
}

func TestCompose_EverySkinRenders(t *testing.T) {
	c := newComposer(t, zap.NewNop(), false)

	for _, skin := range []string{"standard", "premiere", "mark1", "mta", "process"} {
		t.Run(skin, func(t *testing.T) {
			r := baseReport(skin)
			r.Description = "Limpeza completa da fachada com hidrojateamento."
			r.FinalConsiderations = "Serviço concluído sem ocorrências."
			r.Services = []Service{{ID: "s1", Name: "Limpeza", StartDate: "2026-03-01", EndDate: "2026-03-10", Observations: "Equipe de três pessoas"}}
			r.Images = []Image{photo(t, "foto1.jpg", "s1"), photo(t, "foto2.jpg", "s1"), photo(t, "foto3.jpg", "s1")}
			r.ResultImage = &Image{Filename: "resultado.jpg", Data: jpegBytes(t, 200, 100)}
			r.TermsImage = &Image{Filename: "termo.jpg", Data: jpegBytes(t, 100, 140)}
			if skin == "mark1" {
				r.Flowcharts = []Image{{Filename: "fluxo.jpg", Data: jpegBytes(t, 300, 200), Comment: "Fluxo de aprovação"}}
			}

			res, err := c.Compose(context.Background(), r)
			require.NoError(t, err)
			assert.True(t, bytes.HasPrefix(res.PDF, []byte("%PDF")))
			assert.GreaterOrEqual(t, res.Pages, 3)
			assert.Equal(t, res.Pages, pageCount(t, res.PDF))
			assert.Empty(t, res.Warnings)
		})
	}
}

func TestCompose_Mark1SwitchesToPhases(t *testing.T) {
	c := newComposer(t, zap.NewNop(), false)

	r := baseReport("mark1")
	r.Config.ProcessImages = true
	r.Images = []Image{
		{Filename: "1.jpg", Data: jpegBytes(t, 120, 90), Phase: PhaseAfter},
		{Filename: "2.jpg", Data: jpegBytes(t, 120, 90), Phase: PhaseBefore},
	}

	res, err := c.Compose(context.Background(), r)
	require.NoError(t, err)
	require.Len(t, res.Groups, 2)
	assert.Equal(t, "antes", res.Groups[0].Key)
	assert.Equal(t, "depois", res.Groups[1].Key)
}

func TestCompose_UnreadableImageKeepsDocument(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	c := newComposer(t, zap.New(core), false)

	r := baseReport("mta")
	r.Services = []Service{{ID: "s1", Name: "Limpeza"}}
	r.Images = []Image{
		photo(t, "ok.jpg", "s1"),
		{Filename: "quebrada.jpg", MimeType: "image/jpeg", Data: []byte("not an image"), ServiceID: "s1"},
	}

	res, err := c.Compose(context.Background(), r)
	require.NoError(t, err)
	assert.Equal(t, []string{"imagem ilegível substituída: quebrada.jpg"}, res.Warnings)
	assert.Equal(t, 2, res.Groups[0].Pages)
	assert.Equal(t, 1, logs.FilterMessage("Image unreadable, placeholder will be drawn").Len())
	assert.Equal(t, res.Pages, pageCount(t, res.PDF))
}

func TestCompose_LogoFromAssets(t *testing.T) {
	skins, err := NewSkinRegistry(BuiltinSkins())
	require.NoError(t, err)
	logo, err := imaging.NewNormalizer(1 << 20).NormalizeBytes(jpegBytes(t, 200, 80), "logo.png", "")
	require.NoError(t, err)
	c := NewComposer(skins, stubAssets{"logo.png": logo}, security.NewPasswordSource(), Options{CompanyName: "Manutenção Predial"}, zap.NewNop())

	r := baseReport("standard")
	r.Services = []Service{{ID: "s1", Name: "Limpeza"}}
	r.Images = []Image{photo(t, "foto1.jpg", "s1")}

	res, err := c.Compose(context.Background(), r)
	require.NoError(t, err)
	assert.Equal(t, res.Pages, pageCount(t, res.PDF))
}

func TestCompose_ProtectedOutput(t *testing.T) {
	c := newComposer(t, zap.NewNop(), true)

	r := baseReport("standard")
	r.Services = []Service{{ID: "s1", Name: "Limpeza"}}
	r.Images = []Image{photo(t, "foto1.jpg", "s1")}

	res, err := c.Compose(context.Background(), r)
	require.NoError(t, err)
	assert.True(t, bytes.Contains(res.PDF, []byte("/Encrypt")))
}

func TestCompose_ValidationFailures(t *testing.T) {
	strict := BuiltinSkins()
	strict[0].MaxImagesPerService = 1
	skins, err := NewSkinRegistry(strict)
	require.NoError(t, err)
	c := NewComposer(skins, stubAssets{}, security.NewPasswordSource(), Options{}, zap.NewNop())

	tests := []struct {
		name   string
		mutate func(r *Report)
		field  string
	}{
		{
			name:   "unknown skin",
			mutate: func(r *Report) { r.Skin = "gold" },
			field:  "skin",
		},
		{
			name:   "no services",
			mutate: func(r *Report) { r.Services = nil },
			field:  "services",
		},
		{
			name:   "service without name",
			mutate: func(r *Report) { r.Services = append(r.Services, Service{ID: "s2", Name: "  "}) },
			field:  "services[1].name",
		},
		{
			name:   "no images",
			mutate: func(r *Report) { r.Images = nil },
			field:  "images",
		},
		{
			name:   "invalid phase",
			mutate: func(r *Report) { r.Images[0].Phase = "ontem" },
			field:  "image_0_phase",
		},
		{
			name:   "too many images for one service",
			mutate: func(r *Report) { r.Images = append(r.Images, photo(t, "foto2.jpg", "s1")) },
			field:  "images",
		},
		{
			name: "flowcharts on a skin without them",
			mutate: func(r *Report) {
				r.Flowcharts = []Image{{Filename: "f.jpg", Data: jpegBytes(t, 10, 10)}}
			},
			field: "flowchartsCount",
		},
		{
			name: "phase report without work name",
			mutate: func(r *Report) {
				r.Skin = "process"
				r.Title = ""
			},
			field: "workName",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := baseReport("standard")
			r.Services = []Service{{ID: "s1", Name: "Limpeza"}}
			r.Images = []Image{photo(t, "foto1.jpg", "s1")}
			tt.mutate(r)

			res, err := c.Compose(context.Background(), r)
			require.Error(t, err)
			assert.Nil(t, res)
			assert.True(t, apperr.IsValidation(err))

			var appErr *apperr.Error
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, tt.field, appErr.Field)
		})
	}
}

func TestCompose_CancelledContext(t *testing.T) {
	c := newComposer(t, zap.NewNop(), false)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := baseReport("standard")
	r.Services = []Service{{ID: "s1", Name: "Limpeza"}}
	r.Images = []Image{photo(t, "foto1.jpg", "s1")}

	_, err := c.Compose(ctx, r)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReportFilename(t *testing.T) {
	at := time.Date(2026, 1, 15, 9, 30, 0, 0, time.UTC)
	standard, _ := mustRegistry(t).Get("standard")

	assert.Equal(t, "relatorio-eletrico-bloco-a-20260115-093000.pdf",
		reportFilename(&Report{Title: "Relatório Elétrico — Bloco A", GeneratedAt: at}, standard))
	assert.Equal(t, "relatorio-standard-20260115-093000.pdf",
		reportFilename(&Report{GeneratedAt: at}, standard))
}

func mustRegistry(t *testing.T) *SkinRegistry {
	t.Helper()
	r, err := NewSkinRegistry(BuiltinSkins())
	require.NoError(t, err)
	return r
}
