package merge

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/jung-kurt/gofpdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const (
	a4W = 595.28
	a4H = 841.89
)

type dims struct{ w, h float64 }

// document builds a pdf with n pages of the given size
func document(t *testing.T, n int, size dims) []byte {
	t.Helper()
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "pt",
		Size:    gofpdf.SizeType{Wd: size.w, Ht: size.h},
	})
	pdf.SetFont("Arial", "", 12)
	for i := 0; i < n; i++ {
		pdf.AddPage()
		pdf.Cell(100, 20, "pagina")
	}
	var buf bytes.Buffer
	require.NoError(t, pdf.Output(&buf))
	return buf.Bytes()
}

func pageDims(t *testing.T, pdf []byte) []dims {
	t.Helper()
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	ds, err := api.PageDims(bytes.NewReader(pdf), conf)
	require.NoError(t, err)
	out := make([]dims, len(ds))
	for i, d := range ds {
		out[i] = dims{w: d.Width, h: d.Height}
	}
	return out
}

func TestMerge_SeparatorOnlyWhereTitled(t *testing.T) {
	m := NewMerger(zap.NewNop())

	res, err := m.Merge(context.Background(), []Input{
		{Name: "A.pdf", PDF: document(t, 2, dims{300, 400})},
		{Name: "B.pdf", PDF: document(t, 1, dims{300, 400}), SeparatorTitle: "Section B"},
	}, "")
	require.NoError(t, err)

	assert.Equal(t, 4, res.Pages)
	assert.Empty(t, res.Skipped)
	assert.Len(t, pageDims(t, res.PDF), 4)
}

func TestMerge_PageOrder(t *testing.T) {
	sizeA := dims{300, 400}
	sizeB := dims{400, 300}
	sizeC := dims{500, 500}
	title := dims{a4W, a4H}

	tests := []struct {
		name   string
		inputs []Input
		intro  string
		want   []dims
	}{
		{
			name: "intro and every separator",
			inputs: []Input{
				{PDF: document(t, 1, sizeA), SeparatorTitle: "A"},
				{PDF: document(t, 2, sizeB), SeparatorTitle: "B"},
			},
			intro: "Relatórios",
			want:  []dims{title, title, sizeA, title, sizeB, sizeB},
		},
		{
			name: "no titles",
			inputs: []Input{
				{PDF: document(t, 2, sizeC)},
				{PDF: document(t, 1, sizeA)},
				{PDF: document(t, 1, sizeB)},
			},
			want: []dims{sizeC, sizeC, sizeA, sizeB},
		},
		{
			name: "bad input in the middle",
			inputs: []Input{
				{PDF: document(t, 1, sizeB), SeparatorTitle: "B"},
				{PDF: []byte("%PDF-1.4 broken"), SeparatorTitle: "never"},
				{PDF: document(t, 3, sizeA)},
			},
			want: []dims{title, sizeB, sizeA, sizeA, sizeA},
		},
	}

	m := NewMerger(zap.NewNop())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := m.Merge(context.Background(), tt.inputs, tt.intro)
			require.NoError(t, err)

			got := pageDims(t, res.PDF)
			require.Len(t, got, len(tt.want))
			for i := range tt.want {
				assert.InDelta(t, tt.want[i].w, got[i].w, 0.5, "page %d width", i+1)
				assert.InDelta(t, tt.want[i].h, got[i].h, 0.5, "page %d height", i+1)
			}
			assert.Equal(t, len(tt.want), res.Pages)
		})
	}
}

func TestMerge_SkipsUnreadable(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	m := NewMerger(zap.New(core))

	res, err := m.Merge(context.Background(), []Input{
		{Name: "vazio.pdf"},
		{Name: "lixo.pdf", PDF: []byte("not a pdf")},
		{Name: "ok.pdf", PDF: document(t, 2, dims{300, 400})},
	}, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"vazio.pdf", "lixo.pdf"}, res.Skipped)
	assert.Equal(t, 2, res.Pages)
	assert.Equal(t, 2, logs.FilterMessage("Skipping unreadable pdf").Len())
}

func TestMerge_InputThatBreaksJoinIsSkipped(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	m := NewMerger(zap.New(core))

	bad := document(t, 3, dims{300, 400})
	join := m.join
	m.join = func(parts [][]byte) ([]byte, error) {
		for _, p := range parts {
			if bytes.Equal(p, bad) {
				return nil, errors.New("corrupt object stream")
			}
		}
		return join(parts)
	}

	res, err := m.Merge(context.Background(), []Input{
		{Name: "A.pdf", PDF: document(t, 1, dims{300, 400})},
		{Name: "quebrado.pdf", PDF: bad, SeparatorTitle: "Quebrado"},
		{Name: "B.pdf", PDF: document(t, 2, dims{400, 300}), SeparatorTitle: "Seção B"},
	}, "Introdução")
	require.NoError(t, err)

	assert.Equal(t, []string{"quebrado.pdf"}, res.Skipped)
	// intro + A + separator B + B
	assert.Equal(t, 5, res.Pages)
	assert.Len(t, pageDims(t, res.PDF), 5)
	assert.Equal(t, 1, logs.FilterMessage("Merge failed, joining inputs one at a time").Len())
	assert.Equal(t, 1, logs.FilterMessage("Skipping unreadable pdf").Len())
}

func TestMerge_KeepsWhatJoins(t *testing.T) {
	m := NewMerger(zap.NewNop())
	m.join = func(parts [][]byte) ([]byte, error) {
		if len(parts) == 1 {
			return parts[0], nil
		}
		return nil, errors.New("broken")
	}

	res, err := m.Merge(context.Background(), []Input{
		{Name: "A.pdf", PDF: document(t, 1, dims{300, 400})},
		{Name: "B.pdf", PDF: document(t, 2, dims{300, 400})},
	}, "")
	// the first input alone still joins; the second is dropped
	require.NoError(t, err)
	assert.Equal(t, []string{"B.pdf"}, res.Skipped)
	assert.Equal(t, 1, res.Pages)
}

func TestMerge_NothingValid(t *testing.T) {
	m := NewMerger(zap.NewNop())

	_, err := m.Merge(context.Background(), []Input{{PDF: []byte("junk")}}, "")
	assert.ErrorIs(t, err, ErrNoValidInput)

	_, err = m.Merge(context.Background(), nil, "")
	assert.ErrorIs(t, err, ErrNoValidInput)

	res, err := m.Merge(context.Background(), []Input{{PDF: []byte("junk")}}, "Somente capa")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Pages)
}

func TestMerge_Cancelled(t *testing.T) {
	m := NewMerger(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.Merge(ctx, []Input{{PDF: document(t, 1, dims{300, 400})}}, "")
	assert.ErrorIs(t, err, context.Canceled)
}
