// Package merge concatenates PDF documents, optionally preceded by an
// introduction page and with a title page before any input that asks for
// one. Input pages are copied verbatim.
package merge

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"go.uber.org/zap"

	"manutencao-predial/portal-backend/internal/reports/export"
)

// ErrNoValidInput is returned when no input could be parsed and there is no
// introduction page to emit.
var ErrNoValidInput = errors.New("no valid pdf to merge")

// Input is one document to merge
type Input struct {
	Name           string
	PDF            []byte
	SeparatorTitle string
}

// Result is the merged document
type Result struct {
	PDF     []byte
	Pages   int
	Skipped []string
}

// Merger merges documents with pdfcpu
type Merger struct {
	logger *zap.Logger
	join   func(parts [][]byte) ([]byte, error)
}

func NewMerger(logger *zap.Logger) *Merger {
	api.DisableConfigDir()
	m := &Merger{logger: logger}
	m.join = m.concat
	return m
}

func (m *Merger) config() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// section is the separator page (if any) and the pages of one input
type section struct {
	name  string
	index int
	docs  [][]byte
}

// Merge emits intro (when set), then for every readable input its separator
// page (when titled) followed by all of its pages. Unreadable inputs are
// skipped and reported in Result.Skipped, including inputs that parse but
// cannot be joined with the others.
func (m *Merger) Merge(ctx context.Context, inputs []Input, intro string) (*Result, error) {
	var head [][]byte
	res := &Result{}

	if intro != "" {
		page, err := export.TitlePageDocument(intro)
		if err != nil {
			return nil, fmt.Errorf("failed to render introduction page: %w", err)
		}
		head = append(head, page)
	}

	var sections []section
	for i, in := range inputs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		name := in.Name
		if name == "" {
			name = fmt.Sprintf("pdf-%d", i)
		}

		if err := m.screen(in.PDF); err != nil {
			m.skip(res, name, i, err)
			continue
		}

		sec := section{name: name, index: i}
		if in.SeparatorTitle != "" {
			page, err := export.TitlePageDocument(in.SeparatorTitle)
			if err != nil {
				return nil, fmt.Errorf("failed to render separator for %s: %w", name, err)
			}
			sec.docs = append(sec.docs, page)
		}
		sec.docs = append(sec.docs, in.PDF)
		sections = append(sections, sec)
	}

	if len(sections) == 0 && intro == "" {
		return nil, ErrNoValidInput
	}

	out, err := m.join(flatten(head, sections))
	if err != nil {
		m.logger.Warn("Merge failed, joining inputs one at a time", zap.Error(err))
		if out, err = m.joinEach(ctx, res, head, sections); err != nil {
			return nil, err
		}
	}
	res.PDF = out
	if res.Pages, err = m.pageCount(out); err != nil {
		return nil, fmt.Errorf("failed to read merged pdf: %w", err)
	}

	m.logger.Info("PDFs merged",
		zap.Int("inputs", len(inputs)),
		zap.Int("skipped", len(res.Skipped)),
		zap.Int("pages", res.Pages),
	)
	return res, nil
}

// joinEach appends one section at a time and drops any section whose
// append fails, keeping the output built so far.
func (m *Merger) joinEach(ctx context.Context, res *Result, head [][]byte, sections []section) ([]byte, error) {
	var acc []byte
	if len(head) > 0 {
		acc = head[0]
	}
	for _, sec := range sections {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		parts := sec.docs
		if acc != nil {
			parts = append([][]byte{acc}, sec.docs...)
		}
		out, err := m.join(parts)
		if err != nil {
			m.skip(res, sec.name, sec.index, err)
			continue
		}
		acc = out
	}
	if acc == nil {
		return nil, ErrNoValidInput
	}
	return acc, nil
}

func (m *Merger) skip(res *Result, name string, index int, err error) {
	m.logger.Warn("Skipping unreadable pdf",
		zap.String("name", name),
		zap.Int("index", index),
		zap.Error(err),
	)
	res.Skipped = append(res.Skipped, name)
}

func flatten(head [][]byte, sections []section) [][]byte {
	parts := append([][]byte(nil), head...)
	for _, sec := range sections {
		parts = append(parts, sec.docs...)
	}
	return parts
}

// screen reads and validates pdf the way the merge will, and requires at
// least one page
func (m *Merger) screen(pdf []byte) error {
	if len(pdf) == 0 {
		return errors.New("empty document")
	}
	conf := m.config()
	conf.Cmd = model.MERGECREATE
	pctx, err := api.ReadContext(bytes.NewReader(pdf), conf)
	if err != nil {
		return err
	}
	if err := api.ValidateContext(pctx); err != nil {
		return err
	}
	if pctx.PageCount == 0 {
		return errors.New("document has no pages")
	}
	return nil
}

func (m *Merger) pageCount(pdf []byte) (int, error) {
	if len(pdf) == 0 {
		return 0, errors.New("empty document")
	}
	return api.PageCount(bytes.NewReader(pdf), m.config())
}

func (m *Merger) concat(parts [][]byte) ([]byte, error) {
	if len(parts) == 1 {
		return parts[0], nil
	}

	readers := make([]io.ReadSeeker, len(parts))
	for i, p := range parts {
		readers[i] = bytes.NewReader(p)
	}

	var buf bytes.Buffer
	if err := api.MergeRaw(readers, &buf, false, m.config()); err != nil {
		return nil, fmt.Errorf("failed to merge pdfs: %w", err)
	}
	return buf.Bytes(), nil
}
