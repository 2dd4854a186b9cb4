package reports

import (
	"context"
	"errors"
	"io"
	"time"

	"go.uber.org/zap"

	"manutencao-predial/portal-backend/internal/apperr"
	"manutencao-predial/portal-backend/internal/reports/composer"
	"manutencao-predial/portal-backend/internal/reports/merge"
)

// Service provides report generation, merging and archive access
type Service struct {
	composer *composer.Composer
	merger   *merge.Merger
	archive  *Archive
	logger   *zap.Logger
}

// NewService creates a new reports service. archive may be nil when
// archiving is disabled.
func NewService(c *composer.Composer, m *merge.Merger, archive *Archive, logger *zap.Logger) *Service {
	return &Service{
		composer: c,
		merger:   m,
		archive:  archive,
		logger:   logger,
	}
}

// Skins lists the available skins
func (s *Service) Skins() []SkinInfo {
	skins := s.composer.Skins().List()
	out := make([]SkinInfo, len(skins))
	for i, sk := range skins {
		out[i] = newSkinInfo(sk)
	}
	return out
}

// Generate composes a report and archives it when an archive is configured.
// Archive failures are logged and never fail the request.
func (s *Service) Generate(ctx context.Context, r *composer.Report) (*Generated, error) {
	start := time.Now()
	res, err := s.composer.Compose(ctx, r)
	if err != nil {
		return nil, err
	}

	out := &Generated{Result: res}
	if s.archive != nil {
		key, err := s.archive.Store(ctx, res.Filename, res.PDF)
		if err != nil {
			s.logger.Warn("Failed to archive report", zap.String("filename", res.Filename), zap.Error(err))
		} else {
			out.ArchiveKey = key
		}
	}

	s.logger.Info("Report generated",
		zap.String("skin", r.Skin),
		zap.String("filename", res.Filename),
		zap.Int("pages", res.Pages),
		zap.Int("warnings", len(res.Warnings)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return out, nil
}

// Merge concatenates uploaded documents
func (s *Service) Merge(ctx context.Context, inputs []merge.Input, intro string) (*merge.Result, error) {
	res, err := s.merger.Merge(ctx, inputs, intro)
	if errors.Is(err, merge.ErrNoValidInput) {
		return nil, apperr.Validation("pdf-0", "nenhum PDF válido foi enviado")
	}
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return res, nil
}

func (s *Service) requireArchive() error {
	if s.archive == nil {
		return apperr.NotFound("arquivamento de relatórios desativado")
	}
	return nil
}

// Presign returns a temporary download link for an archived report
func (s *Service) Presign(ctx context.Context, key string) (*PresignResponse, error) {
	if err := s.requireArchive(); err != nil {
		return nil, err
	}
	url, expires, err := s.archive.Presign(ctx, key)
	if err != nil {
		return nil, err
	}
	return &PresignResponse{Key: key, URL: url, ExpiresAt: expires}, nil
}

// OpenArchived streams an archived report
func (s *Service) OpenArchived(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := s.requireArchive(); err != nil {
		return nil, err
	}
	return s.archive.Open(ctx, key)
}

// RemoveArchived deletes an archived report
func (s *Service) RemoveArchived(ctx context.Context, key string) error {
	if err := s.requireArchive(); err != nil {
		return err
	}
	return s.archive.Remove(ctx, key)
}
