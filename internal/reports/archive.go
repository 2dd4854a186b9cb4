package reports

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"

	"manutencao-predial/portal-backend/internal/apperr"
	"manutencao-predial/portal-backend/pkg/storage"
)

const (
	pdfContentType = "application/pdf"
	presignTTL     = 15 * time.Minute
)

// Archive keeps a copy of generated documents in an S3 bucket under
// {prefix}/{yyyy}/{mm}/{filename}.
type Archive struct {
	client storage.S3Client
	bucket string
	prefix string
	logger *zap.Logger
	now    func() time.Time
}

func NewArchive(client storage.S3Client, bucket, prefix string, logger *zap.Logger) *Archive {
	return &Archive{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
		logger: logger,
		now:    time.Now,
	}
}

// Key returns the object key for filename at t
func (a *Archive) Key(filename string, t time.Time) string {
	return path.Join(a.prefix, t.Format("2006"), t.Format("01"), path.Base(filename))
}

// Store uploads pdf and returns its key
func (a *Archive) Store(ctx context.Context, filename string, pdf []byte) (string, error) {
	key := a.Key(filename, a.now())
	if err := a.client.Upload(ctx, a.bucket, key, pdfContentType, bytes.NewReader(pdf)); err != nil {
		return "", err
	}
	a.logger.Info("Report archived", zap.String("key", key), zap.Int("bytes", len(pdf)))
	return key, nil
}

// Presign returns a temporary download URL for an archived key
func (a *Archive) Presign(ctx context.Context, key string) (string, time.Time, error) {
	if err := a.checkKey(key); err != nil {
		return "", time.Time{}, err
	}
	url, err := a.client.GetPresignedURL(ctx, a.bucket, key, presignTTL)
	if err != nil {
		return "", time.Time{}, apperr.Internal(err)
	}
	return url, a.now().Add(presignTTL), nil
}

// Open streams an archived document
func (a *Archive) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := a.checkKey(key); err != nil {
		return nil, err
	}
	body, err := a.client.Download(ctx, a.bucket, key)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return body, nil
}

// Remove deletes an archived document
func (a *Archive) Remove(ctx context.Context, key string) error {
	if err := a.checkKey(key); err != nil {
		return err
	}
	if err := a.client.Delete(ctx, a.bucket, key); err != nil {
		return apperr.Internal(err)
	}
	a.logger.Info("Archived report removed", zap.String("key", key))
	return nil
}

// checkKey only admits keys this archive could have written
func (a *Archive) checkKey(key string) error {
	if key == "" {
		return apperr.Validation("key", "informe a chave do arquivo")
	}
	clean := path.Clean("/" + key)[1:]
	if a.prefix != "" && !strings.HasPrefix(key, a.prefix+"/") {
		return apperr.Validation("key", fmt.Sprintf("chave inválida: %q", key))
	}
	if clean != key || !strings.HasSuffix(key, ".pdf") {
		return apperr.Validation("key", fmt.Sprintf("chave inválida: %q", key))
	}
	return nil
}
