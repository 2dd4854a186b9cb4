// Package assets reads the static logo and footer images used by the skins.
package assets

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"manutencao-predial/portal-backend/internal/reports/imaging"
)

// ErrAssetMissing is matched when an asset file is absent or unusable
var ErrAssetMissing = errors.New("asset ausente")

// Loader reads assets from a directory on every call; files may be swapped
// on disk without a restart.
type Loader struct {
	dir        string
	normalizer *imaging.Normalizer
	logger     *zap.Logger
}

func NewLoader(dir string, logger *zap.Logger) *Loader {
	return &Loader{
		dir:        dir,
		normalizer: &imaging.Normalizer{MaxBytes: 512 << 10, MaxDimension: 1200},
		logger:     logger,
	}
}

// Load returns the normalized asset or an error wrapping ErrAssetMissing
func (l *Loader) Load(name string) (*imaging.EncodedImage, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: nome vazio", ErrAssetMissing)
	}
	// rooting the name before cleaning keeps lookups inside dir
	clean := filepath.Clean("/" + name)

	data, err := os.ReadFile(filepath.Join(l.dir, clean))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrAssetMissing, name)
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrAssetMissing, name, err)
	}

	img, err := l.normalizer.NormalizeBytes(data, name, "")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAssetMissing, err)
	}
	return img, nil
}

// Optional loads an asset, logging and returning nil when it is unavailable
func (l *Loader) Optional(name string) *imaging.EncodedImage {
	if name == "" {
		return nil
	}
	img, err := l.Load(name)
	if err != nil {
		l.logger.Warn("Asset unavailable, section rendered without it",
			zap.String("asset", name),
			zap.Error(err),
		)
		return nil
	}
	return img
}
