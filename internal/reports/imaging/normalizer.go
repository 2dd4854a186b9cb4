// Package imaging turns uploaded photos into size-bounded payloads that the
// PDF writer can embed. A photo is normalized once per request and the
// result reused for every placement.
package imaging

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"io"

	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// ErrImageRead is matched by every failure to read or decode a photo.
var ErrImageRead = errors.New("imagem ilegível")

// ImageReadError names the photo that could not be used.
type ImageReadError struct {
	Name string
	Err  error
}

func (e *ImageReadError) Error() string {
	return fmt.Sprintf("falha ao ler imagem %q: %v", e.Name, e.Err)
}

func (e *ImageReadError) Unwrap() error { return e.Err }

func (e *ImageReadError) Is(target error) bool { return target == ErrImageRead }

const (
	DefaultMaxBytes     = 1 << 20
	DefaultMaxDimension = 2400
	DefaultQuality      = 85
	minQuality          = 40
	qualityStep         = 10
	minDimension        = 320
	// MaxPixels bounds the decoded canvas; 40 MP covers any phone camera.
	MaxPixels = 40_000_000
)

// EncodedImage is a normalized photo ready for embedding.
type EncodedImage struct {
	Data       []byte
	MimeType   string
	SourceSize int
	Width      int
	Height     int
}

// Base64 returns the payload as standard base64.
func (e *EncodedImage) Base64() string {
	return base64.StdEncoding.EncodeToString(e.Data)
}

// ImageType returns the gofpdf image type name.
func (e *EncodedImage) ImageType() string {
	switch e.MimeType {
	case "image/png":
		return "PNG"
	case "image/gif":
		return "GIF"
	default:
		return "JPG"
	}
}

// AspectRatio is width over height, 1 for degenerate images.
func (e *EncodedImage) AspectRatio() float64 {
	if e.Width <= 0 || e.Height <= 0 {
		return 1
	}
	return float64(e.Width) / float64(e.Height)
}

// Normalizer bounds photo size. The zero value uses the package defaults.
type Normalizer struct {
	MaxBytes     int
	MaxDimension int
	Quality      int
}

// NewNormalizer returns a normalizer with the given byte budget.
func NewNormalizer(maxBytes int) *Normalizer {
	return &Normalizer{MaxBytes: maxBytes}
}

// Normalize reads r fully and normalizes its content. name identifies the
// photo in errors.
func (n *Normalizer) Normalize(r io.Reader, name, declared string) (*EncodedImage, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &ImageReadError{Name: name, Err: err}
	}
	return n.NormalizeBytes(data, name, declared)
}

// NormalizeBytes is deterministic: equal input bytes give equal output.
// Every photo is fully decoded so a truncated file fails here rather than
// inside the PDF writer. JPEGs within budget pass through untouched, small
// PNG and GIF files are rewritten as plain PNG, and everything else is
// flattened onto white, downscaled and re-encoded as JPEG.
func (n *Normalizer) NormalizeBytes(data []byte, name, declared string) (*EncodedImage, error) {
	if len(data) == 0 {
		return nil, &ImageReadError{Name: name, Err: errors.New("arquivo vazio")}
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, &ImageReadError{Name: name, Err: err}
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return nil, &ImageReadError{Name: name, Err: fmt.Errorf("dimensões não suportadas: %dx%d", cfg.Width, cfg.Height)}
	}

	maxBytes, maxDim, quality := n.limits()
	withinDims := cfg.Width <= maxDim && cfg.Height <= maxDim

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &ImageReadError{Name: name, Err: err}
	}

	if withinDims && len(data) <= maxBytes {
		switch format {
		case "jpeg":
			return &EncodedImage{
				Data:       data,
				MimeType:   mimeFor(format, declared),
				SourceSize: len(data),
				Width:      cfg.Width,
				Height:     cfg.Height,
			}, nil
		case "png", "gif":
			// rewritten as 8-bit non-interlaced PNG, the only flavor the
			// PDF writer embeds without complaint
			if out, err := encodePNG(img); err == nil && len(out) <= maxBytes {
				return &EncodedImage{
					Data:       out,
					MimeType:   "image/png",
					SourceSize: len(data),
					Width:      cfg.Width,
					Height:     cfg.Height,
				}, nil
			}
		}
	}

	out, w, h, err := reencode(img, maxBytes, maxDim, quality)
	if err != nil {
		return nil, &ImageReadError{Name: name, Err: err}
	}

	return &EncodedImage{
		Data:       out,
		MimeType:   "image/jpeg",
		SourceSize: len(data),
		Width:      w,
		Height:     h,
	}, nil
}

func (n *Normalizer) limits() (int, int, int) {
	maxBytes, maxDim, quality := n.MaxBytes, n.MaxDimension, n.Quality
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if maxDim <= 0 {
		maxDim = DefaultMaxDimension
	}
	if quality <= 0 || quality > 100 {
		quality = DefaultQuality
	}
	return maxBytes, maxDim, quality
}

// reencode steps quality down first, then halves the resolution, until the
// JPEG fits. The smallest attempt is returned if nothing fits.
func reencode(src image.Image, maxBytes, maxDim, quality int) ([]byte, int, int, error) {
	w, h := fitWithin(src.Bounds().Dx(), src.Bounds().Dy(), maxDim)

	var last []byte
	for {
		canvas := flatten(src, w, h)
		for q := quality; q >= minQuality; q -= qualityStep {
			var buf bytes.Buffer
			if err := jpeg.Encode(&buf, canvas, &jpeg.Options{Quality: q}); err != nil {
				return nil, 0, 0, err
			}
			last = buf.Bytes()
			if len(last) <= maxBytes {
				return last, w, h, nil
			}
		}
		if w <= minDimension || h <= minDimension {
			return last, w, h, nil
		}
		w, h = max(w/2, 1), max(h/2, 1)
	}
}

func flatten(src image.Image, w, h int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, xdraw.Src)
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Over, nil)
	return dst
}

func fitWithin(w, h, maxDim int) (int, int) {
	if w <= maxDim && h <= maxDim {
		return max(w, 1), max(h, 1)
	}
	if w >= h {
		return maxDim, max(h*maxDim/w, 1)
	}
	return max(w*maxDim/h, 1), maxDim
}

func encodePNG(src image.Image) ([]byte, error) {
	b := src.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	xdraw.Draw(dst, dst.Bounds(), src, b.Min, xdraw.Src)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func mimeFor(format, declared string) string {
	switch format {
	case "png":
		return "image/png"
	case "gif":
		return "image/gif"
	case "jpeg":
		return "image/jpeg"
	}
	if declared == "" {
		return "image/jpeg"
	}
	return declared
}
