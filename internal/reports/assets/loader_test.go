package assets

import (
	"bytes"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func writeLogo(t *testing.T, dir, name string) {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 30, 10))))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), buf.Bytes(), 0o600))
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	writeLogo(t, dir, "logo.png")
	l := NewLoader(dir, zap.NewNop())

	img, err := l.Load("logo.png")
	require.NoError(t, err)
	assert.Equal(t, 30, img.Width)
	assert.InDelta(t, 3.0, img.AspectRatio(), 1e-9)

	_, err = l.Load("nao-existe.png")
	assert.True(t, errors.Is(err, ErrAssetMissing))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "quebrado.png"), []byte("x"), 0o600))
	_, err = l.Load("quebrado.png")
	assert.True(t, errors.Is(err, ErrAssetMissing))

	_, err = l.Load("")
	assert.True(t, errors.Is(err, ErrAssetMissing))
}

func TestLoadStaysInsideDir(t *testing.T) {
	parent := t.TempDir()
	dir := filepath.Join(parent, "assets")
	require.NoError(t, os.Mkdir(dir, 0o700))
	writeLogo(t, parent, "segredo.png")

	_, err := NewLoader(dir, zap.NewNop()).Load("../segredo.png")
	assert.True(t, errors.Is(err, ErrAssetMissing))
}

func TestOptionalLogsMissingAsset(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	l := NewLoader(t.TempDir(), zap.New(core))

	assert.Nil(t, l.Optional("rodape.png"))
	assert.Nil(t, l.Optional(""))
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "rodape.png", logs.All()[0].ContextMap()["asset"])
}
