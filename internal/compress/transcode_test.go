package compress

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestJPEG(t *testing.T, path string, w, h int) {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 255), G: uint8(y % 255), B: 128, A: 255})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

func TestResizeToLongEdge_ShrinksWhenOverLimit(t *testing.T) {
	t.Parallel()

	img := image.NewRGBA(image.Rect(0, 0, 4000, 2000))
	resized := resizeToLongEdge(img, 2048)

	b := resized.Bounds()
	assert.Equal(t, 2048, b.Dx())
	assert.Equal(t, 1024, b.Dy())
}

func TestResizeToLongEdge_LeavesSmallImageUntouched(t *testing.T) {
	t.Parallel()

	img := image.NewRGBA(image.Rect(0, 0, 100, 50))
	resized := resizeToLongEdge(img, 2048)

	b := resized.Bounds()
	assert.Equal(t, 100, b.Dx())
	assert.Equal(t, 50, b.Dy())
}

func TestOutputName_ReplacesExtensionWithWebP(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "IMG_0001.webp", OutputName("IMG_0001.jpg"))
	assert.Equal(t, "photo.webp", OutputName("photo.HEIC"))
}

func TestApplyOrientation_IdentityForUnknownValue(t *testing.T) {
	t.Parallel()

	img := image.NewRGBA(image.Rect(0, 0, 10, 20))
	out := applyOrientation(img, 1)

	assert.Equal(t, img.Bounds(), out.Bounds())
}

func TestApplyOrientation_90DegreeSwapsDimensions(t *testing.T) {
	t.Parallel()

	img := image.NewRGBA(image.Rect(0, 0, 10, 20))
	out := applyOrientation(img, 6)

	b := out.Bounds()
	assert.Equal(t, 20, b.Dx())
	assert.Equal(t, 10, b.Dy())
}

func TestDecodeAndOrient_DecodesPlainJPEGWithoutEXIF(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "a.jpg")
	writeTestJPEG(t, path, 200, 100)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	img, err := decodeAndOrient(raw, path)
	require.NoError(t, err)

	b := img.Bounds()
	assert.Equal(t, 200, b.Dx())
	assert.Equal(t, 100, b.Dy())
}
