package compress

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg" // source decode
	_ "image/png"  // source decode
	"os"
	"path/filepath"
	"strings"

	"github.com/chai2010/webp"
	"github.com/jdeng/goheif"
	"github.com/rwcarlsen/goexif/exif"
	"golang.org/x/image/draw"

	"github.com/lumosnap/synccore/internal/hashio"
)

// QualityOptions controls the adaptive WebP quality search and thumbnail
// generation. Overridable via ops config; DefaultQualityOptions matches the
// bounds spec.md §4.4 specifies.
type QualityOptions struct {
	MaxLongEdge       int
	QStart            int
	QMin              int
	QStep             int
	MaxBytes          int
	MaxTolerance      int
	ThumbnailLongEdge int
	ThumbnailQuality  int
}

// DefaultQualityOptions returns the built-in bounds: try quality 86 down to
// 80 in steps of 2, accept the first result within 800KiB+50KiB.
func DefaultQualityOptions() QualityOptions {
	return QualityOptions{
		MaxLongEdge:       2048,
		QStart:            86,
		QMin:              80,
		QStep:             2,
		MaxBytes:          800 * 1024,
		MaxTolerance:      50 * 1024,
		ThumbnailLongEdge: 400,
		ThumbnailQuality:  80,
	}
}

func (o QualityOptions) withDefaults() QualityOptions {
	d := DefaultQualityOptions()

	if o.MaxLongEdge <= 0 {
		o.MaxLongEdge = d.MaxLongEdge
	}

	if o.QStart <= 0 {
		o.QStart = d.QStart
	}

	if o.QMin <= 0 {
		o.QMin = d.QMin
	}

	if o.QStep <= 0 {
		o.QStep = d.QStep
	}

	if o.MaxBytes <= 0 {
		o.MaxBytes = d.MaxBytes
	}

	if o.MaxTolerance <= 0 {
		o.MaxTolerance = d.MaxTolerance
	}

	if o.ThumbnailLongEdge <= 0 {
		o.ThumbnailLongEdge = d.ThumbnailLongEdge
	}

	if o.ThumbnailQuality <= 0 {
		o.ThumbnailQuality = d.ThumbnailQuality
	}

	return o
}

func compressOne(ctx context.Context, t Task, quality QualityOptions) (Result, error) {
	raw, err := os.ReadFile(t.SourcePath)
	if err != nil {
		return Result{}, fmt.Errorf("compress: reading %s: %w", t.SourcePath, err)
	}

	hash := hashio.HashBytes(raw)

	img, err := decodeAndOrient(raw, t.SourcePath)
	if err != nil {
		return Result{}, fmt.Errorf("compress: decoding %s: %w", t.SourcePath, err)
	}

	resized := resizeToLongEdge(img, quality.MaxLongEdge)

	encoded, err := encodeAdaptive(resized, quality)
	if err != nil {
		return Result{}, fmt.Errorf("compress: encoding %s: %w", t.SourcePath, err)
	}

	thumb := resizeToLongEdge(resized, quality.ThumbnailLongEdge)

	thumbEncoded, err := encodeWebP(thumb, float32(quality.ThumbnailQuality))
	if err != nil {
		return Result{}, fmt.Errorf("compress: encoding thumbnail for %s: %w", t.SourcePath, err)
	}

	outName := OutputName(t.OriginalName)

	compressedPath := filepath.Join(t.AlbumLocalDir, outName)
	if err := os.WriteFile(compressedPath, encoded, 0o644); err != nil {
		return Result{}, fmt.Errorf("compress: writing %s: %w", compressedPath, err)
	}

	if err := os.MkdirAll(t.ThumbnailDir, 0o755); err != nil {
		return Result{}, fmt.Errorf("compress: creating thumbnail dir %s: %w", t.ThumbnailDir, err)
	}

	thumbnailPath := filepath.Join(t.ThumbnailDir, outName)
	if err := os.WriteFile(thumbnailPath, thumbEncoded, 0o644); err != nil {
		return Result{}, fmt.Errorf("compress: writing %s: %w", thumbnailPath, err)
	}

	bounds := resized.Bounds()

	return Result{
		CompressedPath: compressedPath,
		ThumbnailPath:  thumbnailPath,
		Width:          bounds.Dx(),
		Height:         bounds.Dy(),
		FileSize:       int64(len(encoded)),
		Hash:           hash,
	}, nil
}

// OutputName derives the compressed artifact's filename from the original
// source filename, used by the pipeline to locate a previous run's output
// for the resumability short-circuit.
func OutputName(originalName string) string {
	ext := filepath.Ext(originalName)
	base := strings.TrimSuffix(originalName, ext)

	return base + ".webp"
}

// decodeAndOrient decodes the source image and applies EXIF auto-rotation.
// HEIC/HEIF sources (the standard format for iOS camera output) go through
// goheif instead of the stdlib image.Decode registry, since no stdlib or
// golang.org/x/image decoder understands the HEIF container.
func decodeAndOrient(raw []byte, sourcePath string) (image.Image, error) {
	if isHEIF(sourcePath) {
		img, err := goheif.Decode(bytes.NewReader(raw))
		if err != nil {
			return nil, err
		}

		return applyOrientation(img, readHEIFOrientation(raw)), nil
	}

	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}

	return applyOrientation(img, readOrientation(raw)), nil
}

// isHEIF reports whether sourcePath's extension marks it as HEIC/HEIF.
func isHEIF(sourcePath string) bool {
	switch strings.ToLower(filepath.Ext(sourcePath)) {
	case ".heic", ".heif":
		return true
	default:
		return false
	}
}

// readOrientation returns the EXIF orientation tag value (1-8), or 1
// (identity) if the source has no readable EXIF data.
func readOrientation(raw []byte) int {
	x, err := exif.Decode(bytes.NewReader(raw))
	if err != nil {
		return 1
	}

	return orientationTag(x)
}

// readHEIFOrientation mirrors readOrientation for the HEIF container, whose
// EXIF payload goheif extracts separately from the pixel data.
func readHEIFOrientation(raw []byte) int {
	exifBytes, err := goheif.ExtractExif(bytes.NewReader(raw))
	if err != nil {
		return 1
	}

	x, err := exif.Decode(bytes.NewReader(exifBytes))
	if err != nil {
		return 1
	}

	return orientationTag(x)
}

func orientationTag(x *exif.Exif) int {
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 1
	}

	v, err := tag.Int(0)
	if err != nil {
		return 1
	}

	return v
}

// applyOrientation rotates/flips img per the EXIF orientation tag
// (values 1-8, per the EXIF 2.3 spec's orientation table).
func applyOrientation(img image.Image, orientation int) image.Image {
	switch orientation {
	case 3:
		return rotate180(img)
	case 6:
		return rotate90CW(img)
	case 8:
		return rotate90CCW(img)
	default:
		return img
	}
}

func rotate180(src image.Image) image.Image {
	b := src.Bounds()
	dst := image.NewRGBA(b)

	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			dst.Set(b.Max.X-1-x+b.Min.X, b.Max.Y-1-y+b.Min.Y, src.At(x, y))
		}
	}

	return dst
}

func rotate90CW(src image.Image) image.Image {
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dy(), b.Dx()))

	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			dst.Set(b.Max.Y-1-y+b.Min.Y, x-b.Min.X, src.At(x, y))
		}
	}

	return dst
}

func rotate90CCW(src image.Image) image.Image {
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dy(), b.Dx()))

	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			dst.Set(y-b.Min.Y, b.Max.X-1-x+b.Min.X, src.At(x, y))
		}
	}

	return dst
}

// resizeToLongEdge scales img so its longer edge is at most edge pixels,
// preserving aspect ratio. Returns img unchanged if already within bounds.
func resizeToLongEdge(img image.Image, edge int) *image.RGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	longEdge := w
	if h > w {
		longEdge = h
	}

	if longEdge <= edge {
		dst := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)

		return dst
	}

	scale := float64(edge) / float64(longEdge)
	newW := int(float64(w) * scale)
	newH := int(float64(h) * scale)

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)

	return dst
}

// encodeAdaptive tries qualities from quality.QStart down to quality.QMin in
// steps of quality.QStep, returning the first encoding within
// MaxBytes+MaxTolerance. If none qualify, the QMin encoding is returned
// regardless of size.
func encodeAdaptive(img *image.RGBA, quality QualityOptions) ([]byte, error) {
	var best []byte

	for q := quality.QStart; q >= quality.QMin; q -= quality.QStep {
		encoded, err := encodeWebP(img, float32(q))
		if err != nil {
			return nil, err
		}

		best = encoded

		if len(encoded) <= quality.MaxBytes+quality.MaxTolerance {
			return encoded, nil
		}
	}

	return best, nil
}

// encodeWebP encodes img at the given quality (0-100).
func encodeWebP(img image.Image, quality float32) ([]byte, error) {
	var buf bytes.Buffer

	if err := webp.Encode(&buf, img, &webp.Options{Quality: quality}); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
