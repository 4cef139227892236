package hashio

import (
	"fmt"
	"image"
	_ "image/jpeg" // register JPEG dimension decoding
	_ "image/png"  // register PNG dimension decoding
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jdeng/goheif"
	_ "golang.org/x/image/webp" // register WebP dimension decoding

	"golang.org/x/text/unicode/norm"
)

// allowedExtensions is the fixed set of source file extensions the scanner
// admits. Anything else (and every dotfile) is ignored.
var allowedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".heic": true,
	".heif": true,
	".webp": true,
}

// Entry describes one admitted file found by Scan.
type Entry struct {
	Path     string // absolute path on disk
	Basename string // NFC-normalized basename
	Size     int64
	Mtime    time.Time
	Width    int // 0 if unknown
	Height   int // 0 if unknown
}

// Scan enumerates the immediate (non-recursive) children of dir, dropping
// dotfiles and anything outside the extension allow-list.
func Scan(dir string) ([]Entry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("hashio: reading dir %s: %w", dir, err)
	}

	result := make([]Entry, 0, len(entries))

	for _, de := range entries {
		if de.IsDir() {
			continue
		}

		name := de.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		ext := strings.ToLower(filepath.Ext(name))
		if !allowedExtensions[ext] {
			continue
		}

		info, err := de.Info()
		if err != nil {
			continue // file vanished mid-scan; skip it
		}

		path := filepath.Join(dir, name)
		width, height := readDimensions(path)

		result = append(result, Entry{
			Path:     path,
			Basename: norm.NFC.String(name),
			Size:     info.Size(),
			Mtime:    info.ModTime(),
			Width:    width,
			Height:   height,
		})
	}

	return result, nil
}

// readDimensions returns the pixel dimensions of path on a best-effort
// basis; any unreadable or malformed file reports 0, 0 — callers must
// tolerate unknown dimensions.
func readDimensions(path string) (width, height int) {
	if strings.ToLower(filepath.Ext(path)) == ".heic" || strings.ToLower(filepath.Ext(path)) == ".heif" {
		return readHEIFDimensions(path)
	}

	f, err := os.Open(path)
	if err != nil {
		return 0, 0
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0
	}

	return cfg.Width, cfg.Height
}

// readHEIFDimensions decodes a HEIC/HEIF file fully via goheif, since the
// container has no stdlib-registrable DecodeConfig path.
func readHEIFDimensions(path string) (width, height int) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0
	}
	defer f.Close()

	img, err := goheif.Decode(f)
	if err != nil {
		return 0, 0
	}

	b := img.Bounds()

	return b.Dx(), b.Dy()
}
