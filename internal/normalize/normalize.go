// Package normalize transcodes camera-native HEIC/HEIF captures into
// JPEG before pixel processing. The formats are not universally
// decodable, so they are converted once, up front, via libvips.
package normalize

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/davidbyttow/govips/v2/vips"

	"scrub/pkg/imgutil"
)

// ErrFormatUnsupported means this runtime cannot decode the legacy
// format; the file fails individually, the batch keeps going.
var ErrFormatUnsupported = errors.New("legacy format not decodable in this runtime")

// transcodeQuality is deliberately high: normalization is an
// intermediate step, the lossy budget belongs to the final re-encode.
const transcodeQuality = 95

var legacyTypes = map[string]bool{
	"image/heic": true,
	"image/heif": true,
}

var legacyExts = map[string]bool{
	".heic": true,
	".heif": true,
}

// IsLegacy reports whether a file belongs to the HEIC/HEIF family, by
// declared type or by filename extension.
func IsLegacy(name, declaredType string) bool {
	if legacyTypes[strings.ToLower(declaredType)] {
		return true
	}
	return legacyExts[strings.ToLower(filepath.Ext(name))]
}

var vipsOnce sync.Once

// startVips initializes libvips once, with conservative memory settings:
// one concurrent operation and a small cache, since transcodes run
// strictly sequentially anyway.
func startVips() {
	vipsOnce.Do(func() {
		vips.LoggingSettings(nil, vips.LogLevelError)
		vips.Startup(&vips.Config{
			ConcurrencyLevel: 1,
			MaxCacheMem:      50 * 1024 * 1024,
			MaxCacheSize:     100,
		})
	})
}

// Normalize decodes a legacy-format file and re-exports it as JPEG,
// renaming the logical file to match. Only call when IsLegacy is true.
func Normalize(f imgutil.SourceFile) (imgutil.SourceFile, error) {
	startVips()

	img, err := vips.NewImageFromBuffer(f.Data)
	if err != nil {
		return f, fmt.Errorf("%w: %v", ErrFormatUnsupported, err)
	}
	defer img.Close()

	out, _, err := img.ExportJpeg(&vips.JpegExportParams{
		Quality:       transcodeQuality,
		StripMetadata: true,
	})
	if err != nil {
		return f, fmt.Errorf("%w: %v", ErrFormatUnsupported, err)
	}

	return imgutil.SourceFile{
		Name:         renameJPEG(f.Name),
		DeclaredType: "image/jpeg",
		Data:         out,
	}, nil
}

func renameJPEG(name string) string {
	ext := filepath.Ext(name)
	if ext == "" {
		return name + ".jpg"
	}
	return strings.TrimSuffix(name, ext) + ".jpg"
}
