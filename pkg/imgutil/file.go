package imgutil

import (
	"path/filepath"
	"strings"
)

// MaxFileBytes is the ceiling on a single input file, enforced at the
// boundary before a file ever reaches the processing queue.
const MaxFileBytes = 50 * 1024 * 1024

// SourceFile is an exclusively-owned copy of a user-supplied image:
// original bytes, logical name, and the type the environment declared
// for it ("" when the environment reported none).
type SourceFile struct {
	Name         string
	DeclaredType string
	Data         []byte
}

// Size reports the byte length of the payload.
func (f SourceFile) Size() int64 {
	return int64(len(f.Data))
}

var supportedTypes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
	"image/webp": true,
	"image/heic": true,
	"image/heif": true,
}

var supportedExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
	".heic": true,
	".heif": true,
}

// IsSupported reports whether a file is admissible by declared type OR by
// filename extension. Either match is enough: some environments hand over
// files with an empty declared type, others with a misleading extension.
func IsSupported(name, declaredType string) bool {
	if supportedTypes[strings.ToLower(declaredType)] {
		return true
	}
	return supportedExts[strings.ToLower(filepath.Ext(name))]
}
