package imgutil

import (
	"errors"
	"io"
	"os"
)

// Kind identifies a supported image container.
type Kind int

const (
	KindUnknown Kind = iota
	KindJPEG
	KindPNG
	KindWebP
	KindHEIF
)

func (k Kind) String() string {
	switch k {
	case KindJPEG:
		return "jpeg"
	case KindPNG:
		return "png"
	case KindWebP:
		return "webp"
	case KindHEIF:
		return "heif"
	default:
		return "unknown"
	}
}

// MIME returns the declared-type string for the kind, or "" when
// unknown. DetectHeader collapses every ftyp brand of the HEIC/HEIF
// family into KindHEIF, so the family type is reported rather than a
// brand-specific one; downstream admission and transcoding treat the
// two identically.
func (k Kind) MIME() string {
	switch k {
	case KindJPEG:
		return "image/jpeg"
	case KindPNG:
		return "image/png"
	case KindWebP:
		return "image/webp"
	case KindHEIF:
		return "image/heif"
	default:
		return ""
	}
}

const headerLen = 12

var (
	pngSig  = []byte{0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a}
	jpegSig = []byte{0xff, 0xd8, 0xff}
	riffSig = []byte("RIFF")
	webpSig = []byte("WEBP")
	ftypSig = []byte("ftyp")
)

// heifBrands are the ftyp major brands of the HEIC/HEIF family.
var heifBrands = [][]byte{
	[]byte("heic"),
	[]byte("heix"),
	[]byte("heif"),
	[]byte("mif1"),
	[]byte("msf1"),
}

// DetectHeader inspects the first 12 bytes of a file for known signatures.
func DetectHeader(header []byte) (Kind, error) {
	if len(header) < headerLen {
		return KindUnknown, errors.New("header too short")
	}

	if hasPrefix(header, jpegSig) {
		return KindJPEG, nil
	}
	if hasPrefix(header, pngSig) {
		return KindPNG, nil
	}
	if hasPrefix(header, riffSig) && hasPrefix(header[8:], webpSig) {
		return KindWebP, nil
	}
	if hasPrefix(header[4:], ftypSig) {
		for _, brand := range heifBrands {
			if hasPrefix(header[8:], brand) {
				return KindHEIF, nil
			}
		}
	}

	return KindUnknown, nil
}

// SniffFile reads the first 12 bytes of a file to determine its type.
func SniffFile(path string) (Kind, error) {
	f, err := os.Open(path)
	if err != nil {
		return KindUnknown, err
	}
	defer f.Close()

	return SniffReader(f)
}

// SniffReader reads the first 12 bytes from r and determines its type.
func SniffReader(r io.Reader) (Kind, error) {
	header := make([]byte, headerLen)
	if _, err := io.ReadFull(r, header); err != nil {
		return KindUnknown, err
	}

	return DetectHeader(header)
}

func hasPrefix(buf, prefix []byte) bool {
	if len(buf) < len(prefix) {
		return false
	}
	for i := range prefix {
		if buf[i] != prefix[i] {
			return false
		}
	}
	return true
}
