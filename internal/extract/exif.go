package extract

import (
	"strings"

	exif "github.com/dsoprea/go-exif/v3"
)

// exifFields parses the EXIF block (including the GPS IFD) out of an
// image buffer into a flat name->value map. Any failure, including the
// common "no exif" case, yields an empty map.
func exifFields(data []byte) map[string]string {
	return tiffFields(data)
}

// tiffFields locates a TIFF/EXIF blob anywhere in data and flattens it.
// The search step matters: flat parsing alone only accepts a buffer that
// begins at the TIFF byte-order header, while JPEG and WebP wrap the
// blob in a container segment. Later tags overwrite earlier ones with
// the same name; display only needs one example value per key.
func tiffFields(data []byte) (fields map[string]string) {
	// go-exif panics on some malformed maker notes; a torn buffer must
	// still degrade to an empty map rather than escape the extractor.
	defer func() {
		if recover() != nil {
			fields = nil
		}
	}()

	rawExif, err := exif.SearchAndExtractExif(data)
	if err != nil {
		return nil
	}

	tags, _, err := exif.GetFlatExifDataUniversalSearch(rawExif, nil, true)
	if err != nil {
		return nil
	}

	fields = make(map[string]string, len(tags))
	for _, tag := range tags {
		if tag.TagName == "" {
			continue
		}
		fields[tag.TagName] = tag.Formatted
	}
	return fields
}

// serialField reports the first tag whose name looks like a device or
// lens serial number.
func serialField(fields map[string]string) (string, bool) {
	for name, value := range fields {
		if strings.Contains(strings.ToLower(name), "serial") && value != "" {
			return value, true
		}
	}
	return "", false
}
