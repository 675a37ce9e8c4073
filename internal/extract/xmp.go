package extract

import (
	"bytes"
	"regexp"
)

var (
	xmpOpen  = []byte("<x:xmpmeta")
	xmpClose = []byte("</x:xmpmeta>")
)

// xmpTags maps the XMP names we recognize to the canonical EXIF-style
// field names the threat detector keys on.
var xmpTags = map[string]string{
	"tiff:Make":              "Make",
	"tiff:Model":             "Model",
	"xmp:CreatorTool":        "Software",
	"xmp:CreateDate":         "DateTimeDigitized",
	"exif:DateTimeOriginal":  "DateTimeOriginal",
	"exif:DateTimeDigitized": "DateTimeDigitized",
	"photoshop:DateCreated":  "DateTime",
}

var (
	xmpElemPattern = regexp.MustCompile(`<([A-Za-z]+:[A-Za-z]+)>([^<]+)</[A-Za-z]+:[A-Za-z]+>`)
	xmpAttrPattern = regexp.MustCompile(`([A-Za-z]+:[A-Za-z]+)="([^"]*)"`)
)

// xmpFields scans data for an embedded XMP packet and pulls out the
// recognized tags. XMP serializes properties either as child elements or
// as attributes on rdf:Description; both forms are handled.
func xmpFields(data []byte) map[string]string {
	start := bytes.Index(data, xmpOpen)
	if start < 0 {
		return nil
	}
	end := bytes.Index(data[start:], xmpClose)
	if end < 0 {
		return nil
	}
	packet := data[start : start+end+len(xmpClose)]

	fields := make(map[string]string)
	for _, m := range xmpElemPattern.FindAllSubmatch(packet, -1) {
		if name, ok := xmpTags[string(m[1])]; ok {
			fields[name] = string(m[2])
		}
	}
	for _, m := range xmpAttrPattern.FindAllSubmatch(packet, -1) {
		if name, ok := xmpTags[string(m[1])]; ok && len(m[2]) > 0 {
			fields[name] = string(m[2])
		}
	}

	if len(fields) == 0 {
		return nil
	}
	return fields
}
