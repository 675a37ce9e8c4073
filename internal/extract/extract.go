// Package extract parses embedded image metadata (EXIF, GPS, XMP, PNG
// text chunks) and classifies the findings into a privacy threat report.
package extract

import (
	"fmt"
	"strings"

	"scrub/internal/sanitize"
)

// datetimeKeys in priority order; the first present field wins.
var datetimeKeys = []string{"DateTimeOriginal", "DateTime", "DateTimeDigitized"}

// Extract scans an image buffer and returns its threat report. It never
// fails: every parse error path is deliberately mapped to an empty safe
// report, so a corrupt or unrecognized file cannot block a scan batch.
// A missing report is indistinguishable from "nothing found", which is
// exactly the contract the caller wants.
func Extract(data []byte) Report {
	fields := make(map[string]string)

	// Group order is fixed; a later group overwrites an earlier one on a
	// key collision. Display only needs one example value per key.
	mergeFields(fields, exifFields(data))
	mergeFields(fields, xmpFields(data))
	mergeFields(fields, pngFields(data))

	return buildReport(fields)
}

func mergeFields(dst, src map[string]string) {
	for k, v := range src {
		dst[k] = v
	}
}

// buildReport runs threat detection over a flat field map. Detection
// order is fixed: GPS, then timestamp, then device, then serial.
func buildReport(fields map[string]string) Report {
	report := Report{RawFields: fields}

	if coord := parseGPS(fields); coord != nil {
		report.GPS = coord
		display := fmt.Sprintf("%.5f, %.5f", coord.Latitude, coord.Longitude)
		report.Threats = append(report.Threats, Threat{
			Kind:     ThreatGPS,
			Severity: SeverityCritical,
			Label:    ThreatGPS.Label(),
			Display:  sanitize.Clean(display),
		})
	}

	for _, key := range datetimeKeys {
		if raw, ok := fields[key]; ok && strings.TrimSpace(raw) != "" {
			ts := sanitize.Clean(raw)
			report.CaptureTimestamp = ts
			report.Threats = append(report.Threats, Threat{
				Kind:     ThreatDateTime,
				Severity: SeverityWarning,
				Label:    ThreatDateTime.Label(),
				Display:  ts,
			})
			break
		}
	}

	report.Device = DeviceInfo{
		Make:     sanitize.Clean(fields["Make"]),
		Model:    sanitize.Clean(fields["Model"]),
		Software: sanitize.Clean(fields["Software"]),
	}
	if report.Device.Make != "" || report.Device.Model != "" {
		report.Threats = append(report.Threats, Threat{
			Kind:     ThreatDevice,
			Severity: SeverityWarning,
			Label:    ThreatDevice.Label(),
			Display:  joinNonEmpty(report.Device.Make, report.Device.Model),
		})
	}
	// Software alone stays informational: it is recorded on the report
	// but does not raise its own threat entry.

	if serial, ok := serialField(fields); ok {
		report.Threats = append(report.Threats, Threat{
			Kind:     ThreatSerial,
			Severity: SeverityInfo,
			Label:    ThreatSerial.Label(),
			Display:  sanitize.Clean(serial),
		})
	}

	return report
}

func joinNonEmpty(parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}
