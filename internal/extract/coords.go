package extract

import (
	"strconv"
	"strings"
)

// parseCoordinate turns an EXIF coordinate value into decimal degrees.
// Accepts plain decimals ("40.446"), bracketed rational triplets
// ("[40/1 26/1 4638/100]"), and degree/minute pairs.
func parseCoordinate(raw string) (float64, bool) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "[")
	raw = strings.TrimSuffix(raw, "]")
	parts := strings.Fields(raw)
	if len(parts) == 0 {
		return 0, false
	}

	if len(parts) == 1 && !strings.Contains(parts[0], "/") {
		if v, err := strconv.ParseFloat(parts[0], 64); err == nil {
			return v, true
		}
		return 0, false
	}

	values := make([]float64, 0, len(parts))
	for _, part := range parts {
		value, ok := parseRational(part)
		if !ok {
			return 0, false
		}
		values = append(values, value)
	}

	switch len(values) {
	case 3:
		return values[0] + values[1]/60.0 + values[2]/3600.0, true
	case 2:
		return values[0] + values[1]/60.0, true
	default:
		return values[0], true
	}
}

func parseRational(part string) (float64, bool) {
	part = strings.TrimSpace(part)
	if part == "" {
		return 0, false
	}
	if strings.Contains(part, "/") {
		items := strings.SplitN(part, "/", 2)
		if len(items) != 2 {
			return 0, false
		}
		num, err := strconv.ParseFloat(items[0], 64)
		if err != nil {
			return 0, false
		}
		den, err := strconv.ParseFloat(items[1], 64)
		if err != nil || den == 0 {
			return 0, false
		}
		return num / den, true
	}

	value, err := strconv.ParseFloat(part, 64)
	if err != nil {
		return 0, false
	}
	return value, true
}

// parseGPS assembles a decimal-degree coordinate from the flat field map,
// applying hemisphere refs and the optional altitude.
func parseGPS(fields map[string]string) *GPSCoordinate {
	latRaw, okLat := fields["GPSLatitude"]
	lonRaw, okLon := fields["GPSLongitude"]
	if !okLat || !okLon {
		return nil
	}

	lat, okLat := parseCoordinate(latRaw)
	lon, okLon := parseCoordinate(lonRaw)
	if !okLat || !okLon {
		return nil
	}

	if strings.EqualFold(strings.TrimSpace(fields["GPSLatitudeRef"]), "S") {
		lat = -lat
	}
	if strings.EqualFold(strings.TrimSpace(fields["GPSLongitudeRef"]), "W") {
		lon = -lon
	}

	coord := &GPSCoordinate{Latitude: lat, Longitude: lon}

	if altRaw, ok := fields["GPSAltitude"]; ok {
		if alt, okAlt := parseRational(strings.Trim(strings.TrimSpace(altRaw), "[]")); okAlt {
			if strings.TrimSpace(fields["GPSAltitudeRef"]) == "1" {
				alt = -alt
			}
			coord.Altitude = &alt
		}
	}

	return coord
}
