package extract

// ThreatKind is the closed set of privacy-sensitive field classes.
type ThreatKind int

const (
	ThreatGPS ThreatKind = iota
	ThreatDateTime
	ThreatDevice
	ThreatSoftware
	ThreatSerial
)

func (k ThreatKind) String() string {
	switch k {
	case ThreatGPS:
		return "gps"
	case ThreatDateTime:
		return "datetime"
	case ThreatDevice:
		return "device"
	case ThreatSoftware:
		return "software"
	case ThreatSerial:
		return "serial"
	default:
		return "unknown"
	}
}

// Label is the human-readable name shown next to a threat of this kind.
func (k ThreatKind) Label() string {
	switch k {
	case ThreatGPS:
		return "GPS Location"
	case ThreatDateTime:
		return "Capture Time"
	case ThreatDevice:
		return "Device"
	case ThreatSoftware:
		return "Software"
	case ThreatSerial:
		return "Serial Number"
	default:
		return "Unknown"
	}
}

// Severity ranks how identifying a leaked field is.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityCritical:
		return "critical"
	case SeverityWarning:
		return "warning"
	default:
		return "info"
	}
}

// Threat is one classified metadata finding. Display always holds the
// sanitized, length-bounded value, never the raw field.
type Threat struct {
	Kind     ThreatKind
	Severity Severity
	Label    string
	Display  string
}

// GPSCoordinate is a decimal-degree position with optional altitude.
type GPSCoordinate struct {
	Latitude  float64
	Longitude float64
	Altitude  *float64
}

// DeviceInfo carries the sanitized camera identity fields.
type DeviceInfo struct {
	Make     string
	Model    string
	Software string
}

// Level is the aggregate severity of a report.
type Level int

const (
	LevelSafe Level = iota
	LevelWarning
	LevelCritical
)

func (l Level) String() string {
	switch l {
	case LevelCritical:
		return "critical"
	case LevelWarning:
		return "warning"
	default:
		return "safe"
	}
}

// Report is the structured result of scanning one file's metadata.
// RawFields keeps every parsed key for audit; it is never rendered
// without passing through the sanitizer first.
type Report struct {
	RawFields        map[string]string
	GPS              *GPSCoordinate
	CaptureTimestamp string
	Device           DeviceInfo
	Threats          []Threat
}

// Level derives the aggregate severity from the threat list. It is
// computed on demand so it can never drift from its source.
func (r Report) Level() Level {
	level := LevelSafe
	for _, t := range r.Threats {
		switch t.Severity {
		case SeverityCritical:
			return LevelCritical
		case SeverityWarning:
			level = LevelWarning
		}
	}
	return level
}
