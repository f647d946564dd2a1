package format

import "time"

// Supported date format selectors.
const (
	DateFormatEU  = "EU"
	DateFormatUS  = "US"
	DateFormatISO = "ISO"
)

// ValidDateFormat reports whether the selector is one of EU, US or ISO.
func ValidDateFormat(format string) bool {
	switch format {
	case DateFormatEU, DateFormatUS, DateFormatISO:
		return true
	}
	return false
}

// Date renders t according to the configured selector. Unknown selectors use
// the ISO form.
func Date(t time.Time, format string) string {
	switch format {
	case DateFormatEU:
		return t.Format("(02.01.2006) 15:04:05")
	case DateFormatUS:
		return t.Format("(01/02/2006) 3:04:05 PM")
	default:
		return t.Format("(2006-01-02) 15:04:05")
	}
}

// TornTimeLabel renders a stock update time the way Torn players read it:
// short month, day, 24h clock, in UTC.
func TornTimeLabel(t time.Time) string {
	return t.UTC().Format("Jan, 2. 15:04:05") + " (Torn Time)"
}
