package attendance

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

const displayDate = "02/01/2006"

var (
	frMonths = [...]string{
		"janvier", "février", "mars", "avril", "mai", "juin",
		"juillet", "août", "septembre", "octobre", "novembre", "décembre",
	}

	// FallbackGeneratedAt is shown for stored sheets whose generation date cannot be parsed.
	FallbackGeneratedAt = time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC)

	generatedAtLayouts = []string{
		time.RFC3339Nano,
		"2006-01-02T15:04:05.999999999",
		"2006-01-02 15:04:05.999999999",
		"2006-01-02 15:04:05",
		isoDate,
	}

	nonAlphaNumRegex  = regexp.MustCompile(`[^A-Za-z0-9]+`)
	unsafePathCharRgx = regexp.MustCompile(`[/\\:*?"<>|]+`)
)

// FormatLongDate formats an ISO date the french long way, eg. "3 juin 2024".
// Unparseable dates are returned as is.
func FormatLongDate(date string) string {
	t, err := time.Parse(isoDate, date)
	if err != nil {
		return date
	}
	return fmt.Sprintf("%d %s %d", t.Day(), frMonths[t.Month()-1], t.Year())
}

// FormatSlotDates joins the long dates of all slots, in order.
func FormatSlotDates(slots []TimeSlot) string {
	dates := make([]string, 0, len(slots))
	for _, slot := range slots {
		dates = append(dates, FormatLongDate(slot.Date))
	}
	return strings.Join(dates, ", ")
}

// ParseGeneratedAt parses a remote generation timestamp, falling back to FallbackGeneratedAt.
func ParseGeneratedAt(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	for _, layout := range generatedAtLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return FallbackGeneratedAt, false
}

// FormatDisplayDate formats t as a french short date, eg. "01/01/2023".
func FormatDisplayDate(t time.Time) string {
	return t.Format(displayDate)
}

// FileName derives the file name of a sheet generated at `generatedAt` for `instructor`.
func FileName(instructor string, generatedAt time.Time) string {
	instructor = strings.TrimSpace(unsafePathCharRgx.ReplaceAllString(instructor, "_"))
	date := nonAlphaNumRegex.ReplaceAllString(FormatDisplayDate(generatedAt), "_")
	return fmt.Sprintf("Feuille de présence - %s - %s.pdf", instructor, date)
}
