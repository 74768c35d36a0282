package utils

import (
	"fmt"
	"strings"
	"time"
)

// Layouts accepted for dates in uploaded exports, tried in order.
var eventDateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseEventDate parses a timestamp from an export file. Trailing timezone
// abbreviations some exports append (UTC, CET, CEST) are stripped; the
// result is interpreted as UTC.
func ParseEventDate(dateStr string) (time.Time, error) {
	s := strings.TrimSpace(dateStr)
	for _, suffix := range []string{" CEST", " CET", " UTC"} {
		s = strings.TrimSuffix(s, suffix)
	}
	for _, layout := range eventDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unable to parse date: %q", dateStr)
}
