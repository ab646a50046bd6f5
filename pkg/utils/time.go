package utils

import (
	"fmt"
	"strings"
	"time"
)

// AISTimeLayout is the layout of aisstream.io metadata timestamps,
// e.g. "2022-12-29 18:22:32.318353 +0000 UTC"
const AISTimeLayout = "2006-01-02 15:04:05.999999999 -0700 MST"

// GFWTimeLayout is the layout used in Global Fishing Watch date ranges
const GFWTimeLayout = "2006-01-02T15:04:05.000Z"

// ParseAISTimestamp parses an aisstream.io time_utc value, accepting RFC3339 as a fallback
func ParseAISTimestamp(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}

	if t, err := time.Parse(AISTimeLayout, value); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("unrecognized timestamp %q", value)
	}
	return t.UTC(), nil
}

// LookbackRange returns the GFW date-range value covering the given number of hours up to now
func LookbackRange(now time.Time, hours int) string {
	end := now.UTC()
	start := end.Add(-time.Duration(hours) * time.Hour)
	return fmt.Sprintf("%s,%s", start.Format(GFWTimeLayout), end.Format(GFWTimeLayout))
}

// FormatTimestamp formats a time as RFC3339, or "-" for the zero time
func FormatTimestamp(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}
