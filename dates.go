package vmd

import (
	"fmt"
	"strings"
	"time"
)

const DayFormat = "2006-01-02"

// formats seen in prochain_rdv / last_updated across API versions
var timestampFormats = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.000000-07:00",
	"2006-01-02T15:04:05-0700",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

var parisLocation = loadParis()

func loadParis() *time.Location {
	loc, err := time.LoadLocation("Europe/Paris")
	if err != nil {
		Log.Warnf("Could not load Europe/Paris timezone, falling back to UTC: %v", err)
		return time.UTC
	}
	return loc
}

// ParseTimestamp parses an API timestamp. Timestamps without an offset are
// read as Paris local time.
func ParseTimestamp(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if len(value) == 0 {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}

	for _, format := range timestampFormats {
		if t, err := time.ParseInLocation(format, value, parisLocation); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized timestamp: %s", value)
}

// DayKey formats t as the yyyy-mm-dd key used by the daily slots endpoint.
func DayKey(t time.Time) string {
	return t.In(parisLocation).Format(DayFormat)
}
