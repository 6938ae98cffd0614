package timesync

import (
	"time"
	"unicode/utf8"
)

// Width is the length of a normalized timestamp ("2006-01-02T15:04:05").
const Width = 19

// SystemTimeLayout is the layout Sysmon uses for TimeCreated/SystemTime.
const SystemTimeLayout = "2006-01-02T15:04:05.0000000Z"

// layouts accepted by Converter, in order of preference.
var layouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006/01/02 15:04:05",
}

// Truncate returns the first Width characters of raw.
func Truncate(raw string) string {
	if len(raw) <= Width {
		return raw
	}
	n := 0
	for i := range raw {
		if n == Width {
			return raw[:i]
		}
		n++
	}
	return raw
}

// FormatSystemTime renders t the way Sysmon writes SystemTime, in UTC.
func FormatSystemTime(t time.Time) string {
	return t.UTC().Format(SystemTimeLayout)
}

// Converter handles conversion from normalized timestamps to wall-clock time.
type Converter struct {
	loc *time.Location
}

// NewConverter creates a converter interpreting timestamps in UTC,
// which is what Sysmon records.
func NewConverter() *Converter {
	return NewConverterIn(time.UTC)
}

// NewConverterIn creates a converter interpreting timestamps in loc.
func NewConverterIn(loc *time.Location) *Converter {
	if loc == nil {
		loc = time.UTC
	}
	return &Converter{loc: loc}
}

// ToWallClock parses a normalized timestamp.
// It returns false for empty or unparseable values.
func (c *Converter) ToWallClock(ts string) (time.Time, bool) {
	if ts == "" || !utf8.ValidString(ts) {
		return time.Time{}, false
	}
	ts = Truncate(ts)
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, ts, c.loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Location returns the location used for conversions.
func (c *Converter) Location() *time.Location {
	return c.loc
}
