package util

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ─── Date Normalization ───────────────────────────────────────────────────────

const dayLayout = "2006-01-02"

var (
	epochRe    = regexp.MustCompile(`^-?\d{9,}$`)
	longFormRe = regexp.MustCompile(`^[A-Za-z]+,\s*([A-Za-z]+)\.?\s+(\d{1,2}),\s*(\d{4})$`)
)

// isoLayouts are tried in order after the epoch and long-form shapes.
var isoLayouts = []string{
	dayLayout,
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05 MST",
	"2006-01-02T15:04:05.000Z",
}

var monthNames = map[string]time.Month{
	"january": time.January, "february": time.February, "march": time.March,
	"april": time.April, "may": time.May, "june": time.June,
	"july": time.July, "august": time.August, "september": time.September,
	"october": time.October, "november": time.November, "december": time.December,
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "jun": time.June, "jul": time.July, "aug": time.August,
	"sep": time.September, "sept": time.September, "oct": time.October,
	"nov": time.November, "dec": time.December,
}

// ParseInstant parses a date-bearing cell into a UTC instant.
//
// Accepted shapes:
//
//	1704067200                  Unix epoch seconds, at least nine digits
//	"Mon, Jan 01, 2024"         long form, quotes and \" escapes stripped
//	2024-01-01, RFC 3339, ...   ISO-8601 date or date-time
//
// The second return is false on failure; malformed dates are expected in
// these feeds and are never fatal.
func ParseInstant(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	s = strings.NewReplacer(`\"`, "", `"`, "", `\`, "").Replace(s)
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	if epochRe.MatchString(s) {
		secs, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return time.Time{}, false
		}
		t := time.Unix(secs, 0).UTC()
		if t.Year() < 0 || t.Year() > 9999 {
			return time.Time{}, false
		}
		return t, true
	}

	if m := longFormRe.FindStringSubmatch(s); m != nil {
		return longForm(m[1], m[2], m[3])
	}

	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// longForm builds a UTC midnight from month-name, day and year captures.
// Impossible calendar dates (Feb 30) are rejected rather than rolled over.
func longForm(monthStr, dayStr, yearStr string) (time.Time, bool) {
	month, ok := monthNames[strings.ToLower(monthStr)]
	if !ok {
		return time.Time{}, false
	}
	day, err := strconv.Atoi(dayStr)
	if err != nil {
		return time.Time{}, false
	}
	year, err := strconv.Atoi(yearStr)
	if err != nil {
		return time.Time{}, false
	}
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day || t.Month() != month {
		return time.Time{}, false
	}
	return t, true
}

// DayKey returns the canonical YYYY-MM-DD join key for t, computed from
// UTC components so the host timezone never shifts a point to another day.
func DayKey(t time.Time) string {
	return t.UTC().Format(dayLayout)
}

// TruncateDay returns UTC midnight of t's UTC calendar day.
func TruncateDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDay parses a strict YYYY-MM-DD flag value into UTC midnight.
func ParseDay(s string) (time.Time, error) {
	t, err := time.Parse(dayLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	return t, nil
}

// AddMonths moves t by n calendar months, clamping the day to the last day
// of the target month: Mar 31 - 1 month is Feb 29 (or 28), never Mar 2.
func AddMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	total := int(m) - 1 + n
	ty := y + total/12
	tm := total % 12
	if tm < 0 {
		tm += 12
		ty--
	}
	target := time.Month(tm + 1)
	if last := daysIn(ty, target, t.Location()); d > last {
		d = last
	}
	hh, mm, ss := t.Clock()
	return time.Date(ty, target, d, hh, mm, ss, t.Nanosecond(), t.Location())
}

func daysIn(year int, month time.Month, loc *time.Location) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}
