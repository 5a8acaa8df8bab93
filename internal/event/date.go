package event

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DefaultQualifiers are the performance labels stripped from a date token
// before it is parsed. "mat" marks a matinee.
var DefaultQualifiers = []string{"mat"}

// DateContext is the month and year carried forward from the previous
// resolved token of the same listing. Zero values mean "not yet known".
type DateContext struct {
	Month time.Month
	Year  int
}

// DateParseError reports a token that matched none of the supported formats
type DateParseError struct {
	Token string
}

func (e *DateParseError) Error() string {
	return fmt.Sprintf("unrecognized date token %q", e.Token)
}

// Layouts without a year resolve against now.Year().
var (
	weekdayTimeLayouts = []string{"Mon 2 Jan 15:04", "Monday 2 Jan 15:04"}
	weekdayLayouts     = []string{"Mon 2 Jan", "Monday 2 Jan"}
	fullDateLayout     = "Monday 2 January 2006"
	dayMonthLayout     = "2 Jan"
	monthDayLayout     = "Jan 2"
)

// ParseDateToken resolves a single date token such as "Sun 3 May at 14:00",
// "Sunday 03 November 2024", "3 May", "May 03" or "05".
//
// Formats are tried in that order. Only "Monday 2 January 2006" carries its
// own year. "May 03" takes the year from ctx when known. A bare day takes both
// month and year from ctx, and falls back to now's month and year when either
// is missing. The weekday is never checked against the resolved date.
func ParseDateToken(token string, ctx DateContext, now time.Time, qualifiers ...string) (time.Time, error) {
	s := normalizeToken(token, qualifiers)
	if s == "" {
		return time.Time{}, &DateParseError{Token: token}
	}

	for _, layouts := range [][]string{weekdayTimeLayouts, weekdayLayouts} {
		if t, ok := parseAny(layouts, s); ok {
			return resolve(token, now.Year(), t.Month(), t.Day(), t.Hour(), t.Minute())
		}
	}

	if t, err := time.Parse(fullDateLayout, s); err == nil {
		return resolve(token, t.Year(), t.Month(), t.Day(), 0, 0)
	}

	if t, err := time.Parse(dayMonthLayout, s); err == nil {
		return resolve(token, now.Year(), t.Month(), t.Day(), 0, 0)
	}

	if t, err := time.Parse(monthDayLayout, s); err == nil {
		year := ctx.Year
		if year == 0 {
			year = now.Year()
		}
		return resolve(token, year, t.Month(), t.Day(), 0, 0)
	}

	if day, err := strconv.Atoi(s); err == nil {
		month, year := ctx.Month, ctx.Year
		if month == 0 || year == 0 {
			month, year = now.Month(), now.Year()
		}
		return resolve(token, year, month, day, 0, 0)
	}

	return time.Time{}, &DateParseError{Token: token}
}

// normalizeToken collapses whitespace and drops the "at" marker and any
// qualifier words that follow the first field.
func normalizeToken(token string, qualifiers []string) string {
	if len(qualifiers) == 0 {
		qualifiers = DefaultQualifiers
	}

	fields := strings.Fields(token)
	if len(fields) == 0 {
		return ""
	}

	kept := make([]string, 0, len(fields))
	kept = append(kept, fields[0])
	for _, f := range fields[1:] {
		if strings.EqualFold(f, "at") || isQualifier(f, qualifiers) {
			continue
		}
		kept = append(kept, f)
	}
	return strings.Join(kept, " ")
}

func isQualifier(field string, qualifiers []string) bool {
	for _, q := range qualifiers {
		if strings.EqualFold(field, q) {
			return true
		}
	}
	return false
}

func parseAny(layouts []string, s string) (time.Time, bool) {
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// resolve builds the UTC date and rejects combinations that do not exist
// in the target year (Feb 29 outside leap years, day 31 in short months).
func resolve(token string, year int, month time.Month, day, hour, minute int) (time.Time, error) {
	t := time.Date(year, month, day, hour, minute, 0, 0, time.UTC)
	if t.Year() != year || t.Month() != month || t.Day() != day {
		return time.Time{}, &DateParseError{Token: token}
	}
	return t, nil
}

// DateList is the result of expanding one listing's date string.
// Skipped holds the tokens that could not be resolved, in input order.
type DateList struct {
	Dates   []time.Time
	Skipped []string
}

// expansion is the accumulator threaded through the token fold
type expansion struct {
	list DateList
	ctx  DateContext
}

func (x expansion) step(token string, now time.Time, qualifiers []string) expansion {
	if token == "" {
		return x
	}
	t, err := ParseDateToken(token, x.ctx, now, qualifiers...)
	if err != nil {
		x.list.Skipped = append(x.list.Skipped, token)
		return x
	}
	x.list.Dates = append(x.list.Dates, t)
	x.ctx = DateContext{Month: t.Month(), Year: t.Year()}
	return x
}

// ExpandDates splits a listing's date string on commas and resolves each
// entry in order. A resolved entry sets the month and year for the entries
// after it; an unreadable entry is skipped and does not affect that context.
// Dates are returned in input order, never sorted.
func ExpandDates(raw string, now time.Time, qualifiers ...string) DateList {
	normalized := strings.Join(strings.Fields(raw), " ")
	if normalized == "" {
		return DateList{}
	}

	var acc expansion
	for _, token := range strings.Split(normalized, ",") {
		acc = acc.step(strings.TrimSpace(token), now, qualifiers)
	}
	return acc.list
}
