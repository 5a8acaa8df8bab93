package filter

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DayLayout is the layout accepted for single-day bounds such as --from
const DayLayout = "2006-01-02"

const monthPattern = `(jan|january|feb|february|mar|march|apr|april|may|jun|june|jul|july|aug|august|sep|sept|september|oct|october|nov|november|dec|december)`

var (
	sameMonthRange  = regexp.MustCompile(`(?i)^` + monthPattern + `\s+(\d{1,2})\s*-\s*(\d{1,2})$`)
	crossMonthRange = regexp.MustCompile(`(?i)^` + monthPattern + `\s+(\d{1,2})\s*-\s*` + monthPattern + `\s+(\d{1,2})$`)
	wholeMonth      = regexp.MustCompile(`(?i)^` + monthPattern + `$`)
)

// ParseDay parses a YYYY-MM-DD day bound.
func ParseDay(s string) (*time.Time, error) {
	t, err := time.Parse(DayLayout, strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	return &t, nil
}

// ParseDateRange parses a date range string into start and end days.
//
// Supported formats:
//   - "Mar 1-15" or "March 1-15" - Same month, different days
//   - "March 1 - April 15" - Different months
//   - "March" - Entire month
//
// The year is inferred from now: a month earlier than now's month is taken
// to be next year's, and for cross-month ranges an end month before the
// start month rolls into the following year. Both bounds are at midnight UTC;
// Filter compares on calendar days so the end day is included.
func ParseDateRange(input string, now time.Time) (*time.Time, *time.Time, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, nil, fmt.Errorf("date range cannot be empty")
	}

	if m := sameMonthRange.FindStringSubmatch(input); m != nil {
		month := parseMonth(m[1])
		year := yearForMonth(month, now)

		from, err := day(year, month, m[2])
		if err != nil {
			return nil, nil, err
		}
		to, err := day(year, month, m[3])
		if err != nil {
			return nil, nil, err
		}
		if from.After(*to) {
			return nil, nil, fmt.Errorf("start date must be before end date")
		}
		return from, to, nil
	}

	if m := crossMonthRange.FindStringSubmatch(input); m != nil {
		month1, month2 := parseMonth(m[1]), parseMonth(m[3])
		year1 := yearForMonth(month1, now)
		year2 := year1
		if month2 < month1 {
			year2++
		}

		from, err := day(year1, month1, m[2])
		if err != nil {
			return nil, nil, err
		}
		to, err := day(year2, month2, m[4])
		if err != nil {
			return nil, nil, err
		}
		if from.After(*to) {
			return nil, nil, fmt.Errorf("start date must be before end date")
		}
		return from, to, nil
	}

	if m := wholeMonth.FindStringSubmatch(input); m != nil {
		month := parseMonth(m[1])
		year := yearForMonth(month, now)
		from := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
		to := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC)
		return &from, &to, nil
	}

	return nil, nil, fmt.Errorf("invalid date range format. Use 'Mar 1-15', 'March 1 - April 15', or 'March'")
}

// day builds a UTC date, rejecting days the month does not have
func day(year int, month time.Month, dayText string) (*time.Time, error) {
	d, err := strconv.Atoi(dayText)
	if err != nil {
		return nil, fmt.Errorf("invalid day: %s", dayText)
	}
	t := time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
	if t.Day() != d || t.Month() != month {
		return nil, fmt.Errorf("invalid day: %s %s", month, dayText)
	}
	return &t, nil
}

// parseMonth converts a month name to time.Month
func parseMonth(name string) time.Month {
	name = strings.ToLower(strings.TrimSpace(name))

	months := map[string]time.Month{
		"jan": time.January, "january": time.January,
		"feb": time.February, "february": time.February,
		"mar": time.March, "march": time.March,
		"apr": time.April, "april": time.April,
		"may": time.May,
		"jun": time.June, "june": time.June,
		"jul": time.July, "july": time.July,
		"aug": time.August, "august": time.August,
		"sep": time.September, "sept": time.September, "september": time.September,
		"oct": time.October, "october": time.October,
		"nov": time.November, "november": time.November,
		"dec": time.December, "december": time.December,
	}

	return months[name]
}

// yearForMonth returns now's year, or the next one if month has already
// passed.
func yearForMonth(month time.Month, now time.Time) int {
	year := now.Year()
	if month < now.Month() {
		year++
	}
	return year
}
