// Package filter narrows a list of opera performances by date, place and
// weekday.
//
// Criteria combine with AND; within Cities or Venues any one entry may match.
// City and venue matching is a case-insensitive substring test, so "wien"
// matches "Wien" and "Theater an der Wien" alike.
//
// Example usage:
//
//	// Weekend performances in Berlin during March
//	from, to, err := filter.ParseDateRange("March", time.Now())
//	if err != nil {
//	    return err
//	}
//	f := filter.NewFilter()
//	f.DateFrom, f.DateTo = from, to
//	f.Cities = []string{"Berlin"}
//	f.WeekendsOnly = true
//
//	filtered := f.Apply(events)
package filter

import (
	"fmt"
	"strings"
	"time"

	"github.com/pfrederiksen/opera-events/internal/event"
)

// Filter represents event filtering criteria
type Filter struct {
	// Date window, inclusive, compared on calendar days
	DateFrom *time.Time `json:"date_from,omitempty"`
	DateTo   *time.Time `json:"date_to,omitempty"`

	// City filtering (case-insensitive substring match)
	Cities []string `json:"cities,omitempty"`

	// Venue filtering (case-insensitive substring match)
	Venues []string `json:"venues,omitempty"`

	// Weekend-only filtering (Saturday/Sunday)
	WeekendsOnly bool `json:"weekends_only,omitempty"`
}

// NewFilter creates a new empty filter with no active criteria.
// The filter will match all events until criteria are added.
func NewFilter() *Filter {
	return &Filter{
		Cities: []string{},
		Venues: []string{},
	}
}

// IsEmpty checks if the filter has any active criteria.
func (f *Filter) IsEmpty() bool {
	return f.DateFrom == nil &&
		f.DateTo == nil &&
		len(f.Cities) == 0 &&
		len(f.Venues) == 0 &&
		!f.WeekendsOnly
}

// Matches checks if an event matches all active filter criteria.
// An empty filter matches all events.
func (f *Filter) Matches(evt *event.Event) bool {
	if f.IsEmpty() {
		return true
	}

	day := calendarDay(evt.Date)

	if f.DateFrom != nil && day.Before(calendarDay(*f.DateFrom)) {
		return false
	}
	if f.DateTo != nil && day.After(calendarDay(*f.DateTo)) {
		return false
	}

	if f.WeekendsOnly {
		weekday := evt.Date.Weekday()
		if weekday != time.Saturday && weekday != time.Sunday {
			return false
		}
	}

	if !containsAny(evt.City, f.Cities) {
		return false
	}
	if !containsAny(evt.Venue, f.Venues) {
		return false
	}

	return true
}

// Apply returns the events matching the filter, in their original order.
// The result is never nil.
func (f *Filter) Apply(events []*event.Event) []*event.Event {
	filtered := make([]*event.Event, 0, len(events))
	for _, evt := range events {
		if f.Matches(evt) {
			filtered = append(filtered, evt)
		}
	}
	return filtered
}

// String returns a human-readable description of the active filter criteria.
// Format: "From: Mar 1, 2026 | To: Mar 31, 2026 | Cities: Berlin | Weekends only"
func (f *Filter) String() string {
	if f.IsEmpty() {
		return "No active filters"
	}

	var parts []string

	if f.DateFrom != nil {
		parts = append(parts, fmt.Sprintf("From: %s", f.DateFrom.Format("Jan 2, 2006")))
	}

	if f.DateTo != nil {
		parts = append(parts, fmt.Sprintf("To: %s", f.DateTo.Format("Jan 2, 2006")))
	}

	if len(f.Cities) > 0 {
		parts = append(parts, fmt.Sprintf("Cities: %s", strings.Join(f.Cities, ", ")))
	}

	if len(f.Venues) > 0 {
		parts = append(parts, fmt.Sprintf("Venues: %s", strings.Join(f.Venues, ", ")))
	}

	if f.WeekendsOnly {
		parts = append(parts, "Weekends only")
	}

	return strings.Join(parts, " | ")
}

// containsAny reports whether s contains one of needles, ignoring case.
// An empty needle list matches everything.
func containsAny(s string, needles []string) bool {
	if len(needles) == 0 {
		return true
	}
	lower := strings.ToLower(s)
	for _, n := range needles {
		if strings.Contains(lower, strings.ToLower(n)) {
			return true
		}
	}
	return false
}

func calendarDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
