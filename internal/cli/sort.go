package cli

import (
	"sort"
	"strings"

	"github.com/pfrederiksen/opera-events/internal/event"
)

// SortOrder represents the available sorting options
type SortOrder string

const (
	SortNone    SortOrder = "none"
	SortByDate  SortOrder = "date"
	SortByCity  SortOrder = "city"
	SortByTitle SortOrder = "title"
)

func parseSortOrder(s string) (SortOrder, bool) {
	switch o := SortOrder(strings.ToLower(s)); o {
	case SortNone, SortByDate, SortByCity, SortByTitle:
		return o, true
	}
	return "", false
}

// sortEvents sorts a slice of events based on the specified sort order.
// The sort is stable, so events that compare equal keep document order.
func sortEvents(events []*event.Event, sortOrder SortOrder) {
	switch sortOrder {
	case SortByDate:
		sort.SliceStable(events, func(i, j int) bool {
			return events[i].Date.Before(events[j].Date)
		})
	case SortByCity:
		sort.SliceStable(events, func(i, j int) bool {
			ci, cj := strings.ToLower(events[i].City), strings.ToLower(events[j].City)
			if ci != cj {
				return ci < cj
			}
			// If cities are equal, sort by date
			return events[i].Date.Before(events[j].Date)
		})
	case SortByTitle:
		sort.SliceStable(events, func(i, j int) bool {
			ti, tj := strings.ToLower(events[i].Title), strings.ToLower(events[j].Title)
			if ti != tj {
				return ti < tj
			}
			// If titles are equal, sort by date
			return events[i].Date.Before(events[j].Date)
		})
	}
}
