package cli

import (
	"testing"
	"time"

	"github.com/pfrederiksen/opera-events/internal/event"
)

func TestSortEvents(t *testing.T) {
	mk := func(title, city string, day int) *event.Event {
		return event.NewEvent(title, city, "", time.Date(2026, time.March, day, 0, 0, 0, 0, time.UTC), "")
	}

	tests := []struct {
		name  string
		order SortOrder
		want  []string
	}{
		{"none keeps document order", SortNone, []string{"Tosca/Wien/9", "carmen/Berlin/3", "Aida/berlin/1", "Tosca/Berlin/5"}},
		{"date", SortByDate, []string{"Aida/berlin/1", "carmen/Berlin/3", "Tosca/Berlin/5", "Tosca/Wien/9"}},
		{"city ignores case then date", SortByCity, []string{"Aida/berlin/1", "carmen/Berlin/3", "Tosca/Berlin/5", "Tosca/Wien/9"}},
		{"title ignores case then date", SortByTitle, []string{"Aida/berlin/1", "carmen/Berlin/3", "Tosca/Berlin/5", "Tosca/Wien/9"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events := []*event.Event{
				mk("Tosca", "Wien", 9),
				mk("carmen", "Berlin", 3),
				mk("Aida", "berlin", 1),
				mk("Tosca", "Berlin", 5),
			}

			sortEvents(events, tt.order)

			for i, want := range tt.want {
				got := events[i].Title + "/" + events[i].City + "/" + events[i].Date.Format("2")
				if got != want {
					t.Errorf("position %d = %q, want %q", i, got, want)
				}
			}
		})
	}
}

func TestParseSortOrder(t *testing.T) {
	for _, s := range []string{"none", "date", "CITY", "title"} {
		if _, ok := parseSortOrder(s); !ok {
			t.Errorf("parseSortOrder(%q) rejected", s)
		}
	}
	if _, ok := parseSortOrder("venue"); ok {
		t.Error("parseSortOrder(venue) accepted")
	}
}
