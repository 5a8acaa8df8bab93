package event

import (
	"crypto/sha1"
	"encoding/json"
	"fmt"
	"time"
)

// Event is one performance of an opera production: a listing fanned out to a
// single resolved date.
type Event struct {
	Title     string    `json:"title" yaml:"title"`
	City      string    `json:"city" yaml:"city"`
	Date      time.Time `json:"date" yaml:"date"`
	Venue     string    `json:"venue" yaml:"venue"`
	DetailURL *string   `json:"detail_url" yaml:"detail_url"`
}

// NewEvent creates an Event. An empty detailURL is stored as nil.
func NewEvent(title, city, venue string, date time.Time, detailURL string) *Event {
	evt := &Event{
		Title: title,
		City:  city,
		Date:  date,
		Venue: venue,
	}
	if detailURL != "" {
		evt.DetailURL = &detailURL
	}
	return evt
}

// Link returns the detail URL or "" when the listing had none
func (e *Event) Link() string {
	if e.DetailURL == nil {
		return ""
	}
	return *e.DetailURL
}

// UID returns a deterministic identifier derived from all fields.
// It is only used where an external format demands one (iCalendar).
func (e *Event) UID() string {
	h := sha1.New()
	h.Write([]byte(e.Title + "|" + e.City + "|" + e.Venue + "|" + e.Date.UTC().Format(time.RFC3339)))
	return fmt.Sprintf("%x", h.Sum(nil))
}

// DetailInfo holds what a detail page adds to a listing.
// Metadata keys are the lower-cased row labels of the page's info table;
// there is no fixed schema.
type DetailInfo struct {
	Address  *string
	Metadata map[string]string
}

// NewDetailInfo creates an empty DetailInfo
func NewDetailInfo() *DetailInfo {
	return &DetailInfo{Metadata: make(map[string]string)}
}

// Flatten merges address and metadata into a single map.
// A metadata row labelled "address" wins over the address span.
func (d *DetailInfo) Flatten() map[string]any {
	out := make(map[string]any, len(d.Metadata)+1)
	if d.Address != nil {
		out["address"] = *d.Address
	} else {
		out["address"] = nil
	}
	for k, v := range d.Metadata {
		out[k] = v
	}
	return out
}

// MarshalJSON encodes the flattened form
func (d *DetailInfo) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Flatten())
}
