package scraper

import (
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/pfrederiksen/opera-events/internal/event"
)

// Selectors for the results page markup.
const (
	listingSelector = `li[data-type="nothing"]`
	citySelector    = "div.listing-ms-city"
	datesSelector   = "div.listing-ms-dates"
	venueSelector   = "div.listing-ms-venue"
	mainSelector    = "div.listing-ms-main"
	linkSelector    = "a.listing-ms-right"

	// wishListLabel is the text of the bookmark button rendered inside the
	// title block.
	wishListLabel = "Wish list"
)

// MalformedListingError reports a listing block without one of the required
// fields. Such blocks are skipped as a whole.
type MalformedListingError struct {
	Field string
}

func (e *MalformedListingError) Error() string {
	return fmt.Sprintf("listing block has no %s", e.Field)
}

// ListingStats describes one results page parse. An empty event list with
// Blocks > 0 means listings were present but none produced a date.
type ListingStats struct {
	Blocks        int
	Skipped       []error
	DroppedTokens []string
}

// ParseListings extracts one event per resolved date from every listing
// block on a results page, in document order. Relative detail links are
// resolved against base.
func ParseListings(r io.Reader, base *url.URL, now time.Time, qualifiers []string) ([]*event.Event, ListingStats, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, ListingStats{}, fmt.Errorf("parsing HTML: %w", err)
	}

	events := make([]*event.Event, 0)
	var stats ListingStats

	doc.Find(listingSelector).Each(func(i int, sel *goquery.Selection) {
		stats.Blocks++

		l, err := parseListing(sel, base)
		if err != nil {
			stats.Skipped = append(stats.Skipped, err)
			return
		}

		dates := event.ExpandDates(l.dates, now, qualifiers...)
		stats.DroppedTokens = append(stats.DroppedTokens, dates.Skipped...)
		for _, d := range dates.Dates {
			events = append(events, event.NewEvent(l.title, l.city, l.venue, d, l.detailURL))
		}
	})

	return events, stats, nil
}

// listing is the raw text of one listing block before date expansion
type listing struct {
	title     string
	city      string
	venue     string
	dates     string
	detailURL string
}

func parseListing(sel *goquery.Selection, base *url.URL) (*listing, error) {
	city, ok := fieldText(sel, citySelector)
	if !ok {
		return nil, &MalformedListingError{Field: "city"}
	}
	dates, ok := fieldText(sel, datesSelector)
	if !ok {
		return nil, &MalformedListingError{Field: "dates"}
	}
	venue, ok := fieldText(sel, venueSelector)
	if !ok {
		return nil, &MalformedListingError{Field: "venue"}
	}
	main, ok := fieldText(sel, mainSelector)
	if !ok {
		return nil, &MalformedListingError{Field: "title"}
	}

	return &listing{
		title:     strings.TrimSpace(strings.ReplaceAll(main, wishListLabel, "")),
		city:      city,
		venue:     venue,
		dates:     dates,
		detailURL: detailLink(sel, base),
	}, nil
}

// fieldText returns the trimmed text of the first match, and false when
// there is no match at all. An element with empty text still counts.
func fieldText(sel *goquery.Selection, selector string) (string, bool) {
	found := sel.Find(selector).First()
	if found.Length() == 0 {
		return "", false
	}
	return strings.TrimSpace(found.Text()), true
}

func detailLink(sel *goquery.Selection, base *url.URL) string {
	href, exists := sel.Find(linkSelector).First().Attr("href")
	href = strings.TrimSpace(href)
	if !exists || href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}
