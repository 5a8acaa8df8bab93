package scraper

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/pfrederiksen/opera-events/internal/event"
)

const (
	addressSelector   = "span.listing-address"
	metaTableSelector = "tbody.plassmap_table"
)

// ParseDetail extracts the venue address and the info table from an event
// detail page. Both are optional.
func ParseDetail(r io.Reader) (*event.DetailInfo, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}

	info := event.NewDetailInfo()

	if addr := doc.Find(addressSelector).First(); addr.Length() > 0 {
		text := strings.TrimSpace(addr.Text())
		info.Address = &text
	}

	doc.Find(metaTableSelector).First().Find("tr").Each(func(i int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 2 {
			return
		}
		key := strings.ToLower(strings.TrimSpace(cells.Eq(0).Text()))
		value := strings.TrimSpace(cells.Eq(1).Text())
		info.Metadata[key] = value
	})

	return info, nil
}
