package scraper

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"
)

// MaxTermLength is the longest accepted freetext search term, in characters
const MaxTermLength = 200

// Query selects the results page to scrape: either a catalog work id or a
// freetext term, never both.
type Query struct {
	WorkID int
	Term   string
}

// InvalidQueryError reports a query that was rejected before any fetch
type InvalidQueryError struct {
	Reason string
}

func (e *InvalidQueryError) Error() string {
	return "invalid query: " + e.Reason
}

// ParseQuery turns a single user-supplied string into a Query. Integers are
// treated as work ids, anything else as freetext.
func ParseQuery(s string) Query {
	s = strings.TrimSpace(s)
	if id, err := strconv.Atoi(s); err == nil {
		return Query{WorkID: id}
	}
	return Query{Term: s}
}

// Validate checks that exactly one of WorkID and Term is set and in range.
func (q Query) Validate() error {
	hasID := q.WorkID != 0
	hasTerm := q.Term != ""

	switch {
	case !hasID && !hasTerm:
		return &InvalidQueryError{Reason: "provide either a work id or a search term"}
	case hasID && hasTerm:
		return &InvalidQueryError{Reason: "provide either a work id or a search term, not both"}
	case hasID && q.WorkID < 0:
		return &InvalidQueryError{Reason: fmt.Sprintf("work id must be positive, got %d", q.WorkID)}
	case hasTerm && utf8.RuneCountInString(q.Term) > MaxTermLength:
		return &InvalidQueryError{Reason: fmt.Sprintf("search term longer than %d characters", MaxTermLength)}
	}
	return nil
}

// String returns the work id or the term, as echoed back to API clients
func (q Query) String() string {
	if q.WorkID != 0 {
		return strconv.Itoa(q.WorkID)
	}
	return q.Term
}

// URL builds the results page address for q relative to base.
func (q Query) URL(base *url.URL) string {
	origin := strings.TrimRight(base.String(), "/")
	if q.WorkID != 0 {
		return fmt.Sprintf("%s/search-opera/work=%d", origin, q.WorkID)
	}
	return fmt.Sprintf("%s/search-opera/freetext=%s", origin, escapeTerm(q.Term))
}

// escapeTerm percent-encodes every byte outside A-Z a-z 0-9 and "_.-~",
// "/" included.
func escapeTerm(s string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	b.Grow(len(s) * 3)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0x0F])
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	case c == '-', c == '_', c == '.', c == '~':
		return true
	}
	return false
}
