// Package scraper fetches opera search results and event detail pages from
// bachtrack.com and turns them into event records.
//
// A results page holds one listing block per production. Each block is
// expanded into one event per performance date; blocks missing a required
// field are skipped whole, while unreadable date entries are dropped one at a
// time. Neither case is reported as an error. Only fetch failures
// (*FetchError) and rejected queries (*InvalidQueryError) reach the caller.
//
// ParseListings and ParseDetail work on any io.Reader and are used directly by
// the tests with fixtures from testdata/.
package scraper
