// Package cli implements the command-line interface for opera-events.
//
// The cli package provides the Cobra-based CLI: search for performances by
// work id or title, inspect an event detail page, and serve the HTTP API.
// Search results can be filtered (city, venue, dates, weekends), sorted
// (date/city/title) and written as text, JSON, YAML or an iCalendar feed.
package cli
