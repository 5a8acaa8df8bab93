// Package calendar exports opera performances as an iCalendar (.ics) feed.
//
// Listing times are wall-clock times at the venue with no zone attached, so
// timed performances are written as floating local times. Performances
// without a known curtain time become all-day entries.
package calendar

import (
	"fmt"
	"strings"
	"time"

	"github.com/pfrederiksen/opera-events/internal/event"
)

const (
	// PerformanceLength is the assumed duration of a timed performance
	PerformanceLength = 3 * time.Hour

	uidDomain = "opera-events"
	maxLine   = 75
)

// GenerateICS generates a calendar with one VEVENT per performance. now is
// used for DTSTAMP. An empty list still yields a valid, empty calendar.
func GenerateICS(events []*event.Event, now time.Time) string {
	var ics strings.Builder

	writeLine(&ics, "BEGIN:VCALENDAR")
	writeLine(&ics, "VERSION:2.0")
	writeLine(&ics, "PRODID:-//Opera Events//opera-events//EN")
	writeLine(&ics, "CALSCALE:GREGORIAN")
	writeLine(&ics, "METHOD:PUBLISH")
	writeLine(&ics, "X-WR-CALNAME:Opera performances")

	stamp := formatICSTime(now)
	for _, evt := range events {
		writeEvent(&ics, evt, stamp)
	}

	writeLine(&ics, "END:VCALENDAR")
	return ics.String()
}

func writeEvent(ics *strings.Builder, evt *event.Event, stamp string) {
	writeLine(ics, "BEGIN:VEVENT")
	writeLine(ics, fmt.Sprintf("UID:%s@%s", evt.UID(), uidDomain))
	writeLine(ics, "DTSTAMP:"+stamp)

	if isAllDay(evt.Date) {
		writeLine(ics, "DTSTART;VALUE=DATE:"+evt.Date.Format("20060102"))
		writeLine(ics, "DTEND;VALUE=DATE:"+evt.Date.AddDate(0, 0, 1).Format("20060102"))
	} else {
		writeLine(ics, "DTSTART:"+formatLocalTime(evt.Date))
		writeLine(ics, "DTEND:"+formatLocalTime(evt.Date.Add(PerformanceLength)))
	}

	writeLine(ics, "SUMMARY:"+escapeICS(evt.Title))
	writeLine(ics, "LOCATION:"+escapeICS(location(evt)))
	if link := evt.Link(); link != "" {
		writeLine(ics, "URL:"+strings.ToValidUTF8(link, ""))
	}
	writeLine(ics, "STATUS:CONFIRMED")
	writeLine(ics, "TRANSP:OPAQUE")
	writeLine(ics, "END:VEVENT")
}

func location(evt *event.Event) string {
	switch {
	case evt.Venue != "" && evt.City != "":
		return evt.Venue + ", " + evt.City
	case evt.Venue != "":
		return evt.Venue
	default:
		return evt.City
	}
}

func isAllDay(t time.Time) bool {
	return t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0
}

// formatICSTime formats a time.Time as a UTC iCalendar datetime string
func formatICSTime(t time.Time) string {
	return t.UTC().Format("20060102T150405Z")
}

// formatLocalTime formats the wall clock of t as a floating datetime
func formatLocalTime(t time.Time) string {
	return t.Format("20060102T150405")
}

// escapeICS escapes special characters for iCalendar format
func escapeICS(s string) string {
	s = strings.ToValidUTF8(s, "\uFFFD")
	// Replace special characters according to RFC 5545
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, ",", "\\,")
	s = strings.ReplaceAll(s, ";", "\\;")
	s = strings.ReplaceAll(s, "\r\n", "\\n")
	s = strings.ReplaceAll(s, "\n", "\\n")
	return s
}

// writeLine writes one content line, folded at 75 octets without splitting
// a UTF-8 sequence.
func writeLine(ics *strings.Builder, line string) {
	limit := maxLine
	for len(line) > limit {
		cut := limit
		for cut > 0 && !isRuneStart(line[cut]) {
			cut--
		}
		if cut == 0 {
			cut = limit
		}
		ics.WriteString(line[:cut])
		ics.WriteString("\r\n ")
		line = line[cut:]
		// continuation lines lose one octet to the leading space
		limit = maxLine - 1
	}
	ics.WriteString(line)
	ics.WriteString("\r\n")
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
