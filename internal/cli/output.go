package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/pfrederiksen/opera-events/internal/calendar"
	"github.com/pfrederiksen/opera-events/internal/event"
	"gopkg.in/yaml.v3"
)

// OutputFormat specifies the output format
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
	FormatYAML OutputFormat = "yaml"
	FormatICS  OutputFormat = "ics"
)

func parseFormat(s string, allowed ...OutputFormat) (OutputFormat, error) {
	f := OutputFormat(strings.ToLower(strings.TrimSpace(s)))
	names := make([]string, len(allowed))
	for i, a := range allowed {
		if f == a {
			return f, nil
		}
		names[i] = "'" + string(a) + "'"
	}
	return "", fmt.Errorf("invalid format: %s (must be %s)", s, strings.Join(names, ", "))
}

// OutputResult contains data to be output
type OutputResult struct {
	Query        string         `json:"query" yaml:"query"`
	TotalResults int            `json:"total_results" yaml:"total_results"`
	Results      []*event.Event `json:"results" yaml:"results"`
	Filter       string         `json:"filter,omitempty" yaml:"filter,omitempty"`
	GeneratedAt  time.Time      `json:"-" yaml:"-"`
}

// WriteOutput writes the result in the specified format
func WriteOutput(w io.Writer, result *OutputResult, format OutputFormat, verbose bool) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, result)
	case FormatYAML:
		return writeYAML(w, result)
	case FormatICS:
		_, err := io.WriteString(w, calendar.GenerateICS(result.Results, result.GeneratedAt))
		return err
	case FormatText:
		return writeText(w, result, verbose)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// writeJSON outputs results as JSON
func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func writeYAML(w io.Writer, v any) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(v); err != nil {
		return err
	}
	return encoder.Close()
}

// writeText outputs results as human-readable text
func writeText(w io.Writer, result *OutputResult, verbose bool) error {
	if verbose && result.Filter != "" {
		fmt.Fprintf(w, "Filter: %s\n\n", result.Filter)
	}

	if result.TotalResults == 0 {
		fmt.Fprintln(w, "No events found.")
		return nil
	}

	for _, evt := range result.Results {
		fmt.Fprintf(w, "%-22s %s - %s (%s)\n", formatDate(evt.Date), evt.Title, evt.Venue, evt.City)
		if verbose {
			if link := evt.Link(); link != "" {
				fmt.Fprintf(w, "%-22s Link: %s\n", "", link)
			}
		}
	}
	fmt.Fprintf(w, "\nTotal: %d events\n", result.TotalResults)

	return nil
}

func formatDate(t time.Time) string {
	if t.Hour() == 0 && t.Minute() == 0 {
		return t.Format("Mon 2 Jan 2006")
	}
	return t.Format("Mon 2 Jan 2006 15:04")
}

// WriteDetail writes an event detail page in the specified format
func WriteDetail(w io.Writer, info *event.DetailInfo, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, info)
	case FormatText:
		address := "(unknown)"
		if info.Address != nil {
			address = *info.Address
		}
		fmt.Fprintf(w, "Address: %s\n", address)

		keys := make([]string, 0, len(info.Metadata))
		for k := range info.Metadata {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(w, "%s: %s\n", k, info.Metadata[k])
		}
		return nil
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}
