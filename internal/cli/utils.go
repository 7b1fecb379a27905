// Package cli renders session output for the textract command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/textract/internal/export"
	"github.com/hyperjump/textract/internal/models"
	"github.com/hyperjump/textract/internal/session"
	"github.com/hyperjump/textract/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat accepts "text" and "json".
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(s)) {
	case OutputText:
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q; use text or json", s)
	}
}

// ExtractionReport is the JSON form of one extract run.
type ExtractionReport struct {
	Session    string          `json:"session"`
	Entries    []models.Entry  `json:"entries"`
	Notices    []models.Notice `json:"notices"`
	Skipped    []string        `json:"skipped,omitempty"`
	Duplicates []string        `json:"duplicates,omitempty"`
}

// WriteExtraction writes the preview, or the full report as JSON, to w.
// In text mode notices are not written; use WriteNotices for those.
func WriteExtraction(w io.Writer, report *ExtractionReport, format OutputFormat) error {
	if format == OutputJSON {
		if report.Entries == nil {
			report.Entries = []models.Entry{}
		}
		if report.Notices == nil {
			report.Notices = []models.Notice{}
		}
		return writeJSON(w, report)
	}
	_, err := io.WriteString(w, export.Assemble(report.Entries))
	return err
}

// WriteNotices writes one line per notice, prefixed by its level.
func WriteNotices(w io.Writer, notices []models.Notice) {
	for _, n := range notices {
		switch n.Level {
		case models.NoticeWarning:
			fmt.Fprintf(w, "Warning: %s\n", n.Message)
		case models.NoticeError:
			fmt.Fprintf(w, "Error: %s\n", n.Message)
		default:
			fmt.Fprintln(w, n.Message)
		}
	}
}

// WriteSearchResults writes search results to w in the given format.
func WriteSearchResults(w io.Writer, res *session.SearchResult, format OutputFormat) error {
	if format == OutputJSON {
		if res.Hits == nil {
			res.Hits = []models.SearchHit{}
		}
		return writeJSON(w, res)
	}
	writeSearchResultsText(w, res)
	return nil
}

func writeSearchResultsText(w io.Writer, res *session.SearchResult) {
	fmt.Fprintf(w, "\nFound %d results for %q\n\n", len(res.Hits), res.Query)
	for _, hit := range res.Hits {
		fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
		fmt.Fprintf(w, "Rank: %d | Score: %.4f | %s\n", hit.Rank, hit.Score, hit.Label)
		if hit.Snippet != "" {
			fmt.Fprintf(w, "\n%s\n", Truncate(hit.Snippet, 200))
		}
		fmt.Fprintln(w)
	}
	if len(res.Hits) == 0 && res.Suggestion != "" {
		fmt.Fprintf(w, "Did you mean: %s\n", res.Suggestion)
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Truncate truncates s to maxLen runes and appends "..." if truncated.
func Truncate(s string, maxLen int) string {
	return utils.Truncate(s, maxLen)
}
