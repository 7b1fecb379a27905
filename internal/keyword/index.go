// Package keyword provides find-in-preview search over extracted entries.
package keyword

import (
	"context"

	"github.com/hyperjump/textract/internal/models"
)

// SearchOptions optional parameters for keyword search. Nil means use defaults.
type SearchOptions struct {
	// LabelBoost multiplies the score contribution from matches in the file label.
	// Values > 1 make label matches rank higher. Use 1.0 for no boost.
	LabelBoost float64
	// Fuzzy enables typo-tolerant matching.
	Fuzzy bool
	// Fuzziness is the maximum edit distance for fuzzy matching (1 or 2).
	// Default is 2 when Fuzzy is true.
	Fuzziness int
}

// Index defines entry indexing and search operations.
type Index interface {
	Index(ctx context.Context, id string, entry models.Entry) error
	Search(ctx context.Context, query string, limit int, opts *SearchOptions) ([]*Result, error)
	Delete(ctx context.Context, id string) error
	// Reset removes every entry.
	Reset(ctx context.Context) error
	// DocCount returns the total number of entries in the index.
	DocCount() (uint64, error)
	Close() error
}

// Result is a single keyword search hit.
type Result struct {
	ID    string
	Score float64
}

// TermDictionary exposes indexed terms with their document frequency.
type TermDictionary interface {
	TermFrequencies() (map[string]int, error)
}
