// Package models defines core data structures for selected documents, extracted entries, and session items.
package models

import (
	"path/filepath"
	"time"
)

// Document is a file selected by the user. It is immutable once created.
type Document struct {
	Path   string `json:"path"`
	Format string `json:"format"`
	Label  string `json:"label"`
}

// NewDocument returns a Document for path; the label is the base filename.
func NewDocument(path, format string) Document {
	return Document{Path: path, Format: format, Label: filepath.Base(path)}
}

// Entry is one successfully extracted (label, text) pair held for export.
type Entry struct {
	Label   string `json:"label"`
	Content string `json:"content"`
}

// ItemState is the extraction state of a selected document.
type ItemState string

const (
	// StatePending means the document was selected but extraction has not finished.
	StatePending ItemState = "pending"
	// StateExtracted means text was extracted; Item.Text is set.
	StateExtracted ItemState = "extracted"
	// StateFailed means extraction failed; Item.Reason is set.
	StateFailed ItemState = "failed"
)

// Item is one selected document and the outcome of extracting it.
// A session keeps items in selection order; only Extracted items yield entries.
// ExtractedAt is nil until the first extraction attempt finishes.
type Item struct {
	ID          string    `json:"id"`
	Document    Document  `json:"document"`
	State       ItemState `json:"state"`
	Text        string    `json:"-"`
	Reason      string    `json:"reason,omitempty"`
	SelectedAt  time.Time  `json:"selected_at"`
	ExtractedAt *time.Time `json:"extracted_at,omitempty"`
}

// Entry returns the item's export entry. ok is false unless the item is Extracted.
func (it *Item) Entry() (entry Entry, ok bool) {
	if it.State != StateExtracted {
		return Entry{}, false
	}
	return Entry{Label: it.Document.Label, Content: it.Text}, true
}
