// Package session holds the files selected in one run, their extraction outcomes,
// and the operations that act on them.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hyperjump/textract/internal/export"
	"github.com/hyperjump/textract/internal/extract"
	"github.com/hyperjump/textract/internal/fileid"
	"github.com/hyperjump/textract/internal/keyword"
	"github.com/hyperjump/textract/internal/models"
	"github.com/hyperjump/textract/pkg/utils"
	"go.uber.org/zap"
)

// ErrSearchDisabled is returned by Search when the session has no keyword index.
var ErrSearchDisabled = errors.New("search is not enabled for this session")

const snippetLen = 120

// Session is the ordered collection of selected items. It is safe for concurrent use.
type Session struct {
	id        string
	extractor *extract.Extractor
	exporter  *export.Exporter
	index     keyword.Index
	suggester *keyword.Suggester
	logger    *zap.Logger

	searchOpts      keyword.SearchOptions
	suggestDistance int

	mu       sync.RWMutex
	items    []*models.Item
	byPath   map[string]*models.Item
	exported map[string]struct{}
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets a logger for extraction causes and index errors.
func WithLogger(l *zap.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithIndex enables Search by indexing every extracted entry into idx.
// If idx also exposes its terms, searches without hits suggest a corrected query.
func WithIndex(idx keyword.Index) Option {
	return func(s *Session) { s.index = idx }
}

// WithSearchOptions sets the label boost and fuzziness used by Search.
// Fuzzy is chosen per call and ignored here.
func WithSearchOptions(opts keyword.SearchOptions) Option {
	return func(s *Session) { s.searchOpts = opts }
}

// WithSuggestMaxDistance sets the edit distance allowed for query suggestions.
func WithSuggestMaxDistance(d int) Option {
	return func(s *Session) { s.suggestDistance = d }
}

// WithExporter sets the exporter used by Export and WriteTo.
func WithExporter(x *export.Exporter) Option {
	return func(s *Session) { s.exporter = x }
}

// New returns an empty session extracting with extractor.
func New(extractor *extract.Extractor, opts ...Option) *Session {
	s := &Session{
		id:        uuid.New().String(),
		extractor: extractor,
		exporter:  export.NewExporter(),
		logger:    zap.NewNop(),
		byPath:    make(map[string]*models.Item),
		exported:  make(map[string]struct{}),

		searchOpts: keyword.SearchOptions{LabelBoost: 2},
	}
	for _, opt := range opts {
		opt(s)
	}
	if dict, ok := s.index.(keyword.TermDictionary); ok {
		s.suggester = keyword.NewSuggester(dict, keyword.WithMaxDistance(s.suggestDistance))
	}
	return s
}

// ID identifies this session for the lifetime of the process.
func (s *Session) ID() string { return s.id }

// AddResult reports the outcome of one Add or Refresh call.
type AddResult struct {
	Extracted  int             `json:"extracted"`
	Failed     int             `json:"failed"`
	Skipped    []string        `json:"skipped,omitempty"`
	Duplicates []string        `json:"duplicates,omitempty"`
	Notices    []models.Notice `json:"notices,omitempty"`
}

// Add selects paths in order. Unsupported paths are skipped without a notice and
// paths already selected are ignored. Every other path is extracted; a failure
// produces a warning notice and processing continues with the next path.
func (s *Session) Add(ctx context.Context, paths []string) (AddResult, error) {
	var res AddResult
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		abs, err := fileid.Normalize(p)
		if err != nil || !extract.Supported(abs) {
			res.Skipped = append(res.Skipped, p)
			continue
		}
		it, added := s.selectPath(abs)
		if !added {
			res.Duplicates = append(res.Duplicates, p)
			continue
		}
		s.extractInto(ctx, it, &res)
	}
	return res, nil
}

// Refresh re-extracts path if it is selected, or adds it otherwise.
// Files this session exported are skipped, so an export written into a watched
// directory never comes back as an entry.
func (s *Session) Refresh(ctx context.Context, path string) (AddResult, error) {
	abs, err := fileid.Normalize(path)
	if err != nil {
		return AddResult{Skipped: []string{path}}, nil
	}
	s.mu.RLock()
	it, ok := s.byPath[abs]
	_, isExport := s.exported[abs]
	s.mu.RUnlock()
	if isExport {
		s.logger.Debug("ignoring own export", zap.String("path", abs))
		return AddResult{Skipped: []string{path}}, nil
	}
	if !ok {
		return s.Add(ctx, []string{abs})
	}
	var res AddResult
	s.extractInto(ctx, it, &res)
	return res, nil
}

// selectPath appends a Pending item for abs unless abs is already selected.
func (s *Session) selectPath(abs string) (*models.Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byPath[abs]; ok {
		return nil, false
	}
	format, _ := extract.FormatFor(abs)
	it := &models.Item{
		ID:         fileid.ItemID(abs),
		Document:   models.NewDocument(abs, string(format)),
		State:      models.StatePending,
		SelectedAt: time.Now(),
	}
	s.items = append(s.items, it)
	s.byPath[abs] = it
	return it, true
}

// extractInto runs extraction outside the lock and records the outcome on it,
// unless it was removed while extracting.
func (s *Session) extractInto(ctx context.Context, it *models.Item, res *AddResult) {
	path, label := it.Document.Path, it.Document.Label
	text, err := s.extractor.Extract(path)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.byPath[path] != it {
		return
	}
	now := time.Now()
	it.ExtractedAt = &now
	if err != nil {
		s.logger.Warn("extraction failed", zap.String("path", path), zap.Error(err))
		it.State = models.StateFailed
		it.Text = ""
		it.Reason = err.Error()
		res.Failed++
		res.Notices = append(res.Notices, models.Notice{
			Level:   models.NoticeWarning,
			File:    label,
			Message: "Could not extract text from " + label,
		})
		s.unindex(ctx, it.ID)
		return
	}
	it.State = models.StateExtracted
	it.Text = text
	it.Reason = ""
	res.Extracted++
	s.logger.Debug("extracted", zap.String("path", path), zap.Int("chars", len(text)))
	if s.index != nil {
		entry, _ := it.Entry()
		if err := s.index.Index(ctx, it.ID, entry); err != nil {
			s.logger.Warn("failed to index entry", zap.String("path", path), zap.Error(err))
		}
	}
}

func (s *Session) unindex(ctx context.Context, id string) {
	if s.index == nil {
		return
	}
	if err := s.index.Delete(ctx, id); err != nil {
		s.logger.Warn("failed to delete entry from index", zap.String("id", id), zap.Error(err))
	}
}

// Remove drops path from the session. It reports whether path was selected.
func (s *Session) Remove(ctx context.Context, path string) bool {
	abs, err := fileid.Normalize(path)
	if err != nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.byPath[abs]
	if !ok {
		return false
	}
	delete(s.byPath, abs)
	for i, cur := range s.items {
		if cur == it {
			s.items = append(s.items[:i], s.items[i+1:]...)
			break
		}
	}
	s.unindex(ctx, it.ID)
	return true
}

// Clear empties the session. Clearing an empty session is a no-op.
func (s *Session) Clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = nil
	s.byPath = make(map[string]*models.Item)
	if s.index != nil {
		if err := s.index.Reset(ctx); err != nil {
			s.logger.Warn("failed to reset index", zap.Error(err))
		}
	}
}

// Items returns a copy of every selected item in selection order.
func (s *Session) Items() []models.Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Item, len(s.items))
	for i, it := range s.items {
		out[i] = *it
	}
	return out
}

// Entries returns the entries of Extracted items in selection order.
func (s *Session) Entries() []models.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.entriesLocked()
}

func (s *Session) entriesLocked() []models.Entry {
	out := make([]models.Entry, 0, len(s.items))
	for _, it := range s.items {
		if e, ok := it.Entry(); ok {
			out = append(out, e)
		}
	}
	return out
}

// Preview is the assembled text of every entry, as it would be exported.
func (s *Session) Preview() string {
	return export.Assemble(s.Entries())
}

// Export writes the current entries to destination. It returns
// export.ErrNothingToExport when there are none. Entries are kept on failure.
// A written destination is remembered so Refresh ignores it.
func (s *Session) Export(format export.Format, destination string) error {
	entries := s.Entries()
	// Recorded before writing: a watcher may see the file as soon as it is renamed into place.
	forget := s.markExported(destination)
	err := s.exporter.Export(format, entries, destination)
	if err != nil {
		forget()
	}
	if err != nil && !errors.Is(err, export.ErrNothingToExport) {
		s.logger.Error("export failed", zap.String("format", string(format)),
			zap.String("destination", destination), zap.Error(err))
		return err
	}
	if err == nil {
		s.logger.Info("exported", zap.String("format", string(format)),
			zap.String("destination", destination), zap.Int("entries", len(entries)))
	}
	return err
}

// markExported records destination as an export of this session. The returned
// func undoes the record unless destination had already been exported before.
func (s *Session) markExported(destination string) (forget func()) {
	abs, err := fileid.Normalize(destination)
	if err != nil {
		return func() {}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.exported[abs]; ok {
		return func() {}
	}
	s.exported[abs] = struct{}{}
	return func() {
		s.mu.Lock()
		delete(s.exported, abs)
		s.mu.Unlock()
	}
}

// WriteTo renders the current entries to w.
func (s *Session) WriteTo(w io.Writer, format export.Format) error {
	return s.exporter.WriteTo(w, format, s.Entries())
}

// SearchResult is the outcome of a find-in-preview query.
type SearchResult struct {
	Query      string             `json:"query"`
	Hits       []models.SearchHit `json:"hits"`
	Suggestion string             `json:"suggestion,omitempty"`
}

// Search finds entries matching query. When nothing matches and a close spelling
// of the query is indexed, it is returned as Suggestion.
func (s *Session) Search(ctx context.Context, query string, limit int, fuzzy bool) (*SearchResult, error) {
	if s.index == nil {
		return nil, ErrSearchDisabled
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("query is required")
	}
	if limit <= 0 {
		limit = 10
	}
	opts := s.searchOpts
	opts.Fuzzy = fuzzy
	results, err := s.index.Search(ctx, query, limit, &opts)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	s.mu.RLock()
	byID := make(map[string]*models.Item, len(s.items))
	for _, it := range s.items {
		byID[it.ID] = it
	}
	res := &SearchResult{Query: query, Hits: make([]models.SearchHit, 0, len(results))}
	for _, r := range results {
		it, ok := byID[r.ID]
		if !ok || it.State != models.StateExtracted {
			continue
		}
		res.Hits = append(res.Hits, models.SearchHit{
			ID:      it.ID,
			Label:   it.Document.Label,
			Score:   r.Score,
			Rank:    len(res.Hits) + 1,
			Snippet: snippet(it.Text, query),
		})
	}
	s.mu.RUnlock()

	if len(res.Hits) == 0 && s.suggester != nil {
		suggested, ok, err := s.suggester.SuggestQuery(query)
		if err != nil {
			s.logger.Debug("suggestion failed", zap.Error(err))
		} else if ok {
			res.Suggestion = suggested
		}
	}
	return res, nil
}

// snippet returns the first line of text containing a query term, or the first
// non-empty line, truncated for display.
func snippet(text, query string) string {
	terms := strings.Fields(strings.ToLower(query))
	first := ""
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if first == "" {
			first = line
		}
		lower := strings.ToLower(line)
		for _, t := range terms {
			if strings.Contains(lower, t) {
				return utils.Truncate(line, snippetLen)
			}
		}
	}
	return utils.Truncate(first, snippetLen)
}
