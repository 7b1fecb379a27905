package keyword

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	blevequery "github.com/blevesearch/bleve/v2/search/query"
	"github.com/hyperjump/textract/internal/models"
)

const (
	fieldLabel   = "label"
	fieldContent = "content"
)

// entryDoc is the indexed form of an entry.
type entryDoc struct {
	Label   string `json:"label"`
	Content string `json:"content"`
}

// BleveIndex implements Index with an in-memory Bleve index.
type BleveIndex struct {
	mu    sync.RWMutex
	index bleve.Index
}

func newMapping() mapping.IndexMapping {
	im := bleve.NewIndexMapping()

	docMapping := bleve.NewDocumentMapping()
	textFieldMapping := bleve.NewTextFieldMapping()
	// Standard analyzer lowercases and tokenizes without stemming, so a query matches the word as written.
	textFieldMapping.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt(fieldContent, textFieldMapping)
	docMapping.AddFieldMappingsAt(fieldLabel, textFieldMapping)
	im.AddDocumentMapping("entry", docMapping)
	im.DefaultType = "entry"
	im.DefaultMapping = docMapping
	return im
}

// NewBleveIndex creates an empty in-memory index. Nothing is written to disk.
func NewBleveIndex() (*BleveIndex, error) {
	index, err := bleve.NewMemOnly(newMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &BleveIndex{index: index}, nil
}

// Index indexes an entry by id, replacing any previous entry with the same id.
func (b *BleveIndex) Index(ctx context.Context, id string, entry models.Entry) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.index.Index(id, entryDoc{Label: entry.Label, Content: entry.Content})
}

// Delete removes an entry from the index.
func (b *BleveIndex) Delete(ctx context.Context, id string) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.index.Delete(id)
}

// Reset swaps in a fresh empty index.
func (b *BleveIndex) Reset(ctx context.Context) error {
	fresh, err := bleve.NewMemOnly(newMapping())
	if err != nil {
		return fmt.Errorf("failed to reset Bleve index: %w", err)
	}
	b.mu.Lock()
	old := b.index
	b.index = fresh
	b.mu.Unlock()
	return old.Close()
}

// Search runs a match query and returns up to limit results.
// When opts is nil or LabelBoost <= 1, a single query over label and content is used.
// Otherwise label and content are queried separately and the scores are added with the
// label score multiplied by LabelBoost.
func (b *BleveIndex) Search(ctx context.Context, query string, limit int, opts *SearchOptions) ([]*Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 10
	}
	labelBoost := 1.0
	fuzzy := false
	fuzziness := 2
	if opts != nil {
		if opts.LabelBoost > 0 {
			labelBoost = opts.LabelBoost
		}
		fuzzy = opts.Fuzzy
		if opts.Fuzziness > 0 {
			fuzziness = opts.Fuzziness
		}
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if labelBoost <= 1.0 {
		return b.searchSingle(query, limit, fuzzy, fuzziness)
	}
	return b.searchBoosted(query, limit, labelBoost, fuzzy, fuzziness)
}

func (b *BleveIndex) searchSingle(query string, limit int, fuzzy bool, fuzziness int) ([]*Result, error) {
	req := bleve.NewSearchRequest(buildQuery(query, fuzzy, fuzziness, ""))
	req.Size = limit
	results, err := b.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("Bleve search failed: %w", err)
	}
	out := make([]*Result, len(results.Hits))
	for i, hit := range results.Hits {
		out[i] = &Result{ID: hit.ID, Score: hit.Score}
	}
	return out, nil
}

func (b *BleveIndex) searchBoosted(query string, limit int, labelBoost float64, fuzzy bool, fuzziness int) ([]*Result, error) {
	// Request enough from each so merged top "limit" is correct (same entry can appear in both).
	reqSize := limit * 2
	if reqSize < 50 {
		reqSize = 50
	}

	scores := make(map[string]float64)
	for _, field := range []string{fieldLabel, fieldContent} {
		req := bleve.NewSearchRequest(buildQuery(query, fuzzy, fuzziness, field))
		req.Size = reqSize
		results, err := b.index.Search(req)
		if err != nil {
			return nil, fmt.Errorf("Bleve %s search failed: %w", field, err)
		}
		weight := 1.0
		if field == fieldLabel {
			weight = labelBoost
		}
		for _, hit := range results.Hits {
			scores[hit.ID] += hit.Score * weight
		}
	}

	out := make([]*Result, 0, len(scores))
	for id, score := range scores {
		out = append(out, &Result{ID: id, Score: score})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// tokenizeQuery splits query into lowercase terms, filtering out empty strings.
func tokenizeQuery(query string) []string {
	return strings.Fields(strings.ToLower(query))
}

// buildQuery returns a match query, or a disjunction of fuzzy term queries when fuzzy is set.
// If field is empty, all fields are searched.
func buildQuery(queryStr string, fuzzy bool, fuzziness int, field string) blevequery.Query {
	terms := tokenizeQuery(queryStr)
	if !fuzzy || len(terms) == 0 {
		mq := bleve.NewMatchQuery(queryStr)
		if field != "" {
			mq.SetField(field)
		}
		return mq
	}

	queries := make([]blevequery.Query, 0, len(terms))
	for _, term := range terms {
		fq := bleve.NewFuzzyQuery(term)
		fq.SetFuzziness(fuzziness)
		if field != "" {
			fq.SetField(field)
		}
		queries = append(queries, fq)
	}
	if len(queries) == 1 {
		return queries[0]
	}
	return bleve.NewDisjunctionQuery(queries...)
}

// TermFrequencies returns every indexed label and content term with the number of
// entries containing it.
func (b *BleveIndex) TermFrequencies() (map[string]int, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	freqs := make(map[string]int)
	for _, field := range []string{fieldContent, fieldLabel} {
		dict, err := b.index.FieldDict(field)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s terms: %w", field, err)
		}
		for {
			entry, err := dict.Next()
			if err != nil || entry == nil {
				break
			}
			if int(entry.Count) > freqs[entry.Term] {
				freqs[entry.Term] = int(entry.Count)
			}
		}
		_ = dict.Close()
	}
	return freqs, nil
}

// DocCount returns the total number of entries in the index.
func (b *BleveIndex) DocCount() (uint64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.index.DocCount()
}

// Close closes the Bleve index.
func (b *BleveIndex) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.index.Close()
}
