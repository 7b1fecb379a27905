package keyword

import (
	"sort"
	"strings"
)

// Suggestion is a replacement for one unknown query term.
type Suggestion struct {
	Term      string
	Distance  int
	Frequency int
}

// Suggester proposes corrected queries from the terms of a TermDictionary.
type Suggester struct {
	dictionary  TermDictionary
	maxDistance int
}

// SuggesterOption is a functional option for configuring Suggester.
type SuggesterOption func(*Suggester)

// WithMaxDistance sets the maximum edit distance for suggestions.
func WithMaxDistance(d int) SuggesterOption {
	return func(s *Suggester) {
		if d > 0 {
			s.maxDistance = d
		}
	}
}

// NewSuggester creates a Suggester reading terms from dict on every call.
func NewSuggester(dict TermDictionary, opts ...SuggesterOption) *Suggester {
	s := &Suggester{dictionary: dict, maxDistance: 2}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SuggestQuery returns query with each unknown term replaced by its closest indexed term.
// ok is false when every term is already indexed or no replacement is close enough.
func (s *Suggester) SuggestQuery(query string) (suggested string, ok bool, err error) {
	freqs, err := s.dictionary.TermFrequencies()
	if err != nil {
		return "", false, err
	}
	terms := tokenizeQuery(query)
	out := make([]string, len(terms))
	for i, term := range terms {
		out[i] = term
		if _, known := freqs[term]; known {
			continue
		}
		if best, found := closest(term, freqs, s.maxDistance); found {
			out[i] = best.Term
			ok = true
		}
	}
	if !ok {
		return "", false, nil
	}
	return strings.Join(out, " "), true, nil
}

// closest picks the indexed term with the smallest edit distance, breaking ties by
// higher frequency and then lexically.
func closest(term string, freqs map[string]int, maxDistance int) (Suggestion, bool) {
	candidates := make([]Suggestion, 0)
	n := len([]rune(term))
	for t, f := range freqs {
		if d := len([]rune(t)) - n; d > maxDistance || -d > maxDistance {
			continue
		}
		if dist := editDistance(term, t); dist <= maxDistance {
			candidates = append(candidates, Suggestion{Term: t, Distance: dist, Frequency: f})
		}
	}
	if len(candidates) == 0 {
		return Suggestion{}, false
	}
	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Distance != b.Distance {
			return a.Distance < b.Distance
		}
		if a.Frequency != b.Frequency {
			return a.Frequency > b.Frequency
		}
		return a.Term < b.Term
	})
	return candidates[0], true
}

// editDistance is the Levenshtein distance over runes.
func editDistance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}
