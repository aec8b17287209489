// Package evidence ranks the sentences of a contract passage against a rule.
package evidence

import (
	"math"
	"regexp"
	"sort"
	"strings"
)

// Sentence is one scored sentence of a passage.
type Sentence struct {
	Index int
	Text  string
	Score float64
	// Overlap counts distinct query terms found in the sentence.
	Overlap int
}

// Ranker scores sentences by passage term frequency (stopwords filtered),
// weighted towards the terms of a query.
type Ranker struct {
	tokenPattern    *regexp.Regexp
	sentencePattern *regexp.Regexp
	stopwords       map[string]struct{}
}

// NewRanker creates a frequency-based sentence ranker.
func NewRanker() *Ranker {
	return &Ranker{
		tokenPattern:    regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`),
		sentencePattern: regexp.MustCompile(`(?m)(?U)([^.!?]+[.!?])`),
		stopwords:       defaultStopwords(),
	}
}

// Split breaks text into trimmed sentences. Text after the last terminator
// becomes a final sentence.
func (r *Ranker) Split(text string) []string {
	var out []string
	last := 0
	for _, loc := range r.sentencePattern.FindAllStringIndex(text, -1) {
		if s := strings.TrimSpace(text[loc[0]:loc[1]]); s != "" {
			out = append(out, s)
		}
		last = loc[1]
	}
	if rest := strings.TrimSpace(text[last:]); rest != "" {
		out = append(out, rest)
	}
	return out
}

// Rank scores every sentence of text against query, best first.
// Ties keep passage order.
func (r *Ranker) Rank(text, query string) []Sentence {
	sentences := r.Split(text)
	if len(sentences) == 0 {
		return nil
	}
	queryTerms := make(map[string]struct{})
	for _, tok := range r.tokens(query) {
		if _, stop := r.stopwords[tok]; !stop {
			queryTerms[tok] = struct{}{}
		}
	}

	freq := map[string]float64{}
	for _, sent := range sentences {
		for _, tok := range r.tokens(sent) {
			if _, stop := r.stopwords[tok]; stop {
				continue
			}
			freq[tok]++
		}
	}
	maxF := 0.0
	for _, v := range freq {
		maxF = max(maxF, v)
	}
	if maxF > 0 {
		for k, v := range freq {
			freq[k] = v / maxF
		}
	}

	scored := make([]Sentence, len(sentences))
	for i, sent := range sentences {
		toks := r.tokens(sent)
		seen := make(map[string]struct{}, len(toks))
		s := Sentence{Index: i, Text: sent}
		for _, tok := range toks {
			w, ok := freq[tok]
			if !ok {
				continue
			}
			if _, q := queryTerms[tok]; q {
				w++
				if _, dup := seen[tok]; !dup {
					s.Overlap++
				}
			}
			seen[tok] = struct{}{}
			s.Score += w
		}
		// Normalise by sentence length so long sentences do not always win.
		if l := float64(len(toks)); l > 0 {
			s.Score /= math.Sqrt(l)
		}
		scored[i] = s
	}
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Overlap != scored[j].Overlap {
			return scored[i].Overlap > scored[j].Overlap
		}
		return scored[i].Score > scored[j].Score
	})
	return scored
}

// Best returns the sentence most relevant to query. ok is false when no
// sentence shares a term with query.
func (r *Ranker) Best(text, query string) (Sentence, bool) {
	ranked := r.Rank(text, query)
	if len(ranked) == 0 || ranked[0].Overlap == 0 {
		return Sentence{}, false
	}
	return ranked[0], true
}

// Top returns up to n of the best sentences joined in passage order.
func (r *Ranker) Top(text, query string, n int) string {
	if n <= 0 {
		n = 1
	}
	ranked := r.Rank(text, query)
	if len(ranked) == 0 {
		return strings.TrimSpace(text)
	}
	ranked = ranked[:min(n, len(ranked))]
	sort.Slice(ranked, func(i, j int) bool { return ranked[i].Index < ranked[j].Index })
	out := make([]string, len(ranked))
	for i, s := range ranked {
		out[i] = s.Text
	}
	return strings.Join(out, " ")
}

func (r *Ranker) tokens(text string) []string {
	return r.tokenPattern.FindAllString(strings.ToLower(text), -1)
}

func defaultStopwords() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at", "by", "with", "as", "is", "are", "was", "were", "be", "been", "being", "it", "this", "that", "these", "those", "from", "up", "down", "over", "under", "again", "further", "than", "so", "such", "into", "about", "between", "through", "during", "before", "after", "above", "below", "out", "off", "own", "same", "too", "very", "can", "will", "just", "should", "now", "shall", "any", "all", "each", "its",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
