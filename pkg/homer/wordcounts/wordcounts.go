// Package wordcounts represents tokenized sentences as bags of words.
package wordcounts

import (
	"fmt"
	"sort"
	"strings"
)

// WordCounts maps each word of a sentence to its number of occurrences.
// Total caches the sum of all counts; it is kept outside the Counts map so no
// real word can collide with it. A zero Total means "not annotated" and
// consumers fall back to summing Counts (see Sum).
type WordCounts struct {
	Counts map[string]int
	Total  int
}

// New builds annotated WordCounts from a word→count map. Non-positive counts are dropped.
func New(counts map[string]int) WordCounts {
	wc := WordCounts{Counts: make(map[string]int, len(counts))}
	for w, c := range counts {
		if c <= 0 {
			continue
		}
		wc.Counts[w] = c
		wc.Total += c
	}
	return wc
}

// FromTokens counts a token slice.
func FromTokens(tokens []string) WordCounts {
	wc := WordCounts{Counts: make(map[string]int, len(tokens))}
	for _, t := range tokens {
		if t == "" {
			continue
		}
		wc.Counts[t]++
		wc.Total++
	}
	return wc
}

// FromText splits text on whitespace and counts the fields verbatim.
func FromText(text string) WordCounts {
	return FromTokens(strings.Fields(text))
}

// Sum returns the cached Total, or the sum of the positive counts when no
// total was annotated.
func (wc WordCounts) Sum() int {
	if wc.Total > 0 {
		return wc.Total
	}
	sum := 0
	for _, c := range wc.Counts {
		if c > 0 {
			sum += c
		}
	}
	return sum
}

// Count returns the number of occurrences of word.
func (wc WordCounts) Count(word string) int {
	return wc.Counts[word]
}

// Has reports whether word occurs at least once.
func (wc WordCounts) Has(word string) bool {
	return wc.Counts[word] > 0
}

// IsEmpty reports whether the sentence contains no words.
func (wc WordCounts) IsEmpty() bool {
	for _, c := range wc.Counts {
		if c > 0 {
			return false
		}
	}
	return true
}

// Words returns the distinct words in sorted order.
func (wc WordCounts) Words() []string {
	words := make([]string, 0, len(wc.Counts))
	for w, c := range wc.Counts {
		if c > 0 {
			words = append(words, w)
		}
	}
	sort.Strings(words)
	return words
}

// Clone returns a deep copy with Total annotated.
func (wc WordCounts) Clone() WordCounts {
	return New(wc.Counts)
}

// Filter returns the words for which keep returns true.
func (wc WordCounts) Filter(keep func(word string) bool) WordCounts {
	out := WordCounts{Counts: make(map[string]int, len(wc.Counts))}
	for w, c := range wc.Counts {
		if c > 0 && keep(w) {
			out.Counts[w] = c
			out.Total += c
		}
	}
	return out
}

// String renders the counts deterministically, e.g. "{aa:1 want:2}".
func (wc WordCounts) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, w := range wc.Words() {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%s:%d", w, wc.Counts[w])
	}
	b.WriteByte('}')
	return b.String()
}

// Text joins the words back into a sentence (sorted, repeated by count).
func (wc WordCounts) Text() string {
	var parts []string
	for _, w := range wc.Words() {
		for i := 0; i < wc.Counts[w]; i++ {
			parts = append(parts, w)
		}
	}
	return strings.Join(parts, " ")
}

// Counter converts raw text into WordCounts.
type Counter interface {
	Count(text string) WordCounts
}

// Fields is a Counter that splits on whitespace without any normalization.
type Fields struct{}

// Count implements Counter.
func (Fields) Count(text string) WordCounts { return FromText(text) }
