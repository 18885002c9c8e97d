// Package stoplist suggests stopwords from corpus statistics. A word that
// occurs in most input sentences, spread evenly across them, cannot tell
// one pair from another and only adds noise to the divergence.
package stoplist

import (
	"math"
	"sort"

	"github.com/cognicore/homer/pkg/homer/wordcounts"
)

// Manager tracks the current stopword set
type Manager struct {
	stops map[string]Reason
}

// Reason explains why a token is a stopword
type Reason struct {
	HighDF     bool    // occurs in many sentences
	Uniform    bool    // evenly spread across the sentences it occurs in
	IDF        float64 // inverse document frequency
	Dispersion float64 // normalized entropy of the per-sentence counts
}

// NewManager creates a new stoplist manager
func NewManager(initialStops []string) *Manager {
	stops := make(map[string]Reason, len(initialStops))
	for _, s := range initialStops {
		stops[s] = Reason{}
	}
	return &Manager{stops: stops}
}

// IsStop checks if a token is a stopword
func (m *Manager) IsStop(token string) bool {
	_, ok := m.stops[token]
	return ok
}

// Add adds a token to the stoplist with a reason
func (m *Manager) Add(token string, reason Reason) {
	m.stops[token] = reason
}

// Remove removes a token from the stoplist
func (m *Manager) Remove(token string) {
	delete(m.stops, token)
}

// All returns all stopwords, sorted
func (m *Manager) All() []string {
	result := make([]string, 0, len(m.stops))
	for s := range m.stops {
		result = append(result, s)
	}
	sort.Strings(result)
	return result
}

// Stats holds statistics for candidate evaluation
type Stats struct {
	Token      string
	DF         int
	DFPercent  float64
	IDF        float64
	Dispersion float64
}

// CollectStats computes per-word document frequency and dispersion over
// sentences. Dispersion is the entropy of the word's counts across all
// sentences divided by log N, so 1 means perfectly even over every sentence.
// Result is sorted by token.
func CollectStats(sentences []wordcounts.WordCounts) []Stats {
	n := len(sentences)
	if n == 0 {
		return nil
	}

	df := make(map[string]int)
	total := make(map[string]int)
	for _, s := range sentences {
		for w, c := range s.Counts {
			if c <= 0 {
				continue
			}
			df[w]++
			total[w] += c
		}
	}

	stats := make([]Stats, 0, len(df))
	for w, d := range df {
		stats = append(stats, Stats{
			Token:     w,
			DF:        d,
			DFPercent: 100 * float64(d) / float64(n),
			IDF:       math.Log(float64(n) / float64(d)),
		})
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Token < stats[j].Token })

	if n == 1 {
		return stats
	}
	logN := math.Log(float64(n))
	for i := range stats {
		w := stats[i].Token
		t := float64(total[w])
		var h float64
		for _, s := range sentences {
			if c := s.Counts[w]; c > 0 {
				p := float64(c) / t
				h -= p * math.Log(p)
			}
		}
		stats[i].Dispersion = h / logN
	}
	return stats
}

// Candidate represents a candidate stopword
type Candidate struct {
	Token  string
	Reason Reason
	Score  float64 // confidence score in [0,1]
}

// SuggestCandidates returns words that are not yet stopwords but meet both
// thresholds, best first.
func (m *Manager) SuggestCandidates(stats []Stats, thresholds Thresholds) []Candidate {
	var candidates []Candidate

	for _, s := range stats {
		if m.IsStop(s.Token) {
			continue // already a stopword
		}

		reason := Reason{
			HighDF:     s.DFPercent >= thresholds.DFPercent,
			Uniform:    s.Dispersion >= thresholds.Dispersion,
			IDF:        s.IDF,
			Dispersion: s.Dispersion,
		}
		if !reason.HighDF || !reason.Uniform {
			continue
		}

		candidates = append(candidates, Candidate{
			Token:  s.Token,
			Reason: reason,
			Score:  (s.DFPercent/100.0 + s.Dispersion) / 2.0,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	return candidates
}

// Thresholds defines criteria for stopword identification
type Thresholds struct {
	DFPercent  float64 // e.g. 60: occurs in 60% of sentences
	Dispersion float64 // e.g. 0.8: close to evenly spread
}

// DefaultThresholds returns the default thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		DFPercent:  60.0,
		Dispersion: 0.8,
	}
}
