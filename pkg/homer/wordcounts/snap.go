package wordcounts

import (
	"sort"

	"github.com/agnivade/levenshtein"
)

// Snap rewrites the words of wc that are missing from vocabulary onto their
// closest vocabulary word, if one lies within maxDistance edits. Ties go to
// the lexicographically smallest candidate. Words with no candidate are
// removed and returned, sorted, as dropped. maxDistance <= 0 only removes
// unknown words.
func Snap(wc WordCounts, vocabulary []string, maxDistance int) (snapped WordCounts, dropped []string) {
	known := make(map[string]struct{}, len(vocabulary))
	for _, v := range vocabulary {
		known[v] = struct{}{}
	}

	sorted := make([]string, len(vocabulary))
	copy(sorted, vocabulary)
	sort.Strings(sorted)

	snapped = WordCounts{Counts: make(map[string]int, len(wc.Counts))}
	for _, w := range wc.Words() {
		c := wc.Counts[w]
		if _, ok := known[w]; ok {
			snapped.Counts[w] += c
			snapped.Total += c
			continue
		}

		target, ok := nearest(w, sorted, maxDistance)
		if !ok {
			dropped = append(dropped, w)
			continue
		}
		snapped.Counts[target] += c
		snapped.Total += c
	}
	return snapped, dropped
}

func nearest(word string, sorted []string, maxDistance int) (string, bool) {
	if maxDistance <= 0 {
		return "", false
	}
	best, bestDist := "", maxDistance+1
	for _, candidate := range sorted {
		// Length difference is a lower bound on the edit distance.
		if d := len([]rune(candidate)) - len([]rune(word)); d > maxDistance || -d > maxDistance {
			continue
		}
		if dist := levenshtein.ComputeDistance(word, candidate); dist < bestDist {
			best, bestDist = candidate, dist
		}
	}
	return best, bestDist <= maxDistance
}
