package crosslm

import (
	"errors"
	"math"
	"math/rand"
	"strings"
	"testing"

	"github.com/cognicore/homer/pkg/homer/internalerr"
	"github.com/cognicore/homer/pkg/homer/langmodel"
	"github.com/cognicore/homer/pkg/homer/wordcounts"
)

func trainPairs(t *testing.T, opts langmodel.Options, pairs ...[2]string) *Model {
	t.Helper()
	m, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	dataset := make([]Pair, len(pairs))
	for i, p := range pairs {
		dataset[i] = Pair{Input: wordcounts.FromText(p[0]), Output: wordcounts.FromText(p[1])}
	}
	trained, err := m.TrainBatch(dataset)
	if err != nil {
		t.Fatalf("TrainBatch: %v", err)
	}
	return trained
}

func wantAABBCC(t *testing.T, opts langmodel.Options) *Model {
	return trainPairs(t, opts,
		[2]string{"I want aa", "a"},
		[2]string{"I want bb", "b"},
		[2]string{"I want cc", "c"},
	)
}

func assertProb(t *testing.T, name string, logProb float64, err error, expected float64) {
	t.Helper()
	if err != nil {
		t.Fatalf("%s: %v", name, err)
	}
	if actual := math.Exp(logProb); math.Abs(actual-expected)/expected > 0.01 {
		t.Errorf("%s = %g, expected %g", name, actual, expected)
	}
}

func TestFeatureProbabilities(t *testing.T) {
	m := wantAABBCC(t, langmodel.DefaultOptions())

	lp, err := m.InputModel().LogProbSentenceGivenDataset(wordcounts.FromText("I want"))
	assertProb(t, "P(I want)", lp, err, 1.0/9)

	lp, err = m.LogProbSentenceAndFeatureGivenDataset("a", wordcounts.FromText("I want"))
	assertProb(t, "P(a, I want)", lp, err, 1.0/27)

	lp, err = m.LogProbFeatureGivenSentence("a", wordcounts.FromText("I want"))
	assertProb(t, "P(a|I want)", lp, err, 1.0/3)

	lp, err = m.InputModel().LogProbSentenceGivenDataset(wordcounts.FromText("I want aa bb cc"))
	assertProb(t, "P(I want aa bb cc)", lp, err, 0.0000042676)

	lp, err = m.LogProbSentenceAndFeatureGivenDataset("a", wordcounts.FromText("I want aa bb cc"))
	assertProb(t, "P(a, I want aa bb cc)", lp, err, 0.0000014225)

	lp, err = m.LogProbFeatureGivenSentence("a", wordcounts.FromText("I want aa bb cc"))
	assertProb(t, "P(a|I want aa bb cc)", lp, err, 1.0/3)
}

func TestFeatureProbabilitiesWithPseudoCount(t *testing.T) {
	m := wantAABBCC(t, langmodel.Options{SmoothingCoefficient: 0.9, PseudoCount: 1})

	lp, err := m.InputModel().LogProbSentenceGivenDataset(wordcounts.FromText("I want"))
	assertProb(t, "P(I want)", lp, err, 0.19753086419753085)

	lp, err = m.LogProbSentenceAndFeatureGivenDataset("a", wordcounts.FromText("I want"))
	assertProb(t, "P(a, I want)", lp, err, 0.13168724279835387)

	lp, err = m.LogProbFeatureGivenSentence("a", wordcounts.FromText("I want"))
	assertProb(t, "P(a|I want)", lp, err, 0.6666666666666665)

	lp, err = m.InputModel().LogProbSentenceGivenDataset(wordcounts.FromText("I want aa bb cc"))
	assertProb(t, "P(I want aa bb cc)", lp, err, 0.0012458805398905997)

	lp, err = m.LogProbSentenceAndFeatureGivenDataset("a", wordcounts.FromText("I want aa bb cc"))
	assertProb(t, "P(a, I want aa bb cc)", lp, err, 0.0008305870265937329)

	lp, err = m.LogProbFeatureGivenSentence("a", wordcounts.FromText("I want aa bb cc"))
	assertProb(t, "P(a|I want aa bb cc)", lp, err, 0.6666666666666665)
}

func TestFeatureDistributionIsNormalized(t *testing.T) {
	m := wantAABBCC(t, langmodel.DefaultOptions())

	dist, err := m.LogProbFeaturesGivenSentence(wordcounts.FromText("I want aa"))
	if err != nil {
		t.Fatal(err)
	}
	if len(dist) != 3 {
		t.Fatalf("expected 3 features, got %d", len(dist))
	}

	var sum float64
	for f, lp := range dist {
		single, err := m.LogProbFeatureGivenSentence(f, wordcounts.FromText("I want aa"))
		if err != nil {
			t.Fatal(err)
		}
		if math.Abs(single-lp) > 1e-12 {
			t.Errorf("feature %s: batch %v, single %v", f, lp, single)
		}
		sum += math.Exp(lp)
	}
	if math.Abs(sum-1) > 1e-9 {
		t.Errorf("P(f|W) sums to %f, expected 1", sum)
	}
	if dist["a"] <= dist["b"] {
		t.Errorf("expected a to dominate: %v", dist)
	}
}

func TestSimilaritiesRanking(t *testing.T) {
	for _, opts := range []langmodel.Options{
		langmodel.DefaultOptions(),
		{SmoothingCoefficient: 0.9, PseudoCount: 1},
	} {
		m := wantAABBCC(t, opts)

		tests := []struct {
			query string
			first string
		}{
			{"I want aa", "a"},
			{"I want bb", "b"},
			{"I want cc", "c"},
			{"aa", "a"},
		}

		for _, tt := range tests {
			sims, err := m.Similarities(wordcounts.FromText(tt.query))
			if err != nil {
				t.Fatalf("Similarities(%q): %v", tt.query, err)
			}
			if len(sims) != 3 {
				t.Fatalf("expected 3 similarities, got %d", len(sims))
			}
			if !sims[0].Output.Has(tt.first) {
				t.Errorf("α=%v: query %q ranked %v first, expected %q", opts.PseudoCount, tt.query, sims[0].Output, tt.first)
			}
			if m.Pair(sims[0].Index).Output.String() != sims[0].Output.String() {
				t.Errorf("Index %d does not point at the ranked output", sims[0].Index)
			}
		}

		// Ambiguous queries still rank every output.
		for _, q := range []string{"I want", "I want aa bb", "I want aa bb cc"} {
			sims, err := m.Similarities(wordcounts.FromText(q))
			if err != nil {
				t.Fatalf("Similarities(%q): %v", q, err)
			}
			if len(sims) != 3 {
				t.Errorf("query %q: expected 3 similarities, got %d", q, len(sims))
			}
		}
	}
}

func TestSimilaritiesSortedDescending(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	vocab := []string{"salary", "car", "pension", "hours", "offer", "want", "accept", "reject"}
	randomText := func(n int) string {
		words := make([]string, n)
		for i := range words {
			words[i] = vocab[r.Intn(len(vocab))]
		}
		return strings.Join(words, " ")
	}

	pairs := make([][2]string, 12)
	for i := range pairs {
		pairs[i] = [2]string{randomText(5), randomText(3)}
	}
	m := trainPairs(t, langmodel.DefaultOptions(), pairs...)

	for q := 0; q < 5; q++ {
		query := wordcounts.FromText(randomText(4))
		// Only words of the input vocabulary keep the query possible.
		query = query.Filter(m.InputModel().Knows)
		if query.IsEmpty() {
			continue
		}

		sims, err := m.Similarities(query)
		if err != nil {
			t.Fatalf("Similarities(%v): %v", query, err)
		}
		if len(sims) != len(pairs) {
			t.Fatalf("expected %d similarities, got %d", len(pairs), len(sims))
		}
		for i := 1; i < len(sims); i++ {
			if sims[i].Similarity > sims[i-1].Similarity {
				t.Errorf("entry %d (%f) exceeds entry %d (%f)", i, sims[i].Similarity, i-1, sims[i-1].Similarity)
			}
		}
		// With normalized distributions KL divergence is non-negative, up to
		// the mass LogSumExp drops below its threshold.
		for _, s := range sims {
			if s.Similarity > 1e-3 {
				t.Errorf("similarity %g > 0 implies negative divergence", s.Similarity)
			}
		}
	}
}

func TestSelfDivergenceIsZero(t *testing.T) {
	r := rand.New(rand.NewSource(11))
	words := make([]string, 20)
	for i := range words {
		words[i] = string(rune('a'+r.Intn(26))) + string(rune('a'+r.Intn(26)))
	}
	str := strings.Join(words, " ")

	m := trainPairs(t, langmodel.Options{SmoothingCoefficient: 1}, [2]string{str, str})

	d, err := m.Divergence(wordcounts.FromText(str), wordcounts.FromText(str))
	if err != nil {
		t.Fatalf("Divergence: %v", err)
	}
	if math.Abs(d) > 1e-4 {
		t.Errorf("expected divergence ≈ 0, got %g", d)
	}
}

func TestDivergenceIsAsymmetric(t *testing.T) {
	m := trainPairs(t, langmodel.DefaultOptions(),
		[2]string{"x y", "x y"},
		[2]string{"y z z", "y z z"},
		[2]string{"x z", "x z"},
	)

	a := wordcounts.FromText("x y")
	b := wordcounts.FromText("y z z")

	ab, err := m.Divergence(a, b)
	if err != nil {
		t.Fatal(err)
	}
	ba, err := m.Divergence(b, a)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(ab-ba) < 1e-9 {
		t.Errorf("expected asymmetric divergence, got %f both ways", ab)
	}
}

func TestDivergenceTerms(t *testing.T) {
	m := wantAABBCC(t, langmodel.DefaultOptions())
	in := wordcounts.FromText("I want aa")
	out := wordcounts.FromText("b")

	terms, err := m.DivergenceTerms(in, out)
	if err != nil {
		t.Fatal(err)
	}
	if len(terms) != 3 {
		t.Fatalf("expected one term per output feature, got %d", len(terms))
	}
	if terms[0].Feature != "a" || terms[1].Feature != "b" || terms[2].Feature != "c" {
		t.Errorf("terms should be in feature order: %v", terms)
	}

	var sum float64
	for _, term := range terms {
		sum += term.Contribution
	}
	d, err := m.Divergence(in, out)
	if err != nil {
		t.Fatal(err)
	}
	if d != sum {
		t.Errorf("Divergence %v != sum of terms %v", d, sum)
	}

	top := TopTerms(terms, 1)
	if len(top) != 1 || top[0].Feature != "a" {
		t.Errorf("expected feature a to dominate the divergence, got %v", top)
	}
}

func TestUnknownQueryWordFailsExplicitly(t *testing.T) {
	m := wantAABBCC(t, langmodel.DefaultOptions())

	_, err := m.Similarities(wordcounts.FromText("I want nothing"))
	if !errors.Is(err, internalerr.ErrNumeric) {
		t.Fatalf("expected ErrNumeric, got %v", err)
	}
	var numErr *internalerr.NumericError
	if !errors.As(err, &numErr) || !math.IsInf(numErr.Value, -1) {
		t.Errorf("expected NumericError carrying -Inf, got %v", err)
	}

	// Restricting the query to the known vocabulary makes it rankable.
	snapped, dropped := wordcounts.Snap(wordcounts.FromText("I want nothing"), m.InputModel().Vocabulary(), 0)
	if len(dropped) != 1 || dropped[0] != "nothing" {
		t.Errorf("expected [nothing] dropped, got %v", dropped)
	}
	sims, err := m.Similarities(snapped)
	if err != nil {
		t.Fatal(err)
	}
	if len(sims) != 3 {
		t.Errorf("expected 3 similarities, got %d", len(sims))
	}
}

func TestZeroSmoothingOutputFailsDivergence(t *testing.T) {
	// With λ=1 there is no background mass, so p(b|"a") = 0.
	m := trainPairs(t, langmodel.Options{SmoothingCoefficient: 1},
		[2]string{"x", "a"},
		[2]string{"y", "b"},
	)

	_, err := m.Divergence(wordcounts.FromText("x"), wordcounts.FromText("a"))
	if !errors.Is(err, internalerr.ErrNumeric) {
		t.Errorf("expected ErrNumeric, got %v", err)
	}

	// The feature itself is a valid zero-probability outcome.
	lp, err := m.LogProbFeatureGivenSentence("b", wordcounts.FromText("x"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !math.IsInf(lp, -1) {
		t.Errorf("expected -Inf, got %v", lp)
	}
}

func TestEmptySentenceRejected(t *testing.T) {
	m := wantAABBCC(t, langmodel.DefaultOptions())

	if _, err := m.LogProbFeatureGivenSentence("a", wordcounts.WordCounts{}); !errors.Is(err, internalerr.ErrEmptySentence) {
		t.Errorf("expected ErrEmptySentence, got %v", err)
	}
	if _, err := m.LogProbSentenceAndFeatureGivenDataset("a", wordcounts.FromText("  ")); !errors.Is(err, internalerr.ErrEmptySentence) {
		t.Errorf("expected ErrEmptySentence, got %v", err)
	}
	if _, err := m.Similarities(wordcounts.WordCounts{}); !errors.Is(err, internalerr.ErrEmptySentence) {
		t.Errorf("expected ErrEmptySentence, got %v", err)
	}
}

func TestUntrainedAndOnline(t *testing.T) {
	m, err := New(langmodel.DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}

	if _, err := m.Similarities(wordcounts.FromText("a")); !errors.Is(err, internalerr.ErrNotTrained) {
		t.Errorf("expected ErrNotTrained, got %v", err)
	}
	if err := m.TrainOnline(wordcounts.FromText("a"), "b"); !errors.Is(err, internalerr.ErrUnsupported) {
		t.Errorf("expected ErrUnsupported, got %v", err)
	}
	if _, err := m.TrainBatch(nil); !errors.Is(err, internalerr.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestTrainingKeepsIndexAlignment(t *testing.T) {
	m := wantAABBCC(t, langmodel.DefaultOptions())

	if m.Len() != 3 || m.InputModel().Len() != 3 || m.OutputModel().Len() != 3 {
		t.Fatalf("dataset lengths differ: %d %d %d", m.Len(), m.InputModel().Len(), m.OutputModel().Len())
	}
	for i := 0; i < m.Len(); i++ {
		if m.Pair(i).Input.String() != m.InputModel().Sentence(i).String() {
			t.Errorf("input %d misaligned", i)
		}
		if m.Pair(i).Output.String() != m.OutputModel().Sentence(i).String() {
			t.Errorf("output %d misaligned", i)
		}
	}

	all := m.AllWordCounts()
	if all.Count("want") != 3 || all.Has("a") {
		t.Errorf("AllWordCounts should report input-domain counts, got %v", all)
	}
}

func TestTopK(t *testing.T) {
	m := wantAABBCC(t, langmodel.DefaultOptions())

	top, err := m.TopK(wordcounts.FromText("I want bb"), 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(top) != 1 || !top[0].Output.Has("b") {
		t.Errorf("expected [b], got %v", top)
	}

	all, err := m.TopK(wordcounts.FromText("I want bb"), 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Errorf("k=0 should return everything, got %d", len(all))
	}
}
