// Package crosslm relates two vocabularies, an input domain (e.g. questions)
// and an output domain (e.g. answers), through a corpus of paired examples.
//
// Each domain gets its own langmodel.LanguageModel. For a query sentence W
// from the input domain the model estimates the distribution of output
// features f,
//
//	P(f|W) = P(f,W) / P(W),   P(f,W) = 1/N · Σ_i p(W|in_i)·p(f|out_i)
//
// and ranks every corpus output F by the Kullback-Leibler divergence
// D(P(·|W) || p(·|F)).
package crosslm

import (
	"fmt"
	"math"
	"sort"

	"github.com/cognicore/homer/pkg/homer/internalerr"
	"github.com/cognicore/homer/pkg/homer/langmodel"
	"github.com/cognicore/homer/pkg/homer/logmath"
	"github.com/cognicore/homer/pkg/homer/wordcounts"
)

// Pair is one training example.
type Pair struct {
	Input  wordcounts.WordCounts
	Output wordcounts.WordCounts
}

// Similarity scores one corpus output against a query.
type Similarity struct {
	Index      int // position of the pair in the training dataset
	Output     wordcounts.WordCounts
	Similarity float64 // minus the divergence; higher is more similar
}

// Term is the contribution of one output feature to a divergence.
type Term struct {
	Feature            string
	LogProbGivenInput  float64 // log P(f|input)
	LogProbGivenOutput float64 // log p(f|output)
	Contribution       float64 // P(f|input)·(log P(f|input) − log p(f|output))
}

// Model is a cross-language model. A trained Model is immutable.
type Model struct {
	opts     langmodel.Options
	input    *langmodel.LanguageModel
	output   *langmodel.LanguageModel
	dataset  []Pair
	features []string // output vocabulary, sorted
	trained  bool
}

// New creates an untrained model. Both domains share opts.
func New(opts langmodel.Options) (*Model, error) {
	opts, err := opts.Normalize()
	if err != nil {
		return nil, err
	}
	in, err := langmodel.New(opts)
	if err != nil {
		return nil, err
	}
	out, err := langmodel.New(opts)
	if err != nil {
		return nil, err
	}
	return &Model{opts: opts, input: in, output: out}, nil
}

// TrainBatch trains both language models on the projected inputs and
// outputs, keeping index i of each aligned with dataset[i], and returns the
// new trained model. The receiver is left untouched.
func (m *Model) TrainBatch(dataset []Pair) (*Model, error) {
	if len(dataset) == 0 {
		return nil, fmt.Errorf("%w: empty training dataset", internalerr.ErrInvalidInput)
	}

	inputs := make([]wordcounts.WordCounts, len(dataset))
	outputs := make([]wordcounts.WordCounts, len(dataset))
	for i, p := range dataset {
		inputs[i] = p.Input
		outputs[i] = p.Output
	}

	in, err := m.input.TrainBatch(inputs)
	if err != nil {
		return nil, fmt.Errorf("train input model: %w", err)
	}
	out, err := m.output.TrainBatch(outputs)
	if err != nil {
		return nil, fmt.Errorf("train output model: %w", err)
	}

	retained := make([]Pair, len(dataset))
	for i := range dataset {
		retained[i] = Pair{Input: in.Sentence(i), Output: out.Sentence(i)}
	}

	return &Model{
		opts:     m.opts,
		input:    in,
		output:   out,
		dataset:  retained,
		features: out.Vocabulary(),
		trained:  true,
	}, nil
}

// TrainOnline always fails: the background distributions of both domains
// need a closed-form pass over the full dataset.
func (m *Model) TrainOnline(sample wordcounts.WordCounts, classes ...string) error {
	return fmt.Errorf("%w: CrossLanguageModel does not support online training", internalerr.ErrUnsupported)
}

// Trained reports whether the model has been trained.
func (m *Model) Trained() bool { return m.trained }

// Options returns the normalized options.
func (m *Model) Options() langmodel.Options { return m.opts }

// InputModel returns the input-domain language model.
func (m *Model) InputModel() *langmodel.LanguageModel { return m.input }

// OutputModel returns the output-domain language model.
func (m *Model) OutputModel() *langmodel.LanguageModel { return m.output }

// Len returns the number of training pairs.
func (m *Model) Len() int { return len(m.dataset) }

// Pair returns the i-th training pair, annotated with totals.
func (m *Model) Pair(i int) Pair { return m.dataset[i] }

// AllWordCounts returns the aggregate counts of the input domain.
func (m *Model) AllWordCounts() wordcounts.WordCounts { return m.input.AllWordCounts() }

func (m *Model) checkQuery(op string, sentence wordcounts.WordCounts) error {
	if !m.trained {
		return fmt.Errorf("%w: %s", internalerr.ErrNotTrained, op)
	}
	if sentence.IsEmpty() {
		return fmt.Errorf("%w: %s", internalerr.ErrEmptySentence, op)
	}
	return nil
}

// LogProbSentenceAndFeatureGivenDataset returns log P(f, W): the joint
// probability of input sentence W and output feature f under the corpus.
func (m *Model) LogProbSentenceAndFeatureGivenDataset(feature string, sentence wordcounts.WordCounts) (float64, error) {
	if err := m.checkQuery("LogProbSentenceAndFeatureGivenDataset", sentence); err != nil {
		return math.NaN(), err
	}
	inputLogs, err := m.input.LogProbSentenceGivenEach(sentence)
	if err != nil {
		return math.NaN(), err
	}
	return m.logJoint(feature, inputLogs)
}

// logJoint combines precomputed log p(W|in_i) with log p(f|out_i).
func (m *Model) logJoint(feature string, inputLogs []float64) (float64, error) {
	logProducts := make([]float64, len(m.dataset))
	for i, p := range m.dataset {
		lf, err := m.output.LogProbWordGivenSentence(feature, p.Output)
		if err != nil {
			return math.NaN(), err
		}
		logProducts[i] = inputLogs[i] + lf
	}
	return logmath.LogSumExp(logProducts) - math.Log(float64(len(m.dataset))), nil
}

// logMarginal returns log P(W) from precomputed log p(W|in_i) and fails when
// W is impossible under the input model, since P(f|W) is then undefined.
func (m *Model) logMarginal(sentence wordcounts.WordCounts, inputLogs []float64) (float64, error) {
	logSentence := logmath.LogSumExp(inputLogs) - math.Log(float64(len(m.dataset)))
	if !logmath.IsFinite(logSentence) {
		return math.NaN(), &internalerr.NumericError{
			Op:     "LogProbFeatureGivenSentence",
			Detail: fmt.Sprintf("log P(%s)", sentence),
			Value:  logSentence,
		}
	}
	return logSentence, nil
}

// LogProbFeatureGivenSentence returns log P(f|W) = log P(f,W) − log P(W).
// The result is -Inf when f cannot co-occur with W; it is an error when W
// itself has probability zero.
func (m *Model) LogProbFeatureGivenSentence(feature string, given wordcounts.WordCounts) (float64, error) {
	if err := m.checkQuery("LogProbFeatureGivenSentence", given); err != nil {
		return math.NaN(), err
	}
	inputLogs, err := m.input.LogProbSentenceGivenEach(given)
	if err != nil {
		return math.NaN(), err
	}
	logSentence, err := m.logMarginal(given, inputLogs)
	if err != nil {
		return math.NaN(), err
	}
	logJoint, err := m.logJoint(feature, inputLogs)
	if err != nil {
		return math.NaN(), err
	}
	if math.IsNaN(logJoint) {
		return math.NaN(), &internalerr.NumericError{
			Op:     "LogProbFeatureGivenSentence",
			Detail: fmt.Sprintf("log P(%q, %s)", feature, given),
			Value:  logJoint,
		}
	}
	return logJoint - logSentence, nil
}

// LogProbFeaturesGivenSentence returns log P(f|W) for every feature f of the
// output vocabulary. p(W|in_i) and P(W) are computed once for all features.
func (m *Model) LogProbFeaturesGivenSentence(given wordcounts.WordCounts) (map[string]float64, error) {
	if err := m.checkQuery("LogProbFeaturesGivenSentence", given); err != nil {
		return nil, err
	}
	inputLogs, err := m.input.LogProbSentenceGivenEach(given)
	if err != nil {
		return nil, err
	}
	logSentence, err := m.logMarginal(given, inputLogs)
	if err != nil {
		return nil, err
	}

	dist := make(map[string]float64, len(m.features))
	for _, f := range m.features {
		logJoint, err := m.logJoint(f, inputLogs)
		if err != nil {
			return nil, err
		}
		dist[f] = logJoint - logSentence
	}
	return dist, nil
}

// Divergence returns the Kullback-Leibler divergence D(P(·|input) || p(·|output))
// summed over the output vocabulary. It is asymmetric.
func (m *Model) Divergence(input, output wordcounts.WordCounts) (float64, error) {
	terms, err := m.DivergenceTerms(input, output)
	if err != nil {
		return math.NaN(), err
	}
	return sumTerms(terms), nil
}

// DivergenceTerms returns the per-feature contributions to Divergence in
// feature order.
func (m *Model) DivergenceTerms(input, output wordcounts.WordCounts) ([]Term, error) {
	dist, err := m.LogProbFeaturesGivenSentence(input)
	if err != nil {
		return nil, err
	}
	return m.divergenceTerms(dist, output)
}

func (m *Model) divergenceTerms(dist map[string]float64, output wordcounts.WordCounts) ([]Term, error) {
	terms := make([]Term, 0, len(m.features))
	for _, f := range m.features {
		logGivenInput := dist[f]
		if !logmath.IsFinite(logGivenInput) {
			return nil, &internalerr.NumericError{
				Op:     "Divergence",
				Detail: fmt.Sprintf("log P(%q|input)", f),
				Value:  logGivenInput,
			}
		}

		logGivenOutput, err := m.output.LogProbWordGivenSentence(f, output)
		if err != nil {
			return nil, err
		}
		if !logmath.IsFinite(logGivenOutput) {
			return nil, &internalerr.NumericError{
				Op:     "Divergence",
				Detail: fmt.Sprintf("log p(%q|%s)", f, output),
				Value:  logGivenOutput,
			}
		}

		probGivenInput := math.Exp(logGivenInput)
		contribution := probGivenInput * (logGivenInput - logGivenOutput)
		if !logmath.IsFinite(contribution) {
			return nil, &internalerr.NumericError{
				Op:     "Divergence",
				Detail: fmt.Sprintf("%v * (%v - %v) for %q", probGivenInput, logGivenInput, logGivenOutput, f),
				Value:  contribution,
			}
		}

		terms = append(terms, Term{
			Feature:            f,
			LogProbGivenInput:  logGivenInput,
			LogProbGivenOutput: logGivenOutput,
			Contribution:       contribution,
		})
	}
	return terms, nil
}

func sumTerms(terms []Term) float64 {
	var sum float64
	for _, t := range terms {
		sum += t.Contribution
	}
	return sum
}

// Similarities scores every training output against input and returns them
// most similar first. Equal similarities keep no particular order.
func (m *Model) Similarities(input wordcounts.WordCounts) ([]Similarity, error) {
	dist, err := m.LogProbFeaturesGivenSentence(input)
	if err != nil {
		return nil, err
	}

	sims := make([]Similarity, len(m.dataset))
	for i, p := range m.dataset {
		terms, err := m.divergenceTerms(dist, p.Output)
		if err != nil {
			return nil, fmt.Errorf("pair %d: %w", i, err)
		}
		sims[i] = Similarity{
			Index:      i,
			Output:     p.Output,
			Similarity: -sumTerms(terms),
		}
	}

	sort.SliceStable(sims, func(a, b int) bool {
		return sims[a].Similarity > sims[b].Similarity
	})
	return sims, nil
}

// TopK returns the k most similar outputs. k <= 0 returns all of them.
func (m *Model) TopK(input wordcounts.WordCounts, k int) ([]Similarity, error) {
	sims, err := m.Similarities(input)
	if err != nil {
		return nil, err
	}
	if k > 0 && len(sims) > k {
		sims = sims[:k]
	}
	return sims, nil
}

// TopTerms returns the n terms with the largest absolute contribution.
func TopTerms(terms []Term, n int) []Term {
	sorted := make([]Term, len(terms))
	copy(sorted, terms)
	sort.SliceStable(sorted, func(i, j int) bool {
		return math.Abs(sorted[i].Contribution) > math.Abs(sorted[j].Contribution)
	})
	if n > 0 && len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}
