// Package langmodel implements a smoothed unigram language model over a
// fixed corpus of sentences, following
//
//	Leuski A., Traum D. A Statistical Approach for Text Processing in Virtual Humans.
//	USC Institute for Creative Technologies, 2008.
//
// Word probabilities interpolate the frequency of the word in a given
// sentence with its frequency in the whole corpus:
//
//	p(w|s) = λ·count(w,s)/|s| + (1-λ)·count(w,corpus)/|corpus|
//
// A trained LanguageModel is immutable and safe for concurrent readers.
package langmodel

import (
	"fmt"
	"math"
	"sort"

	"github.com/cognicore/homer/pkg/homer/internalerr"
	"github.com/cognicore/homer/pkg/homer/logmath"
	"github.com/cognicore/homer/pkg/homer/wordcounts"
)

// DefaultSmoothingCoefficient is used when Options.SmoothingCoefficient is zero.
const DefaultSmoothingCoefficient = 0.9

// Options configures a LanguageModel
type Options struct {
	// SmoothingCoefficient (λ) weights sentence-local frequency against the
	// corpus-wide background frequency. Must be in (0,1]; 0 selects the default.
	SmoothingCoefficient float64

	// PseudoCount (α) adds α/|corpus| of background mass to every word seen
	// in training: smoothing(w) = ((1-λ)·count(w) + α)/|corpus|.
	// Zero gives a normalized distribution.
	PseudoCount float64
}

// DefaultOptions returns the default model configuration. Set PseudoCount
// to 1 to reproduce the probabilities of the reference runs.
func DefaultOptions() Options {
	return Options{SmoothingCoefficient: DefaultSmoothingCoefficient}
}

// Normalize fills defaults and validates the options.
func (o Options) Normalize() (Options, error) {
	if o.SmoothingCoefficient == 0 {
		o.SmoothingCoefficient = DefaultSmoothingCoefficient
	}
	if math.IsNaN(o.SmoothingCoefficient) || o.SmoothingCoefficient < 0 || o.SmoothingCoefficient > 1 {
		return o, fmt.Errorf("%w: smoothing coefficient %v outside (0,1]", internalerr.ErrInvalidConfig, o.SmoothingCoefficient)
	}
	if math.IsNaN(o.PseudoCount) || math.IsInf(o.PseudoCount, 0) || o.PseudoCount < 0 {
		return o, fmt.Errorf("%w: pseudo count %v must be a non-negative number", internalerr.ErrInvalidConfig, o.PseudoCount)
	}
	return o, nil
}

// LanguageModel is a unigram model trained on a batch of sentences.
type LanguageModel struct {
	opts Options

	dataset    []wordcounts.WordCounts // annotated clones, in training order
	totals     map[string]int          // word -> count across the dataset
	grandTotal int                     // number of words in the dataset
	smoothing  map[string]float64      // word -> background probability mass
	trained    bool
}

// New creates an untrained model.
func New(opts Options) (*LanguageModel, error) {
	opts, err := opts.Normalize()
	if err != nil {
		return nil, err
	}
	return &LanguageModel{opts: opts}, nil
}

// TrainBatch trains a new model on dataset and returns it. The receiver is
// left untouched, so training again always starts from scratch.
func (m *LanguageModel) TrainBatch(dataset []wordcounts.WordCounts) (*LanguageModel, error) {
	if len(dataset) == 0 {
		return nil, fmt.Errorf("%w: empty training dataset", internalerr.ErrInvalidInput)
	}

	trained := &LanguageModel{
		opts:    m.opts,
		dataset: make([]wordcounts.WordCounts, len(dataset)),
		totals:  make(map[string]int),
		trained: true,
	}

	for i, datum := range dataset {
		annotated := datum.Clone()
		for w, c := range annotated.Counts {
			trained.totals[w] += c
		}
		trained.grandTotal += annotated.Total
		trained.dataset[i] = annotated
	}

	trained.smoothing = make(map[string]float64, len(trained.totals))
	if trained.grandTotal > 0 {
		lambda := trained.opts.SmoothingCoefficient
		grand := float64(trained.grandTotal)
		for w, c := range trained.totals {
			trained.smoothing[w] = ((1-lambda)*float64(c) + trained.opts.PseudoCount) / grand
		}
	}

	return trained, nil
}

// TrainOnline is not supported: the background distribution needs a
// closed-form pass over the whole dataset.
func (m *LanguageModel) TrainOnline(sentence wordcounts.WordCounts) error {
	return fmt.Errorf("%w: language model supports batch training only", internalerr.ErrUnsupported)
}

// Trained reports whether the model has been trained.
func (m *LanguageModel) Trained() bool { return m.trained }

// Options returns the normalized options.
func (m *LanguageModel) Options() Options { return m.opts }

// SmoothingCoefficient returns λ.
func (m *LanguageModel) SmoothingCoefficient() float64 { return m.opts.SmoothingCoefficient }

// Len returns the number of training sentences.
func (m *LanguageModel) Len() int { return len(m.dataset) }

// Sentence returns the i-th training sentence, annotated with its total.
func (m *LanguageModel) Sentence(i int) wordcounts.WordCounts { return m.dataset[i] }

// AllWordCounts returns a copy of the aggregate word counts of the training
// dataset; Total holds the number of words in the dataset.
func (m *LanguageModel) AllWordCounts() wordcounts.WordCounts {
	counts := make(map[string]int, len(m.totals))
	for w, c := range m.totals {
		counts[w] = c
	}
	return wordcounts.WordCounts{Counts: counts, Total: m.grandTotal}
}

// Vocabulary returns every word seen in training, sorted.
func (m *LanguageModel) Vocabulary() []string {
	words := make([]string, 0, len(m.totals))
	for w := range m.totals {
		words = append(words, w)
	}
	sort.Strings(words)
	return words
}

// Knows reports whether word was seen in training.
func (m *LanguageModel) Knows(word string) bool {
	_, ok := m.totals[word]
	return ok
}

// LogProbWordGivenSentence returns log p(word|given). A word never seen in
// training and absent from given has probability zero; the result is then
// -Inf, which is a valid answer and not an error.
func (m *LanguageModel) LogProbWordGivenSentence(word string, given wordcounts.WordCounts) (float64, error) {
	if !m.trained {
		return math.NaN(), fmt.Errorf("%w: LogProbWordGivenSentence(%q)", internalerr.ErrNotTrained, word)
	}
	return m.logProbWord(word, given, given.Sum())
}

func (m *LanguageModel) logProbWord(word string, given wordcounts.WordCounts, givenTotal int) (float64, error) {
	prob := m.smoothing[word]
	if c := given.Counts[word]; c > 0 && givenTotal > 0 {
		prob += m.opts.SmoothingCoefficient * float64(c) / float64(givenTotal)
	}
	if math.IsNaN(prob) {
		return math.NaN(), &internalerr.NumericError{
			Op:     "LogProbWordGivenSentence",
			Detail: fmt.Sprintf("p(%q|%s)", word, given),
			Value:  prob,
		}
	}
	return math.Log(prob), nil
}

// LogProbSentenceGivenSentence returns the log-likelihood of drawing the
// words of sentence (with multiplicity) independently from p(·|given).
func (m *LanguageModel) LogProbSentenceGivenSentence(sentence, given wordcounts.WordCounts) (float64, error) {
	if !m.trained {
		return math.NaN(), fmt.Errorf("%w: LogProbSentenceGivenSentence", internalerr.ErrNotTrained)
	}
	return m.logProbSentence(sentence.Words(), sentence, given)
}

// logProbSentence sums over words in the given (sorted) order so repeated
// queries are bit-identical.
func (m *LanguageModel) logProbSentence(words []string, sentence, given wordcounts.WordCounts) (float64, error) {
	givenTotal := given.Sum()
	var logProduct float64
	for _, word := range words {
		count := sentence.Counts[word]
		lp, err := m.logProbWord(word, given, givenTotal)
		if err != nil {
			return math.NaN(), err
		}
		logProduct += float64(count) * lp
	}
	return logProduct, nil
}

// LogProbSentenceGivenDataset returns the log-probability of sentence under
// the corpus, treated as a uniform mixture of its training sentences:
//
//	log p(sentence) = log( 1/N · Σ_i p(sentence|s_i) )
func (m *LanguageModel) LogProbSentenceGivenDataset(sentence wordcounts.WordCounts) (float64, error) {
	if !m.trained {
		return math.NaN(), fmt.Errorf("%w: LogProbSentenceGivenDataset", internalerr.ErrNotTrained)
	}

	logProducts, err := m.LogProbSentenceGivenEach(sentence)
	if err != nil {
		return math.NaN(), err
	}
	return logmath.LogSumExp(logProducts) - math.Log(float64(len(m.dataset))), nil
}

// LogProbSentenceGivenEach returns log p(sentence|s_i) for every training
// sentence s_i, in training order.
func (m *LanguageModel) LogProbSentenceGivenEach(sentence wordcounts.WordCounts) ([]float64, error) {
	if !m.trained {
		return nil, fmt.Errorf("%w: LogProbSentenceGivenEach", internalerr.ErrNotTrained)
	}

	words := sentence.Words()
	logProducts := make([]float64, len(m.dataset))
	for i, datum := range m.dataset {
		lp, err := m.logProbSentence(words, sentence, datum)
		if err != nil {
			return nil, err
		}
		logProducts[i] = lp
	}
	return logProducts, nil
}
