// Package homer ranks stored (input, output) example pairs against a query
// with a cross-language model. Engine owns the corpus store and the current
// trained model; queries run concurrently with retraining.
package homer

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cognicore/homer/pkg/homer/corpus"
	"github.com/cognicore/homer/pkg/homer/crosslm"
	"github.com/cognicore/homer/pkg/homer/internalerr"
	"github.com/cognicore/homer/pkg/homer/langmodel"
	"github.com/cognicore/homer/pkg/homer/wordcounts"
)

// DefaultTopK is used when neither the request nor Options set a limit.
const DefaultTopK = 3

// Engine is the main facade
type Engine struct {
	store   corpus.Store
	counter wordcounts.Counter
	opts    langmodel.Options
	snap    int
	topK    int
	explain int
	logger  *zap.Logger

	mu      sync.RWMutex
	model   *crosslm.Model
	pairs   []corpus.Pair       // aligned with the model's training dataset
	vocab   []string            // input vocabulary, sorted
	deleted map[string]struct{} // pairs removed since the last Train, copied on write
	changes uint64              // bumped by Add and Delete
	stale   bool
}

// Options configures an Engine
type Options struct {
	Store   corpus.Store
	Counter wordcounts.Counter // nil uses wordcounts.Fields
	Model   langmodel.Options

	// SnapDistance controls out-of-vocabulary query words: negative keeps
	// them (the query then fails with ErrNumeric), 0 drops them, and a
	// positive value maps them to the nearest known word within that
	// edit distance before dropping the rest.
	SnapDistance int
	TopK         int
	Explain      int // divergence terms per result when a request asks for the default
	Logger       *zap.Logger
}

// New creates an untrained Engine. If the counter is a Tokenizer and the
// store carries a stoplist, the engine counts with a copy of the tokenizer
// extended by the stored words; the caller's tokenizer is left unchanged.
func New(opts Options) (*Engine, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("%w: engine needs a corpus store", internalerr.ErrInvalidConfig)
	}
	model, err := opts.Model.Normalize()
	if err != nil {
		return nil, err
	}

	e := &Engine{
		store:   opts.Store,
		counter: opts.Counter,
		opts:    model,
		snap:    opts.SnapDistance,
		topK:    opts.TopK,
		explain: opts.Explain,
		logger:  opts.Logger,
	}
	if e.counter == nil {
		e.counter = wordcounts.Fields{}
	}
	if e.topK <= 0 {
		e.topK = DefaultTopK
	}
	if e.explain < 0 {
		e.explain = 0
	}
	if e.logger == nil {
		e.logger = zap.NewNop()
	}

	if tok, ok := e.counter.(*wordcounts.Tokenizer); ok {
		if sl := e.store.Stoplist(); sl != nil {
			stops := sl.AllStops()
			tok = tok.Clone()
			e.counter = tok
			for _, w := range stops {
				tok.AddStopword(w)
			}
			e.logger.Debug("loaded stoplist from store", zap.Int("words", len(stops)))
		}
	}

	return e, nil
}

// Close cleanly shuts down the Engine and its store
func (e *Engine) Close() error {
	return e.store.Close()
}

// Store returns the underlying corpus store.
func (e *Engine) Store() corpus.Store { return e.store }

// Add stores a pair. The current model keeps serving until Train is called.
func (e *Engine) Add(ctx context.Context, p corpus.Pair) (corpus.Pair, error) {
	saved, err := e.store.UpsertPair(ctx, p)
	if err != nil {
		return corpus.Pair{}, err
	}

	e.mu.Lock()
	if _, ok := e.deleted[saved.ID]; ok {
		deleted := make(map[string]struct{}, len(e.deleted))
		for d := range e.deleted {
			if d != saved.ID {
				deleted[d] = struct{}{}
			}
		}
		e.deleted = deleted
	}
	e.changes++
	e.stale = true
	e.mu.Unlock()

	e.logger.Debug("pair added", zap.String("id", saved.ID), zap.String("source", saved.Source))
	return saved, nil
}

// Delete removes a pair from the store. Search stops returning it at once;
// the model itself still carries its counts until Train is called.
func (e *Engine) Delete(ctx context.Context, id string) error {
	if err := e.store.DeletePair(ctx, id); err != nil {
		return err
	}

	e.mu.Lock()
	deleted := make(map[string]struct{}, len(e.deleted)+1)
	for d := range e.deleted {
		deleted[d] = struct{}{}
	}
	deleted[id] = struct{}{}
	e.deleted = deleted
	e.changes++
	e.stale = true
	e.mu.Unlock()

	e.logger.Debug("pair deleted", zap.String("id", id))
	return nil
}

// TrainStats summarises a training run
type TrainStats struct {
	Pairs            int
	InputVocabulary  int
	OutputVocabulary int
	Duration         time.Duration
}

// Train rebuilds the model from every pair in the store and swaps it in.
// On failure the previous model stays in place. Changes made while training
// runs leave the new model stale.
func (e *Engine) Train(ctx context.Context) (TrainStats, error) {
	start := time.Now()

	e.mu.RLock()
	changes := e.changes
	e.mu.RUnlock()

	pairs, err := e.store.ListPairs(ctx)
	if err != nil {
		return TrainStats{}, fmt.Errorf("list pairs: %w", err)
	}
	if len(pairs) == 0 {
		return TrainStats{}, fmt.Errorf("%w: corpus is empty", internalerr.ErrInvalidInput)
	}

	dataset := make([]crosslm.Pair, len(pairs))
	for i, p := range pairs {
		if err := ctx.Err(); err != nil {
			return TrainStats{}, err
		}
		dataset[i] = crosslm.Pair{
			Input:  e.counter.Count(p.Input),
			Output: e.counter.Count(p.Output),
		}
		if dataset[i].Input.IsEmpty() || dataset[i].Output.IsEmpty() {
			e.logger.Warn("pair has no words after tokenization", zap.String("id", p.ID))
		}
	}

	untrained, err := crosslm.New(e.opts)
	if err != nil {
		return TrainStats{}, err
	}
	model, err := untrained.TrainBatch(dataset)
	if err != nil {
		return TrainStats{}, err
	}

	vocab := model.InputModel().Vocabulary()
	stats := TrainStats{
		Pairs:            len(pairs),
		InputVocabulary:  len(vocab),
		OutputVocabulary: len(model.OutputModel().Vocabulary()),
		Duration:         time.Since(start),
	}

	e.mu.Lock()
	e.model = model
	e.pairs = pairs
	e.vocab = vocab
	e.deleted = stillDeleted(e.deleted, pairs)
	e.stale = e.changes != changes
	e.mu.Unlock()

	e.logger.Info("model trained",
		zap.Int("pairs", stats.Pairs),
		zap.Int("input_vocabulary", stats.InputVocabulary),
		zap.Int("output_vocabulary", stats.OutputVocabulary),
		zap.Duration("duration", stats.Duration))
	return stats, nil
}

// Status reports whether a model is loaded and whether pairs were added or
// deleted since it was trained.
func (e *Engine) Status() (trained, stale bool, pairs int) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.model != nil, e.stale, len(e.pairs)
}

// SearchRequest defines a search query
type SearchRequest struct {
	Query   string
	TopK    int // 0 uses the engine default
	Explain int // divergence terms to report per result; negative uses the engine default
}

// Result is one ranked pair
type Result struct {
	PairID     string
	Input      string
	Output     string
	Source     string
	Similarity float64
	Terms      []crosslm.Term // largest contributions first; empty unless requested
}

// SearchResponse contains search results
type SearchResponse struct {
	Words   []string // query words the model saw, after snapping
	Dropped []string // query words with no match in the vocabulary
	Results []Result
}

// Search ranks the corpus outputs against req.Query, most similar first.
func (e *Engine) Search(ctx context.Context, req SearchRequest) (SearchResponse, error) {
	if err := ctx.Err(); err != nil {
		return SearchResponse{}, err
	}
	if strings.TrimSpace(req.Query) == "" {
		return SearchResponse{}, fmt.Errorf("%w: empty query", internalerr.ErrEmptySentence)
	}

	e.mu.RLock()
	model, pairs, vocab := e.model, e.pairs, e.vocab
	deleted := e.deleted
	e.mu.RUnlock()

	if model == nil {
		return SearchResponse{}, fmt.Errorf("%w: call Train before Search", internalerr.ErrNotTrained)
	}

	query := e.counter.Count(req.Query)
	var resp SearchResponse
	if e.snap >= 0 {
		query, resp.Dropped = wordcounts.Snap(query, vocab, e.snap)
	}
	if query.IsEmpty() {
		return resp, fmt.Errorf("%w: no known words in %q", internalerr.ErrEmptySentence, req.Query)
	}
	resp.Words = query.Words()

	topK := req.TopK
	if topK <= 0 {
		topK = e.topK
	}
	explain := req.Explain
	if explain < 0 {
		explain = e.explain
	}

	sims, err := model.TopK(query, topK+len(deleted))
	if err != nil {
		return resp, err
	}

	resp.Results = make([]Result, 0, topK)
	for _, sim := range sims {
		if len(resp.Results) == topK {
			break
		}
		p := pairs[sim.Index]
		if _, gone := deleted[p.ID]; gone {
			continue
		}
		res := Result{
			PairID:     p.ID,
			Input:      p.Input,
			Output:     p.Output,
			Source:     p.Source,
			Similarity: sim.Similarity,
		}
		if explain > 0 {
			terms, err := model.DivergenceTerms(query, sim.Output)
			if err != nil {
				return resp, fmt.Errorf("explain pair %s: %w", p.ID, err)
			}
			res.Terms = crosslm.TopTerms(terms, explain)
		}
		resp.Results = append(resp.Results, res)
	}

	e.logger.Debug("search",
		zap.Strings("words", resp.Words),
		zap.Strings("dropped", resp.Dropped),
		zap.Int("results", len(resp.Results)))
	return resp, nil
}

// stillDeleted keeps the deleted ids that a freshly trained model still
// contains, which happens when a pair is deleted while Train runs.
func stillDeleted(deleted map[string]struct{}, pairs []corpus.Pair) map[string]struct{} {
	if len(deleted) == 0 {
		return nil
	}
	var kept map[string]struct{}
	for _, p := range pairs {
		if _, ok := deleted[p.ID]; !ok {
			continue
		}
		if kept == nil {
			kept = make(map[string]struct{})
		}
		kept[p.ID] = struct{}{}
	}
	return kept
}
