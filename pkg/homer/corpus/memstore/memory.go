package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/cognicore/homer/pkg/homer/corpus"
	"github.com/cognicore/homer/pkg/homer/internalerr"
)

// Store is an in-memory implementation of corpus.Store for tests and
// one-shot CLI runs.
type Store struct {
	mu    sync.RWMutex
	ids   *corpus.IDSource
	pairs map[string]corpus.Pair
	stops map[string]struct{}
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		ids:   corpus.NewIDSource(),
		pairs: make(map[string]corpus.Pair),
	}
}

// Close implements corpus.Store.
func (s *Store) Close() error { return nil }

// UpsertPair inserts p, or replaces the pair with the same ID.
func (s *Store) UpsertPair(ctx context.Context, p corpus.Pair) (corpus.Pair, error) {
	p, err := corpus.Prepare(p, s.ids)
	if err != nil {
		return corpus.Pair{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.pairs[p.ID]; ok {
		p.CreatedAt = existing.CreatedAt
	}
	s.pairs[p.ID] = p
	return p, nil
}

// GetPair returns the pair with the given id.
func (s *Store) GetPair(ctx context.Context, id string) (corpus.Pair, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.pairs[id]
	return p, ok, nil
}

// ListPairs returns every pair ordered by id, which is creation order.
func (s *Store) ListPairs(ctx context.Context) ([]corpus.Pair, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]corpus.Pair, 0, len(s.pairs))
	for _, p := range s.pairs {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// DeletePair removes a pair.
func (s *Store) DeletePair(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.pairs[id]; !ok {
		return fmt.Errorf("%w: pair %s", internalerr.ErrNotFound, id)
	}
	delete(s.pairs, id)
	return nil
}

// Count returns the number of stored pairs.
func (s *Store) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.pairs), nil
}

// UpsertStoplist replaces the stopword set.
func (s *Store) UpsertStoplist(ctx context.Context, tokens []string) error {
	s.SetStoplist(tokens)
	return nil
}

// SetStoplist replaces the stopword set. An empty list clears it.
func (s *Store) SetStoplist(tokens []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(tokens) == 0 {
		s.stops = nil
		return
	}
	s.stops = make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		s.stops[tok] = struct{}{}
	}
}

// Stoplist returns a snapshot of the stopword list, or nil when none is set.
func (s *Store) Stoplist() corpus.StoplistView {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.stops) == 0 {
		return nil
	}
	snapshot := make(stoplistView, len(s.stops))
	for tok := range s.stops {
		snapshot[tok] = struct{}{}
	}
	return snapshot
}

type stoplistView map[string]struct{}

func (v stoplistView) IsStop(token string) bool {
	_, ok := v[token]
	return ok
}

func (v stoplistView) AllStops() []string {
	out := make([]string, 0, len(v))
	for tok := range v {
		out = append(out, tok)
	}
	sort.Strings(out)
	return out
}
