// Package corpus persists the paired (input, output) examples a cross
// language model is trained on.
package corpus

import (
	"context"
	"crypto/rand"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/cognicore/homer/pkg/homer/internalerr"
)

// Store is the interface for persisting and listing training pairs
type Store interface {
	Close() error

	// Pairs
	UpsertPair(ctx context.Context, p Pair) (Pair, error)
	GetPair(ctx context.Context, id string) (Pair, bool, error)
	ListPairs(ctx context.Context) ([]Pair, error)
	DeletePair(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)

	// Stoplist persisted next to the corpus (optional read-through)
	Stoplist() StoplistView
	UpsertStoplist(ctx context.Context, tokens []string) error
}

// Pair is one training example: a question-like input and the answer-like
// output it should be matched with.
type Pair struct {
	ID        string
	Input     string
	Output    string
	Source    string
	CreatedAt time.Time
}

// StoplistView provides read access to the stopword list
type StoplistView interface {
	IsStop(token string) bool
	AllStops() []string
}

// IDSource hands out ULIDs that sort in creation order.
type IDSource struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// NewIDSource creates an IDSource backed by crypto/rand.
func NewIDSource() *IDSource {
	return &IDSource{entropy: ulid.Monotonic(rand.Reader, 0)}
}

// New returns a fresh id whose timestamp part is t.
func (s *IDSource) New(t time.Time) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), s.entropy).String()
}

// ValidID reports whether id is a well-formed ULID.
func ValidID(id string) bool {
	_, err := ulid.ParseStrict(id)
	return err == nil
}

// Prepare trims and validates p and fills in a missing ID and CreatedAt.
// Stores call it before writing.
func Prepare(p Pair, ids *IDSource) (Pair, error) {
	p.Input = strings.TrimSpace(p.Input)
	p.Output = strings.TrimSpace(p.Output)
	p.Source = strings.TrimSpace(p.Source)
	if p.Input == "" || p.Output == "" {
		return p, fmt.Errorf("%w: pair needs both input and output text", internalerr.ErrInvalidInput)
	}

	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	p.CreatedAt = p.CreatedAt.UTC().Truncate(time.Millisecond)

	if p.ID == "" {
		p.ID = ids.New(p.CreatedAt)
	} else if !ValidID(p.ID) {
		return p, fmt.Errorf("%w: malformed pair id %q", internalerr.ErrInvalidInput, p.ID)
	}
	return p, nil
}
