package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/cognicore/homer/pkg/homer/corpus"
	"github.com/cognicore/homer/pkg/homer/internalerr"
)

func openTestStore(t *testing.T) corpus.Store {
	t.Helper()
	st, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func TestPairRoundTrip(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	saved, err := st.UpsertPair(ctx, corpus.Pair{Input: "I want aa", Output: "a", Source: "test"})
	if err != nil {
		t.Fatalf("UpsertPair: %v", err)
	}

	got, ok, err := st.GetPair(ctx, saved.ID)
	if err != nil || !ok {
		t.Fatalf("GetPair: ok=%v err=%v", ok, err)
	}
	if got.Input != "I want aa" || got.Output != "a" || got.Source != "test" {
		t.Errorf("unexpected pair %+v", got)
	}
	if !got.CreatedAt.Equal(saved.CreatedAt) {
		t.Errorf("created_at mismatch: %v vs %v", got.CreatedAt, saved.CreatedAt)
	}

	if _, ok, err := st.GetPair(ctx, "01ARZ3NDEKTSV4RRFFQ69G5FAV"); ok || err != nil {
		t.Errorf("expected missing pair, got ok=%v err=%v", ok, err)
	}
}

func TestListPairsInsertionOrder(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	inputs := []string{"I want aa", "I want bb", "I want cc"}
	for _, in := range inputs {
		if _, err := st.UpsertPair(ctx, corpus.Pair{Input: in, Output: "x"}); err != nil {
			t.Fatalf("UpsertPair: %v", err)
		}
	}

	pairs, err := st.ListPairs(ctx)
	if err != nil {
		t.Fatalf("ListPairs: %v", err)
	}
	if len(pairs) != 3 {
		t.Fatalf("expected 3 pairs, got %d", len(pairs))
	}
	for i, p := range pairs {
		if p.Input != inputs[i] {
			t.Errorf("pair %d: expected %q, got %q", i, inputs[i], p.Input)
		}
	}
}

func TestUpsertUpdatesExisting(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	p, _ := st.UpsertPair(ctx, corpus.Pair{Input: "hi", Output: "hello"})
	created := p.CreatedAt

	p.Output = "hello there"
	p.CreatedAt = created.Add(time.Second)
	updated, err := st.UpsertPair(ctx, p)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !updated.CreatedAt.Equal(created) {
		t.Errorf("update must keep creation time %v, got %v", created, updated.CreatedAt)
	}

	n, _ := st.Count(ctx)
	if n != 1 {
		t.Errorf("expected 1 pair, got %d", n)
	}
	got, _, _ := st.GetPair(ctx, p.ID)
	if got.Output != "hello there" {
		t.Errorf("expected updated output, got %q", got.Output)
	}
}

func TestDeletePair(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	p, _ := st.UpsertPair(ctx, corpus.Pair{Input: "x", Output: "y"})
	if err := st.DeletePair(ctx, p.ID); err != nil {
		t.Fatalf("DeletePair: %v", err)
	}
	if err := st.DeletePair(ctx, p.ID); !errors.Is(err, internalerr.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "persist.db")

	st, err := OpenSQLite(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := st.UpsertPair(ctx, corpus.Pair{Input: "q", Output: "a"}); err != nil {
		t.Fatal(err)
	}
	if err := st.UpsertStoplist(ctx, []string{"the", "a"}); err != nil {
		t.Fatal(err)
	}
	st.Close()

	st, err = OpenSQLite(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()

	if n, _ := st.Count(ctx); n != 1 {
		t.Errorf("expected 1 pair after reopen, got %d", n)
	}
	sl := st.Stoplist()
	if sl == nil {
		t.Fatal("expected stoplist after reopen")
	}
	if !sl.IsStop("the") || sl.IsStop("car") {
		t.Error("unexpected IsStop results")
	}
	if stops := sl.AllStops(); len(stops) != 2 || stops[0] != "a" {
		t.Errorf("expected [a the], got %v", stops)
	}
}

func TestStoplistEmptyIsNil(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	if st.Stoplist() != nil {
		t.Error("expected nil stoplist for empty table")
	}
	st.UpsertStoplist(ctx, []string{"x"})
	st.UpsertStoplist(ctx, nil)
	if st.Stoplist() != nil {
		t.Error("expected nil stoplist after clearing")
	}
}
