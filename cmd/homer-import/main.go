package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/cheggaaa/pb/v3"
	"go.uber.org/zap"

	"github.com/cognicore/homer/internal/setup"
	"github.com/cognicore/homer/pkg/homer/config"
	"github.com/cognicore/homer/pkg/homer/corpus"
	"github.com/cognicore/homer/pkg/homer/stoplist"
	"github.com/cognicore/homer/pkg/homer/wordcounts"
)

func main() {
	var (
		dbPath       = flag.String("db", "", "SQLite corpus database (required)")
		format       = flag.String("format", "", "Source format: yaml, jsonl or html (default: from extension)")
		source       = flag.String("source", "", "Corpus file to import")
		stoplistPath = flag.String("stoplist", "", "Stoplist YAML to store next to the corpus (optional)")
		suggest      = flag.Bool("suggest-stoplist", false, "Add frequent, evenly spread input words to the stored stoplist")
		quiet        = flag.Bool("quiet", false, "Disable the progress bar")
		debug        = flag.Bool("debug", false, "Enable debug logging")
	)
	flag.Parse()

	if *dbPath == "" {
		log.Fatal("--db required")
	}
	if *source == "" && *stoplistPath == "" && !*suggest {
		log.Fatal("--source, --stoplist or --suggest-stoplist required")
	}

	logger, err := setup.NewLogger(*debug)
	if err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}
	defer logger.Sync()

	ctx := context.Background()

	store, err := setup.OpenStore(ctx, *dbPath)
	if err != nil {
		logger.Fatal("Failed to open store", zap.String("db", *dbPath), zap.Error(err))
	}
	defer store.Close()

	if *stoplistPath != "" {
		n, err := importStoplist(ctx, store, *stoplistPath)
		if err != nil {
			logger.Fatal("Failed to import stoplist", zap.Error(err))
		}
		logger.Info("Stoplist imported", zap.Int("terms", n))
	}

	if *source != "" {
		importSource(ctx, store, *source, *format, *quiet, logger)
	}

	if *suggest {
		added, err := suggestStoplist(ctx, store, stoplist.DefaultThresholds())
		if err != nil {
			logger.Fatal("Failed to suggest stoplist", zap.Error(err))
		}
		for _, c := range added {
			logger.Info("Stopword added",
				zap.String("token", c.Token),
				zap.Float64("score", c.Score),
				zap.Float64("idf", c.Reason.IDF),
				zap.Float64("dispersion", c.Reason.Dispersion))
		}
		logger.Info("Stoplist suggestions stored", zap.Int("added", len(added)))
	}
}

func importSource(ctx context.Context, store corpus.Store, source, format string, quiet bool, logger *zap.Logger) {
	pairs, err := setup.LoadPairs(source, format, logger)
	if err != nil {
		logger.Fatal("Failed to load pairs", zap.String("source", source), zap.Error(err))
	}

	var progress io.Writer = os.Stderr
	if quiet {
		progress = io.Discard
	}
	imported, err := importPairs(ctx, store, pairs, progress)
	if err != nil {
		logger.Fatal("Import failed", zap.Int("imported", imported), zap.Error(err))
	}

	total, _ := store.Count(ctx)
	logger.Info("Import complete",
		zap.String("source", source),
		zap.Int("imported", imported),
		zap.Int("total_pairs", total))
}

// importPairs stores pairs one by one, drawing a progress bar on w.
func importPairs(ctx context.Context, store corpus.Store, pairs []corpus.Pair, w io.Writer) (int, error) {
	bar := pb.New(len(pairs))
	bar.SetWriter(w)
	bar.Start()
	defer bar.Finish()

	for i, p := range pairs {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		if _, err := store.UpsertPair(ctx, p); err != nil {
			return i, fmt.Errorf("pair %d (%q): %w", i, p.Input, err)
		}
		bar.Increment()
	}
	return len(pairs), nil
}

// suggestStoplist tokenizes every stored input, proposes stopwords from
// their statistics and stores the merged stoplist. It returns the words
// that were added.
func suggestStoplist(ctx context.Context, store corpus.Store, thresholds stoplist.Thresholds) ([]stoplist.Candidate, error) {
	pairs, err := store.ListPairs(ctx)
	if err != nil {
		return nil, err
	}

	var existing []string
	if sl := store.Stoplist(); sl != nil {
		existing = sl.AllStops()
	}
	tokenizer := wordcounts.NewTokenizer(existing, 0)

	inputs := make([]wordcounts.WordCounts, len(pairs))
	for i, p := range pairs {
		inputs[i] = tokenizer.Count(p.Input)
	}

	mgr := stoplist.NewManager(existing)
	candidates := mgr.SuggestCandidates(stoplist.CollectStats(inputs), thresholds)
	if len(candidates) == 0 {
		return nil, nil
	}
	for _, c := range candidates {
		mgr.Add(c.Token, c.Reason)
	}
	if err := store.UpsertStoplist(ctx, mgr.All()); err != nil {
		return nil, err
	}
	return candidates, nil
}

func importStoplist(ctx context.Context, store corpus.Store, path string) (int, error) {
	sl, err := config.LoadStoplist(path)
	if err != nil {
		return 0, err
	}
	if err := store.UpsertStoplist(ctx, sl.Terms); err != nil {
		return 0, err
	}
	return len(sl.Terms), nil
}
