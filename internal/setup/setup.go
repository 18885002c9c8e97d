// Package setup builds a homer.Engine from command-line flags and the YAML
// configuration. It is shared by the cmd/ tools.
package setup

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cognicore/homer/pkg/homer"
	"github.com/cognicore/homer/pkg/homer/config"
	"github.com/cognicore/homer/pkg/homer/corpus"
	"github.com/cognicore/homer/pkg/homer/corpus/faq"
	"github.com/cognicore/homer/pkg/homer/corpus/memstore"
	"github.com/cognicore/homer/pkg/homer/corpus/sqlite"
	"github.com/cognicore/homer/pkg/homer/internalerr"
)

// Corpus file formats
const (
	FormatYAML  = "yaml"
	FormatJSONL = "jsonl"
	FormatHTML  = "html"
)

// Params selects the configuration and overrides it from flags.
type Params struct {
	ConfigPath string
	DBPath     string // overrides corpus.db; empty and unset means in-memory
	CorpusPath string // overrides corpus.path
	Logger     *zap.Logger
}

// NewLogger builds a production zap logger writing JSON to stderr.
func NewLogger(debug bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if debug {
		cfg.Level.SetLevel(zapcore.DebugLevel)
	}
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build()
}

// OpenStore opens the SQLite store at path, or an in-memory store when
// path is empty.
func OpenStore(ctx context.Context, path string) (corpus.Store, error) {
	if path == "" {
		return memstore.New(), nil
	}
	return sqlite.OpenSQLite(ctx, path)
}

// LoadPairs reads a corpus file. An empty format is inferred from the file
// extension.
func LoadPairs(path, format string, logger *zap.Logger) ([]corpus.Pair, error) {
	if format == "" {
		format = FormatFor(path)
	}
	switch format {
	case FormatYAML:
		return corpus.LoadYAML(path, logger)
	case FormatJSONL:
		return corpus.LoadJSONL(path, logger)
	case FormatHTML:
		return faq.ParseFile(path)
	default:
		return nil, fmt.Errorf("%w: unknown corpus format %q", internalerr.ErrUnsupported, format)
	}
}

// FormatFor guesses the corpus format from a file name.
func FormatFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	case ".jsonl", ".ndjson":
		return FormatJSONL
	case ".html", ".htm":
		return FormatHTML
	}
	return ""
}

// Build loads the configuration, opens the store, seeds it from the corpus
// file when the store is empty, and trains the engine if there is anything
// to train on. The returned cleanup closes the engine.
func Build(ctx context.Context, p Params) (*homer.Engine, *config.Components, func(), error) {
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	loader := config.Loader{ConfigPath: p.ConfigPath}
	comp, err := loader.Load()
	if err != nil {
		return nil, nil, nil, err
	}
	cfg := comp.Config
	if p.DBPath != "" {
		cfg.Corpus.DB = p.DBPath
	}
	if p.CorpusPath != "" {
		cfg.Corpus.Path = p.CorpusPath
	}
	comp.Config = cfg

	store, err := OpenStore(ctx, cfg.Corpus.DB)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open store: %w", err)
	}

	engine, err := homer.New(homer.Options{
		Store:        store,
		Counter:      comp.Counter,
		Model:        comp.Model,
		SnapDistance: cfg.Search.SnapDistance,
		TopK:         cfg.Search.TopK,
		Explain:      cfg.Search.Explain,
		Logger:       logger,
	})
	if err != nil {
		store.Close()
		return nil, nil, nil, err
	}
	cleanup := func() { engine.Close() }

	count, err := store.Count(ctx)
	if err != nil {
		cleanup()
		return nil, nil, nil, fmt.Errorf("count pairs: %w", err)
	}

	if cfg.Corpus.Path != "" {
		if count == 0 {
			pairs, err := LoadPairs(cfg.Corpus.Path, "", logger)
			if err != nil {
				cleanup()
				return nil, nil, nil, fmt.Errorf("load corpus: %w", err)
			}
			for _, pair := range pairs {
				if _, err := engine.Add(ctx, pair); err != nil {
					cleanup()
					return nil, nil, nil, fmt.Errorf("add pair: %w", err)
				}
			}
			count = len(pairs)
			logger.Info("corpus seeded", zap.String("path", cfg.Corpus.Path), zap.Int("pairs", count))
		} else {
			logger.Info("store already populated, corpus file ignored",
				zap.String("path", cfg.Corpus.Path), zap.Int("pairs", count))
		}
	}

	if count > 0 {
		if _, err := engine.Train(ctx); err != nil {
			cleanup()
			return nil, nil, nil, fmt.Errorf("train: %w", err)
		}
	}

	return engine, comp, cleanup, nil
}
