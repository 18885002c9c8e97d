package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/cognicore/homer/internal/setup"
	"github.com/cognicore/homer/pkg/homer"
)

func main() {
	var (
		configPath = flag.String("config", "", "YAML config file (optional)")
		dbPath     = flag.String("db", "", "SQLite corpus database (default: in-memory)")
		corpusPath = flag.String("corpus", "", "Corpus file to seed an empty store (.yaml, .jsonl, .html)")
		query      = flag.String("query", "", "One-shot query (non-interactive mode)")
		topK       = flag.Int("topk", 0, "Number of results to return (default from config)")
		explain    = flag.Int("explain", -1, "Divergence terms to show per result (default from config)")
		debug      = flag.Bool("debug", false, "Enable debug logging")
	)
	flag.Parse()

	logger, err := setup.NewLogger(*debug)
	if err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}
	defer logger.Sync()

	ctx := context.Background()

	engine, _, cleanup, err := setup.Build(ctx, setup.Params{
		ConfigPath: *configPath,
		DBPath:     *dbPath,
		CorpusPath: *corpusPath,
		Logger:     logger,
	})
	if err != nil {
		log.Fatal(err)
	}
	defer cleanup()

	if trained, _, _ := engine.Status(); !trained {
		log.Fatal("corpus is empty: pass --corpus or import pairs with homer-import")
	}

	// One-shot query mode
	if *query != "" {
		if err := executeQuery(ctx, os.Stdout, engine, *query, *topK, *explain); err != nil {
			log.Fatal(err)
		}
		return
	}

	// Interactive mode
	fmt.Println("===========================================")
	fmt.Println("  Homer Chat CLI")
	fmt.Println("  Answers ranked by cross-language model")
	fmt.Println("===========================================")
	fmt.Println()
	fmt.Println("Type your question (Ctrl+D to exit):")
	fmt.Println()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}

		query := strings.TrimSpace(scanner.Text())
		if query == "" {
			continue
		}

		if err := executeQuery(ctx, os.Stdout, engine, query, *topK, *explain); err != nil {
			fmt.Println("Error:", err)
		}
	}

	fmt.Println("\nGoodbye!")
}

func executeQuery(ctx context.Context, w io.Writer, engine *homer.Engine, query string, topK, explain int) error {
	res, err := engine.Search(ctx, homer.SearchRequest{
		Query:   query,
		TopK:    topK,
		Explain: explain,
	})
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}

	if len(res.Dropped) > 0 {
		fmt.Fprintf(w, "(unknown words ignored: %s)\n", strings.Join(res.Dropped, ", "))
	}
	if len(res.Results) == 0 {
		fmt.Fprintln(w, "No results found.")
		fmt.Fprintln(w)
		return nil
	}

	for i, r := range res.Results {
		fmt.Fprintf(w, "\n--- %d. %s (similarity %.4f) ---\n", i+1, r.Output, r.Similarity)
		fmt.Fprintf(w, "  Matched example: %s\n", r.Input)
		if r.Source != "" {
			fmt.Fprintf(w, "  Source: %s\n", r.Source)
		}
		if len(r.Terms) > 0 {
			fmt.Fprintln(w, "  Top divergence terms:")
			for _, t := range r.Terms {
				fmt.Fprintf(w, "    %-16s %+.4f  (log P=%.3f, log p=%.3f)\n",
					t.Feature, t.Contribution, t.LogProbGivenInput, t.LogProbGivenOutput)
			}
		}
	}
	fmt.Fprintln(w)

	return nil
}
