package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cognicore/homer/internal/setup"
	"github.com/cognicore/homer/pkg/homer/internalerr"
)

func TestChatCLIOneShot(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	corpusPath := filepath.Join(dir, "pairs.yaml")
	content := `pairs:
  - input: I want aa
    output: a
    source: test
  - input: I want bb
    output: b
  - input: I want cc
    output: c
`
	if err := os.WriteFile(corpusPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	engine, _, cleanup, err := setup.Build(ctx, setup.Params{
		DBPath:     filepath.Join(dir, "homer.db"),
		CorpusPath: corpusPath,
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer cleanup()

	var out bytes.Buffer
	if err := executeQuery(ctx, &out, engine, "I want aa please", 2, 1); err != nil {
		t.Fatalf("executeQuery: %v", err)
	}

	text := out.String()
	if !strings.Contains(text, "unknown words ignored: please") {
		t.Errorf("expected dropped word notice, got:\n%s", text)
	}
	if !strings.Contains(text, "--- 1. a (similarity") {
		t.Errorf("expected a ranked first, got:\n%s", text)
	}
	if strings.Contains(text, "--- 3.") {
		t.Errorf("expected only 2 results, got:\n%s", text)
	}
	if !strings.Contains(text, "Top divergence terms:") || !strings.Contains(text, "Source: test") {
		t.Errorf("expected explanation and source, got:\n%s", text)
	}

	out.Reset()
	if err := executeQuery(ctx, &out, engine, "   ", 0, 0); !errors.Is(err, internalerr.ErrEmptySentence) {
		t.Errorf("expected ErrEmptySentence, got %v", err)
	}
}
