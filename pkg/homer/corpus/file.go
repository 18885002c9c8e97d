package corpus

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/cognicore/homer/pkg/homer/internalerr"
)

// record is the on-disk shape of a pair in YAML and JSONL corpus files.
type record struct {
	Input  string `yaml:"input" json:"input"`
	Output string `yaml:"output" json:"output"`
	Source string `yaml:"source,omitempty" json:"source,omitempty"`
}

// yamlFile is a YAML corpus:
//
//	pairs:
//	  - input: I want a car
//	    output: A car costs money
type yamlFile struct {
	Pairs []record `yaml:"pairs"`
}

// LoadFile loads pairs from a .yaml/.yml or .jsonl file.
func LoadFile(path string, logger *zap.Logger) ([]Pair, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return LoadYAML(path, logger)
	case ".jsonl", ".ndjson":
		return LoadJSONL(path, logger)
	default:
		return nil, fmt.Errorf("%w: unknown corpus file type %q", internalerr.ErrUnsupported, filepath.Ext(path))
	}
}

// LoadYAML loads pairs from a YAML file. Entries without input or output
// text are skipped with a warning.
func LoadYAML(path string, logger *zap.Logger) ([]Pair, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file %s: %w", path, err)
	}

	var f yamlFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	var pairs []Pair
	for i, r := range f.Pairs {
		p, ok := r.pair(path)
		if !ok {
			logger.Warn("skipping incomplete pair", zap.String("file", path), zap.Int("index", i))
			continue
		}
		pairs = append(pairs, p)
	}

	if len(pairs) == 0 {
		return nil, fmt.Errorf("%w: no valid pairs found in %s", internalerr.ErrInvalidInput, path)
	}
	return pairs, nil
}

// LoadJSONL loads pairs from a file with one JSON object per line.
// Malformed or incomplete lines are skipped with a warning.
func LoadJSONL(path string, logger *zap.Logger) ([]Pair, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file %s: %w", path, err)
	}

	var pairs []Pair
	for i, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		var r record
		if err := json.Unmarshal([]byte(line), &r); err != nil {
			logger.Warn("skipping malformed JSON",
				zap.String("file", path), zap.Int("line", i+1), zap.Error(err))
			continue
		}
		p, ok := r.pair(path)
		if !ok {
			logger.Warn("skipping incomplete pair", zap.String("file", path), zap.Int("line", i+1))
			continue
		}
		pairs = append(pairs, p)
	}

	if len(pairs) == 0 {
		return nil, fmt.Errorf("%w: no valid pairs found in %s", internalerr.ErrInvalidInput, path)
	}
	return pairs, nil
}

func (r record) pair(path string) (Pair, bool) {
	p := Pair{
		Input:  strings.TrimSpace(r.Input),
		Output: strings.TrimSpace(r.Output),
		Source: strings.TrimSpace(r.Source),
	}
	if p.Input == "" || p.Output == "" {
		return p, false
	}
	if p.Source == "" {
		p.Source = filepath.Base(path)
	}
	return p, true
}
