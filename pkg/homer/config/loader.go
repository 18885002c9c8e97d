package config

import (
	"fmt"

	"github.com/cognicore/homer/pkg/homer/langmodel"
	"github.com/cognicore/homer/pkg/homer/wordcounts"
)

// Loader loads the configuration files and constructs components
type Loader struct {
	ConfigPath string // YAML config; Default() when empty

	// StoplistPath overrides tokenizer.stoplist from the config file.
	StoplistPath string
}

// Components holds all loaded configuration components
type Components struct {
	Config  Config
	Counter wordcounts.Counter
	Model   langmodel.Options
}

// Load reads all configuration files and returns initialized components
func (l *Loader) Load() (*Components, error) {
	cfg := Default()
	if l.ConfigPath != "" {
		loaded, err := LoadConfig(l.ConfigPath)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		cfg = *loaded
	}
	if l.StoplistPath != "" {
		cfg.Tokenizer.Mode = ModeNormalize
		cfg.Tokenizer.Stoplist = l.StoplistPath
	}

	model, err := cfg.ModelOptions().Normalize()
	if err != nil {
		return nil, err
	}

	comp := &Components{Config: cfg, Model: model}

	switch cfg.Tokenizer.Mode {
	case ModeNormalize:
		var terms []string
		if cfg.Tokenizer.Stoplist != "" {
			stoplist, err := LoadStoplist(cfg.Tokenizer.Stoplist)
			if err != nil {
				return nil, fmt.Errorf("load stoplist: %w", err)
			}
			terms = stoplist.Terms
		}
		comp.Counter = wordcounts.NewTokenizer(terms, cfg.Tokenizer.MinLength)
	default:
		comp.Counter = wordcounts.Fields{}
	}

	return comp, nil
}
