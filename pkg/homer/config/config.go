package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/homer/pkg/homer/internalerr"
	"github.com/cognicore/homer/pkg/homer/langmodel"
)

// Tokenizer modes
const (
	ModeFields    = "fields"
	ModeNormalize = "normalize"
)

// Config is the YAML configuration shared by the homer commands
type Config struct {
	Model     ModelConfig     `yaml:"model"`
	Tokenizer TokenizerConfig `yaml:"tokenizer"`
	Corpus    CorpusConfig    `yaml:"corpus"`
	Search    SearchConfig    `yaml:"search"`
	Server    ServerConfig    `yaml:"server"`
}

// ModelConfig holds the language model parameters
type ModelConfig struct {
	SmoothingCoefficient float64 `yaml:"smoothing_coefficient"`
	PseudoCount          float64 `yaml:"pseudo_count"`
}

// TokenizerConfig selects how text is turned into word counts
type TokenizerConfig struct {
	Mode      string `yaml:"mode"`
	MinLength int    `yaml:"min_length"`
	Stoplist  string `yaml:"stoplist"`
}

// CorpusConfig points at the pair store and an optional seed file
type CorpusConfig struct {
	DB   string `yaml:"db"`
	Path string `yaml:"path"`
}

// SearchConfig holds query defaults. A negative SnapDistance keeps unknown
// query words, 0 drops them, larger values snap them to the vocabulary.
type SearchConfig struct {
	TopK         int `yaml:"top_k"`
	SnapDistance int `yaml:"snap_distance"`
	Explain      int `yaml:"explain"`
}

// ServerConfig configures the HTTP server
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Model:     ModelConfig{SmoothingCoefficient: langmodel.DefaultSmoothingCoefficient},
		Tokenizer: TokenizerConfig{Mode: ModeFields},
		Search:    SearchConfig{TopK: 3},
		Server:    ServerConfig{Addr: ":8080"},
	}
}

// LoadConfig reads a YAML config file on top of Default. Relative file
// paths inside it are resolved against the config file's directory.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", internalerr.ErrInvalidConfig, path, err)
	}

	dir := filepath.Dir(path)
	cfg.Tokenizer.Stoplist = resolve(dir, cfg.Tokenizer.Stoplist)
	cfg.Corpus.DB = resolve(dir, cfg.Corpus.DB)
	cfg.Corpus.Path = resolve(dir, cfg.Corpus.Path)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &cfg, nil
}

// Validate checks value ranges and mode names.
func (c Config) Validate() error {
	if _, err := c.ModelOptions().Normalize(); err != nil {
		return err
	}
	switch c.Tokenizer.Mode {
	case "", ModeFields:
		if c.Tokenizer.Stoplist != "" || c.Tokenizer.MinLength > 0 {
			return fmt.Errorf("%w: stoplist and min_length need tokenizer mode %q", internalerr.ErrInvalidConfig, ModeNormalize)
		}
	case ModeNormalize:
	default:
		return fmt.Errorf("%w: unknown tokenizer mode %q", internalerr.ErrInvalidConfig, c.Tokenizer.Mode)
	}
	if c.Tokenizer.MinLength < 0 {
		return fmt.Errorf("%w: negative tokenizer min_length", internalerr.ErrInvalidConfig)
	}
	if c.Search.TopK < 0 || c.Search.Explain < 0 {
		return fmt.Errorf("%w: search top_k and explain must be non-negative", internalerr.ErrInvalidConfig)
	}
	return nil
}

// ModelOptions converts the model section to langmodel options.
func (c Config) ModelOptions() langmodel.Options {
	return langmodel.Options{
		SmoothingCoefficient: c.Model.SmoothingCoefficient,
		PseudoCount:          c.Model.PseudoCount,
	}
}

func resolve(dir, path string) string {
	if path == "" || filepath.IsAbs(path) || path == ":memory:" {
		return path
	}
	return filepath.Join(dir, path)
}

// Stoplist represents the stopword list configuration
type Stoplist struct {
	Terms []string `yaml:"terms"`
}

// LoadStoplist loads stopwords from a YAML file
func LoadStoplist(path string) (*Stoplist, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var sl Stoplist
	if err := yaml.Unmarshal(data, &sl); err != nil {
		return nil, err
	}

	return &sl, nil
}
