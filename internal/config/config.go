// Package config holds the settings of a decipher run. Values come from, in
// increasing priority: built-in defaults, a YAML file, DECIPHER_*
// environment variables (optionally from a .env file) and command-line
// flags.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/jmccarv/decipher/internal/alphabet"
	"github.com/jmccarv/decipher/internal/corpus"
	"github.com/jmccarv/decipher/internal/solver"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

var (
	ErrMissingCorpus     = errors.New("training corpus is not specified")
	ErrMissingCiphertext = errors.New("ciphertext file is not specified")
)

// Config is the full configuration of a decode run.
type Config struct {
	Corpus     string `yaml:"corpus"`
	Ciphertext string `yaml:"ciphertext"`
	Reference  string `yaml:"reference"`
	InitKey    string `yaml:"init_key"`
	Alphabet   string `yaml:"alphabet"`

	Sampler  solver.Options         `yaml:"sampler"`
	Proposal solver.ProposalOptions `yaml:"proposal"`
	Stats    corpus.Smoothing       `yaml:"stats"`
	Report   ReportConfig           `yaml:"report"`
	Log      LogConfig              `yaml:"log"`
}

type ReportConfig struct {
	Full        bool   `yaml:"full"`
	JSON        bool   `yaml:"json"`
	MetricsFile string `yaml:"metrics_file"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Alphabet: "full",
		Sampler:  solver.DefaultOptions(),
		Proposal: solver.DefaultProposalOptions(),
		Stats:    corpus.DefaultSmoothing(),
		Log:      LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read the config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return cfg, nil
}

// LoadEnvFile loads a .env file into the process environment if it exists.
// Variables already set are left alone.
func LoadEnvFile(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return godotenv.Load(path)
}

// ApplyEnv overrides cfg from DECIPHER_* variables.
func (c *Config) ApplyEnv() error {
	str := map[string]*string{
		"DECIPHER_CORPUS":     &c.Corpus,
		"DECIPHER_CIPHERTEXT": &c.Ciphertext,
		"DECIPHER_REFERENCE":  &c.Reference,
		"DECIPHER_ALPHABET":   &c.Alphabet,
		"DECIPHER_LOG_LEVEL":  &c.Log.Level,
		"DECIPHER_LOG_FORMAT": &c.Log.Format,
	}
	for name, dst := range str {
		if v, ok := os.LookupEnv(name); ok {
			*dst = v
		}
	}

	ints := map[string]*int{
		"DECIPHER_ITERATIONS":  &c.Sampler.Iterations,
		"DECIPHER_CHECK_EVERY": &c.Sampler.CheckEvery,
		"DECIPHER_RESTARTS":    &c.Sampler.Restarts,
		"DECIPHER_WORKERS":     &c.Sampler.Workers,
		"DECIPHER_TOP":         &c.Sampler.Top,
	}
	for name, dst := range ints {
		v, ok := os.LookupEnv(name)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		*dst = n
	}

	if v, ok := os.LookupEnv("DECIPHER_TOLERANCE"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("DECIPHER_TOLERANCE: %w", err)
		}
		c.Sampler.Tolerance = f
	}
	if v, ok := os.LookupEnv("DECIPHER_SEED"); ok {
		s, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("DECIPHER_SEED: %w", err)
		}
		c.Sampler.Seed = s
	}
	return nil
}

// Validate checks everything a decode run needs before it starts.
func (c Config) Validate() error {
	if c.Corpus == "" {
		return ErrMissingCorpus
	}
	if c.Ciphertext == "" {
		return ErrMissingCiphertext
	}
	if _, err := alphabet.ByName(c.Alphabet); err != nil {
		return err
	}
	if err := c.Sampler.Validate(); err != nil {
		return err
	}
	if err := c.Proposal.Validate(); err != nil {
		return err
	}
	if c.Stats.Transition <= 0 || c.Stats.Frequency < 0 {
		return corpus.ErrBadSmoothing
	}
	_, err := c.Log.Handler()
	return err
}

// Handler builds the slog handler the log settings describe, writing to
// stderr.
func (l LogConfig) Handler() (slog.Handler, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	opts := &slog.HandlerOptions{Level: level}
	switch strings.ToLower(l.Format) {
	case "", "text":
		return slog.NewTextHandler(os.Stderr, opts), nil
	case "json":
		return slog.NewJSONHandler(os.Stderr, opts), nil
	}
	return nil, fmt.Errorf("unknown log format %q", l.Format)
}
