// Package config loads julie settings from an optional YAML file, a .env
// file and JULIE_* environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/anortham/julie-sub010"
)

// DefaultPath is the config file read when none is given.
const DefaultPath = ".julie.yaml"

type Config struct {
	DB               string        `yaml:"db"`
	Languages        []string      `yaml:"languages"`
	Workers          int           `yaml:"workers"`
	BatchSize        int           `yaml:"batch_size"`
	ParseTimeout     time.Duration `yaml:"parse_timeout"`
	BulkThreshold    int           `yaml:"bulk_threshold"`
	ScriptsDir       string        `yaml:"scripts_dir"`
	Exclude          []string      `yaml:"exclude"`
	PruneMinAttempts int           `yaml:"prune_min_attempts"`
	LogLevel         string        `yaml:"log_level"`
}

// Load reads path (a missing file yields an empty config), then applies
// .env and JULIE_* overrides.
func Load(path string) (*Config, error) {
	// 1. Load .env if it exists
	_ = godotenv.Load()

	// 2. Load YAML config
	var cfg Config
	if path == "" {
		path = DefaultPath
	}
	file, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(file, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	// 3. Override with environment variables
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	list := func(key string, dst *[]string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = splitList(v)
		}
	}
	num := func(key string, dst *int) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = n
		return nil
	}

	str("JULIE_DB", &c.DB)
	str("JULIE_SCRIPTS_DIR", &c.ScriptsDir)
	str("JULIE_LOG_LEVEL", &c.LogLevel)
	list("JULIE_LANGUAGES", &c.Languages)
	list("JULIE_EXCLUDE", &c.Exclude)
	for key, dst := range map[string]*int{
		"JULIE_WORKERS":            &c.Workers,
		"JULIE_BATCH_SIZE":         &c.BatchSize,
		"JULIE_BULK_THRESHOLD":     &c.BulkThreshold,
		"JULIE_PRUNE_MIN_ATTEMPTS": &c.PruneMinAttempts,
	} {
		if err := num(key, dst); err != nil {
			return err
		}
	}
	if v, ok := lookup("JULIE_PARSE_TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("JULIE_PARSE_TIMEOUT: %w", err)
		}
		c.ParseTimeout = d
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// EngineOptions converts the set fields to engine options. Zero values
// keep the engine defaults.
func (c *Config) EngineOptions() []julie.Option {
	var opts []julie.Option
	if len(c.Languages) > 0 {
		opts = append(opts, julie.WithLanguages(c.Languages...))
	}
	if c.Workers > 0 {
		opts = append(opts, julie.WithWorkers(c.Workers))
	}
	if c.BatchSize > 0 {
		opts = append(opts, julie.WithBatchSize(c.BatchSize))
	}
	if c.ParseTimeout > 0 {
		opts = append(opts, julie.WithParseTimeout(c.ParseTimeout))
	}
	if c.BulkThreshold > 0 {
		opts = append(opts, julie.WithBulkThreshold(c.BulkThreshold))
	}
	if c.ScriptsDir != "" {
		opts = append(opts, julie.WithScriptsDir(c.ScriptsDir))
	}
	if len(c.Exclude) > 0 {
		opts = append(opts, julie.WithExclude(c.Exclude...))
	}
	if c.PruneMinAttempts > 0 {
		opts = append(opts, julie.WithPruneMinAttempts(c.PruneMinAttempts))
	}
	return opts
}

// Level parses LogLevel, defaulting to info.
func (c *Config) Level() (slog.Level, error) {
	var lvl slog.Level
	if c.LogLevel == "" {
		return slog.LevelInfo, nil
	}
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log level %q: %w", c.LogLevel, err)
	}
	return lvl, nil
}
