// Package config loads the benchmark configuration from YAML.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pyhub-apps/pdfpagebench/pkg/strategy"
)

// Config is the complete configuration of a run
type Config struct {
	OutputDir  string        `yaml:"output_dir"`
	Strategies []string      `yaml:"strategies"`
	Plots      bool          `yaml:"plots"`
	Progress   bool          `yaml:"progress"`
	Tika       TikaConfig    `yaml:"tika"`
	History    HistoryConfig `yaml:"history"`
	Log        LogConfig     `yaml:"log"`
}

// TikaConfig locates the Tika server
type TikaConfig struct {
	URL               string        `yaml:"url"`
	Timeout           time.Duration `yaml:"timeout"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
}

// HistoryConfig enables the run history when Path is set
type HistoryConfig struct {
	Path string `yaml:"path"`
}

// LogConfig selects the log level and handler
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file is given
func Default() Config {
	return Config{
		OutputDir:  ".",
		Strategies: append([]string(nil), strategy.DefaultOrder...),
		Plots:      true,
		Progress:   true,
		Tika: TikaConfig{
			URL:     strategy.DefaultTikaURL,
			Timeout: 2 * time.Minute,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads path over the defaults
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults and validates the result. Unknown
// keys are rejected.
func Parse(data []byte) (Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks strategy names and logging settings
func (c Config) Validate() error {
	if len(c.Strategies) == 0 {
		return fmt.Errorf("no strategies configured")
	}
	seen := make(map[string]bool, len(c.Strategies))
	for _, name := range c.Strategies {
		if !strategy.Registered(name) {
			return fmt.Errorf("unknown strategy %q (available: %s)", name, strings.Join(strategy.Names(), ", "))
		}
		if seen[name] {
			return fmt.Errorf("strategy %q configured twice", name)
		}
		seen[name] = true
	}

	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q (want text or json)", c.Log.Format)
	}

	if c.Tika.Timeout < 0 {
		return fmt.Errorf("tika timeout must not be negative")
	}
	if c.Tika.RequestsPerSecond < 0 {
		return fmt.Errorf("tika requests_per_second must not be negative")
	}
	return nil
}

// StrategyOptions returns the backend settings of the configuration
func (c Config) StrategyOptions() strategy.Options {
	return strategy.Options{
		Tika: strategy.TikaOptions{
			URL:               c.Tika.URL,
			Timeout:           c.Tika.Timeout,
			RequestsPerSecond: c.Tika.RequestsPerSecond,
		},
	}
}

// ParseLevel maps a level name to its slog level
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", level)
	}
}

// NewLogger builds the logger described by l, writing to w
func (l LogConfig) NewLogger(w io.Writer) *slog.Logger {
	level, err := ParseLevel(l.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	if l.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
