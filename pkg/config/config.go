// Package config loads and validates pipeline configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// stage (dump tables, link extraction, MID generation, aggregation).
package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	apperrors "github.com/Adithya-Monish-Kumar-K/wikisurface/pkg/errors"
)

// Processing modes for the surface/title aggregator.
const (
	ModePhrase = "phrase"
	ModeWord   = "word"
)

// Supported dump encodings.
const (
	EncodingUTF8   = "utf-8"
	EncodingLatin1 = "iso-8859-1"
)

// Config is the top-level pipeline configuration.
type Config struct {
	Lang      string          `yaml:"lang"`
	Workers   int             `yaml:"workers"`
	Dump      DumpConfig      `yaml:"dump"`
	Tables    TablesConfig    `yaml:"tables"`
	Extract   ExtractConfig   `yaml:"extract"`
	MID       MIDConfig       `yaml:"mid"`
	Aggregate AggregateConfig `yaml:"aggregate"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// DumpConfig locates the raw SQL dumps. Prefix is the path prefix shared by
// every dump of one snapshot, e.g. "dumps/enwiki-20181020".
type DumpConfig struct {
	Prefix   string `yaml:"prefix"`
	Encoding string `yaml:"encoding"`
}

// PagePath returns the page table dump path for the configured prefix.
func (d DumpConfig) PagePath() string { return d.Prefix + "-page.sql.gz" }

// RedirectPath returns the redirect table dump path.
func (d DumpConfig) RedirectPath() string { return d.Prefix + "-redirect.sql.gz" }

// LangLinksPath returns the language-links dump path.
func (d DumpConfig) LangLinksPath() string { return d.Prefix + "-langlinks.sql.gz" }

// TablesConfig holds the TSV artifacts derived from the dumps.
type TablesConfig struct {
	ID2Title       string `yaml:"id2title"`
	Redirect2Title string `yaml:"redirect2title"`
	LangLinks      string `yaml:"langlinks"`
	TargetLang     string `yaml:"targetLang"`
	UseCache       bool   `yaml:"useCache"`
}

// ExtractConfig controls link span extraction.
type ExtractConfig struct {
	InputDir   string `yaml:"inputDir"`
	OutputDir  string `yaml:"outputDir"`
	IgnoreNull bool   `yaml:"ignoreNull"`
}

// MIDConfig controls mention-in-document generation.
type MIDConfig struct {
	InputDir  string `yaml:"inputDir"`
	OutputDir string `yaml:"outputDir"`
	Window    int    `yaml:"window"`
}

// AggregateConfig controls surface/title aggregation and probability output.
type AggregateConfig struct {
	LinksFile string `yaml:"linksFile"`
	DocsDir   string `yaml:"docsDir"`
	OutPrefix string `yaml:"outPrefix"`
	Mode      string `yaml:"mode"`
	AddASCII  bool   `yaml:"addAscii"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server and the end-of-run
// textfile dump.
type MetricsConfig struct {
	Enabled      bool   `yaml:"enabled"`
	Port         int    `yaml:"port"`
	TextfilePath string `yaml:"textfilePath"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with defaults for any missing
// values.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the built-in configuration without reading any file.
func Default() *Config {
	return defaultConfig()
}

func defaultConfig() *Config {
	return &Config{
		Lang:    "en",
		Workers: runtime.NumCPU(),
		Dump: DumpConfig{
			Encoding: EncodingUTF8,
		},
		Tables: TablesConfig{
			TargetLang: "en",
			UseCache:   true,
		},
		MID: MIDConfig{
			Window: 100,
		},
		Aggregate: AggregateConfig{
			Mode: ModePhrase,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Port:    9090,
		},
	}
}

// Validate rejects option values the pipeline cannot act on.
func (c *Config) Validate() error {
	switch c.Aggregate.Mode {
	case ModePhrase, ModeWord:
	default:
		return apperrors.Newf(apperrors.ErrInvalidInput, apperrors.ExitUsage,
			"unknown aggregate mode %q (want %s or %s)", c.Aggregate.Mode, ModePhrase, ModeWord)
	}
	c.Dump.Encoding = strings.ToLower(c.Dump.Encoding)
	switch c.Dump.Encoding {
	case EncodingUTF8, EncodingLatin1:
	default:
		return apperrors.Newf(apperrors.ErrInvalidInput, apperrors.ExitUsage,
			"unsupported dump encoding %q", c.Dump.Encoding)
	}
	if c.MID.Window < 0 {
		return apperrors.Newf(apperrors.ErrInvalidInput, apperrors.ExitUsage,
			"mid window must be non-negative, got %d", c.MID.Window)
	}
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
	return nil
}

// AddASCII reports whether ASCII-folded surface variants should be
// registered. Turkish dumps are useless without folding, so it is forced on.
func (c *Config) AddASCII() bool {
	return c.Aggregate.AddASCII || c.Lang == "tr"
}

// applyEnvOverrides reads WS_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("WS_LANG"); v != "" {
		cfg.Lang = v
	}
	if v := os.Getenv("WS_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Workers = n
		}
	}
	if v := os.Getenv("WS_DUMP_PREFIX"); v != "" {
		cfg.Dump.Prefix = v
	}
	if v := os.Getenv("WS_DUMP_ENCODING"); v != "" {
		cfg.Dump.Encoding = v
	}
	if v := os.Getenv("WS_AGGREGATE_MODE"); v != "" {
		cfg.Aggregate.Mode = v
	}
	if v := os.Getenv("WS_AGGREGATE_ADD_ASCII"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Aggregate.AddASCII = b
		}
	}
	if v := os.Getenv("WS_EXTRACT_IGNORE_NULL"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Extract.IgnoreNull = b
		}
	}
	if v := os.Getenv("WS_MID_WINDOW"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MID.Window = n
		}
	}
	if v := os.Getenv("WS_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("WS_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("WS_METRICS_TEXTFILE"); v != "" {
		cfg.Metrics.TextfilePath = v
	}
}
