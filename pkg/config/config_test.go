package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	apperrors "github.com/Adithya-Monish-Kumar-K/wikisurface/pkg/errors"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
lang: tr
workers: 3
dump:
  prefix: dumps/trwiki-20181020
  encoding: ISO-8859-1
aggregate:
  mode: word
  outPrefix: out/trwiki
`)
	t.Setenv("WS_MID_WINDOW", "40")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Workers != 3 || cfg.Aggregate.Mode != ModeWord {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if cfg.Dump.Encoding != EncodingLatin1 {
		t.Errorf("encoding = %q, want %q", cfg.Dump.Encoding, EncodingLatin1)
	}
	if cfg.Dump.PagePath() != "dumps/trwiki-20181020-page.sql.gz" {
		t.Errorf("PagePath() = %q", cfg.Dump.PagePath())
	}
	if cfg.MID.Window != 40 {
		t.Errorf("window = %d, want env override 40", cfg.MID.Window)
	}
	if !cfg.AddASCII() {
		t.Error("AddASCII() should be forced on for tr")
	}
	if cfg.Tables.TargetLang != "en" || !cfg.Tables.UseCache {
		t.Errorf("defaults not kept: %+v", cfg.Tables)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"bad mode", func(c *Config) { c.Aggregate.Mode = "sentence" }, false},
		{"bad encoding", func(c *Config) { c.Dump.Encoding = "utf-16" }, false},
		{"negative window", func(c *Config) { c.MID.Window = -1 }, false},
		{"zero workers", func(c *Config) { c.Workers = 0 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.ok && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !tt.ok && !errors.Is(err, apperrors.ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected an error for a missing config file")
	}
}
