// Package app holds the start-up and shut-down steps every pipeline binary
// shares: config, logging, run id, metrics and signal handling.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Adithya-Monish-Kumar-K/wikisurface/internal/normalize"
	"github.com/Adithya-Monish-Kumar-K/wikisurface/internal/wikitable"
	"github.com/Adithya-Monish-Kumar-K/wikisurface/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/wikisurface/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/wikisurface/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/wikisurface/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/wikisurface/pkg/metrics"
)

// Env is the running state of one binary.
type Env struct {
	Config  *config.Config
	Metrics *metrics.Metrics
	Health  *health.Checker
	Logger  *slog.Logger

	name     string
	started  time.Time
	stop     context.CancelFunc
	shutdown func(context.Context) error
}

// Start loads the config at path, applies overrides, then sets up logging
// and metrics. The returned context is cancelled on SIGINT or SIGTERM.
func Start(name, path string, override func(*config.Config)) (context.Context, *Env, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}
	if override != nil {
		override(cfg)
		if err := cfg.Validate(); err != nil {
			return nil, nil, err
		}
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	ctx = logger.WithRunID(ctx, logger.NewRunID())
	env := &Env{
		Config:  cfg,
		Metrics: metrics.New(prometheus.NewRegistry()),
		Health:  health.NewChecker(),
		Logger:  logger.FromContext(ctx).With("binary", name),
		name:    name,
		started: time.Now(),
		stop:    stop,
	}
	if cfg.Metrics.Enabled {
		env.shutdown = metrics.StartServer(cfg.Metrics.Port, env.Metrics, env.Health.Handler())
	}
	env.Logger.Info("starting", "lang", cfg.Lang, "workers", cfg.Workers)
	return ctx, env, nil
}

// RequireFile registers path as an input file of this binary.
func (e *Env) RequireFile(name, path string) {
	e.Health.Register(name, health.FileCheck(path))
}

// RequireDir registers path as an input directory of this binary.
func (e *Env) RequireDir(name, path string) {
	e.Health.Register(name, health.DirCheck(path))
}

// RequireTables registers the id2title and redirect2title tables.
func (e *Env) RequireTables() {
	e.RequireFile("id2title", e.Config.Tables.ID2Title)
	e.RequireFile("redirect2title", e.Config.Tables.Redirect2Title)
}

// CheckInputs runs the registered input checks and fails when any input is
// missing.
func (e *Env) CheckInputs(ctx context.Context) error {
	report := e.Health.Run(ctx)
	if report.Status == health.StatusUp {
		return nil
	}
	return apperrors.Newf(apperrors.ErrInvalidInput, apperrors.ExitBadInput,
		"missing inputs: %s", strings.Join(report.Failed(), ", "))
}

// LoadTables loads the id2title and redirect2title tables and builds a
// normalizer over them.
func (e *Env) LoadTables() (*wikitable.PageTable, wikitable.RedirectTable, *normalize.Normalizer, error) {
	t := e.Config.Tables
	if t.ID2Title == "" || t.Redirect2Title == "" {
		return nil, nil, nil, apperrors.New(apperrors.ErrInvalidInput, apperrors.ExitUsage,
			"tables.id2title and tables.redirect2title must be set")
	}
	pages, err := wikitable.LoadPageTable(t.ID2Title, t.UseCache)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("loading id2title: %w", err)
	}
	redirects, err := wikitable.LoadRedirectTable(t.Redirect2Title, t.UseCache)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("loading redirect2title: %w", err)
	}
	e.Logger.Info("tables loaded", "pages", pages.Len(), "redirects", len(redirects))
	return pages, redirects, normalize.New(pages, redirects, e.Metrics), nil
}

// Close flushes metrics and stops the metrics server.
func (e *Env) Close() {
	defer e.stop()
	if path := e.Config.Metrics.TextfilePath; path != "" {
		if err := e.Metrics.WriteTextfile(path); err != nil {
			e.Logger.Error("failed to write metrics textfile", "path", path, "error", err)
		}
	}
	if e.shutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := e.shutdown(ctx); err != nil {
			e.Logger.Error("metrics server shutdown failed", "error", err)
		}
	}
	e.Logger.Info("finished", "duration", time.Since(e.started))
}

// Exit logs err, if any, and exits with its exit code.
func Exit(name string, err error) {
	if err == nil {
		os.Exit(apperrors.ExitOK)
	}
	slog.Error(name+" failed", "error", err)
	fmt.Fprintf(os.Stderr, "%s: %v\n", name, err)
	os.Exit(apperrors.ExitCode(err))
}
