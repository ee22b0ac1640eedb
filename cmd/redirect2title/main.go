package main

import (
	"flag"

	"github.com/Adithya-Monish-Kumar-K/wikisurface/internal/app"
	"github.com/Adithya-Monish-Kumar-K/wikisurface/internal/probability"
	"github.com/Adithya-Monish-Kumar-K/wikisurface/internal/sqldump"
	"github.com/Adithya-Monish-Kumar-K/wikisurface/internal/wikitable"
	"github.com/Adithya-Monish-Kumar-K/wikisurface/pkg/config"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	prefix := flag.String("dump", "", "dump path prefix")
	out := flag.String("out", "", "redirect2title output path")
	flag.Parse()

	app.Exit("redirect2title", run(*configPath, func(c *config.Config) {
		if *prefix != "" {
			c.Dump.Prefix = *prefix
		}
		if *out != "" {
			c.Tables.Redirect2Title = *out
		}
	}))
}

func run(configPath string, override func(*config.Config)) error {
	ctx, env, err := app.Start("redirect2title", configPath, override)
	if err != nil {
		return err
	}
	defer env.Close()

	cfg := env.Config
	if probability.Exists(cfg.Tables.Redirect2Title) {
		env.Logger.Info("redirect2title already exists, skipping", "path", cfg.Tables.Redirect2Title)
		return nil
	}
	env.RequireFile("id2title", cfg.Tables.ID2Title)
	env.RequireFile("redirect dump", cfg.Dump.RedirectPath())
	if err := env.CheckInputs(ctx); err != nil {
		return err
	}
	pages, err := wikitable.LoadPageTable(cfg.Tables.ID2Title, cfg.Tables.UseCache)
	if err != nil {
		return err
	}
	scanner := sqldump.NewScanner(cfg.Dump.Encoding, env.Metrics)
	redirects, stats, err := wikitable.BuildRedirectTable(ctx, scanner, cfg.Dump.RedirectPath(), pages)
	if err != nil {
		return err
	}
	if err := wikitable.WriteRedirects(cfg.Tables.Redirect2Title, redirects); err != nil {
		return err
	}
	env.Logger.Info("redirect2title written",
		"path", cfg.Tables.Redirect2Title,
		"redirects", len(redirects),
		"missed", stats.Missed,
		"bad_rows", stats.Bad,
	)
	return nil
}
