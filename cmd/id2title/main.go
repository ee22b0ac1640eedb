package main

import (
	"context"
	"flag"

	"github.com/Adithya-Monish-Kumar-K/wikisurface/internal/app"
	"github.com/Adithya-Monish-Kumar-K/wikisurface/internal/probability"
	"github.com/Adithya-Monish-Kumar-K/wikisurface/internal/sqldump"
	"github.com/Adithya-Monish-Kumar-K/wikisurface/internal/wikitable"
	"github.com/Adithya-Monish-Kumar-K/wikisurface/pkg/config"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	prefix := flag.String("dump", "", "dump path prefix, e.g. dumps/enwiki-20181020")
	out := flag.String("out", "", "id2title output path")
	flag.Parse()

	app.Exit("id2title", run(*configPath, func(c *config.Config) {
		if *prefix != "" {
			c.Dump.Prefix = *prefix
		}
		if *out != "" {
			c.Tables.ID2Title = *out
		}
	}))
}

func run(configPath string, override func(*config.Config)) error {
	ctx, env, err := app.Start("id2title", configPath, override)
	if err != nil {
		return err
	}
	defer env.Close()
	return build(ctx, env)
}

func build(ctx context.Context, env *app.Env) error {
	cfg := env.Config
	if probability.Exists(cfg.Tables.ID2Title) {
		env.Logger.Info("id2title already exists, skipping", "path", cfg.Tables.ID2Title)
		return nil
	}
	env.RequireFile("page dump", cfg.Dump.PagePath())
	if err := env.CheckInputs(ctx); err != nil {
		return err
	}
	scanner := sqldump.NewScanner(cfg.Dump.Encoding, env.Metrics)
	pages, stats, err := wikitable.BuildPageTable(ctx, scanner, cfg.Dump.PagePath())
	if err != nil {
		return err
	}
	if err := wikitable.WriteID2Title(cfg.Tables.ID2Title, pages); err != nil {
		return err
	}
	env.Logger.Info("id2title written",
		"path", cfg.Tables.ID2Title,
		"pages", pages.Len(),
		"rows", stats.Rows,
		"bad_rows", stats.Bad,
	)
	return nil
}
