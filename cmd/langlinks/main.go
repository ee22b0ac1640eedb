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
	out := flag.String("out", "", "langlinks output path")
	target := flag.String("target", "", "target language code")
	flag.Parse()

	app.Exit("langlinks", run(*configPath, func(c *config.Config) {
		if *prefix != "" {
			c.Dump.Prefix = *prefix
		}
		if *out != "" {
			c.Tables.LangLinks = *out
		}
		if *target != "" {
			c.Tables.TargetLang = *target
		}
	}))
}

func run(configPath string, override func(*config.Config)) error {
	ctx, env, err := app.Start("langlinks", configPath, override)
	if err != nil {
		return err
	}
	defer env.Close()

	cfg := env.Config
	if probability.Exists(cfg.Tables.LangLinks) {
		env.Logger.Info("langlinks already exists, skipping", "path", cfg.Tables.LangLinks)
		return nil
	}
	env.RequireFile("id2title", cfg.Tables.ID2Title)
	env.RequireFile("langlinks dump", cfg.Dump.LangLinksPath())
	if err := env.CheckInputs(ctx); err != nil {
		return err
	}
	pages, err := wikitable.LoadPageTable(cfg.Tables.ID2Title, cfg.Tables.UseCache)
	if err != nil {
		return err
	}
	scanner := sqldump.NewScanner(cfg.Dump.Encoding, env.Metrics)
	ll, stats, err := wikitable.BuildLangLinks(ctx, scanner, cfg.Dump.LangLinksPath(), pages, cfg.Tables.TargetLang)
	if err != nil {
		return err
	}
	if err := wikitable.WriteLangLinks(cfg.Tables.LangLinks, ll); err != nil {
		return err
	}
	env.Logger.Info("langlinks written",
		"path", cfg.Tables.LangLinks,
		"target_lang", cfg.Tables.TargetLang,
		"links", len(ll.All),
		"mapped", len(ll.Target),
		"missed", stats.Missed,
		"skipped", stats.Skipped,
	)
	return nil
}
