package main

import (
	"flag"

	"github.com/Adithya-Monish-Kumar-K/wikisurface/internal/app"
	"github.com/Adithya-Monish-Kumar-K/wikisurface/internal/extract"
	"github.com/Adithya-Monish-Kumar-K/wikisurface/pkg/config"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	input := flag.String("input", "", "directory of extracted article files")
	output := flag.String("output", "", "directory for extracted documents")
	ignoreNull := flag.Bool("ignore-null", false, "drop spans whose target does not resolve")
	workers := flag.Int("workers", 0, "concurrent partitions (0 keeps the config value)")
	flag.Parse()

	app.Exit("extractlinks", run(*configPath, func(c *config.Config) {
		if *input != "" {
			c.Extract.InputDir = *input
		}
		if *output != "" {
			c.Extract.OutputDir = *output
		}
		if *ignoreNull {
			c.Extract.IgnoreNull = true
		}
		if *workers > 0 {
			c.Workers = *workers
		}
	}))
}

func run(configPath string, override func(*config.Config)) error {
	ctx, env, err := app.Start("extractlinks", configPath, override)
	if err != nil {
		return err
	}
	defer env.Close()

	env.RequireTables()
	env.RequireDir("input", env.Config.Extract.InputDir)
	if err := env.CheckInputs(ctx); err != nil {
		return err
	}
	_, _, normalizer, err := env.LoadTables()
	if err != nil {
		return err
	}
	defer normalizer.Report()

	res, err := extract.Run(ctx, env.Config.Extract, env.Config.Workers, normalizer, env.Metrics)
	env.Logger.Info("extraction finished", "files", res.Files, "failed", res.Failed)
	return err
}
