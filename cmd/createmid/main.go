package main

import (
	"flag"

	"github.com/Adithya-Monish-Kumar-K/wikisurface/internal/app"
	"github.com/Adithya-Monish-Kumar-K/wikisurface/internal/mid"
	"github.com/Adithya-Monish-Kumar-K/wikisurface/pkg/config"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	input := flag.String("input", "", "directory of extracted documents")
	output := flag.String("output", "", "directory for MID files")
	window := flag.Int("window", -1, "context characters on each side of a mention")
	workers := flag.Int("workers", 0, "concurrent partitions (0 keeps the config value)")
	flag.Parse()

	app.Exit("createmid", run(*configPath, func(c *config.Config) {
		if *input != "" {
			c.MID.InputDir = *input
		}
		if *output != "" {
			c.MID.OutputDir = *output
		}
		if *window >= 0 {
			c.MID.Window = *window
		}
		if *workers > 0 {
			c.Workers = *workers
		}
	}))
}

func run(configPath string, override func(*config.Config)) error {
	ctx, env, err := app.Start("createmid", configPath, override)
	if err != nil {
		return err
	}
	defer env.Close()

	env.RequireTables()
	env.RequireDir("documents", env.Config.MID.InputDir)
	if err := env.CheckInputs(ctx); err != nil {
		return err
	}
	_, _, normalizer, err := env.LoadTables()
	if err != nil {
		return err
	}
	defer normalizer.Report()

	_, err = mid.Run(ctx, env.Config.MID, env.Config.Lang, env.Config.Workers, normalizer, env.Metrics)
	return err
}
