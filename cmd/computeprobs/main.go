package main

import (
	"flag"

	"github.com/Adithya-Monish-Kumar-K/wikisurface/internal/app"
	"github.com/Adithya-Monish-Kumar-K/wikisurface/internal/probability"
	"github.com/Adithya-Monish-Kumar-K/wikisurface/pkg/config"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	mode := flag.String("mode", "", "phrase or word")
	links := flag.String("links", "", "surface/target links file (.gz accepted)")
	docs := flag.String("docs", "", "directory of extracted documents")
	out := flag.String("out", "", "output path prefix")
	ascii := flag.Bool("ascii", false, "also register ASCII-folded surfaces")
	flag.Parse()

	app.Exit("computeprobs", run(*configPath, func(c *config.Config) {
		if *mode != "" {
			c.Aggregate.Mode = *mode
		}
		if *links != "" {
			c.Aggregate.LinksFile = *links
		}
		if *docs != "" {
			c.Aggregate.DocsDir = *docs
		}
		if *out != "" {
			c.Aggregate.OutPrefix = *out
		}
		if *ascii {
			c.Aggregate.AddASCII = true
		}
	}))
}

func run(configPath string, override func(*config.Config)) error {
	ctx, env, err := app.Start("computeprobs", configPath, override)
	if err != nil {
		return err
	}
	defer env.Close()

	env.RequireTables()
	agg := env.Config.Aggregate
	if agg.LinksFile != "" {
		env.RequireFile("links", agg.LinksFile)
	}
	if agg.DocsDir != "" {
		env.RequireDir("documents", agg.DocsDir)
	}
	if err := env.CheckInputs(ctx); err != nil {
		return err
	}
	pages, redirects, normalizer, err := env.LoadTables()
	if err != nil {
		return err
	}
	defer normalizer.Report()

	return probability.NewPipeline(env.Config, pages, redirects, normalizer, env.Metrics).Run(ctx)
}
