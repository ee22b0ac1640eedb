package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/Adithya-Monish-Kumar-K/wikisurface/internal/app"
	"github.com/Adithya-Monish-Kumar-K/wikisurface/internal/processor"
	"github.com/Adithya-Monish-Kumar-K/wikisurface/internal/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/wikisurface/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/wikisurface/pkg/errors"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	input := flag.String("input", "", "directory of extracted article files")
	out := flag.String("out", "", "output path (stdout when empty)")
	mode := flag.String("mode", "sections", "sections: count section headers; pages: count pages")
	flag.Parse()

	app.Exit("sections", run(*configPath, *input, *out, *mode))
}

func run(configPath, input, out, mode string) error {
	if mode != "sections" && mode != "pages" {
		return apperrors.Newf(apperrors.ErrInvalidInput, apperrors.ExitUsage,
			"unknown mode %q (want sections or pages)", mode)
	}
	ctx, env, err := app.Start("sections", configPath, func(c *config.Config) {
		if input != "" {
			c.Extract.InputDir = input
		}
	})
	if err != nil {
		return err
	}
	defer env.Close()

	env.RequireDir("input", env.Config.Extract.InputDir)
	if err := env.CheckInputs(ctx); err != nil {
		return err
	}
	w := os.Stdout
	if out != "" {
		f, err := os.Create(out)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}

	runner := processor.NewRunner()
	if mode == "pages" {
		bp := processor.NewBasicPageProcessor(nil)
		runErr := runner.Run(ctx, env.Config.Extract.InputDir, bp)
		if _, err := fmt.Fprintf(w, "pages\t%d\n", bp.Pages()); err != nil {
			return err
		}
		return runErr
	}
	sp := processor.NewSectionProcessor(env.Config.Lang, tokenizer.Whitespace{}, w)
	return runner.Run(ctx, env.Config.Extract.InputDir, sp)
}
