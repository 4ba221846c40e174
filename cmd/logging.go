package cmd

import (
	"github.com/philcn/RaysRenderer/pkg/config"
	"github.com/philcn/RaysRenderer/pkg/log"
	"github.com/urfave/cli"
)

var logger = log.New("raysrenderer")

// setupLogging applies the configured level; -v and -vv take precedence.
func setupLogging(ctx *cli.Context, level string) {
	if level != "" {
		log.SetLevel(log.ParseLevel(level))
	}

	if ctx.GlobalBool("v") {
		log.SetLevel(log.Info)
	}

	if ctx.GlobalBool("vv") {
		log.SetLevel(log.Debug)
	}
}

// loadConfig merges command flags over the environment and sets up logging.
// Flags a command does not define read as zero values and leave the
// environment or defaults in place.
func loadConfig(ctx *cli.Context) (*config.Config, error) {
	cfg, err := config.LoadWithOverrides(config.LoadOptions{
		Host:       ctx.String("host"),
		Port:       ctx.String("port"),
		LogLevel:   ctx.String("log-level"),
		Width:      ctx.Int("width"),
		Height:     ctx.Int("height"),
		Frames:     ctx.Int("frames"),
		Workers:    ctx.Int("workers"),
		Iterations: ctx.Int("iterations"),
		Signals:    ctx.String("signals"),
	})
	if err != nil {
		return nil, err
	}

	setupLogging(ctx, cfg.Logging.Level)
	return cfg, nil
}
