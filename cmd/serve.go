package cmd

import (
	"github.com/philcn/RaysRenderer/web/server"
	"github.com/urfave/cli"
)

// Serve starts the preview server.
func Serve(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	s := server.NewServer(cfg)
	defer s.Close()

	logger.Noticef("streaming %v at %d fps", cfg.EnabledSignals(), cfg.Server.FrameRate)
	return s.Start()
}
