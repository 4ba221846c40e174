package main

import (
	"flag"
	"os"

	"github.com/philcn/RaysRenderer/pkg/config"
	"github.com/philcn/RaysRenderer/pkg/log"
	"github.com/philcn/RaysRenderer/web/server"
)

func main() {
	logger := log.New("web")

	// Parse command line flags
	port := flag.String("port", "", "Port to serve on (overrides SERVER_PORT)")
	host := flag.String("host", "", "Interface to bind (overrides SERVER_HOST)")
	flag.Parse()

	cfg, err := config.LoadWithOverrides(config.LoadOptions{Host: *host, Port: *port})
	if err != nil {
		logger.Errorf("Error loading configuration: %v", err)
		os.Exit(1)
	}
	log.SetLevel(log.ParseLevel(cfg.Logging.Level))

	// Create and start web server
	webServer := server.NewServer(cfg)
	defer webServer.Close()

	logger.Notice("SVGF Denoiser Preview Server")
	logger.Noticef("Visit http://localhost:%s/api/stream to start streaming", cfg.Server.Port)

	if err := webServer.Start(); err != nil {
		logger.Errorf("Error starting server: %v", err)
		os.Exit(1)
	}
}
