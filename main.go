package main

import (
	"fmt"
	"os"

	"github.com/philcn/RaysRenderer/cmd"
	"github.com/urfave/cli"
)

func newApp() *cli.App {
	cli.VersionFlag = cli.BoolFlag{
		Name:  "version",
		Usage: "print only the version",
	}

	pipelineFlags := []cli.Flag{
		cli.IntFlag{
			Name:  "width",
			Usage: "frame width (default $SVGF_WIDTH or 320)",
		},
		cli.IntFlag{
			Name:  "height",
			Usage: "frame height (default $SVGF_HEIGHT or 180)",
		},
		cli.IntFlag{
			Name:  "frames, n",
			Usage: "number of frames to denoise (default $SVGF_FRAMES or 16)",
		},
		cli.IntFlag{
			Name:  "iterations, k",
			Usage: "number of a-trous iterations, 1-5 (default $SVGF_ATROUS_ITERATIONS or 4)",
		},
		cli.IntFlag{
			Name:  "workers",
			Usage: "compute worker count (default: logical cores)",
		},
		cli.StringFlag{
			Name:  "log-level",
			Usage: "debug, info, notice, warn or error (default $LOG_LEVEL or notice)",
		},
	}

	app := cli.NewApp()
	app.Name = "raysrenderer"
	app.Usage = "denoise ray traced signals with spatiotemporal variance-guided filtering"
	app.Version = "0.1.0"
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "v",
			Usage: "enable verbose logging",
		},
		cli.BoolFlag{
			Name:  "vv",
			Usage: "enable even more verbose logging",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:  "demo",
			Usage: "denoise a procedurally rendered sequence",
			Description: `
Render a ground plane and a sphere lit by a soft directional light, producing
noisy shadow, reflection and ambient occlusion signals plus their G-buffer.
Every frame is denoised; the last frame is written as PNGs together with
variance and history heatmaps, and per-stage timings are printed.`,
			Flags: append([]cli.Flag{
				cli.StringFlag{
					Name:  "signals, s",
					Usage: "comma separated signals to denoise: shadows, reflection, ao (default all)",
				},
				cli.Float64Flag{
					Name:  "pan",
					Usage: "camera translation per frame in world units",
				},
				cli.Float64Flag{
					Name:  "noise",
					Usage: "Monte-Carlo error scale, 0 renders the reference",
				},
				cli.IntFlag{
					Name:  "reference-spp",
					Value: 32,
					Usage: "samples per pixel of the reference images",
				},
				cli.Float64Flag{
					Name:  "variance-scale",
					Value: 0.05,
					Usage: "variance mapped to the hottest heatmap color (0 = auto)",
				},
				cli.StringFlag{
					Name:  "out, o",
					Value: "output/demo",
					Usage: "output directory",
				},
			}, pipelineFlags...),
			Action: cmd.Demo,
		},
		{
			Name:      "denoise",
			Usage:     "denoise a still image",
			ArgsUsage: "noisy.png",
			Description: `
Feed the same noisy image through the filter for a few static frames, never
reaching the history length at which temporal variance is trusted.
Depth and normals default to a flat plane facing the camera; supply a depth
image (red channel mapped onto [near, far]) and a normal image (rgb = n*0.5+0.5)
to let the edge-stopping functions preserve geometry.`,
			Flags: append([]cli.Flag{
				cli.StringFlag{
					Name:  "depth",
					Usage: "depth image",
				},
				cli.StringFlag{
					Name:  "normals",
					Usage: "normal image",
				},
				cli.Float64Flag{
					Name:  "near",
					Value: 1,
					Usage: "depth mapped to black",
				},
				cli.Float64Flag{
					Name:  "far",
					Value: 100,
					Usage: "depth mapped to white",
				},
				cli.StringFlag{
					Name:  "out, o",
					Value: "denoised.png",
					Usage: "image filename for the denoised result",
				},
			}, pipelineFlags...),
			Action: cmd.Denoise,
		},
		{
			Name:   "list-devices",
			Usage:  "list available compute devices",
			Action: cmd.ListDevices,
		},
		{
			Name:  "serve",
			Usage: "start the preview server",
			Flags: append([]cli.Flag{
				cli.StringFlag{
					Name:  "host",
					Usage: "interface to bind (default $SERVER_HOST or 0.0.0.0)",
				},
				cli.StringFlag{
					Name:  "port, p",
					Usage: "port to serve on (default $SERVER_PORT or 8080)",
				},
				cli.StringFlag{
					Name:  "signals, s",
					Usage: "signals offered by default: shadows, reflection, ao (default all)",
				},
			}, pipelineFlags...),
			Action: cmd.Serve,
		},
	}
	return app
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
