package cmd

import (
	"bytes"
	"errors"

	"github.com/philcn/RaysRenderer/pkg/compute"
	"github.com/philcn/RaysRenderer/pkg/imgstat"
	"github.com/philcn/RaysRenderer/pkg/loaders"
	"github.com/philcn/RaysRenderer/pkg/svgf"
	"github.com/philcn/RaysRenderer/pkg/texture"
	"github.com/urfave/cli"
)

// Denoise filters a still image. The same noisy input is fed for a few static
// frames, see stillFrames.
func Denoise(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	if ctx.NArg() != 1 {
		return errors.New("missing input image argument")
	}

	noisy, err := loaders.LoadImage(ctx.Args().First())
	if err != nil {
		return err
	}
	w, h := noisy.Width, noisy.Height

	depth, err := loadDepth(ctx.String("depth"), w, h, float32(ctx.Float64("near")), float32(ctx.Float64("far")))
	if err != nil {
		return err
	}

	var normalImage *texture.Texture
	if path := ctx.String("normals"); path != "" {
		if normalImage, err = loaders.LoadImage(path); err != nil {
			return err
		}
	}
	normals, err := loaders.NormalsFromImage(normalImage, w, h)
	if err != nil {
		return err
	}

	gbuf, err := loaders.BuildGBuffer(depth, normals)
	if err != nil {
		return err
	}

	device := compute.NewDevice(compute.Options{
		Name:       "cpu",
		NumWorkers: cfg.Compute.Workers,
		TileSize:   cfg.Compute.TileSize,
	})
	defer device.Close()

	pipeline, err := svgf.New(w, h, cfg.Filter, svgf.WithDevice(device))
	if err != nil {
		return err
	}
	defer pipeline.Close()

	frames := stillFrames(cfg.Render.Frames, pipeline.Config())
	if frames < cfg.Render.Frames {
		logger.Infof("still image: running %d of %d frames", frames, cfg.Render.Frames)
	}

	var out *texture.Texture
	for i := 0; i < frames; i++ {
		if out, err = pipeline.Execute(noisy, gbuf.Motion, gbuf.LinearZ, gbuf.NormalDepth); err != nil {
			return err
		}
	}

	if err := loaders.SavePNG(ctx.String("out"), out); err != nil {
		return err
	}

	var buf bytes.Buffer
	writePipelineTable(&buf, pipeline.Name(), pipeline.Stats())
	logger.Noticef("last frame statistics\n%s", buf.String())

	before, after := imgstat.LuminanceStats(noisy), imgstat.LuminanceStats(out)
	logger.Noticef("luminance variance %.5f -> %.5f after %d frames", before.Variance, after.Variance, frames)
	logger.Noticef("denoised image written to %s", ctx.String("out"))
	return nil
}

// stillFrames caps the frame count for a repeated input below the temporal
// confidence threshold. Identical frames drive the temporal variance to zero
// once history is trusted, which switches the spatial filter off.
func stillFrames(requested int, cfg svgf.Config) int {
	return max(1, min(requested, cfg.TemporalConfidenceThreshold-1))
}

func loadDepth(path string, width, height int, near, far float32) (*texture.Texture, error) {
	if path == "" {
		return loaders.FlatDepth(width, height, near)
	}

	img, err := loaders.LoadImage(path)
	if err != nil {
		return nil, err
	}
	if img.Width != width || img.Height != height {
		return nil, errors.New("depth image size does not match the input image")
	}
	return loaders.DepthFromImage(img, near, far)
}
