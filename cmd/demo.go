package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/philcn/RaysRenderer/pkg/compute"
	"github.com/philcn/RaysRenderer/pkg/config"
	"github.com/philcn/RaysRenderer/pkg/denoiser"
	"github.com/philcn/RaysRenderer/pkg/loaders"
	"github.com/philcn/RaysRenderer/pkg/svgf"
	"github.com/philcn/RaysRenderer/pkg/synth"
	"github.com/philcn/RaysRenderer/pkg/texture"
	"github.com/urfave/cli"
)

// Demo renders a sequence of procedural frames, denoises every signal and
// writes the last frame's images, debug heatmaps and statistics.
func Demo(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	if ctx.IsSet("pan") {
		cfg.Render.PanSpeed = float32(ctx.Float64("pan"))
	}
	if ctx.IsSet("noise") {
		cfg.Render.NoiseAmount = float32(ctx.Float64("noise"))
	}

	outDir := ctx.String("out")
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return fmt.Errorf("error creating output directory: %w", err)
	}

	bank, err := newBank(cfg)
	if err != nil {
		return err
	}
	defer bank.Close()

	gen, err := synth.NewGenerator(synth.Options{
		Width:            cfg.Render.Width,
		Height:           cfg.Render.Height,
		NoiseAmount:      cfg.Render.NoiseAmount,
		PanSpeed:         cfg.Render.PanSpeed,
		Seed:             cfg.Render.Seed,
		ReferenceSamples: ctx.Int("reference-spp"),
	}, bank.Device())
	if err != nil {
		return err
	}

	var (
		frame   *synth.Frame
		outputs map[denoiser.Signal]*texture.Texture
		stats   denoiser.FrameStats
	)
	for i := 0; i < cfg.Render.Frames; i++ {
		if frame, err = gen.Next(); err != nil {
			return err
		}
		if outputs, stats, err = bank.Execute(frame.GBuffer, frame.Noisy); err != nil {
			return err
		}
		logger.Infof("frame %d denoised in %v", i, stats.Wall)
	}

	if err := writeDemoImages(outDir, bank, frame, outputs, float32(ctx.Float64("variance-scale"))); err != nil {
		return err
	}

	displayFrameStats(stats)
	if err := displayQuality(frame, outputs); err != nil {
		return err
	}
	logger.Noticef("images written to %s", outDir)
	return nil
}

func newBank(cfg *config.Config) (*denoiser.Bank, error) {
	opts := denoiser.DefaultOptions(cfg.Render.Width, cfg.Render.Height)
	opts.Enabled = cfg.EnabledSignals()
	opts.Configs = make(map[denoiser.Signal]svgf.Config, len(denoiser.AllSignals))
	for _, s := range denoiser.AllSignals {
		opts.Configs[s] = cfg.Filter
	}
	opts.Device = compute.Options{
		Name:       "cpu",
		NumWorkers: cfg.Compute.Workers,
		TileSize:   cfg.Compute.TileSize,
	}
	return denoiser.New(opts)
}

func writeDemoImages(outDir string, bank *denoiser.Bank, frame *synth.Frame, outputs map[denoiser.Signal]*texture.Texture, varianceScale float32) error {
	for _, s := range bank.EnabledSignals() {
		name := s.String()
		if err := loaders.SavePNG(filepath.Join(outDir, name+"_noisy.png"), frame.Noisy[s]); err != nil {
			return err
		}
		if err := loaders.SavePNG(filepath.Join(outDir, name+"_denoised.png"), outputs[s]); err != nil {
			return err
		}
		if err := loaders.SavePNG(filepath.Join(outDir, name+"_reference.png"), frame.Reference[s]); err != nil {
			return err
		}

		// Variance rides in the fourth channel of the filtered output
		if err := loaders.SaveHeatmap(filepath.Join(outDir, name+"_variance.png"), outputs[s], 3, varianceScale); err != nil {
			return err
		}

		p, err := bank.Pipeline(s)
		if err != nil {
			return err
		}
		maxHistory := float32(p.Config().MaxHistoryLength)
		if err := loaders.SaveHeatmap(filepath.Join(outDir, name+"_history.png"), p.HistoryLength(), 0, maxHistory); err != nil {
			return err
		}
	}
	return nil
}
