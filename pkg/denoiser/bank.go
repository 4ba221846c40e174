// Package denoiser runs one SVGF pipeline per ray traced signal over a shared
// G-buffer and compute device.
package denoiser

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/philcn/RaysRenderer/pkg/compute"
	"github.com/philcn/RaysRenderer/pkg/log"
	"github.com/philcn/RaysRenderer/pkg/svgf"
	"github.com/philcn/RaysRenderer/pkg/texture"
)

var (
	ErrUnknownSignal = errors.New("denoiser: unknown signal")
	ErrMissingSignal = errors.New("denoiser: missing noisy input")
	ErrClosed        = errors.New("denoiser: bank closed")
)

// GBuffer is the geometry shared by every signal of a frame
type GBuffer struct {
	Motion      *texture.Texture // dx, dy in pixels to the previous frame
	LinearZ     *texture.Texture // linear depth, depth derivative
	NormalDepth *texture.Texture // codec.PackNormalDepth texels
}

// Options configures a Bank
type Options struct {
	Width  int
	Height int

	// Signals that start enabled (nil enables all)
	Enabled []Signal

	// Per-signal filter settings; missing signals use svgf.DefaultConfig
	Configs map[Signal]svgf.Config

	Device compute.Options
}

// DefaultOptions returns sensible default values
func DefaultOptions(width, height int) Options {
	return Options{
		Width:  width,
		Height: height,
		Device: compute.DefaultOptions(),
	}
}

// FrameStats collects the timings of one Bank.Execute
type FrameStats struct {
	Frame   uint64
	Signals map[Signal]svgf.Stats // Enabled signals only
	Wall    time.Duration
}

// Bank owns a pipeline per signal. Signals are filtered concurrently; each
// pipeline serializes its own calls.
type Bank struct {
	logger log.Logger
	device *compute.Device

	mu        sync.Mutex
	pipelines map[Signal]*svgf.Pipeline
	enabled   map[Signal]bool
	frames    uint64
	closed    bool
}

// New creates a bank with a pipeline for every signal
func New(opts Options) (*Bank, error) {
	b := &Bank{
		logger:    log.New("denoiser"),
		device:    compute.NewDevice(opts.Device),
		pipelines: make(map[Signal]*svgf.Pipeline, len(AllSignals)),
		enabled:   make(map[Signal]bool, len(AllSignals)),
	}

	enabled := opts.Enabled
	if enabled == nil {
		enabled = AllSignals
	}
	for _, s := range enabled {
		b.enabled[s] = true
	}

	for _, s := range AllSignals {
		cfg, ok := opts.Configs[s]
		if !ok {
			cfg = svgf.DefaultConfig()
		}

		p, err := svgf.New(opts.Width, opts.Height, cfg,
			svgf.WithDevice(b.device),
			svgf.WithName("svgf."+s.String()))
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("creating %s pipeline: %w", s, err)
		}
		b.pipelines[s] = p
	}

	b.logger.Noticef("Denoiser ready: %dx%d, %d workers, enabled %v",
		opts.Width, opts.Height, b.device.NumWorkers(), b.EnabledSignals())
	return b, nil
}

// Device returns the compute device shared by all pipelines
func (b *Bank) Device() *compute.Device {
	return b.device
}

// Pipeline returns the pipeline of a signal
func (b *Bank) Pipeline(s Signal) (*svgf.Pipeline, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	p, ok := b.pipelines[s]
	if !ok {
		return nil, fmt.Errorf("%w: %v", ErrUnknownSignal, s)
	}
	return p, nil
}

// SetEnabled toggles denoising of a signal. A disabled signal passes its
// noisy input through and keeps its history untouched.
func (b *Bank) SetEnabled(s Signal, enabled bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.pipelines[s]; !ok {
		return fmt.Errorf("%w: %v", ErrUnknownSignal, s)
	}
	b.enabled[s] = enabled
	b.logger.Infof("Denoising %s: %v", s, enabled)
	return nil
}

// Enabled reports whether a signal is denoised
func (b *Bank) Enabled(s Signal) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.enabled[s]
}

// EnabledSignals lists the enabled signals in display order
func (b *Bank) EnabledSignals() []Signal {
	b.mu.Lock()
	defer b.mu.Unlock()

	var out []Signal
	for _, s := range AllSignals {
		if b.enabled[s] {
			out = append(out, s)
		}
	}
	return out
}

// SetConfig updates the filter settings of one signal
func (b *Bank) SetConfig(s Signal, cfg svgf.Config) error {
	p, err := b.Pipeline(s)
	if err != nil {
		return err
	}
	p.SetConfig(cfg)
	return nil
}

// SetConfigAll applies the same filter settings to every signal
func (b *Bank) SetConfigAll(cfg svgf.Config) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, p := range b.pipelines {
		p.SetConfig(cfg)
	}
}

// Execute denoises every enabled signal of a frame. The result maps each
// signal present in noisy to its output: pipeline owned textures for enabled
// signals, the input itself for disabled ones.
func (b *Bank) Execute(gbuf GBuffer, noisy map[Signal]*texture.Texture) (map[Signal]*texture.Texture, FrameStats, error) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, FrameStats{}, ErrClosed
	}

	type job struct {
		signal   Signal
		pipeline *svgf.Pipeline
		input    *texture.Texture
	}
	var jobs []job
	outputs := make(map[Signal]*texture.Texture, len(noisy))
	for _, s := range AllSignals {
		input, ok := noisy[s]
		if !b.enabled[s] {
			if ok {
				outputs[s] = input
			}
			continue
		}
		if !ok || input == nil {
			b.mu.Unlock()
			return nil, FrameStats{}, fmt.Errorf("%w: %v", ErrMissingSignal, s)
		}
		jobs = append(jobs, job{signal: s, pipeline: b.pipelines[s], input: input})
	}
	b.frames++
	stats := FrameStats{Frame: b.frames, Signals: make(map[Signal]svgf.Stats, len(jobs))}
	b.mu.Unlock()

	start := time.Now()
	results := make([]*texture.Texture, len(jobs))
	errs := make([]error, len(jobs))

	var wg sync.WaitGroup
	for i, j := range jobs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = j.pipeline.Execute(j.input, gbuf.Motion, gbuf.LinearZ, gbuf.NormalDepth)
		}()
	}
	wg.Wait()

	for i, j := range jobs {
		if errs[i] != nil {
			return nil, FrameStats{}, fmt.Errorf("denoising %s: %w", j.signal, errs[i])
		}
		outputs[j.signal] = results[i]
		stats.Signals[j.signal] = j.pipeline.Stats()
	}
	stats.Wall = time.Since(start)

	b.logger.Debugf("Frame %d: %d signals in %v", stats.Frame, len(jobs), stats.Wall)
	return outputs, stats, nil
}

// Resize reallocates every pipeline, dropping all history
func (b *Bank) Resize(width, height int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrClosed
	}
	// Reject before touching any pipeline so they never end up at mixed
	// resolutions
	if err := svgf.ValidateResolution(width, height); err != nil {
		return fmt.Errorf("resizing bank: %w", err)
	}
	for _, s := range AllSignals {
		if err := b.pipelines[s].Resize(width, height); err != nil {
			return fmt.Errorf("resizing %s: %w", s, err)
		}
	}
	return nil
}

// Reset drops the history of every pipeline
func (b *Bank) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, p := range b.pipelines {
		p.Reset()
	}
}

// Close releases all pipelines and the device
func (b *Bank) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for _, p := range b.pipelines {
		p.Close()
	}
	b.device.Close()
}
