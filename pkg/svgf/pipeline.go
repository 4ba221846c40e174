// Package svgf implements spatiotemporal variance-guided filtering of noisy
// per-pixel signals: temporal reprojection, variance estimation and an
// edge-aware à-trous wavelet filter, run as data-parallel kernels on a
// compute.Device.
package svgf

import (
	"fmt"
	"sync"
	"time"

	"github.com/philcn/RaysRenderer/pkg/compute"
	"github.com/philcn/RaysRenderer/pkg/log"
	"github.com/philcn/RaysRenderer/pkg/texture"
)

// Pipeline denoises one signal. It keeps the temporal history of that signal
// between calls, so each signal needs its own Pipeline.
type Pipeline struct {
	name       string
	logger     log.Logger
	device     dispatcher
	ownsDevice bool

	// Guards everything below; one Execute at a time
	execMu sync.Mutex
	bufs   *buffers
	frames uint64
	stats  Stats
	closed bool

	cfgMu sync.RWMutex
	cfg   Config
}

// dispatcher runs the kernels of a pipeline, usually a *compute.Device
type dispatcher interface {
	Name() string
	NumWorkers() int
	Exec2D(name string, width, height int, kernel compute.Kernel) (compute.DispatchStats, error)
	Close()
}

// Option customizes a Pipeline
type Option func(*Pipeline)

// WithDevice runs the pipeline on a shared device. The pipeline does not
// close it.
func WithDevice(device *compute.Device) Option {
	return func(p *Pipeline) {
		if device != nil {
			p.device = device
		}
	}
}

// WithLogger overrides the pipeline logger
func WithLogger(logger log.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithName names the pipeline in logs, typically after the signal it filters
func WithName(name string) Option {
	return func(p *Pipeline) {
		p.name = name
	}
}

// New allocates a pipeline for width x height inputs. Without WithDevice the
// pipeline creates and owns a device.
func New(width, height int, cfg Config, opts ...Option) (*Pipeline, error) {
	p := &Pipeline{
		name: "svgf",
		cfg:  cfg.Clamp(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = log.New(p.name)
	}

	bufs, err := newBuffers(width, height)
	if err != nil {
		return nil, fmt.Errorf("creating %s pipeline: %w", p.name, err)
	}
	p.bufs = bufs

	if p.device == nil {
		p.device = compute.NewDevice(compute.DefaultOptions())
		p.ownsDevice = true
	}

	p.logger.Infof("Created %dx%d pipeline on %s (%d workers)", width, height, p.device.Name(), p.device.NumWorkers())
	return p, nil
}

// Name returns the pipeline name
func (p *Pipeline) Name() string {
	return p.name
}

// Size returns the current resolution
func (p *Pipeline) Size() (int, int) {
	p.execMu.Lock()
	defer p.execMu.Unlock()
	return p.bufs.width, p.bufs.height
}

// Config returns the active configuration (already clamped)
func (p *Pipeline) Config() Config {
	p.cfgMu.RLock()
	defer p.cfgMu.RUnlock()
	return p.cfg
}

// SetConfig replaces the configuration. Safe to call while Execute runs; the
// change applies from the next call on.
func (p *Pipeline) SetConfig(cfg Config) {
	clamped := cfg.Clamp()
	p.cfgMu.Lock()
	p.cfg = clamped
	p.cfgMu.Unlock()
	p.logger.Debugf("Config updated: %+v", clamped)
}

// Execute filters one frame. All inputs must match the pipeline resolution:
// noisy carries rgb, motion the per-pixel offset to the previous frame in
// pixels, linearZ the linear depth and optionally its derivative, and
// normalDepth the compact normal+depth texels built with
// codec.PackNormalDepth.
//
// The returned texture holds rgb and variance. It is owned by the pipeline
// and only valid until the next Execute, Resize, Reset or Close.
func (p *Pipeline) Execute(noisy, motion, linearZ, normalDepth *texture.Texture) (*texture.Texture, error) {
	p.execMu.Lock()
	defer p.execMu.Unlock()

	if p.closed {
		return nil, ErrClosed
	}
	if err := p.validate(noisy, motion, linearZ, normalDepth); err != nil {
		return nil, err
	}

	start := time.Now()
	b := p.bufs
	f := &frame{
		cfg:         p.Config(),
		noisy:       noisy,
		motion:      motion,
		linearZ:     linearZ,
		normalDepth: normalDepth,
		prev:        b.cur(),
		dst:         b.next(),
		bufs:        b,
	}

	stats := Stats{
		Frame:  p.frames + 1,
		Width:  b.width,
		Height: b.height,
		Atrous: make([]time.Duration, 0, f.cfg.AtrousIterations),
	}

	ds, err := p.device.Exec2D("reprojection", b.width, b.height, f.reprojectKernel)
	if err != nil {
		return nil, fmt.Errorf("%s: reprojection: %w", p.name, err)
	}
	stats.Reprojection = ds.Duration

	ds, err = p.device.Exec2D("variance-estimation", b.width, b.height, f.varianceKernel)
	if err != nil {
		return nil, fmt.Errorf("%s: variance estimation: %w", p.name, err)
	}
	stats.VarianceEstimation = ds.Duration

	if err := p.filter(f, &stats); err != nil {
		return nil, err
	}

	feedbackStart := time.Now()
	if _, err := p.device.Exec2D("cache-depth", b.width, b.height, f.cacheDepthPixel); err != nil {
		return nil, fmt.Errorf("%s: caching depth: %w", p.name, err)
	}
	stats.Feedback += time.Since(feedbackStart)

	b.commit()
	p.frames++
	stats.Total = time.Since(start)
	p.stats = stats

	p.logger.Debugf("Frame %d: reprojection %v, variance %v, atrous %v, total %v",
		stats.Frame, stats.Reprojection, stats.VarianceEstimation, stats.AtrousTotal(), stats.Total)

	return b.output, nil
}

// filter runs the à-trous passes from the ping buffer into the output buffer
// and stages the feedback tap.
func (p *Pipeline) filter(f *frame, stats *Stats) error {
	b := f.bufs
	iterations := f.cfg.AtrousIterations

	if iterations == 0 {
		start := time.Now()
		if err := b.output.CopyFrom(b.ping); err != nil {
			return fmt.Errorf("%s: pass-through: %w", p.name, err)
		}
		if err := b.tap.CopyFrom(b.ping); err != nil {
			return fmt.Errorf("%s: feedback: %w", p.name, err)
		}
		stats.Feedback += time.Since(start)
		return nil
	}

	src, scratch := b.ping, b.pong
	for i := 0; i < iterations; i++ {
		dst := scratch
		if i == iterations-1 {
			dst = b.output
		}

		step := 1 << i
		in := src
		ds, err := p.device.Exec2D(fmt.Sprintf("atrous-%d", i), b.width, b.height, func(x, y int) {
			dst.SetTexel(x, y, f.atrousPixel(in, step, x, y))
		})
		if err != nil {
			return fmt.Errorf("%s: atrous pass %d: %w", p.name, i, err)
		}
		stats.Atrous = append(stats.Atrous, ds.Duration)

		if i+1 == f.cfg.FeedbackTap {
			start := time.Now()
			if err := b.tap.CopyFrom(dst); err != nil {
				return fmt.Errorf("%s: feedback: %w", p.name, err)
			}
			stats.Feedback += time.Since(start)
		}

		src, scratch = dst, src
	}
	return nil
}

func (p *Pipeline) validate(noisy, motion, linearZ, normalDepth *texture.Texture) error {
	inputs := []struct {
		name        string
		tex         *texture.Texture
		minChannels int
	}{
		{"noisy", noisy, 3},
		{"motion", motion, 2},
		{"linear depth", linearZ, 1},
		{"normal-depth", normalDepth, 3},
	}

	for _, in := range inputs {
		if in.tex == nil {
			return fmt.Errorf("%w: %s", ErrMissingInput, in.name)
		}
		if in.tex.Width != p.bufs.width || in.tex.Height != p.bufs.height {
			return fmt.Errorf("%w: %s is %dx%d, pipeline is %dx%d", ErrResolutionMismatch,
				in.name, in.tex.Width, in.tex.Height, p.bufs.width, p.bufs.height)
		}
		if in.tex.Channels < in.minChannels {
			return fmt.Errorf("%w: %s has %d channels, need %d", ErrChannelMismatch,
				in.name, in.tex.Channels, in.minChannels)
		}
	}
	return nil
}

// Resize reallocates every buffer. All history is lost, so the next frame is
// treated as fully disoccluded. On error the previous buffers stay in place.
func (p *Pipeline) Resize(width, height int) error {
	p.execMu.Lock()
	defer p.execMu.Unlock()

	if p.closed {
		return ErrClosed
	}

	bufs, err := newBuffers(width, height)
	if err != nil {
		return fmt.Errorf("resizing %s pipeline: %w", p.name, err)
	}
	p.bufs = bufs
	p.stats = Stats{}

	p.logger.Noticef("Resized to %dx%d, history dropped", width, height)
	return nil
}

// Reset drops all history at the current resolution
func (p *Pipeline) Reset() {
	p.execMu.Lock()
	defer p.execMu.Unlock()

	p.bufs.reset()
	p.logger.Info("History reset")
}

// Stats returns the timings of the last Execute
func (p *Pipeline) Stats() Stats {
	p.execMu.Lock()
	defer p.execMu.Unlock()
	return p.stats.clone()
}

// HistoryLength returns the history length buffer of the last frame.
// The texture must not be modified.
func (p *Pipeline) HistoryLength() *texture.Texture {
	p.execMu.Lock()
	defer p.execMu.Unlock()
	return p.bufs.cur().history
}

// Moments returns the luminance moments of the last frame
func (p *Pipeline) Moments() *texture.Texture {
	p.execMu.Lock()
	defer p.execMu.Unlock()
	return p.bufs.cur().moments
}

// Reprojected returns the temporally accumulated signal and variance of the
// last frame, before spatial filtering
func (p *Pipeline) Reprojected() *texture.Texture {
	p.execMu.Lock()
	defer p.execMu.Unlock()
	return p.bufs.cur().signal
}

// LastFiltered returns the feedback tap that seeds the next frame's history
func (p *Pipeline) LastFiltered() *texture.Texture {
	p.execMu.Lock()
	defer p.execMu.Unlock()
	return p.bufs.lastFiltered
}

// Close releases the pipeline. The device is closed only if the pipeline
// created it. Calling Close more than once is a no-op.
func (p *Pipeline) Close() {
	p.execMu.Lock()
	defer p.execMu.Unlock()

	if p.closed {
		return
	}
	p.closed = true
	if p.ownsDevice {
		p.device.Close()
	}
	p.logger.Debug("Closed")
}
