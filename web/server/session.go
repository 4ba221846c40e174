package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"strings"
	"time"

	"github.com/philcn/RaysRenderer/pkg/compute"
	"github.com/philcn/RaysRenderer/pkg/denoiser"
	"github.com/philcn/RaysRenderer/pkg/imgstat"
	"github.com/philcn/RaysRenderer/pkg/loaders"
	"github.com/philcn/RaysRenderer/pkg/log"
	"github.com/philcn/RaysRenderer/pkg/svgf"
	"github.com/philcn/RaysRenderer/pkg/synth"
	"github.com/philcn/RaysRenderer/pkg/texture"
)

// Reference samples for the RMSE shown next to streamed frames
const streamReferenceSamples = 8

var ErrUnknownView = errors.New("unknown view")

// View selects which image of a frame is streamed
type View string

const (
	ViewDenoised  View = "denoised"
	ViewNoisy     View = "noisy"
	ViewReference View = "reference"
	ViewVariance  View = "variance"
	ViewHistory   View = "history"
)

var AllViews = []View{ViewDenoised, ViewNoisy, ViewReference, ViewVariance, ViewHistory}

// ParseView resolves a view name
func ParseView(name string) (View, error) {
	for _, v := range AllViews {
		if strings.EqualFold(name, string(v)) {
			return v, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownView, name)
}

// FrameUpdate represents a single denoised frame sent to the client
type FrameUpdate struct {
	Frame       int    `json:"frame"`
	TotalFrames int    `json:"totalFrames"`
	Signal      string `json:"signal"`
	View        View   `json:"view"`
	ImageData   string `json:"imageData"` // Base64 encoded PNG
	Stats       Stats  `json:"stats"`
	IsComplete  bool   `json:"isComplete"`
	ElapsedMs   int64  `json:"elapsedMs"`
}

// Stats represents denoising statistics of a frame
type Stats struct {
	ReprojectionMs float64 `json:"reprojectionMs"`
	VarianceMs     float64 `json:"varianceMs"`
	AtrousMs       float64 `json:"atrousMs"`
	AtrousPasses   int     `json:"atrousPasses"`
	FeedbackMs     float64 `json:"feedbackMs"`
	TotalMs        float64 `json:"totalMs"`
	MeanHistory    float64 `json:"meanHistory"`
	NoisyRMSE      float64 `json:"noisyRmse"`
	DenoisedRMSE   float64 `json:"denoisedRmse"`
}

// FilterUpdate carries the filter settings a client may change. Nil fields
// keep their current value.
type FilterUpdate struct {
	AtrousIterations *int     `json:"atrousIterations,omitempty"`
	FeedbackTap      *int     `json:"feedbackTap,omitempty"`
	ColorAlpha       *float32 `json:"colorAlpha,omitempty"`
	MomentsAlpha     *float32 `json:"momentsAlpha,omitempty"`
	PhiColor         *float32 `json:"phiColor,omitempty"`
	PhiNormal        *float32 `json:"phiNormal,omitempty"`
}

func (u FilterUpdate) apply(cfg svgf.Config) svgf.Config {
	if u.AtrousIterations != nil {
		cfg.AtrousIterations = *u.AtrousIterations
	}
	if u.FeedbackTap != nil {
		cfg.FeedbackTap = *u.FeedbackTap
	}
	if u.ColorAlpha != nil {
		cfg.ColorAlpha = *u.ColorAlpha
	}
	if u.MomentsAlpha != nil {
		cfg.MomentsAlpha = *u.MomentsAlpha
	}
	if u.PhiColor != nil {
		cfg.PhiColor = *u.PhiColor
	}
	if u.PhiNormal != nil {
		cfg.PhiNormal = *u.PhiNormal
	}
	return cfg.Clamp()
}

// ControlMessage is sent by WebSocket clients to steer a running stream
type ControlMessage struct {
	Type   string        `json:"type"` // "config", "signal", "view", "reset"
	Config *FilterUpdate `json:"config,omitempty"`
	Signal string        `json:"signal,omitempty"`
	View   string        `json:"view,omitempty"`
}

// session renders and denoises frames for one client. All methods run on
// the goroutine that serves the client.
type session struct {
	id     string
	logger log.Logger
	bank   *denoiser.Bank
	gen    *synth.Generator
	signal denoiser.Signal
	view   View
	frames int
	count  int
	start  time.Time
}

// newSession creates the denoiser bank and frame generator of a stream
func (s *Server) newSession(req *StreamRequest, id string, logger log.Logger) (*session, error) {
	filter := s.cfg.Filter
	filter.AtrousIterations = req.Iterations
	filter = filter.Clamp()

	opts := denoiser.DefaultOptions(req.Width, req.Height)
	opts.Enabled = []denoiser.Signal{req.Signal}
	opts.Configs = make(map[denoiser.Signal]svgf.Config, len(denoiser.AllSignals))
	for _, sig := range denoiser.AllSignals {
		opts.Configs[sig] = filter
	}
	opts.Device = compute.Options{
		Name:       id,
		NumWorkers: s.cfg.Compute.Workers,
		TileSize:   s.cfg.Compute.TileSize,
	}

	bank, err := denoiser.New(opts)
	if err != nil {
		return nil, err
	}

	gen, err := synth.NewGenerator(synth.Options{
		Width:            req.Width,
		Height:           req.Height,
		NoiseAmount:      float32(req.Noise),
		PanSpeed:         float32(req.PanSpeed),
		Seed:             s.cfg.Render.Seed,
		ReferenceSamples: streamReferenceSamples,
	}, bank.Device())
	if err != nil {
		bank.Close()
		return nil, err
	}

	logger.Noticef("Streaming %s (%s) at %dx%d", req.Signal, req.View, req.Width, req.Height)
	return &session{
		id:     id,
		logger: logger,
		bank:   bank,
		gen:    gen,
		signal: req.Signal,
		view:   req.View,
		frames: req.Frames,
		start:  time.Now(),
	}, nil
}

func (ss *session) close() {
	ss.bank.Close()
}

// done reports whether the requested number of frames was streamed
func (ss *session) done() bool {
	return ss.frames > 0 && ss.count >= ss.frames
}

// step renders, denoises and encodes the next frame
func (ss *session) step() (*FrameUpdate, error) {
	frame, err := ss.gen.Next()
	if err != nil {
		return nil, err
	}
	outputs, frameStats, err := ss.bank.Execute(frame.GBuffer, frame.Noisy)
	if err != nil {
		return nil, err
	}
	ss.count++

	p, err := ss.bank.Pipeline(ss.signal)
	if err != nil {
		return nil, err
	}

	img, err := ss.viewImage(p, frame, outputs[ss.signal])
	if err != nil {
		return nil, err
	}
	imageData, err := imageToBase64PNG(img)
	if err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	stats, err := ss.frameStats(p, frameStats.Signals[ss.signal], frame, outputs[ss.signal])
	if err != nil {
		return nil, err
	}

	return &FrameUpdate{
		Frame:       ss.count,
		TotalFrames: ss.frames,
		Signal:      ss.signal.String(),
		View:        ss.view,
		ImageData:   imageData,
		Stats:       stats,
		IsComplete:  ss.done(),
		ElapsedMs:   time.Since(ss.start).Milliseconds(),
	}, nil
}

func (ss *session) viewImage(p *svgf.Pipeline, frame *synth.Frame, output *texture.Texture) (image.Image, error) {
	switch ss.view {
	case ViewNoisy:
		return loaders.ToImage(frame.Noisy[ss.signal], 1), nil
	case ViewReference:
		return loaders.ToImage(frame.Reference[ss.signal], 1), nil
	case ViewVariance:
		return loaders.Heatmap(output, 3, 0)
	case ViewHistory:
		return loaders.Heatmap(p.HistoryLength(), 0, float32(p.Config().MaxHistoryLength))
	default:
		return loaders.ToImage(output, 1), nil
	}
}

func (ss *session) frameStats(p *svgf.Pipeline, st svgf.Stats, frame *synth.Frame, output *texture.Texture) (Stats, error) {
	history, err := imgstat.ChannelStats(p.HistoryLength(), 0)
	if err != nil {
		return Stats{}, err
	}
	noisyRMSE, err := imgstat.RMSE(frame.Noisy[ss.signal], frame.Reference[ss.signal])
	if err != nil {
		return Stats{}, err
	}
	denoisedRMSE, err := imgstat.RMSE(output, frame.Reference[ss.signal])
	if err != nil {
		return Stats{}, err
	}

	return Stats{
		ReprojectionMs: milliseconds(st.Reprojection),
		VarianceMs:     milliseconds(st.VarianceEstimation),
		AtrousMs:       milliseconds(st.AtrousTotal()),
		AtrousPasses:   len(st.Atrous),
		FeedbackMs:     milliseconds(st.Feedback),
		TotalMs:        milliseconds(st.Total),
		MeanHistory:    history.Mean,
		NoisyRMSE:      noisyRMSE,
		DenoisedRMSE:   denoisedRMSE,
	}, nil
}

// apply handles a client control message between frames
func (ss *session) apply(msg ControlMessage) error {
	switch msg.Type {
	case "config":
		if msg.Config == nil {
			return errors.New("config message without settings")
		}
		p, err := ss.bank.Pipeline(ss.signal)
		if err != nil {
			return err
		}
		cfg := msg.Config.apply(p.Config())
		ss.bank.SetConfigAll(cfg)
		data, _ := json.Marshal(cfg)
		ss.logger.Noticef("Filter updated: %s", data)

	case "signal":
		signal, err := denoiser.ParseSignal(msg.Signal)
		if err != nil {
			return err
		}
		if signal == ss.signal {
			return nil
		}
		if err := ss.bank.SetEnabled(ss.signal, false); err != nil {
			return err
		}
		if err := ss.bank.SetEnabled(signal, true); err != nil {
			return err
		}
		// History of a paused signal no longer matches the camera
		p, err := ss.bank.Pipeline(signal)
		if err != nil {
			return err
		}
		p.Reset()
		ss.signal = signal
		ss.logger.Noticef("Switched to %s", signal)

	case "view":
		view, err := ParseView(msg.View)
		if err != nil {
			return err
		}
		ss.view = view
		ss.logger.Noticef("Showing %s", view)

	case "reset":
		ss.bank.Reset()
		ss.logger.Noticef("History reset at frame %d", ss.count)

	default:
		return fmt.Errorf("unknown control message %q", msg.Type)
	}
	return nil
}

func milliseconds(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
