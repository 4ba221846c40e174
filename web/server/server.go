// Package server streams denoised procedural frames to a browser over
// server-sent events and WebSockets.
package server

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"net/http"
	"net/url"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/gorilla/websocket"
	"github.com/philcn/RaysRenderer/pkg/compute"
	"github.com/philcn/RaysRenderer/pkg/config"
	"github.com/philcn/RaysRenderer/pkg/denoiser"
	"github.com/philcn/RaysRenderer/pkg/log"
	"github.com/philcn/RaysRenderer/pkg/svgf"
)

const (
	webSocketReadBufferSize  = 4096
	webSocketWriteBufferSize = 64 * 1024
)

// Request limits
const (
	minSize, maxWidth, maxHeight = 16, 1920, 1080
	maxFrames                    = 100000
	maxNoise                     = 4
	maxPanSpeed                  = 1
)

// Server handles web requests for the denoiser preview
type Server struct {
	cfg      *config.Config
	logger   log.Logger
	device   *compute.Device // Renders inspection frames
	upgrader websocket.Upgrader
	sessions atomic.Uint64
}

// NewServer creates a new web server
func NewServer(cfg *config.Config) *Server {
	return &Server{
		cfg:    cfg,
		logger: log.New("server"),
		device: compute.NewDevice(compute.Options{
			Name:       "inspect",
			NumWorkers: cfg.Compute.Workers,
			TileSize:   cfg.Compute.TileSize,
		}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  webSocketReadBufferSize,
			WriteBufferSize: webSocketWriteBufferSize,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// StreamRequest represents a stream request from the client
type StreamRequest struct {
	Width      int
	Height     int
	Frames     int // 0 streams until the client leaves
	Signal     denoiser.Signal
	View       View
	Iterations int
	Noise      float64
	PanSpeed   float64
}

// Handler returns the HTTP routes of the server
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/config", s.handleConfig)
	mux.HandleFunc("/api/stream", s.handleStream)
	mux.HandleFunc("/api/ws", s.handleWebSocket)
	mux.HandleFunc("/api/inspect", s.handleInspect)
	return mux
}

// Start starts the web server
func (s *Server) Start() error {
	srv := &http.Server{
		Addr:         s.cfg.Address(),
		Handler:      s.Handler(),
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
	}
	s.logger.Noticef("Starting web server on http://%s", srv.Addr)
	return srv.ListenAndServe()
}

// Close releases the inspection device
func (s *Server) Close() {
	s.device.Close()
}

// handleHealth provides a simple health check endpoint
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// handleConfig returns the stream defaults and validation limits
func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	signals := make([]string, 0, len(denoiser.AllSignals))
	for _, sig := range denoiser.AllSignals {
		signals = append(signals, sig.String())
	}

	response := map[string]interface{}{
		"defaults": map[string]interface{}{
			"width":  s.cfg.Render.Width,
			"height": s.cfg.Render.Height,
			"frames": s.cfg.Render.Frames,
			"signal": s.defaultSignal().String(),
			"view":   ViewDenoised,
			"noise":  s.cfg.Render.NoiseAmount,
			"pan":    s.cfg.Render.PanSpeed,
			"filter": s.cfg.Filter,
		},
		"signals": signals,
		"views":   AllViews,
		"limits": map[string]interface{}{
			"width":      map[string]int{"min": minSize, "max": maxWidth},
			"height":     map[string]int{"min": minSize, "max": maxHeight},
			"frames":     map[string]int{"min": 0, "max": maxFrames},
			"iterations": map[string]int{"min": 0, "max": svgf.MaxAtrousIterations},
			"noise":      map[string]float64{"min": 0, "max": maxNoise},
			"pan":        map[string]float64{"min": -maxPanSpeed, "max": maxPanSpeed},
		},
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}

func (s *Server) defaultSignal() denoiser.Signal {
	return s.cfg.EnabledSignals()[0]
}

// parseStreamRequest parses request parameters
func (s *Server) parseStreamRequest(r *http.Request) (*StreamRequest, error) {
	query := r.URL.Query()
	req := &StreamRequest{Signal: s.defaultSignal(), View: ViewDenoised}

	if name := query.Get("signal"); name != "" {
		signal, err := denoiser.ParseSignal(name)
		if err != nil {
			return nil, err
		}
		req.Signal = signal
	}
	if name := query.Get("view"); name != "" {
		view, err := ParseView(name)
		if err != nil {
			return nil, err
		}
		req.View = view
	}

	// Parse and validate all parameters using helper functions
	var err error
	if req.Width, err = parseIntParam(query, "width", s.cfg.Render.Width, minSize, maxWidth); err != nil {
		return nil, err
	}
	if req.Height, err = parseIntParam(query, "height", s.cfg.Render.Height, minSize, maxHeight); err != nil {
		return nil, err
	}
	if req.Frames, err = parseIntParam(query, "frames", s.cfg.Render.Frames, 0, maxFrames); err != nil {
		return nil, err
	}
	if req.Iterations, err = parseIntParam(query, "iterations", s.cfg.Filter.AtrousIterations, 0, svgf.MaxAtrousIterations); err != nil {
		return nil, err
	}
	if req.Noise, err = parseFloatParam(query, "noise", float64(s.cfg.Render.NoiseAmount), 0, maxNoise); err != nil {
		return nil, err
	}
	if req.PanSpeed, err = parseFloatParam(query, "pan", float64(s.cfg.Render.PanSpeed), -maxPanSpeed, maxPanSpeed); err != nil {
		return nil, err
	}

	// Performance warning
	if req.Width*req.Height > 1280*720 {
		s.logger.Warningf("Stream warning: %dx%d frames may not keep up with %d fps",
			req.Width, req.Height, s.cfg.Server.FrameRate)
	}

	return req, nil
}

// parseIntParam parses an integer parameter from URL query with validation
func parseIntParam(values url.Values, key string, defaultValue, min, max int) (int, error) {
	if value := values.Get(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %s", key, value)
		}
		if parsed < min || parsed > max {
			return 0, fmt.Errorf("%s must be between %d and %d, got: %d", key, min, max, parsed)
		}
		return parsed, nil
	}
	return defaultValue, nil
}

// parseFloatParam parses a float parameter from URL query with validation
func parseFloatParam(values url.Values, key string, defaultValue, min, max float64) (float64, error) {
	if value := values.Get(key); value != "" {
		parsed, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %s", key, value)
		}
		if parsed < min || parsed > max {
			return 0, fmt.Errorf("%s must be between %g and %g, got: %g", key, min, max, parsed)
		}
		return parsed, nil
	}
	return defaultValue, nil
}

// frameInterval is the pause between streamed frames
func (s *Server) frameInterval() time.Duration {
	return time.Second / time.Duration(max(s.cfg.Server.FrameRate, 1))
}

// imageToBase64PNG converts an image to base64-encoded PNG
func imageToBase64PNG(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := imgio.PNGEncoder()(&buf, img); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
