package server

import (
	"bufio"
	"bytes"
	"encoding/base64"
	"encoding/json"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/chewxy/math32"
	"github.com/gorilla/websocket"
	"github.com/philcn/RaysRenderer/pkg/config"
	"github.com/philcn/RaysRenderer/pkg/denoiser"
	"github.com/philcn/RaysRenderer/pkg/svgf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	cfg, err := config.Load()
	require.NoError(t, err)
	cfg.Server.FrameRate = 1000
	cfg.Render.Width = 32
	cfg.Render.Height = 24
	cfg.Render.Frames = 3
	cfg.Render.Signals = ""
	cfg.Compute.Workers = 2

	s := NewServer(cfg)
	t.Cleanup(s.Close)
	return s
}

type sseEvent struct {
	name string
	data string
}

func readSSE(t *testing.T, resp *http.Response) []sseEvent {
	t.Helper()

	var events []sseEvent
	var current sseEvent
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			current.name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			current.data = strings.TrimPrefix(line, "data: ")
		case line == "":
			events = append(events, current)
			current = sseEvent{}
		}
	}
	require.NoError(t, scanner.Err())
	return events
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestConfigEndpoint(t *testing.T) {
	s := newTestServer(t)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/config", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Defaults struct {
			Width  int    `json:"width"`
			Signal string `json:"signal"`
			View   string `json:"view"`
		} `json:"defaults"`
		Signals []string `json:"signals"`
		Views   []string `json:"views"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	assert.Equal(t, 32, body.Defaults.Width)
	assert.Equal(t, "shadows", body.Defaults.Signal)
	assert.Equal(t, "denoised", body.Defaults.View)
	assert.Equal(t, []string{"shadows", "reflection", "ao"}, body.Signals)
	assert.Len(t, body.Views, len(AllViews))
}

func TestParseStreamRequest(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name    string
		query   string
		wantErr bool
		check   func(*testing.T, *StreamRequest)
	}{
		{
			name:  "defaults",
			query: "",
			check: func(t *testing.T, req *StreamRequest) {
				assert.Equal(t, 32, req.Width)
				assert.Equal(t, 24, req.Height)
				assert.Equal(t, 3, req.Frames)
				assert.Equal(t, denoiser.Shadows, req.Signal)
				assert.Equal(t, ViewDenoised, req.View)
				assert.Equal(t, svgf.DefaultConfig().AtrousIterations, req.Iterations)
			},
		},
		{
			name:  "explicit values",
			query: "width=64&height=48&frames=0&signal=ao&view=variance&iterations=0&noise=0.5&pan=-0.1",
			check: func(t *testing.T, req *StreamRequest) {
				assert.Equal(t, 64, req.Width)
				assert.Equal(t, 48, req.Height)
				assert.Equal(t, 0, req.Frames)
				assert.Equal(t, denoiser.AmbientOcclusion, req.Signal)
				assert.Equal(t, ViewVariance, req.View)
				assert.Equal(t, 0, req.Iterations)
				assert.Equal(t, 0.5, req.Noise)
				assert.Equal(t, -0.1, req.PanSpeed)
			},
		},
		{name: "width too small", query: "width=8", wantErr: true},
		{name: "height not a number", query: "height=tall", wantErr: true},
		{name: "too many iterations", query: "iterations=6", wantErr: true},
		{name: "negative frames", query: "frames=-1", wantErr: true},
		{name: "unknown signal", query: "signal=caustics", wantErr: true},
		{name: "unknown view", query: "view=depth", wantErr: true},
		{name: "pan too fast", query: "pan=2", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := s.parseStreamRequest(httptest.NewRequest(http.MethodGet, "/api/stream?"+tt.query, nil))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.check(t, req)
		})
	}
}

func TestStreamSSE(t *testing.T) {
	ts := httptest.NewServer(newTestServer(t).Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/stream?frames=3&signal=reflection")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	var frames []FrameUpdate
	events := readSSE(t, resp)
	for _, ev := range events {
		if ev.name == "frame" {
			var update FrameUpdate
			require.NoError(t, json.Unmarshal([]byte(ev.data), &update))
			frames = append(frames, update)
		}
	}

	require.Len(t, frames, 3)
	require.NotEmpty(t, events)
	assert.Equal(t, "complete", events[len(events)-1].name)

	for i, update := range frames {
		assert.Equal(t, i+1, update.Frame)
		assert.Equal(t, 3, update.TotalFrames)
		assert.Equal(t, "reflection", update.Signal)
		assert.Equal(t, svgf.DefaultConfig().AtrousIterations, update.Stats.AtrousPasses)
		assert.GreaterOrEqual(t, update.Stats.MeanHistory, 1.0)
		assert.Equal(t, i == 2, update.IsComplete)
	}

	// History grows by one per static frame
	assert.InDelta(t, 3.0, frames[2].Stats.MeanHistory, 1e-9)

	raw, err := base64.StdEncoding.DecodeString(frames[0].ImageData)
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, 32, img.Bounds().Dx())
	assert.Equal(t, 24, img.Bounds().Dy())
}

func TestStreamSSEInvalidRequest(t *testing.T) {
	ts := httptest.NewServer(newTestServer(t).Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/stream?width=9999")
	require.NoError(t, err)
	defer resp.Body.Close()

	events := readSSE(t, resp)
	require.Len(t, events, 1)
	assert.Equal(t, "error", events[0].name)
	assert.Contains(t, events[0].data, "width must be between")
}

func dialStream(t *testing.T, ts *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/ws?" + query
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(30*time.Second)))
	return conn
}

func TestWebSocketStream(t *testing.T) {
	ts := httptest.NewServer(newTestServer(t).Handler())
	defer ts.Close()

	conn := dialStream(t, ts, "frames=4&view=history")

	var frames []FrameUpdate
	var consoles []ConsoleMessage
	for {
		var msg Message
		require.NoError(t, conn.ReadJSON(&msg))
		if msg.Type == "complete" {
			break
		}
		switch msg.Type {
		case "frame":
			require.NotNil(t, msg.Frame)
			frames = append(frames, *msg.Frame)
		case "console":
			require.NotNil(t, msg.Console)
			consoles = append(consoles, *msg.Console)
		default:
			require.Failf(t, "unexpected message", "%+v", msg)
		}
	}

	require.Len(t, frames, 4)
	assert.Equal(t, ViewHistory, frames[3].View)
	assert.True(t, frames[3].IsComplete)
	require.NotEmpty(t, consoles)
	assert.Contains(t, consoles[0].Message, "Streaming shadows")

	// Server closes the connection after completion
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
}

func TestWebSocketControl(t *testing.T) {
	ts := httptest.NewServer(newTestServer(t).Handler())
	defer ts.Close()

	conn := dialStream(t, ts, "frames=0")

	iterations := 1
	require.NoError(t, conn.WriteJSON(ControlMessage{
		Type:   "config",
		Config: &FilterUpdate{AtrousIterations: &iterations},
	}))
	require.NoError(t, conn.WriteJSON(ControlMessage{Type: "signal", Signal: "ao"}))

	var sawConfig, sawSignal, sawUpdate bool
	for !(sawConfig && sawSignal && sawUpdate) {
		var msg Message
		require.NoError(t, conn.ReadJSON(&msg))
		switch msg.Type {
		case "console":
			sawConfig = sawConfig || strings.Contains(msg.Console.Message, "Filter updated")
			sawSignal = sawSignal || strings.Contains(msg.Console.Message, "Switched to ao")
		case "frame":
			if msg.Frame.Signal == "ao" && msg.Frame.Stats.AtrousPasses == 1 {
				sawUpdate = true
			}
		case "error", "complete":
			require.Failf(t, "unexpected message", "%+v", msg)
		}
	}
}

func TestWebSocketInvalidRequest(t *testing.T) {
	ts := httptest.NewServer(newTestServer(t).Handler())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/ws?signal=caustics"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestFilterUpdateApply(t *testing.T) {
	phi := float32(2)
	tap := 9

	cfg := FilterUpdate{PhiColor: &phi, FeedbackTap: &tap}.apply(svgf.DefaultConfig())

	assert.Equal(t, phi, cfg.PhiColor)
	assert.Equal(t, cfg.AtrousIterations, cfg.FeedbackTap, "tap clamps to the iteration count")
	assert.Equal(t, svgf.DefaultConfig().ColorAlpha, cfg.ColorAlpha)
}

func TestInspect(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name   string
		query  string
		status int
	}{
		{"ground pixel", "x=16&y=23", http.StatusOK},
		{"missing x", "y=3", http.StatusBadRequest},
		{"out of bounds", "x=32&y=0", http.StatusBadRequest},
		{"bad frame", "x=1&y=1&frame=-2", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/inspect?"+tt.query, nil))
			require.Equal(t, tt.status, rec.Code, rec.Body.String())
			if tt.status != http.StatusOK {
				return
			}

			var resp InspectResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			n := resp.Normal
			assert.InDelta(t, 1, math32.Sqrt(n[0]*n[0]+n[1]*n[1]+n[2]*n[2]), 1e-2)
			assert.Greater(t, resp.LinearZ, float32(0))
			assert.Len(t, resp.Signals, len(denoiser.AllSignals))
			assert.InDelta(t, 0, resp.Motion[0], 1e-3, "static camera")
			assert.InDelta(t, 0, resp.Motion[1], 1e-3, "static camera")
		})
	}
}
