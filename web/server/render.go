package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/philcn/RaysRenderer/pkg/log"
)

// SSEEvent represents a unified SSE event for thread-safe writing
type SSEEvent struct {
	Type string `json:"type"` // "console", "frame", "error", "complete"
	Data string `json:"data"` // JSON-encoded data
}

// handleStream streams denoised frames via SSE
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	// Set SSE headers
	s.setSSEHeaders(w)

	ctx := r.Context()

	// Create unified SSE event channel for thread-safe writing
	sseEventChan := make(chan SSEEvent, 16)

	// Start single SSE writer goroutine; the handler waits for it so nothing
	// touches w after return
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		s.writeSSEEvents(ctx, w, sseEventChan)
	}()
	defer func() {
		close(sseEventChan)
		<-writerDone
	}()

	// Parse and validate request
	req, err := s.parseStreamRequest(r)
	if err != nil {
		s.handleError(ctx, sseEventChan, fmt.Sprintf("Invalid request: %v", err))
		return
	}

	consoleChan, id, webLogger := s.setupConsoleLogging()
	ss, err := s.newSession(req, id, webLogger)
	if err != nil {
		s.handleError(ctx, sseEventChan, fmt.Sprintf("Stream setup failed: %v", err))
		return
	}
	defer ss.close()

	s.streamFrames(ctx, ss, consoleChan, nil, func(update *FrameUpdate) bool {
		data, err := json.Marshal(update)
		if err != nil {
			s.logger.Errorf("Error marshaling frame: %v", err)
			return false
		}
		return s.sendEvent(ctx, sseEventChan, SSEEvent{Type: "frame", Data: string(data)})
	}, func(msg ConsoleMessage) {
		data, err := json.Marshal(msg)
		if err != nil {
			return
		}
		s.sendEvent(ctx, sseEventChan, SSEEvent{Type: "console", Data: string(data)})
	}, func(err error) {
		s.handleError(ctx, sseEventChan, fmt.Sprintf("Denoising failed: %v", err))
	})

	if ss.done() {
		s.sendEvent(ctx, sseEventChan, SSEEvent{Type: "complete", Data: "Stream completed"})
	}
}

func (s *Server) setSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
}

// setupConsoleLogging creates console channel and web logger for a stream
func (s *Server) setupConsoleLogging() (chan ConsoleMessage, string, log.Logger) {
	consoleChan := make(chan ConsoleMessage, 50)
	id := fmt.Sprintf("stream-%d", s.sessions.Add(1))
	webLogger := NewWebLogger(id, s.logger, consoleChan)
	return consoleChan, id, webLogger
}

// streamFrames paces frames at the configured rate until the session is
// done, the client leaves or a frame fails. Console messages are relayed
// between frames. Controls, if any, are applied before the next frame.
func (s *Server) streamFrames(ctx context.Context, ss *session, consoleChan <-chan ConsoleMessage,
	controlChan <-chan ControlMessage, sendFrame func(*FrameUpdate) bool, sendConsole func(ConsoleMessage),
	sendError func(error)) {

	ticker := time.NewTicker(s.frameInterval())
	defer ticker.Stop()

	for !ss.done() {
		select {
		case <-ctx.Done():
			// Client disconnected
			return

		case msg := <-consoleChan:
			sendConsole(msg)

		case msg, ok := <-controlChan:
			if !ok {
				controlChan = nil
				continue
			}
			if err := ss.apply(msg); err != nil {
				ss.logger.Warningf("Ignoring control message: %v", err)
			}

		case <-ticker.C:
			update, err := ss.step()
			if err != nil {
				sendError(err)
				return
			}
			if !sendFrame(update) {
				return
			}
		}
	}

	// Flush console messages produced by the last frame
	for {
		select {
		case msg := <-consoleChan:
			sendConsole(msg)
		default:
			return
		}
	}
}

// writeSSEEvents handles writing all SSE events in a single goroutine (thread-safe)
func (s *Server) writeSSEEvents(ctx context.Context, w http.ResponseWriter, sseEventChan chan SSEEvent) {
	for {
		select {
		case event, ok := <-sseEventChan:
			if !ok {
				// Channel closed
				return
			}

			// Write SSE event
			_, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, event.Data)
			if err != nil {
				// Client disconnected during write
				return
			}
			if flusher, ok := w.(http.Flusher); ok {
				flusher.Flush()
			}

		case <-ctx.Done():
			// Client disconnected
			return
		}
	}
}

// sendEvent queues an SSE event unless the client is gone
func (s *Server) sendEvent(ctx context.Context, sseEventChan chan SSEEvent, event SSEEvent) bool {
	select {
	case sseEventChan <- event:
		return true
	case <-ctx.Done():
		return false
	}
}

func (s *Server) handleError(ctx context.Context, sseEventChan chan SSEEvent, message string) {
	s.logger.Warning(message)
	s.sendEvent(ctx, sseEventChan, SSEEvent{Type: "error", Data: message})
}
