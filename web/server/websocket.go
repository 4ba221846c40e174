package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gorilla/websocket"
)

// Message is the envelope of every server to client WebSocket message
type Message struct {
	Type    string          `json:"type"` // "frame", "console", "error", "complete"
	Frame   *FrameUpdate    `json:"frame,omitempty"`
	Console *ConsoleMessage `json:"console,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// handleWebSocket streams frames as JSON messages and accepts control
// messages that take effect before the next frame
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	req, err := s.parseStreamRequest(r)
	if err != nil {
		http.Error(w, "Invalid request: "+err.Error(), http.StatusBadRequest)
		return
	}

	wsConn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Errorf("upgrade websocket: %v", err)
		return
	}
	defer func() {
		if err := wsConn.Close(); err != nil {
			s.logger.Debugf("error closing websocket: %v", err)
		}
	}()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	consoleChan, id, webLogger := s.setupConsoleLogging()
	ss, err := s.newSession(req, id, webLogger)
	if err != nil {
		wsConn.WriteJSON(Message{Type: "error", Error: err.Error()})
		return
	}
	defer ss.close()

	controls := make(chan ControlMessage, 8)
	go s.readControls(ctx, wsConn, controls, cancel)

	// Only this goroutine writes to the connection
	failed := false
	s.streamFrames(ctx, ss, consoleChan, controls, func(update *FrameUpdate) bool {
		if err := wsConn.WriteJSON(Message{Type: "frame", Frame: update}); err != nil {
			s.logger.Debugf("error writing frame to ws: %v", err)
			return false
		}
		return true
	}, func(msg ConsoleMessage) {
		wsConn.WriteJSON(Message{Type: "console", Console: &msg})
	}, func(err error) {
		failed = true
		s.logger.Errorf("Denoising failed: %v", err)
		wsConn.WriteJSON(Message{Type: "error", Error: err.Error()})
	})

	if ctx.Err() != nil || failed {
		return
	}

	wsConn.WriteJSON(Message{Type: "complete"})
	wsConn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "stream completed"))
}

// readControls decodes client messages until the connection closes
func (s *Server) readControls(ctx context.Context, wsConn *websocket.Conn, controls chan<- ControlMessage, cancel context.CancelFunc) {
	defer cancel()

	for {
		var msg ControlMessage
		if err := wsConn.ReadJSON(&msg); err != nil {
			var closeErr *websocket.CloseError
			if !errors.As(err, &closeErr) && ctx.Err() == nil {
				s.logger.Debugf("error reading message from ws: %v", err)
			}
			return
		}

		select {
		case controls <- msg:
		case <-ctx.Done():
			return
		}
	}
}
