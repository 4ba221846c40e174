package server

import (
	"fmt"
	"time"

	"github.com/philcn/RaysRenderer/pkg/log"
)

// ConsoleMessage represents a console message with timestamp
type ConsoleMessage struct {
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"` // "info", "notice", "warning", "error"
}

// WebLogger implements log.Logger by writing to a base logger and
// forwarding everything above debug to a console channel
type WebLogger struct {
	sessionID   string
	base        log.Logger
	consoleChan chan<- ConsoleMessage
}

// NewWebLogger creates a new web logger for a specific stream session
func NewWebLogger(sessionID string, base log.Logger, consoleChan chan<- ConsoleMessage) log.Logger {
	return &WebLogger{
		sessionID:   sessionID,
		base:        base,
		consoleChan: consoleChan,
	}
}

// forward sends a message to the web console if a channel is available
// (non-blocking)
func (wl *WebLogger) forward(level, message string) {
	if wl.consoleChan == nil {
		return
	}
	select {
	case wl.consoleChan <- ConsoleMessage{
		Message:   message,
		Timestamp: time.Now(),
		Level:     level,
	}:
	default:
		// Channel full, skip (don't block)
	}
}

func (wl *WebLogger) Debug(v ...interface{}) {
	wl.base.Debugf("[%s] %s", wl.sessionID, fmt.Sprint(v...))
}

func (wl *WebLogger) Debugf(format string, v ...interface{}) {
	wl.base.Debugf("[%s] %s", wl.sessionID, fmt.Sprintf(format, v...))
}

func (wl *WebLogger) Info(v ...interface{}) {
	wl.Infof("%s", fmt.Sprint(v...))
}

func (wl *WebLogger) Infof(format string, v ...interface{}) {
	message := fmt.Sprintf(format, v...)
	wl.base.Infof("[%s] %s", wl.sessionID, message)
	wl.forward("info", message)
}

func (wl *WebLogger) Notice(v ...interface{}) {
	wl.Noticef("%s", fmt.Sprint(v...))
}

func (wl *WebLogger) Noticef(format string, v ...interface{}) {
	message := fmt.Sprintf(format, v...)
	wl.base.Noticef("[%s] %s", wl.sessionID, message)
	wl.forward("notice", message)
}

func (wl *WebLogger) Warning(v ...interface{}) {
	wl.Warningf("%s", fmt.Sprint(v...))
}

func (wl *WebLogger) Warningf(format string, v ...interface{}) {
	message := fmt.Sprintf(format, v...)
	wl.base.Warningf("[%s] %s", wl.sessionID, message)
	wl.forward("warning", message)
}

func (wl *WebLogger) Error(v ...interface{}) {
	wl.Errorf("%s", fmt.Sprint(v...))
}

func (wl *WebLogger) Errorf(format string, v ...interface{}) {
	message := fmt.Sprintf(format, v...)
	wl.base.Errorf("[%s] %s", wl.sessionID, message)
	wl.forward("error", message)
}
