package server

import (
	"fmt"
	"sync"
	"time"

	"github.com/df07/go-pathtracer/pkg/core"
)

// ConsoleMessage represents a console message with timestamp
type ConsoleMessage struct {
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"` // "info", "warning", "error"
}

// ConsoleHub implements core.Logger by writing to a base logger and
// forwarding each message to every subscribed stream
type ConsoleHub struct {
	base core.Logger

	mu          sync.Mutex
	subscribers map[chan ConsoleMessage]struct{}
}

// NewConsoleHub creates a hub. A nil base writes to stdout.
func NewConsoleHub(base core.Logger) *ConsoleHub {
	return &ConsoleHub{
		base:        base,
		subscribers: make(map[chan ConsoleMessage]struct{}),
	}
}

// Subscribe registers a channel that receives console messages
func (h *ConsoleHub) Subscribe(buffer int) chan ConsoleMessage {
	ch := make(chan ConsoleMessage, buffer)
	h.mu.Lock()
	h.subscribers[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

// Unsubscribe removes and closes a subscribed channel
func (h *ConsoleHub) Unsubscribe(ch chan ConsoleMessage) {
	h.mu.Lock()
	if _, ok := h.subscribers[ch]; ok {
		delete(h.subscribers, ch)
		close(ch)
	}
	h.mu.Unlock()
}

// Printf implements core.Logger interface
func (h *ConsoleHub) Printf(format string, args ...interface{}) {
	message := fmt.Sprintf(format, args...)

	// Also write to stdout for server logs
	if h.base != nil {
		h.base.Printf("%s", message)
	} else {
		fmt.Print(message)
	}

	msg := ConsoleMessage{
		Message:   message,
		Timestamp: time.Now(),
		Level:     "info",
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subscribers {
		select {
		case ch <- msg:
		default:
			// Channel full, skip (don't block)
		}
	}
}
