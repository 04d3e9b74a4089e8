package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"net/http"
	"time"

	"github.com/df07/go-pathtracer/pkg/renderer"
)

// Stream interval limits in milliseconds
const (
	DefaultStreamIntervalMs = 100
	MinStreamIntervalMs     = 16
	MaxStreamIntervalMs     = 5000
)

// FrameUpdate is a single frame sent via SSE
type FrameUpdate struct {
	Generation  uint64  `json:"generation"`
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	Traced      bool    `json:"traced"`
	FrameTimeMs float64 `json:"frameTimeMs"`
	ImageData   string  `json:"imageData"` // Base64 encoded PNG
}

// SSEEvent represents a unified SSE event for thread-safe writing
type SSEEvent struct {
	Type string `json:"type"` // "console", "frame", "error"
	Data string `json:"data"` // JSON-encoded data
}

// handleStream runs the host's frame loop for one client. Every tick is a
// frame update with the current options; a frame event is sent whenever
// the buffer changed since the last one this client saw.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	s.setSSEHeaders(w)

	ctx := r.Context()

	interval, err := parseIntParam(r.URL.Query(), "interval", DefaultStreamIntervalMs, MinStreamIntervalMs, MaxStreamIntervalMs)
	if err != nil {
		fmt.Fprintf(w, "event: error\ndata: %s\n\n", fmt.Sprintf("Invalid request: %v", err))
		return
	}
	maxFrames, err := parseIntParam(r.URL.Query(), "frames", 0, 0, 1<<20)
	if err != nil {
		fmt.Fprintf(w, "event: error\ndata: %s\n\n", fmt.Sprintf("Invalid request: %v", err))
		return
	}

	// Create unified SSE event channel for thread-safe writing
	sseEventChan := make(chan SSEEvent, 100)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		s.writeSSEEvents(w, ctx, sseEventChan)
	}()

	consoleChan := s.console.Subscribe(50)
	consoleDone := make(chan struct{})
	go func() {
		defer close(consoleDone)
		s.streamConsoleMessages(ctx, consoleChan, sseEventChan)
	}()

	s.runFrameLoop(ctx, time.Duration(interval)*time.Millisecond, maxFrames, sseEventChan)

	// Stop producers before closing the event channel so nothing sends on it
	s.console.Unsubscribe(consoleChan)
	<-consoleDone
	close(sseEventChan)
	<-writerDone
}

// runFrameLoop ticks until ctx is done or maxFrames frames were sent (0 = unlimited)
func (s *Server) runFrameLoop(ctx context.Context, interval time.Duration, maxFrames int, sseEventChan chan SSEEvent) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var lastSent uint64
	sent := 0
	first := true

	for {
		update, img, changed, err := s.tickFrame(lastSent, first)
		if err != nil {
			s.handleError(ctx, sseEventChan, fmt.Sprintf("Frame failed: %v", err))
			return
		}

		if changed {
			first = false
			lastSent = update.Generation
			if err := s.sendFrame(ctx, sseEventChan, update, img); err != nil {
				s.console.Printf("Error encoding frame: %v\n", err)
			}
			sent++
			if maxFrames > 0 && sent >= maxFrames {
				return
			}
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}

// tickFrame runs one frame update and reports whether the client needs a new image
func (s *Server) tickFrame(lastSent uint64, first bool) (FrameUpdate, *image.RGBA, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.updateLocked(renderer.Input{Viewport: s.currentSizeLocked()})
	if err != nil {
		return FrameUpdate{}, nil, false, err
	}
	if !first && s.generation == lastSent {
		return FrameUpdate{}, nil, false, nil
	}

	update := FrameUpdate{
		Generation:  s.generation,
		Width:       result.Width,
		Height:      result.Height,
		Traced:      result.Traced,
		FrameTimeMs: milliseconds(result.FrameTime),
	}
	return update, s.session.Tracer().Image(), true, nil
}

// sendFrame encodes img and queues a frame event
func (s *Server) sendFrame(ctx context.Context, sseEventChan chan SSEEvent, update FrameUpdate, img image.Image) error {
	imageData, err := s.imageToBase64PNG(img)
	if err != nil {
		return err
	}
	update.ImageData = imageData

	data, err := json.Marshal(update)
	if err != nil {
		return err
	}

	select {
	case sseEventChan <- SSEEvent{Type: "frame", Data: string(data)}:
	case <-ctx.Done():
	}
	return nil
}

// setSSEHeaders sets the required headers for Server-Sent Events
func (s *Server) setSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
}

// writeSSEEvents handles writing all SSE events in a single goroutine (thread-safe)
func (s *Server) writeSSEEvents(w http.ResponseWriter, ctx context.Context, sseEventChan chan SSEEvent) {
	for {
		select {
		case event, ok := <-sseEventChan:
			if !ok {
				// Channel closed
				return
			}

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

// streamConsoleMessages forwards console messages to the SSE channel
func (s *Server) streamConsoleMessages(ctx context.Context, consoleChan chan ConsoleMessage, sseEventChan chan SSEEvent) {
	for {
		select {
		case consoleMsg, ok := <-consoleChan:
			if !ok {
				// Unsubscribed
				return
			}

			data, err := json.Marshal(consoleMsg)
			if err != nil {
				continue
			}

			select {
			case sseEventChan <- SSEEvent{Type: "console", Data: string(data)}:
			case <-ctx.Done():
				return
			default:
				// Channel full, skip message to avoid blocking
			}

		case <-ctx.Done():
			// Client disconnected
			return
		}
	}
}

// imageToBase64PNG converts an image to base64-encoded PNG
func (s *Server) imageToBase64PNG(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// handleError sends an error event to the SSE channel
func (s *Server) handleError(ctx context.Context, sseEventChan chan SSEEvent, message string) {
	select {
	case sseEventChan <- SSEEvent{Type: "error", Data: message}:
	case <-ctx.Done():
		// Client disconnected, don't block
	}
}
