package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/df07/go-pathtracer/pkg/config"
	"github.com/df07/go-pathtracer/pkg/core"
	"github.com/df07/go-pathtracer/pkg/renderer"
)

// Viewport limits accepted from clients
const (
	MaxViewportSize = 4096
)

// Server handles web requests for the tracer. It plays the role of the
// host UI: each request is a frame that may resize or trace the engine.
type Server struct {
	port    int
	console *ConsoleHub

	mu         sync.Mutex // Guards everything below; the engine is single-threaded
	cfg        config.Config
	session    *renderer.Session
	options    renderer.Options
	generation uint64 // Bumped whenever the buffer contents change
}

// NewServer creates a new web server around a tracer built from cfg
func NewServer(port int, cfg config.Config, logger core.Logger) (*Server, error) {
	tracer, err := cfg.NewTracer()
	if err != nil {
		return nil, err
	}

	console := NewConsoleHub(logger)
	return &Server{
		port:    port,
		console: console,
		cfg:     cfg,
		session: renderer.NewSession(tracer, console),
		options: cfg.Options,
	}, nil
}

// Handler returns the HTTP handler serving the API
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/frame", s.handleFrame)
	mux.HandleFunc("/api/trace", s.handleTrace)
	mux.HandleFunc("/api/stats", s.handleStats)
	mux.HandleFunc("/api/options", s.handleOptions)
	mux.HandleFunc("/api/save", s.handleSave)
	mux.HandleFunc("/api/inspect", s.handleInspect)
	mux.HandleFunc("/api/stream", s.handleStream)
	return mux
}

// Start serves until ctx is cancelled
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.port)
	httpServer := &http.Server{Addr: addr, Handler: s.Handler()}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	s.console.Printf("Starting web server on http://localhost%s\n", addr)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ApplyConfig swaps in a reloaded configuration. Options and gradient take
// effect on the next frame; the buffer is resized to the configured size.
func (s *Server) ApplyConfig(cfg config.Config) {
	gradient, err := cfg.Gradient.Renderer()
	if err != nil {
		s.console.Printf("Ignoring config: %v\n", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.cfg = cfg
	s.options = cfg.Options
	tracer := s.session.Tracer()
	tracer.SetGradient(gradient)
	if err := tracer.Resize(cfg.Width, cfg.Height); err != nil {
		s.console.Printf("Ignoring config size: %v\n", err)
		return
	}
	tracer.Trace()
	s.generation++
}

// StatsResponse is the JSON form of the tracer's frame statistics
type StatsResponse struct {
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	Generation  uint64  `json:"generation"`
	FrameCount  int     `json:"frameCount"`
	FrameTimeMs float64 `json:"frameTimeMs"`
	MinMs       float64 `json:"minMs"`
	MaxMs       float64 `json:"maxMs"`
	MeanMs      float64 `json:"meanMs"`
	StdDevMs    float64 `json:"stdDevMs"`
}

// statsLocked builds a StatsResponse; s.mu must be held
func (s *Server) statsLocked() StatsResponse {
	tracer := s.session.Tracer()
	summary := tracer.Stats().Summary()
	return StatsResponse{
		Width:       tracer.Width(),
		Height:      tracer.Height(),
		Generation:  s.generation,
		FrameCount:  summary.Count,
		FrameTimeMs: milliseconds(tracer.FrameTime()),
		MinMs:       milliseconds(summary.Min),
		MaxMs:       milliseconds(summary.Max),
		MeanMs:      milliseconds(summary.Mean),
		StdDevMs:    milliseconds(summary.StdDev),
	}
}

func milliseconds(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// handleHealth provides a simple health check endpoint
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleStats returns frame time statistics
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	stats := s.statsLocked()
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, stats)
}

// handleTrace forces a trace regardless of options
func (s *Server) handleTrace(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "use POST")
		return
	}

	s.mu.Lock()
	s.session.Tracer().Trace()
	s.generation++
	stats := s.statsLocked()
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, stats)
}

// handleOptions reads or replaces the per-frame options
func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.mu.Lock()
		opts := s.options
		s.mu.Unlock()
		writeJSON(w, http.StatusOK, opts)

	case http.MethodPost, http.MethodPut:
		var opts renderer.Options
		if err := json.NewDecoder(r.Body).Decode(&opts); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid options: %v", err))
			return
		}
		s.mu.Lock()
		s.options = opts
		s.mu.Unlock()
		writeJSON(w, http.StatusOK, opts)

	default:
		writeError(w, http.StatusMethodNotAllowed, "use GET or POST")
	}
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

// parseBoolParam parses a boolean parameter from URL query
func parseBoolParam(values url.Values, key string) (bool, error) {
	value := values.Get(key)
	if value == "" {
		return false, nil
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %s", key, value)
	}
	return parsed, nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
