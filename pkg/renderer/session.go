package renderer

import (
	"time"

	"github.com/df07/go-pathtracer/pkg/core"
)

// Options are the host-controlled switches consulted on every frame
type Options struct {
	RenderOnResize     bool `json:"renderOnResize" toml:"render_on_resize"`         // Trace after the buffer is resized
	RenderContinuously bool `json:"renderContinuously" toml:"render_continuously"` // Trace on every frame
	FitToViewport      bool `json:"fitToViewport" toml:"fit_to_viewport"`          // Resize the buffer to follow the viewport
}

// DefaultOptions returns the options the desktop host started with
func DefaultOptions() Options {
	return Options{
		RenderOnResize:     true,
		RenderContinuously: false,
		FitToViewport:      true,
	}
}

// Size is a viewport size in pixels
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Input is what the host observed since the previous frame
type Input struct {
	Viewport       Size // Area available for the image
	TraceRequested bool // User asked for a trace (button or key)
}

// FrameResult reports what an Update did
type FrameResult struct {
	Resized   bool          `json:"resized"`
	Traced    bool          `json:"traced"`
	Width     int           `json:"width"`
	Height    int           `json:"height"`
	FrameTime time.Duration `json:"frameTime"`
}

// Session drives a Tracer from a host's per-frame update callback
type Session struct {
	tracer *Tracer
	logger core.Logger
}

// NewSession creates a session around tracer. A nil logger discards output.
func NewSession(tracer *Tracer, logger core.Logger) *Session {
	if logger == nil {
		logger = discardLogger{}
	}
	return &Session{tracer: tracer, logger: logger}
}

// Tracer returns the engine driven by this session
func (s *Session) Tracer() *Tracer {
	return s.tracer
}

// Update runs one frame: follow the viewport if asked to, then trace if
// anything calls for it. A collapsed viewport (either side below 1) is
// routine while a window is being dragged and is skipped, not reported.
func (s *Session) Update(in Input, opts Options) (FrameResult, error) {
	var result FrameResult

	if opts.FitToViewport && s.viewportChanged(in.Viewport) {
		if in.Viewport.Width < 1 || in.Viewport.Height < 1 {
			s.logger.Printf("Ignoring resize to %dx%d\n", in.Viewport.Width, in.Viewport.Height)
		} else {
			if err := s.tracer.Resize(in.Viewport.Width, in.Viewport.Height); err != nil {
				return result, err
			}
			result.Resized = true
		}
	}

	if in.TraceRequested || opts.RenderContinuously || (result.Resized && opts.RenderOnResize) {
		s.tracer.Trace()
		result.Traced = true
	}

	result.Width = s.tracer.Width()
	result.Height = s.tracer.Height()
	result.FrameTime = s.tracer.FrameTime()
	return result, nil
}

func (s *Session) viewportChanged(viewport Size) bool {
	return viewport.Width != s.tracer.Width() || viewport.Height != s.tracer.Height()
}
