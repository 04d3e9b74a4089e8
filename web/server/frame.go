package server

import (
	"bytes"
	"fmt"
	"image/png"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/df07/go-pathtracer/pkg/imageio"
	"github.com/df07/go-pathtracer/pkg/renderer"
)

// parseFrameRequest reads width, height and trace from the query. Missing
// dimensions default to the current buffer size. Zero is accepted since a
// collapsed viewport is a normal client state.
func (s *Server) parseFrameRequest(r *http.Request, current renderer.Size) (renderer.Input, error) {
	values := r.URL.Query()
	var in renderer.Input

	var err error
	if in.Viewport.Width, err = parseIntParam(values, "width", current.Width, 0, MaxViewportSize); err != nil {
		return in, err
	}
	if in.Viewport.Height, err = parseIntParam(values, "height", current.Height, 0, MaxViewportSize); err != nil {
		return in, err
	}
	if in.TraceRequested, err = parseBoolParam(values, "trace"); err != nil {
		return in, err
	}
	return in, nil
}

// updateLocked runs one session frame; s.mu must be held
func (s *Server) updateLocked(in renderer.Input) (renderer.FrameResult, error) {
	result, err := s.session.Update(in, s.options)
	if err != nil {
		return result, err
	}
	if result.Resized || result.Traced {
		s.generation++
	}
	return result, nil
}

// currentSizeLocked returns the buffer size; s.mu must be held
func (s *Server) currentSizeLocked() renderer.Size {
	tracer := s.session.Tracer()
	return renderer.Size{Width: tracer.Width(), Height: tracer.Height()}
}

// handleFrame runs a frame for the reported viewport and returns the image as PNG
func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	in, err := s.parseFrameRequest(r, s.currentSizeLocked())
	if err != nil {
		s.mu.Unlock()
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request: %v", err))
		return
	}

	result, err := s.updateLocked(in)
	if err != nil {
		s.mu.Unlock()
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	img := s.session.Tracer().Image()
	generation := s.generation
	s.mu.Unlock()

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to encode image: %v", err))
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Frame-Width", strconv.Itoa(result.Width))
	w.Header().Set("X-Frame-Height", strconv.Itoa(result.Height))
	w.Header().Set("X-Frame-Time", result.FrameTime.String())
	w.Header().Set("X-Frame-Generation", strconv.FormatUint(generation, 10))
	w.Header().Set("X-Frame-Traced", strconv.FormatBool(result.Traced))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// SaveResponse reports where a frame was written
type SaveResponse struct {
	Path   string `json:"path"`
	Format string `json:"format"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// handleSave exports the current buffer to the output directory. Failures
// are reported to the client and do not affect the server.
func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "use POST")
		return
	}

	s.mu.Lock()
	cfg := s.cfg
	tracer := s.session.Tracer()
	buf, width, height := tracer.Snapshot(), tracer.Width(), tracer.Height()
	s.mu.Unlock()

	opts, err := cfg.ImageOptions()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if name := r.URL.Query().Get("format"); name != "" {
		if opts.Format, err = imageio.ParseFormat(name); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
		s.console.Printf("Save failed: %v\n", err)
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to create output directory: %v", err))
		return
	}

	path := imageio.OutputPath(cfg.OutputDir, opts.Format, time.Now())
	if err := imageio.Save(path, buf, width, height, opts); err != nil {
		s.console.Printf("Save failed: %v\n", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.console.Printf("Render saved as %s\n", path)
	writeJSON(w, http.StatusOK, SaveResponse{
		Path:   path,
		Format: string(opts.Format),
		Width:  width,
		Height: height,
	})
}
