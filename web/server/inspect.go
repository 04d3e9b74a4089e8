package server

import (
	"fmt"
	"net/http"
)

// InspectResponse describes a single pixel of the current buffer
type InspectResponse struct {
	X        int      `json:"x"`
	Y        int      `json:"y"`
	RGB      [3]uint8 `json:"rgb"`
	Hex      string   `json:"hex"`
	Gradient float64  `json:"gradient"` // Interpolation parameter row/height used for this row
}

// handleInspect returns the color of the pixel at (x, y)
func (s *Server) handleInspect(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tracer := s.session.Tracer()
	width, height := tracer.Width(), tracer.Height()

	x, err := parseIntParam(r.URL.Query(), "x", 0, 0, width-1)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	y, err := parseIntParam(r.URL.Query(), "y", 0, 0, height-1)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	i := (y*width + x) * 3
	pixel := tracer.ImageBuffer()[i : i+3]
	writeJSON(w, http.StatusOK, InspectResponse{
		X:        x,
		Y:        y,
		RGB:      [3]uint8{pixel[0], pixel[1], pixel[2]},
		Hex:      fmt.Sprintf("#%02x%02x%02x", pixel[0], pixel[1], pixel[2]),
		Gradient: float64(y) / float64(height),
	})
}
