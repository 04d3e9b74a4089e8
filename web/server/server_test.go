package server

import (
	"bufio"
	"bytes"
	"encoding/base64"
	"encoding/json"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/df07/go-pathtracer/pkg/config"
	"github.com/df07/go-pathtracer/pkg/imageio"
	"github.com/df07/go-pathtracer/pkg/renderer"
)

func newTestServer(t *testing.T, width, height int) *Server {
	t.Helper()
	cfg := config.Default()
	cfg.Width, cfg.Height = width, height
	cfg.OutputDir = t.TempDir()

	srv, err := NewServer(0, cfg, &captureLogger{})
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	return srv
}

func doRequest(t *testing.T, srv *Server, method, target string, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestNewServer_InvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Width = 0
	if _, err := NewServer(0, cfg, nil); err == nil {
		t.Error("Expected error for invalid config")
	}
}

func TestHandleHealth(t *testing.T) {
	rec := doRequest(t, newTestServer(t, 4, 4), http.MethodGet, "/api/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Errorf("Unexpected body: %s", rec.Body.String())
	}
}

func TestHandleFrame(t *testing.T) {
	tests := []struct {
		name         string
		query        string
		expectStatus int
		expectWidth  int
		expectHeight int
		expectTraced string
	}{
		{"same size no trace", "", http.StatusOK, 8, 6, "false"},
		{"explicit trace", "?trace=1", http.StatusOK, 8, 6, "true"},
		{"resize traces on resize", "?width=12&height=5", http.StatusOK, 12, 5, "true"},
		{"collapsed viewport is ignored", "?width=0&height=5", http.StatusOK, 8, 6, "false"},
		{"invalid width", "?width=abc", http.StatusBadRequest, 0, 0, ""},
		{"too large", "?width=99999", http.StatusBadRequest, 0, 0, ""},
		{"invalid trace flag", "?trace=maybe", http.StatusBadRequest, 0, 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, 8, 6)
			rec := doRequest(t, srv, http.MethodGet, "/api/frame"+tt.query, "")

			if rec.Code != tt.expectStatus {
				t.Fatalf("Expected status %d, got %d: %s", tt.expectStatus, rec.Code, rec.Body.String())
			}
			if tt.expectStatus != http.StatusOK {
				return
			}

			if rec.Header().Get("Content-Type") != "image/png" {
				t.Errorf("Expected image/png, got %s", rec.Header().Get("Content-Type"))
			}
			if got := rec.Header().Get("X-Frame-Traced"); got != tt.expectTraced {
				t.Errorf("Expected traced %s, got %s", tt.expectTraced, got)
			}

			img, err := png.Decode(rec.Body)
			if err != nil {
				t.Fatalf("Failed to decode PNG: %v", err)
			}
			if img.Bounds().Dx() != tt.expectWidth || img.Bounds().Dy() != tt.expectHeight {
				t.Errorf("Expected %dx%d image, got %v", tt.expectWidth, tt.expectHeight, img.Bounds())
			}
		})
	}
}

func TestHandleTraceAndStats(t *testing.T) {
	srv := newTestServer(t, 4, 4)

	if rec := doRequest(t, srv, http.MethodGet, "/api/trace", ""); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405 for GET trace, got %d", rec.Code)
	}

	rec := doRequest(t, srv, http.MethodPost, "/api/trace", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	var stats StatsResponse
	if err := json.NewDecoder(rec.Body).Decode(&stats); err != nil {
		t.Fatalf("Failed to decode stats: %v", err)
	}
	if stats.FrameCount != 1 || stats.Generation != 1 {
		t.Errorf("Expected one frame at generation 1, got %+v", stats)
	}
	if stats.Width != 4 || stats.Height != 4 {
		t.Errorf("Expected 4x4, got %dx%d", stats.Width, stats.Height)
	}

	rec = doRequest(t, srv, http.MethodGet, "/api/stats", "")
	var again StatsResponse
	if err := json.NewDecoder(rec.Body).Decode(&again); err != nil {
		t.Fatalf("Failed to decode stats: %v", err)
	}
	if again.FrameCount != 1 {
		t.Errorf("Expected stats to report one frame, got %d", again.FrameCount)
	}
}

func TestHandleOptions(t *testing.T) {
	srv := newTestServer(t, 4, 4)

	rec := doRequest(t, srv, http.MethodGet, "/api/options", "")
	var opts renderer.Options
	if err := json.NewDecoder(rec.Body).Decode(&opts); err != nil {
		t.Fatalf("Failed to decode options: %v", err)
	}
	if opts != renderer.DefaultOptions() {
		t.Errorf("Expected default options, got %+v", opts)
	}

	body := `{"renderOnResize":false,"renderContinuously":true,"fitToViewport":false}`
	rec = doRequest(t, srv, http.MethodPost, "/api/options", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	// With continuous rendering every frame traces, and the viewport is not followed
	rec = doRequest(t, srv, http.MethodGet, "/api/frame?width=10&height=10", "")
	if rec.Header().Get("X-Frame-Traced") != "true" {
		t.Error("Expected continuous rendering to trace")
	}
	if rec.Header().Get("X-Frame-Width") != "4" {
		t.Errorf("Expected width to stay 4, got %s", rec.Header().Get("X-Frame-Width"))
	}

	if rec := doRequest(t, srv, http.MethodPost, "/api/options", "{not json"); rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for bad JSON, got %d", rec.Code)
	}
	if rec := doRequest(t, srv, http.MethodDelete, "/api/options", ""); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405, got %d", rec.Code)
	}
}

func TestHandleSave(t *testing.T) {
	srv := newTestServer(t, 4, 4)
	doRequest(t, srv, http.MethodPost, "/api/trace", "")

	rec := doRequest(t, srv, http.MethodPost, "/api/save", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp SaveResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Format != "ppm" || filepath.Ext(resp.Path) != ".ppm" {
		t.Errorf("Expected ppm output, got %+v", resp)
	}

	data, err := os.ReadFile(resp.Path)
	if err != nil {
		t.Fatalf("Saved file missing: %v", err)
	}
	header := []byte("P6\n4 4\n255\n")
	if !bytes.HasPrefix(data, header) || len(data) != len(header)+48 {
		t.Errorf("Unexpected PPM contents (%d bytes)", len(data))
	}
}

func TestHandleSave_FormatOverride(t *testing.T) {
	srv := newTestServer(t, 3, 2)

	rec := doRequest(t, srv, http.MethodPost, "/api/save?format=png", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp SaveResponse
	json.NewDecoder(rec.Body).Decode(&resp)

	img, err := imageio.Load(resp.Path)
	if err != nil {
		t.Fatalf("Failed to load saved PNG: %v", err)
	}
	if img.Width != 3 || img.Height != 2 {
		t.Errorf("Expected 3x2, got %dx%d", img.Width, img.Height)
	}

	if rec := doRequest(t, srv, http.MethodPost, "/api/save?format=gif", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for unknown format, got %d", rec.Code)
	}
}

func TestHandleSave_UnwritableDirectory(t *testing.T) {
	srv := newTestServer(t, 2, 2)

	// A regular file where the output directory should be
	blocker := filepath.Join(t.TempDir(), "blocker")
	if err := os.WriteFile(blocker, nil, 0644); err != nil {
		t.Fatal(err)
	}
	srv.cfg.OutputDir = filepath.Join(blocker, "output")

	rec := doRequest(t, srv, http.MethodPost, "/api/save", "")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("Expected 500, got %d", rec.Code)
	}

	// The server keeps serving after a failed save
	if rec := doRequest(t, srv, http.MethodGet, "/api/health", ""); rec.Code != http.StatusOK {
		t.Errorf("Expected server to stay healthy, got %d", rec.Code)
	}
}

func TestHandleInspect(t *testing.T) {
	srv := newTestServer(t, 2, 4)
	srv.session.Tracer().SetGradient(renderer.GradientConfig{
		Top:           renderer.DefaultGradientConfig().Top,
		Bottom:        renderer.DefaultGradientConfig().Bottom,
		Interpolation: renderer.LinearInterpolation,
	})
	doRequest(t, srv, http.MethodPost, "/api/trace", "")

	rec := doRequest(t, srv, http.MethodGet, "/api/inspect?x=1&y=2", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp InspectResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.RGB != [3]uint8{127, 127, 127} || resp.Hex != "#7f7f7f" || resp.Gradient != 0.5 {
		t.Errorf("Unexpected inspect response: %+v", resp)
	}

	if rec := doRequest(t, srv, http.MethodGet, "/api/inspect?x=2&y=0", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for out-of-range x, got %d", rec.Code)
	}
}

func TestApplyConfig(t *testing.T) {
	srv := newTestServer(t, 4, 4)

	cfg := config.Default()
	cfg.Width, cfg.Height = 6, 2
	cfg.Options.RenderContinuously = true
	srv.ApplyConfig(cfg)

	tracer := srv.session.Tracer()
	if tracer.Width() != 6 || tracer.Height() != 2 {
		t.Errorf("Expected 6x2 after reload, got %dx%d", tracer.Width(), tracer.Height())
	}
	if !srv.options.RenderContinuously {
		t.Error("Expected reloaded options to apply")
	}
	if srv.generation != 1 {
		t.Errorf("Expected generation 1 after reload, got %d", srv.generation)
	}
}

func TestHandleStream(t *testing.T) {
	srv := newTestServer(t, 3, 3)

	rec := doRequest(t, srv, http.MethodGet, "/api/stream?interval=16&frames=1", "")
	if rec.Header().Get("Content-Type") != "text/event-stream" {
		t.Errorf("Expected event stream, got %s", rec.Header().Get("Content-Type"))
	}

	var frame *FrameUpdate
	scanner := bufio.NewScanner(rec.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	event := ""
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: ") && event == "frame":
			var update FrameUpdate
			if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &update); err != nil {
				t.Fatalf("Failed to decode frame: %v", err)
			}
			frame = &update
		}
	}

	if frame == nil {
		t.Fatalf("Expected a frame event, got %q", rec.Body.String())
	}
	if frame.Width != 3 || frame.Height != 3 {
		t.Errorf("Expected 3x3 frame, got %dx%d", frame.Width, frame.Height)
	}

	data, err := base64.StdEncoding.DecodeString(frame.ImageData)
	if err != nil {
		t.Fatalf("Invalid base64: %v", err)
	}
	if _, err := png.Decode(bytes.NewReader(data)); err != nil {
		t.Errorf("Frame is not a PNG: %v", err)
	}
}

func TestHandleStream_InvalidInterval(t *testing.T) {
	srv := newTestServer(t, 3, 3)
	rec := doRequest(t, srv, http.MethodGet, "/api/stream?interval=1", "")
	if !strings.Contains(rec.Body.String(), "event: error") {
		t.Errorf("Expected error event, got %q", rec.Body.String())
	}
}
