package renderer

import (
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/df07/go-pathtracer/pkg/imageio"
)

// BytesPerPixel is the number of bytes per pixel in the image buffer (R, G, B)
const BytesPerPixel = 3

// blank is the byte value of a freshly allocated or resized buffer
const blank = 255

// ErrInvalidSize is returned by Resize when a dimension is below 1
var ErrInvalidSize = errors.New("size must be greater than zero")

// Tracer owns an interleaved RGB image buffer and regenerates it on Trace.
//
// A Tracer is not safe for concurrent use. The slice returned by
// ImageBuffer aliases internal storage and is only valid until the next
// call to Resize or Trace.
type Tracer struct {
	width, height int
	imageBuffer   []byte
	frameTime     time.Duration
	gradient      GradientConfig
	stats         *FrameStats
}

// NewTracer creates a tracer with a white buffer of the given size.
// Dimensions are not validated; callers must pass width, height >= 1.
func NewTracer(width, height int) *Tracer {
	return NewTracerWithConfig(width, height, DefaultGradientConfig())
}

// NewTracerWithConfig creates a tracer that draws the given gradient
func NewTracerWithConfig(width, height int, gradient GradientConfig) *Tracer {
	return &Tracer{
		width:       width,
		height:      height,
		imageBuffer: newBlankBuffer(width, height),
		gradient:    gradient,
		stats:       NewFrameStats(DefaultFrameHistory),
	}
}

func newBlankBuffer(width, height int) []byte {
	buf := make([]byte, width*height*BytesPerPixel)
	for i := range buf {
		buf[i] = blank
	}
	return buf
}

// Resize changes the buffer dimensions. Requests for the current size are
// a no-op; any other size reallocates the buffer and resets it to white.
func (t *Tracer) Resize(width, height int) error {
	if width < 1 || height < 1 {
		return fmt.Errorf("failed to resize tracer to %dx%d: %w", width, height, ErrInvalidSize)
	}
	if width == t.width && height == t.height {
		return nil
	}

	t.width = width
	t.height = height
	t.imageBuffer = newBlankBuffer(width, height)
	return nil
}

// Trace recomputes every pixel and records how long it took
func (t *Tracer) Trace() {
	start := time.Now()

	t.drawGradient()

	t.frameTime = time.Since(start)
	t.stats.Add(t.frameTime)
}

// drawGradient fills each row with the gradient color for row/height
func (t *Tracer) drawGradient() {
	if t.width <= 0 || t.height <= 0 {
		return
	}

	channels := t.gradient.Channels.channelCount()
	height := float32(t.height)

	for y := 0; y < t.height; y++ {
		// Every pixel in a row shares a color, so compute it once
		var row [BytesPerPixel]byte
		v := float32(y) / height
		for c := 0; c < channels; c++ {
			row[c] = t.gradient.lerp(c, v)
		}

		start := y * t.width * BytesPerPixel
		end := start + t.width*BytesPerPixel
		for i := start; i < end; i += BytesPerPixel {
			copy(t.imageBuffer[i:i+channels], row[:channels])
		}
	}
}

// ImageBuffer returns the live buffer. Do not modify it or retain it
// across calls to Resize or Trace; use Snapshot for a stable copy.
func (t *Tracer) ImageBuffer() []byte {
	return t.imageBuffer
}

// Snapshot returns a copy of the image buffer
func (t *Tracer) Snapshot() []byte {
	buf := make([]byte, len(t.imageBuffer))
	copy(buf, t.imageBuffer)
	return buf
}

// Image returns a copy of the buffer as an opaque RGBA image
func (t *Tracer) Image() *image.RGBA {
	return imageio.ToRGBA(t.imageBuffer, t.width, t.height)
}

// Width returns the buffer width in pixels
func (t *Tracer) Width() int {
	return t.width
}

// Height returns the buffer height in pixels
func (t *Tracer) Height() int {
	return t.height
}

// FrameTime returns the duration of the most recent Trace
func (t *Tracer) FrameTime() time.Duration {
	return t.frameTime
}

// Stats returns the frame time history
func (t *Tracer) Stats() *FrameStats {
	return t.stats
}

// Gradient returns the gradient drawn by Trace
func (t *Tracer) Gradient() GradientConfig {
	return t.gradient
}

// SetGradient replaces the gradient used by subsequent traces
func (t *Tracer) SetGradient(gradient GradientConfig) {
	t.gradient = gradient
}
