package imageio

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

// Format is an export file format
type Format string

const (
	FormatPPM  Format = "ppm"
	FormatPNG  Format = "png"
	FormatBMP  Format = "bmp"
	FormatTIFF Format = "tiff"
)

// ErrUnsupportedFormat is returned for formats this package cannot write
var ErrUnsupportedFormat = errors.New("unsupported image format")

// ParseFormat parses a format name such as "png" or ".tif"
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(name, ".")) {
	case "ppm":
		return FormatPPM, nil
	case "png":
		return FormatPNG, nil
	case "bmp":
		return FormatBMP, nil
	case "tif", "tiff":
		return FormatTIFF, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, name)
	}
}

// FormatFromPath picks a format from the file extension of path
func FormatFromPath(path string) (Format, error) {
	return ParseFormat(filepath.Ext(path))
}

// Extension returns the file extension for the format, including the dot
func (f Format) Extension() string {
	return "." + string(f)
}

// Options controls how an image is written
type Options struct {
	Format      Format
	HeaderOrder HeaderOrder // PPM only
}

// Encode writes an interleaved RGB buffer to w in the requested format
func Encode(w io.Writer, buf []byte, width, height int, opts Options) error {
	if err := checkBufferSize(buf, width, height); err != nil {
		return err
	}

	switch opts.Format {
	case FormatPPM:
		return WritePPM(w, buf, width, height, opts.HeaderOrder)
	case FormatPNG:
		return png.Encode(w, ToRGBA(buf, width, height))
	case FormatBMP:
		return bmp.Encode(w, ToRGBA(buf, width, height))
	case FormatTIFF:
		return tiff.Encode(w, ToRGBA(buf, width, height), &tiff.Options{Compression: tiff.Deflate})
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, opts.Format)
	}
}

// Save writes an interleaved RGB buffer to a file at path
func Save(path string, buf []byte, width, height int, opts Options) error {
	if opts.Format == FormatPPM {
		return SavePPM(path, buf, width, height, opts.HeaderOrder)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := Encode(file, buf, width, height, opts); err != nil {
		file.Close()
		return fmt.Errorf("failed to encode %s: %w", opts.Format, err)
	}
	return file.Close()
}

// ToRGBA converts an interleaved RGB buffer to an opaque RGBA image
func ToRGBA(buf []byte, width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for src, dst := 0, 0; src+3 <= len(buf) && dst+4 <= len(img.Pix); src, dst = src+3, dst+4 {
		img.Pix[dst] = buf[src]
		img.Pix[dst+1] = buf[src+1]
		img.Pix[dst+2] = buf[src+2]
		img.Pix[dst+3] = 255
	}
	return img
}

// FromImage converts any image to an interleaved RGB buffer, dropping alpha
func FromImage(img image.Image) (buf []byte, width, height int) {
	bounds := img.Bounds()
	width, height = bounds.Dx(), bounds.Dy()
	buf = make([]byte, 0, width*height*3)

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			// RGBA returns uint32 in [0, 65535]
			buf = append(buf, uint8(r>>8), uint8(g>>8), uint8(b>>8))
		}
	}
	return buf, width, height
}

// OutputPath returns a timestamped file name inside dir
func OutputPath(dir string, format Format, now time.Time) string {
	timestamp := now.Format("20060102_150405")
	return filepath.Join(dir, "render_"+timestamp+format.Extension())
}

// Load reads a PPM, PNG, BMP or TIFF file into an interleaved RGB buffer
func Load(path string) (*PPM, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	if format == FormatPPM {
		return LoadPPM(path)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image file: %w", err)
	}
	defer file.Close()

	var img image.Image
	switch format {
	case FormatPNG:
		img, err = png.Decode(file)
	case FormatBMP:
		img, err = bmp.Decode(file)
	case FormatTIFF:
		img, err = tiff.Decode(file)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	buf, width, height := FromImage(img)
	return &PPM{Width: width, Height: height, Pixels: buf}, nil
}
