package imageio

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
)

// HeaderOrder selects how the P6 header lines are laid out
type HeaderOrder int

const (
	// StandardHeader writes "width height" then the maxval
	StandardHeader HeaderOrder = iota
	// LegacySwappedHeader writes the maxval first and then "height width".
	// Files written this way are not readable by conforming PPM readers.
	LegacySwappedHeader
)

const ppmMaxValue = 255

// MaxPPMPixels bounds width*height accepted by ReadPPM
const MaxPPMPixels = 1 << 28

var (
	// ErrBufferSize is returned when a buffer does not hold width*height RGB pixels
	ErrBufferSize = errors.New("buffer size does not match dimensions")
	// ErrInvalidPPM is returned when a file is not a binary PPM this package can read
	ErrInvalidPPM = errors.New("invalid PPM data")
)

// PPM is a decoded binary PPM image
type PPM struct {
	Width  int
	Height int
	Pixels []byte // Interleaved RGB, row-major
}

func checkBufferSize(buf []byte, width, height int) error {
	if width < 1 || height < 1 || len(buf) != width*height*3 {
		return fmt.Errorf("%w: %d bytes for %dx%d", ErrBufferSize, len(buf), width, height)
	}
	return nil
}

// WritePPM writes buf as a binary (P6) PPM image
func WritePPM(w io.Writer, buf []byte, width, height int, order HeaderOrder) error {
	if err := checkBufferSize(buf, width, height); err != nil {
		return err
	}

	var header string
	switch order {
	case LegacySwappedHeader:
		header = fmt.Sprintf("P6\n%d\n%d %d\n", ppmMaxValue, height, width)
	default:
		header = fmt.Sprintf("P6\n%d %d\n%d\n", width, height, ppmMaxValue)
	}

	if _, err := io.WriteString(w, header); err != nil {
		return fmt.Errorf("failed to write PPM header: %w", err)
	}
	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("failed to write PPM pixels: %w", err)
	}
	return nil
}

// SavePPM writes buf to a PPM file at path
func SavePPM(path string, buf []byte, width, height int, order HeaderOrder) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}

	bw := bufio.NewWriter(file)
	if err := WritePPM(bw, buf, width, height, order); err != nil {
		file.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		file.Close()
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return file.Close()
}

// ReadPPM decodes a standard-order binary PPM with maxval 255
func ReadPPM(r io.Reader) (*PPM, error) {
	br := bufio.NewReader(r)

	magic, err := readToken(br)
	if err != nil {
		return nil, err
	}
	if magic != "P6" {
		return nil, fmt.Errorf("%w: magic %q", ErrInvalidPPM, magic)
	}

	var fields [3]int
	for i, name := range []string{"width", "height", "maxval"} {
		token, err := readToken(br)
		if err != nil {
			return nil, err
		}
		n, err := strconv.Atoi(token)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("%w: %s %q", ErrInvalidPPM, name, token)
		}
		fields[i] = n
	}
	width, height, maxValue := fields[0], fields[1], fields[2]
	if maxValue != ppmMaxValue {
		return nil, fmt.Errorf("%w: unsupported maxval %d", ErrInvalidPPM, maxValue)
	}
	if width > MaxPPMPixels/height {
		return nil, fmt.Errorf("%w: dimensions %dx%d too large", ErrInvalidPPM, width, height)
	}

	// Exactly one whitespace byte separates the header from the raster
	if _, err := br.ReadByte(); err != nil {
		return nil, fmt.Errorf("%w: missing raster", ErrInvalidPPM)
	}

	// Grow with the data actually present instead of trusting the header
	size := width * height * 3
	pixels, err := io.ReadAll(io.LimitReader(br, int64(size)))
	if err != nil {
		return nil, fmt.Errorf("%w: reading raster: %v", ErrInvalidPPM, err)
	}
	if len(pixels) != size {
		return nil, fmt.Errorf("%w: short raster: %d of %d bytes", ErrInvalidPPM, len(pixels), size)
	}

	return &PPM{Width: width, Height: height, Pixels: pixels}, nil
}

// LoadPPM reads a PPM file from disk
func LoadPPM(path string) (*PPM, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image file: %w", err)
	}
	defer file.Close()

	return ReadPPM(file)
}

// readToken reads the next whitespace-delimited header token, skipping
// '#' comments. The delimiter following the token is left unread.
func readToken(br *bufio.Reader) (string, error) {
	var token []byte
	for {
		b, err := br.ReadByte()
		if err != nil {
			if len(token) > 0 && err == io.EOF {
				return string(token), nil
			}
			return "", fmt.Errorf("%w: truncated header", ErrInvalidPPM)
		}

		switch {
		case b == '#' && len(token) == 0:
			if _, err := br.ReadString('\n'); err != nil {
				return "", fmt.Errorf("%w: truncated header", ErrInvalidPPM)
			}
		case isSpace(b):
			if len(token) > 0 {
				return string(token), br.UnreadByte()
			}
		default:
			token = append(token, b)
		}
	}
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\v' || b == '\f'
}
