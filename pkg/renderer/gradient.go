package renderer

import (
	"fmt"

	"github.com/df07/go-pathtracer/pkg/core"
)

// ChannelMode selects which color channels a trace writes
type ChannelMode int

const (
	// AllChannels interpolates red, green and blue
	AllChannels ChannelMode = iota
	// RedGreenOnly interpolates red and green and leaves blue untouched
	RedGreenOnly
)

// String returns the config-file spelling of the mode
func (m ChannelMode) String() string {
	switch m {
	case AllChannels:
		return "rgb"
	case RedGreenOnly:
		return "rg"
	default:
		return fmt.Sprintf("ChannelMode(%d)", int(m))
	}
}

// channelCount returns how many leading channels of each pixel are written
func (m ChannelMode) channelCount() int {
	if m == RedGreenOnly {
		return 2
	}
	return 3
}

// ParseChannelMode parses "rgb" or "rg"
func ParseChannelMode(s string) (ChannelMode, error) {
	switch s {
	case "", "rgb":
		return AllChannels, nil
	case "rg":
		return RedGreenOnly, nil
	default:
		return AllChannels, fmt.Errorf("unknown channel mode: %q", s)
	}
}

// Interpolation selects the per-channel interpolation used by a trace
type Interpolation int

const (
	// ReverseInterpolation uses core.ByteLerp: top + (top - bottom) * t
	ReverseInterpolation Interpolation = iota
	// LinearInterpolation uses core.LinearByteLerp: top + (bottom - top) * t
	LinearInterpolation
)

// String returns the config-file spelling of the interpolation
func (i Interpolation) String() string {
	switch i {
	case ReverseInterpolation:
		return "reverse"
	case LinearInterpolation:
		return "linear"
	default:
		return fmt.Sprintf("Interpolation(%d)", int(i))
	}
}

// ParseInterpolation parses "reverse" or "linear"
func ParseInterpolation(s string) (Interpolation, error) {
	switch s {
	case "", "reverse":
		return ReverseInterpolation, nil
	case "linear":
		return LinearInterpolation, nil
	default:
		return ReverseInterpolation, fmt.Errorf("unknown interpolation: %q", s)
	}
}

// GradientConfig describes the vertical gradient drawn by Trace
type GradientConfig struct {
	Top           core.RGBA8    // Color at row 0
	Bottom        core.RGBA8    // Color the gradient is interpolated against
	Channels      ChannelMode   // Which channels are written
	Interpolation Interpolation // Byte interpolation formula
}

// DefaultGradientConfig returns a black-to-white gradient over all channels
func DefaultGradientConfig() GradientConfig {
	return GradientConfig{
		Top:           core.NewRGBA8(0, 0, 0, 255),
		Bottom:        core.NewRGBA8(255, 255, 255, 255),
		Channels:      AllChannels,
		Interpolation: ReverseInterpolation,
	}
}

// lerp interpolates a single channel between the top and bottom colors
func (g GradientConfig) lerp(channel int, t float32) uint8 {
	top, bottom := g.Top.Channel(channel), g.Bottom.Channel(channel)
	if g.Interpolation == LinearInterpolation {
		return core.LinearByteLerp(top, bottom, t)
	}
	return core.ByteLerp(top, bottom, t)
}
