package core

import "math"

// RGBA8 is a color with 8-bit channels
type RGBA8 struct {
	R, G, B, A uint8
}

// NewRGBA8 creates an RGBA8 color
func NewRGBA8(r, g, b, a uint8) RGBA8 {
	return RGBA8{R: r, G: g, B: b, A: a}
}

// Channel returns channel i (0=R, 1=G, 2=B, 3=A)
func (c RGBA8) Channel(i int) uint8 {
	switch i {
	case 0:
		return c.R
	case 1:
		return c.G
	case 2:
		return c.B
	default:
		return c.A
	}
}

// Lerp interpolates R, G and B with ByteLerp. Alpha is always set to 1.
func (c RGBA8) Lerp(other RGBA8, t float32) RGBA8 {
	return RGBA8{
		R: ByteLerp(c.R, other.R, t),
		G: ByteLerp(c.G, other.G, t),
		B: ByteLerp(c.B, other.B, t),
		A: 1,
	}
}

// ByteLerp computes v1 + (v1 - v2) * t and truncates toward zero.
// Results outside [0, 255] saturate.
func ByteLerp(v1, v2 uint8, t float32) uint8 {
	return saturateByte(ReverseLerpFloat(float32(v1), float32(v2), t))
}

// LinearByteLerp computes v1 + (v2 - v1) * t and truncates toward zero.
func LinearByteLerp(v1, v2 uint8, t float32) uint8 {
	a := float32(v1)
	return saturateByte(a + (float32(v2)-a)*t)
}

// saturateByte converts f to a byte the way a saturating cast does:
// NaN maps to 0, out-of-range values clamp, fractions truncate.
func saturateByte(f float32) uint8 {
	switch {
	case math.IsNaN(float64(f)):
		return 0
	case f <= 0:
		return 0
	case f >= math.MaxUint8:
		return math.MaxUint8
	}
	return uint8(f)
}
