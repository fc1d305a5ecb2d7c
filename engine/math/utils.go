package math

import "golang.org/x/exp/constraints"

// Clamp returns the value `f` clamped to the range [low, high].
// It works for any numeric type (integers and floats).
func Clamp[T constraints.Ordered](f, low, high T) T {
	if f < low {
		return low
	}
	if f > high {
		return high
	}
	return f
}

// ClampColour clamps every channel of a linear colour to [0, 1].
func ClampColour(c Vec3) Vec3 {
	return Vec3{Clamp(c.X, 0, 1), Clamp(c.Y, 0, 1), Clamp(c.Z, 0, 1)}
}
