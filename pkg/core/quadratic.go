package core

import (
	"fmt"
	"math"
)

// RootCount tags which variant a QuadraticSolution holds
type RootCount int

const (
	NoRoots RootCount = iota
	OneRoot
	TwoRoots
)

func (r RootCount) String() string {
	switch r {
	case NoRoots:
		return "none"
	case OneRoot:
		return "one"
	case TwoRoots:
		return "two"
	default:
		return fmt.Sprintf("RootCount(%d)", int(r))
	}
}

// QuadraticSolution is the result of SolveQuadratic.
// Only the first Count entries of Roots are meaningful.
type QuadraticSolution struct {
	Count RootCount
	Roots [2]float32
}

// SolveQuadratic solves a*x^2 + b*x + c = 0 over the reals.
//
// A zero discriminant reports a single root of 0 rather than -b/2a.
// Callers that need the tangent root must compute it themselves.
func SolveQuadratic(a, b, c float32) QuadraticSolution {
	discriminant := b*b - 4*a*c

	switch {
	case discriminant < 0:
		return QuadraticSolution{Count: NoRoots}
	case discriminant == 0:
		return QuadraticSolution{Count: OneRoot, Roots: [2]float32{0, 0}}
	}

	sqrtD := float32(math.Sqrt(float64(discriminant)))
	return QuadraticSolution{
		Count: TwoRoots,
		Roots: [2]float32{
			(-b + sqrtD) / (2 * a),
			(-b - sqrtD) / (2 * a),
		},
	}
}

// Equal reports whether two solutions hold the same roots.
// Two-root solutions compare as unordered pairs.
func (s QuadraticSolution) Equal(other QuadraticSolution) bool {
	if s.Count != other.Count {
		return false
	}
	switch s.Count {
	case OneRoot:
		return s.Roots[0] == other.Roots[0]
	case TwoRoots:
		return (s.Roots[0] == other.Roots[0] && s.Roots[1] == other.Roots[1]) ||
			(s.Roots[0] == other.Roots[1] && s.Roots[1] == other.Roots[0])
	}
	return true
}

func (s QuadraticSolution) String() string {
	switch s.Count {
	case OneRoot:
		return fmt.Sprintf("One(%g)", s.Roots[0])
	case TwoRoots:
		return fmt.Sprintf("Two(%g, %g)", s.Roots[0], s.Roots[1])
	default:
		return "None"
	}
}
