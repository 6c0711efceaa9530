package grid

import (
	"errors"
	"fmt"
	"math"
	"slices"
)

// DefaultEpsilon is the tolerance used when matching a floored query value
// against stored axis coordinates.
const DefaultEpsilon = 1e-12

var (
	// ErrAxisLookup reports that no grid node matched a query coordinate.
	ErrAxisLookup = errors.New("axis lookup failed")

	// ErrDegenerate reports an interpolation over a zero-area cell.
	ErrDegenerate = errors.New("degenerate interpolation")

	// ErrSeriesLength reports corner series of unequal length.
	ErrSeriesLength = errors.New("series length mismatch")
)

// Kind identifies the coordinate an axis represents.
type Kind int

const (
	Latitude Kind = iota
	Longitude
)

// Step returns the fixed node spacing in degrees for the axis kind.
func (k Kind) Step() float64 {
	if k == Longitude {
		return 0.625
	}
	return 0.5
}

func (k Kind) String() string {
	switch k {
	case Latitude:
		return "latitude"
	case Longitude:
		return "longitude"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Axis is an ascending coordinate array.
type Axis struct {
	Kind   Kind
	Values []float64
}

// NewAxis builds an axis of n nodes starting at start, spaced by the kind's step.
func NewAxis(kind Kind, start float64, n int) Axis {
	values := make([]float64, n)
	for i := range values {
		values[i] = start + float64(i)*kind.Step()
	}
	return Axis{Kind: kind, Values: values}
}

// Len returns the number of nodes.
func (a Axis) Len() int { return len(a.Values) }

// wrapsGlobe reports whether a longitude axis covers the full circle, so the
// node after the last one is the first.
func (a Axis) wrapsGlobe() bool {
	if a.Kind != Longitude || len(a.Values) < 2 {
		return false
	}
	step := a.Kind.Step()
	next := a.Values[len(a.Values)-1] + step
	return math.Abs(next-(a.Values[0]+360)) < step/2
}

// Bracket is the result of resolving a query value against an axis.
// Exact results carry a single index in Lower and Upper == -1.
type Bracket struct {
	Lower int     `json:"lower"`
	Upper int     `json:"upper"`
	Exact bool    `json:"exact"`
	Floor float64 `json:"floor"`
}

// Sampler resolves coordinates and samples grids. The zero value uses
// DefaultEpsilon.
type Sampler struct {
	Epsilon float64
}

// NewSampler returns a Sampler with the given floor-matching tolerance.
// Non-positive values select DefaultEpsilon.
func NewSampler(epsilon float64) *Sampler {
	if epsilon <= 0 {
		epsilon = DefaultEpsilon
	}
	return &Sampler{Epsilon: epsilon}
}

func (s *Sampler) epsilon() float64 {
	if s == nil || s.Epsilon <= 0 {
		return DefaultEpsilon
	}
	return s.Epsilon
}

// Resolve locates v on the axis. An exactly equal node wins over any
// tolerance match. Otherwise the node within epsilon of floor(v/step)*step
// becomes the lower bracket and its successor the upper one.
func (s *Sampler) Resolve(axis Axis, v float64) (Bracket, error) {
	values := axis.Values
	if len(values) == 0 {
		return Bracket{}, fmt.Errorf("%w: empty %s axis", ErrAxisLookup, axis.Kind)
	}

	if i, ok := slices.BinarySearch(values, v); ok {
		return Bracket{Lower: i, Upper: -1, Exact: true, Floor: v}, nil
	}

	step := axis.Kind.Step()
	floor := math.Floor(v/step) * step

	lower, ok := s.nearest(values, floor)
	if !ok {
		return Bracket{}, fmt.Errorf("%w: no %s node within %g of %g (query %g)",
			ErrAxisLookup, axis.Kind, s.epsilon(), floor, v)
	}

	upper := lower + 1
	if upper == len(values) {
		if !axis.wrapsGlobe() {
			return Bracket{}, fmt.Errorf("%w: %s %g lies beyond the last node %g",
				ErrAxisLookup, axis.Kind, v, values[lower])
		}
		upper = 0
	}

	return Bracket{Lower: lower, Upper: upper, Floor: floor}, nil
}

// nearest finds the index of the node within epsilon of target. Stored nodes
// may sit on either side of target, so both neighbours of the insertion point
// are checked.
func (s *Sampler) nearest(values []float64, target float64) (int, bool) {
	eps := s.epsilon()
	j, _ := slices.BinarySearch(values, target)
	for _, k := range [...]int{j - 1, j} {
		if k < 0 || k >= len(values) {
			continue
		}
		if math.Abs(values[k]-target) < eps {
			return k, true
		}
	}
	return 0, false
}
