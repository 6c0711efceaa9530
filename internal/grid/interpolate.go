package grid

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// Point is a query location in degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Rect is the cell spanned by two brackets, Lat1 < Lat2 and Lon1 < Lon2.
type Rect struct {
	Lat1, Lat2 float64
	Lon1, Lon2 float64
}

// RectFor returns the cell whose lower corner is the floor of each bracket.
func RectFor(lat, lon Bracket) Rect {
	return Rect{
		Lat1: lat.Floor,
		Lat2: lat.Floor + Latitude.Step(),
		Lon1: lon.Floor,
		Lon2: lon.Floor + Longitude.Step(),
	}
}

// Area returns the cell area in square degrees.
func (r Rect) Area() float64 {
	return (r.Lat2 - r.Lat1) * (r.Lon2 - r.Lon1)
}

// Corners holds the per-time series at the four cell corners:
// Q11 (lat1, lon1), Q12 (lat1, lon2), Q21 (lat2, lon1), Q22 (lat2, lon2).
type Corners struct {
	Q11, Q12, Q21, Q22 []float64
}

// Weights returns the bilinear coefficients for Q11, Q12, Q21 and Q22.
// For points inside the cell they are non-negative and sum to 1.
func Weights(p Point, r Rect) [4]float64 {
	area := r.Area()
	return [4]float64{
		(r.Lat2 - p.Lat) * (r.Lon2 - p.Lon) / area,
		(r.Lat2 - p.Lat) * (p.Lon - r.Lon1) / area,
		(p.Lat - r.Lat1) * (r.Lon2 - p.Lon) / area,
		(p.Lat - r.Lat1) * (p.Lon - r.Lon1) / area,
	}
}

// Interpolate estimates the series at p from the four corner series.
// Results are neither rounded nor clamped.
func Interpolate(p Point, r Rect, c Corners) ([]float64, error) {
	if !(r.Area() > 0) {
		return nil, fmt.Errorf("%w: cell %+v has area %g", ErrDegenerate, r, r.Area())
	}
	n := len(c.Q11)
	if len(c.Q12) != n || len(c.Q21) != n || len(c.Q22) != n {
		return nil, fmt.Errorf("%w: corners have %d/%d/%d/%d values",
			ErrSeriesLength, len(c.Q11), len(c.Q12), len(c.Q21), len(c.Q22))
	}

	w := Weights(p, r)
	out := make([]float64, n)
	floats.ScaleTo(out, w[0], c.Q11)
	floats.AddScaled(out, w[1], c.Q12)
	floats.AddScaled(out, w[2], c.Q21)
	floats.AddScaled(out, w[3], c.Q22)
	return out, nil
}

// Lerp linearly interpolates between series a at x1 and b at x2, evaluated at t.
func Lerp(t, x1, x2 float64, a, b []float64) ([]float64, error) {
	span := x2 - x1
	if !(span > 0) {
		return nil, fmt.Errorf("%w: span [%g, %g]", ErrDegenerate, x1, x2)
	}
	if len(a) != len(b) {
		return nil, fmt.Errorf("%w: %d and %d values", ErrSeriesLength, len(a), len(b))
	}

	out := make([]float64, len(a))
	floats.ScaleTo(out, (x2-t)/span, a)
	floats.AddScaled(out, (t-x1)/span, b)
	return out, nil
}
