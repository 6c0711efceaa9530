package grid

import "fmt"

// Field is a (time, lat, lon) array stored row-major:
// Values[(t*NLat+i)*NLon+j].
type Field struct {
	NTime  int
	NLat   int
	NLon   int
	Values []float64
}

// NewField wraps values after checking they match the given shape.
func NewField(nTime, nLat, nLon int, values []float64) (Field, error) {
	if nTime <= 0 || nLat <= 0 || nLon <= 0 {
		return Field{}, fmt.Errorf("invalid field shape (%d, %d, %d)", nTime, nLat, nLon)
	}
	if want := nTime * nLat * nLon; len(values) != want {
		return Field{}, fmt.Errorf("field shape (%d, %d, %d) needs %d values, got %d",
			nTime, nLat, nLon, want, len(values))
	}
	return Field{NTime: nTime, NLat: nLat, NLon: nLon, Values: values}, nil
}

// At returns the value at time step t and grid node (i, j).
func (f Field) At(t, i, j int) float64 {
	return f.Values[(t*f.NLat+i)*f.NLon+j]
}

// Series returns a copy of the per-time values at grid node (i, j).
func (f Field) Series(i, j int) []float64 {
	out := make([]float64, f.NTime)
	for t := range out {
		out[t] = f.At(t, i, j)
	}
	return out
}

// Grid pairs a field with the axes that index it.
type Grid struct {
	Lat   Axis
	Lon   Axis
	Field Field
}

// Validate checks that the axes match the field shape.
func (g Grid) Validate() error {
	if g.Lat.Len() != g.Field.NLat {
		return fmt.Errorf("latitude axis has %d nodes, field has %d rows", g.Lat.Len(), g.Field.NLat)
	}
	if g.Lon.Len() != g.Field.NLon {
		return fmt.Errorf("longitude axis has %d nodes, field has %d columns", g.Lon.Len(), g.Field.NLon)
	}
	if len(g.Field.Values) != g.Field.NTime*g.Field.NLat*g.Field.NLon {
		return fmt.Errorf("field holds %d values for shape (%d, %d, %d)",
			len(g.Field.Values), g.Field.NTime, g.Field.NLat, g.Field.NLon)
	}
	return nil
}
