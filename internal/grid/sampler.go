package grid

import "fmt"

// Method records how a sample was produced.
type Method string

const (
	MethodExact     Method = "exact"
	MethodBilinear  Method = "bilinear"
	MethodLinearLat Method = "linear_lat"
	MethodLinearLon Method = "linear_lon"
)

// Sample is the estimated series at a query point.
type Sample struct {
	Values []float64 `json:"values"`
	Method Method    `json:"method"`
	Lat    Bracket   `json:"lat"`
	Lon    Bracket   `json:"lon"`
}

// Sample estimates the field at p. Exact nodes on both axes are read
// directly; a point on a node along one axis only is interpolated linearly
// along the other; everything else is bilinear.
func (s *Sampler) Sample(g Grid, p Point) (Sample, error) {
	if err := g.Validate(); err != nil {
		return Sample{}, err
	}

	lat, err := s.Resolve(g.Lat, p.Lat)
	if err != nil {
		return Sample{}, fmt.Errorf("resolve latitude %g: %w", p.Lat, err)
	}
	lon, err := s.Resolve(g.Lon, p.Lon)
	if err != nil {
		return Sample{}, fmt.Errorf("resolve longitude %g: %w", p.Lon, err)
	}

	out := Sample{Lat: lat, Lon: lon}
	f := g.Field

	switch {
	case lat.Exact && lon.Exact:
		out.Method = MethodExact
		out.Values = f.Series(lat.Lower, lon.Lower)
	case lat.Exact:
		out.Method = MethodLinearLon
		out.Values, err = Lerp(p.Lon, lon.Floor, lon.Floor+Longitude.Step(),
			f.Series(lat.Lower, lon.Lower), f.Series(lat.Lower, lon.Upper))
	case lon.Exact:
		out.Method = MethodLinearLat
		out.Values, err = Lerp(p.Lat, lat.Floor, lat.Floor+Latitude.Step(),
			f.Series(lat.Lower, lon.Lower), f.Series(lat.Upper, lon.Lower))
	default:
		out.Method = MethodBilinear
		out.Values, err = Interpolate(p, RectFor(lat, lon), Corners{
			Q11: f.Series(lat.Lower, lon.Lower),
			Q12: f.Series(lat.Lower, lon.Upper),
			Q21: f.Series(lat.Upper, lon.Lower),
			Q22: f.Series(lat.Upper, lon.Upper),
		})
	}
	if err != nil {
		return Sample{}, err
	}
	return out, nil
}
