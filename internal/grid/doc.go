// Package grid resolves query coordinates against regular latitude/longitude
// axes and estimates field values between grid nodes.
//
// # MERRA-2 Grid Conventions
//
// Single-level MERRA-2 collections (e.g. M2T1NXSLV, "tavg1_2d_slv_Nx") use a
// regular global grid:
//
//	latitude:  361 nodes, -90 .. 90 in 0.5 degree steps
//	longitude: 576 nodes, -180 .. 179.375 in 0.625 degree steps
//	time:      24 hourly averages per daily file
//
// Stored coordinates carry tiny representation artifacts. The latitude node
// for the equator is stored as -1.797510e-13 and the prime meridian as
// -5.920304e-13, so a tolerance is needed when matching a computed floor value
// against the axis. See [DefaultEpsilon].
//
// # Resolution
//
// [Sampler.Resolve] first looks for a node exactly equal to the query. Only
// when none exists does it compute floor(v/step)*step and look for a node
// within the epsilon of that floor. The result is a [Bracket]: either one
// exact index, or a (lower, upper) pair of adjacent indices.
//
// # Interpolation
//
// [Interpolate] is the standard bilinear estimate over the rectangle formed by
// the two brackets:
//
//	area = (lat2-lat1) * (lon2-lon1)
//	v = (lat2-lat)(lon2-lon)/area * q11
//	  + (lat-lat1)(lon2-lon)/area * q21
//	  + (lat2-lat)(lon-lon1)/area * q12
//	  + (lat-lat1)(lon-lon1)/area * q22
//
// applied independently to every time step. When the query sits on a node
// along exactly one axis, [Sampler.Sample] falls back to [Lerp] along the
// other axis instead of evaluating a zero-area rectangle.
package grid
