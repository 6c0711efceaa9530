// Package domain models point extraction from MERRA-2 reanalysis grids.
//
// # Data Source
//
// MERRA-2 hourly single-level diagnostics (collection M2T1NXSLV, file name
// pattern "MERRA2_400.tavg1_2d_slv_Nx.YYYYMMDD.nc4") are distributed by NASA
// GES DISC at https://goldsmr4.gesdisc.eosdis.nasa.gov/data/MERRA2/M2T1NXSLV.5.12.4/
// behind an Earthdata login. Each daily file holds 24 hourly time-averaged
// fields on a regular 0.5 x 0.625 degree grid. The "400" stream prefix covers
// 2011 onwards; older years use 100, 200 or 300.
//
// # Variables and Units
//
// Every requested variable is a (time, lat, lon) array. Temperature variables
// (T2M, T10M, T2MDEW, T2MWET, TS, T250, T500, T850, TROPT) are stored in
// Kelvin; profiles for them also carry a Celsius series (K - 273.15). Other
// variables are returned in their native units only.
//
// # Requests
//
// A request names a location and a day:
//
//	{"location":{"name":"East Anglia","lat":52.242,"lon":0.692},"day":"20180222","variable":"T2M"}
//
// The variable defaults to T2M. Latitude must lie in [-90, 90] and longitude
// in [-180, 180), matching the MERRA-2 longitude convention.
//
// # Sampling
//
// The grid package resolves the location against the day's axes. Locations
// on a grid node are read directly, everything else is interpolated (see
// [grid.Sampler.Sample]). A location outside the grid fails that request only.
//
// # Tabular Forms
//
// Multi-day extraction produces two tables per location: a square table
// (hour rows, one column per day) and a long series (all days concatenated,
// indexed by elapsed seconds in 3600 s steps and by wall-clock hour).
//
// # ID Generation
//
// Profile IDs are deterministic SHA-256 hashes of variable|lat|lon|day, so
// replaying a request overwrites the same stored profile instead of adding a
// duplicate. See [generateID].
package domain
