package merra2

import (
	"fmt"
	"math"
	"time"

	"github.com/couchcryptid/merra2-etl/internal/grid"
	"github.com/fhs/go-netcdf/netcdf"
)

// FillValue is the MERRA-2 missing-data marker.
const FillValue float32 = 1e15

// Write stores g as a NETCDF4 file laid out like a M2T1NXSLV collection:
// dimensions (time, lat, lon), hourly time in minutes since day 00:30 and the
// variable as float32 with a _FillValue. NaN cells are written as fill.
func Write(path string, day time.Time, g grid.Grid, variable, units string) (err error) {
	if err := g.Validate(); err != nil {
		return err
	}

	ds, err := netcdf.CreateFile(path, netcdf.CLOBBER|netcdf.NETCDF4)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := ds.Close(); err == nil {
			err = cerr
		}
	}()

	timeDim, err := ds.AddDim("time", uint64(g.Field.NTime))
	if err != nil {
		return err
	}
	latDim, err := ds.AddDim("lat", uint64(g.Field.NLat))
	if err != nil {
		return err
	}
	lonDim, err := ds.AddDim("lon", uint64(g.Field.NLon))
	if err != nil {
		return err
	}

	timeVar, err := ds.AddVar("time", netcdf.INT, []netcdf.Dim{timeDim})
	if err != nil {
		return err
	}
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 30, 0, 0, time.UTC)
	if err := timeVar.Attr("units").WriteBytes([]byte("minutes since " + start.Format(time.DateTime))); err != nil {
		return err
	}

	latVar, err := ds.AddVar("lat", netcdf.DOUBLE, []netcdf.Dim{latDim})
	if err != nil {
		return err
	}
	if err := latVar.Attr("units").WriteBytes([]byte("degrees_north")); err != nil {
		return err
	}
	lonVar, err := ds.AddVar("lon", netcdf.DOUBLE, []netcdf.Dim{lonDim})
	if err != nil {
		return err
	}
	if err := lonVar.Attr("units").WriteBytes([]byte("degrees_east")); err != nil {
		return err
	}

	dataVar, err := ds.AddVar(variable, netcdf.FLOAT, []netcdf.Dim{timeDim, latDim, lonDim})
	if err != nil {
		return err
	}
	if err := dataVar.Attr("_FillValue").WriteFloat32s([]float32{FillValue}); err != nil {
		return err
	}
	if units != "" {
		if err := dataVar.Attr("units").WriteBytes([]byte(units)); err != nil {
			return err
		}
	}

	if err := ds.EndDef(); err != nil {
		return err
	}

	minutes := make([]int32, g.Field.NTime)
	for i := range minutes {
		minutes[i] = int32(i * 60)
	}
	if err := timeVar.WriteInt32s(minutes); err != nil {
		return err
	}
	if err := latVar.WriteFloat64s(g.Lat.Values); err != nil {
		return err
	}
	if err := lonVar.WriteFloat64s(g.Lon.Values); err != nil {
		return err
	}

	data := make([]float32, len(g.Field.Values))
	for i, x := range g.Field.Values {
		if math.IsNaN(x) {
			data[i] = FillValue
			continue
		}
		data[i] = float32(x)
	}
	return dataVar.WriteFloat32s(data)
}
