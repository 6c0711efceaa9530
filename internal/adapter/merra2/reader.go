// Package merra2 reads and writes MERRA-2 single-level NetCDF4 files.
package merra2

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/couchcryptid/merra2-etl/internal/domain"
	"github.com/couchcryptid/merra2-etl/internal/grid"
	"github.com/couchcryptid/merra2-etl/internal/observability"
	"github.com/fhs/go-netcdf/netcdf"
)

// Reader loads daily grids from a directory of M2T1NXSLV files named
// <prefix><YYYYMMDD>.nc4.
type Reader struct {
	dir     string
	prefix  string
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewReader creates a Reader rooted at dir.
func NewReader(dir, prefix string, logger *slog.Logger, metrics *observability.Metrics) *Reader {
	return &Reader{dir: dir, prefix: prefix, logger: logger, metrics: metrics}
}

// Path returns the file holding the given day.
func (r *Reader) Path(day time.Time) string {
	return filepath.Join(r.dir, FileName(r.prefix, day))
}

// FileName returns the MERRA-2 file name for a day.
func FileName(prefix string, day time.Time) string {
	return prefix + day.UTC().Format(domain.DayLayout) + ".nc4"
}

// LoadGrid implements domain.GridSource. A missing file wraps fs.ErrNotExist.
func (r *Reader) LoadGrid(ctx context.Context, day time.Time, variable string) (grid.Grid, error) {
	if err := ctx.Err(); err != nil {
		return grid.Grid{}, err
	}

	path := r.Path(day)
	if _, err := os.Stat(path); err != nil {
		return grid.Grid{}, fmt.Errorf("merra2 file: %w", err)
	}

	start := time.Now()
	g, err := ReadFile(path, variable)
	if err != nil {
		return grid.Grid{}, err
	}
	elapsed := time.Since(start)
	r.metrics.GridLoadDuration.Observe(elapsed.Seconds())
	r.logger.Debug("grid loaded",
		"path", path,
		"variable", variable,
		"shape", []int{g.Field.NTime, g.Field.NLat, g.Field.NLon},
		"duration", elapsed,
	)
	return g, nil
}

// ReadFile decodes the lat/lon axes and the (time, lat, lon) variable from a
// NetCDF file. Cells equal to the variable's _FillValue become NaN.
func ReadFile(path, variable string) (grid.Grid, error) {
	ds, err := netcdf.OpenFile(path, netcdf.NOWRITE)
	if err != nil {
		return grid.Grid{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer ds.Close()

	lat, err := readAxis(ds, "lat")
	if err != nil {
		return grid.Grid{}, err
	}
	lon, err := readAxis(ds, "lon")
	if err != nil {
		return grid.Grid{}, err
	}

	v, err := ds.Var(variable)
	if err != nil {
		return grid.Grid{}, fmt.Errorf("variable %s: %w", variable, err)
	}
	shape, err := dimLens(v)
	if err != nil {
		return grid.Grid{}, fmt.Errorf("variable %s: %w", variable, err)
	}
	if len(shape) != 3 {
		return grid.Grid{}, fmt.Errorf("variable %s has %d dimensions, want (time, lat, lon)", variable, len(shape))
	}

	values, err := readValues(v, shape[0]*shape[1]*shape[2])
	if err != nil {
		return grid.Grid{}, fmt.Errorf("variable %s: %w", variable, err)
	}
	if err := maskFill(v, values); err != nil {
		return grid.Grid{}, fmt.Errorf("variable %s: %w", variable, err)
	}

	field, err := grid.NewField(shape[0], shape[1], shape[2], values)
	if err != nil {
		return grid.Grid{}, fmt.Errorf("variable %s: %w", variable, err)
	}
	g := grid.Grid{
		Lat:   grid.Axis{Kind: grid.Latitude, Values: lat},
		Lon:   grid.Axis{Kind: grid.Longitude, Values: lon},
		Field: field,
	}
	if err := g.Validate(); err != nil {
		return grid.Grid{}, fmt.Errorf("%s: %w", path, err)
	}
	return g, nil
}

func readAxis(ds netcdf.Dataset, name string) ([]float64, error) {
	v, err := ds.Var(name)
	if err != nil {
		return nil, fmt.Errorf("axis %s: %w", name, err)
	}
	shape, err := dimLens(v)
	if err != nil {
		return nil, fmt.Errorf("axis %s: %w", name, err)
	}
	if len(shape) != 1 {
		return nil, fmt.Errorf("axis %s has %d dimensions", name, len(shape))
	}
	values, err := readValues(v, shape[0])
	if err != nil {
		return nil, fmt.Errorf("axis %s: %w", name, err)
	}
	return values, nil
}

func dimLens(v netcdf.Var) ([]int, error) {
	dims, err := v.Dims()
	if err != nil {
		return nil, err
	}
	lens := make([]int, len(dims))
	for i, d := range dims {
		n, err := d.Len()
		if err != nil {
			return nil, err
		}
		lens[i] = int(n)
	}
	return lens, nil
}

func readValues(v netcdf.Var, n int) ([]float64, error) {
	t, err := v.Type()
	if err != nil {
		return nil, err
	}
	switch t {
	case netcdf.DOUBLE:
		out := make([]float64, n)
		if err := v.ReadFloat64s(out); err != nil {
			return nil, err
		}
		return out, nil
	case netcdf.FLOAT:
		buf := make([]float32, n)
		if err := v.ReadFloat32s(buf); err != nil {
			return nil, err
		}
		out := make([]float64, n)
		for i, x := range buf {
			out[i] = float64(x)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported type %v", t)
	}
}

// maskFill replaces _FillValue cells with NaN. Variables without the
// attribute are left untouched.
func maskFill(v netcdf.Var, values []float64) error {
	attr := v.Attr("_FillValue")
	if n, err := attr.Len(); err != nil || n != 1 {
		return nil
	}

	t, err := v.Type()
	if err != nil {
		return err
	}
	var fill float64
	switch t {
	case netcdf.DOUBLE:
		buf := make([]float64, 1)
		if err := attr.ReadFloat64s(buf); err != nil {
			return err
		}
		fill = buf[0]
	case netcdf.FLOAT:
		buf := make([]float32, 1)
		if err := attr.ReadFloat32s(buf); err != nil {
			return err
		}
		fill = float64(buf[0])
	default:
		return nil
	}

	for i, x := range values {
		if x == fill {
			values[i] = math.NaN()
		}
	}
	return nil
}
