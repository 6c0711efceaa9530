// Command genmock writes synthetic MERRA-2 tavg1_2d_slv_Nx files and a
// matching set of extraction requests, for local runs of merra2-etl and
// cmd/extract without downloading reanalysis data.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -out-dir data/merra2 \
//	  -start 20180222 -days 11 \
//	  -requests data/mock/requests.json
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/couchcryptid/merra2-etl/internal/adapter/merra2"
	"github.com/couchcryptid/merra2-etl/internal/domain"
	"github.com/couchcryptid/merra2-etl/internal/grid"
)

// region bounds the generated grid in node-aligned degrees.
type region struct {
	lat0, lon0 float64
	nLat, nLon int
}

var regions = map[string]region{
	// 48N..61N, 10W..5E: covers the default UK locations.
	"uk": {lat0: 48, lon0: -10, nLat: 27, nLon: 25},
	// Full MERRA-2 grid: 361 x 576.
	"global": {lat0: -90, lon0: -180, nLat: 361, nLon: 576},
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	outDir := flag.String("out-dir", "data/merra2", "directory for generated .nc4 files")
	prefix := flag.String("prefix", "MERRA2_400.tavg1_2d_slv_Nx.", "file name prefix")
	start := flag.String("start", "20180222", "first day (YYYYMMDD)")
	days := flag.Int("days", 11, "number of consecutive days")
	variable := flag.String("variable", domain.DefaultVariable, "variable name to write")
	regionName := flag.String("region", "uk", "grid extent: uk or global")
	requestsOut := flag.String("requests", "", "optional output path for JSON extraction requests")
	flag.Parse()

	first, err := time.Parse(domain.DayLayout, *start)
	if err != nil {
		return fmt.Errorf("invalid -start %q: %w", *start, err)
	}
	if *days < 1 {
		return fmt.Errorf("-days must be positive, got %d", *days)
	}
	reg, ok := regions[*regionName]
	if !ok {
		return fmt.Errorf("unknown -region %q", *regionName)
	}
	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		return err
	}

	dayList := domain.DayRange(first, *days)
	for i, day := range dayList {
		g, err := syntheticGrid(reg, i)
		if err != nil {
			return err
		}
		path := filepath.Join(*outDir, merra2.FileName(*prefix, day))
		if err := merra2.Write(path, day, g, *variable, "K"); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
		log.Printf("wrote %s (%d x %d x %d)", path, g.Field.NTime, g.Field.NLat, g.Field.NLon)
	}

	if *requestsOut != "" {
		if err := writeRequests(*requestsOut, dayList, *variable); err != nil {
			return fmt.Errorf("writing requests: %w", err)
		}
		log.Printf("wrote requests: %s", *requestsOut)
	}
	return nil
}

// syntheticGrid builds 24 hourly 2 m temperature fields in Kelvin: a
// latitude gradient, a diurnal cycle peaking at 15 UTC and a cooling trend
// across days.
func syntheticGrid(reg region, dayIndex int) (grid.Grid, error) {
	lat := grid.NewAxis(grid.Latitude, reg.lat0, reg.nLat)
	lon := grid.NewAxis(grid.Longitude, reg.lon0, reg.nLon)

	values := make([]float64, 0, 24*reg.nLat*reg.nLon)
	for h := 0; h < 24; h++ {
		diurnal := 4 * math.Cos(2*math.Pi*float64(h-15)/24)
		for _, la := range lat.Values {
			for _, lo := range lon.Values {
				v := 300 - 0.6*math.Abs(la) + 0.05*lo + diurnal - 0.8*float64(dayIndex)
				values = append(values, math.Round(v*100)/100)
			}
		}
	}

	field, err := grid.NewField(24, reg.nLat, reg.nLon, values)
	if err != nil {
		return grid.Grid{}, err
	}
	return grid.Grid{Lat: lat, Lon: lon, Field: field}, nil
}

func writeRequests(path string, days []time.Time, variable string) error {
	reqs := make([]domain.Request, 0, len(days)*len(domain.DefaultLocations))
	for _, loc := range domain.DefaultLocations {
		for _, day := range days {
			reqs = append(reqs, domain.Request{
				Location: loc,
				Day:      day.Format(domain.DayLayout),
				Variable: variable,
			})
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(reqs, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o600)
}
