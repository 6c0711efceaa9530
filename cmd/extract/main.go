// Command extract samples MERRA-2 daily files at a set of named locations
// over a run of days and writes the results to an Excel workbook with a
// square (hour x day) and a long (hourly series) sheet per location.
// A location that fails is reported and left out; the others are still
// written.
//
// Usage:
//
//	go run ./cmd/extract \
//	  -data-dir data/merra2 \
//	  -start 20180222 -days 11 \
//	  -out temperature_data_all_locations.xlsx
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/couchcryptid/merra2-etl/internal/adapter/gridcache"
	"github.com/couchcryptid/merra2-etl/internal/adapter/merra2"
	"github.com/couchcryptid/merra2-etl/internal/adapter/xlsx"
	"github.com/couchcryptid/merra2-etl/internal/config"
	"github.com/couchcryptid/merra2-etl/internal/domain"
	"github.com/couchcryptid/merra2-etl/internal/grid"
	"github.com/couchcryptid/merra2-etl/internal/observability"
	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/joho/godotenv"
)

// outcome tracks the result of one location.
type outcome struct {
	location domain.Location
	profiles []domain.Profile
	err      error
}

func main() {
	if err := loadEnvFile(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "WARN: %v\n", err)
	}

	dataDir := flag.String("data-dir", sharedcfg.EnvOrDefault("MERRA2_DATA_DIR", "./data/merra2"), "directory holding the daily .nc4 files")
	prefix := flag.String("prefix", sharedcfg.EnvOrDefault("MERRA2_FILE_PREFIX", "MERRA2_400.tavg1_2d_slv_Nx."), "file name prefix")
	start := flag.String("start", "20180222", "first day (YYYYMMDD)")
	days := flag.Int("days", 11, "number of consecutive days")
	variable := flag.String("variable", sharedcfg.EnvOrDefault("MERRA2_VARIABLE", domain.DefaultVariable), "variable to extract")
	locations := flag.String("locations", "", `locations as "name=lat,lon;..." (default: the four study sites)`)
	epsilon := flag.Float64("epsilon", grid.DefaultEpsilon, "axis matching tolerance")
	out := flag.String("out", "temperature_data_all_locations.xlsx", "output workbook path")
	logLevel := flag.String("log-level", sharedcfg.EnvOrDefault("LOG_LEVEL", "info"), "log level")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	code := run(ctx, runConfig{
		dataDir:   *dataDir,
		prefix:    *prefix,
		start:     *start,
		days:      *days,
		variable:  *variable,
		locations: *locations,
		epsilon:   *epsilon,
		out:       *out,
		logLevel:  *logLevel,
	})
	stop()
	os.Exit(code)
}

// loadEnvFile applies a dotenv file. A missing file is not an error.
func loadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

type runConfig struct {
	dataDir, prefix, start string
	days                   int
	variable, locations    string
	epsilon                float64
	out, logLevel          string
}

func run(ctx context.Context, rc runConfig) int {
	logger := observability.NewLogger(&config.Config{LogLevel: rc.logLevel, LogFormat: "text"})
	metrics := observability.NewMetrics()

	first, err := time.Parse(domain.DayLayout, rc.start)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: invalid -start %q: %v\n", rc.start, err)
		return 2
	}
	if rc.days < 1 {
		fmt.Fprintf(os.Stderr, "FATAL: -days must be positive, got %d\n", rc.days)
		return 2
	}
	locs := domain.DefaultLocations
	if rc.locations != "" {
		if locs, err = domain.ParseLocations(rc.locations); err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
			return 2
		}
	}

	dayList := domain.DayRange(first, rc.days)
	source := gridcache.New(merra2.NewReader(rc.dataDir, rc.prefix, logger, metrics), len(dayList), metrics)
	sampler := grid.NewSampler(rc.epsilon)

	fmt.Printf("=== MERRA-2 %s extraction: %s, %d days, %d locations ===\n\n",
		rc.variable, dayList[0].Format(domain.DayLayout), len(dayList), len(locs))

	outcomes := make([]outcome, 0, len(locs))
	for _, loc := range locs {
		profiles, err := domain.ExtractLocation(ctx, source, sampler, loc, dayList, rc.variable)
		if err != nil {
			logger.Error("location failed", "location", loc.Name, "error", err)
		}
		outcomes = append(outcomes, outcome{location: loc, profiles: profiles, err: err})
	}

	wb := xlsx.New()
	defer wb.Close()

	written, failed := 0, 0
	for _, o := range outcomes {
		status := "\033[32mOK\033[0m"
		if o.err == nil {
			if err := wb.AddLocation(o.location.Name, o.profiles); err != nil {
				o.err = err
			}
		}
		if o.err != nil {
			status = "\033[31mFAIL\033[0m"
			failed++
		} else {
			written++
		}
		fmt.Printf("  %-24s (%8.4f, %8.4f)  %s\n", o.location.Name, o.location.Lat, o.location.Lon, status)
		if o.err == nil {
			fmt.Printf("      method %s, %d hourly values\n", o.profiles[0].Method, len(domain.LongSeries(o.profiles)))
		} else {
			fmt.Printf("      %v\n", o.err)
		}
	}
	fmt.Println()

	if written == 0 {
		fmt.Fprintln(os.Stderr, "FATAL: no location could be extracted")
		return 1
	}
	if err := wb.SaveAs(rc.out); err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: write %s: %v\n", rc.out, err)
		return 1
	}
	fmt.Printf("wrote %s (%d locations)\n", rc.out, written)

	if failed > 0 {
		return 1
	}
	return 0
}
