package domain

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/merra2-etl/internal/grid"
	"gonum.org/v1/gonum/floats"
)

// DayLayout is the date format used in MERRA-2 file names and requests.
const DayLayout = "20060102"

// DefaultVariable is extracted when a request names none.
const DefaultVariable = "T2M"

// absoluteZero is 0 degC in Kelvin.
const absoluteZero = 273.15

var (
	// ErrInvalidRequest reports a request that cannot be served.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrMissingData reports a sample touching _FillValue cells.
	ErrMissingData = errors.New("missing data")
)

// temperatureVariables are the M2T1NXSLV fields stored in Kelvin.
var temperatureVariables = map[string]bool{
	"T2M": true, "T10M": true, "T2MDEW": true, "T2MWET": true, "TS": true,
	"T250": true, "T500": true, "T850": true, "TROPT": true,
}

// IsTemperature reports whether the variable is stored in Kelvin.
func IsTemperature(variable string) bool {
	return temperatureVariables[strings.ToUpper(variable)]
}

// ParseRequest deserializes a RawEvent's value into a validated Request.
func ParseRequest(raw RawEvent) (Request, error) {
	return ParseRequestDefault(raw, DefaultVariable)
}

// ParseRequestDefault is ParseRequest with variable used when the payload
// names none.
func ParseRequestDefault(raw RawEvent, variable string) (Request, error) {
	var req Request
	if err := json.Unmarshal(raw.Value, &req); err != nil {
		return Request{}, fmt.Errorf("parse request: %w", err)
	}
	if strings.TrimSpace(req.Variable) == "" {
		req.Variable = variable
	}
	req = NormalizeRequest(req)
	if err := req.Validate(); err != nil {
		return Request{}, err
	}
	return req, nil
}

// NormalizeRequest trims and upper-cases the variable, applying the default.
func NormalizeRequest(req Request) Request {
	req.Variable = strings.ToUpper(strings.TrimSpace(req.Variable))
	if req.Variable == "" {
		req.Variable = DefaultVariable
	}
	req.Day = strings.TrimSpace(req.Day)
	req.Location.Name = strings.TrimSpace(req.Location.Name)
	return req
}

// Validate checks coordinates, day and variable.
func (r Request) Validate() error {
	if err := r.Location.Validate(); err != nil {
		return err
	}
	if _, err := r.ParseDay(); err != nil {
		return err
	}
	if r.Variable == "" {
		return fmt.Errorf("%w: variable is required", ErrInvalidRequest)
	}
	return nil
}

// ParseDay returns the request day at UTC midnight.
func (r Request) ParseDay() (time.Time, error) {
	day, err := time.Parse(DayLayout, r.Day)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: day %q is not YYYYMMDD", ErrInvalidRequest, r.Day)
	}
	return day, nil
}

// Validate checks the coordinates lie on the MERRA-2 globe.
func (l Location) Validate() error {
	if math.IsNaN(l.Lat) || l.Lat < -90 || l.Lat > 90 {
		return fmt.Errorf("%w: latitude %g outside [-90, 90]", ErrInvalidRequest, l.Lat)
	}
	if math.IsNaN(l.Lon) || l.Lon < -180 || l.Lon >= 180 {
		return fmt.Errorf("%w: longitude %g outside [-180, 180)", ErrInvalidRequest, l.Lon)
	}
	return nil
}

// KelvinToCelsius returns a converted copy of the series.
func KelvinToCelsius(kelvin []float64) []float64 {
	out := make([]float64, len(kelvin))
	copy(out, kelvin)
	floats.AddConst(-absoluteZero, out)
	return out
}

// Extract loads the request's day from src, samples it at the request
// location and builds the profile. Lookup failures surface as
// grid.ErrAxisLookup; nothing is substituted for a failed sample.
func Extract(ctx context.Context, src GridSource, sampler *grid.Sampler, req Request) (Profile, error) {
	req = NormalizeRequest(req)
	if err := req.Validate(); err != nil {
		return Profile{}, err
	}
	day, _ := req.ParseDay()

	g, err := src.LoadGrid(ctx, day, req.Variable)
	if err != nil {
		return Profile{}, fmt.Errorf("load %s for %s: %w", req.Variable, req.Day, err)
	}

	sample, err := sampler.Sample(g, req.Location.Point())
	if err != nil {
		return Profile{}, fmt.Errorf("sample %s at (%g, %g) on %s: %w",
			req.Variable, req.Location.Lat, req.Location.Lon, req.Day, err)
	}

	if slices.ContainsFunc(sample.Values, math.IsNaN) {
		return Profile{}, fmt.Errorf("sample %s at (%g, %g) on %s: %w",
			req.Variable, req.Location.Lat, req.Location.Lon, req.Day, ErrMissingData)
	}

	p := Profile{
		ID:          generateID(req.Variable, req.Location.Lat, req.Location.Lon, req.Day),
		Location:    req.Location,
		Day:         day,
		Variable:    req.Variable,
		Method:      sample.Method,
		Values:      sample.Values,
		ProcessedAt: clock.Now(),
	}
	if IsTemperature(req.Variable) {
		p.Units = "K"
		p.Celsius = KelvinToCelsius(sample.Values)
	}
	return p, nil
}

// ExtractLocation extracts one profile per day for a single location. The
// first failure aborts the location and is returned with the offending day.
func ExtractLocation(ctx context.Context, src GridSource, sampler *grid.Sampler, loc Location, days []time.Time, variable string) ([]Profile, error) {
	profiles := make([]Profile, 0, len(days))
	for _, day := range days {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p, err := Extract(ctx, src, sampler, Request{
			Location: loc,
			Day:      day.Format(DayLayout),
			Variable: variable,
		})
		if err != nil {
			return nil, fmt.Errorf("location %q: %w", loc.Name, err)
		}
		profiles = append(profiles, p)
	}
	return profiles, nil
}

// generateID produces a deterministic ID from the request's key fields.
// Reprocessing the same request yields the same ID. Coordinates are hashed at
// full precision; distinct points never share a store or Kafka key.
func generateID(variable string, lat, lon float64, day string) string {
	input := strings.Join([]string{
		variable,
		strconv.FormatFloat(lat, 'g', -1, 64),
		strconv.FormatFloat(lon, 'g', -1, 64),
		day,
	}, "|")
	hash := sha256.Sum256([]byte(input))
	return strings.ToLower(variable) + "-" + hex.EncodeToString(hash[:8])
}
