package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DefaultLocations are the sites of the February 2018 cold-wave study.
var DefaultLocations = []Location{
	{Name: "East Anglia", Lat: 52.242, Lon: 0.692},
	{Name: "Bridgend", Lat: 51.5043, Lon: 3.5769},
	{Name: "Orkney islands", Lat: 58.9809, Lon: 2.9605},
	{Name: "Southampton", Lat: 50.9097, Lon: 1.4044},
}

// DayRange returns n consecutive UTC days starting at start.
func DayRange(start time.Time, n int) []time.Time {
	start = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	days := make([]time.Time, n)
	for i := range days {
		days[i] = start.AddDate(0, 0, i)
	}
	return days
}

// ParseLocations parses a semicolon-separated list of name=lat,lon entries,
// e.g. "East Anglia=52.242,0.692;Bridgend=51.5043,3.5769".
func ParseLocations(s string) ([]Location, error) {
	var locs []Location
	for _, part := range strings.Split(s, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, coords, ok := strings.Cut(part, "=")
		if !ok {
			return nil, fmt.Errorf("%w: location %q is not name=lat,lon", ErrInvalidRequest, part)
		}
		latStr, lonStr, ok := strings.Cut(coords, ",")
		if !ok {
			return nil, fmt.Errorf("%w: location %q is not name=lat,lon", ErrInvalidRequest, part)
		}
		lat, err := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: location %q latitude: %v", ErrInvalidRequest, part, err)
		}
		lon, err := strconv.ParseFloat(strings.TrimSpace(lonStr), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: location %q longitude: %v", ErrInvalidRequest, part, err)
		}
		loc := Location{Name: strings.TrimSpace(name), Lat: lat, Lon: lon}
		if err := loc.Validate(); err != nil {
			return nil, err
		}
		locs = append(locs, loc)
	}
	if len(locs) == 0 {
		return nil, fmt.Errorf("%w: no locations given", ErrInvalidRequest)
	}
	return locs, nil
}
