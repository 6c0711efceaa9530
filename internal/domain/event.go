package domain

import (
	"context"
	"time"

	"github.com/couchcryptid/merra2-etl/internal/grid"
)

// RawEvent represents an unprocessed message from the source topic.
type RawEvent struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// Location is a named point of interest in WGS-84 degrees.
type Location struct {
	Name string  `json:"name,omitempty"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
}

// Point returns the location as a grid query point.
func (l Location) Point() grid.Point {
	return grid.Point{Lat: l.Lat, Lon: l.Lon}
}

// Request asks for one variable at one location on one day.
type Request struct {
	Location Location `json:"location"`
	Day      string   `json:"day"` // YYYYMMDD
	Variable string   `json:"variable,omitempty"`
}

// Profile is the extracted hourly series for a request.
type Profile struct {
	ID       string      `json:"id"`
	Location Location    `json:"location"`
	Day      time.Time   `json:"day"`
	Variable string      `json:"variable"`
	Method   grid.Method `json:"method"`
	Units    string      `json:"units,omitempty"`
	Values   []float64   `json:"values"`

	// Celsius is set for temperature variables only.
	Celsius []float64 `json:"celsius,omitempty"`

	ProcessedAt time.Time `json:"processed_at"`
}

// Display returns the series shown in tables: Celsius when available,
// native values otherwise.
func (p Profile) Display() []float64 {
	if len(p.Celsius) > 0 {
		return p.Celsius
	}
	return p.Values
}
