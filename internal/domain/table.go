package domain

import "time"

// SquareTable lays out profiles as hour rows and one column per day.
type SquareTable struct {
	Days []time.Time
	// Rows[h][d] is hour h of day d.
	Rows [][]float64
}

// NewSquareTable builds the hour x day table from profiles in day order.
// Cells missing from shorter profiles stay zero.
func NewSquareTable(profiles []Profile) SquareTable {
	hours := 0
	for _, p := range profiles {
		hours = max(hours, len(p.Display()))
	}

	t := SquareTable{
		Days: make([]time.Time, len(profiles)),
		Rows: make([][]float64, hours),
	}
	for h := range t.Rows {
		t.Rows[h] = make([]float64, len(profiles))
	}
	for d, p := range profiles {
		t.Days[d] = p.Day
		for h, v := range p.Display() {
			t.Rows[h][d] = v
		}
	}
	return t
}

// HourlyRecord is one row of the long series.
type HourlyRecord struct {
	Elapsed int64     // seconds since the first hour
	Time    time.Time // wall-clock hour (UTC)
	Value   float64
}

// LongSeries concatenates profiles into one hourly series.
func LongSeries(profiles []Profile) []HourlyRecord {
	var n int
	for _, p := range profiles {
		n += len(p.Display())
	}

	out := make([]HourlyRecord, 0, n)
	for _, p := range profiles {
		for h, v := range p.Display() {
			out = append(out, HourlyRecord{
				Elapsed: int64(len(out)) * 3600,
				Time:    p.Day.Add(time.Duration(h) * time.Hour),
				Value:   v,
			})
		}
	}
	return out
}
