package domain

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSquareTable(t *testing.T) {
	d1 := time.Date(2018, time.February, 22, 0, 0, 0, 0, time.UTC)
	d2 := d1.AddDate(0, 0, 1)

	table := NewSquareTable([]Profile{
		{Day: d1, Values: []float64{280, 281, 282}, Celsius: []float64{6.85, 7.85, 8.85}},
		{Day: d2, Values: []float64{1, 2, 3}},
	})

	assert.Equal(t, []time.Time{d1, d2}, table.Days)
	want := [][]float64{
		{6.85, 1},
		{7.85, 2},
		{8.85, 3},
	}
	if diff := cmp.Diff(want, table.Rows); diff != "" {
		t.Fatalf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestLongSeries(t *testing.T) {
	d1 := time.Date(2018, time.February, 22, 0, 0, 0, 0, time.UTC)
	d2 := d1.AddDate(0, 0, 1)

	records := LongSeries([]Profile{
		{Day: d1, Values: []float64{1, 2}},
		{Day: d2, Values: []float64{3, 4}},
	})

	require.Len(t, records, 4)
	want := []HourlyRecord{
		{Elapsed: 0, Time: d1, Value: 1},
		{Elapsed: 3600, Time: d1.Add(time.Hour), Value: 2},
		{Elapsed: 7200, Time: d2, Value: 3},
		{Elapsed: 10800, Time: d2.Add(time.Hour), Value: 4},
	}
	if diff := cmp.Diff(want, records); diff != "" {
		t.Fatalf("records mismatch (-want +got):\n%s", diff)
	}
}

func TestLongSeries_Empty(t *testing.T) {
	assert.Empty(t, LongSeries(nil))
}
