package gridcache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/couchcryptid/merra2-etl/internal/grid"
	"github.com/couchcryptid/merra2-etl/internal/observability"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSource struct {
	calls int
	err   error
}

func (s *countingSource) LoadGrid(_ context.Context, day time.Time, _ string) (grid.Grid, error) {
	s.calls++
	if s.err != nil {
		return grid.Grid{}, s.err
	}
	return gridFor(float64(day.Day())), nil
}

// gridFor returns a 1x1x1 grid tagged with v so cache entries are distinguishable.
func gridFor(v float64) grid.Grid {
	return grid.Grid{
		Lat:   grid.NewAxis(grid.Latitude, 0, 1),
		Lon:   grid.NewAxis(grid.Longitude, 0, 1),
		Field: grid.Field{NTime: 1, NLat: 1, NLon: 1, Values: []float64{v}},
	}
}

func day(d int) time.Time {
	return time.Date(2020, 1, d, 0, 0, 0, 0, time.UTC)
}

// gatedSource blocks every load until release is closed.
type gatedSource struct {
	calls   atomic.Int32
	started chan struct{}
	release chan struct{}
}

func (s *gatedSource) LoadGrid(_ context.Context, day time.Time, _ string) (grid.Grid, error) {
	if s.calls.Add(1) == 1 {
		close(s.started)
	}
	<-s.release
	return gridFor(float64(day.Day())), nil
}

// --- CachedSource tests ---

func TestCachedSource_ConcurrentMissesShareLoad(t *testing.T) {
	inner := &gatedSource{started: make(chan struct{}), release: make(chan struct{})}
	metrics := observability.NewMetricsForTesting()
	cached := New(inner, 4, metrics)

	const callers = 8
	results := make([]grid.Grid, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = cached.LoadGrid(context.Background(), day(3), "T2M")
		}()
	}

	<-inner.started
	require.Eventually(t, func() bool {
		return testutil.ToFloat64(metrics.GridCache.WithLabelValues("miss")) == callers
	}, time.Second, time.Millisecond)
	close(inner.release)
	wg.Wait()

	assert.Equal(t, int32(1), inner.calls.Load())
	for i := range callers {
		require.NoError(t, errs[i])
		assert.Equal(t, gridFor(3), results[i])
	}
	assert.Equal(t, 1, cached.Len())
}

func TestCachedSource_Hit(t *testing.T) {
	inner := &countingSource{}
	metrics := observability.NewMetricsForTesting()
	cached := New(inner, 4, metrics)

	g1, err := cached.LoadGrid(context.Background(), day(1), "T2M")
	require.NoError(t, err)
	g2, err := cached.LoadGrid(context.Background(), day(1), "t2m")
	require.NoError(t, err)

	assert.Equal(t, g1, g2)
	assert.Equal(t, 1, inner.calls, "should only call inner once")
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.GridCache.WithLabelValues("hit")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.GridCache.WithLabelValues("miss")), 0)
}

func TestCachedSource_DifferentKeysMiss(t *testing.T) {
	inner := &countingSource{}
	cached := New(inner, 4, observability.NewMetricsForTesting())

	_, _ = cached.LoadGrid(context.Background(), day(1), "T2M")
	_, _ = cached.LoadGrid(context.Background(), day(2), "T2M")
	_, _ = cached.LoadGrid(context.Background(), day(1), "T10M")

	assert.Equal(t, 3, inner.calls)
	assert.Equal(t, 3, cached.Len())
}

func TestCachedSource_ErrorsNotCached(t *testing.T) {
	inner := &countingSource{err: errors.New("file missing")}
	cached := New(inner, 4, observability.NewMetricsForTesting())

	_, err := cached.LoadGrid(context.Background(), day(1), "T2M")
	require.Error(t, err)
	_, err = cached.LoadGrid(context.Background(), day(1), "T2M")
	require.Error(t, err)

	assert.Equal(t, 2, inner.calls)
	assert.Equal(t, 0, cached.Len())
}

// --- LRU cache unit tests ---

func TestLRUCache_BasicGetPut(t *testing.T) {
	c := newLRUCache(3)

	c.put("a", gridFor(1))
	c.put("b", gridFor(2))

	g, ok := c.get("a")
	assert.True(t, ok)
	assert.Equal(t, []float64{1}, g.Field.Values)

	_, ok = c.get("missing")
	assert.False(t, ok)
}

func TestLRUCache_Eviction(t *testing.T) {
	c := newLRUCache(2)

	c.put("a", gridFor(1))
	c.put("b", gridFor(2))
	c.put("c", gridFor(3)) // evicts "a"

	_, ok := c.get("a")
	assert.False(t, ok, "a should have been evicted")

	g, ok := c.get("b")
	assert.True(t, ok)
	assert.Equal(t, []float64{2}, g.Field.Values)

	g, ok = c.get("c")
	assert.True(t, ok)
	assert.Equal(t, []float64{3}, g.Field.Values)
}

func TestLRUCache_AccessPromotesEntry(t *testing.T) {
	c := newLRUCache(2)

	c.put("a", gridFor(1))
	c.put("b", gridFor(2))
	c.get("a")
	c.put("c", gridFor(3))

	_, ok := c.get("a")
	assert.True(t, ok, "a was accessed recently, should not be evicted")

	_, ok = c.get("b")
	assert.False(t, ok, "b should have been evicted")
}

func TestLRUCache_UpdateExisting(t *testing.T) {
	c := newLRUCache(2)

	c.put("a", gridFor(1))
	c.put("a", gridFor(2))

	g, ok := c.get("a")
	assert.True(t, ok)
	assert.Equal(t, []float64{2}, g.Field.Values)
}

func TestLRUCache_MinimumSize(t *testing.T) {
	c := newLRUCache(0)
	c.put("a", gridFor(1))

	_, ok := c.get("a")
	assert.True(t, ok)
}
