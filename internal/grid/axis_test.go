package grid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	lat := Axis{Kind: Latitude, Values: []float64{50.0, 50.5, 51.0, 51.5}}
	s := NewSampler(DefaultEpsilon)

	t.Run("exact node", func(t *testing.T) {
		b, err := s.Resolve(lat, 51.0)
		require.NoError(t, err)
		assert.True(t, b.Exact)
		assert.Equal(t, 2, b.Lower)
		assert.Equal(t, -1, b.Upper)
	})

	t.Run("between nodes", func(t *testing.T) {
		b, err := s.Resolve(lat, 51.2)
		require.NoError(t, err)
		assert.False(t, b.Exact)
		assert.Equal(t, 2, b.Lower)
		assert.Equal(t, 3, b.Upper)
		assert.Equal(t, 51.0, b.Floor)
	})

	t.Run("every node resolves to itself", func(t *testing.T) {
		for i, v := range lat.Values {
			b, err := s.Resolve(lat, v)
			require.NoError(t, err)
			assert.True(t, b.Exact, "node %d", i)
			assert.Equal(t, i, b.Lower)
			assert.Equal(t, -1, b.Upper)
		}
	})

	t.Run("beyond last node", func(t *testing.T) {
		_, err := s.Resolve(lat, 51.7)
		require.ErrorIs(t, err, ErrAxisLookup)
	})

	t.Run("below first node", func(t *testing.T) {
		_, err := s.Resolve(lat, 49.9)
		require.ErrorIs(t, err, ErrAxisLookup)
	})

	t.Run("empty axis", func(t *testing.T) {
		_, err := s.Resolve(Axis{Kind: Latitude}, 10)
		require.ErrorIs(t, err, ErrAxisLookup)
	})
}

func TestResolve_StoredArtifacts(t *testing.T) {
	// MERRA-2 stores the equator and the prime meridian slightly off zero.
	lat := Axis{Kind: Latitude, Values: []float64{-0.5, -1.797510e-13, 0.5}}
	lon := Axis{Kind: Longitude, Values: []float64{-0.625, -5.920304e-13, 0.625}}
	s := NewSampler(0)

	b, err := s.Resolve(lat, 0.3)
	require.NoError(t, err)
	assert.Equal(t, Bracket{Lower: 1, Upper: 2, Floor: 0}, b)

	b, err = s.Resolve(lon, 0.3)
	require.NoError(t, err)
	assert.Equal(t, Bracket{Lower: 1, Upper: 2, Floor: 0}, b)
}

func TestResolve_ExactMatchTakesPrecedence(t *testing.T) {
	lat := Axis{Kind: Latitude, Values: []float64{-0.5, -1.797510e-13, 0.5}}
	s := NewSampler(0)

	// The stored value itself is an exact hit.
	b, err := s.Resolve(lat, -1.797510e-13)
	require.NoError(t, err)
	assert.True(t, b.Exact)
	assert.Equal(t, 1, b.Lower)

	// 0.0 is numerically near the same node but not equal to it, so it goes
	// through floor matching and yields a bracket.
	b, err = s.Resolve(lat, 0.0)
	require.NoError(t, err)
	assert.False(t, b.Exact)
	assert.Equal(t, 1, b.Lower)
	assert.Equal(t, 2, b.Upper)
}

func TestResolve_NoNodeWithinTolerance(t *testing.T) {
	lat := Axis{Kind: Latitude, Values: []float64{50.1, 50.6, 51.1}}

	_, err := NewSampler(DefaultEpsilon).Resolve(lat, 50.3)
	require.ErrorIs(t, err, ErrAxisLookup)
	assert.Contains(t, err.Error(), "latitude")
}

func TestResolve_ConfigurableEpsilon(t *testing.T) {
	lat := Axis{Kind: Latitude, Values: []float64{50.0004, 50.5, 51.0}}

	_, err := NewSampler(DefaultEpsilon).Resolve(lat, 50.2)
	require.ErrorIs(t, err, ErrAxisLookup)

	b, err := NewSampler(1e-3).Resolve(lat, 50.2)
	require.NoError(t, err)
	assert.Equal(t, 0, b.Lower)
	assert.Equal(t, 1, b.Upper)
}

func TestResolve_ZeroValueSampler(t *testing.T) {
	var s Sampler
	b, err := s.Resolve(Axis{Kind: Longitude, Values: []float64{0, 0.625, 1.25}}, 0.7)
	require.NoError(t, err)
	assert.Equal(t, 1, b.Lower)
	assert.Equal(t, 2, b.Upper)
}

func TestResolve_LongitudeWrapsAtAntimeridian(t *testing.T) {
	lon := NewAxis(Longitude, -180, 576)
	require.Equal(t, 179.375, lon.Values[575])

	b, err := NewSampler(0).Resolve(lon, 179.5)
	require.NoError(t, err)
	assert.Equal(t, 575, b.Lower)
	assert.Equal(t, 0, b.Upper)
	assert.Equal(t, 179.375, b.Floor)
}

func TestResolve_LatitudeDoesNotWrap(t *testing.T) {
	lat := NewAxis(Latitude, -90, 361)
	require.Equal(t, 90.0, lat.Values[360])

	b, err := NewSampler(0).Resolve(lat, 90)
	require.NoError(t, err)
	assert.True(t, b.Exact)

	_, err = NewSampler(0).Resolve(lat, 90.2)
	require.ErrorIs(t, err, ErrAxisLookup)
}

func TestKind(t *testing.T) {
	assert.Equal(t, 0.5, Latitude.Step())
	assert.Equal(t, 0.625, Longitude.Step())
	assert.Equal(t, "latitude", Latitude.String())
	assert.Equal(t, "longitude", Longitude.String())
	assert.Equal(t, "kind(7)", Kind(7).String())
}
