package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistanceKm(t *testing.T) {
	t.Run("identical points", func(t *testing.T) {
		assert.Equal(t, 0.0, DistanceKm(47.6062, -122.3321, 47.6062, -122.3321))
		assert.Equal(t, 0.0, DistanceKm(0, 0, 0, 0))
	})

	t.Run("symmetric", func(t *testing.T) {
		pairs := [][4]float64{
			{47.6062, -122.3321, 47.6740, -122.1215},
			{-33.8688, 151.2093, 51.5074, -0.1278},
			{89.9, 0, -89.9, 180},
		}
		for _, p := range pairs {
			ab := DistanceKm(p[0], p[1], p[2], p[3])
			ba := DistanceKm(p[2], p[3], p[0], p[1])
			assert.InDelta(t, ab, ba, 1e-9)
		}
	})

	t.Run("seattle to bellevue", func(t *testing.T) {
		// Downtown Seattle to Bellevue is roughly 17.5 km.
		d := DistanceKm(47.6062, -122.3321, 47.6740, -122.1215)
		assert.InDelta(t, 17.5, d, 0.5)
	})

	t.Run("one degree of latitude", func(t *testing.T) {
		assert.InDelta(t, 111.19, DistanceKm(0, 0, 1, 0), 0.01)
	})
}
