package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		km       float64
		expected string
	}{
		{0, "0m"},
		{0.8, "800m"},
		{0.0424, "42m"},
		{0.9994, "999m"},
		{0.9999, "1.0km"},
		{1.0, "1.0km"},
		{1.2, "1.2km"},
		{12.345, "12.3km"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, Format(tt.km), "km=%v", tt.km)
	}
}

func TestDistanceKm(t *testing.T) {
	mumbai := Point{Lat: 19.0760, Lng: 72.8777}
	delhi := Point{Lat: 28.6139, Lng: 77.2090}

	assert.InDelta(t, 0, DistanceKm(mumbai, mumbai), 1e-9)
	assert.InDelta(t, 1148.1, DistanceKm(mumbai, delhi), 0.5)
	assert.InDelta(t, DistanceKm(mumbai, delhi), DistanceKm(delhi, mumbai), 1e-9)

	// a quarter of the equator
	assert.InDelta(t, EarthRadiusKm*math.Pi/2, DistanceKm(Point{0, 0}, Point{0, 90}), 1e-6)
}

func TestOrigin(t *testing.T) {
	assert.Equal(t, DefaultOrigin, Origin(nil))
	assert.Equal(t, Point{Lat: 19.0760, Lng: 72.8777}, Origin(nil))
	assert.Equal(t, DefaultOrigin, Origin(&Point{Lat: 123, Lng: 0}))
	assert.Equal(t, DefaultOrigin, Origin(&Point{Lat: math.NaN(), Lng: 0}))

	fix := Point{Lat: 12.9716, Lng: 77.5946}
	assert.Equal(t, fix, Origin(&fix))
}
