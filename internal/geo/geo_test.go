package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHaversineKmZeroDistance(t *testing.T) {
	p := Point{Lat: -6.2, Lng: 106.8}
	require.Equal(t, 0.0, HaversineKm(p, p))
}

func TestHaversineKmQuarterMeridian(t *testing.T) {
	// Equator to the north pole along a meridian is a quarter of the
	// great circle: pi/2 * 6371 km.
	got := HaversineKm(Point{Lat: 0, Lng: 0}, Point{Lat: 90, Lng: 0})
	require.InDelta(t, math.Pi/2*6371.0, got, 0.1)
}

func TestHaversineKmSymmetric(t *testing.T) {
	a := Point{Lat: 52.5200, Lng: 13.4050}
	b := Point{Lat: 48.8566, Lng: 2.3522}
	require.InDelta(t, HaversineKm(a, b), HaversineKm(b, a), 1e-9)
	require.InDelta(t, 877.46, HaversineKm(a, b), 1.0)
}

type loc struct {
	name string
	at   *Point
}

func (l loc) Location() *Point { return l.at }

func TestSortByDistanceDropsUnlocated(t *testing.T) {
	origin := Point{Lat: 0, Lng: 0}
	xs := []loc{
		{name: "far", at: &Point{Lat: 10, Lng: 0}},
		{name: "nowhere", at: nil},
		{name: "near", at: &Point{Lat: 1, Lng: 0}},
	}
	got := SortByDistance(origin, xs)
	require.Len(t, got, 2)
	require.Equal(t, "near", got[0].name)
	require.Equal(t, "far", got[1].name)
}
