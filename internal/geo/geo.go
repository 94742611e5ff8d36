// Package geo holds the small amount of spherical geometry the API needs:
// great-circle distances between coordinates and distance-based sorting.
package geo

import (
	"math"
	"sort"
)

const earthRadiusKm = 6371.0

// Point is a WGS84 coordinate pair in decimal degrees.
type Point struct {
	Lat float64
	Lng float64
}

// HaversineKm returns the great-circle distance between two points in
// kilometers using the haversine formula.
func HaversineKm(a, b Point) float64 {
	latA := a.Lat * math.Pi / 180
	latB := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(latA)*math.Cos(latB)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(h))
}

// Located is anything with an optional coordinate.
type Located interface {
	Location() *Point
}

// SortByDistance orders xs by ascending distance from origin. Entries without
// a location are dropped from the result, not sorted to the end.
func SortByDistance[T Located](origin Point, xs []T) []T {
	type withDist struct {
		v T
		d float64
	}
	located := make([]withDist, 0, len(xs))
	for _, x := range xs {
		p := x.Location()
		if p == nil {
			continue
		}
		located = append(located, withDist{v: x, d: HaversineKm(origin, *p)})
	}
	sort.SliceStable(located, func(i, j int) bool { return located[i].d < located[j].d })
	out := make([]T, len(located))
	for i, w := range located {
		out[i] = w.v
	}
	return out
}
