package vmd

import (
	"fmt"
	"math"
)

// mean earth radius in meters (IUGG)
const EarthRadiusMeters = 6371008.8

type GeoCoord struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lng float64 `json:"lng" yaml:"lng"`
}

func (c GeoCoord) Zero() bool {
	return c.Lat == 0.0 && c.Lng == 0.0
}

func (c GeoCoord) String() string {
	return fmt.Sprintf("%f,%f", c.Lat, c.Lng)
}

// DistanceMeters returns the great-circle (haversine) distance between two points.
func DistanceMeters(a GeoCoord, b GeoCoord) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * EarthRadiusMeters * math.Asin(math.Min(1, math.Sqrt(h)))
}
