package geo

import (
	"fmt"
	"math"
)

const earthRadiusKm = 6371.0

// NorthArrow is the icon used for bearings within 5 degrees of due north.
const NorthArrow = "arrow_000.png"

// Point is a WGS84 position in degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// BBox is the southwest/northeast corners of a viewport.
type BBox struct {
	MinLat float64 `json:"minLat"`
	MinLon float64 `json:"minLon"`
	MaxLat float64 `json:"maxLat"`
	MaxLon float64 `json:"maxLon"`
}

// Contains reports whether the point lies inside the box, edges included.
func (b BBox) Contains(lat, lon float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lon >= b.MinLon && lon <= b.MaxLon
}

// Center returns the midpoint of the box.
func (b BBox) Center() Point {
	return Point{Lat: (b.MinLat + b.MaxLat) / 2, Lon: (b.MinLon + b.MaxLon) / 2}
}

// Distance calculates the great-circle distance between two points in kilometers
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	deltaPhi := (lat2 - lat1) * math.Pi / 180
	deltaLambda := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(deltaPhi/2)*math.Sin(deltaPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(deltaLambda/2)*math.Sin(deltaLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}

// NormalizeBearing maps any finite bearing into [0, 360)
func NormalizeBearing(bearing float64) float64 {
	b := math.Mod(bearing, 360)
	if b < 0 {
		b += 360
	}
	// -0.0000001 mod 360 + 360 rounds to exactly 360
	if b >= 360 {
		b = 0
	}
	return b
}

// ArrowIcon returns the arrow icon file name for a bearing, bucketed to the
// nearest 10 degrees (e.g. 79 -> "arrow_080.png").
func ArrowIcon(bearing float64) string {
	if math.IsNaN(bearing) || math.IsInf(bearing, 0) {
		return NorthArrow
	}

	b := NormalizeBearing(bearing)
	if b <= 5 || b >= 355 {
		return NorthArrow
	}

	bucket := int(10 * math.Round(b/10))
	return fmt.Sprintf("arrow_%03d.png", bucket)
}
