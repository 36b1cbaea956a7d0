package geo

import "math"

// KmPerDegree is the approximate surface distance covered by one degree of
// latitude. Good enough for district-scale impact radii; this layer does not
// attempt cartographic accuracy.
const KmPerDegree = 111.0

// Point is a geographic coordinate in decimal degrees.
type Point struct {
	Lat float64 `yaml:"latitude" json:"lat"`
	Lon float64 `yaml:"longitude" json:"lon"`
}

// DistanceKm returns the flat-earth approximate distance in kilometres
// between two points. Accuracy degrades at high latitudes and long ranges,
// which is acceptable at the precision tier of the impact model.
func (p Point) DistanceKm(other Point) float64 {
	dLat := p.Lat - other.Lat
	dLon := p.Lon - other.Lon
	return math.Sqrt(dLat*dLat+dLon*dLon) * KmPerDegree
}

// Valid reports whether the point is a plausible WGS84 coordinate.
func (p Point) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lon >= -180 && p.Lon <= 180
}
