package domain

import (
	"math"
)

// EarthRadiusKm is the mean Earth radius used for all spherical distance math.
const EarthRadiusKm = 6371.0

// DefaultRadiusKm applies when a geo search omits its radius.
const DefaultRadiusKm = 5.0

// GeoPoint is a WGS84 coordinate.
type GeoPoint struct {
	Lat float64
	Lng float64
}

// GeoJSONPoint is the indexable form of a GeoPoint. Coordinates are [lng, lat].
type GeoJSONPoint struct {
	Type        string     `json:"type"`
	Coordinates [2]float64 `json:"coordinates"`
}

// GeoJSON returns the point in GeoJSON order.
func (p GeoPoint) GeoJSON() GeoJSONPoint {
	return GeoJSONPoint{Type: "Point", Coordinates: [2]float64{p.Lng, p.Lat}}
}

// Valid reports whether both coordinates are finite and in range.
func (p GeoPoint) Valid() bool {
	return !math.IsNaN(p.Lat) && !math.IsNaN(p.Lng) &&
		p.Lat >= -90 && p.Lat <= 90 &&
		p.Lng >= -180 && p.Lng <= 180
}

// NewGeoPoint builds a location from optional coordinates. Both or neither must be set;
// neither yields a nil point.
func NewGeoPoint(lat, lng *float64) (*GeoPoint, error) {
	if lat == nil && lng == nil {
		return nil, nil
	}
	if lat == nil || lng == nil {
		return nil, &ValidationError{Field: "location", Message: "location requires both lat and lng"}
	}
	p := GeoPoint{Lat: *lat, Lng: *lng}
	if !p.Valid() {
		return nil, &ValidationError{Field: "location", Message: "location coordinates are out of range"}
	}
	return &p, nil
}

// CentralAngle returns the great-circle angle between a and b in radians.
func CentralAngle(a, b GeoPoint) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := lat2 - lat1
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * math.Asin(math.Sqrt(math.Min(1, h)))
}

// GeoRadius selects points inside a spherical cap.
type GeoRadius struct {
	Center   GeoPoint
	RadiusKm float64
}

// AngularRadius converts the radius to radians on the mean Earth sphere.
func (g GeoRadius) AngularRadius() float64 {
	return g.RadiusKm / EarthRadiusKm
}

// Contains reports whether p lies inside the cap.
func (g GeoRadius) Contains(p GeoPoint) bool {
	return WithinCap(g.Center, p, g.AngularRadius())
}

// WithinCap reports whether p is at most angle radians from center.
func WithinCap(center, p GeoPoint, angle float64) bool {
	return CentralAngle(center, p) <= angle
}
