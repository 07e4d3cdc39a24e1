package auth

import "fmt"

// LatLng is a WGS84 coordinate.
type LatLng struct {
	Lat float64
	Lng float64
}

// BoundingRegion is a rectangular area delimited by its south west and
// north east corners.
type BoundingRegion struct {
	Name      string
	SouthWest LatLng
	NorthEast LatLng
}

// AngolaBounds is the default service area.
var AngolaBounds = BoundingRegion{
	Name:      "Angola",
	SouthWest: LatLng{Lat: -18.038239, Lng: 11.679219},
	NorthEast: LatLng{Lat: -4.376226, Lng: 24.082031},
}

// Contains reports whether lat/lng falls inside the region, edges included.
func (b BoundingRegion) Contains(lat, lng float64) bool {
	return lat >= b.SouthWest.Lat && lat <= b.NorthEast.Lat &&
		lng >= b.SouthWest.Lng && lng <= b.NorthEast.Lng
}

// Validate returns a ValidationError when lat/lng is outside the region.
func (b BoundingRegion) Validate(lat, lng float64) error {
	if b.Contains(lat, lng) {
		return nil
	}
	return ErrOutsideRegion.Clone().WithMetadata(map[string]any{
		"region":    b.Name,
		"latitude":  lat,
		"longitude": lng,
		"location":  fmt.Sprintf("location must be inside %s", b.Name),
	})
}
