// Package geocoder defines the reverse-geocoding capability used by the
// location tracker. Implementations live in external/geocoder.
package geocoder

import "context"

// Geocoder resolves coordinates to a human-readable place name.
type Geocoder interface {
	// ReverseGeocode returns the city-level place name for the coordinates.
	ReverseGeocode(ctx context.Context, lat, lng float64) (string, error)
}
