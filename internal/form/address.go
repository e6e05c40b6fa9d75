package form

import (
	"context"
	"log"

	"geoloc/internal/models"
)

// Geocoder turns coordinates into a postal address.
type Geocoder interface {
	Reverse(ctx context.Context, lat, lng float64) (string, error)
}

// SuggestAddress fills an empty address field from g. It reports whether the
// field was filled; lookup failures are logged and otherwise ignored.
func (f *Form) SuggestAddress(ctx context.Context, g Geocoder, loc models.Location) bool {
	if g == nil {
		return false
	}
	f.mu.Lock()
	empty := f.fields.Address == ""
	f.mu.Unlock()
	if !empty {
		return false
	}

	address, err := g.Reverse(ctx, loc.Lat, loc.Lng)
	if err != nil {
		log.Printf("Error reverse geocoding %f,%f: %v", loc.Lat, loc.Lng, err)
		return false
	}
	if address == "" {
		return false
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fields.Address != "" {
		return false
	}
	f.fields.Address = address
	return true
}
