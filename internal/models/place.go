package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidPlace is returned when a place payload breaks the persistence rules.
var ErrInvalidPlace = errors.New("invalid place")

// Place is a shared point of interest as read back from the backend.
type Place struct {
	ID          string    `json:"id"`
	Latitude    float64   `json:"latitude"`
	Longitude   float64   `json:"longitude"`
	Name        string    `json:"name"`
	Type        string    `json:"type"`
	Rating      *int      `json:"rating"`
	Description string    `json:"description,omitempty"`
	Address     string    `json:"address,omitempty"`
	Image       string    `json:"image,omitempty"`
	AuthorID    string    `json:"author_id"`
	AuthorName  string    `json:"author_name,omitempty"`
	CreatedAt   time.Time `json:"created_at"`

	// Profile is the author's profile row embedded by the backend join.
	Profile *Profile `json:"profiles,omitempty"`
}

// Location returns the place coordinates.
func (p Place) Location() Location {
	return Location{Lat: p.Latitude, Lng: p.Longitude}
}

// Profile is the public part of a user's profile.
type Profile struct {
	DisplayName string `json:"display_name,omitempty"`
	Email       string `json:"email,omitempty"`
}

// AnonymousAuthor is shown when neither a display name nor an email is known.
const AnonymousAuthor = "Anonymous"

// AuthorName derives the name shown for a place author: the display name,
// else the local part of the email, else AnonymousAuthor.
func AuthorName(p *Profile) string {
	if p == nil {
		return AnonymousAuthor
	}
	if p.DisplayName != "" {
		return p.DisplayName
	}
	if local, _, _ := strings.Cut(p.Email, "@"); local != "" {
		return local
	}
	return AnonymousAuthor
}

// NewPlace is the payload sent to the backend to create a place.
type NewPlace struct {
	Name        string  `json:"name"`
	Type        string  `json:"type"`
	Rating      *int    `json:"rating"`
	Description string  `json:"description"`
	Address     string  `json:"address"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Image       *string `json:"image"`
	AuthorID    string  `json:"author_id,omitempty"`
}

// Validate checks the fields that must hold when a place is persisted.
func (n NewPlace) Validate() error {
	if strings.TrimSpace(n.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidPlace)
	}
	if err := (Location{Lat: n.Latitude, Lng: n.Longitude}).Validate(); err != nil {
		return err
	}
	if n.Rating != nil && (*n.Rating < 1 || *n.Rating > 5) {
		return fmt.Errorf("%w: rating %d out of range 1-5", ErrInvalidPlace, *n.Rating)
	}
	return nil
}

// Location is a WGS84 coordinate picked on the map.
type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (l Location) Validate() error {
	if l.Lat < -90 || l.Lat > 90 {
		return fmt.Errorf("%w: latitude %f out of range", ErrInvalidPlace, l.Lat)
	}
	if l.Lng < -180 || l.Lng > 180 {
		return fmt.Errorf("%w: longitude %f out of range", ErrInvalidPlace, l.Lng)
	}
	return nil
}

// Bounds is a rectangular map area.
type Bounds struct {
	SouthWest Location `json:"south_west"`
	NorthEast Location `json:"north_east"`
}
