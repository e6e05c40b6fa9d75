package models

import "time"

// PlaceEventKind is the routing name of a realtime place change.
type PlaceEventKind string

const PlaceCreated PlaceEventKind = "place.created"

// PlaceEvent announces a change in the places table to other clients.
type PlaceEvent struct {
	Kind     PlaceEventKind `json:"kind"`
	PlaceID  string         `json:"place_id"`
	AuthorID string         `json:"author_id"`
	At       time.Time      `json:"at"`
}
