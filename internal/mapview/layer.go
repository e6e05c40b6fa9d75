package mapview

import (
	"sync"

	"geoloc/internal/models"
)

// Layer is a Widget that keeps what should be on screen and hands it to the
// browser page as GeoJSON.
type Layer struct {
	mu        sync.Mutex
	center    models.Location
	zoom      int
	markers   []Marker
	candidate *Marker
}

func NewLayer() *Layer {
	return &Layer{center: DefaultCenter, zoom: DefaultZoom}
}

func (l *Layer) SetView(center models.Location, zoom int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.center = center
	l.zoom = zoom
}

func (l *Layer) SetMarkers(markers []Marker) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.markers = append([]Marker(nil), markers...)
}

func (l *Layer) SetCandidate(m *Marker) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if m == nil {
		l.candidate = nil
		return
	}
	c := *m
	l.candidate = &c
}

// ViewState is the map camera.
type ViewState struct {
	Center models.Location `json:"center"`
	Zoom   int             `json:"zoom"`
}

type TileLayer struct {
	URL         string `json:"url"`
	Attribution string `json:"attribution"`
}

type Geometry struct {
	Type        string     `json:"type"`
	Coordinates [2]float64 `json:"coordinates"`
}

type Feature struct {
	Type       string   `json:"type"`
	ID         string   `json:"id"`
	Geometry   Geometry `json:"geometry"`
	Properties Marker   `json:"properties"`
}

// FeatureCollection is a GeoJSON document extended with the camera and tile
// settings Leaflet needs.
type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
	View     ViewState `json:"view"`
	Tiles    TileLayer `json:"tiles"`
}

func (l *Layer) View() ViewState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return ViewState{Center: l.center, Zoom: l.zoom}
}

// FeatureCollection returns the markers followed by the candidate pin.
func (l *Layer) FeatureCollection() FeatureCollection {
	l.mu.Lock()
	defer l.mu.Unlock()
	fc := FeatureCollection{
		Type:     "FeatureCollection",
		Features: make([]Feature, 0, len(l.markers)+1),
		View:     ViewState{Center: l.center, Zoom: l.zoom},
		Tiles:    TileLayer{URL: TileURL, Attribution: Attribution},
	}
	for _, m := range l.markers {
		fc.Features = append(fc.Features, feature(m))
	}
	if l.candidate != nil {
		fc.Features = append(fc.Features, feature(*l.candidate))
	}
	return fc
}

// GeoJSON positions are longitude first.
func feature(m Marker) Feature {
	return Feature{
		Type:       "Feature",
		ID:         m.ID,
		Geometry:   Geometry{Type: "Point", Coordinates: [2]float64{m.Position.Lng, m.Position.Lat}},
		Properties: m,
	}
}
