// Package mapview turns the place list into markers on a map widget and
// routes map clicks back to the caller.
package mapview

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"geoloc/internal/models"
	"geoloc/internal/placetype"

	"github.com/dhconnelly/rtreego"
)

const (
	TileURL     = "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png"
	Attribution = `&copy; <a href="https://www.openstreetmap.org/copyright">OpenStreetMap</a> contributors`

	DefaultZoom = 13
	FocusZoom   = 15
)

// DefaultCenter is Paris.
var DefaultCenter = models.Location{Lat: 48.8566, Lng: 2.3522}

var (
	ErrUnknownMarker = errors.New("unknown marker")
	ErrEmptyBounds   = errors.New("bounds have no area")
)

const (
	tolerance   = 1e-9
	minChildren = 2
	maxChildren = 16
)

// Popup is the summary shown when a marker is opened.
type Popup struct {
	Title       string `json:"title"`
	TypeLabel   string `json:"type_label,omitempty"`
	TypeColor   string `json:"type_color,omitempty"`
	Stars       string `json:"stars,omitempty"`
	Rating      *int   `json:"rating,omitempty"`
	Description string `json:"description,omitempty"`
	Author      string `json:"author,omitempty"`
	Created     string `json:"created,omitempty"`
	Image       string `json:"image,omitempty"`
	Hint        string `json:"hint,omitempty"`
}

// Marker is a pin on the map. Candidate marks the unsaved new-place pin.
type Marker struct {
	ID        string          `json:"id"`
	Position  models.Location `json:"position"`
	Popup     Popup           `json:"popup"`
	Candidate bool            `json:"candidate,omitempty"`
}

// Widget is the map surface the display draws on.
type Widget interface {
	SetView(center models.Location, zoom int)
	SetMarkers(markers []Marker)
	// SetCandidate shows m as the new-place pin, or hides it when m is nil.
	SetCandidate(m *Marker)
}

// View is the input of one render pass.
type View struct {
	Places    []models.Place
	Candidate *models.Location
	Selected  *models.Place
	// OnSelect receives map clicks. Leave it nil to make clicks inert.
	OnSelect func(models.Location)
}

type indexedPlace struct {
	place models.Place
	rect  *rtreego.Rect
}

func (p *indexedPlace) Bounds() *rtreego.Rect {
	return p.rect
}

// Display keeps the widget in sync with the last rendered View.
type Display struct {
	widget        Widget
	onPlaceSelect func(models.Place)

	mu        sync.Mutex
	rendered  bool
	focusedID string
	onSelect  func(models.Location)
	places    map[string]models.Place
	tree      *rtreego.Rtree
}

// New returns a display drawing on w. onPlaceSelect is called when a marker
// is clicked and may be nil.
func New(w Widget, onPlaceSelect func(models.Place)) *Display {
	return &Display{
		widget:        w,
		onPlaceSelect: onPlaceSelect,
		places:        make(map[string]models.Place),
		tree:          rtreego.NewTree(2, minChildren, maxChildren),
	}
}

// Render pushes v to the widget. The view is set to the default centre on
// the first render and recentred whenever a different place is selected.
func (d *Display) Render(v View) {
	markers := make([]Marker, 0, len(v.Places))
	places := make(map[string]models.Place, len(v.Places))
	tree := rtreego.NewTree(2, minChildren, maxChildren)
	for _, p := range v.Places {
		markers = append(markers, PlaceMarker(p))
		places[p.ID] = p
		tree.Insert(&indexedPlace{place: p, rect: rtreego.Point{p.Latitude, p.Longitude}.ToRect(tolerance)})
	}

	d.mu.Lock()
	first := !d.rendered
	d.rendered = true
	d.onSelect = v.OnSelect
	d.places = places
	d.tree = tree

	var focus *models.Place
	switch {
	case v.Selected == nil:
		d.focusedID = ""
	case v.Selected.ID != d.focusedID:
		d.focusedID = v.Selected.ID
		focus = v.Selected
	}
	d.mu.Unlock()

	if focus != nil {
		d.widget.SetView(focus.Location(), FocusZoom)
	} else if first {
		d.widget.SetView(DefaultCenter, DefaultZoom)
	}
	d.widget.SetMarkers(markers)
	if v.Candidate != nil {
		m := CandidateMarker(*v.Candidate)
		d.widget.SetCandidate(&m)
	} else {
		d.widget.SetCandidate(nil)
	}
}

// Click handles a click on the bare map. It reports whether the coordinate
// was handed to an OnSelect callback.
func (d *Display) Click(loc models.Location) bool {
	d.mu.Lock()
	onSelect := d.onSelect
	d.mu.Unlock()
	if onSelect == nil {
		return false
	}
	onSelect(loc)
	return true
}

// ClickMarker handles a click on a place marker or its details button.
func (d *Display) ClickMarker(id string) error {
	d.mu.Lock()
	p, ok := d.places[id]
	d.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownMarker, id)
	}
	if d.onPlaceSelect != nil {
		d.onPlaceSelect(p)
	}
	return nil
}

// Visible returns the rendered places inside b.
func (d *Display) Visible(b models.Bounds) ([]models.Place, error) {
	latSpan := b.NorthEast.Lat - b.SouthWest.Lat
	lngSpan := b.NorthEast.Lng - b.SouthWest.Lng
	if latSpan <= 0 || lngSpan <= 0 {
		return nil, ErrEmptyBounds
	}
	rect, err := rtreego.NewRect(rtreego.Point{b.SouthWest.Lat, b.SouthWest.Lng}, []float64{latSpan, lngSpan})
	if err != nil {
		return nil, fmt.Errorf("failed to build search box: %w", err)
	}

	d.mu.Lock()
	results := d.tree.SearchIntersect(rect)
	d.mu.Unlock()

	out := make([]models.Place, 0, len(results))
	for _, r := range results {
		out = append(out, r.(*indexedPlace).place)
	}
	return out, nil
}

// PlaceMarker builds the marker and popup for a saved place.
func PlaceMarker(p models.Place) Marker {
	t := placetype.Lookup(p.Type)
	popup := Popup{
		Title:       p.Name,
		TypeLabel:   t.Label,
		TypeColor:   t.Color,
		Rating:      p.Rating,
		Description: p.Description,
		Author:      p.AuthorName,
		Image:       p.Image,
	}
	if popup.Author == "" {
		popup.Author = models.AnonymousAuthor
	}
	if p.Rating != nil {
		popup.Stars = Stars(*p.Rating)
	}
	if !p.CreatedAt.IsZero() {
		popup.Created = p.CreatedAt.Format("2006-01-02")
	}
	return Marker{ID: p.ID, Position: p.Location(), Popup: popup}
}

// CandidateMarker builds the pin for a location picked but not yet saved.
func CandidateMarker(loc models.Location) Marker {
	return Marker{
		ID:        "candidate",
		Position:  loc,
		Candidate: true,
		Popup: Popup{
			Title: "New place",
			Hint:  `Fill in the form and press "Add place" to create it`,
		},
	}
}

// Stars renders a rating out of five with whole stars.
func Stars(rating int) string {
	if rating < 0 {
		rating = 0
	}
	if rating > 5 {
		rating = 5
	}
	return strings.Repeat("★", rating) + strings.Repeat("☆", 5-rating)
}
