// Package app coordinates the place list, the add-place flow and the
// backend calls behind them.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"geoloc/internal/models"
	"geoloc/internal/notify"
)

var (
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrSubmitInFlight   = errors.New("a submission is already in progress")
	ErrUnknownPlace     = errors.New("unknown place")
)

// User-facing messages.
const (
	msgFetchFailed    = "Could not load places"
	msgSignInToAdd    = "Sign in to add a place"
	msgMustBeSignedIn = "You must be signed in to add a place"
	msgAddFailed      = "Could not add the place"
	msgAdded          = "Place added! 🎉"
)

// PlaceStore is the part of the backend the orchestrator needs.
type PlaceStore interface {
	// ListPlaces returns every place joined with its author's profile,
	// newest first.
	ListPlaces(ctx context.Context) ([]models.Place, error)
	CreatePlace(ctx context.Context, p models.NewPlace) (*models.Place, error)
}

// SessionSource reports the signed-in user, or nil.
type SessionSource interface {
	CurrentUser() *models.User
}

// EventPublisher announces created places to other clients.
type EventPublisher interface {
	Publish(ctx context.Context, e models.PlaceEvent) error
}

// State is a point-in-time copy of the orchestrator state.
type State struct {
	Places           []models.Place   `json:"places"`
	Loading          bool             `json:"loading"`
	Submitting       bool             `json:"submitting"`
	ShowAddModal     bool             `json:"show_add_modal"`
	SelectedLocation *models.Location `json:"selected_location,omitempty"`
	SelectedPlace    *models.Place    `json:"selected_place,omitempty"`
}

// App owns the place list and the add-place modal state. The mutex guards
// state only and is never held across a backend call.
type App struct {
	store     PlaceStore
	session   SessionSource
	notifier  notify.Notifier
	publisher EventPublisher
	now       func() time.Time

	mu    sync.Mutex
	state State
	// fetchSeq numbers fetches as they start; applied is the newest one
	// whose result is in state; fetching counts fetches still running.
	fetchSeq uint64
	applied  uint64
	fetching int

	inFlight atomic.Bool
}

type Option func(*App)

// WithPublisher makes successful creations emit a place.created event.
func WithPublisher(p EventPublisher) Option {
	return func(a *App) { a.publisher = p }
}

// WithClock overrides the time source used for event timestamps.
func WithClock(now func() time.Time) Option {
	return func(a *App) { a.now = now }
}

func New(store PlaceStore, session SessionSource, notifier notify.Notifier, opts ...Option) *App {
	a := &App{
		store:    store,
		session:  session,
		notifier: notifier,
		now:      time.Now,
	}
	a.state.Loading = true
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Snapshot returns a copy of the current state.
func (a *App) Snapshot() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	s := a.state
	s.Places = append([]models.Place(nil), a.state.Places...)
	if a.state.SelectedLocation != nil {
		loc := *a.state.SelectedLocation
		s.SelectedLocation = &loc
	}
	if a.state.SelectedPlace != nil {
		p := *a.state.SelectedPlace
		s.SelectedPlace = &p
	}
	return s
}

func (a *App) update(fn func(s *State)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	fn(&a.state)
}

// FetchPlaces replaces the place list with the backend's. On failure the
// previous list is kept and a single error toast is sent. When fetches
// overlap, a result older than the one already shown is dropped and loading
// stays set until the last of them returns.
func (a *App) FetchPlaces(ctx context.Context) error {
	var seq uint64
	a.update(func(s *State) {
		a.fetchSeq++
		seq = a.fetchSeq
		a.fetching++
		s.Loading = true
	})
	defer a.update(func(s *State) {
		a.fetching--
		s.Loading = a.fetching > 0
	})

	places, err := a.store.ListPlaces(ctx)
	if err != nil {
		log.Printf("Error fetching places: %v", err)
		a.notifier.Error(msgFetchFailed)
		return fmt.Errorf("fetch places: %w", err)
	}
	for i := range places {
		places[i].AuthorName = models.AuthorName(places[i].Profile)
	}

	a.update(func(s *State) {
		if seq < a.applied {
			return
		}
		a.applied = seq
		s.Places = places
		if s.SelectedPlace != nil {
			s.SelectedPlace = findPlace(places, s.SelectedPlace.ID)
		}
	})
	return nil
}

// HandleAddPlace opens the add-place form with no candidate location.
func (a *App) HandleAddPlace() error {
	if a.session.CurrentUser() == nil {
		a.notifier.Error(msgSignInToAdd)
		return ErrNotAuthenticated
	}
	a.update(func(s *State) {
		s.ShowAddModal = true
		s.SelectedLocation = nil
	})
	return nil
}

// CloseAddModal closes the form and discards the candidate location.
func (a *App) CloseAddModal() {
	a.update(func(s *State) {
		s.ShowAddModal = false
		s.SelectedLocation = nil
	})
}

// HandleLocationSelect records a map click as the candidate location. Clicks
// while the form is closed are ignored.
func (a *App) HandleLocationSelect(loc models.Location) {
	a.update(func(s *State) {
		if !s.ShowAddModal {
			return
		}
		s.SelectedLocation = &loc
	})
}

// SelectPlace marks the place with id as the map focus.
func (a *App) SelectPlace(id string) (*models.Place, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	p := findPlace(a.state.Places, id)
	if p == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPlace, id)
	}
	a.state.SelectedPlace = p
	out := *p
	return &out, nil
}

// HandleSubmitPlace creates the place as the signed-in user, then reloads the
// list. Only one submission runs at a time.
func (a *App) HandleSubmitPlace(ctx context.Context, payload models.NewPlace) error {
	user := a.session.CurrentUser()
	if user == nil {
		a.notifier.Error(msgMustBeSignedIn)
		return ErrNotAuthenticated
	}
	if !a.inFlight.CompareAndSwap(false, true) {
		return ErrSubmitInFlight
	}
	defer a.inFlight.Store(false)

	a.update(func(s *State) { s.Submitting = true })
	defer a.update(func(s *State) { s.Submitting = false })

	payload.AuthorID = user.ID
	created, err := a.store.CreatePlace(ctx, payload)
	if err != nil {
		log.Printf("Error adding place: %v", err)
		a.notifier.Error(msgAddFailed)
		return fmt.Errorf("create place: %w", err)
	}

	a.notifier.Success(msgAdded)
	a.update(func(s *State) {
		s.ShowAddModal = false
		s.SelectedLocation = nil
	})
	a.publishCreated(ctx, created, user.ID)

	// The list is reloaded rather than patched locally; a failed reload has
	// already been reported and does not undo the creation.
	_ = a.FetchPlaces(ctx)
	return nil
}

func (a *App) publishCreated(ctx context.Context, created *models.Place, authorID string) {
	if a.publisher == nil || created == nil {
		return
	}
	event := models.PlaceEvent{
		Kind:     models.PlaceCreated,
		PlaceID:  created.ID,
		AuthorID: authorID,
		At:       a.now(),
	}
	if err := a.publisher.Publish(ctx, event); err != nil {
		log.Printf("Error publishing %s for place %s: %v", event.Kind, event.PlaceID, err)
	}
}

// Watch reloads the list for every event until events is closed or ctx ends.
func (a *App) Watch(ctx context.Context, events <-chan models.PlaceEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			log.Printf("Received %s for place %s, reloading", e.Kind, e.PlaceID)
			_ = a.FetchPlaces(ctx)
		}
	}
}

func findPlace(places []models.Place, id string) *models.Place {
	for i := range places {
		if places[i].ID == id {
			p := places[i]
			return &p
		}
	}
	return nil
}
