package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"geoloc/internal/models"
	"geoloc/internal/notify"
	"geoloc/internal/store/memory"
)

type staticSession struct {
	mu   sync.Mutex
	user *models.User
}

func (s *staticSession) CurrentUser() *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

func signedIn(id string) *staticSession {
	return &staticSession{user: &models.User{ID: id, Email: id + "@example.com"}}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []models.PlaceEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e models.PlaceEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func intPtr(v int) *int { return &v }

func TestFetchPlacesFailureKeepsState(t *testing.T) {
	store := memory.New()
	store.FailList(errors.New("connection refused"))
	rec := &notify.Recorder{}
	a := New(store, signedIn("u1"), rec)

	if err := a.FetchPlaces(context.Background()); err == nil {
		t.Fatal("FetchPlaces() should fail")
	}
	s := a.Snapshot()
	if len(s.Places) != 0 {
		t.Errorf("places = %d, want 0", len(s.Places))
	}
	if s.Loading {
		t.Error("loading should be cleared after a failed fetch")
	}
	if got := rec.Count(notify.LevelError); got != 1 {
		t.Errorf("error notifications = %d, want 1", got)
	}
}

func TestFetchPlacesFailureKeepsPreviousList(t *testing.T) {
	store := memory.New()
	store.Seed(models.Place{ID: "p1", Name: "Parc", AuthorID: "u1"})
	a := New(store, signedIn("u1"), &notify.Recorder{})
	if err := a.FetchPlaces(context.Background()); err != nil {
		t.Fatalf("FetchPlaces() error: %v", err)
	}

	store.FailList(errors.New("timeout"))
	_ = a.FetchPlaces(context.Background())
	if s := a.Snapshot(); len(s.Places) != 1 || s.Places[0].ID != "p1" {
		t.Errorf("places after failed fetch = %+v", s.Places)
	}
}

func TestFetchPlacesDerivesAuthorName(t *testing.T) {
	store := memory.New()
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	store.SetProfile("named", models.Profile{DisplayName: "Lina", Email: "lina@example.com"})
	store.SetProfile("mailonly", models.Profile{Email: "max.m@example.com"})
	store.Seed(
		models.Place{ID: "a", Name: "A", AuthorID: "named", CreatedAt: base},
		models.Place{ID: "b", Name: "B", AuthorID: "mailonly", CreatedAt: base.Add(time.Minute)},
		models.Place{ID: "c", Name: "C", AuthorID: "nobody", CreatedAt: base.Add(2 * time.Minute)},
	)
	a := New(store, signedIn("u1"), &notify.Recorder{})
	if err := a.FetchPlaces(context.Background()); err != nil {
		t.Fatalf("FetchPlaces() error: %v", err)
	}

	want := map[string]string{"a": "Lina", "b": "max.m", "c": models.AnonymousAuthor}
	s := a.Snapshot()
	if s.Places[0].ID != "c" {
		t.Errorf("first place = %s, want newest c", s.Places[0].ID)
	}
	for _, p := range s.Places {
		if p.AuthorName != want[p.ID] {
			t.Errorf("place %s author = %q, want %q", p.ID, p.AuthorName, want[p.ID])
		}
	}
}

func TestHandleAddPlaceRequiresSession(t *testing.T) {
	rec := &notify.Recorder{}
	a := New(memory.New(), &staticSession{}, rec)

	if err := a.HandleAddPlace(); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("HandleAddPlace() = %v, want ErrNotAuthenticated", err)
	}
	if a.Snapshot().ShowAddModal {
		t.Error("modal opened without a session")
	}
	if rec.Count(notify.LevelError) != 1 {
		t.Errorf("notifications = %+v", rec.Messages())
	}
}

func TestLocationSelectOnlyWhileFormOpen(t *testing.T) {
	a := New(memory.New(), signedIn("u1"), &notify.Recorder{})
	a.HandleLocationSelect(models.Location{Lat: 1, Lng: 2})
	if a.Snapshot().SelectedLocation != nil {
		t.Error("location recorded while the form is closed")
	}

	if err := a.HandleAddPlace(); err != nil {
		t.Fatal(err)
	}
	a.HandleLocationSelect(models.Location{Lat: 1, Lng: 2})
	if loc := a.Snapshot().SelectedLocation; loc == nil || loc.Lat != 1 || loc.Lng != 2 {
		t.Errorf("selected location = %+v", loc)
	}

	a.CloseAddModal()
	s := a.Snapshot()
	if s.ShowAddModal || s.SelectedLocation != nil {
		t.Errorf("state after close = %+v", s)
	}
}

func TestHandleSubmitPlaceSuccess(t *testing.T) {
	store := memory.New()
	rec := &notify.Recorder{}
	pub := &recordingPublisher{}
	a := New(store, signedIn("U"), rec, WithPublisher(pub))
	if err := a.HandleAddPlace(); err != nil {
		t.Fatal(err)
	}
	a.HandleLocationSelect(models.Location{Lat: 48.85, Lng: 2.35})
	listsBefore := store.ListCalls()

	err := a.HandleSubmitPlace(context.Background(), models.NewPlace{
		Name: "Café Test", Type: "bar", Rating: intPtr(4), Latitude: 48.85, Longitude: 2.35,
	})
	if err != nil {
		t.Fatalf("HandleSubmitPlace() error: %v", err)
	}

	creates := store.Creates()
	if len(creates) != 1 || creates[0].AuthorID != "U" || creates[0].Name != "Café Test" {
		t.Fatalf("backend received %+v", creates)
	}
	if rec.Count(notify.LevelSuccess) != 1 {
		t.Errorf("success notifications = %d, want 1", rec.Count(notify.LevelSuccess))
	}
	s := a.Snapshot()
	if s.ShowAddModal || s.SelectedLocation != nil || s.Submitting {
		t.Errorf("state after submit = %+v", s)
	}
	if store.ListCalls() != listsBefore+1 {
		t.Errorf("list calls = %d, want a re-fetch", store.ListCalls())
	}
	if len(s.Places) != 1 || s.Places[0].Name != "Café Test" {
		t.Errorf("places after re-fetch = %+v", s.Places)
	}
	if len(pub.events) != 1 || pub.events[0].Kind != models.PlaceCreated || pub.events[0].AuthorID != "U" {
		t.Errorf("published = %+v", pub.events)
	}
}

func TestHandleSubmitPlaceWithoutSession(t *testing.T) {
	store := memory.New()
	rec := &notify.Recorder{}
	a := New(store, &staticSession{}, rec)

	err := a.HandleSubmitPlace(context.Background(), models.NewPlace{Name: "x"})
	if !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("HandleSubmitPlace() = %v, want ErrNotAuthenticated", err)
	}
	if len(store.Creates()) != 0 {
		t.Error("backend create was called without a session")
	}
	if rec.Count(notify.LevelError) != 1 {
		t.Errorf("notifications = %+v", rec.Messages())
	}
}

func TestHandleSubmitPlaceFailureKeepsForm(t *testing.T) {
	store := memory.New()
	store.FailCreate(errors.New("row level security"))
	rec := &notify.Recorder{}
	a := New(store, signedIn("u1"), rec)
	_ = a.HandleAddPlace()
	a.HandleLocationSelect(models.Location{Lat: 10, Lng: 20})

	if err := a.HandleSubmitPlace(context.Background(), models.NewPlace{Name: "x", Latitude: 10, Longitude: 20}); err == nil {
		t.Fatal("HandleSubmitPlace() should fail")
	}
	s := a.Snapshot()
	if !s.ShowAddModal || s.SelectedLocation == nil {
		t.Errorf("form state lost after failure: %+v", s)
	}
	if s.Submitting {
		t.Error("submitting should be cleared")
	}
	if rec.Count(notify.LevelError) != 1 || rec.Count(notify.LevelSuccess) != 0 {
		t.Errorf("notifications = %+v", rec.Messages())
	}
}

type blockingStore struct {
	*memory.Store
	entered chan struct{}
	release chan struct{}
}

func (b *blockingStore) CreatePlace(ctx context.Context, n models.NewPlace) (*models.Place, error) {
	b.entered <- struct{}{}
	<-b.release
	return b.Store.CreatePlace(ctx, n)
}

func TestHandleSubmitPlaceRejectsConcurrentSubmit(t *testing.T) {
	store := &blockingStore{Store: memory.New(), entered: make(chan struct{}), release: make(chan struct{})}
	a := New(store, signedIn("u1"), &notify.Recorder{})
	payload := models.NewPlace{Name: "x", Latitude: 1, Longitude: 1}

	done := make(chan error, 1)
	go func() { done <- a.HandleSubmitPlace(context.Background(), payload) }()
	<-store.entered

	if !a.Snapshot().Submitting {
		t.Error("submitting should be set while the create call runs")
	}
	if err := a.HandleSubmitPlace(context.Background(), payload); !errors.Is(err, ErrSubmitInFlight) {
		t.Errorf("second submit = %v, want ErrSubmitInFlight", err)
	}

	close(store.release)
	if err := <-done; err != nil {
		t.Fatalf("first submit error: %v", err)
	}
	if n := len(store.Creates()); n != 1 {
		t.Errorf("creates = %d, want 1", n)
	}
}

func TestSelectPlace(t *testing.T) {
	store := memory.New()
	store.Seed(models.Place{ID: "p1", Name: "Parc", Latitude: 1, Longitude: 2})
	a := New(store, signedIn("u1"), &notify.Recorder{})
	_ = a.FetchPlaces(context.Background())

	if _, err := a.SelectPlace("missing"); !errors.Is(err, ErrUnknownPlace) {
		t.Errorf("SelectPlace(missing) = %v, want ErrUnknownPlace", err)
	}
	p, err := a.SelectPlace("p1")
	if err != nil || p.ID != "p1" {
		t.Fatalf("SelectPlace(p1) = %+v, %v", p, err)
	}
	if s := a.Snapshot(); s.SelectedPlace == nil || s.SelectedPlace.ID != "p1" {
		t.Errorf("selected place = %+v", s.SelectedPlace)
	}
}

func TestWatchRefetchesOnEvents(t *testing.T) {
	store := memory.New()
	a := New(store, signedIn("u1"), &notify.Recorder{})
	events := make(chan models.PlaceEvent, 2)
	events <- models.PlaceEvent{Kind: models.PlaceCreated, PlaceID: "a"}
	events <- models.PlaceEvent{Kind: models.PlaceCreated, PlaceID: "b"}
	close(events)

	a.Watch(context.Background(), events)
	if got := store.ListCalls(); got != 2 {
		t.Errorf("list calls = %d, want 2", got)
	}
}

// gatedStore answers ListPlaces from a queue of replies; a reply with a gate
// waits for it to close before answering.
type gatedStore struct {
	mu      sync.Mutex
	replies []gatedReply
	started chan struct{}
}

type gatedReply struct {
	places []models.Place
	gate   chan struct{}
}

func (g *gatedStore) ListPlaces(ctx context.Context) ([]models.Place, error) {
	g.mu.Lock()
	r := g.replies[0]
	g.replies = g.replies[1:]
	g.mu.Unlock()
	g.started <- struct{}{}
	if r.gate != nil {
		<-r.gate
	}
	return r.places, nil
}

func (g *gatedStore) CreatePlace(context.Context, models.NewPlace) (*models.Place, error) {
	return nil, errors.New("not used")
}

func TestOverlappingFetchesKeepNewestList(t *testing.T) {
	gate := make(chan struct{})
	store := &gatedStore{
		replies: []gatedReply{
			{places: []models.Place{{ID: "old"}}, gate: gate},
			{places: []models.Place{{ID: "new"}, {ID: "old"}}},
		},
		started: make(chan struct{}, 2),
	}
	a := New(store, signedIn("u1"), &notify.Recorder{})

	slow := make(chan error, 1)
	go func() { slow <- a.FetchPlaces(context.Background()) }()
	<-store.started

	if err := a.FetchPlaces(context.Background()); err != nil {
		t.Fatalf("FetchPlaces: %v", err)
	}
	if st := a.Snapshot(); !st.Loading {
		t.Error("Loading cleared while a fetch is still running")
	}

	close(gate)
	if err := <-slow; err != nil {
		t.Fatalf("slow FetchPlaces: %v", err)
	}

	st := a.Snapshot()
	if st.Loading {
		t.Error("Loading still set after every fetch returned")
	}
	if len(st.Places) != 2 || st.Places[0].ID != "new" {
		t.Errorf("places = %+v, want the newer list", st.Places)
	}
}
