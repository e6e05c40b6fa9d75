// Package memory is an in-process backend implementing both the place and
// the auth contracts. Tests use it as the backend double.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"geoloc/internal/models"
	"geoloc/internal/placetype"
	"geoloc/pkg/supabase"

	"github.com/google/uuid"
)

var (
	ErrInvalidCredentials = errors.New("invalid login credentials")
	ErrUserExists         = errors.New("user already registered")
	ErrInvalidOTP         = errors.New("token has expired or is invalid")
)

type account struct {
	id       string
	password string
	profile  models.Profile
}

type Store struct {
	mu       sync.Mutex
	places   []models.Place
	profiles map[string]models.Profile
	accounts map[string]account
	session  *models.Session
	events   *supabase.Broadcaster
	now      func() time.Time

	listErr   error
	createErr error
	authErr   error

	listCalls   int
	creates     []models.NewPlace
	otpRequests []string
	otpTokens   map[string]string
	resets      []string
}

func New() *Store {
	return &Store{
		profiles:  make(map[string]models.Profile),
		accounts:  make(map[string]account),
		otpTokens: make(map[string]string),
		events:    supabase.NewBroadcaster(),
		now:       time.Now,
	}
}

// SetClock replaces the time source for created_at and session expiry.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// FailList makes ListPlaces return err until called again with nil.
func (s *Store) FailList(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listErr = err
}

// FailCreate makes CreatePlace return err until called again with nil.
func (s *Store) FailCreate(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.createErr = err
}

// FailAuth makes every auth call return err until called again with nil.
func (s *Store) FailAuth(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.authErr = err
}

// AddUser registers an account and its profile, returning the user id.
func (s *Store) AddUser(email, password, displayName string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addUserLocked(email, password, displayName)
}

func (s *Store) addUserLocked(email, password, displayName string) string {
	id := uuid.NewString()
	p := models.Profile{DisplayName: displayName, Email: email}
	s.accounts[strings.ToLower(email)] = account{id: id, password: password, profile: p}
	s.profiles[id] = p
	return id
}

// SetProfile stores a profile without an account.
func (s *Store) SetProfile(userID string, p models.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[userID] = p
}

// Seed inserts places as-is. Missing ids and timestamps are filled in.
func (s *Store) Seed(places ...models.Place) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range places {
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		if p.CreatedAt.IsZero() {
			p.CreatedAt = s.now()
		}
		p.Profile = nil
		s.places = append(s.places, p)
	}
}

func (s *Store) ListCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listCalls
}

// Creates returns every payload CreatePlace accepted or rejected.
func (s *Store) Creates() []models.NewPlace {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.NewPlace(nil), s.creates...)
}

func (s *Store) OTPRequests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.otpRequests...)
}

func (s *Store) PasswordResets() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.resets...)
}

func (s *Store) ListPlaces(ctx context.Context) ([]models.Place, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listCalls++
	if s.listErr != nil {
		return nil, s.listErr
	}

	out := make([]models.Place, 0, len(s.places))
	for i := len(s.places) - 1; i >= 0; i-- {
		p := s.places[i]
		if prof, ok := s.profiles[p.AuthorID]; ok {
			p.Profile = &prof
		}
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) CreatePlace(ctx context.Context, n models.NewPlace) (*models.Place, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creates = append(s.creates, n)
	if s.createErr != nil {
		return nil, s.createErr
	}
	if err := n.Validate(); err != nil {
		return nil, err
	}
	if n.AuthorID == "" {
		return nil, fmt.Errorf("%w: author_id is required", models.ErrInvalidPlace)
	}

	p := models.Place{
		ID:          uuid.NewString(),
		Latitude:    n.Latitude,
		Longitude:   n.Longitude,
		Name:        strings.TrimSpace(n.Name),
		Type:        placetype.Normalize(n.Type),
		Rating:      n.Rating,
		Description: n.Description,
		Address:     n.Address,
		AuthorID:    n.AuthorID,
		CreatedAt:   s.now(),
	}
	if n.Image != nil {
		p.Image = *n.Image
	}
	s.places = append(s.places, p)
	return &p, nil
}
