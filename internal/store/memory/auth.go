package memory

import (
	"context"
	"strings"
	"time"

	"geoloc/internal/models"

	"github.com/google/uuid"
)

const sessionTTL = time.Hour

func (s *Store) GetSession(ctx context.Context) (*models.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.authErr != nil {
		return nil, s.authErr
	}
	if s.session == nil || s.session.Expired(s.now()) {
		return nil, nil
	}
	out := *s.session
	return &out, nil
}

func (s *Store) SignInWithPassword(ctx context.Context, email, password string) (*models.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	if s.authErr != nil {
		s.mu.Unlock()
		return nil, s.authErr
	}
	acc, ok := s.accounts[strings.ToLower(email)]
	if !ok || acc.password != password {
		s.mu.Unlock()
		return nil, ErrInvalidCredentials
	}
	session := s.newSessionLocked(acc)
	out := *session
	s.mu.Unlock()

	s.events.Emit(models.AuthEvent{Kind: models.SignedIn, Session: &out})
	return &out, nil
}

func (s *Store) SignUp(ctx context.Context, email, password string, metadata map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.authErr != nil {
		return s.authErr
	}
	if _, ok := s.accounts[strings.ToLower(email)]; ok {
		return ErrUserExists
	}
	displayName, _ := metadata["display_name"].(string)
	s.addUserLocked(email, password, displayName)
	return nil
}

func (s *Store) SignInWithOTP(ctx context.Context, email, redirectTo string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.authErr != nil {
		return s.authErr
	}
	s.otpRequests = append(s.otpRequests, email)
	s.otpTokens[uuid.NewString()] = strings.ToLower(email)
	return nil
}

// VerifyOTP signs in the owner of a magic link token. Each token works once,
// and unknown addresses get an account as they would on the hosted service.
func (s *Store) VerifyOTP(ctx context.Context, tokenHash, kind string) (*models.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	if s.authErr != nil {
		s.mu.Unlock()
		return nil, s.authErr
	}
	email, ok := s.otpTokens[tokenHash]
	if !ok || kind != "magiclink" {
		s.mu.Unlock()
		return nil, ErrInvalidOTP
	}
	delete(s.otpTokens, tokenHash)
	acc, ok := s.accounts[email]
	if !ok {
		s.addUserLocked(email, "", "")
		acc = s.accounts[email]
	}
	session := s.newSessionLocked(acc)
	out := *session
	s.mu.Unlock()

	s.events.Emit(models.AuthEvent{Kind: models.SignedIn, Session: &out})
	return &out, nil
}

// MagicLinkToken returns the pending token emailed to email, as a user would
// read it from the link.
func (s *Store) MagicLinkToken(email string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for token, to := range s.otpTokens {
		if to == strings.ToLower(email) {
			return token, true
		}
	}
	return "", false
}

func (s *Store) SignOut(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	if s.authErr != nil {
		s.mu.Unlock()
		return s.authErr
	}
	s.session = nil
	s.mu.Unlock()

	s.events.Emit(models.AuthEvent{Kind: models.SignedOut})
	return nil
}

func (s *Store) ResetPasswordForEmail(ctx context.Context, email, redirectTo string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.authErr != nil {
		return s.authErr
	}
	s.resets = append(s.resets, email)
	return nil
}

func (s *Store) Subscribe() (<-chan models.AuthEvent, func()) {
	return s.events.Subscribe()
}

func (s *Store) newSessionLocked(acc account) *models.Session {
	s.session = &models.Session{
		AccessToken:  uuid.NewString(),
		RefreshToken: uuid.NewString(),
		ExpiresAt:    s.now().Add(sessionTTL),
		User: models.User{
			ID:          acc.id,
			Email:       acc.profile.Email,
			DisplayName: acc.profile.DisplayName,
		},
	}
	return s.session
}
