// Package auth holds the signed-in user and wraps the backend's auth calls
// with user-facing notifications.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"geoloc/internal/models"
	"geoloc/internal/notify"
)

var ErrPasswordMismatch = errors.New("passwords do not match")

const (
	msgSignedIn         = "Signed in! 🎉"
	msgSignedOut        = "Signed out"
	msgCheckEmail       = "Check your email to confirm your account"
	msgMagicLinkSent    = "Magic link sent! Check your email 📧"
	msgResetSent        = "Password reset email sent"
	msgPasswordMismatch = "Passwords do not match"
)

// Backend is the auth half of the backend client.
type Backend interface {
	GetSession(ctx context.Context) (*models.Session, error)
	SignInWithPassword(ctx context.Context, email, password string) (*models.Session, error)
	SignUp(ctx context.Context, email, password string, metadata map[string]any) error
	SignInWithOTP(ctx context.Context, email, redirectTo string) error
	VerifyOTP(ctx context.Context, tokenHash, kind string) (*models.Session, error)
	SignOut(ctx context.Context) error
	ResetPasswordForEmail(ctx context.Context, email, redirectTo string) error
	// Subscribe streams session changes until the returned function is called.
	Subscribe() (<-chan models.AuthEvent, func())
}

// Options are the redirect targets embedded in auth emails.
type Options struct {
	SiteURL string
}

// MagicLinkKind is the verification type of sign-in links.
const MagicLinkKind = "magiclink"

// ConfirmPath is where emailed sign-in links land. The email template is
// expected to append token_hash and type to the redirect URL.
const ConfirmPath = "/api/auth/confirm"

func (o Options) confirmURL() string {
	if o.SiteURL == "" {
		return ""
	}
	return o.SiteURL + ConfirmPath
}

func (o Options) resetURL() string {
	if o.SiteURL == "" {
		return ""
	}
	return o.SiteURL + "/reset-password"
}

// SignUp is the registration form.
type SignUp struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
	DisplayName     string `json:"display_name"`
}

// Store tracks the current user. Create it with NewStore, call Init once and
// Close when done.
type Store struct {
	backend  Backend
	notifier notify.Notifier
	opts     Options

	mu      sync.RWMutex
	user    *models.User
	loading bool

	unsubscribe func()
	done        chan struct{}
}

func NewStore(backend Backend, notifier notify.Notifier, opts Options) *Store {
	return &Store{
		backend:  backend,
		notifier: notifier,
		opts:     opts,
		loading:  true,
	}
}

// Init loads the current session and starts following auth events.
func (s *Store) Init(ctx context.Context) error {
	session, err := s.backend.GetSession(ctx)
	if err != nil {
		log.Printf("Error reading session: %v", err)
		session = nil
	}
	s.setSession(session)
	s.setLoading(false)

	events, unsubscribe := s.backend.Subscribe()
	s.unsubscribe = unsubscribe
	s.done = make(chan struct{})
	go s.follow(events)

	if err != nil {
		return fmt.Errorf("get session: %w", err)
	}
	return nil
}

func (s *Store) follow(events <-chan models.AuthEvent) {
	defer close(s.done)
	for e := range events {
		s.setSession(e.Session)
		s.setLoading(false)
		switch e.Kind {
		case models.SignedIn:
			s.notifier.Success(msgSignedIn)
		case models.SignedOut:
			s.notifier.Success(msgSignedOut)
		}
	}
}

// Close stops following auth events and waits for the listener to exit.
func (s *Store) Close() {
	if s.unsubscribe == nil {
		return
	}
	s.unsubscribe()
	<-s.done
	s.unsubscribe = nil
}

// User returns a copy of the signed-in user, or nil.
func (s *Store) User() *models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// CurrentUser lets the store act as the orchestrator's session source.
func (s *Store) CurrentUser() *models.User {
	return s.User()
}

func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

func (s *Store) setSession(session *models.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session == nil {
		s.user = nil
		return
	}
	u := session.User
	s.user = &u
}

func (s *Store) setLoading(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = v
}

// run wraps a backend call with the loading flag and the failure toast.
func (s *Store) run(op string, fn func() error) error {
	s.setLoading(true)
	defer s.setLoading(false)
	if err := fn(); err != nil {
		log.Printf("Error during %s: %v", op, err)
		s.notifier.Error(err.Error())
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *Store) SignInWithEmail(ctx context.Context, email, password string) error {
	return s.run("sign in", func() error {
		session, err := s.backend.SignInWithPassword(ctx, email, password)
		if err != nil {
			return err
		}
		s.setSession(session)
		return nil
	})
}

func (s *Store) SignUpWithEmail(ctx context.Context, in SignUp) error {
	if in.Password != in.ConfirmPassword {
		s.notifier.Error(msgPasswordMismatch)
		return ErrPasswordMismatch
	}
	err := s.run("sign up", func() error {
		return s.backend.SignUp(ctx, in.Email, in.Password, map[string]any{"display_name": in.DisplayName})
	})
	if err != nil {
		return err
	}
	s.notifier.Success(msgCheckEmail)
	return nil
}

func (s *Store) SignInWithMagicLink(ctx context.Context, email string) error {
	err := s.run("magic link", func() error {
		return s.backend.SignInWithOTP(ctx, email, s.opts.confirmURL())
	})
	if err != nil {
		return err
	}
	s.notifier.Success(msgMagicLinkSent)
	return nil
}

// VerifyMagicLink signs in with the token hash carried by an emailed link.
// An empty kind means a sign-in link.
func (s *Store) VerifyMagicLink(ctx context.Context, tokenHash, kind string) error {
	if kind == "" {
		kind = MagicLinkKind
	}
	return s.run("verify magic link", func() error {
		session, err := s.backend.VerifyOTP(ctx, tokenHash, kind)
		if err != nil {
			return err
		}
		s.setSession(session)
		return nil
	})
}

func (s *Store) SignOut(ctx context.Context) error {
	return s.run("sign out", func() error {
		if err := s.backend.SignOut(ctx); err != nil {
			return err
		}
		s.setSession(nil)
		return nil
	})
}

// ResetPassword asks the backend to email a reset link. It does not touch the
// loading flag.
func (s *Store) ResetPassword(ctx context.Context, email string) error {
	if err := s.backend.ResetPasswordForEmail(ctx, email, s.opts.resetURL()); err != nil {
		log.Printf("Error during password reset: %v", err)
		s.notifier.Error(err.Error())
		return fmt.Errorf("password reset: %w", err)
	}
	s.notifier.Success(msgResetSent)
	return nil
}
