package supabase

import (
	"context"
	"errors"
	"log"
	"net/http"
	"net/url"
	"time"

	"geoloc/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

const authPath = "/auth/v1"

type tokenResponse struct {
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	ExpiresIn    int64    `json:"expires_in"`
	ExpiresAt    int64    `json:"expires_at"`
	User         authUser `json:"user"`
}

type authUser struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	UserMetadata map[string]any `json:"user_metadata"`
}

type credentials struct {
	Email    string         `json:"email"`
	Password string         `json:"password,omitempty"`
	Data     map[string]any `json:"data,omitempty"`
}

// toSession builds a session from a token grant. Missing user fields and the
// expiry are filled in from the access token claims.
func (c *Client) toSession(tr tokenResponse) (*models.Session, error) {
	claims, err := ParseAccessToken(tr.AccessToken, c.jwtSecret)
	if err != nil {
		return nil, err
	}
	s := &models.Session{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		User: models.User{
			ID:    tr.User.ID,
			Email: tr.User.Email,
		},
	}
	s.User.DisplayName, _ = tr.User.UserMetadata["display_name"].(string)

	switch {
	case tr.ExpiresAt > 0:
		s.ExpiresAt = time.Unix(tr.ExpiresAt, 0)
	case tr.ExpiresIn > 0:
		s.ExpiresAt = c.now().Add(time.Duration(tr.ExpiresIn) * time.Second)
	case claims.ExpiresAt != nil:
		s.ExpiresAt = claims.ExpiresAt.Time
	}
	if s.User.ID == "" {
		s.User.ID = claims.Subject
	}
	if s.User.Email == "" {
		s.User.Email = claims.Email
	}
	if s.User.DisplayName == "" {
		s.User.DisplayName = claims.DisplayName()
	}
	return s, nil
}

func (c *Client) setSession(s *models.Session) {
	c.mu.Lock()
	c.session = s
	c.mu.Unlock()
	if c.storage == nil {
		return
	}
	if err := c.storage.Save(s); err != nil {
		log.Printf("Failed to persist session: %v", err)
	}
}

func (c *Client) clearSession() {
	c.mu.Lock()
	c.session = nil
	c.mu.Unlock()
	if c.storage == nil {
		return
	}
	if err := c.storage.Clear(); err != nil {
		log.Printf("Failed to clear stored session: %v", err)
	}
}

func copySession(s *models.Session) *models.Session {
	out := *s
	return &out
}

// GetSession returns the current session, loading it from storage on first
// use and refreshing it when the access token has expired. It returns nil
// without an error when nobody is signed in.
func (c *Client) GetSession(ctx context.Context) (*models.Session, error) {
	c.mu.Lock()
	s := c.session
	c.mu.Unlock()

	if s == nil && c.storage != nil {
		stored, err := c.storage.Load()
		if err != nil {
			return nil, err
		}
		s = stored
	}
	if s == nil {
		return nil, nil
	}

	expired := s.Expired(c.now())
	if !expired && len(c.jwtSecret) > 0 {
		if _, err := ParseAccessToken(s.AccessToken, c.jwtSecret); err != nil {
			if !errors.Is(err, jwt.ErrTokenExpired) {
				log.Printf("Discarding stored session: %v", err)
				c.clearSession()
				return nil, nil
			}
			expired = true
		}
	}
	if !expired {
		c.mu.Lock()
		c.session = s
		c.mu.Unlock()
		return copySession(s), nil
	}

	if s.RefreshToken == "" {
		c.clearSession()
		return nil, nil
	}
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()
	refreshed, err := c.refresh(ctx, s.RefreshToken)
	if err != nil {
		c.clearSession()
		return nil, err
	}
	return refreshed, nil
}

func (c *Client) refresh(ctx context.Context, refreshToken string) (*models.Session, error) {
	var tr tokenResponse
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   authPath + "/token",
		query:  url.Values{"grant_type": {"refresh_token"}},
		body:   map[string]string{"refresh_token": refreshToken},
		token:  c.anonKey,
	}, &tr)
	if err != nil {
		return nil, err
	}
	s, err := c.toSession(tr)
	if err != nil {
		return nil, err
	}
	c.setSession(s)
	c.events.Emit(models.AuthEvent{Kind: models.TokenRefreshed, Session: copySession(s)})
	return copySession(s), nil
}

func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*models.Session, error) {
	var tr tokenResponse
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   authPath + "/token",
		query:  url.Values{"grant_type": {"password"}},
		body:   credentials{Email: email, Password: password},
		token:  c.anonKey,
	}, &tr)
	if err != nil {
		return nil, err
	}
	return c.signedIn(tr)
}

// VerifyOTP exchanges the token hash of an emailed link for a session. kind
// is the GoTrue verification type, "magiclink" for sign-in links.
func (c *Client) VerifyOTP(ctx context.Context, tokenHash, kind string) (*models.Session, error) {
	var tr tokenResponse
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   authPath + "/verify",
		body:   map[string]string{"type": kind, "token_hash": tokenHash},
		token:  c.anonKey,
	}, &tr)
	if err != nil {
		return nil, err
	}
	return c.signedIn(tr)
}

func (c *Client) signedIn(tr tokenResponse) (*models.Session, error) {
	s, err := c.toSession(tr)
	if err != nil {
		return nil, err
	}
	c.setSession(s)
	c.events.Emit(models.AuthEvent{Kind: models.SignedIn, Session: copySession(s)})
	return copySession(s), nil
}

// SignUp registers a new account. When the project confirms accounts
// automatically the answer carries a session and the user is signed in.
func (c *Client) SignUp(ctx context.Context, email, password string, metadata map[string]any) error {
	var tr tokenResponse
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   authPath + "/signup",
		body:   credentials{Email: email, Password: password, Data: metadata},
		token:  c.anonKey,
	}, &tr)
	if err != nil {
		return err
	}
	if tr.AccessToken == "" {
		return nil
	}
	s, err := c.toSession(tr)
	if err != nil {
		return err
	}
	c.setSession(s)
	c.events.Emit(models.AuthEvent{Kind: models.SignedIn, Session: copySession(s)})
	return nil
}

func (c *Client) SignInWithOTP(ctx context.Context, email, redirectTo string) error {
	r := request{
		method: http.MethodPost,
		path:   authPath + "/otp",
		body:   map[string]any{"email": email, "create_user": true},
		token:  c.anonKey,
	}
	if redirectTo != "" {
		r.query = url.Values{"redirect_to": {redirectTo}}
	}
	return c.do(ctx, r, nil)
}

// SignOut revokes the session server-side and forgets it locally. A session
// the server no longer knows counts as signed out.
func (c *Client) SignOut(ctx context.Context) error {
	c.mu.Lock()
	s := c.session
	c.mu.Unlock()

	if s != nil {
		err := c.do(ctx, request{
			method: http.MethodPost,
			path:   authPath + "/logout",
			token:  s.AccessToken,
		}, nil)
		var apiErr *APIError
		if err != nil && !(errors.As(err, &apiErr) && (apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusNotFound)) {
			return err
		}
	}
	c.clearSession()
	c.events.Emit(models.AuthEvent{Kind: models.SignedOut})
	return nil
}

func (c *Client) ResetPasswordForEmail(ctx context.Context, email, redirectTo string) error {
	r := request{
		method: http.MethodPost,
		path:   authPath + "/recover",
		body:   map[string]string{"email": email},
		token:  c.anonKey,
	}
	if redirectTo != "" {
		r.query = url.Values{"redirect_to": {redirectTo}}
	}
	return c.do(ctx, r, nil)
}

// Subscribe streams auth events until the returned function is called.
func (c *Client) Subscribe() (<-chan models.AuthEvent, func()) {
	return c.events.Subscribe()
}

// CurrentUser returns the user of the cached session, if any.
func (c *Client) CurrentUser() *models.User {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return nil
	}
	u := c.session.User
	return &u
}
