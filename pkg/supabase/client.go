// Package supabase is a small client for the parts of a Supabase project the
// application uses: PostgREST for the places table and GoTrue for auth.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"geoloc/internal/models"
)

// ErrMissingConfig is returned by New when the project URL or key is empty.
var ErrMissingConfig = errors.New("missing Supabase URL or anon key")

// Config holds the project endpoint and credentials.
type Config struct {
	URL     string
	AnonKey string
	// JWTSecret verifies access tokens when set. Without it tokens are only
	// decoded.
	JWTSecret string
	// Storage persists the session between runs. Nil keeps it in memory.
	Storage    SessionStorage
	HTTPClient *http.Client
}

// Client talks to one Supabase project. It is safe for concurrent use.
type Client struct {
	baseURL   string
	anonKey   string
	jwtSecret []byte
	storage   SessionStorage
	http      *http.Client
	events    *Broadcaster
	now       func() time.Time

	mu      sync.Mutex
	session *models.Session
	// refreshMu lets one refresh run at a time.
	refreshMu sync.Mutex
}

// refreshMargin renews a session shortly before the server would reject it.
const refreshMargin = 30 * time.Second

func New(cfg Config) (*Client, error) {
	if cfg.URL == "" || cfg.AnonKey == "" {
		return nil, ErrMissingConfig
	}
	if _, err := url.ParseRequestURI(cfg.URL); err != nil {
		return nil, fmt.Errorf("invalid Supabase URL %q: %w", cfg.URL, err)
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	c := &Client{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		anonKey: cfg.AnonKey,
		storage: cfg.Storage,
		http:    httpClient,
		events:  NewBroadcaster(),
		now:     time.Now,
	}
	if cfg.JWTSecret != "" {
		c.jwtSecret = []byte(cfg.JWTSecret)
	}
	return c, nil
}

// APIError is a non-2xx answer from PostgREST or GoTrue.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("supabase: unexpected status %d", e.Status)
	}
	return e.Message
}

// errorBody covers both the PostgREST and the GoTrue error shapes.
type errorBody struct {
	Message          string          `json:"message"`
	Msg              string          `json:"msg"`
	ErrorDescription string          `json:"error_description"`
	Error            string          `json:"error"`
	ErrorCode        string          `json:"error_code"`
	Code             json.RawMessage `json:"code"`
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var body errorBody
	if err := json.Unmarshal(data, &body); err != nil {
		apiErr.Message = strings.TrimSpace(string(data))
		return apiErr
	}
	for _, m := range []string{body.Message, body.Msg, body.ErrorDescription, body.Error} {
		if m != "" {
			apiErr.Message = m
			break
		}
	}
	apiErr.Code = body.ErrorCode
	if apiErr.Code == "" && len(body.Code) > 0 {
		apiErr.Code = strings.Trim(string(body.Code), `"`)
	}
	return apiErr
}

type request struct {
	method string
	path   string
	query  url.Values
	body   any
	header http.Header
	// token overrides the bearer token. Empty uses the session or anon key.
	token string
}

// accessToken returns the bearer for a request made on the user's behalf.
// A session about to expire is refreshed first. A session the server refuses
// to refresh is dropped and the request falls back to the anon key.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	s, ok := c.currentSession()
	if !ok {
		return c.anonKey, nil
	}
	if !s.Expired(c.now().Add(refreshMargin)) {
		return s.AccessToken, nil
	}

	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()
	// Another request may have refreshed while this one waited.
	if s, ok = c.currentSession(); !ok {
		return c.anonKey, nil
	}
	if !s.Expired(c.now().Add(refreshMargin)) {
		return s.AccessToken, nil
	}

	if s.RefreshToken != "" {
		refreshed, err := c.refresh(ctx, s.RefreshToken)
		if err == nil {
			return refreshed.AccessToken, nil
		}
		var apiErr *APIError
		if !errors.As(err, &apiErr) {
			return "", fmt.Errorf("refresh session: %w", err)
		}
		log.Printf("Session refresh rejected: %v", err)
	}
	c.clearSession()
	c.events.Emit(models.AuthEvent{Kind: models.SignedOut})
	return c.anonKey, nil
}

func (c *Client) currentSession() (*models.Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil || c.session.AccessToken == "" {
		return nil, false
	}
	return copySession(c.session), true
}

// do sends r and decodes a JSON answer into out when out is not nil.
func (c *Client) do(ctx context.Context, r request, out any) error {
	u := c.baseURL + r.path
	if len(r.query) > 0 {
		u += "?" + r.query.Encode()
	}

	var body io.Reader
	if r.body != nil {
		data, err := json.Marshal(r.body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, u, body)
	if err != nil {
		return err
	}
	token := r.token
	if token == "" {
		if token, err = c.accessToken(ctx); err != nil {
			return err
		}
	}
	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, vs := range r.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", r.method, r.path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode %s %s: %w", r.method, r.path, err)
	}
	return nil
}
