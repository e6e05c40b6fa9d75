package supabase

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"geoloc/internal/models"
)

const (
	placesPath   = "/rest/v1/places"
	placesSelect = "*,profiles:author_id(display_name,email)"
)

var errEmptyInsert = errors.New("insert returned no rows")

// ListPlaces returns every place with its author's profile, newest first.
func (c *Client) ListPlaces(ctx context.Context) ([]models.Place, error) {
	q := url.Values{}
	q.Set("select", placesSelect)
	q.Set("order", "created_at.desc")

	var places []models.Place
	if err := c.do(ctx, request{method: http.MethodGet, path: placesPath, query: q}, &places); err != nil {
		return nil, err
	}
	return places, nil
}

// CreatePlace inserts one row and returns it as stored.
func (c *Client) CreatePlace(ctx context.Context, p models.NewPlace) (*models.Place, error) {
	r := request{
		method: http.MethodPost,
		path:   placesPath,
		body:   []models.NewPlace{p},
		header: http.Header{"Prefer": []string{"return=representation"}},
	}
	var rows []models.Place
	if err := c.do(ctx, r, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, errEmptyInsert
	}
	return &rows[0], nil
}
