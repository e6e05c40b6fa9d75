// Package location is a small Nominatim client.
package location

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultBaseURL = "https://nominatim.openstreetmap.org"
	userAgent      = "geoloc/1.0"
)

// ErrNoAddress is returned when nothing is known at the given coordinates.
var ErrNoAddress = errors.New("no address at location")

// Address is the postal part of a reverse geocoding answer.
type Address struct {
	HouseNumber string `json:"house_number"`
	Road        string `json:"road"`
	Suburb      string `json:"suburb"`
	City        string `json:"city"`
	Town        string `json:"town"`
	Village     string `json:"village"`
	Postcode    string `json:"postcode"`
	Country     string `json:"country"`
	CountryCode string `json:"country_code"`
}

// Locality returns the city, town or village, whichever is set.
func (a Address) Locality() string {
	for _, s := range []string{a.City, a.Town, a.Village} {
		if s != "" {
			return s
		}
	}
	return ""
}

// Short formats the address as "12 Road, 75001 City". It returns an empty
// string when the road is unknown.
func (a Address) Short() string {
	if a.Road == "" {
		return ""
	}
	street := strings.TrimSpace(a.HouseNumber + " " + a.Road)
	town := strings.TrimSpace(a.Postcode + " " + a.Locality())
	if town == "" {
		return street
	}
	return street + ", " + town
}

// NominatimReverse is the /reverse answer.
type NominatimReverse struct {
	PlaceID     int64   `json:"place_id"`
	OsmType     string  `json:"osm_type"`
	OsmID       int64   `json:"osm_id"`
	Lat         string  `json:"lat"`
	Lon         string  `json:"lon"`
	DisplayName string  `json:"display_name"`
	Address     Address `json:"address"`
	Error       string  `json:"error"`
}

// Client queries a Nominatim instance.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient uses DefaultBaseURL when baseURL is empty.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// ReverseDetails looks up the address at lat, lng.
func (c *Client) ReverseDetails(ctx context.Context, lat, lng float64) (*NominatimReverse, error) {
	params := url.Values{}
	params.Set("format", "json")
	params.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	params.Set("lon", strconv.FormatFloat(lng, 'f', -1, 64))
	params.Set("addressdetails", "1")
	params.Set("accept-language", "en")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/reverse?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %s", resp.Status)
	}

	var result NominatimReverse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}
	if result.Error != "" {
		return nil, fmt.Errorf("%w: %s", ErrNoAddress, result.Error)
	}
	return &result, nil
}

// Reverse returns a short postal address for lat, lng, falling back to the
// full display name.
func (c *Client) Reverse(ctx context.Context, lat, lng float64) (string, error) {
	r, err := c.ReverseDetails(ctx, lat, lng)
	if err != nil {
		return "", err
	}
	if short := r.Address.Short(); short != "" {
		return short, nil
	}
	if r.DisplayName == "" {
		return "", ErrNoAddress
	}
	return r.DisplayName, nil
}
