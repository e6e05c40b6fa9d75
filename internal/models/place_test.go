package models

import (
	"errors"
	"testing"
	"time"
)

func TestAuthorName(t *testing.T) {
	tests := []struct {
		name    string
		profile *Profile
		want    string
	}{
		{name: "display name wins", profile: &Profile{DisplayName: "Marie", Email: "m@example.com"}, want: "Marie"},
		{name: "email local part", profile: &Profile{Email: "jean.dupont@example.com"}, want: "jean.dupont"},
		{name: "email without domain", profile: &Profile{Email: "jean"}, want: "jean"},
		{name: "empty local part", profile: &Profile{Email: "@example.com"}, want: AnonymousAuthor},
		{name: "empty profile", profile: &Profile{}, want: AnonymousAuthor},
		{name: "no profile", profile: nil, want: AnonymousAuthor},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AuthorName(tt.profile); got != tt.want {
				t.Errorf("AuthorName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNewPlaceValidate(t *testing.T) {
	four, zero := 4, 0
	tests := []struct {
		name    string
		place   NewPlace
		wantErr bool
	}{
		{name: "valid", place: NewPlace{Name: "Café Test", Type: "bar", Rating: &four, Latitude: 48.85, Longitude: 2.35}},
		{name: "no rating", place: NewPlace{Name: "Parc", Latitude: 0, Longitude: 0}},
		{name: "blank name", place: NewPlace{Name: "   ", Latitude: 1, Longitude: 1}, wantErr: true},
		{name: "latitude out of range", place: NewPlace{Name: "x", Latitude: 91}, wantErr: true},
		{name: "longitude out of range", place: NewPlace{Name: "x", Longitude: -181}, wantErr: true},
		{name: "rating out of range", place: NewPlace{Name: "x", Rating: &zero}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.place.Validate()
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidPlace) {
					t.Errorf("Validate() = %v, want ErrInvalidPlace", err)
				}
				return
			}
			if err != nil {
				t.Errorf("Validate() unexpected error: %v", err)
			}
		})
	}
}

func TestSessionExpired(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	var nilSession *Session
	if !nilSession.Expired(now) {
		t.Error("nil session should be expired")
	}
	if (&Session{}).Expired(now) {
		t.Error("session without expiry should not be expired")
	}
	if !(&Session{ExpiresAt: now}).Expired(now) {
		t.Error("session expiring now should be expired")
	}
	if (&Session{ExpiresAt: now.Add(time.Minute)}).Expired(now) {
		t.Error("session expiring later should not be expired")
	}
}
