package location_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"geoloc/pkg/location"
)

func TestReverse(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		status  int
		want    string
		wantErr error
	}{
		{
			name: "street address",
			body: `{"display_name":"Louvre, 1 Rue de Rivoli, Paris, France",
				"address":{"house_number":"1","road":"Rue de Rivoli","postcode":"75001","city":"Paris","country":"France"}}`,
			want: "1 Rue de Rivoli, 75001 Paris",
		},
		{
			name: "village without postcode",
			body: `{"address":{"road":"Main Street","village":"Ambridge"}}`,
			want: "Main Street, Ambridge",
		},
		{
			name: "no road",
			body: `{"display_name":"Bois de Boulogne, Paris, France","address":{"city":"Paris"}}`,
			want: "Bois de Boulogne, Paris, France",
		},
		{
			name:    "open sea",
			body:    `{"error":"Unable to geocode"}`,
			wantErr: location.ErrNoAddress,
		},
		{
			name:   "server error",
			status: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/reverse" {
					t.Errorf("path = %s, want /reverse", r.URL.Path)
				}
				q := r.URL.Query()
				if q.Get("lat") != "48.8566" || q.Get("lon") != "2.3522" || q.Get("format") != "json" {
					t.Errorf("query = %s", r.URL.RawQuery)
				}
				if r.Header.Get("User-Agent") == "" {
					t.Error("missing User-Agent")
				}
				if tt.status != 0 {
					w.WriteHeader(tt.status)
					return
				}
				io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			got, err := location.NewClient(srv.URL).Reverse(context.Background(), 48.8566, 2.3522)
			if tt.status != 0 {
				if err == nil {
					t.Fatal("want error for non-200 status")
				}
				return
			}
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Reverse: %v", err)
			}
			if got != tt.want {
				t.Errorf("Reverse = %q, want %q", got, tt.want)
			}
		})
	}
}
