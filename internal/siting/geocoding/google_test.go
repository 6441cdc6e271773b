package geocoding

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/sustainasite/sustainasite-backend/internal/siting/provider"
)

func newGoogleTestClient(t *testing.T, body string) *GoogleClient {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("key") != "test-key" {
			http.Error(w, "denied", http.StatusForbidden)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	c := NewGoogleClient("test-key")
	c.endpoint = srv.URL
	return c
}

func TestGoogleGeocode_OK(t *testing.T) {
	c := newGoogleTestClient(t, `{"status":"OK","results":[{"formatted_address":"Chicago, IL, USA","geometry":{"location":{"lat":41.8781136,"lng":-87.6297982}}}]}`)

	p, err := c.Geocode(context.Background(), "Chicago, IL")
	if err != nil {
		t.Fatalf("Geocode: %v", err)
	}
	if p.Lat != 41.8781136 || p.Lon != -87.6297982 {
		t.Errorf("unexpected point %+v", p)
	}
}

func TestGoogleGeocode_ZeroResults(t *testing.T) {
	c := newGoogleTestClient(t, `{"status":"ZERO_RESULTS","results":[]}`)

	_, err := c.Geocode(context.Background(), "###invalid###")
	if !errors.Is(err, provider.ErrGeocodeNotFound) {
		t.Fatalf("expected ErrGeocodeNotFound, got %v", err)
	}
}

func TestGoogleGeocode_Denied(t *testing.T) {
	c := newGoogleTestClient(t, `{"status":"REQUEST_DENIED","results":[]}`)

	_, err := c.Geocode(context.Background(), "Chicago, IL")
	if !errors.Is(err, provider.ErrUpstreamService) {
		t.Fatalf("expected ErrUpstreamService, got %v", err)
	}
}

func TestGoogleGeocode_Live(t *testing.T) {
	// This test requires GOOGLE_MAPS_API_KEY to be set
	key := os.Getenv("GOOGLE_MAPS_API_KEY")
	if key == "" {
		t.Skip("GOOGLE_MAPS_API_KEY not set")
	}

	p, err := NewGoogleClient(key).Geocode(context.Background(), "Chicago, IL")
	if err != nil {
		t.Fatalf("Geocode error: %v", err)
	}
	t.Logf("Geocoded result: %+v", p)

	if p.Lat < 41.6 || p.Lat > 42.1 || p.Lon < -87.9 || p.Lon > -87.4 {
		t.Errorf("Chicago resolved outside the city: %+v", p)
	}
}
