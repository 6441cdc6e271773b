package geocoding_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sustainasite/sustainasite-backend/internal/siting/geocoding"
	"github.com/sustainasite/sustainasite-backend/internal/siting/provider"
)

// newNominatimServer answers /search with body for every query except
// "###invalid###", which gets an empty result list.
func newNominatimServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("User-Agent") != "sustainasite-test" {
			http.Error(w, "missing user agent", http.StatusForbidden)
			return
		}
		if r.URL.Query().Get("format") != "jsonv2" || r.URL.Query().Get("limit") != "1" {
			http.Error(w, "bad params", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("q") == "###invalid###" {
			_, _ = w.Write([]byte(`[]`))
			return
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNominatim_Geocode(t *testing.T) {
	srv := newNominatimServer(t, http.StatusOK,
		`[{"lat":"41.8755616","lon":"-87.6244212","display_name":"Chicago, Cook County, Illinois, United States"}]`)
	client := geocoding.NewNominatimClient(srv.URL+"/", "sustainasite-test")

	p, err := client.Geocode(context.Background(), "Chicago, IL")
	if err != nil {
		t.Fatalf("Geocode: %v", err)
	}
	if p.Lat != 41.8755616 || p.Lon != -87.6244212 {
		t.Errorf("unexpected point %+v", p)
	}
}

func TestNominatim_NotFound(t *testing.T) {
	srv := newNominatimServer(t, http.StatusOK, `[]`)
	client := geocoding.NewNominatimClient(srv.URL, "sustainasite-test")

	_, err := client.Geocode(context.Background(), "###invalid###")
	if !errors.Is(err, provider.ErrGeocodeNotFound) {
		t.Fatalf("expected ErrGeocodeNotFound, got %v", err)
	}
}

func TestNominatim_UpstreamFailure(t *testing.T) {
	srv := newNominatimServer(t, http.StatusServiceUnavailable, `oops`)
	client := geocoding.NewNominatimClient(srv.URL, "sustainasite-test")

	_, err := client.Geocode(context.Background(), "Chicago, IL")
	if !errors.Is(err, provider.ErrUpstreamService) {
		t.Fatalf("expected ErrUpstreamService, got %v", err)
	}
}

func TestNominatim_BadPayload(t *testing.T) {
	srv := newNominatimServer(t, http.StatusOK, `[{"lat":"north","lon":"-87.6"}]`)
	client := geocoding.NewNominatimClient(srv.URL, "sustainasite-test")

	_, err := client.Geocode(context.Background(), "Chicago, IL")
	if !errors.Is(err, provider.ErrUpstreamService) {
		t.Fatalf("expected ErrUpstreamService, got %v", err)
	}
}

func TestNominatim_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client := geocoding.NewNominatimClient(url, "sustainasite-test")
	_, err := client.Geocode(context.Background(), "Chicago, IL")
	if !errors.Is(err, provider.ErrUpstreamService) {
		t.Fatalf("expected ErrUpstreamService, got %v", err)
	}
}

func TestResolver_EndToEndInvalidAddress(t *testing.T) {
	srv := newNominatimServer(t, http.StatusOK, `[]`)
	r := geocoding.NewResolver(geocoding.NewNominatimClient(srv.URL, "sustainasite-test"))

	_, _, err := r.Resolve(context.Background(), "###invalid###", 10)
	if !errors.Is(err, provider.ErrGeocodeNotFound) {
		t.Fatalf("expected ErrGeocodeNotFound, got %v", err)
	}
}
