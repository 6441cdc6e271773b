package geocoding

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sustainasite/sustainasite-backend/internal/siting/provider"
)

// GoogleEndpoint is the Google Maps Geocoding API.
const GoogleEndpoint = "https://maps.googleapis.com/maps/api/geocode/json"

// GoogleClient wraps the Google Maps Geocoding API.
type GoogleClient struct {
	apiKey     string
	endpoint   string
	httpClient *http.Client
}

// NewGoogleClient creates a geocoding client for apiKey.
func NewGoogleClient(apiKey string) *GoogleClient {
	return &GoogleClient{
		apiKey:   apiKey,
		endpoint: GoogleEndpoint,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

func (c *GoogleClient) Name() string { return "google" }

type geocodeResponse struct {
	Results []geocodeResult `json:"results"`
	Status  string          `json:"status"`
}

type geocodeResult struct {
	FormattedAddress string   `json:"formatted_address"`
	Geometry         geometry `json:"geometry"`
}

type geometry struct {
	Location latLng `json:"location"`
}

type latLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Geocode converts a free-form address string into a point.
func (c *GoogleClient) Geocode(ctx context.Context, address string) (provider.Point, error) {
	u := fmt.Sprintf("%s?address=%s&key=%s", c.endpoint, url.QueryEscape(address), c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return provider.Point{}, fmt.Errorf("creating request: %w", err)
	}

	start := time.Now()
	provider.LogRequest("google", http.MethodGet, c.endpoint, map[string]interface{}{"address": address})

	resp, err := c.httpClient.Do(req)
	if err != nil {
		provider.LogError("google", "fetch", err)
		return provider.Point{}, fmt.Errorf("%w: geocoding request: %w", provider.ErrUpstreamService, err)
	}
	defer resp.Body.Close()

	// Check HTTP status first
	if resp.StatusCode != http.StatusOK {
		return provider.Point{}, fmt.Errorf("%w: geocoding API returned HTTP %d", provider.ErrUpstreamService, resp.StatusCode)
	}

	var geoResp geocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&geoResp); err != nil {
		return provider.Point{}, fmt.Errorf("%w: decoding response: %w", provider.ErrUpstreamService, err)
	}
	provider.LogResponse("google", resp.StatusCode, time.Since(start), len(geoResp.Results))

	switch geoResp.Status {
	case "OK":
	case "ZERO_RESULTS":
		return provider.Point{}, fmt.Errorf("%w: %q", provider.ErrGeocodeNotFound, address)
	default:
		return provider.Point{}, fmt.Errorf("%w: geocoding failed: status=%s", provider.ErrUpstreamService, geoResp.Status)
	}
	if len(geoResp.Results) == 0 {
		return provider.Point{}, fmt.Errorf("%w: %q", provider.ErrGeocodeNotFound, address)
	}

	loc := geoResp.Results[0].Geometry.Location
	return provider.Point{Lat: loc.Lat, Lon: loc.Lng}, nil
}
