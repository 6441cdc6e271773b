package geocoding

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sustainasite/sustainasite-backend/internal/siting/provider"
	"golang.org/x/time/rate"
)

// NominatimClient wraps the OpenStreetMap Nominatim search API.
// Requests are limited to one per second per the public usage policy.
type NominatimClient struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewNominatimClient creates a client against baseURL (no trailing /search).
func NewNominatimClient(baseURL, userAgent string) *NominatimClient {
	if userAgent == "" {
		userAgent = provider.DefaultNominatimUserAgent
	}
	return &NominatimClient{
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: userAgent,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Every(time.Second), 1),
	}
}

func (c *NominatimClient) Name() string { return "nominatim" }

type nominatimPlace struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// Geocode returns the best match for address.
func (c *NominatimClient) Geocode(ctx context.Context, address string) (provider.Point, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return provider.Point{}, fmt.Errorf("%w: nominatim rate limit: %w", provider.ErrUpstreamService, err)
	}

	params := url.Values{}
	params.Set("q", address)
	params.Set("format", "jsonv2")
	params.Set("limit", "1")
	endpoint := c.baseURL + "/search"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return provider.Point{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	provider.LogRequest("nominatim", http.MethodGet, endpoint, map[string]interface{}{"q": address})

	resp, err := c.httpClient.Do(req)
	if err != nil {
		provider.LogError("nominatim", "fetch", err)
		return provider.Point{}, fmt.Errorf("%w: nominatim request: %w", provider.ErrUpstreamService, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("%w: nominatim returned HTTP %d", provider.ErrUpstreamService, resp.StatusCode)
		provider.LogError("nominatim", "fetch", err)
		return provider.Point{}, err
	}

	var places []nominatimPlace
	if err := json.NewDecoder(resp.Body).Decode(&places); err != nil {
		provider.LogError("nominatim", "decode", err)
		return provider.Point{}, fmt.Errorf("%w: decoding nominatim response: %w", provider.ErrUpstreamService, err)
	}
	provider.LogResponse("nominatim", resp.StatusCode, time.Since(start), len(places))

	if len(places) == 0 {
		return provider.Point{}, fmt.Errorf("%w: %q", provider.ErrGeocodeNotFound, address)
	}

	lat, err := strconv.ParseFloat(places[0].Lat, 64)
	if err != nil {
		return provider.Point{}, fmt.Errorf("%w: bad latitude %q", provider.ErrUpstreamService, places[0].Lat)
	}
	lon, err := strconv.ParseFloat(places[0].Lon, 64)
	if err != nil {
		return provider.Point{}, fmt.Errorf("%w: bad longitude %q", provider.ErrUpstreamService, places[0].Lon)
	}

	return provider.Point{Lat: lat, Lon: lon}, nil
}
