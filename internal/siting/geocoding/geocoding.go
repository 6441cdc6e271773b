// Package geocoding resolves free-text addresses to a center point and
// expands them into a bounding box sized by a radius in kilometers.
package geocoding

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/sustainasite/sustainasite-backend/internal/siting/provider"
)

// KmPerDegree is the fixed latitude conversion factor.
const KmPerDegree = 111.0

// Geocoder looks up a single best-match point for an address.
// Implementations return provider.ErrGeocodeNotFound when nothing matches
// and provider.ErrUpstreamService when the service cannot be reached.
type Geocoder interface {
	Name() string
	Geocode(ctx context.Context, address string) (provider.Point, error)
}

// New builds the geocoder selected by cfg.
func New(cfg provider.Config) (Geocoder, error) {
	switch cfg.Geocoder {
	case provider.GeocoderGoogle:
		if cfg.GoogleKey == "" {
			return nil, provider.ErrMissingGoogleKey
		}
		return NewGoogleClient(cfg.GoogleKey), nil
	case provider.GeocoderNominatim, "":
		return NewNominatimClient(cfg.NominatimURL, cfg.NominatimUserAgent), nil
	default:
		return nil, fmt.Errorf("unknown geocoder %q", cfg.Geocoder)
	}
}

// Resolver turns an address and radius into a bounding box.
type Resolver struct {
	Geocoder Geocoder
}

// NewResolver wraps g.
func NewResolver(g Geocoder) *Resolver {
	return &Resolver{Geocoder: g}
}

// Resolve geocodes address and returns the box around it plus the matched center.
// Input is validated before any network call is made.
func (r *Resolver) Resolve(ctx context.Context, address string, radiusKM float64) (provider.BoundingBox, provider.Point, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return provider.BoundingBox{}, provider.Point{}, provider.ErrEmptyAddress
	}
	if !validRadius(radiusKM) {
		return provider.BoundingBox{}, provider.Point{}, provider.ErrInvalidRadius
	}

	center, err := r.Geocoder.Geocode(ctx, address)
	if err != nil {
		return provider.BoundingBox{}, provider.Point{}, err
	}

	bbox, err := NewBoundingBox(center, radiusKM)
	if err != nil {
		return provider.BoundingBox{}, provider.Point{}, err
	}
	return bbox, center, nil
}

// NewBoundingBox expands center by radiusKM. Latitude degrees use a fixed
// 111 km/degree; longitude degrees are widened by 1/cos(lat).
//
// Near the poles the longitude span diverges, so bounds saturate: latitude is
// clamped to [-90, 90], longitude to [-180, 180], and a half-span of 180
// degrees or more covers every longitude. Boxes do not wrap the antimeridian.
// Centers at or beyond a pole are rejected.
func NewBoundingBox(center provider.Point, radiusKM float64) (provider.BoundingBox, error) {
	if !validRadius(radiusKM) {
		return provider.BoundingBox{}, provider.ErrInvalidRadius
	}
	if math.IsNaN(center.Lat) || math.IsNaN(center.Lon) ||
		center.Lat <= -90 || center.Lat >= 90 ||
		center.Lon < -180 || center.Lon > 180 {
		return provider.BoundingBox{}, fmt.Errorf("%w: lat=%f lon=%f", provider.ErrInvalidCoordinate, center.Lat, center.Lon)
	}

	radiusDeg := radiusKM / KmPerDegree

	lonHalfSpan := radiusDeg / math.Cos(center.Lat*math.Pi/180)
	if math.IsInf(lonHalfSpan, 0) || math.IsNaN(lonHalfSpan) || lonHalfSpan > 180 {
		lonHalfSpan = 180
	}

	minLon, maxLon := -180.0, 180.0
	if lonHalfSpan < 180 {
		minLon = math.Max(center.Lon-lonHalfSpan, -180)
		maxLon = math.Min(center.Lon+lonHalfSpan, 180)
	}

	return provider.BoundingBox{
		MinLat: math.Max(center.Lat-radiusDeg, -90),
		MaxLat: math.Min(center.Lat+radiusDeg, 90),
		MinLon: minLon,
		MaxLon: maxLon,
	}, nil
}

func validRadius(r float64) bool {
	return r > 0 && !math.IsInf(r, 0) && !math.IsNaN(r)
}
