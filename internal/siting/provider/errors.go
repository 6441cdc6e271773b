package provider

import "errors"

// Common errors. Callers match with errors.Is; every pipeline failure wraps one of these.
var (
	ErrEmptyAddress      = errors.New("address is required")
	ErrInvalidRadius     = errors.New("radius_km must be greater than zero")
	ErrInvalidCoordinate = errors.New("coordinate out of range")
	ErrInvalidSiteType   = errors.New("site_type must be solar, wind or hybrid")
	ErrGeocodeNotFound   = errors.New("address not documented")
	ErrUpstreamService   = errors.New("upstream service unavailable")
	ErrInsufficientData  = errors.New("insufficient data to train suitability model")

	ErrMissingGoogleKey = errors.New("GOOGLE_MAPS_API_KEY environment variable is required for google geocoder")
	ErrUnknownSource    = errors.New("unknown field source")
)
