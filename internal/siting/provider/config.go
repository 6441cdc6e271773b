package provider

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
)

// GeocoderType identifies which geocoding service to use.
type GeocoderType string

const (
	GeocoderNominatim GeocoderType = "nominatim"
	GeocoderGoogle    GeocoderType = "google"
)

const (
	DefaultNominatimURL       = "https://nominatim.openstreetmap.org"
	DefaultNominatimUserAgent = "SustainaSite"
	DefaultOverpassURL        = "https://overpass-api.de/api/interpreter"
	DefaultOverpassTimeout    = 25 * time.Second
	DefaultFieldSource        = "synthetic"
	DefaultOptionsPath        = "sustainasite.yaml"
)

// Config holds service configuration read from the environment.
type Config struct {
	Geocoder           GeocoderType
	NominatimURL       string
	NominatimUserAgent string
	GoogleKey          string

	OverpassURL     string
	OverpassTimeout time.Duration

	FieldSource string
	FieldSeed   int64

	DatabaseURL string
	RecordRuns  bool

	// bcrypt hash of the key required on /sites/runs; empty disables the check
	APIKeyHash string

	OptionsPath string
}

// LoadFromEnv loads configuration from environment variables.
//
// Environment variables:
//   - GEOCODER: "nominatim" or "google" (default: "nominatim")
//   - NOMINATIM_URL, NOMINATIM_USER_AGENT
//   - GOOGLE_MAPS_API_KEY: required if GEOCODER=google
//   - OVERPASS_URL, OVERPASS_TIMEOUT (Go duration, default 25s)
//   - FIELD_SOURCE: registered field source name (default: "synthetic")
//   - FIELD_SEED: integer seed for synthetic fields; 0 seeds from the clock
//   - DATABASE_URL, RECORD_RUNS=true: persist ranking runs
//   - SITES_API_KEY_HASH: bcrypt hash guarding the runs endpoints
//   - SITING_OPTIONS: pipeline options YAML (default: sustainasite.yaml)
func LoadFromEnv() Config {
	var geocoder GeocoderType
	switch strings.ToLower(strings.TrimSpace(os.Getenv("GEOCODER"))) {
	case "google":
		geocoder = GeocoderGoogle
	default:
		geocoder = GeocoderNominatim
	}

	timeout := DefaultOverpassTimeout
	if v := strings.TrimSpace(os.Getenv("OVERPASS_TIMEOUT")); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			timeout = d
		}
	}

	seed, _ := strconv.ParseInt(strings.TrimSpace(os.Getenv("FIELD_SEED")), 10, 64)

	return Config{
		Geocoder:           geocoder,
		NominatimURL:       envOr("NOMINATIM_URL", DefaultNominatimURL),
		NominatimUserAgent: envOr("NOMINATIM_USER_AGENT", DefaultNominatimUserAgent),
		GoogleKey:          os.Getenv("GOOGLE_MAPS_API_KEY"),
		OverpassURL:        envOr("OVERPASS_URL", DefaultOverpassURL),
		OverpassTimeout:    timeout,
		FieldSource:        strings.ToLower(envOr("FIELD_SOURCE", DefaultFieldSource)),
		FieldSeed:          seed,
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		RecordRuns:         os.Getenv("RECORD_RUNS") == "true",
		APIKeyHash:         os.Getenv("SITES_API_KEY_HASH"),
		OptionsPath:        envOr("SITING_OPTIONS", DefaultOptionsPath),
	}
}

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	if c.Geocoder == GeocoderGoogle && c.GoogleKey == "" {
		return ErrMissingGoogleKey
	}
	if c.RecordRuns && c.DatabaseURL == "" {
		return errors.New("RECORD_RUNS=true requires DATABASE_URL")
	}
	return nil
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// ForestOptions tunes the random forest used for suitability scoring.
type ForestOptions struct {
	Trees    int `yaml:"trees" json:"trees"`
	MaxDepth int `yaml:"max_depth" json:"max_depth"`
	MinLeaf  int `yaml:"min_leaf" json:"min_leaf"`
}

// Options parameterize a pipeline run. They replace the separate
// land-use/combined/ML entry points with one configurable flow.
type Options struct {
	RenderCombined     bool          `yaml:"render_combined" json:"render_combined"`
	UseMLRanking       bool          `yaml:"use_ml_ranking" json:"use_ml_ranking"`
	GridSize           int           `yaml:"grid_size" json:"grid_size"`
	SolarSamples       int           `yaml:"solar_samples" json:"solar_samples"`
	CombinedPercentile float64       `yaml:"combined_percentile" json:"combined_percentile"`
	RankPercentile     float64       `yaml:"rank_percentile" json:"rank_percentile"`
	Forest             ForestOptions `yaml:"forest" json:"forest"`
}

// DefaultOptions returns a 20x20 wind grid, 1000 solar samples,
// top 20% for combined markers and top decile for ML ranking.
func DefaultOptions() Options {
	return Options{
		RenderCombined:     true,
		UseMLRanking:       true,
		GridSize:           20,
		SolarSamples:       1000,
		CombinedPercentile: 80,
		RankPercentile:     90,
		Forest: ForestOptions{
			Trees:    100,
			MaxDepth: 8,
			MinLeaf:  1,
		},
	}
}

// LoadOptions reads pipeline options from a YAML file layered over the defaults.
// A missing file is not an error.
func LoadOptions(path string) (Options, error) {
	opts := DefaultOptions()
	if path == "" {
		return opts, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return opts, nil
	}
	if err != nil {
		return opts, fmt.Errorf("read options %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &opts); err != nil {
		return opts, fmt.Errorf("parse options %s: %w", path, err)
	}
	if err := opts.Validate(); err != nil {
		return opts, fmt.Errorf("options %s: %w", path, err)
	}
	return opts, nil
}

// Validate checks option ranges.
func (o Options) Validate() error {
	switch {
	case o.GridSize < 1:
		return errors.New("grid_size must be at least 1")
	case o.SolarSamples < 1:
		return errors.New("solar_samples must be at least 1")
	case o.CombinedPercentile <= 0 || o.CombinedPercentile > 100:
		return errors.New("combined_percentile must be in (0, 100]")
	case o.RankPercentile <= 0 || o.RankPercentile > 100:
		return errors.New("rank_percentile must be in (0, 100]")
	case o.Forest.Trees < 1:
		return errors.New("forest.trees must be at least 1")
	case o.Forest.MaxDepth < 1:
		return errors.New("forest.max_depth must be at least 1")
	case o.Forest.MinLeaf < 1:
		return errors.New("forest.min_leaf must be at least 1")
	}
	return nil
}
