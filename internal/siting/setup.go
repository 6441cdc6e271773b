package siting

import (
	"fmt"
	"log"

	"github.com/sustainasite/sustainasite-backend/internal/db"
	"github.com/sustainasite/sustainasite-backend/internal/siting/fields"
	"github.com/sustainasite/sustainasite-backend/internal/siting/geocoding"
	"github.com/sustainasite/sustainasite-backend/internal/siting/landuse"
	"github.com/sustainasite/sustainasite-backend/internal/siting/overlay"
	"github.com/sustainasite/sustainasite-backend/internal/siting/provider"
)

// Service is the active handler. It is initialized in Init().
var Service *Handler

var apiKeyHash string

// Build assembles a pipeline from configuration. The run recorder is only
// attached when recording is enabled and db.DB is connected.
func Build(cfg provider.Config, opts provider.Options) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	geocoder, err := geocoding.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("geocoder: %w", err)
	}

	source, err := fields.NewSource(cfg)
	if err != nil {
		return nil, fmt.Errorf("field source: %w", err)
	}

	var recorder RunRecorder
	if cfg.RecordRuns && db.DB != nil {
		gr, err := NewGormRecorder(db.DB)
		if err != nil {
			return nil, err
		}
		recorder = gr
	}

	return NewPipeline(Deps{
		Geocoder: geocoder,
		Fields:   source,
		LandUse:  landuse.NewOverpassSource(cfg.OverpassURL, cfg.OverpassTimeout),
		Renderer: overlay.GeoJSON{},
		Recorder: recorder,
		Options:  opts,
		Seed:     cfg.FieldSeed,
	}), nil
}

func Init(cfg provider.Config) {
	opts, err := provider.LoadOptions(cfg.OptionsPath)
	if err != nil {
		log.Fatal("Failed to load pipeline options: ", err)
	}

	p, err := Build(cfg, opts)
	if err != nil {
		log.Fatal("Failed to build siting pipeline: ", err)
	}

	Service = NewHandler(p)
	apiKeyHash = cfg.APIKeyHash

	log.Printf("[siting] Initialized with %s geocoder, %s field source (ml_ranking=%t, combined=%t, recording=%t)",
		cfg.Geocoder, cfg.FieldSource, opts.UseMLRanking, opts.RenderCombined, p.Recorder() != nil)
}
