// Package siting wires geocoding, field sources, land-use classification and
// ranking into one request pipeline and serves it over HTTP.
package siting

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	geojson "github.com/paulmach/go.geojson"
	"github.com/sustainasite/sustainasite-backend/internal/siting/fields"
	"github.com/sustainasite/sustainasite-backend/internal/siting/geocoding"
	"github.com/sustainasite/sustainasite-backend/internal/siting/landuse"
	"github.com/sustainasite/sustainasite-backend/internal/siting/overlay"
	"github.com/sustainasite/sustainasite-backend/internal/siting/provider"
	"github.com/sustainasite/sustainasite-backend/internal/siting/ranking"
)

// Request is a user query for candidate sites around an address.
type Request struct {
	Address  string  `json:"address"`
	RadiusKM float64 `json:"radius_km"`
	SiteType string  `json:"site_type,omitempty"`
}

// Overlays are the rendered map layers of a run.
type Overlays struct {
	BoundingBox *geojson.FeatureCollection `json:"bbox"`
	Wind        *geojson.FeatureCollection `json:"wind"`
	Solar       *geojson.FeatureCollection `json:"solar"`
	LandUse     *geojson.FeatureCollection `json:"land_use"`
	Combined    *geojson.FeatureCollection `json:"combined,omitempty"`
	Ranked      *geojson.FeatureCollection `json:"ranked,omitempty"`
}

// Result is everything a run produced.
type Result struct {
	RunID    string                `json:"run_id,omitempty"`
	Request  Request               `json:"request"`
	BBox     provider.BoundingBox  `json:"bbox"`
	Center   provider.Point        `json:"center"`
	Sites    []provider.RankedSite `json:"sites"`
	Markers  []provider.Marker     `json:"markers"`
	Overlays Overlays              `json:"overlays"`
	States   []ranking.Transition  `json:"states"`

	timings [][2]string
}

// ServerTiming returns per-stage durations in milliseconds.
func (r *Result) ServerTiming() [][2]string { return r.timings }

func (r *Result) track(stage string, start time.Time) {
	r.timings = append(r.timings, [2]string{stage, fmt.Sprintf("%.1f", float64(time.Since(start).Microseconds())/1000)})
}

// Deps are the collaborators of a Pipeline. Recorder may be nil.
type Deps struct {
	Geocoder geocoding.Geocoder
	Fields   fields.Source
	LandUse  landuse.PolygonSource
	Renderer overlay.Renderer
	Recorder RunRecorder
	Options  provider.Options
	Seed     int64
	Labeler  ranking.Labeler
}

// Pipeline runs one request end to end: resolve the box, generate fields,
// classify land use, rank, then render.
type Pipeline struct {
	resolver   *geocoding.Resolver
	fields     fields.Source
	classifier *landuse.Classifier
	renderer   overlay.Renderer
	recorder   RunRecorder
	opts       provider.Options
	seed       int64
	labeler    ranking.Labeler
}

func NewPipeline(d Deps) *Pipeline {
	renderer := d.Renderer
	if renderer == nil {
		renderer = overlay.GeoJSON{}
	}
	return &Pipeline{
		resolver:   geocoding.NewResolver(d.Geocoder),
		fields:     d.Fields,
		classifier: landuse.NewClassifier(d.LandUse),
		renderer:   renderer,
		recorder:   d.Recorder,
		opts:       d.Options,
		seed:       d.Seed,
		labeler:    d.Labeler,
	}
}

// Options returns the pipeline's configured options.
func (p *Pipeline) Options() provider.Options { return p.opts }

// Recorder returns the run recorder, or nil when recording is disabled.
func (p *Pipeline) Recorder() RunRecorder { return p.recorder }

// NormalizeSiteType lowercases t and maps empty to hybrid.
func NormalizeSiteType(t string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(t)) {
	case "", provider.SiteTypeHybrid:
		return provider.SiteTypeHybrid, nil
	case provider.SiteTypeSolar:
		return provider.SiteTypeSolar, nil
	case provider.SiteTypeWind:
		return provider.SiteTypeWind, nil
	}
	return "", fmt.Errorf("%w: %q", provider.ErrInvalidSiteType, t)
}

// Resolve geocodes the request address into its bounding box.
func (p *Pipeline) Resolve(ctx context.Context, req Request) (provider.BoundingBox, provider.Point, error) {
	return p.resolver.Resolve(ctx, req.Address, req.RadiusKM)
}

type collected struct {
	bbox   provider.BoundingBox
	center provider.Point
	wind   []provider.WindSample
	solar  []provider.SolarSample
	areas  []provider.LandUseArea
}

func (p *Pipeline) collect(ctx context.Context, req Request, res *Result) (*collected, error) {
	start := time.Now()
	bbox, center, err := p.Resolve(ctx, req)
	if err != nil {
		return nil, err
	}
	res.track("geocode", start)

	start = time.Now()
	wind, err := p.fields.Wind(ctx, bbox, p.opts.GridSize)
	if err != nil {
		return nil, fmt.Errorf("%w: wind field: %w", provider.ErrUpstreamService, err)
	}
	if len(wind) == 0 {
		return nil, fmt.Errorf("%w: %s returned no wind samples", provider.ErrUpstreamService, p.fields.Name())
	}
	solar, err := p.fields.Solar(ctx, bbox, p.opts.SolarSamples)
	if err != nil {
		return nil, fmt.Errorf("%w: solar field: %w", provider.ErrUpstreamService, err)
	}
	if len(solar) == 0 {
		return nil, fmt.Errorf("%w: %s returned no solar samples", provider.ErrUpstreamService, p.fields.Name())
	}
	provider.LogStage("fields", len(wind)+len(solar), time.Since(start))
	res.track("fields", start)

	start = time.Now()
	areas, err := p.classifier.Classify(ctx, bbox)
	if err != nil {
		return nil, err
	}
	res.track("landuse", start)

	return &collected{bbox: bbox, center: center, wind: wind, solar: solar, areas: areas}, nil
}

// Overlays renders the four base layers: box, wind, solar and land use.
func (p *Pipeline) Overlays(ctx context.Context, req Request) (*Result, error) {
	res := &Result{Request: req}
	c, err := p.collect(ctx, req, res)
	if err != nil {
		return nil, err
	}
	res.BBox, res.Center = c.bbox, c.center
	p.renderBase(res, c)
	return res, nil
}

func (p *Pipeline) renderBase(res *Result, c *collected) {
	res.Overlays.BoundingBox = p.renderer.BoundingBox(c.bbox, c.center, res.Request.Address)
	res.Overlays.Wind = p.renderer.Wind(c.wind)
	res.Overlays.Solar = p.renderer.Solar(c.solar)
	res.Overlays.LandUse = p.renderer.LandUse(c.areas)
}

// Run executes the full pipeline. Ranking transitions go to observer as they
// happen. Any failure aborts the run; no partial result is returned.
func (p *Pipeline) Run(ctx context.Context, req Request, observer ranking.Observer) (*Result, error) {
	siteType, err := NormalizeSiteType(req.SiteType)
	if err != nil {
		return nil, err
	}
	req.SiteType = siteType

	res := &Result{Request: req}
	c, err := p.collect(ctx, req, res)
	if err != nil {
		return nil, err
	}
	res.BBox, res.Center = c.bbox, c.center

	if p.opts.UseMLRanking {
		start := time.Now()
		sites, err := p.rank(ctx, c, res, observer)
		if err != nil {
			return nil, err
		}
		res.Sites = sites
		res.track("rank", start)
	}

	if p.opts.RenderCombined {
		res.Markers = CombinedMarkers(c.wind, c.solar, p.opts.CombinedPercentile, siteType)
	}

	start := time.Now()
	p.renderBase(res, c)
	if p.opts.RenderCombined {
		res.Overlays.Combined = p.renderer.Combined(res.Markers)
	}
	if p.opts.UseMLRanking {
		res.Overlays.Ranked = p.renderer.Ranked(res.Sites)
	}
	res.track("render", start)

	if p.recorder != nil {
		start = time.Now()
		id, err := p.recorder.SaveRun(ctx, res)
		if err != nil {
			log.Printf("[siting] failed to record run for %q: %v", req.Address, err)
		} else {
			res.RunID = id.String()
		}
		res.track("record", start)
	}
	return res, nil
}

// rank samples solar radiation and land use at every wind grid point and
// runs the suitability ranker over the merged set.
func (p *Pipeline) rank(ctx context.Context, c *collected, res *Result, observer ranking.Observer) ([]provider.RankedSite, error) {
	points := make([]provider.Point, len(c.wind))
	for i, w := range c.wind {
		points[i] = w.Point()
	}

	solarAt, err := p.fields.SolarAt(ctx, points)
	if err != nil {
		return nil, fmt.Errorf("%w: solar field: %w", provider.ErrUpstreamService, err)
	}

	labels := landuse.LabelPoints(c.areas, points)
	landUse := make([]provider.LandUseSample, len(points))
	for i, pt := range points {
		landUse[i] = provider.LandUseSample{Lat: pt.Lat, Lon: pt.Lon, Label: labels[i]}
	}

	ranker := ranking.NewRanker(ranking.Config{
		Forest: ranking.ForestConfig{
			Trees:    p.opts.Forest.Trees,
			MaxDepth: p.opts.Forest.MaxDepth,
			MinLeaf:  p.opts.Forest.MinLeaf,
		},
		Percentile: p.opts.RankPercentile,
		Seed:       p.seed,
		Labeler:    p.labeler,
		Observer: func(t ranking.Transition) {
			res.States = append(res.States, t)
		},
	})
	return ranker.Rank(ctx, ranking.Inputs{Wind: c.wind, Solar: solarAt, LandUse: landUse}, observer)
}

// CombinedMarkers returns wind grid points at or above the pct-th wind-speed
// percentile and solar samples at or above the pct-th radiation percentile,
// restricted to siteType.
func CombinedMarkers(wind []provider.WindSample, solar []provider.SolarSample, pct float64, siteType string) []provider.Marker {
	var markers []provider.Marker

	if siteType != provider.SiteTypeSolar && len(wind) > 0 {
		speeds := make([]float64, len(wind))
		for i, w := range wind {
			speeds[i] = w.Speed
		}
		threshold := ranking.Percentile(speeds, pct)
		for _, w := range wind {
			if w.Speed >= threshold {
				markers = append(markers, provider.Marker{Lat: w.Lat, Lon: w.Lon, Kind: provider.MarkerWind, Value: w.Speed})
			}
		}
	}

	if siteType != provider.SiteTypeWind && len(solar) > 0 {
		levels := make([]float64, len(solar))
		for i, s := range solar {
			levels[i] = s.Radiation
		}
		threshold := ranking.Percentile(levels, pct)
		for _, s := range solar {
			if s.Radiation >= threshold {
				markers = append(markers, provider.Marker{Lat: s.Lat, Lon: s.Lon, Kind: provider.MarkerSolar, Value: s.Radiation})
			}
		}
	}
	return markers
}
