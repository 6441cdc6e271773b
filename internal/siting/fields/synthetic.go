package fields

import (
	"context"
	"math/rand/v2"

	"github.com/sustainasite/sustainasite-backend/internal/siting/provider"
)

// Synthetic field ranges.
const (
	MaxWindSpeed     = 20.0
	MaxWindDirection = 360.0
	MinRadiation     = 800.0
	MaxRadiation     = 2200.0
)

// Per-generator stream ids so wind and solar draws never share a sequence.
const (
	streamWind uint64 = iota + 1
	streamSolar
	streamSolarAt
)

func init() {
	RegisterSource(provider.DefaultFieldSource, func(cfg provider.Config) (Source, error) {
		return NewSynthetic(cfg.FieldSeed), nil
	})
}

// Synthetic generates placeholder fields from uniform random draws.
// With a non-zero seed every call is reproducible; seed 0 draws a fresh
// seed per call.
type Synthetic struct {
	seed int64
}

var _ Source = (*Synthetic)(nil)

// NewSynthetic creates a synthetic source.
func NewSynthetic(seed int64) *Synthetic {
	return &Synthetic{seed: seed}
}

func (s *Synthetic) Name() string { return "synthetic" }

func (s *Synthetic) rng(stream uint64) *rand.Rand {
	seed := uint64(s.seed)
	if s.seed == 0 {
		seed = rand.Uint64()
	}
	return rand.New(rand.NewPCG(seed, stream))
}

func (s *Synthetic) Wind(ctx context.Context, bbox provider.BoundingBox, gridSize int) ([]provider.WindSample, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return GenerateWind(s.rng(streamWind), bbox, gridSize), nil
}

func (s *Synthetic) Solar(ctx context.Context, bbox provider.BoundingBox, n int) ([]provider.SolarSample, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return GenerateSolar(s.rng(streamSolar), bbox, n), nil
}

func (s *Synthetic) SolarAt(ctx context.Context, points []provider.Point) ([]provider.SolarSample, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rng := s.rng(streamSolarAt)
	out := make([]provider.SolarSample, len(points))
	for i, p := range points {
		out[i] = provider.SolarSample{Lat: p.Lat, Lon: p.Lon, Radiation: radiation(rng)}
	}
	return out, nil
}

// GenerateWind lays an evenly spaced gridSize x gridSize lattice over bbox
// and draws speed in [0, 20] m/s and direction in [0, 360) degrees per point.
// Samples are ordered row-major by latitude, then longitude.
func GenerateWind(rng *rand.Rand, bbox provider.BoundingBox, gridSize int) []provider.WindSample {
	if gridSize < 1 {
		return nil
	}
	lats := Linspace(bbox.MinLat, bbox.MaxLat, gridSize)
	lons := Linspace(bbox.MinLon, bbox.MaxLon, gridSize)

	out := make([]provider.WindSample, 0, gridSize*gridSize)
	for _, lat := range lats {
		for _, lon := range lons {
			out = append(out, provider.WindSample{
				Lat:       lat,
				Lon:       lon,
				Speed:     rng.Float64() * MaxWindSpeed,
				Direction: rng.Float64() * MaxWindDirection,
			})
		}
	}
	return out
}

// GenerateSolar draws n uniformly random points in bbox with radiation in
// [800, 2200] kWh/m^2/year.
func GenerateSolar(rng *rand.Rand, bbox provider.BoundingBox, n int) []provider.SolarSample {
	if n < 1 {
		return nil
	}
	out := make([]provider.SolarSample, n)
	for i := range out {
		out[i] = provider.SolarSample{
			Lat:       bbox.MinLat + rng.Float64()*(bbox.MaxLat-bbox.MinLat),
			Lon:       bbox.MinLon + rng.Float64()*(bbox.MaxLon-bbox.MinLon),
			Radiation: radiation(rng),
		}
	}
	return out
}

func radiation(rng *rand.Rand) float64 {
	return MinRadiation + rng.Float64()*(MaxRadiation-MinRadiation)
}

// Linspace returns n evenly spaced values over [start, stop], endpoints included.
func Linspace(start, stop float64, n int) []float64 {
	if n < 1 {
		return nil
	}
	if n == 1 {
		return []float64{start}
	}
	out := make([]float64, n)
	step := (stop - start) / float64(n-1)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	out[n-1] = stop
	return out
}
