// Package ranking scores candidate sites by training a random forest on
// merged wind, solar and land-use samples within a single request.
package ranking

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sustainasite/sustainasite-backend/internal/siting/landuse"
	"github.com/sustainasite/sustainasite-backend/internal/siting/provider"
	"gonum.org/v1/gonum/stat"
)

// SiteNamespace seeds deterministic site IDs.
var SiteNamespace = uuid.MustParse("6f1c2a4e-8d0b-5e37-9a41-2c7d5b0e9f13")

// SiteID returns a stable id for a coordinate.
func SiteID(lat, lon float64) string {
	return uuid.NewSHA1(SiteNamespace, []byte(fmt.Sprintf("site:%.7f,%.7f", lat, lon))).String()
}

// State is a step of a ranking run.
type State int

const (
	StateCollectingSamples State = iota
	StateFilteringDevelopable
	StateLabeling
	StateTraining
	StateScoring
	StateRanked
	StateFailed
)

var stateNames = [...]string{
	StateCollectingSamples:    "COLLECTING_SAMPLES",
	StateFilteringDevelopable: "FILTERING_DEVELOPABLE",
	StateLabeling:             "LABELING",
	StateTraining:             "TRAINING",
	StateScoring:              "SCORING",
	StateRanked:               "RANKED",
	StateFailed:               "FAILED",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(text []byte) error {
	for i, name := range stateNames {
		if name == string(text) {
			*s = State(i)
			return nil
		}
	}
	return fmt.Errorf("unknown ranking state %q", text)
}

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool {
	return s == StateRanked || s == StateFailed
}

// Transition is reported to an Observer on entering a state. Count is the
// number of samples carried into the state; Reason is set only for FAILED.
type Transition struct {
	State  State  `json:"state"`
	Count  int    `json:"count"`
	Reason string `json:"reason,omitempty"`
}

// Observer receives every transition of a run, in order.
type Observer func(Transition)

// Sample is one merged, developable point with its features.
type Sample struct {
	Lat           float64
	Lon           float64
	WindSpeed     float64
	WindDirection float64
	Radiation     float64
	LandUse       string
}

func (s Sample) features() []float64 {
	return []float64{s.WindSpeed, s.WindDirection, s.Radiation}
}

// Labeler assigns a 0/1 training label per sample.
type Labeler func(samples []Sample) []int

// MeanLabeler labels a sample 1 when its wind speed or radiation exceeds the
// mean over samples. The labels derive from the features themselves, so
// scores are only meaningful relative to each other.
func MeanLabeler(samples []Sample) []int {
	windMean, solarMean := means(samples)
	labels := make([]int, len(samples))
	for i, s := range samples {
		if s.WindSpeed > windMean || s.Radiation > solarMean {
			labels[i] = 1
		}
	}
	return labels
}

func means(samples []Sample) (wind, solar float64) {
	if len(samples) == 0 {
		return 0, 0
	}
	winds := make([]float64, len(samples))
	rads := make([]float64, len(samples))
	for i, s := range samples {
		winds[i], rads[i] = s.WindSpeed, s.Radiation
	}
	return stat.Mean(winds, nil), stat.Mean(rads, nil)
}

// Inputs are the per-point readings to merge. Entries are joined on
// coordinates rounded to 1e-7 degrees.
type Inputs struct {
	Wind    []provider.WindSample
	Solar   []provider.SolarSample
	LandUse []provider.LandUseSample
}

// Config tunes a Ranker.
type Config struct {
	Forest ForestConfig
	// Percentile of scores at or above which a site is recommended. Default 90.
	Percentile float64
	// Seed for bootstrap sampling; 0 draws a fresh seed per run.
	Seed     int64
	Labeler  Labeler
	Observer Observer
}

// Ranker runs the suitability state machine.
type Ranker struct {
	cfg Config
}

// NewRanker applies defaults to cfg.
func NewRanker(cfg Config) *Ranker {
	if cfg.Percentile <= 0 || cfg.Percentile > 100 {
		cfg.Percentile = 90
	}
	if cfg.Labeler == nil {
		cfg.Labeler = MeanLabeler
	}
	return &Ranker{cfg: cfg}
}

type run struct {
	observer Observer
	state    State
}

func (r *run) enter(s State, count int) {
	r.state = s
	if r.observer != nil {
		r.observer(Transition{State: s, Count: count})
	}
}

func (r *run) fail(err error) error {
	r.state = StateFailed
	if r.observer != nil {
		r.observer(Transition{State: StateFailed, Reason: err.Error()})
	}
	return err
}

// Rank scores every developable point and returns them sorted by score,
// highest first. Nothing is returned on failure.
func (r *Ranker) Rank(ctx context.Context, in Inputs, observer Observer) ([]provider.RankedSite, error) {
	start := time.Now()
	st := &run{observer: chainObservers(r.cfg.Observer, observer)}

	st.enter(StateCollectingSamples, len(in.Wind))
	merged := Merge(in)
	if err := ctx.Err(); err != nil {
		return nil, st.fail(err)
	}

	st.enter(StateFilteringDevelopable, len(merged))
	samples := make([]Sample, 0, len(merged))
	for _, s := range merged {
		if landuse.IsDevelopable(s.LandUse) {
			samples = append(samples, s)
		}
	}

	st.enter(StateLabeling, len(samples))
	if len(samples) == 0 {
		return nil, st.fail(fmt.Errorf("%w: no developable sample points", provider.ErrInsufficientData))
	}
	labels := r.cfg.Labeler(samples)
	if len(labels) != len(samples) {
		return nil, st.fail(fmt.Errorf("labeler returned %d labels for %d samples", len(labels), len(samples)))
	}

	st.enter(StateTraining, len(samples))
	if classes := distinct(labels); classes < 2 {
		return nil, st.fail(fmt.Errorf("%w: need 2 label classes, got %d", provider.ErrInsufficientData, classes))
	}
	if err := ctx.Err(); err != nil {
		return nil, st.fail(err)
	}

	X := make([][]float64, len(samples))
	for i, s := range samples {
		X[i] = s.features()
	}
	var scaler StandardScaler
	X = scaler.FitTransform(X)

	forest := NewForest(r.cfg.Forest)
	forest.Fit(X, labels, r.rng())

	st.enter(StateScoring, len(samples))
	scores := make([]float64, len(samples))
	for i, x := range X {
		scores[i] = forest.PredictProba(x)
	}
	threshold := Percentile(scores, r.cfg.Percentile)

	windMean, solarMean := means(samples)
	sites := make([]provider.RankedSite, len(samples))
	for i, s := range samples {
		sites[i] = provider.RankedSite{
			ID:            SiteID(s.Lat, s.Lon),
			Lat:           s.Lat,
			Lon:           s.Lon,
			Score:         scores[i],
			Category:      Categorize(s, windMean, solarMean),
			Recommended:   scores[i] >= threshold,
			WindSpeed:     s.WindSpeed,
			WindDirection: s.WindDirection,
			Radiation:     s.Radiation,
			LandUse:       s.LandUse,
		}
	}
	sort.SliceStable(sites, func(i, j int) bool { return sites[i].Score > sites[j].Score })

	st.enter(StateRanked, len(sites))
	provider.LogStage("rank", len(sites), time.Since(start))
	return sites, nil
}

func (r *Ranker) rng() *rand.Rand {
	seed := uint64(r.cfg.Seed)
	if r.cfg.Seed == 0 {
		seed = rand.Uint64()
	}
	return rand.New(rand.NewPCG(seed, 0x5eed))
}

// Categorize places s relative to the wind and solar means.
func Categorize(s Sample, windMean, solarMean float64) string {
	windy := s.WindSpeed > windMean
	sunny := s.Radiation > solarMean
	switch {
	case windy && sunny:
		return provider.CategoryHybrid
	case windy:
		return provider.CategoryWind
	case sunny:
		return provider.CategorySolar
	default:
		return provider.CategoryNone
	}
}

type coordKey struct {
	lat, lon int64
}

func keyOf(lat, lon float64) coordKey {
	return coordKey{lat: int64(math.Round(lat * 1e7)), lon: int64(math.Round(lon * 1e7))}
}

// Merge joins wind, solar and land-use readings at coincident coordinates,
// in wind order. Points missing any reading are dropped; the first reading
// wins on duplicate coordinates.
func Merge(in Inputs) []Sample {
	solar := make(map[coordKey]float64, len(in.Solar))
	for _, s := range in.Solar {
		k := keyOf(s.Lat, s.Lon)
		if _, ok := solar[k]; !ok {
			solar[k] = s.Radiation
		}
	}
	labels := make(map[coordKey]string, len(in.LandUse))
	for _, l := range in.LandUse {
		k := keyOf(l.Lat, l.Lon)
		if _, ok := labels[k]; !ok {
			labels[k] = l.Label
		}
	}

	seen := make(map[coordKey]struct{}, len(in.Wind))
	out := make([]Sample, 0, len(in.Wind))
	for _, w := range in.Wind {
		k := keyOf(w.Lat, w.Lon)
		if _, dup := seen[k]; dup {
			continue
		}
		radiation, ok := solar[k]
		if !ok {
			continue
		}
		label, ok := labels[k]
		if !ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, Sample{
			Lat:           w.Lat,
			Lon:           w.Lon,
			WindSpeed:     w.Speed,
			WindDirection: w.Direction,
			Radiation:     radiation,
			LandUse:       label,
		})
	}
	return out
}

func distinct(labels []int) int {
	set := make(map[int]struct{}, 2)
	for _, l := range labels {
		set[l] = struct{}{}
	}
	return len(set)
}

func chainObservers(a, b Observer) Observer {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(t Transition) {
		a(t)
		b(t)
	}
}
