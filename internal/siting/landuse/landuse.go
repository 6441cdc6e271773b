// Package landuse fetches zoning polygons over a bounding box and tags
// sample points as developable or not.
package landuse

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/sustainasite/sustainasite-backend/internal/siting/provider"
	"github.com/twpayne/go-geos"
)

// Unknown labels points no polygon contains. Unknown land is developable.
const Unknown = "unknown"

// excluded land-use types cannot host renewable-energy sites.
var excluded = map[string]struct{}{
	"residential":  {},
	"commercial":   {},
	"agricultural": {},
	"forest":       {},
}

// IsDevelopable reports whether label is outside the zoning exclusion set.
func IsDevelopable(label string) bool {
	_, ok := excluded[label]
	return !ok
}

// ExcludedLabels returns the exclusion set.
func ExcludedLabels() []string {
	return []string{"residential", "commercial", "agricultural", "forest"}
}

// PolygonSource is an external geospatial feature service returning land-use
// polygons inside a bounding box.
type PolygonSource interface {
	Name() string
	Areas(ctx context.Context, bbox provider.BoundingBox) ([]provider.LandUseArea, error)
}

// Classifier resolves land-use areas and labels points against them.
type Classifier struct {
	source PolygonSource
}

// NewClassifier wraps source.
func NewClassifier(source PolygonSource) *Classifier {
	return &Classifier{source: source}
}

// Classify returns the land-use areas over bbox. Source failures surface as
// provider.ErrUpstreamService.
func (c *Classifier) Classify(ctx context.Context, bbox provider.BoundingBox) ([]provider.LandUseArea, error) {
	start := time.Now()

	areas, err := c.source.Areas(ctx, bbox)
	if err != nil {
		provider.LogError(c.source.Name(), "areas", err)
		if errors.Is(err, provider.ErrUpstreamService) || errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s: %w", provider.ErrUpstreamService, c.source.Name(), err)
	}

	provider.LogStage("landuse", len(areas), time.Since(start))
	return areas, nil
}

type preparedArea struct {
	label                          string
	minLon, minLat, maxLon, maxLat float64
	geom                           *geos.PrepGeom
}

// LabelPoints tags each point with the label of the first area containing it,
// or Unknown. Areas with degenerate rings are ignored.
func LabelPoints(areas []provider.LandUseArea, points []provider.Point) []string {
	prepared := make([]preparedArea, 0, len(areas))
	for _, a := range areas {
		ring, ok := closeRing(a.Ring)
		if !ok {
			continue
		}
		pa := preparedArea{
			label:  a.Label,
			minLon: math.Inf(1), minLat: math.Inf(1),
			maxLon: math.Inf(-1), maxLat: math.Inf(-1),
		}
		for _, c := range ring {
			pa.minLon = math.Min(pa.minLon, c[0])
			pa.maxLon = math.Max(pa.maxLon, c[0])
			pa.minLat = math.Min(pa.minLat, c[1])
			pa.maxLat = math.Max(pa.maxLat, c[1])
		}
		pa.geom = geos.NewPolygon([][][]float64{ring}).Prepare()
		prepared = append(prepared, pa)
	}

	labels := make([]string, len(points))
	for i, p := range points {
		labels[i] = Unknown
		var pt *geos.Geom
		for _, pa := range prepared {
			if p.Lon < pa.minLon || p.Lon > pa.maxLon || p.Lat < pa.minLat || p.Lat > pa.maxLat {
				continue
			}
			if pt == nil {
				pt = geos.NewPoint([]float64{p.Lon, p.Lat})
			}
			if pa.geom.Contains(pt) {
				labels[i] = pa.label
				break
			}
		}
	}
	return labels
}

// closeRing returns a closed copy of ring, or false when it cannot form a polygon.
func closeRing(ring [][]float64) ([][]float64, bool) {
	out := make([][]float64, 0, len(ring)+1)
	for _, c := range ring {
		if len(c) < 2 || math.IsNaN(c[0]) || math.IsNaN(c[1]) {
			return nil, false
		}
		out = append(out, []float64{c[0], c[1]})
	}
	if len(out) == 0 {
		return nil, false
	}
	first, last := out[0], out[len(out)-1]
	if first[0] != last[0] || first[1] != last[1] {
		out = append(out, []float64{first[0], first[1]})
	}
	if len(out) < 4 {
		return nil, false
	}
	return out, true
}
