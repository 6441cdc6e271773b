package landuse

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/serjvanilla/go-overpass"
	"github.com/sustainasite/sustainasite-backend/internal/siting/provider"
)

// OverpassSource reads landuse=* ways from an Overpass API endpoint.
type OverpassSource struct {
	client   *overpass.Client
	endpoint string
	timeout  time.Duration
}

var _ PolygonSource = (*OverpassSource)(nil)

// NewOverpassSource creates a source against endpoint.
func NewOverpassSource(endpoint string, timeout time.Duration) *OverpassSource {
	httpClient := &http.Client{
		Timeout: timeout,
	}
	client := overpass.NewWithSettings(endpoint, 2, httpClient)
	return &OverpassSource{
		client:   &client,
		endpoint: endpoint,
		timeout:  timeout,
	}
}

func (s *OverpassSource) Name() string { return "overpass" }

// landUseQuery selects every landuse-tagged way in the box, then recurses
// down to their nodes so rings can be resolved.
func landUseQuery(bbox provider.BoundingBox, timeout time.Duration) string {
	return fmt.Sprintf(`
		[out:json][timeout:%d];
		(
			way["landuse"](%f,%f,%f,%f);
		);
		out body;
		>;
		out skel qt;
	`, int(timeout.Seconds()), bbox.MinLat, bbox.MinLon, bbox.MaxLat, bbox.MaxLon)
}

// Areas returns one LandUseArea per landuse way. Multipolygon relations are not resolved.
func (s *OverpassSource) Areas(ctx context.Context, bbox provider.BoundingBox) ([]provider.LandUseArea, error) {
	query := landUseQuery(bbox, s.timeout)

	start := time.Now()
	provider.LogRequest("overpass", http.MethodPost, s.endpoint, map[string]interface{}{
		"bbox": fmt.Sprintf("%f,%f,%f,%f", bbox.MinLat, bbox.MinLon, bbox.MaxLat, bbox.MaxLon),
	})

	result, err := s.executeQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	areas := convertToAreas(result)
	provider.LogResponse("overpass", http.StatusOK, time.Since(start), len(areas))
	return areas, nil
}

type queryResult struct {
	result overpass.Result
	err    error
}

func (s *OverpassSource) executeQuery(ctx context.Context, query string) (*overpass.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	done := make(chan queryResult, 1)
	go func() {
		res, err := s.client.Query(query)
		done <- queryResult{result: res, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: overpass query: %w", provider.ErrUpstreamService, ctx.Err())
	case qr := <-done:
		if qr.err != nil {
			return nil, fmt.Errorf("%w: overpass query failed: %w", provider.ErrUpstreamService, qr.err)
		}
		return &qr.result, nil
	}
}

func convertToAreas(result *overpass.Result) []provider.LandUseArea {
	ids := make([]int64, 0, len(result.Ways))
	for id := range result.Ways {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	areas := make([]provider.LandUseArea, 0, len(ids))
	for _, id := range ids {
		way := result.Ways[id]
		label := way.Tags["landuse"]
		if label == "" {
			continue
		}

		ring := make([][]float64, 0, len(way.Nodes))
		for _, node := range way.Nodes {
			if node == nil {
				continue
			}
			ring = append(ring, []float64{node.Lon, node.Lat})
		}
		closed, ok := closeRing(ring)
		if !ok {
			continue
		}

		areas = append(areas, provider.LandUseArea{
			OSMID: way.ID,
			Label: label,
			Ring:  closed,
		})
	}
	return areas
}
