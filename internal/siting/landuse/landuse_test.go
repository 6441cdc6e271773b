package landuse_test

import (
	"context"
	"errors"
	"testing"

	"github.com/sustainasite/sustainasite-backend/internal/siting/landuse"
	"github.com/sustainasite/sustainasite-backend/internal/siting/provider"
)

func TestIsDevelopable(t *testing.T) {
	for _, label := range []string{"residential", "commercial", "agricultural", "forest"} {
		if landuse.IsDevelopable(label) {
			t.Errorf("%q should not be developable", label)
		}
	}
	for _, label := range []string{"unknown", "", "industrial", "meadow", "brownfield", "Residential", "forest "} {
		if !landuse.IsDevelopable(label) {
			t.Errorf("%q should be developable", label)
		}
	}
	if got := len(landuse.ExcludedLabels()); got != 4 {
		t.Errorf("expected 4 excluded labels, got %d", got)
	}
}

// square builds an open ring (unclosed on purpose) around a lower-left corner.
func square(lon, lat, size float64) [][]float64 {
	return [][]float64{
		{lon, lat},
		{lon + size, lat},
		{lon + size, lat + size},
		{lon, lat + size},
	}
}

func TestLabelPoints(t *testing.T) {
	areas := []provider.LandUseArea{
		{OSMID: 1, Label: "forest", Ring: square(0, 0, 1)},
		{OSMID: 2, Label: "industrial", Ring: square(2, 2, 1)},
		{OSMID: 3, Label: "broken", Ring: [][]float64{{5, 5}, {6, 6}}},
	}
	points := []provider.Point{
		{Lat: 0.5, Lon: 0.5},   // inside forest
		{Lat: 2.5, Lon: 2.5},   // inside industrial
		{Lat: 1.5, Lon: 1.5},   // between squares
		{Lat: 5.5, Lon: 5.5},   // degenerate area is ignored
		{Lat: -10, Lon: 100.0}, // far away
	}

	got := landuse.LabelPoints(areas, points)
	want := []string{"forest", "industrial", landuse.Unknown, landuse.Unknown, landuse.Unknown}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("point %d: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestLabelPoints_FirstAreaWins(t *testing.T) {
	areas := []provider.LandUseArea{
		{Label: "industrial", Ring: square(0, 0, 2)},
		{Label: "residential", Ring: square(0.5, 0.5, 1)},
	}
	got := landuse.LabelPoints(areas, []provider.Point{{Lat: 1, Lon: 1}})
	if got[0] != "industrial" {
		t.Errorf("expected first containing area to win, got %q", got[0])
	}
}

type fakeSource struct {
	areas []provider.LandUseArea
	err   error
}

func (f fakeSource) Name() string { return "fake" }

func (f fakeSource) Areas(ctx context.Context, bbox provider.BoundingBox) ([]provider.LandUseArea, error) {
	return f.areas, f.err
}

func TestClassifier_WrapsSourceErrors(t *testing.T) {
	c := landuse.NewClassifier(fakeSource{err: errors.New("connection reset")})

	_, err := c.Classify(context.Background(), provider.BoundingBox{MinLat: 0, MaxLat: 1, MinLon: 0, MaxLon: 1})
	if !errors.Is(err, provider.ErrUpstreamService) {
		t.Fatalf("expected ErrUpstreamService, got %v", err)
	}
}

func TestClassifier_ReturnsAreas(t *testing.T) {
	c := landuse.NewClassifier(fakeSource{areas: []provider.LandUseArea{{Label: "meadow", Ring: square(0, 0, 1)}}})

	areas, err := c.Classify(context.Background(), provider.BoundingBox{MinLat: 0, MaxLat: 1, MinLon: 0, MaxLon: 1})
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if len(areas) != 1 || areas[0].Label != "meadow" {
		t.Errorf("unexpected areas %+v", areas)
	}
}
