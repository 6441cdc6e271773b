package overlay

import (
	"math"

	geojson "github.com/paulmach/go.geojson"
	"github.com/sustainasite/sustainasite-backend/internal/siting/provider"
)

// GeoJSON renders layers as FeatureCollections with [lon, lat] coordinates.
type GeoJSON struct{}

var _ Renderer = GeoJSON{}

func point(lat, lon float64) []float64 {
	return []float64{lon, lat}
}

// BoundingBox returns the box outline plus a center marker labeled with the query.
func (GeoJSON) BoundingBox(bbox provider.BoundingBox, center provider.Point, label string) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()

	outline := geojson.NewPolygonFeature([][][]float64{{
		{bbox.MinLon, bbox.MinLat},
		{bbox.MaxLon, bbox.MinLat},
		{bbox.MaxLon, bbox.MaxLat},
		{bbox.MinLon, bbox.MaxLat},
		{bbox.MinLon, bbox.MinLat},
	}})
	outline.SetProperty("layer", "bbox")
	outline.SetProperty("stroke", "#000000")
	outline.SetProperty("fill", false)
	fc.AddFeature(outline)

	marker := geojson.NewPointFeature(point(center.Lat, center.Lon))
	marker.SetProperty("layer", "center")
	marker.SetProperty("popup", label)
	fc.AddFeature(marker)
	return fc
}

// Wind returns one point per sample with direction, speed and a speed-bucket color.
func (GeoJSON) Wind(samples []provider.WindSample) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, s := range samples {
		f := geojson.NewPointFeature(point(s.Lat, s.Lon))
		f.SetProperty("speed", s.Speed)
		f.SetProperty("direction", s.Direction)
		f.SetProperty("color", WindColor(s.Speed))
		f.SetProperty("stroke_width", 1+s.Speed/5)
		fc.AddFeature(f)
	}
	return fc
}

// Solar returns heat-map points weighted by radiation relative to the maximum.
func (GeoJSON) Solar(samples []provider.SolarSample) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	peak := 0.0
	for _, s := range samples {
		peak = math.Max(peak, s.Radiation)
	}
	for _, s := range samples {
		f := geojson.NewPointFeature(point(s.Lat, s.Lon))
		f.SetProperty("radiation", s.Radiation)
		if peak > 0 {
			f.SetProperty("weight", s.Radiation/peak)
		}
		fc.AddFeature(f)
	}
	return fc
}

// LandUse returns one polygon per area, colored per label.
func (GeoJSON) LandUse(areas []provider.LandUseArea) *geojson.FeatureCollection {
	labels := make([]string, len(areas))
	for i, a := range areas {
		labels[i] = a.Label
	}
	palette := Palette(labels)

	fc := geojson.NewFeatureCollection()
	for _, a := range areas {
		ring := make([][]float64, len(a.Ring))
		for i, c := range a.Ring {
			ring[i] = []float64{c[0], c[1]}
		}
		f := geojson.NewPolygonFeature([][][]float64{ring})
		f.ID = a.OSMID
		f.SetProperty("landuse", a.Label)
		f.SetProperty("legend", LegendName(a.Label))
		f.SetProperty("color", palette[a.Label])
		f.SetProperty("fill_opacity", 0.7)
		fc.AddFeature(f)
	}
	return fc
}

// Combined returns candidate farm markers with their tooltip.
func (GeoJSON) Combined(markers []provider.Marker) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, m := range markers {
		f := geojson.NewPointFeature(point(m.Lat, m.Lon))
		f.SetProperty("kind", m.Kind)
		f.SetProperty("value", m.Value)
		if m.Kind == provider.MarkerWind {
			f.SetProperty("tooltip", WindTooltip)
		} else {
			f.SetProperty("tooltip", SolarTooltip)
		}
		fc.AddFeature(f)
	}
	return fc
}

// Ranked returns scored sites in their ranked order.
func (GeoJSON) Ranked(sites []provider.RankedSite) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for i, s := range sites {
		f := geojson.NewPointFeature(point(s.Lat, s.Lon))
		f.ID = s.ID
		f.SetProperty("rank", i+1)
		f.SetProperty("score", s.Score)
		f.SetProperty("category", s.Category)
		f.SetProperty("recommended", s.Recommended)
		f.SetProperty("land_use", s.LandUse)
		fc.AddFeature(f)
	}
	return fc
}
