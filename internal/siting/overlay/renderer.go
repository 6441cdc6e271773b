// Package overlay turns pipeline output into GeoJSON layers for map clients.
package overlay

import (
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	geojson "github.com/paulmach/go.geojson"
	"github.com/sustainasite/sustainasite-backend/internal/siting/provider"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Renderer draws each pipeline product as a layer. Implementations must not
// mutate their inputs.
type Renderer interface {
	BoundingBox(bbox provider.BoundingBox, center provider.Point, label string) *geojson.FeatureCollection
	Wind(samples []provider.WindSample) *geojson.FeatureCollection
	Solar(samples []provider.SolarSample) *geojson.FeatureCollection
	LandUse(areas []provider.LandUseArea) *geojson.FeatureCollection
	Combined(markers []provider.Marker) *geojson.FeatureCollection
	Ranked(sites []provider.RankedSite) *geojson.FeatureCollection
}

// Tooltips for combined-overlay markers.
const (
	WindTooltip  = "Potential Wind Farm Location"
	SolarTooltip = "Potential Solar Farm Location"
)

// WindColor buckets a wind speed (m/s) into the legend's blue scale.
func WindColor(speed float64) string {
	switch {
	case speed < 5:
		return "#E6F3FF"
	case speed < 10:
		return "#99CCFF"
	case speed < 15:
		return "#3399FF"
	default:
		return "#0066CC"
	}
}

// LegendName formats an OSM landuse tag for display, e.g. "village_green" -> "Village Green".
func LegendName(label string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(label, "_", " "))
}

// Palette assigns evenly spaced HSV hues (saturation and value 0.8) to
// labels in order of first appearance.
func Palette(labels []string) map[string]string {
	var unique []string
	seen := make(map[string]struct{})
	for _, l := range labels {
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		unique = append(unique, l)
	}

	colors := make(map[string]string, len(unique))
	for i, l := range unique {
		colors[l] = colorful.Hsv(360*float64(i)/float64(len(unique)), 0.8, 0.8).Hex()
	}
	return colors
}
