package provider

import "math"

// Point is a WGS84 coordinate in degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// BoundingBox is a rectangular lat/lon region derived from a center point and radius.
type BoundingBox struct {
	MinLat float64 `json:"min_lat"`
	MaxLat float64 `json:"max_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLon float64 `json:"max_lon"`
}

// Center returns the midpoint of the box.
func (b BoundingBox) Center() Point {
	return Point{Lat: (b.MinLat + b.MaxLat) / 2, Lon: (b.MinLon + b.MaxLon) / 2}
}

// Contains reports whether p lies inside the box (edges inclusive).
func (b BoundingBox) Contains(p Point) bool {
	return p.Lat >= b.MinLat && p.Lat <= b.MaxLat && p.Lon >= b.MinLon && p.Lon <= b.MaxLon
}

// Valid checks the min < max invariant on both axes.
func (b BoundingBox) Valid() bool {
	return b.MinLat < b.MaxLat && b.MinLon < b.MaxLon &&
		!math.IsNaN(b.MinLat) && !math.IsNaN(b.MinLon)
}

// WindSample is a simulated (or measured) wind reading at a grid point.
type WindSample struct {
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
	Speed     float64 `json:"speed"`     // m/s, [0, 20]
	Direction float64 `json:"direction"` // degrees, [0, 360), 0 = North
}

func (s WindSample) Point() Point { return Point{Lat: s.Lat, Lon: s.Lon} }

// SolarSample is annual solar radiation at a point.
type SolarSample struct {
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
	Radiation float64 `json:"radiation"` // kWh/m^2/year, [800, 2200]
}

func (s SolarSample) Point() Point { return Point{Lat: s.Lat, Lon: s.Lon} }

// LandUseArea is a zoning polygon returned by the geospatial feature service.
// Ring holds [lon, lat] pairs and is closed (first == last).
type LandUseArea struct {
	OSMID int64       `json:"osm_id"`
	Label string      `json:"label"`
	Ring  [][]float64 `json:"ring"`
}

// Site categories assigned during ranking.
const (
	CategoryWind   = "wind"
	CategorySolar  = "solar"
	CategoryHybrid = "hybrid"
	CategoryNone   = "none"
)

// Site types accepted from clients. Empty means hybrid.
const (
	SiteTypeSolar  = "solar"
	SiteTypeWind   = "wind"
	SiteTypeHybrid = "hybrid"
)

// RankedSite is the record handed to the renderer for each scored point.
type RankedSite struct {
	ID            string  `json:"id"`
	Lat           float64 `json:"lat"`
	Lon           float64 `json:"lon"`
	Score         float64 `json:"score"`
	Category      string  `json:"category"`
	Recommended   bool    `json:"recommended"`
	WindSpeed     float64 `json:"wind_speed"`
	WindDirection float64 `json:"wind_direction"`
	Radiation     float64 `json:"radiation"`
	LandUse       string  `json:"land_use"`
}

// Marker kinds for the combined overlay.
const (
	MarkerWind  = "wind"
	MarkerSolar = "solar"
)

// Marker is a candidate location on the combined overlay.
type Marker struct {
	Lat   float64 `json:"lat"`
	Lon   float64 `json:"lon"`
	Kind  string  `json:"kind"`
	Value float64 `json:"value"`
}

// LandUseSample is the land-use label resolved at a sample point.
type LandUseSample struct {
	Lat   float64 `json:"lat"`
	Lon   float64 `json:"lon"`
	Label string  `json:"label"`
}
