package siting

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// SiteRun is one recorded ranking request.
type SiteRun struct {
	ID               uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	Address          string         `json:"address"`
	RadiusKM         float64        `json:"radius_km"`
	SiteType         string         `json:"site_type"`
	MinLat           float64        `json:"min_lat"`
	MaxLat           float64        `json:"max_lat"`
	MinLon           float64        `json:"min_lon"`
	MaxLon           float64        `json:"max_lon"`
	CenterLat        float64        `json:"center_lat"`
	CenterLon        float64        `json:"center_lon"`
	SiteCount        int            `json:"site_count"`
	RecommendedCount int            `json:"recommended_count"`
	Categories       pq.StringArray `json:"categories" gorm:"type:text[]"` // categories among recommended sites
	States           pq.StringArray `json:"states" gorm:"type:text[]"`
	Sites            []SiteRunSite  `json:"sites,omitempty" gorm:"foreignKey:RunID;constraint:OnDelete:CASCADE"`
	CreatedAt        time.Time      `json:"created_at" gorm:"index"`
}

// SiteRunSite is a ranked site within a run.
type SiteRunSite struct {
	RunID       uuid.UUID `json:"run_id" gorm:"type:uuid;primaryKey"`
	SiteID      uuid.UUID `json:"site_id" gorm:"type:uuid;primaryKey"`
	Rank        int       `json:"rank"`
	Lat         float64   `json:"lat"`
	Lon         float64   `json:"lon"`
	Score       float64   `json:"score"`
	Category    string    `json:"category"`
	Recommended bool      `json:"recommended"`
	LandUse     string    `json:"land_use"`
}

func (SiteRun) TableName() string     { return "sustainasite.site_runs" }
func (SiteRunSite) TableName() string { return "sustainasite.site_run_sites" }
