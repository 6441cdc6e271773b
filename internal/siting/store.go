package siting

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/sustainasite/sustainasite-backend/internal/db"
	"gorm.io/gorm"
)

// Common errors
var (
	ErrRunNotFound       = errors.New("run not found")
	ErrRecordingDisabled = errors.New("run recording is disabled")
)

// RunRecorder persists ranking runs.
type RunRecorder interface {
	SaveRun(ctx context.Context, res *Result) (uuid.UUID, error)
	ListRuns(ctx context.Context, limit int) ([]SiteRun, error)
	GetRun(ctx context.Context, id uuid.UUID) (*SiteRun, error)
}

// GormRecorder stores runs in the sustainasite schema.
type GormRecorder struct {
	db *gorm.DB
}

// NewGormRecorder migrates the run tables on d.
func NewGormRecorder(d *gorm.DB) (*GormRecorder, error) {
	if err := db.EnsureSchema(d, "sustainasite"); err != nil {
		return nil, fmt.Errorf("ensure schema sustainasite: %w", err)
	}
	if err := d.AutoMigrate(&SiteRun{}, &SiteRunSite{}); err != nil {
		return nil, fmt.Errorf("migrate run tables: %w", err)
	}
	return &GormRecorder{db: d}, nil
}

// NewRunRecord flattens a result into its stored form.
func NewRunRecord(id uuid.UUID, res *Result) SiteRun {
	run := SiteRun{
		ID:        id,
		Address:   res.Request.Address,
		RadiusKM:  res.Request.RadiusKM,
		SiteType:  res.Request.SiteType,
		MinLat:    res.BBox.MinLat,
		MaxLat:    res.BBox.MaxLat,
		MinLon:    res.BBox.MinLon,
		MaxLon:    res.BBox.MaxLon,
		CenterLat: res.Center.Lat,
		CenterLon: res.Center.Lon,
		SiteCount: len(res.Sites),
	}

	categories := make(map[string]struct{})
	for i, s := range res.Sites {
		siteID, err := uuid.Parse(s.ID)
		if err != nil {
			siteID = uuid.NewSHA1(id, []byte(s.ID))
		}
		run.Sites = append(run.Sites, SiteRunSite{
			RunID:       id,
			SiteID:      siteID,
			Rank:        i + 1,
			Lat:         s.Lat,
			Lon:         s.Lon,
			Score:       s.Score,
			Category:    s.Category,
			Recommended: s.Recommended,
			LandUse:     s.LandUse,
		})
		if s.Recommended {
			run.RecommendedCount++
			categories[s.Category] = struct{}{}
		}
	}
	for c := range categories {
		run.Categories = append(run.Categories, c)
	}
	sort.Strings(run.Categories)

	for _, t := range res.States {
		run.States = append(run.States, t.State.String())
	}
	return run
}

func (g *GormRecorder) SaveRun(ctx context.Context, res *Result) (uuid.UUID, error) {
	id := uuid.New()
	run := NewRunRecord(id, res)

	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sites := run.Sites
		run.Sites = nil
		if err := tx.Create(&run).Error; err != nil {
			return err
		}
		if len(sites) > 0 {
			if err := tx.CreateInBatches(sites, 200).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return uuid.Nil, fmt.Errorf("save run: %w", err)
	}
	return id, nil
}

func (g *GormRecorder) ListRuns(ctx context.Context, limit int) ([]SiteRun, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var runs []SiteRun
	if err := g.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

func (g *GormRecorder) GetRun(ctx context.Context, id uuid.UUID) (*SiteRun, error) {
	var run SiteRun
	err := g.db.WithContext(ctx).
		Preload("Sites", func(tx *gorm.DB) *gorm.DB { return tx.Order("rank ASC") }).
		First(&run, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return &run, nil
}
