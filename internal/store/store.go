// Package store persists analysis runs, per-origin distance results, and
// region aggregates behind a driver-selectable interface.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/agrodatalab/upa-access/internal/access"
	"github.com/agrodatalab/upa-access/internal/config"
)

// RunStatus is the lifecycle state of an analysis run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Run is one recorded analysis run. Results attached to a run are written
// once and never revised; a failed run keeps whatever layers completed
// before the failure, flagged by its status.
type Run struct {
	ID        string    `json:"id"`
	Manifest  string    `json:"manifest"`
	Strategy  string    `json:"strategy"`
	Status    RunStatus `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DistanceRecord is one stored per-origin result row.
type DistanceRecord struct {
	RunID          string  `json:"run_id"`
	Layer          string  `json:"layer"`
	OriginID       string  `json:"origin_id"`
	RegionID       string  `json:"region_id"`
	FacilityID     string  `json:"facility_id"`
	FacilityName   string  `json:"facility_name"`
	DistanceMeters float64 `json:"distance_meters"`
}

// RegionRecord is one stored region aggregate row.
type RegionRecord struct {
	RunID      string  `json:"run_id"`
	Layer      string  `json:"layer"`
	RegionID   string  `json:"region_id"`
	MeanMeters float64 `json:"mean_meters"`
	Origins    int     `json:"origins"`
}

// Store defines the persistence interface for analysis results.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, manifest, strategy string) (*Run, error)
	FinishRun(ctx context.Context, runID string, status RunStatus) error
	GetRun(ctx context.Context, runID string) (*Run, error)
	ListRuns(ctx context.Context, limit int) ([]Run, error)

	// Results
	InsertDistances(ctx context.Context, runID, layer string, rows []access.DistanceRow) (int64, error)
	InsertRegionMeans(ctx context.Context, runID, layer string, means []access.RegionMean) (int64, error)
	ListDistances(ctx context.Context, runID, layer string, limit, offset int) ([]DistanceRecord, error)
	ListRegionMeans(ctx context.Context, runID string) ([]RegionRecord, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Open creates a Store for the configured driver.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "sqlite":
		return NewSQLite(cfg.DatabaseURL)
	case "postgres":
		return NewPostgres(ctx, cfg.DatabaseURL, &cfg.Pool)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
}
