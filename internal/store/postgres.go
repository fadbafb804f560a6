package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/agrodatalab/upa-access/internal/access"
	"github.com/agrodatalab/upa-access/internal/config"
	"github.com/agrodatalab/upa-access/internal/db"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool db.Pool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *config.PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	// Apply pool sizing from config with sensible defaults.
	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}

	return &PostgresStore{pool: pool}, nil
}

// NewPostgresFromPool wraps an existing pool. Used by tests with pgxmock.
func NewPostgresFromPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	manifest   TEXT NOT NULL,
	strategy   TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'running',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS distances (
	run_id          TEXT NOT NULL REFERENCES runs(id),
	layer           TEXT NOT NULL,
	origin_id       TEXT NOT NULL,
	region_id       TEXT,
	facility_id     TEXT,
	facility_name   TEXT,
	distance_meters DOUBLE PRECISION NOT NULL
);

CREATE TABLE IF NOT EXISTS region_means (
	run_id      TEXT NOT NULL REFERENCES runs(id),
	layer       TEXT NOT NULL,
	region_id   TEXT NOT NULL,
	mean_meters DOUBLE PRECISION NOT NULL,
	origins     INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_distances_run_layer ON distances(run_id, layer);
CREATE INDEX IF NOT EXISTS idx_region_means_run ON region_means(run_id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, manifest, strategy string) (*Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO runs (id, manifest, strategy, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		id, manifest, strategy, string(RunStatusRunning), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}

	return &Run{
		ID:        id,
		Manifest:  manifest,
		Strategy:  strategy,
		Status:    RunStatusRunning,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *PostgresStore) FinishRun(ctx context.Context, runID string, status RunStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, updated_at = $2 WHERE id = $3`,
		string(status), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: finish run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("postgres: run %s not found", runID)
	}
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*Run, error) {
	var r Run
	var status string
	err := s.pool.QueryRow(ctx,
		`SELECT id, manifest, strategy, status, created_at, updated_at FROM runs WHERE id = $1`,
		runID,
	).Scan(&r.ID, &r.Manifest, &r.Strategy, &status, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		if eris.Is(err, pgx.ErrNoRows) {
			return nil, eris.Errorf("postgres: run %s not found", runID)
		}
		return nil, eris.Wrapf(err, "postgres: get run %s", runID)
	}
	r.Status = RunStatus(status)
	return &r, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, manifest, strategy, status, created_at, updated_at FROM runs ORDER BY created_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var status string
		if err := rows.Scan(&r.ID, &r.Manifest, &r.Strategy, &status, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		r.Status = RunStatus(status)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// InsertDistances bulk-loads one layer's rows via the COPY protocol.
func (s *PostgresStore) InsertDistances(ctx context.Context, runID, layer string, rows []access.DistanceRow) (int64, error) {
	copyRows := make([][]any, len(rows))
	for i, row := range rows {
		copyRows[i] = []any{runID, layer, row.OriginID, row.RegionID, row.FacilityID, row.FacilityName, row.DistanceMeters}
	}

	n, err := db.CopyFrom(ctx, s.pool, "distances",
		[]string{"run_id", "layer", "origin_id", "region_id", "facility_id", "facility_name", "distance_meters"},
		copyRows,
	)
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: insert distances for layer %s", layer)
	}
	return n, nil
}

func (s *PostgresStore) InsertRegionMeans(ctx context.Context, runID, layer string, means []access.RegionMean) (int64, error) {
	copyRows := make([][]any, len(means))
	for i, m := range means {
		copyRows[i] = []any{runID, layer, m.RegionID, m.MeanMeters, m.Origins}
	}

	n, err := db.CopyFrom(ctx, s.pool, "region_means",
		[]string{"run_id", "layer", "region_id", "mean_meters", "origins"},
		copyRows,
	)
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: insert region means for layer %s", layer)
	}
	return n, nil
}

func (s *PostgresStore) ListDistances(ctx context.Context, runID, layer string, limit, offset int) ([]DistanceRecord, error) {
	if limit <= 0 {
		limit = 1000
	}
	rows, err := s.pool.Query(ctx,
		`SELECT run_id, layer, origin_id, region_id, facility_id, facility_name, distance_meters
		 FROM distances WHERE run_id = $1 AND ($2 = '' OR layer = $2)
		 ORDER BY layer, origin_id LIMIT $3 OFFSET $4`,
		runID, layer, limit, offset,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list distances")
	}
	defer rows.Close()

	var records []DistanceRecord
	for rows.Next() {
		var d DistanceRecord
		if err := rows.Scan(&d.RunID, &d.Layer, &d.OriginID, &d.RegionID, &d.FacilityID, &d.FacilityName, &d.DistanceMeters); err != nil {
			return nil, eris.Wrap(err, "postgres: scan distance")
		}
		records = append(records, d)
	}
	return records, rows.Err()
}

func (s *PostgresStore) ListRegionMeans(ctx context.Context, runID string) ([]RegionRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT run_id, layer, region_id, mean_meters, origins FROM region_means WHERE run_id = $1 ORDER BY layer, region_id`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list region means")
	}
	defer rows.Close()

	var records []RegionRecord
	for rows.Next() {
		var r RegionRecord
		if err := rows.Scan(&r.RunID, &r.Layer, &r.RegionID, &r.MeanMeters, &r.Origins); err != nil {
			return nil, eris.Wrap(err, "postgres: scan region mean")
		}
		records = append(records, r)
	}
	return records, rows.Err()
}
