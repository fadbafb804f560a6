package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/agrodatalab/upa-access/internal/access"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	manifest   TEXT NOT NULL,
	strategy   TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'running',
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS distances (
	run_id          TEXT NOT NULL REFERENCES runs(id),
	layer           TEXT NOT NULL,
	origin_id       TEXT NOT NULL,
	region_id       TEXT,
	facility_id     TEXT,
	facility_name   TEXT,
	distance_meters REAL NOT NULL
);

CREATE TABLE IF NOT EXISTS region_means (
	run_id      TEXT NOT NULL REFERENCES runs(id),
	layer       TEXT NOT NULL,
	region_id   TEXT NOT NULL,
	mean_meters REAL NOT NULL,
	origins     INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_distances_run_layer ON distances(run_id, layer);
CREATE INDEX IF NOT EXISTS idx_region_means_run ON region_means(run_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context, manifest, strategy string) (*Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, manifest, strategy, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, manifest, strategy, string(RunStatusRunning), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
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

func (s *SQLiteStore) FinishRun(ctx context.Context, runID string, status RunStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: finish run %s", runID)
	}
	return checkRowsAffected(res, runID)
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*Run, error) {
	var r Run
	var status string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, manifest, strategy, status, created_at, updated_at FROM runs WHERE id = ?`,
		runID,
	).Scan(&r.ID, &r.Manifest, &r.Strategy, &status, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		if eris.Is(err, sql.ErrNoRows) {
			return nil, eris.Errorf("sqlite: run %s not found", runID)
		}
		return nil, eris.Wrapf(err, "sqlite: get run %s", runID)
	}
	r.Status = RunStatus(status)
	return &r, nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, manifest, strategy, status, created_at, updated_at FROM runs ORDER BY created_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var status string
		if err := rows.Scan(&r.ID, &r.Manifest, &r.Strategy, &status, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		r.Status = RunStatus(status)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func (s *SQLiteStore) InsertDistances(ctx context.Context, runID, layer string, rows []access.DistanceRow) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin distances tx")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO distances (run_id, layer, origin_id, region_id, facility_id, facility_name, distance_meters)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare distances insert")
	}
	defer stmt.Close() //nolint:errcheck

	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx,
			runID, layer, row.OriginID, row.RegionID, row.FacilityID, row.FacilityName, row.DistanceMeters,
		); err != nil {
			return 0, eris.Wrapf(err, "sqlite: insert distance for origin %s", row.OriginID)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit distances")
	}
	return int64(len(rows)), nil
}

func (s *SQLiteStore) InsertRegionMeans(ctx context.Context, runID, layer string, means []access.RegionMean) (int64, error) {
	if len(means) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin region means tx")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO region_means (run_id, layer, region_id, mean_meters, origins) VALUES (?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare region means insert")
	}
	defer stmt.Close() //nolint:errcheck

	for _, m := range means {
		if _, err := stmt.ExecContext(ctx, runID, layer, m.RegionID, m.MeanMeters, m.Origins); err != nil {
			return 0, eris.Wrapf(err, "sqlite: insert region mean for %s", m.RegionID)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit region means")
	}
	return int64(len(means)), nil
}

func (s *SQLiteStore) ListDistances(ctx context.Context, runID, layer string, limit, offset int) ([]DistanceRecord, error) {
	if limit <= 0 {
		limit = 1000
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, layer, origin_id, region_id, facility_id, facility_name, distance_meters
		 FROM distances WHERE run_id = ? AND (? = '' OR layer = ?)
		 ORDER BY layer, origin_id LIMIT ? OFFSET ?`,
		runID, layer, layer, limit, offset,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list distances")
	}
	defer rows.Close()

	var records []DistanceRecord
	for rows.Next() {
		var d DistanceRecord
		if err := rows.Scan(&d.RunID, &d.Layer, &d.OriginID, &d.RegionID, &d.FacilityID, &d.FacilityName, &d.DistanceMeters); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan distance")
		}
		records = append(records, d)
	}
	return records, rows.Err()
}

func (s *SQLiteStore) ListRegionMeans(ctx context.Context, runID string) ([]RegionRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, layer, region_id, mean_meters, origins FROM region_means WHERE run_id = ? ORDER BY layer, region_id`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list region means")
	}
	defer rows.Close()

	var records []RegionRecord
	for rows.Next() {
		var r RegionRecord
		if err := rows.Scan(&r.RunID, &r.Layer, &r.RegionID, &r.MeanMeters, &r.Origins); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan region mean")
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// checkRowsAffected converts a zero-row update into a not-found error.
func checkRowsAffected(res sql.Result, runID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Errorf("sqlite: run %s not found", runID)
	}
	return nil
}
