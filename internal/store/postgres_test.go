package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrodatalab/upa-access/internal/access"
)

func newMockPostgres(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPostgresFromPool(mock), mock
}

func TestPostgresCreateRun(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectExec("INSERT INTO runs").
		WithArgs(pgxmock.AnyArg(), "layers.yaml", "indexed", "running", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	run, err := s.CreateRun(context.Background(), "layers.yaml", "indexed")
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, RunStatusRunning, run.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresFinishRunNotFound(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectExec("UPDATE runs SET status").
		WithArgs("failed", pgxmock.AnyArg(), "missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.FinishRun(context.Background(), "missing", RunStatusFailed)
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetRun(t *testing.T) {
	s, mock := newMockPostgres(t)
	now := time.Now().UTC()

	mock.ExpectQuery("SELECT id, manifest, strategy, status").
		WithArgs("run-1").
		WillReturnRows(pgxmock.NewRows(
			[]string{"id", "manifest", "strategy", "status", "created_at", "updated_at"},
		).AddRow("run-1", "layers.yaml", "dense", "complete", now, now))

	run, err := s.GetRun(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, "run-1", run.ID)
	assert.Equal(t, RunStatusComplete, run.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetRunNotFound(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectQuery("SELECT id, manifest, strategy, status").
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetRun(context.Background(), "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresInsertDistancesUsesCopy(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectCopyFrom(
		pgx.Identifier{"distances"},
		[]string{"run_id", "layer", "origin_id", "region_id", "facility_id", "facility_name", "distance_meters"},
	).WillReturnResult(2)

	n, err := s.InsertDistances(context.Background(), "run-1", "colegios", []access.DistanceRow{
		{OriginID: "U1", DistanceMeters: 10},
		{OriginID: "U2", DistanceMeters: 20},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresInsertRegionMeansUsesCopy(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectCopyFrom(
		pgx.Identifier{"region_means"},
		[]string{"run_id", "layer", "region_id", "mean_meters", "origins"},
	).WillReturnResult(1)

	n, err := s.InsertRegionMeans(context.Background(), "run-1", "colegios", []access.RegionMean{
		{RegionID: "05001", MeanMeters: 1500, Origins: 3},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresListDistances(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectQuery("SELECT run_id, layer, origin_id").
		WithArgs("run-1", "colegios", 100, 0).
		WillReturnRows(pgxmock.NewRows(
			[]string{"run_id", "layer", "origin_id", "region_id", "facility_id", "facility_name", "distance_meters"},
		).AddRow("run-1", "colegios", "U1", "05001", "C1", "Escuela", 1200.5))

	records, err := s.ListDistances(context.Background(), "run-1", "colegios", 100, 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Escuela", records[0].FacilityName)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresMigrate(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS runs").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}
