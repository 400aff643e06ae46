package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metrolabs/beatcast/internal/harness"
	"github.com/metrolabs/beatcast/internal/model"
	"github.com/metrolabs/beatcast/internal/panel"
)

func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPostgresWithPool(mock), mock
}

func TestPostgres_SaveIncidents(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectCopyFrom(pgx.Identifier{"incidents"},
		[]string{"case_id", "occurred_at", "block", "beat", "ward", "primary_type",
			"description", "location_desc", "arrest", "domestic", "x", "y", "latitude", "longitude"}).
		WillReturnResult(2)

	incidents := []model.Incident{
		{CaseID: "HX1", OccurredAt: time.Now(), Beat: "1213"},
		{CaseID: "HX2", OccurredAt: time.Now(), Beat: "0213"},
	}
	n, err := s.SaveIncidents(context.Background(), incidents)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_SaveIncidents_Empty(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	n, err := s.SaveIncidents(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_CountIncidents(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery("SELECT COUNT").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(7)))

	n, err := s.CountIncidents(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_SavePanel(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec("DELETE FROM panel_cells").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"panel_cells"},
		[]string{"beat", "date", "count", "arrests", "past_crime_1", "past_crime_7",
			"past_crime_30", "past_arrest_30", "policing", "crime_trend"}).
		WillReturnResult(1)

	base, err := model.ParseDate("2024-03-01")
	require.NoError(t, err)
	n, err := s.SavePanel(context.Background(), []panel.Cell{{Beat: "0101", Date: base, Count: 2}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_LoadPanel(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	day := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("FROM panel_cells").
		WillReturnRows(pgxmock.NewRows([]string{
			"beat", "date", "count", "arrests", "past_crime_1", "past_crime_7",
			"past_crime_30", "past_arrest_30", "policing", "crime_trend",
		}).AddRow("0101", day, 3, 1, 2.0, 9.0, 30.0, 6.0, 0.2, 0.3))

	cells, err := s.LoadPanel(context.Background())
	require.NoError(t, err)
	require.Len(t, cells, 1)
	assert.Equal(t, "0101", cells[0].Beat)
	assert.Equal(t, model.DateOf(day), cells[0].Date)
	assert.Equal(t, 3, cells[0].Count)
	assert.InDelta(t, 0.2, cells[0].Policing, 1e-12)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_RunLifecycle(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec("INSERT INTO training_runs").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	run, err := s.CreateRun(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, RunRunning, run.Status)

	mock.ExpectExec("UPDATE training_runs").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	ranking := &harness.Ranking{Ranked: []harness.Result{{Name: "linear", ValidationRMSE: 1.2}}}
	require.NoError(t, s.CompleteRun(context.Background(), run.ID, ranking))

	mock.ExpectExec("UPDATE training_runs").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	require.NoError(t, s.FailRun(context.Background(), run.ID, "empty panel"))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_ListRuns(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	now := time.Now().UTC()
	mock.ExpectQuery("FROM training_runs").
		WithArgs(pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id", "status", "ranking", "error", "created_at", "updated_at"}).
			AddRow("run-1", RunCompleted, []byte(`{"ranked":[{"name":"linear","cv_r2":0.4,"validation_rmse":1.2}]}`), "", now, now).
			AddRow("run-2", RunFailed, []byte(nil), "empty panel", now, now))

	runs, err := s.ListRuns(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	require.NotNil(t, runs[0].Ranking)
	require.Len(t, runs[0].Ranking.Ranked, 1)
	assert.Equal(t, "linear", runs[0].Ranking.Ranked[0].Name)

	assert.Equal(t, RunFailed, runs[1].Status)
	assert.Nil(t, runs[1].Ranking)
	assert.Equal(t, "empty panel", runs[1].Error)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS incidents").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
