package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/metrolabs/beatcast/internal/harness"
	"github.com/metrolabs/beatcast/internal/model"
	"github.com/metrolabs/beatcast/internal/panel"
)

// Pool is the subset of pgxpool.Pool the store needs; pgxmock satisfies it
// in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
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

// NewPostgresWithPool wraps an existing pool; used by tests.
func NewPostgresWithPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS incidents (
	case_id       TEXT PRIMARY KEY,
	occurred_at   TIMESTAMP NOT NULL,
	block         TEXT NOT NULL DEFAULT '',
	beat          TEXT NOT NULL,
	ward          TEXT NOT NULL DEFAULT '',
	primary_type  TEXT NOT NULL DEFAULT '',
	description   TEXT NOT NULL DEFAULT '',
	location_desc TEXT NOT NULL DEFAULT '',
	arrest        BOOLEAN NOT NULL DEFAULT false,
	domestic      BOOLEAN NOT NULL DEFAULT false,
	x             DOUBLE PRECISION NOT NULL DEFAULT 0,
	y             DOUBLE PRECISION NOT NULL DEFAULT 0,
	latitude      DOUBLE PRECISION NOT NULL DEFAULT 0,
	longitude     DOUBLE PRECISION NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS panel_cells (
	beat           TEXT NOT NULL,
	date           DATE NOT NULL,
	count          INTEGER NOT NULL,
	arrests        INTEGER NOT NULL,
	past_crime_1   DOUBLE PRECISION NOT NULL,
	past_crime_7   DOUBLE PRECISION NOT NULL,
	past_crime_30  DOUBLE PRECISION NOT NULL,
	past_arrest_30 DOUBLE PRECISION NOT NULL,
	policing       DOUBLE PRECISION NOT NULL,
	crime_trend    DOUBLE PRECISION NOT NULL,
	PRIMARY KEY (beat, date)
);

CREATE TABLE IF NOT EXISTS training_runs (
	id         UUID PRIMARY KEY,
	status     TEXT NOT NULL DEFAULT 'running',
	ranking    JSONB,
	error      TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_incidents_beat ON incidents(beat);
CREATE INDEX IF NOT EXISTS idx_panel_cells_date ON panel_cells(date);
CREATE INDEX IF NOT EXISTS idx_training_runs_status ON training_runs(status);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// SaveIncidents bulk-loads incidents via the COPY protocol into a clean
// slate for the batch; duplicate case IDs are expected to be removed by
// normalization before this point.
func (s *PostgresStore) SaveIncidents(ctx context.Context, incidents []model.Incident) (int64, error) {
	if len(incidents) == 0 {
		return 0, nil
	}
	rows := make([][]any, len(incidents))
	for i := range incidents {
		inc := &incidents[i]
		rows[i] = []any{
			inc.CaseID, inc.OccurredAt, inc.Block, inc.Beat, inc.Ward, inc.PrimaryType,
			inc.Description, inc.LocationDesc, inc.Arrest, inc.Domestic,
			inc.X, inc.Y, inc.Latitude, inc.Longitude,
		}
	}
	n, err := s.pool.CopyFrom(ctx, pgx.Identifier{"incidents"},
		[]string{"case_id", "occurred_at", "block", "beat", "ward", "primary_type",
			"description", "location_desc", "arrest", "domestic", "x", "y", "latitude", "longitude"},
		pgx.CopyFromRows(rows),
	)
	return n, eris.Wrap(err, "postgres: copy incidents")
}

// LoadIncidents reads all stored incidents ordered by occurrence time.
func (s *PostgresStore) LoadIncidents(ctx context.Context) ([]model.Incident, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT case_id, occurred_at, block, beat, ward, primary_type,
			description, location_desc, arrest, domestic, x, y, latitude, longitude
		FROM incidents ORDER BY occurred_at`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query incidents")
	}
	defer rows.Close()

	var incidents []model.Incident
	for rows.Next() {
		var inc model.Incident
		if err := rows.Scan(&inc.CaseID, &inc.OccurredAt, &inc.Block, &inc.Beat, &inc.Ward,
			&inc.PrimaryType, &inc.Description, &inc.LocationDesc, &inc.Arrest, &inc.Domestic,
			&inc.X, &inc.Y, &inc.Latitude, &inc.Longitude); err != nil {
			return nil, eris.Wrap(err, "postgres: scan incident")
		}
		incidents = append(incidents, inc)
	}
	return incidents, eris.Wrap(rows.Err(), "postgres: iterate incidents")
}

func (s *PostgresStore) CountIncidents(ctx context.Context) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM incidents`).Scan(&n)
	return n, eris.Wrap(err, "postgres: count incidents")
}

// SavePanel replaces the stored panel with the given cells.
func (s *PostgresStore) SavePanel(ctx context.Context, cells []panel.Cell) (int64, error) {
	if _, err := s.pool.Exec(ctx, `DELETE FROM panel_cells`); err != nil {
		return 0, eris.Wrap(err, "postgres: clear panel")
	}
	rows := make([][]any, len(cells))
	for i := range cells {
		c := &cells[i]
		rows[i] = []any{
			c.Beat, c.Date.Time(), c.Count, c.Arrests,
			c.PastCrime1, c.PastCrime7, c.PastCrime30, c.PastArrest30,
			c.Policing, c.CrimeTrend,
		}
	}
	n, err := s.pool.CopyFrom(ctx, pgx.Identifier{"panel_cells"},
		[]string{"beat", "date", "count", "arrests", "past_crime_1", "past_crime_7",
			"past_crime_30", "past_arrest_30", "policing", "crime_trend"},
		pgx.CopyFromRows(rows),
	)
	return n, eris.Wrap(err, "postgres: copy panel")
}

// LoadPanel reads the full stored panel, ordered by beat then date.
func (s *PostgresStore) LoadPanel(ctx context.Context) ([]panel.Cell, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT beat, date, count, arrests, past_crime_1, past_crime_7,
			past_crime_30, past_arrest_30, policing, crime_trend
		FROM panel_cells ORDER BY beat, date`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query panel")
	}
	defer rows.Close()

	var cells []panel.Cell
	for rows.Next() {
		var c panel.Cell
		var date time.Time
		if err := rows.Scan(&c.Beat, &date, &c.Count, &c.Arrests,
			&c.PastCrime1, &c.PastCrime7, &c.PastCrime30, &c.PastArrest30,
			&c.Policing, &c.CrimeTrend); err != nil {
			return nil, eris.Wrap(err, "postgres: scan cell")
		}
		c.Date = model.DateOf(date)
		cells = append(cells, c)
	}
	return cells, eris.Wrap(rows.Err(), "postgres: iterate panel")
}

func (s *PostgresStore) CreateRun(ctx context.Context) (*TrainingRun, error) {
	run := &TrainingRun{
		ID:        uuid.NewString(),
		Status:    RunRunning,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO training_runs (id, status, created_at, updated_at) VALUES ($1, $2, $3, $4)`,
		run.ID, run.Status, run.CreatedAt, run.UpdatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create run")
	}
	return run, nil
}

func (s *PostgresStore) CompleteRun(ctx context.Context, runID string, ranking *harness.Ranking) error {
	payload, err := json.Marshal(ranking)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal ranking")
	}
	_, err = s.pool.Exec(ctx,
		`UPDATE training_runs SET status = $1, ranking = $2, updated_at = $3 WHERE id = $4`,
		RunCompleted, payload, time.Now().UTC(), runID,
	)
	return eris.Wrapf(err, "postgres: complete run %s", runID)
}

func (s *PostgresStore) FailRun(ctx context.Context, runID string, reason string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE training_runs SET status = $1, error = $2, updated_at = $3 WHERE id = $4`,
		RunFailed, reason, time.Now().UTC(), runID,
	)
	return eris.Wrapf(err, "postgres: fail run %s", runID)
}

func (s *PostgresStore) ListRuns(ctx context.Context, limit int) ([]TrainingRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, status, ranking, error, created_at, updated_at
		FROM training_runs ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query runs")
	}
	defer rows.Close()

	var runs []TrainingRun
	for rows.Next() {
		var run TrainingRun
		var ranking []byte
		if err := rows.Scan(&run.ID, &run.Status, &ranking, &run.Error,
			&run.CreatedAt, &run.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		if len(ranking) > 0 {
			run.Ranking = &harness.Ranking{}
			if err := json.Unmarshal(ranking, run.Ranking); err != nil {
				return nil, eris.Wrapf(err, "postgres: decode ranking for run %s", run.ID)
			}
		}
		runs = append(runs, run)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: iterate runs")
}
