package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/metrolabs/beatcast/internal/harness"
	"github.com/metrolabs/beatcast/internal/model"
	"github.com/metrolabs/beatcast/internal/panel"
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
CREATE TABLE IF NOT EXISTS incidents (
	case_id       TEXT PRIMARY KEY,
	occurred_at   DATETIME NOT NULL,
	block         TEXT NOT NULL DEFAULT '',
	beat          TEXT NOT NULL,
	ward          TEXT NOT NULL DEFAULT '',
	primary_type  TEXT NOT NULL DEFAULT '',
	description   TEXT NOT NULL DEFAULT '',
	location_desc TEXT NOT NULL DEFAULT '',
	arrest        INTEGER NOT NULL DEFAULT 0,
	domestic      INTEGER NOT NULL DEFAULT 0,
	x             REAL NOT NULL DEFAULT 0,
	y             REAL NOT NULL DEFAULT 0,
	latitude      REAL NOT NULL DEFAULT 0,
	longitude     REAL NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS panel_cells (
	beat           TEXT NOT NULL,
	date           TEXT NOT NULL,
	count          INTEGER NOT NULL,
	arrests        INTEGER NOT NULL,
	past_crime_1   REAL NOT NULL,
	past_crime_7   REAL NOT NULL,
	past_crime_30  REAL NOT NULL,
	past_arrest_30 REAL NOT NULL,
	policing       REAL NOT NULL,
	crime_trend    REAL NOT NULL,
	PRIMARY KEY (beat, date)
);

CREATE TABLE IF NOT EXISTS training_runs (
	id         TEXT PRIMARY KEY,
	status     TEXT NOT NULL DEFAULT 'running',
	ranking    TEXT,
	error      TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_incidents_beat ON incidents(beat);
CREATE INDEX IF NOT EXISTS idx_panel_cells_date ON panel_cells(date);
CREATE INDEX IF NOT EXISTS idx_training_runs_status ON training_runs(status);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveIncidents upserts normalized incidents by case identifier.
func (s *SQLiteStore) SaveIncidents(ctx context.Context, incidents []model.Incident) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO incidents (case_id, occurred_at, block, beat, ward, primary_type,
			description, location_desc, arrest, domestic, x, y, latitude, longitude)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(case_id) DO NOTHING`)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare incident insert")
	}
	defer stmt.Close()

	var n int64
	for i := range incidents {
		inc := &incidents[i]
		res, err := stmt.ExecContext(ctx,
			inc.CaseID, inc.OccurredAt, inc.Block, inc.Beat, inc.Ward, inc.PrimaryType,
			inc.Description, inc.LocationDesc, inc.Arrest, inc.Domestic,
			inc.X, inc.Y, inc.Latitude, inc.Longitude,
		)
		if err != nil {
			return 0, eris.Wrapf(err, "sqlite: insert incident %s", inc.CaseID)
		}
		rows, _ := res.RowsAffected()
		n += rows
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit incidents")
	}
	return n, nil
}

// LoadIncidents reads all stored incidents ordered by occurrence time.
func (s *SQLiteStore) LoadIncidents(ctx context.Context) ([]model.Incident, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT case_id, occurred_at, block, beat, ward, primary_type,
			description, location_desc, arrest, domestic, x, y, latitude, longitude
		FROM incidents ORDER BY occurred_at`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query incidents")
	}
	defer rows.Close()

	var incidents []model.Incident
	for rows.Next() {
		var inc model.Incident
		if err := rows.Scan(&inc.CaseID, &inc.OccurredAt, &inc.Block, &inc.Beat, &inc.Ward,
			&inc.PrimaryType, &inc.Description, &inc.LocationDesc, &inc.Arrest, &inc.Domestic,
			&inc.X, &inc.Y, &inc.Latitude, &inc.Longitude); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan incident")
		}
		incidents = append(incidents, inc)
	}
	return incidents, eris.Wrap(rows.Err(), "sqlite: iterate incidents")
}

func (s *SQLiteStore) CountIncidents(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM incidents`).Scan(&n)
	return n, eris.Wrap(err, "sqlite: count incidents")
}

// SavePanel replaces the stored panel with the given cells.
func (s *SQLiteStore) SavePanel(ctx context.Context, cells []panel.Cell) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM panel_cells`); err != nil {
		return 0, eris.Wrap(err, "sqlite: clear panel")
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO panel_cells (beat, date, count, arrests, past_crime_1, past_crime_7,
			past_crime_30, past_arrest_30, policing, crime_trend)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare panel insert")
	}
	defer stmt.Close()

	for i := range cells {
		c := &cells[i]
		if _, err := stmt.ExecContext(ctx,
			c.Beat, c.Date.String(), c.Count, c.Arrests,
			c.PastCrime1, c.PastCrime7, c.PastCrime30, c.PastArrest30,
			c.Policing, c.CrimeTrend,
		); err != nil {
			return 0, eris.Wrapf(err, "sqlite: insert cell %s/%s", c.Beat, c.Date)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit panel")
	}
	return int64(len(cells)), nil
}

// LoadPanel reads the full stored panel, ordered by beat then date.
func (s *SQLiteStore) LoadPanel(ctx context.Context) ([]panel.Cell, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT beat, date, count, arrests, past_crime_1, past_crime_7,
			past_crime_30, past_arrest_30, policing, crime_trend
		FROM panel_cells ORDER BY beat, date`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query panel")
	}
	defer rows.Close()

	var cells []panel.Cell
	for rows.Next() {
		var c panel.Cell
		var date string
		if err := rows.Scan(&c.Beat, &date, &c.Count, &c.Arrests,
			&c.PastCrime1, &c.PastCrime7, &c.PastCrime30, &c.PastArrest30,
			&c.Policing, &c.CrimeTrend); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan cell")
		}
		if c.Date, err = model.ParseDate(date); err != nil {
			return nil, eris.Wrapf(err, "sqlite: parse cell date %s", date)
		}
		cells = append(cells, c)
	}
	return cells, eris.Wrap(rows.Err(), "sqlite: iterate panel")
}

func (s *SQLiteStore) CreateRun(ctx context.Context) (*TrainingRun, error) {
	run := &TrainingRun{
		ID:        uuid.NewString(),
		Status:    RunRunning,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO training_runs (id, status, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		run.ID, run.Status, run.CreatedAt, run.UpdatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: create run")
	}
	return run, nil
}

func (s *SQLiteStore) CompleteRun(ctx context.Context, runID string, ranking *harness.Ranking) error {
	payload, err := json.Marshal(ranking)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal ranking")
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE training_runs SET status = ?, ranking = ?, updated_at = ? WHERE id = ?`,
		RunCompleted, string(payload), time.Now().UTC(), runID,
	)
	return eris.Wrapf(err, "sqlite: complete run %s", runID)
}

func (s *SQLiteStore) FailRun(ctx context.Context, runID string, reason string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE training_runs SET status = ?, error = ?, updated_at = ? WHERE id = ?`,
		RunFailed, reason, time.Now().UTC(), runID,
	)
	return eris.Wrapf(err, "sqlite: fail run %s", runID)
}

func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]TrainingRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, status, ranking, error, created_at, updated_at
		FROM training_runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query runs")
	}
	defer rows.Close()

	var runs []TrainingRun
	for rows.Next() {
		var run TrainingRun
		var ranking sql.NullString
		if err := rows.Scan(&run.ID, &run.Status, &ranking, &run.Error,
			&run.CreatedAt, &run.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		if ranking.Valid && ranking.String != "" {
			run.Ranking = &harness.Ranking{}
			if err := json.Unmarshal([]byte(ranking.String), run.Ranking); err != nil {
				return nil, eris.Wrapf(err, "sqlite: decode ranking for run %s", run.ID)
			}
		}
		runs = append(runs, run)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: iterate runs")
}
