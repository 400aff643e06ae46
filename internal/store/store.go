// Package store persists incidents, panel rows, and training runs behind a
// driver-agnostic interface with SQLite and Postgres backends.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/metrolabs/beatcast/internal/harness"
	"github.com/metrolabs/beatcast/internal/model"
	"github.com/metrolabs/beatcast/internal/panel"
)

// RunStatus is a training run's lifecycle state.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// TrainingRun is one recorded model comparison run.
type TrainingRun struct {
	ID        string           `json:"id"`
	Status    RunStatus        `json:"status"`
	Ranking   *harness.Ranking `json:"ranking,omitempty"`
	Error     string           `json:"error,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// Store defines persistence for the crime panel pipeline.
type Store interface {
	// Incidents
	SaveIncidents(ctx context.Context, incidents []model.Incident) (int64, error)
	LoadIncidents(ctx context.Context) ([]model.Incident, error)
	CountIncidents(ctx context.Context) (int64, error)

	// Panel
	SavePanel(ctx context.Context, cells []panel.Cell) (int64, error)
	LoadPanel(ctx context.Context) ([]panel.Cell, error)

	// Training runs
	CreateRun(ctx context.Context) (*TrainingRun, error)
	CompleteRun(ctx context.Context, runID string, ranking *harness.Ranking) error
	FailRun(ctx context.Context, runID string, reason string) error
	ListRuns(ctx context.Context, limit int) ([]TrainingRun, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Open creates a Store for the configured driver.
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	switch driver {
	case "sqlite":
		return NewSQLite(dsn)
	case "postgres":
		return NewPostgres(ctx, dsn)
	}
	return nil, eris.Errorf("store: unknown driver %q", driver)
}
