package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cuemby/odin/pkg/types"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
)

const actionSchema = `
CREATE TABLE IF NOT EXISTS actions (
	id               TEXT PRIMARY KEY,
	predictor        TEXT NOT NULL,
	trigger_name     TEXT NOT NULL,
	action           TEXT NOT NULL,
	affected_systems TEXT NOT NULL,
	mission_impact   TEXT NOT NULL,
	execution_ms     BIGINT NOT NULL,
	reversible       BOOLEAN NOT NULL,
	confidence       DOUBLE PRECISION NOT NULL,
	requires_approval BOOLEAN NOT NULL,
	executed_at      TIMESTAMPTZ NOT NULL
)`

// actionRow is the flattened actions table row
type actionRow struct {
	ID               string    `db:"id"`
	Predictor        string    `db:"predictor"`
	Trigger          string    `db:"trigger_name"`
	Action           string    `db:"action"`
	AffectedSystems  string    `db:"affected_systems"`
	MissionImpact    string    `db:"mission_impact"`
	ExecutionMillis  int64     `db:"execution_ms"`
	Reversible       bool      `db:"reversible"`
	Confidence       float64   `db:"confidence"`
	RequiresApproval bool      `db:"requires_approval"`
	ExecutedAt       time.Time `db:"executed_at"`
}

func toRow(a types.Action) actionRow {
	return actionRow{
		ID:               a.ID,
		Predictor:        a.Predictor,
		Trigger:          a.Trigger,
		Action:           a.Action,
		AffectedSystems:  strings.Join(a.AffectedSystems, ","),
		MissionImpact:    string(a.MissionImpact),
		ExecutionMillis:  a.ExecutionTime.Milliseconds(),
		Reversible:       a.Reversible,
		Confidence:       a.Confidence,
		RequiresApproval: a.RequiresApproval,
		ExecutedAt:       a.Timestamp.UTC(),
	}
}

// fromRow rebuilds the summary fields of an action. Effects are not archived.
func fromRow(r actionRow) types.Action {
	var affected []string
	if r.AffectedSystems != "" {
		affected = strings.Split(r.AffectedSystems, ",")
	}
	return types.Action{
		ID:               r.ID,
		Predictor:        r.Predictor,
		Trigger:          r.Trigger,
		Action:           r.Action,
		AffectedSystems:  affected,
		MissionImpact:    types.MissionImpact(r.MissionImpact),
		ExecutionTime:    time.Duration(r.ExecutionMillis) * time.Millisecond,
		Reversible:       r.Reversible,
		Confidence:       r.Confidence,
		RequiresApproval: r.RequiresApproval,
		Timestamp:        r.ExecutedAt,
	}
}

// SQLArchive writes executed actions to a Postgres table through the pgx
// database/sql driver
type SQLArchive struct {
	db *sqlx.DB
}

// NewSQLArchive connects to dsn and ensures the actions table exists
func NewSQLArchive(ctx context.Context, dsn string) (*SQLArchive, error) {
	db, err := sqlx.ConnectContext(ctx, "pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect archive: %w", err)
	}
	if _, err := db.ExecContext(ctx, actionSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create actions table: %w", err)
	}
	return &SQLArchive{db: db}, nil
}

// ArchiveAction inserts an action; re-archiving the same id is a no-op
func (a *SQLArchive) ArchiveAction(action types.Action) error {
	_, err := a.db.NamedExec(`INSERT INTO actions
		(id, predictor, trigger_name, action, affected_systems, mission_impact,
		 execution_ms, reversible, confidence, requires_approval, executed_at)
		VALUES (:id, :predictor, :trigger_name, :action, :affected_systems, :mission_impact,
		 :execution_ms, :reversible, :confidence, :requires_approval, :executed_at)
		ON CONFLICT (id) DO NOTHING`, toRow(action))
	if err != nil {
		return fmt.Errorf("failed to archive action %s: %w", action.ID, err)
	}
	return nil
}

// RecentActions returns the newest archived actions for a predictor
func (a *SQLArchive) RecentActions(ctx context.Context, predictor string, limit int) ([]types.Action, error) {
	var rows []actionRow
	err := a.db.SelectContext(ctx, &rows,
		`SELECT * FROM actions WHERE predictor = $1 ORDER BY executed_at DESC LIMIT $2`,
		predictor, limit)
	if err != nil {
		return nil, err
	}
	out := make([]types.Action, 0, len(rows))
	for _, r := range rows {
		out = append(out, fromRow(r))
	}
	return out, nil
}

// Close closes the connection pool
// Ping verifies the database connection
func (a *SQLArchive) Ping(ctx context.Context) error {
	return a.db.PingContext(ctx)
}

func (a *SQLArchive) Close() error {
	return a.db.Close()
}
