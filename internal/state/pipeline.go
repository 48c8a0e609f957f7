package state

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// PipelineParams carries one normalized pipeline event into the store.
type PipelineParams struct {
	ProjectID       int64
	RunNumber       int64
	Branch          string
	CommitHash      string
	Status          Status
	DurationSeconds *int64
	TriggeredBy     int64
	StartedAt       time.Time
	CompletedAt     *time.Time
}

// UpsertPipeline inserts the run or, when (project_id, run_number) already
// exists, updates it in place. Only status, duration and completion time
// are touched on conflict: branch, commit, trigger and start time belong
// to the first event for the run and never change afterwards. Replaying an
// event or receiving start/completion out of order converges on one row.
func (s *Store) UpsertPipeline(ctx context.Context, p PipelineParams) (*Pipeline, error) {
	if !p.Status.IsValid() {
		return nil, ErrInvalidStatus
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO pipelines (project_id, run_number, branch, commit_hash, status, duration_seconds, triggered_by, started_at, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (project_id, run_number) DO UPDATE SET
			status = excluded.status,
			duration_seconds = excluded.duration_seconds,
			completed_at = excluded.completed_at`,
		p.ProjectID, p.RunNumber, p.Branch, p.CommitHash, p.Status,
		p.DurationSeconds, p.TriggeredBy, p.StartedAt, p.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return s.GetPipelineByRun(ctx, p.ProjectID, p.RunNumber)
}

func (s *Store) GetPipelineByRun(ctx context.Context, projectID, runNumber int64) (*Pipeline, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, project_id, run_number, branch, commit_hash, status, duration_seconds, triggered_by, started_at, completed_at
		 FROM pipelines WHERE project_id = ? AND run_number = ?`,
		projectID, runNumber,
	)
	return scanPipeline(row)
}

func (s *Store) ListPipelines(ctx context.Context, projectID int64, limit int) ([]*Pipeline, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, project_id, run_number, branch, commit_hash, status, duration_seconds, triggered_by, started_at, completed_at
		 FROM pipelines WHERE project_id = ? ORDER BY run_number DESC LIMIT ?`,
		projectID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pipelines []*Pipeline
	for rows.Next() {
		p, err := scanPipelineRows(rows)
		if err != nil {
			return nil, err
		}
		pipelines = append(pipelines, p)
	}
	return pipelines, rows.Err()
}

func scanPipeline(row *sql.Row) (*Pipeline, error) {
	var p Pipeline
	var duration sql.NullInt64
	var completedAt sql.NullTime
	err := row.Scan(&p.ID, &p.ProjectID, &p.RunNumber, &p.Branch, &p.CommitHash, &p.Status, &duration, &p.TriggeredBy, &p.StartedAt, &completedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	setPipelineNullables(&p, duration, completedAt)
	return &p, nil
}

func scanPipelineRows(rows *sql.Rows) (*Pipeline, error) {
	var p Pipeline
	var duration sql.NullInt64
	var completedAt sql.NullTime
	err := rows.Scan(&p.ID, &p.ProjectID, &p.RunNumber, &p.Branch, &p.CommitHash, &p.Status, &duration, &p.TriggeredBy, &p.StartedAt, &completedAt)
	if err != nil {
		return nil, err
	}
	setPipelineNullables(&p, duration, completedAt)
	return &p, nil
}

func setPipelineNullables(p *Pipeline, duration sql.NullInt64, completedAt sql.NullTime) {
	if duration.Valid {
		p.DurationSeconds = &duration.Int64
	}
	if completedAt.Valid {
		t := completedAt.Time
		p.CompletedAt = &t
	}
}
