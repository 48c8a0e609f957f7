package state

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// DeploymentParams carries one deployment event into the store.
type DeploymentParams struct {
	ProjectID   int64
	PipelineID  *int64
	Environment Environment
	Version     string
	Status      Status
	DeployedBy  int64
	DeployedAt  time.Time
}

// CreateDeployment always inserts. Deployment events carry no natural
// idempotency key, so duplicate submissions produce duplicate rows.
func (s *Store) CreateDeployment(ctx context.Context, d DeploymentParams) (*Deployment, error) {
	if !d.Status.IsValid() {
		return nil, ErrInvalidStatus
	}
	if !d.Environment.IsValid() {
		return nil, ErrInvalidStatus
	}

	result, err := s.db.ExecContext(ctx,
		`INSERT INTO deployments (project_id, pipeline_id, environment, version, status, deployed_by, deployed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		d.ProjectID, d.PipelineID, d.Environment, d.Version, d.Status, d.DeployedBy, d.DeployedAt,
	)
	if err != nil {
		return nil, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}
	return s.GetDeployment(ctx, id)
}

func (s *Store) GetDeployment(ctx context.Context, id int64) (*Deployment, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, project_id, pipeline_id, environment, version, status, deployed_by, deployed_at
		 FROM deployments WHERE id = ?`,
		id,
	)
	var d Deployment
	var pipelineID sql.NullInt64
	err := row.Scan(&d.ID, &d.ProjectID, &pipelineID, &d.Environment, &d.Version, &d.Status, &d.DeployedBy, &d.DeployedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if pipelineID.Valid {
		d.PipelineID = &pipelineID.Int64
	}
	return &d, nil
}

func (s *Store) ListDeployments(ctx context.Context, projectID int64, limit int) ([]*Deployment, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, project_id, pipeline_id, environment, version, status, deployed_by, deployed_at
		 FROM deployments WHERE project_id = ? ORDER BY id DESC LIMIT ?`,
		projectID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var deployments []*Deployment
	for rows.Next() {
		var d Deployment
		var pipelineID sql.NullInt64
		if err := rows.Scan(&d.ID, &d.ProjectID, &pipelineID, &d.Environment, &d.Version, &d.Status, &d.DeployedBy, &d.DeployedAt); err != nil {
			return nil, err
		}
		if pipelineID.Valid {
			d.PipelineID = &pipelineID.Int64
		}
		deployments = append(deployments, &d)
	}
	return deployments, rows.Err()
}
