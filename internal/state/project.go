package state

import (
	"context"
	"database/sql"
	"errors"
)

// EnsureProject returns the project owned by ownerID with the given name,
// creating it on first reference. The insert is a no-op on conflict with
// the (name, created_by) uniqueness constraint, so two concurrent first
// events for the same name converge on a single row.
func (s *Store) EnsureProject(ctx context.Context, name string, ownerID int64, repositoryURL string) (*Project, error) {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO projects (name, repository_url, created_by) VALUES (?, ?, ?)
		 ON CONFLICT (name, created_by) DO NOTHING`,
		name, repositoryURL, ownerID,
	)
	if err != nil {
		return nil, err
	}
	return s.GetProjectByName(ctx, name, ownerID)
}

func (s *Store) GetProject(ctx context.Context, id int64) (*Project, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, repository_url, created_by, created_at FROM projects WHERE id = ?`,
		id,
	)
	return scanProject(row)
}

func (s *Store) GetProjectByName(ctx context.Context, name string, ownerID int64) (*Project, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, repository_url, created_by, created_at FROM projects WHERE name = ? AND created_by = ?`,
		name, ownerID,
	)
	return scanProject(row)
}

func (s *Store) ListProjects(ctx context.Context) ([]*Project, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, repository_url, created_by, created_at FROM projects ORDER BY name`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []*Project
	for rows.Next() {
		var p Project
		if err := rows.Scan(&p.ID, &p.Name, &p.RepositoryURL, &p.CreatedBy, &p.CreatedAt); err != nil {
			return nil, err
		}
		projects = append(projects, &p)
	}
	return projects, rows.Err()
}

func scanProject(row *sql.Row) (*Project, error) {
	var p Project
	err := row.Scan(&p.ID, &p.Name, &p.RepositoryURL, &p.CreatedBy, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}
