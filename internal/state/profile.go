package state

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
)

// NewWebhookToken generates the opaque per-account bearer credential
// embedded in webhook URL paths.
func NewWebhookToken() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func (s *Store) CreateProfile(ctx context.Context, username string) (*Profile, error) {
	token, err := NewWebhookToken()
	if err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO profiles (username, webhook_token) VALUES (?, ?)`,
		username, token,
	)
	if err != nil {
		return nil, err
	}
	return s.GetProfileByUsername(ctx, username)
}

func (s *Store) GetProfileByToken(ctx context.Context, token string) (*Profile, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, username, webhook_token, created_at FROM profiles WHERE webhook_token = ?`,
		token,
	)
	return scanProfile(row)
}

func (s *Store) GetProfileByUsername(ctx context.Context, username string) (*Profile, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, username, webhook_token, created_at FROM profiles WHERE username = ?`,
		username,
	)
	return scanProfile(row)
}

// FirstProfile returns the earliest registered profile. Shared-secret
// providers carry no account identity in their payloads, so events fall
// back to this profile when no default account is configured.
func (s *Store) FirstProfile(ctx context.Context) (*Profile, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, username, webhook_token, created_at FROM profiles ORDER BY id LIMIT 1`,
	)
	return scanProfile(row)
}

func (s *Store) ListProfiles(ctx context.Context) ([]*Profile, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, username, webhook_token, created_at FROM profiles ORDER BY username`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var profiles []*Profile
	for rows.Next() {
		var p Profile
		if err := rows.Scan(&p.ID, &p.Username, &p.WebhookToken, &p.CreatedAt); err != nil {
			return nil, err
		}
		profiles = append(profiles, &p)
	}
	return profiles, rows.Err()
}

// RotateWebhookToken replaces the profile's token and returns the new value.
// Webhook URLs built from the old token stop resolving immediately.
func (s *Store) RotateWebhookToken(ctx context.Context, username string) (string, error) {
	token, err := NewWebhookToken()
	if err != nil {
		return "", err
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE profiles SET webhook_token = ? WHERE username = ?`,
		token, username,
	)
	if err != nil {
		return "", err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return "", err
	}
	if rows == 0 {
		return "", ErrNotFound
	}
	return token, nil
}

func scanProfile(row *sql.Row) (*Profile, error) {
	var p Profile
	err := row.Scan(&p.ID, &p.Username, &p.WebhookToken, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}
