package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	z "github.com/Oudwins/zog"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite" // sqlite driver

	"github.com/LoriKarikari/pulse/internal/state/migrations"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidStatus = errors.New("invalid status")
)

const DefaultListLimit = 100

type Store struct {
	db *sql.DB
}

type Profile struct {
	ID           int64
	Username     string
	WebhookToken string
	CreatedAt    time.Time
}

type Project struct {
	ID            int64
	Name          string
	RepositoryURL string
	CreatedBy     int64
	CreatedAt     time.Time
}

type Pipeline struct {
	ID              int64
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

type Deployment struct {
	ID          int64
	ProjectID   int64
	PipelineID  *int64
	Environment Environment
	Version     string
	Status      Status
	DeployedBy  int64
	DeployedAt  time.Time
}

// Status is the canonical state every provider vocabulary maps onto.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusSuccess   Status = "success"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

var statusSchema = z.String().OneOf([]string{
	string(StatusPending),
	string(StatusRunning),
	string(StatusSuccess),
	string(StatusFailed),
	string(StatusCancelled),
})

func (s Status) IsValid() bool {
	str := string(s)
	return statusSchema.Validate(&str) == nil
}

// Environment is the fixed set of deployment targets.
type Environment string

const (
	EnvProduction  Environment = "production"
	EnvStaging     Environment = "staging"
	EnvDevelopment Environment = "development"
)

var environmentSchema = z.String().OneOf([]string{
	string(EnvProduction),
	string(EnvStaging),
	string(EnvDevelopment),
})

func (e Environment) IsValid() bool {
	str := string(e)
	return environmentSchema.Validate(&str) == nil
}

func New(ctx context.Context, path string) (*Store, error) {
	// Pragmas ride in the DSN so every pooled connection gets them, not
	// just the one that ran a PRAGMA statement.
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	if err := runMigrations(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func runMigrations(db *sql.DB) error {
	source, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return err
	}

	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return err
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return err
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}

	return nil
}
