// Package ingest applies normalized webhook events to the store: it
// resolves the owning account, finds or creates the project and performs
// the pipeline upsert or deployment insert.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cenkalti/backoff/v4"

	"github.com/LoriKarikari/pulse/internal/state"
	"github.com/LoriKarikari/pulse/internal/telemetry"
	"github.com/LoriKarikari/pulse/internal/webhook"
)

const maxWriteRetries = 3

type Ingestor struct {
	store   *state.Store
	logger  *slog.Logger
	metrics *telemetry.Metrics
}

func New(store *state.Store, logger *slog.Logger, metrics *telemetry.Metrics) *Ingestor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ingestor{
		store:   store,
		logger:  logger.With(slog.String("component", "ingest")),
		metrics: metrics,
	}
}

// ResolveToken maps a path token to its owning profile.
func (i *Ingestor) ResolveToken(ctx context.Context, token string) (*state.Profile, error) {
	if token == "" {
		return nil, state.ErrNotFound
	}
	return i.store.GetProfileByToken(ctx, token)
}

// FallbackProfile resolves the account owning events from shared-secret
// providers, whose payloads carry no usable identity: the configured
// account when set, otherwise the earliest registered profile.
func (i *Ingestor) FallbackProfile(ctx context.Context, username string) (*state.Profile, error) {
	if username != "" {
		return i.store.GetProfileByUsername(ctx, username)
	}
	return i.store.FirstProfile(ctx)
}

// RecordPipeline upserts the pipeline run described by the event, creating
// the owning project on first reference.
func (i *Ingestor) RecordPipeline(ctx context.Context, profile *state.Profile, ev *webhook.PipelineEvent) (*state.Pipeline, error) {
	project, err := i.resolveProject(ctx, ev.Project, profile.ID, ev.RepositoryURL)
	if err != nil {
		return nil, err
	}

	pipeline, err := retryBusy(ctx, func() (*state.Pipeline, error) {
		return i.store.UpsertPipeline(ctx, state.PipelineParams{
			ProjectID:       project.ID,
			RunNumber:       ev.RunNumber,
			Branch:          ev.Branch,
			CommitHash:      ev.Commit,
			Status:          ev.Status,
			DurationSeconds: ev.DurationSeconds,
			TriggeredBy:     profile.ID,
			StartedAt:       ev.StartedAt,
			CompletedAt:     ev.CompletedAt,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("upsert pipeline: %w", err)
	}

	if i.metrics != nil {
		i.metrics.RecordPipeline(ctx, string(ev.Provider), string(pipeline.Status))
	}
	i.logger.Info("pipeline recorded",
		slog.String("provider", string(ev.Provider)),
		slog.String("project", project.Name),
		slog.Int64("run_number", pipeline.RunNumber),
		slog.String("status", string(pipeline.Status)),
	)
	return pipeline, nil
}

// RecordDeployment inserts a deployment row, linking it to a pipeline run
// when the referenced run number exists. An unresolvable back-reference
// leaves the link unset rather than failing the event.
func (i *Ingestor) RecordDeployment(ctx context.Context, profile *state.Profile, ev *webhook.DeploymentEvent) (*state.Deployment, error) {
	project, err := i.resolveProject(ctx, ev.Project, profile.ID, "")
	if err != nil {
		return nil, err
	}

	var pipelineID *int64
	if ev.RunNumber != nil {
		pipeline, err := i.store.GetPipelineByRun(ctx, project.ID, *ev.RunNumber)
		switch {
		case err == nil:
			pipelineID = &pipeline.ID
		case errors.Is(err, state.ErrNotFound):
			i.logger.Warn("deployment references unknown pipeline run",
				slog.String("project", project.Name),
				slog.Int64("run_number", *ev.RunNumber),
			)
		default:
			return nil, fmt.Errorf("lookup pipeline: %w", err)
		}
	}

	deployment, err := retryBusy(ctx, func() (*state.Deployment, error) {
		return i.store.CreateDeployment(ctx, state.DeploymentParams{
			ProjectID:   project.ID,
			PipelineID:  pipelineID,
			Environment: ev.Environment,
			Version:     ev.Version,
			Status:      ev.Status,
			DeployedBy:  profile.ID,
			DeployedAt:  ev.DeployedAt,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("create deployment: %w", err)
	}

	if i.metrics != nil {
		i.metrics.RecordDeployment(ctx, string(deployment.Environment), string(deployment.Status))
	}
	i.logger.Info("deployment recorded",
		slog.String("project", project.Name),
		slog.String("environment", string(deployment.Environment)),
		slog.String("version", deployment.Version),
	)
	return deployment, nil
}

func (i *Ingestor) resolveProject(ctx context.Context, name string, ownerID int64, repositoryURL string) (*state.Project, error) {
	project, err := retryBusy(ctx, func() (*state.Project, error) {
		return i.store.EnsureProject(ctx, name, ownerID, repositoryURL)
	})
	if err != nil {
		return nil, fmt.Errorf("resolve project %q: %w", name, err)
	}
	return project, nil
}

// retryBusy retries writes that lost the SQLite write lock; every other
// error is permanent.
func retryBusy[T any](ctx context.Context, op func() (T, error)) (T, error) {
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxWriteRetries), ctx)
	return backoff.RetryWithData(func() (T, error) {
		result, err := op()
		if err != nil && !isBusy(err) {
			return result, backoff.Permanent(err)
		}
		return result, err
	}, policy)
}

func isBusy(err error) bool {
	return err != nil && strings.Contains(err.Error(), "SQLITE_BUSY")
}
