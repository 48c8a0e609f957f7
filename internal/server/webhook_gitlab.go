package server

import (
	"context"
	"errors"
	"time"

	"github.com/LoriKarikari/pulse/internal/webhook"
)

type GitLabWebhookInput struct {
	Token   string `header:"X-Gitlab-Token"`
	RawBody []byte `json:"-"`
}

func (s *Server) handleGitLabWebhook(ctx context.Context, input *GitLabWebhookInput) (*WebhookOutput, error) {
	started := time.Now()

	profile, err := s.authSharedSecret(ctx, input.Token, s.cfg.GitLabSecret)
	if err != nil {
		s.recordEvent(ctx, webhook.ProviderGitLab, outcomeUnauthorized, started)
		return nil, s.authError(webhook.ProviderGitLab, err)
	}

	ev, err := webhook.ParseGitLab(input.RawBody, time.Now().UTC())
	if errors.Is(err, webhook.ErrIgnoredEvent) {
		s.logger.Debug("ignoring non-pipeline gitlab hook")
		s.recordEvent(ctx, webhook.ProviderGitLab, outcomeIgnored, started)
		return ignoredOutput(), nil
	}
	if err != nil {
		s.recordEvent(ctx, webhook.ProviderGitLab, outcomeInvalid, started)
		return nil, s.payloadError(webhook.ProviderGitLab, err)
	}

	pipeline, err := s.ingest.RecordPipeline(ctx, profile, ev)
	if err != nil {
		s.recordEvent(ctx, webhook.ProviderGitLab, outcomeError, started)
		return nil, s.internalError(webhook.ProviderGitLab, err)
	}

	s.recordEvent(ctx, webhook.ProviderGitLab, outcomeProcessed, started)
	out := &WebhookOutput{}
	out.Body.Success = true
	out.Body.Message = "Pipeline updated successfully"
	out.Body.Project = ev.Project
	out.Body.PipelineID = pipeline.ID
	return out, nil
}
