package server

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/go-github/v66/github"

	"github.com/LoriKarikari/pulse/internal/state"
	"github.com/LoriKarikari/pulse/internal/webhook"
)

type GitHubWebhookInput struct {
	Token     string `path:"token"`
	Event     string `header:"X-GitHub-Event"`
	Signature string `header:"X-Hub-Signature-256"`
	RawBody   []byte `json:"-"`
}

func (s *Server) handleGitHubWebhook(ctx context.Context, input *GitHubWebhookInput) (*WebhookOutput, error) {
	started := time.Now()

	profile, err := s.authGitHub(ctx, input)
	if err != nil {
		s.recordEvent(ctx, webhook.ProviderGitHub, outcomeUnauthorized, started)
		return nil, s.authError(webhook.ProviderGitHub, err)
	}

	if input.Event != webhook.EventTypeWorkflowRun {
		s.logger.Debug("ignoring github event", slog.String("event", input.Event))
		s.recordEvent(ctx, webhook.ProviderGitHub, outcomeIgnored, started)
		return ignoredOutput(), nil
	}

	ev, err := webhook.ParseGitHub(input.RawBody, time.Now().UTC())
	if err != nil {
		s.recordEvent(ctx, webhook.ProviderGitHub, outcomeInvalid, started)
		return nil, s.payloadError(webhook.ProviderGitHub, err)
	}

	pipeline, err := s.ingest.RecordPipeline(ctx, profile, ev)
	if err != nil {
		s.recordEvent(ctx, webhook.ProviderGitHub, outcomeError, started)
		return nil, s.internalError(webhook.ProviderGitHub, err)
	}

	s.recordEvent(ctx, webhook.ProviderGitHub, outcomeProcessed, started)
	out := &WebhookOutput{}
	out.Body.Success = true
	out.Body.Message = "Pipeline updated successfully"
	out.Body.Project = ev.Project
	out.Body.RunNumber = pipeline.RunNumber
	return out, nil
}

// authGitHub accepts either a known path token or, failing that, a valid
// HMAC-SHA256 signature over the raw body computed with the configured
// shared secret. Signature auth carries no account identity, so it resolves
// to the fallback profile.
func (s *Server) authGitHub(ctx context.Context, input *GitHubWebhookInput) (*state.Profile, error) {
	profile, err := s.authToken(ctx, input.Token)
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, errInvalidToken) {
		return nil, err
	}
	if s.cfg.GitHubSecret != "" && input.Signature != "" {
		if github.ValidateSignature(input.Signature, input.RawBody, []byte(s.cfg.GitHubSecret)) == nil {
			return s.ingest.FallbackProfile(ctx, s.cfg.DefaultAccount)
		}
	}
	return nil, errInvalidToken
}
