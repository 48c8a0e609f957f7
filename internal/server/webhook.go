package server

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/samber/lo"

	"github.com/LoriKarikari/pulse/internal/state"
	"github.com/LoriKarikari/pulse/internal/webhook"
)

var errInvalidToken = errors.New("invalid webhook token")

// Metric outcome labels for received webhook events.
const (
	outcomeProcessed    = "processed"
	outcomeIgnored      = "ignored"
	outcomeUnauthorized = "unauthorized"
	outcomeInvalid      = "invalid"
	outcomeError        = "error"
)

type WebhookOutput struct {
	Body WebhookResponse
}

// WebhookResponse is the success envelope; context fields vary by adapter.
type WebhookResponse struct {
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	Project      string `json:"project,omitempty"`
	RunNumber    int64  `json:"run_number,omitempty"`
	BuildNumber  int64  `json:"build_number,omitempty"`
	PipelineID   int64  `json:"pipeline_id,omitempty"`
	DeploymentID int64  `json:"deployment_id,omitempty"`
	Environment  string `json:"environment,omitempty"`
}

func (s *Server) registerWebhooks(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "github-webhook",
		Method:      http.MethodPost,
		Path:        "/hooks/github/{token}",
		Summary:     "Ingest a GitHub workflow_run event",
	}, s.handleGitHubWebhook)

	huma.Register(api, huma.Operation{
		OperationID: "gitlab-webhook",
		Method:      http.MethodPost,
		Path:        "/hooks/gitlab",
		Summary:     "Ingest a GitLab pipeline hook",
	}, s.handleGitLabWebhook)

	huma.Register(api, huma.Operation{
		OperationID: "jenkins-webhook",
		Method:      http.MethodPost,
		Path:        "/hooks/jenkins",
		Summary:     "Ingest a Jenkins notification-plugin event",
	}, s.handleJenkinsWebhook)

	huma.Register(api, huma.Operation{
		OperationID: "deployment-webhook",
		Method:      http.MethodPost,
		Path:        "/hooks/deployments/{token}",
		Summary:     "Record a deployment",
	}, s.handleDeploymentWebhook)
}

func (s *Server) recordEvent(ctx context.Context, provider webhook.Provider, outcome string, started time.Time) {
	if s.telemetry == nil {
		return
	}
	s.telemetry.Metrics.RecordWebhookEvent(ctx, string(provider), outcome, time.Since(started))
}

// authToken resolves a path token to its owning profile. It runs strictly
// before payload parsing so unauthenticated callers learn nothing about
// validation.
func (s *Server) authToken(ctx context.Context, token string) (*state.Profile, error) {
	profile, err := s.ingest.ResolveToken(ctx, token)
	if errors.Is(err, state.ErrNotFound) {
		return nil, errInvalidToken
	}
	if err != nil {
		return nil, err
	}
	return profile, nil
}

// authSharedSecret compares a provider-supplied token against the
// configured shared secret and resolves the fallback account. An
// unconfigured secret rejects everything.
func (s *Server) authSharedSecret(ctx context.Context, provided, secret string) (*state.Profile, error) {
	if provided == "" || secret == "" {
		return nil, errInvalidToken
	}
	if subtle.ConstantTimeCompare([]byte(provided), []byte(secret)) != 1 {
		return nil, errInvalidToken
	}
	return s.ingest.FallbackProfile(ctx, s.cfg.DefaultAccount)
}

// authError converts an authentication failure into the response envelope.
// Anything other than a bad credential is an internal fault, not a 401.
func (s *Server) authError(provider webhook.Provider, err error) error {
	if errors.Is(err, errInvalidToken) {
		s.logger.Warn("webhook authentication failed", slog.String("provider", string(provider)))
		return huma.Error401Unauthorized("invalid webhook token")
	}
	s.logger.Error("webhook identity resolution failed", slog.String("provider", string(provider)), slog.Any("error", err))
	return huma.Error500InternalServerError("internal server error")
}

// payloadError converts a parse or validation failure into the response
// envelope, carrying field diagnostics when available.
func (s *Server) payloadError(provider webhook.Provider, err error) error {
	var verr *webhook.ValidationError
	if errors.As(err, &verr) {
		s.logger.Warn("webhook validation failed", slog.String("provider", string(provider)), slog.Any("error", err))
		details := lo.Map(verr.Details(), func(d string, _ int) error {
			return errors.New(d)
		})
		return huma.Error400BadRequest("invalid webhook payload", details...)
	}
	s.logger.Warn("webhook parse failed", slog.String("provider", string(provider)), slog.Any("error", err))
	return huma.Error400BadRequest("invalid webhook payload")
}

func (s *Server) internalError(provider webhook.Provider, err error) error {
	s.logger.Error("webhook processing failed", slog.String("provider", string(provider)), slog.Any("error", err))
	return huma.Error500InternalServerError("internal server error")
}

func ignoredOutput() *WebhookOutput {
	out := &WebhookOutput{}
	out.Body.Success = true
	out.Body.Message = "Event type not processed"
	return out
}
