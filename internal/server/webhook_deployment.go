package server

import (
	"context"
	"time"

	"github.com/LoriKarikari/pulse/internal/webhook"
)

type DeploymentWebhookInput struct {
	Token   string `path:"token"`
	RawBody []byte `json:"-"`
}

func (s *Server) handleDeploymentWebhook(ctx context.Context, input *DeploymentWebhookInput) (*WebhookOutput, error) {
	started := time.Now()

	profile, err := s.authToken(ctx, input.Token)
	if err != nil {
		s.recordEvent(ctx, webhook.ProviderDeployment, outcomeUnauthorized, started)
		return nil, s.authError(webhook.ProviderDeployment, err)
	}

	ev, err := webhook.ParseDeployment(input.RawBody, time.Now().UTC())
	if err != nil {
		s.recordEvent(ctx, webhook.ProviderDeployment, outcomeInvalid, started)
		return nil, s.payloadError(webhook.ProviderDeployment, err)
	}

	deployment, err := s.ingest.RecordDeployment(ctx, profile, ev)
	if err != nil {
		s.recordEvent(ctx, webhook.ProviderDeployment, outcomeError, started)
		return nil, s.internalError(webhook.ProviderDeployment, err)
	}

	s.recordEvent(ctx, webhook.ProviderDeployment, outcomeProcessed, started)
	out := &WebhookOutput{}
	out.Body.Success = true
	out.Body.Message = "Deployment recorded successfully"
	out.Body.Project = ev.Project
	out.Body.DeploymentID = deployment.ID
	out.Body.Environment = string(deployment.Environment)
	return out, nil
}
