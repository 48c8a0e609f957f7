package server

import (
	"context"
	"time"

	"github.com/LoriKarikari/pulse/internal/webhook"
)

type JenkinsWebhookInput struct {
	Token      string `header:"X-Jenkins-Token"`
	QueryToken string `query:"token"`
	RawBody    []byte `json:"-"`
}

func (s *Server) handleJenkinsWebhook(ctx context.Context, input *JenkinsWebhookInput) (*WebhookOutput, error) {
	started := time.Now()

	token := input.Token
	if token == "" {
		token = input.QueryToken
	}

	profile, err := s.authSharedSecret(ctx, token, s.cfg.JenkinsSecret)
	if err != nil {
		s.recordEvent(ctx, webhook.ProviderJenkins, outcomeUnauthorized, started)
		return nil, s.authError(webhook.ProviderJenkins, err)
	}

	ev, err := webhook.ParseJenkins(input.RawBody, time.Now().UTC())
	if err != nil {
		s.recordEvent(ctx, webhook.ProviderJenkins, outcomeInvalid, started)
		return nil, s.payloadError(webhook.ProviderJenkins, err)
	}

	pipeline, err := s.ingest.RecordPipeline(ctx, profile, ev)
	if err != nil {
		s.recordEvent(ctx, webhook.ProviderJenkins, outcomeError, started)
		return nil, s.internalError(webhook.ProviderJenkins, err)
	}

	s.recordEvent(ctx, webhook.ProviderJenkins, outcomeProcessed, started)
	out := &WebhookOutput{}
	out.Body.Success = true
	out.Body.Message = "Pipeline updated successfully"
	out.Body.Project = ev.Project
	out.Body.BuildNumber = pipeline.RunNumber
	return out, nil
}
