package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"

	"github.com/LoriKarikari/pulse/internal/config"
	"github.com/LoriKarikari/pulse/internal/ingest"
	"github.com/LoriKarikari/pulse/internal/telemetry"
)

type Server struct {
	server    *http.Server
	ingest    *ingest.Ingestor
	cfg       config.WebhookConfig
	telemetry *telemetry.Provider
	logger    *slog.Logger
}

type HealthOutput struct {
	Body struct {
		Status string `json:"status"`
	}
}

type ReadyOutput struct {
	Body struct {
		Status string `json:"status"`
		Ready  bool   `json:"ready"`
	}
}

func New(port int, ing *ingest.Ingestor, webhookCfg config.WebhookConfig, tp *telemetry.Provider, logger *slog.Logger) *Server {
	mux := http.NewServeMux()
	api := humago.New(mux, huma.DefaultConfig("Pulse API", "1.0.0"))

	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           withCORS(mux),
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      15 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		ingest:    ing,
		cfg:       webhookCfg,
		telemetry: tp,
		logger:    logger,
	}

	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Liveness check",
	}, s.handleHealth)

	huma.Register(api, huma.Operation{
		OperationID: "ready",
		Method:      http.MethodGet,
		Path:        "/ready",
		Summary:     "Readiness check",
	}, s.handleReady)

	s.registerWebhooks(api)

	if tp != nil {
		mux.Handle("/metrics", tp.Handler())
	}

	return s
}

func (s *Server) handleHealth(ctx context.Context, input *struct{}) (*HealthOutput, error) {
	return &HealthOutput{
		Body: struct {
			Status string `json:"status"`
		}{Status: "ok"},
	}, nil
}

func (s *Server) handleReady(ctx context.Context, input *struct{}) (*ReadyOutput, error) {
	output := &ReadyOutput{}
	output.Body.Ready = s.ingest != nil
	if output.Body.Ready {
		output.Body.Status = "ok"
	} else {
		output.Body.Status = "not ready"
	}
	return output, nil
}

func (s *Server) Start(ctx context.Context) error {
	lc := &net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", s.server.Addr)
	if err != nil {
		return err
	}
	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("server error", slog.Any("error", err))
		}
	}()
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// allowedHeaders lists the provider custom headers browsers may send on
// preflighted requests.
const allowedHeaders = "authorization, content-type, x-hub-signature-256, x-github-event, x-gitlab-token, x-gitlab-event, x-jenkins-token"

// withCORS answers preflight requests unconditionally, before any
// authentication or parsing, and stamps CORS headers on every response.
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", allowedHeaders)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
