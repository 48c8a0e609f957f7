package server

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/LoriKarikari/pulse/internal/config"
	"github.com/LoriKarikari/pulse/internal/ingest"
	"github.com/LoriKarikari/pulse/internal/state"
)

const (
	contentTypeJSON = "application/json"
	wantStatusFmt   = "status: got %d, want %d"
	wantFieldFmt    = "got %q, want %q"
	testSecret      = "shared-webhook-secret"

	githubWorkflowRunBody = `{
		"action": "completed",
		"workflow_run": {
			"id": 1,
			"name": "CI",
			"head_branch": "main",
			"head_sha": "abc123",
			"status": "completed",
			"conclusion": "success",
			"run_number": 42,
			"created_at": "2024-01-01T00:00:00Z",
			"updated_at": "2024-01-01T00:02:05Z",
			"run_started_at": "2024-01-01T00:00:00Z"
		},
		"repository": {
			"name": "web-app",
			"full_name": "org/web-app",
			"html_url": "https://github.com/org/web-app"
		},
		"sender": {"login": "octocat"}
	}`

	gitlabPipelineBody = `{
		"object_kind": "pipeline",
		"object_attributes": {
			"id": 1001,
			"iid": 55,
			"ref": "main",
			"sha": "def456",
			"status": "success",
			"duration": 95,
			"created_at": "2024-01-01T00:00:00Z",
			"finished_at": "2024-01-01T00:01:35Z"
		},
		"project": {"name": "api-service", "web_url": "https://gitlab.com/org/api-service"},
		"user": {"username": "dev"}
	}`

	jenkinsBuildBody = `{
		"name": "nightly-build",
		"url": "job/nightly-build/",
		"build": {
			"number": 12,
			"phase": "FINALIZED",
			"status": "SUCCESS",
			"url": "job/nightly-build/12/",
			"scm": {"commit": "fed789", "branch": "origin/main"},
			"duration": 95000
		}
	}`

	deploymentBody = `{
		"project_name": "web-app",
		"environment": "production",
		"version": "v2.1.0",
		"status": "success",
		"deployed_at": "2024-05-01T13:00:00Z"
	}`
)

type testEnv struct {
	ts      *httptest.Server
	client  *http.Client
	store   *state.Store
	profile *state.Profile
}

func newTestEnv(t *testing.T, cfg config.WebhookConfig) *testEnv {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	store, err := state.New(t.Context(), path)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })

	profile, err := store.CreateProfile(t.Context(), "test-user")
	if err != nil {
		t.Fatal(err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ing := ingest.New(store, logger, nil)
	s := New(0, ing, cfg, nil, logger)

	ts := httptest.NewServer(s.server.Handler)
	t.Cleanup(ts.Close)
	return &testEnv{ts: ts, client: ts.Client(), store: store, profile: profile}
}

func (e *testEnv) post(t *testing.T, path, body string, headers map[string]string) *http.Response {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, e.ts.URL+path, bytes.NewReader([]byte(body)))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", contentTypeJSON)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := e.client.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func decodeResponse(t *testing.T, resp *http.Response) WebhookResponse {
	t.Helper()
	defer resp.Body.Close()
	var result WebhookResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatal(err)
	}
	return result
}

func decodeError(t *testing.T, resp *http.Response) ErrorEnvelope {
	t.Helper()
	defer resp.Body.Close()
	var result ErrorEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatal(err)
	}
	return result
}

func (e *testEnv) countPipelines(t *testing.T, project string) int {
	t.Helper()
	p, err := e.store.GetProjectByName(t.Context(), project, e.profile.ID)
	if err != nil {
		t.Fatal(err)
	}
	pipelines, err := e.store.ListPipelines(t.Context(), p.ID, 0)
	if err != nil {
		t.Fatal(err)
	}
	return len(pipelines)
}

func signGitHubPayload(secret, body string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(body))
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func TestGitHubWebhookInvalidToken(t *testing.T) {
	env := newTestEnv(t, config.WebhookConfig{})

	resp := env.post(t, "/hooks/github/bogus-token", githubWorkflowRunBody,
		map[string]string{"X-GitHub-Event": "workflow_run"})

	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf(wantStatusFmt, resp.StatusCode, http.StatusUnauthorized)
	}
	result := decodeError(t, resp)
	if result.Success {
		t.Error("expected success=false")
	}
	if result.Message != "invalid webhook token" {
		t.Errorf(wantFieldFmt, result.Message, "invalid webhook token")
	}

	if _, err := env.store.GetProjectByName(t.Context(), "web-app", env.profile.ID); err == nil {
		t.Error("unauthorized request must not create rows")
	}
}

func TestGitHubWebhookIgnoredEvent(t *testing.T) {
	env := newTestEnv(t, config.WebhookConfig{})

	resp := env.post(t, "/hooks/github/"+env.profile.WebhookToken, `{"zen":"Design for failure."}`,
		map[string]string{"X-GitHub-Event": "push"})

	if resp.StatusCode != http.StatusOK {
		t.Errorf(wantStatusFmt, resp.StatusCode, http.StatusOK)
	}
	result := decodeResponse(t, resp)
	if !result.Success {
		t.Error("expected success=true")
	}
	if result.Message != "Event type not processed" {
		t.Errorf(wantFieldFmt, result.Message, "Event type not processed")
	}
}

func TestGitHubWebhookProcessed(t *testing.T) {
	env := newTestEnv(t, config.WebhookConfig{})

	resp := env.post(t, "/hooks/github/"+env.profile.WebhookToken, githubWorkflowRunBody,
		map[string]string{"X-GitHub-Event": "workflow_run"})

	if resp.StatusCode != http.StatusOK {
		t.Errorf(wantStatusFmt, resp.StatusCode, http.StatusOK)
	}
	result := decodeResponse(t, resp)
	if !result.Success {
		t.Error("expected success=true")
	}
	if result.Project != "web-app" {
		t.Errorf(wantFieldFmt, result.Project, "web-app")
	}
	if result.RunNumber != 42 {
		t.Errorf("run number: got %d, want 42", result.RunNumber)
	}

	project, err := env.store.GetProjectByName(t.Context(), "web-app", env.profile.ID)
	if err != nil {
		t.Fatal(err)
	}
	pipeline, err := env.store.GetPipelineByRun(t.Context(), project.ID, 42)
	if err != nil {
		t.Fatal(err)
	}
	if pipeline.Status != state.StatusSuccess {
		t.Errorf(wantFieldFmt, pipeline.Status, state.StatusSuccess)
	}
	if pipeline.DurationSeconds == nil || *pipeline.DurationSeconds != 125 {
		t.Fatalf("duration: got %v, want 125", pipeline.DurationSeconds)
	}
}

func TestGitHubWebhookReplayIdempotent(t *testing.T) {
	env := newTestEnv(t, config.WebhookConfig{})

	for range 3 {
		resp := env.post(t, "/hooks/github/"+env.profile.WebhookToken, githubWorkflowRunBody,
			map[string]string{"X-GitHub-Event": "workflow_run"})
		if resp.StatusCode != http.StatusOK {
			t.Fatalf(wantStatusFmt, resp.StatusCode, http.StatusOK)
		}
		resp.Body.Close()
	}

	if n := env.countPipelines(t, "web-app"); n != 1 {
		t.Errorf("pipeline count: got %d, want 1", n)
	}
}

func TestGitHubWebhookSignatureFallback(t *testing.T) {
	env := newTestEnv(t, config.WebhookConfig{GitHubSecret: testSecret})

	resp := env.post(t, "/hooks/github/unknown-token", githubWorkflowRunBody,
		map[string]string{
			"X-GitHub-Event":      "workflow_run",
			"X-Hub-Signature-256": signGitHubPayload(testSecret, githubWorkflowRunBody),
		})

	if resp.StatusCode != http.StatusOK {
		t.Errorf(wantStatusFmt, resp.StatusCode, http.StatusOK)
	}
	result := decodeResponse(t, resp)
	if !result.Success {
		t.Error("expected success=true")
	}

	if n := env.countPipelines(t, "web-app"); n != 1 {
		t.Errorf("pipeline count: got %d, want 1", n)
	}
}

func TestGitHubWebhookBadSignature(t *testing.T) {
	env := newTestEnv(t, config.WebhookConfig{GitHubSecret: testSecret})

	resp := env.post(t, "/hooks/github/unknown-token", githubWorkflowRunBody,
		map[string]string{
			"X-GitHub-Event":      "workflow_run",
			"X-Hub-Signature-256": signGitHubPayload("wrong-secret", githubWorkflowRunBody),
		})

	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf(wantStatusFmt, resp.StatusCode, http.StatusUnauthorized)
	}
	resp.Body.Close()
}

func TestGitHubWebhookValidationError(t *testing.T) {
	env := newTestEnv(t, config.WebhookConfig{})

	resp := env.post(t, "/hooks/github/"+env.profile.WebhookToken,
		`{"action":"completed","workflow_run":{"status":"completed","updated_at":"2024-01-01T00:00:00Z"},"repository":{"name":"web-app"}}`,
		map[string]string{"X-GitHub-Event": "workflow_run"})

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf(wantStatusFmt, resp.StatusCode, http.StatusBadRequest)
	}
	result := decodeError(t, resp)
	if result.Success {
		t.Error("expected success=false")
	}
	if result.Message != "invalid webhook payload" {
		t.Errorf(wantFieldFmt, result.Message, "invalid webhook payload")
	}
	if len(result.Details) == 0 {
		t.Error("expected field details")
	}
}

func TestGitLabWebhookProcessed(t *testing.T) {
	env := newTestEnv(t, config.WebhookConfig{GitLabSecret: testSecret})

	resp := env.post(t, "/hooks/gitlab", gitlabPipelineBody,
		map[string]string{"X-Gitlab-Token": testSecret})

	if resp.StatusCode != http.StatusOK {
		t.Errorf(wantStatusFmt, resp.StatusCode, http.StatusOK)
	}
	result := decodeResponse(t, resp)
	if !result.Success {
		t.Error("expected success=true")
	}
	if result.Project != "api-service" {
		t.Errorf(wantFieldFmt, result.Project, "api-service")
	}
	project, err := env.store.GetProjectByName(t.Context(), "api-service", env.profile.ID)
	if err != nil {
		t.Fatal(err)
	}
	pipeline, err := env.store.GetPipelineByRun(t.Context(), project.ID, 55)
	if err != nil {
		t.Fatal(err)
	}
	if result.PipelineID != pipeline.ID {
		t.Errorf("pipeline id: got %d, want %d", result.PipelineID, pipeline.ID)
	}

	if n := env.countPipelines(t, "api-service"); n != 1 {
		t.Errorf("pipeline count: got %d, want 1", n)
	}
}

func TestGitLabWebhookWrongToken(t *testing.T) {
	env := newTestEnv(t, config.WebhookConfig{GitLabSecret: testSecret})

	resp := env.post(t, "/hooks/gitlab", gitlabPipelineBody,
		map[string]string{"X-Gitlab-Token": "wrong"})

	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf(wantStatusFmt, resp.StatusCode, http.StatusUnauthorized)
	}
	resp.Body.Close()
}

func TestGitLabWebhookNoSecretConfigured(t *testing.T) {
	env := newTestEnv(t, config.WebhookConfig{})

	resp := env.post(t, "/hooks/gitlab", gitlabPipelineBody,
		map[string]string{"X-Gitlab-Token": testSecret})

	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf(wantStatusFmt, resp.StatusCode, http.StatusUnauthorized)
	}
	resp.Body.Close()
}

func TestGitLabWebhookNonPipelineIgnored(t *testing.T) {
	env := newTestEnv(t, config.WebhookConfig{GitLabSecret: testSecret})

	resp := env.post(t, "/hooks/gitlab", `{"object_kind":"push"}`,
		map[string]string{"X-Gitlab-Token": testSecret})

	if resp.StatusCode != http.StatusOK {
		t.Errorf(wantStatusFmt, resp.StatusCode, http.StatusOK)
	}
	result := decodeResponse(t, resp)
	if result.Message != "Event type not processed" {
		t.Errorf(wantFieldFmt, result.Message, "Event type not processed")
	}
}

func TestJenkinsWebhookHeaderToken(t *testing.T) {
	env := newTestEnv(t, config.WebhookConfig{JenkinsSecret: testSecret})

	resp := env.post(t, "/hooks/jenkins", jenkinsBuildBody,
		map[string]string{"X-Jenkins-Token": testSecret})

	if resp.StatusCode != http.StatusOK {
		t.Errorf(wantStatusFmt, resp.StatusCode, http.StatusOK)
	}
	result := decodeResponse(t, resp)
	if result.Project != "nightly-build" {
		t.Errorf(wantFieldFmt, result.Project, "nightly-build")
	}
	if result.BuildNumber != 12 {
		t.Errorf("build number: got %d, want 12", result.BuildNumber)
	}
}

func TestJenkinsWebhookQueryToken(t *testing.T) {
	env := newTestEnv(t, config.WebhookConfig{JenkinsSecret: testSecret})

	resp := env.post(t, "/hooks/jenkins?token="+testSecret, jenkinsBuildBody, nil)

	if resp.StatusCode != http.StatusOK {
		t.Errorf(wantStatusFmt, resp.StatusCode, http.StatusOK)
	}
	result := decodeResponse(t, resp)
	if !result.Success {
		t.Error("expected success=true")
	}

	project, err := env.store.GetProjectByName(t.Context(), "nightly-build", env.profile.ID)
	if err != nil {
		t.Fatal(err)
	}
	pipeline, err := env.store.GetPipelineByRun(t.Context(), project.ID, 12)
	if err != nil {
		t.Fatal(err)
	}
	if pipeline.DurationSeconds == nil || *pipeline.DurationSeconds != 95 {
		t.Fatalf("duration: got %v, want 95", pipeline.DurationSeconds)
	}
}

func TestDeploymentWebhookProcessed(t *testing.T) {
	env := newTestEnv(t, config.WebhookConfig{})

	resp := env.post(t, "/hooks/deployments/"+env.profile.WebhookToken, deploymentBody, nil)

	if resp.StatusCode != http.StatusOK {
		t.Errorf(wantStatusFmt, resp.StatusCode, http.StatusOK)
	}
	result := decodeResponse(t, resp)
	if !result.Success {
		t.Error("expected success=true")
	}
	if result.Message != "Deployment recorded successfully" {
		t.Errorf(wantFieldFmt, result.Message, "Deployment recorded successfully")
	}
	if result.Environment != "production" {
		t.Errorf(wantFieldFmt, result.Environment, "production")
	}
	if result.DeploymentID == 0 {
		t.Error("expected a deployment id")
	}

	project, err := env.store.GetProjectByName(t.Context(), "web-app", env.profile.ID)
	if err != nil {
		t.Fatal(err)
	}
	deployments, err := env.store.ListDeployments(t.Context(), project.ID, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(deployments) != 1 {
		t.Errorf("deployment count: got %d, want 1", len(deployments))
	}
}

func TestDeploymentWebhookInvalidEnvironment(t *testing.T) {
	env := newTestEnv(t, config.WebhookConfig{})

	resp := env.post(t, "/hooks/deployments/"+env.profile.WebhookToken,
		`{"project_name":"web-app","environment":"qa","version":"v1","status":"success"}`, nil)

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf(wantStatusFmt, resp.StatusCode, http.StatusBadRequest)
	}
	result := decodeError(t, resp)
	if result.Success {
		t.Error("expected success=false")
	}
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t, config.WebhookConfig{})

	req, err := http.NewRequestWithContext(context.Background(), http.MethodOptions, env.ts.URL+"/hooks/gitlab", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := env.client.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		t.Errorf(wantStatusFmt, resp.StatusCode, http.StatusNoContent)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf(wantFieldFmt, got, "*")
	}
	if got := resp.Header.Get("Access-Control-Allow-Headers"); got != allowedHeaders {
		t.Errorf(wantFieldFmt, got, allowedHeaders)
	}
}

func TestHealthEndpoints(t *testing.T) {
	env := newTestEnv(t, config.WebhookConfig{})

	for _, path := range []string{"/health", "/ready"} {
		resp, err := env.client.Get(env.ts.URL + path)
		if err != nil {
			t.Fatal(err)
		}
		if resp.StatusCode != http.StatusOK {
			t.Errorf("%s: got %d, want %d", path, resp.StatusCode, http.StatusOK)
		}
		resp.Body.Close()
	}
}
