package webhook

import (
	"encoding/json"
	"fmt"
	"time"

	z "github.com/Oudwins/zog"

	"github.com/LoriKarikari/pulse/internal/state"
)

type gitlabAttributes struct {
	Id         int    `json:"id"`
	Iid        int    `json:"iid"`
	Ref        string `json:"ref"`
	Sha        string `json:"sha"`
	Status     string `json:"status"`
	Duration   *int64 `json:"duration"`
	CreatedAt  string `json:"created_at"`
	FinishedAt string `json:"finished_at"`
}

type gitlabProject struct {
	Name   string `json:"name"`
	WebUrl string `json:"web_url"`
}

type gitlabUser struct {
	Username string `json:"username"`
}

type gitlabEvent struct {
	ObjectKind       string           `json:"object_kind"`
	ObjectAttributes gitlabAttributes `json:"object_attributes"`
	Project          gitlabProject    `json:"project"`
	User             gitlabUser       `json:"user"`
}

var gitlabSchema = z.Struct(z.Shape{
	"objectAttributes": z.Struct(z.Shape{
		"ref":       z.String().Max(255).Required(),
		"sha":       z.String().Max(40).Required(),
		"status":    z.String().OneOf([]string{"pending", "running", "success", "failed", "canceled", "skipped"}).Required(),
		"iid":       z.Int().GT(0).Required(),
		"createdAt": z.String().Required(),
	}),
	"project": z.Struct(z.Shape{
		"name":   z.String().Max(255).Required(),
		"webUrl": z.String().URL().Max(500).Required(),
	}),
})

// ParseGitLab normalizes a pipeline hook. GitLab sends every hook kind the
// project subscribes to through one URL, so non-pipeline payloads map to
// ErrIgnoredEvent rather than a validation failure.
func ParseGitLab(body []byte, now time.Time) (*PipelineEvent, error) {
	var payload gitlabEvent
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("parse gitlab payload: %w", err)
	}
	if payload.ObjectKind != "pipeline" {
		return nil, ErrIgnoredEvent
	}
	if issues := gitlabSchema.Validate(&payload); issues != nil {
		return nil, &ValidationError{Issues: z.Issues.SanitizeMap(issues)}
	}

	attrs := payload.ObjectAttributes

	startedAt := parseTime(attrs.CreatedAt)
	if startedAt.IsZero() {
		startedAt = now
	}

	var completedAt *time.Time
	if finished := parseTime(attrs.FinishedAt); !finished.IsZero() {
		completedAt = &finished
	}

	return &PipelineEvent{
		Provider:        ProviderGitLab,
		Project:         payload.Project.Name,
		RepositoryURL:   payload.Project.WebUrl,
		RunNumber:       int64(attrs.Iid),
		Branch:          attrs.Ref,
		Commit:          attrs.Sha,
		Status:          mapGitLabStatus(attrs.Status),
		DurationSeconds: attrs.Duration,
		StartedAt:       startedAt,
		CompletedAt:     completedAt,
	}, nil
}

// mapGitLabStatus is total; skipped and anything unrecognized fail closed.
func mapGitLabStatus(status string) state.Status {
	switch status {
	case "pending":
		return state.StatusPending
	case "running":
		return state.StatusRunning
	case "success":
		return state.StatusSuccess
	case "failed":
		return state.StatusFailed
	case "canceled":
		return state.StatusCancelled
	default:
		return state.StatusFailed
	}
}
