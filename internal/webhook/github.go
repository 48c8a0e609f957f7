package webhook

import (
	"encoding/json"
	"fmt"
	"time"

	z "github.com/Oudwins/zog"

	"github.com/LoriKarikari/pulse/internal/state"
)

// EventTypeWorkflowRun is the only X-GitHub-Event kind this system
// processes; everything else is acknowledged and dropped.
const EventTypeWorkflowRun = "workflow_run"

type githubWorkflowRun struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	HeadBranch   string `json:"head_branch"`
	HeadSha      string `json:"head_sha"`
	Status       string `json:"status"`
	Conclusion   string `json:"conclusion"`
	RunNumber    int    `json:"run_number"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
	RunStartedAt string `json:"run_started_at"`
}

type githubRepository struct {
	Name     string `json:"name"`
	FullName string `json:"full_name"`
	HtmlUrl  string `json:"html_url"`
}

type githubSender struct {
	Login string `json:"login"`
}

type githubEvent struct {
	Action      string            `json:"action"`
	WorkflowRun githubWorkflowRun `json:"workflow_run"`
	Repository  githubRepository  `json:"repository"`
	Sender      githubSender      `json:"sender"`
}

var githubSchema = z.Struct(z.Shape{
	"action": z.String().Required(),
	"workflowRun": z.Struct(z.Shape{
		"name":       z.String().Max(255).Required(),
		"headBranch": z.String().Max(255).Required(),
		"headSha":    z.String().Max(40).Required(),
		"status":     z.String().OneOf([]string{"queued", "in_progress", "completed"}).Required(),
		"conclusion": z.String().OneOf([]string{"success", "failure", "cancelled", "skipped", "timed_out", "action_required"}).Optional(),
		"runNumber":  z.Int().GT(0).Required(),
		"updatedAt":  z.String().Required(),
	}),
	"repository": z.Struct(z.Shape{
		"name":    z.String().Max(255).Required(),
		"htmlUrl": z.String().URL().Max(500).Required(),
	}),
})

// ParseGitHub normalizes a workflow_run event. The conclusion field is null
// until the run completes; the zero string stands in for it here.
func ParseGitHub(body []byte, now time.Time) (*PipelineEvent, error) {
	var payload githubEvent
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("parse github payload: %w", err)
	}
	if issues := githubSchema.Validate(&payload); issues != nil {
		return nil, &ValidationError{Issues: z.Issues.SanitizeMap(issues)}
	}

	run := payload.WorkflowRun
	completed := run.Status == "completed"

	startedAt := parseTime(run.RunStartedAt)
	if startedAt.IsZero() {
		startedAt = now
	}

	var completedAt *time.Time
	var duration *int64
	if completed {
		end := parseTime(run.UpdatedAt)
		if end.IsZero() {
			end = now
		}
		completedAt = &end
		if start := parseTime(run.RunStartedAt); !start.IsZero() {
			secs := int64(end.Sub(start) / time.Second)
			duration = &secs
		}
	}

	return &PipelineEvent{
		Provider:        ProviderGitHub,
		Project:         payload.Repository.Name,
		RepositoryURL:   payload.Repository.HtmlUrl,
		RunNumber:       int64(run.RunNumber),
		Branch:          run.HeadBranch,
		Commit:          run.HeadSha,
		Status:          mapGitHubStatus(run.Status, run.Conclusion),
		DurationSeconds: duration,
		StartedAt:       startedAt,
		CompletedAt:     completedAt,
	}, nil
}

// mapGitHubStatus is total over the status/conclusion domain; anything
// unrecognized fails closed.
func mapGitHubStatus(status, conclusion string) state.Status {
	switch status {
	case "queued":
		return state.StatusPending
	case "in_progress":
		return state.StatusRunning
	case "completed":
		switch conclusion {
		case "success":
			return state.StatusSuccess
		case "cancelled":
			return state.StatusCancelled
		default:
			return state.StatusFailed
		}
	default:
		return state.StatusFailed
	}
}
