package webhook

import (
	"encoding/json"
	"fmt"
	"time"

	z "github.com/Oudwins/zog"

	"github.com/LoriKarikari/pulse/internal/state"
)

type jenkinsScm struct {
	Commit string `json:"commit"`
	Branch string `json:"branch"`
}

type jenkinsBuild struct {
	Number   int        `json:"number"`
	Phase    string     `json:"phase"`
	Status   string     `json:"status"`
	Url      string     `json:"url"`
	Scm      jenkinsScm `json:"scm"`
	Duration int64      `json:"duration"`
}

type jenkinsEvent struct {
	Name  string       `json:"name"`
	Url   string       `json:"url"`
	Build jenkinsBuild `json:"build"`
}

var jenkinsSchema = z.Struct(z.Shape{
	"name": z.String().Max(255).Required(),
	"url":  z.String().Max(500).Required(),
	"build": z.Struct(z.Shape{
		"number": z.Int().GT(0).Required(),
		"phase":  z.String().OneOf([]string{"QUEUED", "STARTED", "COMPLETED", "FINALIZED"}).Required(),
		"status": z.String().OneOf([]string{"SUCCESS", "FAILURE", "UNSTABLE", "ABORTED", "NOT_BUILT"}).Optional(),
		"scm": z.Struct(z.Shape{
			"commit": z.String().Max(40).Optional(),
			"branch": z.String().Max(255).Optional(),
		}),
	}),
})

// ParseJenkins normalizes a notification-plugin build event. The plugin
// reports no timestamps, so start and completion fall back to receipt time,
// and durations arrive in milliseconds.
func ParseJenkins(body []byte, now time.Time) (*PipelineEvent, error) {
	var payload jenkinsEvent
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("parse jenkins payload: %w", err)
	}
	if issues := jenkinsSchema.Validate(&payload); issues != nil {
		return nil, &ValidationError{Issues: z.Issues.SanitizeMap(issues)}
	}

	build := payload.Build
	completed := build.Phase == "COMPLETED" || build.Phase == "FINALIZED"

	branch := build.Scm.Branch
	if branch == "" {
		branch = "main"
	}
	commit := build.Scm.Commit
	if commit == "" {
		commit = "unknown"
	}

	var duration *int64
	if build.Duration > 0 {
		secs := build.Duration / 1000
		duration = &secs
	}

	var completedAt *time.Time
	if completed {
		completedAt = &now
	}

	return &PipelineEvent{
		Provider:        ProviderJenkins,
		Project:         payload.Name,
		RepositoryURL:   payload.Url,
		RunNumber:       int64(build.Number),
		Branch:          branch,
		Commit:          commit,
		Status:          mapJenkinsStatus(build.Phase, build.Status),
		DurationSeconds: duration,
		StartedAt:       now,
		CompletedAt:     completedAt,
	}, nil
}

// mapJenkinsStatus is total over phase and status; unknown combinations
// fail closed.
func mapJenkinsStatus(phase, status string) state.Status {
	switch phase {
	case "QUEUED":
		return state.StatusPending
	case "STARTED":
		return state.StatusRunning
	case "COMPLETED", "FINALIZED":
		switch status {
		case "SUCCESS":
			return state.StatusSuccess
		case "ABORTED":
			return state.StatusCancelled
		default:
			return state.StatusFailed
		}
	default:
		return state.StatusFailed
	}
}
