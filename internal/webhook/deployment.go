package webhook

import (
	"encoding/json"
	"fmt"
	"time"

	z "github.com/Oudwins/zog"

	"github.com/LoriKarikari/pulse/internal/state"
)

type deploymentPayload struct {
	ProjectName       string `json:"project_name"`
	Environment       string `json:"environment"`
	Version           string `json:"version"`
	Status            string `json:"status"`
	PipelineRunNumber *int64 `json:"pipeline_run_number"`
	DeployedAt        string `json:"deployed_at"`
}

var deploymentSchema = z.Struct(z.Shape{
	"projectName": z.String().Max(255).Required(),
	"environment": z.String().OneOf([]string{"production", "staging", "development"}).Required(),
	"version":     z.String().Max(255).Required(),
	"status":      z.String().OneOf([]string{"success", "failed", "pending", "cancelled"}).Required(),
})

// ParseDeployment normalizes a generic CD tool notification. The payload
// statuses are already canonical; the deployed_at timestamp defaults to
// receipt time when omitted.
func ParseDeployment(body []byte, now time.Time) (*DeploymentEvent, error) {
	var payload deploymentPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("parse deployment payload: %w", err)
	}
	if issues := deploymentSchema.Validate(&payload); issues != nil {
		return nil, &ValidationError{Issues: z.Issues.SanitizeMap(issues)}
	}

	deployedAt := parseTime(payload.DeployedAt)
	if deployedAt.IsZero() {
		deployedAt = now
	}

	return &DeploymentEvent{
		Project:     payload.ProjectName,
		Environment: state.Environment(payload.Environment),
		Version:     payload.Version,
		Status:      state.Status(payload.Status),
		RunNumber:   payload.PipelineRunNumber,
		DeployedAt:  deployedAt,
	}, nil
}
