// Package webhook parses provider event payloads, validates them against
// per-provider schemas and normalizes them onto the canonical pipeline and
// deployment model. It performs no I/O: authentication and persistence are
// the caller's concern.
package webhook

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/LoriKarikari/pulse/internal/state"
)

type Provider string

const (
	ProviderGitHub     Provider = "github"
	ProviderGitLab     Provider = "gitlab"
	ProviderJenkins    Provider = "jenkins"
	ProviderDeployment Provider = "deployment"
)

// ErrIgnoredEvent marks an event kind this system does not process. It is
// not a failure: the provider must receive a 2xx or it will retry.
var ErrIgnoredEvent = errors.New("event type not processed")

// PipelineEvent is one provider event normalized onto the canonical model.
type PipelineEvent struct {
	Provider        Provider
	Project         string
	RepositoryURL   string
	RunNumber       int64
	Branch          string
	Commit          string
	Status          state.Status
	DurationSeconds *int64
	StartedAt       time.Time
	CompletedAt     *time.Time
}

// DeploymentEvent is one normalized deployment notification.
type DeploymentEvent struct {
	Project     string
	Environment state.Environment
	Version     string
	Status      state.Status
	RunNumber   *int64
	DeployedAt  time.Time
}

// ValidationError carries field-level diagnostics from schema validation.
type ValidationError struct {
	Issues map[string][]string
}

func (e *ValidationError) Error() string {
	fields := lo.Keys(e.Issues)
	sort.Strings(fields)
	return fmt.Sprintf("invalid payload: %s", strings.Join(fields, ", "))
}

// Details flattens the issue map into "field: message" lines, sorted by
// field for stable output.
func (e *ValidationError) Details() []string {
	details := make([]string, 0, len(e.Issues))
	for field, msgs := range e.Issues {
		for _, msg := range msgs {
			details = append(details, fmt.Sprintf("%s: %s", field, msg))
		}
	}
	sort.Strings(details)
	return details
}

// parseTime reads an RFC 3339 timestamp, returning the zero time for empty
// or malformed input. Providers occasionally omit or null these fields.
func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
