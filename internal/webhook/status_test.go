package webhook

import (
	"testing"

	"github.com/LoriKarikari/pulse/internal/state"
)

func TestMapGitHubStatus(t *testing.T) {
	tests := []struct {
		status     string
		conclusion string
		want       state.Status
	}{
		{"queued", "", state.StatusPending},
		{"in_progress", "", state.StatusRunning},
		{"completed", "success", state.StatusSuccess},
		{"completed", "failure", state.StatusFailed},
		{"completed", "cancelled", state.StatusCancelled},
		{"completed", "skipped", state.StatusFailed},
		{"completed", "timed_out", state.StatusFailed},
		{"completed", "action_required", state.StatusFailed},
		{"completed", "", state.StatusFailed},
		{"completed", "something-new", state.StatusFailed},
		{"waiting", "", state.StatusFailed},
		{"", "", state.StatusFailed},
	}

	for _, tt := range tests {
		t.Run(tt.status+"/"+tt.conclusion, func(t *testing.T) {
			got := mapGitHubStatus(tt.status, tt.conclusion)
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
			if !got.IsValid() {
				t.Errorf("mapped status %q not canonical", got)
			}
		})
	}
}

func TestMapGitLabStatus(t *testing.T) {
	tests := []struct {
		status string
		want   state.Status
	}{
		{"pending", state.StatusPending},
		{"running", state.StatusRunning},
		{"success", state.StatusSuccess},
		{"failed", state.StatusFailed},
		{"canceled", state.StatusCancelled},
		{"skipped", state.StatusFailed},
		{"manual", state.StatusFailed},
		{"", state.StatusFailed},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			got := mapGitLabStatus(tt.status)
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
			if !got.IsValid() {
				t.Errorf("mapped status %q not canonical", got)
			}
		})
	}
}

func TestMapJenkinsStatus(t *testing.T) {
	tests := []struct {
		phase  string
		status string
		want   state.Status
	}{
		{"QUEUED", "", state.StatusPending},
		{"STARTED", "", state.StatusRunning},
		{"COMPLETED", "SUCCESS", state.StatusSuccess},
		{"FINALIZED", "SUCCESS", state.StatusSuccess},
		{"COMPLETED", "FAILURE", state.StatusFailed},
		{"COMPLETED", "UNSTABLE", state.StatusFailed},
		{"COMPLETED", "ABORTED", state.StatusCancelled},
		{"FINALIZED", "ABORTED", state.StatusCancelled},
		{"COMPLETED", "NOT_BUILT", state.StatusFailed},
		{"COMPLETED", "", state.StatusFailed},
		{"UNKNOWN_PHASE", "SUCCESS", state.StatusFailed},
		{"", "", state.StatusFailed},
	}

	for _, tt := range tests {
		t.Run(tt.phase+"/"+tt.status, func(t *testing.T) {
			got := mapJenkinsStatus(tt.phase, tt.status)
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
			if !got.IsValid() {
				t.Errorf("mapped status %q not canonical", got)
			}
		})
	}
}
