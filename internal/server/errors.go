package server

import (
	"github.com/danielgtaylor/huma/v2"
)

// ErrorEnvelope is the error body every adapter returns:
// {"success": false, "error": "...", "details": [...]}.
type ErrorEnvelope struct {
	status  int
	Success bool     `json:"success"`
	Message string   `json:"error"`
	Details []string `json:"details,omitempty"`
}

func (e *ErrorEnvelope) Error() string {
	return e.Message
}

func (e *ErrorEnvelope) GetStatus() int {
	return e.status
}

func (e *ErrorEnvelope) ContentType(string) string {
	return "application/json"
}

func init() {
	huma.NewError = func(status int, message string, errs ...error) huma.StatusError {
		details := make([]string, 0, len(errs))
		for _, err := range errs {
			if err != nil {
				details = append(details, err.Error())
			}
		}
		return &ErrorEnvelope{status: status, Message: message, Details: details}
	}
}
