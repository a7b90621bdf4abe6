package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// APIError represents a structured error response from the worktrail API.
type APIError struct {
	StatusCode int             `json:"-"`
	Code       string          `json:"code"`
	Message    string          `json:"message"`
	RequestID  string          `json:"request_id,omitempty"`
	Details    json.RawMessage `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("worktrail: %d %s: %s (request_id=%s)", e.StatusCode, e.Code, e.Message, e.RequestID)
	}
	return fmt.Sprintf("worktrail: %d %s: %s", e.StatusCode, e.Code, e.Message)
}

// TransitionDetails describes a rejected status move.
type TransitionDetails struct {
	From    string   `json:"from"`
	To      string   `json:"to"`
	Allowed []string `json:"allowed"`
}

// Transition decodes the details of an invalid_transition error. ok is false
// for any other error.
func (e *APIError) Transition() (TransitionDetails, bool) {
	var d TransitionDetails
	if e.Code != "invalid_transition" || len(e.Details) == 0 {
		return d, false
	}
	if err := json.Unmarshal(e.Details, &d); err != nil {
		return d, false
	}
	return d, true
}

func statusOf(err error) int {
	var e *APIError
	if errors.As(err, &e) {
		return e.StatusCode
	}
	return 0
}

func codeOf(err error) string {
	var e *APIError
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsNotFound returns true if the error is a 404 not found.
func IsNotFound(err error) bool { return statusOf(err) == http.StatusNotFound }

// IsValidation returns true if the server rejected the request body.
func IsValidation(err error) bool { return statusOf(err) == http.StatusBadRequest }

// IsInvalidTransition returns true if a status move is not allowed from the
// item's current status.
func IsInvalidTransition(err error) bool { return codeOf(err) == "invalid_transition" }

// IsVersionConflict returns true if the item changed since it was read.
func IsVersionConflict(err error) bool { return codeOf(err) == "version_conflict" }

// IsRateLimited returns true if the error is a 429 rate limit.
func IsRateLimited(err error) bool { return statusOf(err) == http.StatusTooManyRequests }

// parseAPIError attempts to decode a JSON error body; falls back to raw text.
func parseAPIError(statusCode int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: statusCode}
	if err := json.Unmarshal(body, apiErr); err != nil || apiErr.Code == "" {
		apiErr.Code = "unknown"
		apiErr.Message = string(body)
	}
	return apiErr
}
