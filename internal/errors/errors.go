package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a followpick error code.
type ErrorCode string

const (
	ErrInvalidRequest      ErrorCode = "INVALID_REQUEST"       // 400
	ErrSubjectNotFound     ErrorCode = "SUBJECT_NOT_FOUND"     // 404
	ErrNotFound            ErrorCode = "NOT_FOUND"             // 404
	ErrNoBaselineAvailable ErrorCode = "NO_BASELINE_AVAILABLE" // 409
	ErrEmptyCandidateSet   ErrorCode = "EMPTY_CANDIDATE_SET"   // 422
	ErrPersistence         ErrorCode = "PERSISTENCE_ERROR"     // 500
	ErrConfig              ErrorCode = "CONFIG_ERROR"          // 500
	ErrInternal            ErrorCode = "INTERNAL"              // 500
	ErrSourceUnavailable   ErrorCode = "SOURCE_UNAVAILABLE"    // 503
)

// PickError represents a classified error with code, status, and a
// remediation hint safe to show to end users.
type PickError struct {
	Code    ErrorCode
	Status  int
	Message string
	Hint    string
	Details map[string]any

	// cause is the underlying error. It may carry raw provider or driver
	// text, so it is only exposed through Unwrap for logging.
	cause error
}

// Error implements the error interface.
func (e *PickError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *PickError) Unwrap() error {
	return e.cause
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *PickError {
	return &PickError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewSubjectNotFound creates a 404 error for a missing, private or
// otherwise inaccessible profile.
func NewSubjectNotFound(subject string, cause error) *PickError {
	return &PickError{
		Code:    ErrSubjectNotFound,
		Status:  404,
		Message: fmt.Sprintf("profile %q not found or not accessible", subject),
		Hint:    "check the username; private profiles cannot be analyzed",
		Details: map[string]any{"subject": subject},
		cause:   cause,
	}
}

// NewNotFound creates a 404 error for a missing snapshot.
func NewNotFound(id string) *PickError {
	return &PickError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("snapshot %q not found", id),
		Details: map[string]any{"id": id},
	}
}

// NewNoBaselineAvailable creates a 409 error for the first orientation run
// against a subject. A baseline was captured and analysis is deferred.
func NewNoBaselineAvailable(subject string, windowHours float64, snapshotID string) *PickError {
	return &PickError{
		Code:    ErrNoBaselineAvailable,
		Status:  409,
		Message: fmt.Sprintf("no earlier snapshot for %q; a baseline was captured now", subject),
		Hint:    fmt.Sprintf("run again after %s to compare against this baseline", FormatHours(windowHours)),
		Details: map[string]any{
			"subject":      subject,
			"window_hours": windowHours,
			"snapshot_id":  snapshotID,
		},
	}
}

// NewEmptyCandidateSet creates a 422 error when there is nobody to draw from.
func NewEmptyCandidateSet(msg, hint string) *PickError {
	return &PickError{
		Code:    ErrEmptyCandidateSet,
		Status:  422,
		Message: msg,
		Hint:    hint,
	}
}

// NewSourceUnavailable creates a 503 error for provider failures: network,
// timeout, authentication, quota or an unrecognized response.
func NewSourceUnavailable(msg string, cause error) *PickError {
	return &PickError{
		Code:    ErrSourceUnavailable,
		Status:  503,
		Message: msg,
		Hint:    "the follower provider is unavailable; try again in a moment",
		cause:   cause,
	}
}

// NewPersistence creates a 500 error for snapshot store failures.
func NewPersistence(msg string, cause error) *PickError {
	return &PickError{
		Code:    ErrPersistence,
		Status:  500,
		Message: msg,
		Hint:    "check that the data directory is writable",
		cause:   cause,
	}
}

// NewConfig creates a 500 error for startup configuration problems.
func NewConfig(msg string) *PickError {
	return &PickError{
		Code:    ErrConfig,
		Status:  500,
		Message: msg,
		Hint:    "set FOLLOWPICK_API_KEY (or RAPIDAPI_KEY) in the environment or .env",
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
// The message stays generic; the original error goes to Details for logging.
func NewInternal(err error) *PickError {
	details := map[string]any{}
	if err != nil {
		details["internal_error"] = err.Error()
	}
	return &PickError{
		Code:    ErrInternal,
		Status:  500,
		Message: "an internal error occurred",
		Details: details,
		cause:   err,
	}
}

// Is checks if err (or anything it wraps) is a PickError with the given code.
func Is(err error, code ErrorCode) bool {
	var pErr *PickError
	if stderrors.As(err, &pErr) {
		return pErr.Code == code
	}
	return false
}

// As returns the PickError in err's chain, or nil.
func As(err error) *PickError {
	var pErr *PickError
	if stderrors.As(err, &pErr) {
		return pErr
	}
	return nil
}

// FormatHours renders a window like "30 minutes", "1 hour" or "2.5 hours".
func FormatHours(h float64) string {
	if h < 1 {
		m := int(h*60 + 0.5)
		if m == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", m)
	}
	if h == 1 {
		return "1 hour"
	}
	if h == float64(int(h)) {
		return fmt.Sprintf("%d hours", int(h))
	}
	return fmt.Sprintf("%.1f hours", h)
}
