package errors

import (
	"fmt"
	"testing"
)

func TestPickError_Error(t *testing.T) {
	err := &PickError{
		Code:    ErrSubjectNotFound,
		Status:  404,
		Message: "profile not found",
	}

	expected := "SUBJECT_NOT_FOUND: profile not found"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
}

func TestNewInvalidRequest(t *testing.T) {
	err := NewInvalidRequest("subject is required")

	if err.Code != ErrInvalidRequest {
		t.Errorf("Code = %q, want %q", err.Code, ErrInvalidRequest)
	}
	if err.Status != 400 {
		t.Errorf("Status = %d, want 400", err.Status)
	}
	if err.Message != "subject is required" {
		t.Errorf("Message = %q, want %q", err.Message, "subject is required")
	}
}

func TestNewSubjectNotFound(t *testing.T) {
	cause := fmt.Errorf("provider said: User not found")
	err := NewSubjectNotFound("ghost", cause)

	if err.Code != ErrSubjectNotFound {
		t.Errorf("Code = %q, want %q", err.Code, ErrSubjectNotFound)
	}
	if err.Status != 404 {
		t.Errorf("Status = %d, want 404", err.Status)
	}
	if err.Details["subject"] != "ghost" {
		t.Errorf("Details[subject] = %v, want %q", err.Details["subject"], "ghost")
	}
	if err.Hint == "" {
		t.Error("expected a remediation hint")
	}
	if err.Unwrap() != cause {
		t.Error("Unwrap() should return the original cause")
	}
}

func TestNewNotFound(t *testing.T) {
	err := NewNotFound("01XYZ")

	if err.Code != ErrNotFound {
		t.Errorf("Code = %q, want %q", err.Code, ErrNotFound)
	}
	if err.Status != 404 {
		t.Errorf("Status = %d, want 404", err.Status)
	}
	if err.Details["id"] != "01XYZ" {
		t.Errorf("Details[id] = %v, want 01XYZ", err.Details["id"])
	}
}

func TestNewNoBaselineAvailable(t *testing.T) {
	err := NewNoBaselineAvailable("newaccount", 0.5, "01ABC")

	if err.Code != ErrNoBaselineAvailable {
		t.Errorf("Code = %q, want %q", err.Code, ErrNoBaselineAvailable)
	}
	if err.Status != 409 {
		t.Errorf("Status = %d, want 409", err.Status)
	}
	if err.Details["snapshot_id"] != "01ABC" {
		t.Errorf("Details[snapshot_id] = %v, want 01ABC", err.Details["snapshot_id"])
	}
	if err.Hint != "run again after 30 minutes to compare against this baseline" {
		t.Errorf("Hint = %q", err.Hint)
	}
}

func TestNewEmptyCandidateSet(t *testing.T) {
	err := NewEmptyCandidateSet("no new followers", "try a longer window")

	if err.Code != ErrEmptyCandidateSet {
		t.Errorf("Code = %q, want %q", err.Code, ErrEmptyCandidateSet)
	}
	if err.Status != 422 {
		t.Errorf("Status = %d, want 422", err.Status)
	}
	if err.Hint != "try a longer window" {
		t.Errorf("Hint = %q, want %q", err.Hint, "try a longer window")
	}
}

func TestNewSourceUnavailable(t *testing.T) {
	cause := fmt.Errorf("dial tcp: i/o timeout")
	err := NewSourceUnavailable("provider request timed out", cause)

	if err.Code != ErrSourceUnavailable {
		t.Errorf("Code = %q, want %q", err.Code, ErrSourceUnavailable)
	}
	if err.Status != 503 {
		t.Errorf("Status = %d, want 503", err.Status)
	}
	// Raw transport text must not leak into the user-facing message
	if err.Message != "provider request timed out" {
		t.Errorf("Message = %q", err.Message)
	}
}

func TestNewPersistence(t *testing.T) {
	err := NewPersistence("failed to save snapshot", fmt.Errorf("disk full"))

	if err.Code != ErrPersistence {
		t.Errorf("Code = %q, want %q", err.Code, ErrPersistence)
	}
	if err.Status != 500 {
		t.Errorf("Status = %d, want 500", err.Status)
	}
}

func TestNewConfig(t *testing.T) {
	err := NewConfig("api key is not configured")

	if err.Code != ErrConfig {
		t.Errorf("Code = %q, want %q", err.Code, ErrConfig)
	}
	if err.Hint == "" {
		t.Error("expected a remediation hint")
	}
}

func TestNewInternal(t *testing.T) {
	t.Run("with error", func(t *testing.T) {
		originalErr := fmt.Errorf("database connection failed")
		err := NewInternal(originalErr)

		if err.Code != ErrInternal {
			t.Errorf("Code = %q, want %q", err.Code, ErrInternal)
		}
		if err.Status != 500 {
			t.Errorf("Status = %d, want 500", err.Status)
		}
		// Message should be generic (not leak internal details)
		if err.Message != "an internal error occurred" {
			t.Errorf("Message = %q, want %q", err.Message, "an internal error occurred")
		}
		if err.Details["internal_error"] != "database connection failed" {
			t.Errorf("Details[internal_error] = %q, want %q", err.Details["internal_error"], "database connection failed")
		}
	})

	t.Run("with nil", func(t *testing.T) {
		err := NewInternal(nil)

		if err.Message != "an internal error occurred" {
			t.Errorf("Message = %q, want %q", err.Message, "an internal error occurred")
		}
		if err.Details == nil {
			t.Error("Details should not be nil")
		}
	})
}

func TestIs(t *testing.T) {
	t.Run("matching code", func(t *testing.T) {
		err := NewSubjectNotFound("test", nil)
		if !Is(err, ErrSubjectNotFound) {
			t.Error("Is() = false, want true")
		}
	})

	t.Run("non-matching code", func(t *testing.T) {
		err := NewSubjectNotFound("test", nil)
		if Is(err, ErrSourceUnavailable) {
			t.Error("Is() = true, want false")
		}
	})

	t.Run("non-PickError", func(t *testing.T) {
		err := fmt.Errorf("plain error")
		if Is(err, ErrSubjectNotFound) {
			t.Error("Is() = true, want false for non-PickError")
		}
	})

	t.Run("wrapped PickError", func(t *testing.T) {
		inner := NewSourceUnavailable("down", nil)
		wrapped := fmt.Errorf("capture baseline: %w", inner)
		if !Is(wrapped, ErrSourceUnavailable) {
			t.Error("Is() = false, want true for wrapped PickError")
		}
		if As(wrapped) != inner {
			t.Error("As() should return the wrapped PickError")
		}
	})
}

func TestFormatHours(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0.5, "30 minutes"},
		{1.0 / 60, "1 minute"},
		{1, "1 hour"},
		{2, "2 hours"},
		{2.5, "2.5 hours"},
	}
	for _, tt := range tests {
		if got := FormatHours(tt.in); got != tt.want {
			t.Errorf("FormatHours(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
