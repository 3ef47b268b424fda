package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestError_Error(t *testing.T) {
	err := &Error{Code: CodeNotFound, Status: 404, Message: "page not found"}
	if got, want := err.Error(), "NOT_FOUND: page not found"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	wrapped := NewTransport("confluence", errors.New("connection refused"))
	if got, want := wrapped.Error(), "TRANSPORT: confluence request failed: connection refused"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestFromStatus(t *testing.T) {
	tests := []struct {
		status int
		want   Code
	}{
		{404, CodeNotFound},
		{401, CodeUnauthorized},
		{403, CodeUnauthorized},
		{400, CodeValidation},
		{429, CodeUpstream},
		{502, CodeUpstream},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.status), func(t *testing.T) {
			err := FromStatus("github", tt.status, "body")
			if err.Code != tt.want {
				t.Errorf("Code = %q, want %q", err.Code, tt.want)
			}
			if err.Status != tt.status {
				t.Errorf("Status = %d, want %d", err.Status, tt.status)
			}
		})
	}
}

func TestIs_ThroughWrapping(t *testing.T) {
	err := fmt.Errorf("appending: %w", NewVersionConflict("42", 6))
	if !Is(err, CodeVersionConflict) {
		t.Error("Is should see through fmt.Errorf wrapping")
	}
	if Is(err, CodeNotFound) {
		t.Error("Is matched the wrong code")
	}
	if Is(errors.New("plain"), CodeNotFound) {
		t.Error("Is matched a plain error")
	}
}

func TestNewVersionConflict_Details(t *testing.T) {
	err := NewVersionConflict("42", 6)
	if err.Status != http.StatusConflict {
		t.Errorf("Status = %d, want 409", err.Status)
	}
	if err.Details["attempted_version"] != 6 {
		t.Errorf("attempted_version = %v, want 6", err.Details["attempted_version"])
	}
}

func TestNewConfiguration(t *testing.T) {
	err := NewConfiguration([]string{"GITHUB_TOKEN", "MODEL_API_KEY"})
	if got, want := err.Message, "missing required settings: GITHUB_TOKEN, MODEL_API_KEY"; got != want {
		t.Errorf("Message = %q, want %q", got, want)
	}
}

func TestHTTPStatus(t *testing.T) {
	if got := HTTPStatus(NewValidation("bad", nil)); got != http.StatusBadRequest {
		t.Errorf("validation -> %d, want 400", got)
	}
	if got := HTTPStatus(NewVersionConflict("1", 2)); got != http.StatusConflict {
		t.Errorf("conflict -> %d, want 409", got)
	}
	if got := HTTPStatus(errors.New("boom")); got != http.StatusInternalServerError {
		t.Errorf("plain -> %d, want 500", got)
	}
}
