package server

import (
	"net/http"
	"testing"

	"gorm.io/gorm"

	invoicedomain "github.com/tracklane/tracklane/internal/invoice/domain"
	issuedomain "github.com/tracklane/tracklane/internal/issue/domain"
	"github.com/tracklane/tracklane/internal/quota"
	userdomain "github.com/tracklane/tracklane/internal/user/domain"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
	}{
		{"nil", nil, http.StatusInternalServerError, "internal_error"},
		{"validation", newValidationError("id", "invalid_id", "invalid id"), http.StatusBadRequest, "validation_error"},
		{"invalid status", issuedomain.ErrInvalidStatus, http.StatusBadRequest, "validation_error"},
		{"unauthorized", ErrUnauthorized, http.StatusUnauthorized, "unauthorized"},
		{"forbidden", invoicedomain.ErrNotAuthorized, http.StatusForbidden, "forbidden"},
		{"conflict", userdomain.ErrUsernameTaken, http.StatusConflict, "conflict"},
		{"stale draft", invoicedomain.ErrEntryAlreadyBilled, http.StatusConflict, "conflict"},
		{"not found", issuedomain.ErrIssueNotFound, http.StatusNotFound, "not_found"},
		{"record not found", gorm.ErrRecordNotFound, http.StatusNotFound, "not_found"},
		{"unknown", gorm.ErrInvalidDB, http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, payload := mapError(tt.err)
			if status != tt.wantStatus {
				t.Fatalf("mapError(%v) status = %d, want %d", tt.err, status, tt.wantStatus)
			}
			if payload.Type != tt.wantType {
				t.Fatalf("mapError(%v) type = %q, want %q", tt.err, payload.Type, tt.wantType)
			}
		})
	}
}

func TestMapErrorQuotaLimit(t *testing.T) {
	err := &quota.LimitError{Action: quota.ActionProjects, Tier: userdomain.PlanFree, Limit: 5}
	status, payload := mapError(err)
	if status != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want %d", status, http.StatusTooManyRequests)
	}
	if payload.Message != err.Error() {
		t.Fatalf("message = %q, want the limit error verbatim", payload.Message)
	}
}

func TestMapErrorEchoesDraftConflictMessage(t *testing.T) {
	_, payload := mapError(invoicedomain.ErrEntryStillRunning)
	if payload.Message != invoicedomain.ErrEntryStillRunning.Error() {
		t.Fatalf("conflict message = %q, want it echoed verbatim", payload.Message)
	}
}
