package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

type StartTimerRequest struct {
	IssueID     *snowflake.ID `json:"issueId,string,omitempty"`
	ProjectID   *snowflake.ID `json:"projectId,string,omitempty"`
	Description string        `json:"description" binding:"max=1000"`
}

type ListEntriesRequest struct {
	IssueID   *snowflake.ID
	ProjectID *snowflake.ID
	Limit     int
}

type Service interface {
	// Start opens a timer for the viewer, stopping any timers already
	// running so at most one entry is open per user.
	Start(ctx context.Context, viewerID snowflake.ID, req StartTimerRequest) (TimeEntry, error)

	// Stop closes the entry with entryID, or the viewer's running timer
	// when entryID is nil. Stopping an already-ended entry is a no-op;
	// stopping with no running timer returns nil.
	Stop(ctx context.Context, viewerID snowflake.ID, entryID *snowflake.ID) (*TimeEntry, error)

	GetActive(ctx context.Context, viewerID snowflake.ID) (*TimeEntry, error)
	ListForViewer(ctx context.Context, viewerID snowflake.ID, req ListEntriesRequest) ([]TimeEntry, error)

	// ListEndedUnbilledInRange returns the viewer's ended, uninvoiced
	// entries for the project whose start falls in [start, end), oldest
	// first.
	ListEndedUnbilledInRange(ctx context.Context, viewerID, projectID snowflake.ID, start, end time.Time) ([]TimeEntry, error)
}

var (
	ErrTimeEntryNotFound = errors.New("time_entry_not_found")
	ErrNotAuthorized     = errors.New("time_entry_not_authorized")
)
