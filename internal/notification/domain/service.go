package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type ListRequest struct {
	UnreadOnly bool
	ProjectID  *snowflake.ID
	Limit      int
}

type MarkAllReadResponse struct {
	UpdatedCount int64 `json:"updatedCount"`
}

type Service interface {
	// CreateAll persists a batch of notifications from one event.
	CreateAll(ctx context.Context, notifications []Notification) error
	List(ctx context.Context, viewerID snowflake.ID, req ListRequest) ([]Notification, error)
	UnreadCount(ctx context.Context, viewerID snowflake.ID) (int64, error)
	// MarkRead is idempotent; re-reading a read notification is a no-op.
	MarkRead(ctx context.Context, viewerID, notificationID snowflake.ID) error
	MarkAllRead(ctx context.Context, viewerID snowflake.ID, projectID *snowflake.ID) (MarkAllReadResponse, error)
}

var (
	ErrNotificationNotFound = errors.New("notification_not_found")
	ErrNotAuthorized        = errors.New("notification_not_authorized")
)
