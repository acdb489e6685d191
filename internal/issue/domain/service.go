package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type CreateIssueRequest struct {
	ProjectID       *snowflake.ID `json:"projectId,string,omitempty"`
	ParentIssueID   *snowflake.ID `json:"parentIssueId,string,omitempty"`
	Title           string        `json:"title" binding:"required,min=1,max=200"`
	Description     string        `json:"description" binding:"max=50000"`
	EstimateMinutes *int64        `json:"estimateMinutes" binding:"omitempty,min=0"`
	Priority        IssuePriority `json:"priority"`
	Labels          []string      `json:"labels"`
}

type ListIssuesRequest struct {
	ProjectID       *snowflake.ID
	ParentIssueID   *snowflake.ID
	Status          *IssueStatus
	IncludeArchived bool
	Limit           int
}

type AddCommentRequest struct {
	ParentCommentID *snowflake.ID `json:"parentCommentId,string,omitempty"`
	Body            string        `json:"body" binding:"required,min=1,max=50000"`
}

type ToggleReactionRequest struct {
	CommentID *snowflake.ID `json:"commentId,string,omitempty"`
	Emoji     string        `json:"emoji" binding:"required,min=1,max=32"`
}

type ToggleResult struct {
	Added bool `json:"added"`
}

type Service interface {
	Create(ctx context.Context, viewerID snowflake.ID, req CreateIssueRequest) (Issue, error)
	List(ctx context.Context, req ListIssuesRequest) ([]Issue, error)
	GetByID(ctx context.Context, id snowflake.ID) (Issue, error)
	SetStatus(ctx context.Context, viewerID, issueID snowflake.ID, status IssueStatus) error
	SetAssignees(ctx context.Context, viewerID, issueID snowflake.ID, assigneeIDs []snowflake.ID) error
	SetLabels(ctx context.Context, viewerID, issueID snowflake.ID, labels []string) (Issue, error)

	ToggleFavorite(ctx context.Context, viewerID, issueID snowflake.ID) (ToggleResult, error)
	ListFavorites(ctx context.Context, viewerID snowflake.ID, limit int) ([]Issue, error)
	ToggleLink(ctx context.Context, viewerID, issueID, otherIssueID snowflake.ID, linkType LinkType) (ToggleResult, error)

	AddComment(ctx context.Context, viewerID, issueID snowflake.ID, req AddCommentRequest) (Comment, error)
	ListComments(ctx context.Context, issueID snowflake.ID, parentCommentID *snowflake.ID, limit int) ([]Comment, error)
	ListCommentsFlat(ctx context.Context, issueID snowflake.ID, limit int) ([]Comment, error)
	ToggleReaction(ctx context.Context, viewerID, issueID snowflake.ID, req ToggleReactionRequest) (ToggleResult, error)
	ListReactions(ctx context.Context, issueID snowflake.ID) ([]Reaction, error)
}

var (
	ErrIssueNotFound       = errors.New("issue_not_found")
	ErrParentIssueNotFound = errors.New("parent_issue_not_found")
	ErrCommentNotFound     = errors.New("comment_not_found")
	ErrProjectMismatch     = errors.New("sub_issue_project_mismatch")
	ErrSelfLink            = errors.New("cannot_link_issue_to_itself")
	ErrInvalidStatus       = errors.New("invalid_issue_status")
	ErrInvalidPriority     = errors.New("invalid_issue_priority")
	ErrInvalidLinkType     = errors.New("invalid_issue_link_type")
	ErrTooManyAssignees    = errors.New("too_many_assignees")
)
