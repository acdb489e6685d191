// Package domain contains persistence models for issues, comments,
// reactions, favorites, and issue links.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// IssueSource marks where an issue originated. Imported sources carry an
// external id for idempotent syncs.
type IssueSource string

const (
	SourceApp    IssueSource = "app"
	SourceGitHub IssueSource = "github"
	SourceLinear IssueSource = "linear"
)

type IssueStatus string

const (
	StatusOpen       IssueStatus = "open"
	StatusInProgress IssueStatus = "in_progress"
	StatusDone       IssueStatus = "done"
	StatusClosed     IssueStatus = "closed"
)

func (s IssueStatus) Valid() bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusDone, StatusClosed:
		return true
	}
	return false
}

type IssuePriority string

const (
	PriorityLow    IssuePriority = "low"
	PriorityMedium IssuePriority = "medium"
	PriorityHigh   IssuePriority = "high"
	PriorityUrgent IssuePriority = "urgent"
)

func (p IssuePriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// LinkType relates two issues. Related links are symmetric; blocked_by is
// directional (the issue is blocked by the other).
type LinkType string

const (
	LinkBlockedBy LinkType = "blocked_by"
	LinkRelated   LinkType = "related"
)

func (t LinkType) Valid() bool {
	return t == LinkBlockedBy || t == LinkRelated
}

// Issue is a tracked unit of work, optionally scoped to a project and
// optionally nested under a parent issue.
type Issue struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id,string"`
	Source     IssueSource  `gorm:"type:text;not null;default:'app'" json:"source"`
	ExternalID *string      `gorm:"type:text;index" json:"externalId,omitempty"`

	ProjectID     *snowflake.ID `gorm:"index" json:"projectId,omitempty"`
	ParentIssueID *snowflake.ID `gorm:"index" json:"parentIssueId,omitempty"`

	Title       string `gorm:"type:text;not null" json:"title"`
	Description string `gorm:"type:text" json:"description,omitempty"`

	Status          IssueStatus                 `gorm:"type:text;not null;default:'open';index" json:"status"`
	Priority        IssuePriority               `gorm:"type:text;not null;default:'medium'" json:"priority"`
	EstimateMinutes *int64                      `json:"estimateMinutes,omitempty"`
	Labels          datatypes.JSONSlice[string] `gorm:"type:json" json:"labels"`

	CreatorID snowflake.ID `gorm:"not null;index" json:"creatorId,string"`

	ArchivedAt     *time.Time `gorm:"index" json:"archivedAt,omitempty"`
	LastActivityAt time.Time  `gorm:"not null;index" json:"lastActivityAt"`
	CreatedAt      time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt      time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updatedAt"`

	Assignees []Assignee `gorm:"foreignKey:IssueID" json:"assignees,omitempty"`
}

// TableName sets the database table name.
func (Issue) TableName() string { return "issues" }

// Assignee is one user assigned to an issue.
type Assignee struct {
	IssueID   snowflake.ID `gorm:"primaryKey;autoIncrement:false" json:"issueId,string"`
	UserID    snowflake.ID `gorm:"primaryKey;autoIncrement:false;index" json:"userId,string"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"createdAt"`
}

// TableName sets the database table name.
func (Assignee) TableName() string { return "issue_assignees" }

// Link connects two issues. Related links are stored once per direction so
// both sides list each other.
type Link struct {
	ID           snowflake.ID `gorm:"primaryKey" json:"id,string"`
	IssueID      snowflake.ID `gorm:"not null;index:ix_issue_links_pair" json:"issueId,string"`
	OtherIssueID snowflake.ID `gorm:"not null;index:ix_issue_links_pair" json:"otherIssueId,string"`
	Type         LinkType     `gorm:"type:text;not null" json:"type"`
	CreatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"createdAt"`
}

// TableName sets the database table name.
func (Link) TableName() string { return "issue_links" }

// Favorite bookmarks an issue for one user.
type Favorite struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id,string"`
	IssueID   snowflake.ID `gorm:"not null;index;uniqueIndex:ux_issue_favorite" json:"issueId,string"`
	UserID    snowflake.ID `gorm:"not null;index;uniqueIndex:ux_issue_favorite" json:"userId,string"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"createdAt"`
}

// TableName sets the database table name.
func (Favorite) TableName() string { return "issue_favorites" }

// Comment is a threaded issue comment. Deleted comments keep their row so
// replies stay anchored.
type Comment struct {
	ID              snowflake.ID  `gorm:"primaryKey" json:"id,string"`
	IssueID         snowflake.ID  `gorm:"not null;index" json:"issueId,string"`
	ParentCommentID *snowflake.ID `gorm:"index" json:"parentCommentId,omitempty"`
	AuthorID        snowflake.ID  `gorm:"not null;index" json:"authorId,string"`
	Body            string        `gorm:"type:text;not null" json:"body"`

	EditedAt  *time.Time `json:"editedAt,omitempty"`
	DeletedAt *time.Time `json:"deletedAt,omitempty"`
	CreatedAt time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP" json:"createdAt"`
}

// TableName sets the database table name.
func (Comment) TableName() string { return "issue_comments" }

// Reaction is one user's emoji on an issue or on a comment.
type Reaction struct {
	ID        snowflake.ID  `gorm:"primaryKey" json:"id,string"`
	IssueID   snowflake.ID  `gorm:"not null;index" json:"issueId,string"`
	CommentID *snowflake.ID `gorm:"index" json:"commentId,omitempty"`
	UserID    snowflake.ID  `gorm:"not null;index" json:"userId,string"`
	Emoji     string        `gorm:"type:text;not null" json:"emoji"`
	CreatedAt time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"createdAt"`
}

// TableName sets the database table name.
func (Reaction) TableName() string { return "issue_reactions" }
