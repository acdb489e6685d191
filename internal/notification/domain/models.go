// Package domain contains the notification model and fan-out rules.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Type string

const (
	TypeIssueCreated       Type = "issue_created"
	TypeIssueStatusChanged Type = "issue_status_changed"
	TypeIssueAssigned      Type = "issue_assigned"
	TypeCommentAdded       Type = "comment_added"
	TypeCommentReplied     Type = "comment_replied"
	TypeReactionAdded      Type = "reaction_added"
	TypeMentioned          Type = "mentioned"
)

// Notification is one inbox row for one recipient.
type Notification struct {
	ID      snowflake.ID  `gorm:"primaryKey" json:"id,string"`
	UserID  snowflake.ID  `gorm:"not null;index" json:"userId,string"`
	ActorID *snowflake.ID `gorm:"index" json:"actorId,omitempty"`
	Type    Type          `gorm:"type:text;not null" json:"type"`

	ProjectID *snowflake.ID `gorm:"index" json:"projectId,omitempty"`
	IssueID   *snowflake.ID `gorm:"index" json:"issueId,omitempty"`
	CommentID *snowflake.ID `json:"commentId,omitempty"`

	Title string `gorm:"type:text;not null" json:"title"`
	Body  string `gorm:"type:text" json:"body,omitempty"`

	ReadAt    *time.Time `gorm:"index" json:"readAt,omitempty"`
	CreatedAt time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP;index" json:"createdAt"`
}

// TableName sets the database table name.
func (Notification) TableName() string { return "notifications" }
