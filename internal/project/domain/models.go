// Package domain contains persistence models for projects.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Project groups issues, time entries, and invoices for one client or
// effort. Membership gates issue mentions and invoicing.
type Project struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id,string"`
	Name        string       `gorm:"type:text;not null" json:"name"`
	Description string       `gorm:"type:text" json:"description,omitempty"`
	Color       string       `gorm:"type:text" json:"color,omitempty"`
	CreatorID   snowflake.ID `gorm:"not null;index" json:"creatorId,string"`

	ArchivedAt     *time.Time `gorm:"index" json:"archivedAt,omitempty"`
	LastActivityAt time.Time  `gorm:"not null;index" json:"lastActivityAt"`
	CreatedAt      time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt      time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updatedAt"`

	Members []Member `gorm:"foreignKey:ProjectID" json:"members,omitempty"`
}

// TableName sets the database table name.
func (Project) TableName() string { return "projects" }

// Member is one user's membership in a project. The creator is always a
// member and cannot be removed.
type Member struct {
	ProjectID snowflake.ID `gorm:"primaryKey;autoIncrement:false" json:"projectId,string"`
	UserID    snowflake.ID `gorm:"primaryKey;autoIncrement:false;index" json:"userId,string"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"createdAt"`
}

// TableName sets the database table name.
func (Member) TableName() string { return "project_members" }
