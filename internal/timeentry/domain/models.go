// Package domain contains the time entry model and service contract.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// TimeEntry is one tracked work interval. A nil EndedAt marks a running
// timer; a set InvoiceID marks the entry as billed.
type TimeEntry struct {
	ID     snowflake.ID `gorm:"primaryKey" json:"id,string"`
	UserID snowflake.ID `gorm:"not null;index" json:"userId,string"`

	IssueID   *snowflake.ID `gorm:"index" json:"issueId,omitempty"`
	ProjectID *snowflake.ID `gorm:"index" json:"projectId,omitempty"`

	Description string `gorm:"type:text" json:"description,omitempty"`

	StartedAt time.Time  `gorm:"not null;index" json:"startedAt"`
	EndedAt   *time.Time `json:"endedAt,omitempty"`

	InvoiceID *snowflake.ID `gorm:"index" json:"invoiceId,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updatedAt"`
}

// TableName sets the database table name.
func (TimeEntry) TableName() string { return "time_entries" }

// Running reports whether the entry's timer is still open.
func (e TimeEntry) Running() bool { return e.EndedAt == nil }

// DurationMs returns the tracked span in milliseconds. Running entries
// report zero, and clock skew never produces a negative span.
func (e TimeEntry) DurationMs() int64 {
	if e.EndedAt == nil {
		return 0
	}
	ms := e.EndedAt.UnixMilli() - e.StartedAt.UnixMilli()
	if ms < 0 {
		return 0
	}
	return ms
}
