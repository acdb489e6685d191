// Package domain contains persistence models for user accounts.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// PlanTier gates lifetime creation quotas.
type PlanTier string

const (
	PlanFree PlanTier = "free"
	PlanPro  PlanTier = "pro"
)

// Valid reports whether the tier is a known value. Unknown tiers are
// treated as free by quota enforcement.
func (p PlanTier) Valid() bool {
	return p == PlanFree || p == PlanPro
}

// User is an account row. The lifetime creation counters never decrease;
// deleting a project or invoice does not refund quota.
type User struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id,string"`
	Username    string       `gorm:"type:text;not null;uniqueIndex" json:"username"`
	Email       string       `gorm:"type:text;not null;uniqueIndex" json:"email"`
	DisplayName string       `gorm:"type:text;not null" json:"displayName"`
	PictureURL  string       `gorm:"type:text" json:"pictureUrl,omitempty"`
	PlanTier    PlanTier     `gorm:"type:text;not null;default:'free'" json:"planTier"`

	ProjectCreateCount int64 `gorm:"not null;default:0" json:"projectCreateCount"`
	IssueCreateCount   int64 `gorm:"not null;default:0" json:"issueCreateCount"`
	InvoiceCreateCount int64 `gorm:"not null;default:0" json:"invoiceCreateCount"`

	LastSeenAt *time.Time `json:"lastSeenAt,omitempty"`
	CreatedAt  time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt  time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updatedAt"`
}

// TableName sets the database table name.
func (User) TableName() string { return "users" }
