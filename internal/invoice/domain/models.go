// Package domain contains persistence models for invoicing.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// InvoiceStatus represents invoice lifecycle states. Invoices are born
// saved; sent, paid, and void each stamp their own timestamp.
type InvoiceStatus string

const (
	InvoiceStatusSaved InvoiceStatus = "saved"
	InvoiceStatusSent  InvoiceStatus = "sent"
	InvoiceStatusPaid  InvoiceStatus = "paid"
	InvoiceStatusVoid  InvoiceStatus = "void"
)

func (s InvoiceStatus) Valid() bool {
	switch s {
	case InvoiceStatusSaved, InvoiceStatusSent, InvoiceStatusPaid, InvoiceStatusVoid:
		return true
	}
	return false
}

// Invoice bills a project's time entries for one period. The period end
// is exclusive; displays show the last included day.
type Invoice struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id,string"`
	Number    string       `gorm:"type:text;not null;uniqueIndex" json:"invoiceNumber"`
	CreatorID snowflake.ID `gorm:"not null;index" json:"creatorId,string"`
	ProjectID snowflake.ID `gorm:"not null;index" json:"projectId,string"`

	Status          InvoiceStatus `gorm:"type:text;not null;default:'saved';index" json:"status"`
	Currency        string        `gorm:"type:text;not null" json:"currency"`
	HourlyRateCents int64         `gorm:"not null" json:"hourlyRateCents"`
	Notes           *string       `gorm:"type:text" json:"notes,omitempty"`

	ClientName          *string `gorm:"type:text" json:"clientName,omitempty"`
	ClientLocation      *string `gorm:"type:text" json:"clientLocation,omitempty"`
	FromLocation        *string `gorm:"type:text" json:"fromLocation,omitempty"`
	PaymentInstructions *string `gorm:"type:text" json:"paymentInstructions,omitempty"`

	PeriodStart time.Time `gorm:"not null" json:"periodStart"`
	PeriodEnd   time.Time `gorm:"not null" json:"periodEnd"`

	CreatedAt time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updatedAt"`
	SentAt    *time.Time `json:"sentAt,omitempty"`
	PaidAt    *time.Time `json:"paidAt,omitempty"`
	VoidedAt  *time.Time `json:"voidedAt,omitempty"`
}

// TableName sets the database table name.
func (Invoice) TableName() string { return "invoices" }
