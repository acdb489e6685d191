package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"

	"github.com/tracklane/tracklane/internal/invoice/export"
	"github.com/tracklane/tracklane/internal/invoice/lineitem"
	timedomain "github.com/tracklane/tracklane/internal/timeentry/domain"
)

// DraftRequest previews an invoice over the viewer's unbilled entries in
// [PeriodStart, PeriodEnd) without persisting anything.
type DraftRequest struct {
	ProjectID       snowflake.ID `json:"projectId,string" binding:"required"`
	PeriodStart     int64        `json:"periodStart" binding:"required"`
	PeriodEnd       int64        `json:"periodEnd" binding:"required"`
	HourlyRateCents int64        `json:"hourlyRateCents" binding:"required,min=0"`
	Currency        string       `json:"currency"`
}

type Draft struct {
	ProjectID       snowflake.ID           `json:"projectId,string"`
	ProjectName     string                 `json:"projectName"`
	Currency        string                 `json:"currency"`
	HourlyRateCents int64                  `json:"hourlyRateCents"`
	PeriodStart     int64                  `json:"periodStart"`
	PeriodEnd       int64                  `json:"periodEnd"`
	TimeEntries     []timedomain.TimeEntry `json:"timeEntries"`
	LineItems       []lineitem.LineItem    `json:"lineItems"`
	Totals          lineitem.Totals        `json:"totals"`
}

// FinalizeRequest turns a draft into a stored invoice, claiming the named
// time entries.
type FinalizeRequest struct {
	ProjectID       snowflake.ID   `json:"projectId,string" binding:"required"`
	TimeEntryIDs    []snowflake.ID `json:"timeEntryIds" binding:"required,min=1"`
	PeriodStart     int64          `json:"periodStart" binding:"required"`
	PeriodEnd       int64          `json:"periodEnd" binding:"required"`
	HourlyRateCents int64          `json:"hourlyRateCents" binding:"required,min=0"`
	Currency        string         `json:"currency"`
	Notes           string         `json:"notes" binding:"max=5000"`

	ClientName          string `json:"clientName" binding:"max=200"`
	ClientLocation      string `json:"clientLocation" binding:"max=1000"`
	FromLocation        string `json:"fromLocation" binding:"max=1000"`
	PaymentInstructions string `json:"paymentInstructions" binding:"max=2000"`
}

// UpdateRequest patches an invoice. Nil fields are left untouched; an
// empty string clears the matching nullable column.
type UpdateRequest struct {
	Status          *InvoiceStatus `json:"status,omitempty"`
	HourlyRateCents *int64         `json:"hourlyRateCents,omitempty"`
	Notes           *string        `json:"notes,omitempty"`

	ClientName          *string `json:"clientName,omitempty"`
	ClientLocation      *string `json:"clientLocation,omitempty"`
	FromLocation        *string `json:"fromLocation,omitempty"`
	PaymentInstructions *string `json:"paymentInstructions,omitempty"`
}

type ListInvoicesRequest struct {
	Status    *InvoiceStatus
	ProjectID *snowflake.ID
	Limit     int
}

type Service interface {
	PreviewDraft(ctx context.Context, viewerID snowflake.ID, req DraftRequest) (Draft, error)
	FinalizeFromDraft(ctx context.Context, viewerID snowflake.ID, req FinalizeRequest) (Invoice, error)
	Update(ctx context.Context, viewerID, invoiceID snowflake.ID, req UpdateRequest) (Invoice, error)
	List(ctx context.Context, viewerID snowflake.ID, req ListInvoicesRequest) ([]Invoice, error)
	GetByID(ctx context.Context, viewerID, invoiceID snowflake.ID) (Invoice, error)
	ListTimeEntries(ctx context.Context, viewerID, invoiceID snowflake.ID) ([]timedomain.TimeEntry, error)

	ExportCSV(ctx context.Context, viewerID, invoiceID snowflake.ID, timezone string) (export.File, error)
	ExportPDF(ctx context.Context, viewerID, invoiceID snowflake.ID, timezone string) (export.File, error)
}

// PeriodMs converts an invoice period boundary back to unix milliseconds.
func PeriodMs(t time.Time) int64 { return t.UnixMilli() }

var (
	ErrInvoiceNotFound = errors.New("invoice_not_found")
	ErrNotAuthorized   = errors.New("invoice_not_authorized")
	ErrInvalidPeriod   = errors.New("invalid invoice period")
	ErrInvalidStatus   = errors.New("invalid_invoice_status")

	ErrEntryUnavailable   = errors.New("some entries are no longer available; refresh the draft")
	ErrEntryNotOwned      = errors.New("not authorized to invoice these entries")
	ErrEntryWrongProject  = errors.New("some entries no longer match the selected project; refresh the draft")
	ErrEntryStillRunning  = errors.New("some entries are still running; stop timers and refresh the draft")
	ErrEntryAlreadyBilled = errors.New("some entries are already billed; refresh the draft")
	ErrEntryOutsidePeriod = errors.New("some entries are outside the invoice period; refresh the draft")
)
