package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/tracklane/tracklane/internal/clock"
	invoicedomain "github.com/tracklane/tracklane/internal/invoice/domain"
	"github.com/tracklane/tracklane/internal/invoice/export"
	"github.com/tracklane/tracklane/internal/invoice/lineitem"
	"github.com/tracklane/tracklane/internal/invoice/number"
	issuedomain "github.com/tracklane/tracklane/internal/issue/domain"
	projectdomain "github.com/tracklane/tracklane/internal/project/domain"
	"github.com/tracklane/tracklane/internal/quota"
	timedomain "github.com/tracklane/tracklane/internal/timeentry/domain"
	"github.com/tracklane/tracklane/pkg/repository"
)

type ServiceParam struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	QuotaSvc   quota.Service
	ProjectSvc projectdomain.Service
	TimeSvc    timedomain.Service
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock

	invoicerepo repository.Repository[invoicedomain.Invoice]
	entryrepo   repository.Repository[timedomain.TimeEntry]

	quotaSvc   quota.Service
	projectSvc projectdomain.Service
	timeSvc    timedomain.Service
}

func NewService(p ServiceParam) invoicedomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("invoice.service"),
		genID: p.GenID,
		clock: p.Clock,

		invoicerepo: repository.ProvideStore[invoicedomain.Invoice](p.DB),
		entryrepo:   repository.ProvideStore[timedomain.TimeEntry](p.DB),

		quotaSvc:   p.QuotaSvc,
		projectSvc: p.ProjectSvc,
		timeSvc:    p.TimeSvc,
	}
}

func (s *Service) PreviewDraft(ctx context.Context, viewerID snowflake.ID, req invoicedomain.DraftRequest) (invoicedomain.Draft, error) {
	if req.PeriodEnd <= req.PeriodStart {
		return invoicedomain.Draft{}, invoicedomain.ErrInvalidPeriod
	}

	project, err := s.requireProject(ctx, viewerID, req.ProjectID)
	if err != nil {
		return invoicedomain.Draft{}, err
	}

	entries, err := s.timeSvc.ListEndedUnbilledInRange(ctx, viewerID, req.ProjectID,
		time.UnixMilli(req.PeriodStart), time.UnixMilli(req.PeriodEnd))
	if err != nil {
		return invoicedomain.Draft{}, err
	}

	items := lineitem.Build(s.snapshots(ctx, entries), req.HourlyRateCents)

	currency := req.Currency
	if currency == "" {
		currency = "USD"
	}

	return invoicedomain.Draft{
		ProjectID:       req.ProjectID,
		ProjectName:     project.Name,
		Currency:        currency,
		HourlyRateCents: req.HourlyRateCents,
		PeriodStart:     req.PeriodStart,
		PeriodEnd:       req.PeriodEnd,
		TimeEntries:     entries,
		LineItems:       items,
		Totals:          lineitem.TotalsFrom(items),
	}, nil
}

func (s *Service) FinalizeFromDraft(ctx context.Context, viewerID snowflake.ID, req invoicedomain.FinalizeRequest) (invoicedomain.Invoice, error) {
	now := s.clock.Now()

	if req.PeriodEnd <= req.PeriodStart {
		return invoicedomain.Invoice{}, invoicedomain.ErrInvalidPeriod
	}
	if _, err := s.requireProject(ctx, viewerID, req.ProjectID); err != nil {
		return invoicedomain.Invoice{}, err
	}

	currency := req.Currency
	if currency == "" {
		currency = "USD"
	}

	invoice := invoicedomain.Invoice{
		ID:              s.genID.Generate(),
		Number:          number.Generate(now),
		CreatorID:       viewerID,
		ProjectID:       req.ProjectID,
		Status:          invoicedomain.InvoiceStatusSaved,
		Currency:        currency,
		HourlyRateCents: req.HourlyRateCents,
		Notes:           optionalText(req.Notes),

		ClientName:          optionalText(req.ClientName),
		ClientLocation:      optionalText(req.ClientLocation),
		FromLocation:        optionalText(req.FromLocation),
		PaymentInstructions: optionalText(req.PaymentInstructions),

		PeriodStart: time.UnixMilli(req.PeriodStart),
		PeriodEnd:   time.UnixMilli(req.PeriodEnd),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.quotaSvc.EnforceCreation(ctx, tx, viewerID, quota.ActionInvoices); err != nil {
			return err
		}

		// Entries are validated inside the transaction so a concurrent
		// finalize cannot double-bill them.
		for _, entryID := range req.TimeEntryIDs {
			var entry timedomain.TimeEntry
			err := tx.First(&entry, "id = ?", entryID).Error
			if err != nil {
				if err == gorm.ErrRecordNotFound {
					return invoicedomain.ErrEntryUnavailable
				}
				return err
			}
			if entry.UserID != viewerID {
				return invoicedomain.ErrEntryNotOwned
			}
			if entry.ProjectID == nil || *entry.ProjectID != req.ProjectID {
				return invoicedomain.ErrEntryWrongProject
			}
			if entry.EndedAt == nil {
				return invoicedomain.ErrEntryStillRunning
			}
			if entry.InvoiceID != nil {
				return invoicedomain.ErrEntryAlreadyBilled
			}
			startedMs := entry.StartedAt.UnixMilli()
			if startedMs < req.PeriodStart || startedMs >= req.PeriodEnd {
				return invoicedomain.ErrEntryOutsidePeriod
			}
		}

		if err := s.invoicerepo.WithTrx(tx).Create(ctx, &invoice); err != nil {
			return err
		}
		return tx.Model(&timedomain.TimeEntry{}).
			Where("id IN ?", req.TimeEntryIDs).
			Update("invoice_id", invoice.ID).Error
	})
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	s.log.Info("invoice finalized",
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("invoice_number", invoice.Number),
		zap.Int("entry_count", len(req.TimeEntryIDs)),
	)
	return invoice, nil
}

func (s *Service) Update(ctx context.Context, viewerID, invoiceID snowflake.ID, req invoicedomain.UpdateRequest) (invoicedomain.Invoice, error) {
	invoice, err := s.GetByID(ctx, viewerID, invoiceID)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	now := s.clock.Now()
	patch := map[string]any{"updated_at": now}

	if req.Status != nil && *req.Status != invoice.Status {
		if !req.Status.Valid() {
			return invoicedomain.Invoice{}, invoicedomain.ErrInvalidStatus
		}
		patch["status"] = *req.Status
		switch *req.Status {
		case invoicedomain.InvoiceStatusSent:
			patch["sent_at"] = now
		case invoicedomain.InvoiceStatusPaid:
			patch["paid_at"] = now
		case invoicedomain.InvoiceStatusVoid:
			patch["voided_at"] = now
		}
	}
	if req.HourlyRateCents != nil {
		patch["hourly_rate_cents"] = *req.HourlyRateCents
	}
	if req.Notes != nil {
		patch["notes"] = optionalText(*req.Notes)
	}
	if req.ClientName != nil {
		patch["client_name"] = optionalText(*req.ClientName)
	}
	if req.ClientLocation != nil {
		patch["client_location"] = optionalText(*req.ClientLocation)
	}
	if req.FromLocation != nil {
		patch["from_location"] = optionalText(*req.FromLocation)
	}
	if req.PaymentInstructions != nil {
		patch["payment_instructions"] = optionalText(*req.PaymentInstructions)
	}

	err = s.db.WithContext(ctx).Model(&invoicedomain.Invoice{}).
		Where("id = ?", invoiceID).
		Updates(patch).Error
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	return s.GetByID(ctx, viewerID, invoiceID)
}

func (s *Service) List(ctx context.Context, viewerID snowflake.ID, req invoicedomain.ListInvoicesRequest) ([]invoicedomain.Invoice, error) {
	limit := req.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	query := s.db.WithContext(ctx).
		Where("creator_id = ?", viewerID).
		Order("created_at DESC").
		Limit(limit)
	if req.Status != nil {
		if !req.Status.Valid() {
			return nil, invoicedomain.ErrInvalidStatus
		}
		query = query.Where("status = ?", *req.Status)
	}
	if req.ProjectID != nil {
		query = query.Where("project_id = ?", *req.ProjectID)
	}

	var invoices []invoicedomain.Invoice
	if err := query.Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}

func (s *Service) GetByID(ctx context.Context, viewerID, invoiceID snowflake.ID) (invoicedomain.Invoice, error) {
	invoice, err := s.invoicerepo.FindOne(ctx, &invoicedomain.Invoice{ID: invoiceID})
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	if invoice == nil {
		return invoicedomain.Invoice{}, invoicedomain.ErrInvoiceNotFound
	}
	if invoice.CreatorID != viewerID {
		return invoicedomain.Invoice{}, invoicedomain.ErrNotAuthorized
	}
	return *invoice, nil
}

func (s *Service) ListTimeEntries(ctx context.Context, viewerID, invoiceID snowflake.ID) ([]timedomain.TimeEntry, error) {
	if _, err := s.GetByID(ctx, viewerID, invoiceID); err != nil {
		return nil, err
	}

	var entries []timedomain.TimeEntry
	err := s.db.WithContext(ctx).
		Where("invoice_id = ?", invoiceID).
		Order("started_at ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *Service) ExportCSV(ctx context.Context, viewerID, invoiceID snowflake.ID, timezone string) (export.File, error) {
	doc, err := s.document(ctx, viewerID, invoiceID, timezone)
	if err != nil {
		return export.File{}, err
	}
	return export.CSV(doc), nil
}

func (s *Service) ExportPDF(ctx context.Context, viewerID, invoiceID snowflake.ID, timezone string) (export.File, error) {
	doc, err := s.document(ctx, viewerID, invoiceID, timezone)
	if err != nil {
		return export.File{}, err
	}
	return export.PDF(doc), nil
}

// document resolves an invoice plus its entries into the fully denormalized
// form the encoders take.
func (s *Service) document(ctx context.Context, viewerID, invoiceID snowflake.ID, timezone string) (export.Document, error) {
	invoice, err := s.GetByID(ctx, viewerID, invoiceID)
	if err != nil {
		return export.Document{}, err
	}

	project, err := s.projectSvc.GetByID(ctx, invoice.ProjectID)
	if err != nil {
		return export.Document{}, err
	}

	entries, err := s.ListTimeEntries(ctx, viewerID, invoiceID)
	if err != nil {
		return export.Document{}, err
	}

	items := lineitem.Build(s.snapshots(ctx, entries), invoice.HourlyRateCents)

	return export.Document{
		InvoiceNumber:       invoice.Number,
		ProjectName:         project.Name,
		ClientName:          textOrEmpty(invoice.ClientName),
		ClientLocation:      textOrEmpty(invoice.ClientLocation),
		FromLocation:        textOrEmpty(invoice.FromLocation),
		PaymentInstructions: textOrEmpty(invoice.PaymentInstructions),
		PeriodStart:         invoice.PeriodStart.UnixMilli(),
		PeriodEnd:           invoice.PeriodEnd.UnixMilli(),
		HourlyRateCents:     invoice.HourlyRateCents,
		Currency:            invoice.Currency,
		LineItems:           items,
		Timezone:            timezone,
	}, nil
}

// snapshots converts entries for aggregation, resolving issue titles in
// one batch. Missing titles degrade to the aggregator's fallbacks.
func (s *Service) snapshots(ctx context.Context, entries []timedomain.TimeEntry) []lineitem.TimeEntrySnapshot {
	issueIDs := make([]snowflake.ID, 0, len(entries))
	seen := make(map[snowflake.ID]bool)
	for _, entry := range entries {
		if entry.IssueID != nil && !seen[*entry.IssueID] {
			seen[*entry.IssueID] = true
			issueIDs = append(issueIDs, *entry.IssueID)
		}
	}

	titles := make(map[snowflake.ID]string, len(issueIDs))
	if len(issueIDs) > 0 {
		var issues []issuedomain.Issue
		if err := s.db.WithContext(ctx).Where("id IN ?", issueIDs).Find(&issues).Error; err != nil {
			s.log.Warn("issue title lookup failed", zap.Error(err))
		}
		for _, issue := range issues {
			titles[issue.ID] = issue.Title
		}
	}

	out := make([]lineitem.TimeEntrySnapshot, len(entries))
	for i, entry := range entries {
		snap := lineitem.TimeEntrySnapshot{
			ID:        entry.ID.String(),
			StartedAt: entry.StartedAt.UnixMilli(),
		}
		if entry.IssueID != nil {
			id := entry.IssueID.String()
			snap.IssueID = &id
			if title, ok := titles[*entry.IssueID]; ok {
				snap.IssueTitle = &title
			}
		}
		if entry.Description != "" {
			desc := entry.Description
			snap.Description = &desc
		}
		if entry.EndedAt != nil {
			ended := entry.EndedAt.UnixMilli()
			snap.EndedAt = &ended
		}
		out[i] = snap
	}
	return out
}

func (s *Service) requireProject(ctx context.Context, viewerID, projectID snowflake.ID) (projectdomain.Project, error) {
	project, err := s.projectSvc.GetByID(ctx, projectID)
	if err != nil {
		return projectdomain.Project{}, err
	}
	ok, err := s.projectSvc.IsMember(ctx, projectID, viewerID)
	if err != nil {
		return projectdomain.Project{}, err
	}
	if !ok {
		return projectdomain.Project{}, projectdomain.ErrNotAuthorized
	}
	return project, nil
}

func optionalText(v string) *string {
	trimmed := strings.TrimSpace(v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func textOrEmpty(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
