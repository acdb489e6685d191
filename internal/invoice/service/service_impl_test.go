package service

import (
	"context"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/tracklane/tracklane/internal/clock"
	invoicedomain "github.com/tracklane/tracklane/internal/invoice/domain"
	issuedomain "github.com/tracklane/tracklane/internal/issue/domain"
	issueservice "github.com/tracklane/tracklane/internal/issue/service"
	"github.com/tracklane/tracklane/internal/migration"
	notificationservice "github.com/tracklane/tracklane/internal/notification/service"
	projectdomain "github.com/tracklane/tracklane/internal/project/domain"
	projectservice "github.com/tracklane/tracklane/internal/project/service"
	"github.com/tracklane/tracklane/internal/quota"
	timedomain "github.com/tracklane/tracklane/internal/timeentry/domain"
	timeservice "github.com/tracklane/tracklane/internal/timeentry/service"
	userdomain "github.com/tracklane/tracklane/internal/user/domain"
)

type invoiceFixture struct {
	svc        invoicedomain.Service
	timeSvc    timedomain.Service
	issueSvc   issuedomain.Service
	projectSvc projectdomain.Service
	db         *gorm.DB
	node       *snowflake.Node
	clock      *clock.FakeClock
}

func newInvoiceFixture(t *testing.T) *invoiceFixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:" + t.Name() + "?mode=memory&cache=shared"), &gorm.Config{})
	assert.NoError(t, err)
	assert.NoError(t, db.AutoMigrate(migration.Models()...))

	node, err := snowflake.NewNode(1)
	assert.NoError(t, err)
	fake := clock.NewFakeClock(time.Date(2024, 3, 11, 9, 0, 0, 0, time.UTC))
	log := zap.NewNop()

	quotaSvc := quota.NewService(quota.ServiceParam{DB: db, Log: log})
	projectSvc := projectservice.NewService(projectservice.ServiceParam{
		DB: db, Log: log, GenID: node, Clock: fake, QuotaSvc: quotaSvc,
	})
	notifSvc := notificationservice.NewService(notificationservice.ServiceParam{
		DB: db, Log: log, GenID: node, Clock: fake,
	})
	issueSvc := issueservice.NewService(issueservice.ServiceParam{
		DB: db, Log: log, GenID: node, Clock: fake,
		QuotaSvc: quotaSvc, ProjectSvc: projectSvc, NotifSvc: notifSvc,
	})
	timeSvc := timeservice.NewService(timeservice.ServiceParam{
		DB: db, Log: log, GenID: node, Clock: fake,
		IssueSvc: issueSvc, ProjectSvc: projectSvc,
	})
	svc := NewService(ServiceParam{
		DB: db, Log: log, GenID: node, Clock: fake,
		QuotaSvc: quotaSvc, ProjectSvc: projectSvc, TimeSvc: timeSvc,
	})

	return &invoiceFixture{
		svc:        svc,
		timeSvc:    timeSvc,
		issueSvc:   issueSvc,
		projectSvc: projectSvc,
		db:         db,
		node:       node,
		clock:      fake,
	}
}

func (f *invoiceFixture) seedUser(t *testing.T) userdomain.User {
	t.Helper()
	id := f.node.Generate()
	user := userdomain.User{
		ID:          id,
		Username:    "v" + id.String(),
		Email:       "v" + id.String() + "@example.com",
		DisplayName: "Invoice " + id.String(),
		PlanTier:    userdomain.PlanFree,
	}
	assert.NoError(t, f.db.Create(&user).Error)
	return user
}

// trackHour runs a one hour timer against the project and returns the
// ended entry.
func (f *invoiceFixture) trackHour(t *testing.T, userID, projectID snowflake.ID, description string) timedomain.TimeEntry {
	t.Helper()
	ctx := context.Background()
	_, err := f.timeSvc.Start(ctx, userID, timedomain.StartTimerRequest{
		ProjectID:   &projectID,
		Description: description,
	})
	assert.NoError(t, err)
	f.clock.Advance(time.Hour)
	stopped, err := f.timeSvc.Stop(ctx, userID, nil)
	assert.NoError(t, err)
	assert.NotNil(t, stopped)
	return *stopped
}

func (f *invoiceFixture) period(start time.Time, days int) (int64, int64) {
	return start.UnixMilli(), start.AddDate(0, 0, days).UnixMilli()
}

func TestPreviewDraft(t *testing.T) {
	f := newInvoiceFixture(t)
	ctx := context.Background()
	user := f.seedUser(t)

	project, err := f.projectSvc.Create(ctx, user.ID, projectdomain.CreateProjectRequest{Name: "Acme"})
	assert.NoError(t, err)

	periodStart, periodEnd := f.period(f.clock.Now().Add(-time.Hour), 7)
	f.trackHour(t, user.ID, project.ID, "design work")

	draft, err := f.svc.PreviewDraft(ctx, user.ID, invoicedomain.DraftRequest{
		ProjectID:       project.ID,
		PeriodStart:     periodStart,
		PeriodEnd:       periodEnd,
		HourlyRateCents: 10000,
	})
	assert.NoError(t, err)
	assert.Equal(t, "Acme", draft.ProjectName)
	assert.Equal(t, "USD", draft.Currency)
	assert.Len(t, draft.TimeEntries, 1)
	assert.Len(t, draft.LineItems, 1)
	assert.Equal(t, int64(10000), draft.Totals.TotalAmountCents)

	_, err = f.svc.PreviewDraft(ctx, user.ID, invoicedomain.DraftRequest{
		ProjectID:       project.ID,
		PeriodStart:     periodEnd,
		PeriodEnd:       periodStart,
		HourlyRateCents: 10000,
	})
	assert.ErrorIs(t, err, invoicedomain.ErrInvalidPeriod)
}

func TestPreviewDraftRequiresMembership(t *testing.T) {
	f := newInvoiceFixture(t)
	ctx := context.Background()
	owner := f.seedUser(t)
	outsider := f.seedUser(t)

	project, err := f.projectSvc.Create(ctx, owner.ID, projectdomain.CreateProjectRequest{Name: "walled"})
	assert.NoError(t, err)

	periodStart, periodEnd := f.period(f.clock.Now(), 7)
	_, err = f.svc.PreviewDraft(ctx, outsider.ID, invoicedomain.DraftRequest{
		ProjectID:       project.ID,
		PeriodStart:     periodStart,
		PeriodEnd:       periodEnd,
		HourlyRateCents: 5000,
	})
	assert.ErrorIs(t, err, projectdomain.ErrNotAuthorized)
}

func TestFinalizeClaimsEntries(t *testing.T) {
	f := newInvoiceFixture(t)
	ctx := context.Background()
	user := f.seedUser(t)

	project, err := f.projectSvc.Create(ctx, user.ID, projectdomain.CreateProjectRequest{Name: "Billable"})
	assert.NoError(t, err)

	periodStart, periodEnd := f.period(f.clock.Now().Add(-time.Hour), 7)
	entry := f.trackHour(t, user.ID, project.ID, "build")

	invoice, err := f.svc.FinalizeFromDraft(ctx, user.ID, invoicedomain.FinalizeRequest{
		ProjectID:       project.ID,
		TimeEntryIDs:    []snowflake.ID{entry.ID},
		PeriodStart:     periodStart,
		PeriodEnd:       periodEnd,
		HourlyRateCents: 12500,
		Notes:           "net 30",
		ClientName:      "Acme Corp",
	})
	assert.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^INV-\d{8}-[0-9A-Z]{4}$`), invoice.Number)
	assert.Equal(t, invoicedomain.InvoiceStatusSaved, invoice.Status)
	assert.NotNil(t, invoice.Notes)
	assert.Equal(t, "net 30", *invoice.Notes)

	var claimed timedomain.TimeEntry
	assert.NoError(t, f.db.First(&claimed, "id = ?", entry.ID).Error)
	assert.NotNil(t, claimed.InvoiceID)
	assert.Equal(t, invoice.ID, *claimed.InvoiceID)

	// A fresh draft over the same period has nothing left to bill.
	draft, err := f.svc.PreviewDraft(ctx, user.ID, invoicedomain.DraftRequest{
		ProjectID:       project.ID,
		PeriodStart:     periodStart,
		PeriodEnd:       periodEnd,
		HourlyRateCents: 12500,
	})
	assert.NoError(t, err)
	assert.Len(t, draft.TimeEntries, 0)

	entries, err := f.svc.ListTimeEntries(ctx, user.ID, invoice.ID)
	assert.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestFinalizeValidatesEntries(t *testing.T) {
	f := newInvoiceFixture(t)
	ctx := context.Background()
	user := f.seedUser(t)
	other := f.seedUser(t)

	project, err := f.projectSvc.Create(ctx, user.ID, projectdomain.CreateProjectRequest{Name: "strict"})
	assert.NoError(t, err)
	otherProject, err := f.projectSvc.Create(ctx, user.ID, projectdomain.CreateProjectRequest{Name: "elsewhere"})
	assert.NoError(t, err)

	periodStart, periodEnd := f.period(f.clock.Now().Add(-time.Hour), 30)

	base := invoicedomain.FinalizeRequest{
		ProjectID:       project.ID,
		PeriodStart:     periodStart,
		PeriodEnd:       periodEnd,
		HourlyRateCents: 10000,
	}

	finalize := func(ids ...snowflake.ID) error {
		req := base
		req.TimeEntryIDs = ids
		_, err := f.svc.FinalizeFromDraft(ctx, user.ID, req)
		return err
	}

	// Vanished entry.
	assert.ErrorIs(t, finalize(f.node.Generate()), invoicedomain.ErrEntryUnavailable)

	// Someone else's entry.
	_, err = f.projectSvc.AddMember(ctx, user.ID, project.ID, projectdomain.AddMemberRequest{Identifier: other.Email})
	assert.NoError(t, err)
	theirs := f.trackHour(t, other.ID, project.ID, "their work")
	assert.ErrorIs(t, finalize(theirs.ID), invoicedomain.ErrEntryNotOwned)

	// Entry billed against the wrong project.
	elsewhere := f.trackHour(t, user.ID, otherProject.ID, "misc")
	assert.ErrorIs(t, finalize(elsewhere.ID), invoicedomain.ErrEntryWrongProject)

	// Running timer.
	running, err := f.timeSvc.Start(ctx, user.ID, timedomain.StartTimerRequest{ProjectID: &project.ID})
	assert.NoError(t, err)
	assert.ErrorIs(t, finalize(running.ID), invoicedomain.ErrEntryStillRunning)
	_, err = f.timeSvc.Stop(ctx, user.ID, nil)
	assert.NoError(t, err)

	// Entry outside the period.
	early := f.trackHour(t, user.ID, project.ID, "too old")
	req := base
	req.TimeEntryIDs = []snowflake.ID{early.ID}
	req.PeriodStart = f.clock.Now().Add(time.Hour).UnixMilli()
	req.PeriodEnd = f.clock.Now().Add(48 * time.Hour).UnixMilli()
	_, err = f.svc.FinalizeFromDraft(ctx, user.ID, req)
	assert.ErrorIs(t, err, invoicedomain.ErrEntryOutsidePeriod)

	// Already billed.
	good := f.trackHour(t, user.ID, project.ID, "billable")
	_, err = f.svc.FinalizeFromDraft(ctx, user.ID, invoicedomain.FinalizeRequest{
		ProjectID:       project.ID,
		TimeEntryIDs:    []snowflake.ID{good.ID},
		PeriodStart:     periodStart,
		PeriodEnd:       periodEnd,
		HourlyRateCents: 10000,
	})
	assert.NoError(t, err)
	assert.ErrorIs(t, finalize(good.ID), invoicedomain.ErrEntryAlreadyBilled)

	// Failed finalizes must not leave partial claims behind.
	var unclaimed timedomain.TimeEntry
	assert.NoError(t, f.db.First(&unclaimed, "id = ?", theirs.ID).Error)
	assert.Nil(t, unclaimed.InvoiceID)
}

func TestUpdateStampsStatusTransitions(t *testing.T) {
	f := newInvoiceFixture(t)
	ctx := context.Background()
	user := f.seedUser(t)

	project, err := f.projectSvc.Create(ctx, user.ID, projectdomain.CreateProjectRequest{Name: "stamps"})
	assert.NoError(t, err)
	periodStart, periodEnd := f.period(f.clock.Now().Add(-time.Hour), 7)
	entry := f.trackHour(t, user.ID, project.ID, "work")

	invoice, err := f.svc.FinalizeFromDraft(ctx, user.ID, invoicedomain.FinalizeRequest{
		ProjectID:       project.ID,
		TimeEntryIDs:    []snowflake.ID{entry.ID},
		PeriodStart:     periodStart,
		PeriodEnd:       periodEnd,
		HourlyRateCents: 10000,
	})
	assert.NoError(t, err)
	assert.Nil(t, invoice.SentAt)

	f.clock.Advance(time.Hour)
	sent := invoicedomain.InvoiceStatusSent
	updated, err := f.svc.Update(ctx, user.ID, invoice.ID, invoicedomain.UpdateRequest{Status: &sent})
	assert.NoError(t, err)
	assert.Equal(t, sent, updated.Status)
	assert.NotNil(t, updated.SentAt)
	assert.Equal(t, f.clock.Now().Unix(), updated.SentAt.UTC().Unix())

	f.clock.Advance(time.Hour)
	paid := invoicedomain.InvoiceStatusPaid
	updated, err = f.svc.Update(ctx, user.ID, invoice.ID, invoicedomain.UpdateRequest{Status: &paid})
	assert.NoError(t, err)
	assert.NotNil(t, updated.PaidAt)

	bogus := invoicedomain.InvoiceStatus("shredded")
	_, err = f.svc.Update(ctx, user.ID, invoice.ID, invoicedomain.UpdateRequest{Status: &bogus})
	assert.ErrorIs(t, err, invoicedomain.ErrInvalidStatus)

	// Clearing notes via empty string.
	empty := ""
	updated, err = f.svc.Update(ctx, user.ID, invoice.ID, invoicedomain.UpdateRequest{Notes: &empty})
	assert.NoError(t, err)
	assert.Nil(t, updated.Notes)
}

func TestInvoiceAccessIsCreatorOnly(t *testing.T) {
	f := newInvoiceFixture(t)
	ctx := context.Background()
	user := f.seedUser(t)
	stranger := f.seedUser(t)

	project, err := f.projectSvc.Create(ctx, user.ID, projectdomain.CreateProjectRequest{Name: "mine"})
	assert.NoError(t, err)
	periodStart, periodEnd := f.period(f.clock.Now().Add(-time.Hour), 7)
	entry := f.trackHour(t, user.ID, project.ID, "work")

	invoice, err := f.svc.FinalizeFromDraft(ctx, user.ID, invoicedomain.FinalizeRequest{
		ProjectID:       project.ID,
		TimeEntryIDs:    []snowflake.ID{entry.ID},
		PeriodStart:     periodStart,
		PeriodEnd:       periodEnd,
		HourlyRateCents: 10000,
	})
	assert.NoError(t, err)

	_, err = f.svc.GetByID(ctx, stranger.ID, invoice.ID)
	assert.ErrorIs(t, err, invoicedomain.ErrNotAuthorized)

	_, err = f.svc.GetByID(ctx, user.ID, f.node.Generate())
	assert.ErrorIs(t, err, invoicedomain.ErrInvoiceNotFound)

	mine, err := f.svc.List(ctx, user.ID, invoicedomain.ListInvoicesRequest{})
	assert.NoError(t, err)
	assert.Len(t, mine, 1)

	theirs, err := f.svc.List(ctx, stranger.ID, invoicedomain.ListInvoicesRequest{})
	assert.NoError(t, err)
	assert.Len(t, theirs, 0)
}

func TestExports(t *testing.T) {
	f := newInvoiceFixture(t)
	ctx := context.Background()
	user := f.seedUser(t)

	project, err := f.projectSvc.Create(ctx, user.ID, projectdomain.CreateProjectRequest{Name: "Export Co"})
	assert.NoError(t, err)
	periodStart, periodEnd := f.period(f.clock.Now().Add(-time.Hour), 7)
	entry := f.trackHour(t, user.ID, project.ID, "deliverable")

	invoice, err := f.svc.FinalizeFromDraft(ctx, user.ID, invoicedomain.FinalizeRequest{
		ProjectID:       project.ID,
		TimeEntryIDs:    []snowflake.ID{entry.ID},
		PeriodStart:     periodStart,
		PeriodEnd:       periodEnd,
		HourlyRateCents: 10000,
	})
	assert.NoError(t, err)

	csvFile, err := f.svc.ExportCSV(ctx, user.ID, invoice.ID, "UTC")
	assert.NoError(t, err)
	assert.Equal(t, invoice.Number+".csv", csvFile.Name)
	assert.Equal(t, "text/csv; charset=utf-8", csvFile.ContentType)
	assert.True(t, strings.Contains(string(csvFile.Data), "Export Co"))
	assert.True(t, strings.Contains(string(csvFile.Data), invoice.Number))

	pdfFile, err := f.svc.ExportPDF(ctx, user.ID, invoice.ID, "UTC")
	assert.NoError(t, err)
	assert.Equal(t, invoice.Number+".pdf", pdfFile.Name)
	assert.Equal(t, "application/pdf", pdfFile.ContentType)
	assert.True(t, strings.HasPrefix(string(pdfFile.Data), "%PDF-"))
}
