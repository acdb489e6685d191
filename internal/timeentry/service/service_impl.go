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
	issuedomain "github.com/tracklane/tracklane/internal/issue/domain"
	projectdomain "github.com/tracklane/tracklane/internal/project/domain"
	"github.com/tracklane/tracklane/internal/ratelimit"
	timedomain "github.com/tracklane/tracklane/internal/timeentry/domain"
	"github.com/tracklane/tracklane/pkg/repository"
)

const timerLockTTL = 5 * time.Second

type ServiceParam struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Locker     *ratelimit.Locker `optional:"true"`
	IssueSvc   issuedomain.Service
	ProjectSvc projectdomain.Service
}

type Service struct {
	db     *gorm.DB
	log    *zap.Logger
	genID  *snowflake.Node
	clock  clock.Clock
	locker *ratelimit.Locker

	entryrepo repository.Repository[timedomain.TimeEntry]

	issueSvc   issuedomain.Service
	projectSvc projectdomain.Service
}

func NewService(p ServiceParam) timedomain.Service {
	return &Service{
		db:     p.DB,
		log:    p.Log.Named("timeentry.service"),
		genID:  p.GenID,
		clock:  p.Clock,
		locker: p.Locker,

		entryrepo: repository.ProvideStore[timedomain.TimeEntry](p.DB),

		issueSvc:   p.IssueSvc,
		projectSvc: p.ProjectSvc,
	}
}

func (s *Service) Start(ctx context.Context, viewerID snowflake.ID, req timedomain.StartTimerRequest) (timedomain.TimeEntry, error) {
	release := s.lockTimers(ctx, viewerID)
	defer release()

	projectID := req.ProjectID
	if req.IssueID != nil {
		issue, err := s.issueSvc.GetByID(ctx, *req.IssueID)
		if err != nil {
			return timedomain.TimeEntry{}, err
		}
		if projectID == nil {
			projectID = issue.ProjectID
		}
	}
	if projectID != nil {
		if _, err := s.projectSvc.GetByID(ctx, *projectID); err != nil {
			return timedomain.TimeEntry{}, err
		}
	}

	now := s.clock.Now()
	entry := timedomain.TimeEntry{
		ID:          s.genID.Generate(),
		UserID:      viewerID,
		IssueID:     req.IssueID,
		ProjectID:   projectID,
		Description: strings.TrimSpace(req.Description),
		StartedAt:   now,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// One running timer per user: starting closes anything open.
		err := tx.Model(&timedomain.TimeEntry{}).
			Where("user_id = ? AND ended_at IS NULL", viewerID).
			Update("ended_at", now).Error
		if err != nil {
			return err
		}
		return s.entryrepo.WithTrx(tx).Create(ctx, &entry)
	})
	if err != nil {
		return timedomain.TimeEntry{}, err
	}

	if req.IssueID != nil {
		err = s.db.WithContext(ctx).Model(&issuedomain.Issue{}).
			Where("id = ?", *req.IssueID).
			Update("last_activity_at", now).Error
		if err != nil {
			return timedomain.TimeEntry{}, err
		}
	}
	if projectID != nil {
		if err := s.projectSvc.TouchActivity(ctx, *projectID); err != nil {
			return timedomain.TimeEntry{}, err
		}
	}

	s.log.Info("timer started",
		zap.String("entry_id", entry.ID.String()),
		zap.String("user_id", viewerID.String()),
	)
	return entry, nil
}

func (s *Service) Stop(ctx context.Context, viewerID snowflake.ID, entryID *snowflake.ID) (*timedomain.TimeEntry, error) {
	release := s.lockTimers(ctx, viewerID)
	defer release()

	var entry *timedomain.TimeEntry
	if entryID != nil {
		found, err := s.entryrepo.FindOne(ctx, &timedomain.TimeEntry{ID: *entryID})
		if err != nil {
			return nil, err
		}
		if found == nil {
			return nil, timedomain.ErrTimeEntryNotFound
		}
		if found.UserID != viewerID {
			return nil, timedomain.ErrNotAuthorized
		}
		if found.EndedAt != nil {
			return found, nil
		}
		entry = found
	} else {
		active, err := s.GetActive(ctx, viewerID)
		if err != nil {
			return nil, err
		}
		if active == nil {
			return nil, nil
		}
		entry = active
	}

	now := s.clock.Now()
	err := s.db.WithContext(ctx).Model(&timedomain.TimeEntry{}).
		Where("id = ?", entry.ID).
		Update("ended_at", now).Error
	if err != nil {
		return nil, err
	}
	entry.EndedAt = &now

	s.log.Info("timer stopped",
		zap.String("entry_id", entry.ID.String()),
		zap.Int64("duration_ms", entry.DurationMs()),
	)
	return entry, nil
}

func (s *Service) GetActive(ctx context.Context, viewerID snowflake.ID) (*timedomain.TimeEntry, error) {
	var entry timedomain.TimeEntry
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND ended_at IS NULL", viewerID).
		Order("started_at DESC").
		First(&entry).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

func (s *Service) ListForViewer(ctx context.Context, viewerID snowflake.ID, req timedomain.ListEntriesRequest) ([]timedomain.TimeEntry, error) {
	limit := req.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	query := s.db.WithContext(ctx).
		Where("user_id = ?", viewerID).
		Order("started_at DESC").
		Limit(limit)
	if req.IssueID != nil {
		query = query.Where("issue_id = ?", *req.IssueID)
	}
	if req.ProjectID != nil {
		query = query.Where("project_id = ?", *req.ProjectID)
	}

	var entries []timedomain.TimeEntry
	if err := query.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *Service) ListEndedUnbilledInRange(ctx context.Context, viewerID, projectID snowflake.ID, start, end time.Time) ([]timedomain.TimeEntry, error) {
	var entries []timedomain.TimeEntry
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND project_id = ?", viewerID, projectID).
		Where("ended_at IS NOT NULL").
		Where("invoice_id IS NULL").
		Where("started_at >= ? AND started_at < ?", start, end).
		Order("started_at ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// lockTimers serializes timer mutations for one user when redis is
// configured. Without redis the database transaction is the only guard.
func (s *Service) lockTimers(ctx context.Context, viewerID snowflake.ID) func() {
	if s.locker == nil {
		return func() {}
	}
	key := "timer_lock:" + viewerID.String()
	token, ok, err := s.locker.TryLock(ctx, key, timerLockTTL)
	if err != nil || !ok {
		if err != nil {
			s.log.Warn("timer lock unavailable", zap.Error(err))
		}
		return func() {}
	}
	return func() {
		if err := s.locker.Release(ctx, key, token); err != nil {
			s.log.Warn("timer lock release failed", zap.Error(err))
		}
	}
}
