package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/tracklane/tracklane/internal/clock"
	notificationdomain "github.com/tracklane/tracklane/internal/notification/domain"
	obsmetrics "github.com/tracklane/tracklane/internal/observability/metrics"
	"github.com/tracklane/tracklane/pkg/repository"
)

type ServiceParam struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Metrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	metrics *obsmetrics.Metrics

	notifrepo repository.Repository[notificationdomain.Notification]
}

func NewService(p ServiceParam) notificationdomain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("notification.service"),
		genID:   p.GenID,
		clock:   p.Clock,
		metrics: p.Metrics,

		notifrepo: repository.ProvideStore[notificationdomain.Notification](p.DB),
	}
}

func (s *Service) CreateAll(ctx context.Context, notifications []notificationdomain.Notification) error {
	if len(notifications) == 0 {
		return nil
	}

	rows := make([]*notificationdomain.Notification, len(notifications))
	now := s.clock.Now()
	for i := range notifications {
		n := notifications[i]
		n.ID = s.genID.Generate()
		n.CreatedAt = now
		rows[i] = &n
	}
	if err := s.notifrepo.BatchCreate(ctx, rows); err != nil {
		return err
	}

	byType := make(map[string]int64)
	for _, n := range rows {
		byType[string(n.Type)]++
	}
	for typ, count := range byType {
		s.metrics.RecordNotificationFanout(ctx, typ, count)
	}

	s.log.Debug("notifications fanned out", zap.Int("count", len(rows)))
	return nil
}

func (s *Service) List(ctx context.Context, viewerID snowflake.ID, req notificationdomain.ListRequest) ([]notificationdomain.Notification, error) {
	limit := req.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	query := s.db.WithContext(ctx).
		Where("user_id = ?", viewerID).
		Order("created_at DESC").
		Limit(limit)
	if req.UnreadOnly {
		query = query.Where("read_at IS NULL")
	}
	if req.ProjectID != nil {
		query = query.Where("project_id = ?", *req.ProjectID)
	}

	var notifications []notificationdomain.Notification
	if err := query.Find(&notifications).Error; err != nil {
		return nil, err
	}
	return notifications, nil
}

func (s *Service) UnreadCount(ctx context.Context, viewerID snowflake.ID) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&notificationdomain.Notification{}).
		Where("user_id = ? AND read_at IS NULL", viewerID).
		Count(&count).Error
	return count, err
}

func (s *Service) MarkRead(ctx context.Context, viewerID, notificationID snowflake.ID) error {
	notification, err := s.notifrepo.FindOne(ctx, &notificationdomain.Notification{ID: notificationID})
	if err != nil {
		return err
	}
	if notification == nil {
		return notificationdomain.ErrNotificationNotFound
	}
	if notification.UserID != viewerID {
		return notificationdomain.ErrNotAuthorized
	}
	if notification.ReadAt != nil {
		return nil
	}

	now := s.clock.Now()
	return s.db.WithContext(ctx).
		Model(&notificationdomain.Notification{}).
		Where("id = ?", notificationID).
		Update("read_at", now).Error
}

func (s *Service) MarkAllRead(ctx context.Context, viewerID snowflake.ID, projectID *snowflake.ID) (notificationdomain.MarkAllReadResponse, error) {
	query := s.db.WithContext(ctx).
		Model(&notificationdomain.Notification{}).
		Where("user_id = ? AND read_at IS NULL", viewerID)
	if projectID != nil {
		query = query.Where("project_id = ?", *projectID)
	}

	result := query.Update("read_at", s.clock.Now())
	if result.Error != nil {
		return notificationdomain.MarkAllReadResponse{}, result.Error
	}
	return notificationdomain.MarkAllReadResponse{UpdatedCount: result.RowsAffected}, nil
}
