// Package quota enforces lifetime creation caps per account plan.
package quota

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	obsmetrics "github.com/tracklane/tracklane/internal/observability/metrics"
	"github.com/tracklane/tracklane/internal/ratelimit"
	userdomain "github.com/tracklane/tracklane/internal/user/domain"
	"github.com/tracklane/tracklane/pkg/repository"
)

// Action names a counted creation.
type Action string

const (
	ActionProjects Action = "projects"
	ActionIssues   Action = "issues"
	ActionInvoices Action = "invoices"
)

// Limits are lifetime caps, not rolling windows. Deleting a record does not
// refund its slot. Pro limits sit here so a billing webhook can swap them
// for dynamic entitlements later without touching call sites.
var (
	freePlanLimits = map[Action]int64{
		ActionProjects: 5,
		ActionIssues:   250,
		ActionInvoices: 250,
	}
	proPlanLimits = map[Action]int64{
		ActionProjects: 250,
		ActionIssues:   25_000,
		ActionInvoices: 25_000,
	}
)

// LimitsForPlan returns the creation caps for a tier; unknown tiers get
// free limits.
func LimitsForPlan(tier userdomain.PlanTier) map[Action]int64 {
	if tier == userdomain.PlanPro {
		return proPlanLimits
	}
	return freePlanLimits
}

var ErrProfileNotInitialized = errors.New("user profile not initialized")

// LimitError reports an exhausted creation quota.
type LimitError struct {
	Action Action
	Tier   userdomain.PlanTier
	Limit  int64
}

func (e *LimitError) Error() string {
	if e.Tier == userdomain.PlanPro {
		return fmt.Sprintf("Pro account limit reached for %s (%d lifetime).", e.Action, e.Limit)
	}
	return fmt.Sprintf("Free account limit reached for %s (%d lifetime). Upgrade to pro to increase this cap.", e.Action, e.Limit)
}

// Service checks and consumes creation quota.
type Service interface {
	// EnforceCreation verifies the viewer may create one more record of the
	// given kind and consumes the slot. Callers invoke it inside the same
	// transaction as the creation so a failed insert does not burn quota.
	EnforceCreation(ctx context.Context, tx *gorm.DB, viewerID snowflake.ID, action Action) error
}

type ServiceParam struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Bucket  *ratelimit.TokenBucket `optional:"true"`
	Metrics *obsmetrics.Metrics    `optional:"true"`
}

type quotaService struct {
	db      *gorm.DB
	log     *zap.Logger
	bucket  *ratelimit.TokenBucket
	metrics *obsmetrics.Metrics
}

func NewService(p ServiceParam) Service {
	return &quotaService{
		db:      p.DB,
		log:     p.Log.Named("quota.service"),
		bucket:  p.Bucket,
		metrics: p.Metrics,
	}
}

func (s *quotaService) EnforceCreation(ctx context.Context, tx *gorm.DB, viewerID snowflake.ID, action Action) error {
	if tx == nil {
		tx = s.db
	}
	userrepo := repository.ProvideStore[userdomain.User](tx)

	viewer, err := userrepo.FindOne(ctx, &userdomain.User{ID: viewerID})
	if err != nil {
		return err
	}
	if viewer == nil {
		return ErrProfileNotInitialized
	}

	tier := viewer.PlanTier
	if !tier.Valid() {
		tier = userdomain.PlanFree
	}
	limit := LimitsForPlan(tier)[action]
	used := s.counterValue(viewer, action)

	if used >= limit {
		s.metrics.RecordQuotaDenied(ctx, string(action), string(tier))
		return &LimitError{Action: action, Tier: tier, Limit: limit}
	}

	// A burst limiter rides on top of the lifetime counter so a runaway
	// client cannot race the read-check-write above across instances.
	if s.bucket != nil {
		key := fmt.Sprintf("create_%s:%s:%s", action, viewerID, tier)
		res, err := s.bucket.Allow(ctx, key, float64(limit), int(limit))
		if err != nil {
			s.log.Warn("quota limiter unavailable, falling back to counters", zap.Error(err))
		} else if !res.Allowed {
			s.metrics.RecordRateLimitDenied(ctx, "create_"+string(action), "burst")
			return &LimitError{Action: action, Tier: tier, Limit: limit}
		} else {
			s.metrics.RecordRateLimitAllowed(ctx, "create_"+string(action))
		}
	}

	return tx.WithContext(ctx).
		Model(&userdomain.User{}).
		Where("id = ?", viewerID).
		UpdateColumn(s.counterColumn(action), gorm.Expr(s.counterColumn(action)+" + 1")).Error
}

func (s *quotaService) counterValue(u *userdomain.User, action Action) int64 {
	switch action {
	case ActionProjects:
		return u.ProjectCreateCount
	case ActionIssues:
		return u.IssueCreateCount
	default:
		return u.InvoiceCreateCount
	}
}

func (s *quotaService) counterColumn(action Action) string {
	switch action {
	case ActionProjects:
		return "project_create_count"
	case ActionIssues:
		return "issue_create_count"
	default:
		return "invoice_create_count"
	}
}

var Module = fx.Module("quota",
	fx.Provide(NewService),
)
