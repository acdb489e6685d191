package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/tracklane/tracklane/internal/clock"
	projectdomain "github.com/tracklane/tracklane/internal/project/domain"
	"github.com/tracklane/tracklane/internal/quota"
	userdomain "github.com/tracklane/tracklane/internal/user/domain"
	"github.com/tracklane/tracklane/pkg/db/option"
	"github.com/tracklane/tracklane/pkg/repository"
)

type ServiceParam struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	QuotaSvc quota.Service
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock

	projectrepo repository.Repository[projectdomain.Project]
	memberrepo  repository.Repository[projectdomain.Member]
	userrepo    repository.Repository[userdomain.User]
	quotaSvc    quota.Service
}

func NewService(p ServiceParam) projectdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("project.service"),
		genID: p.GenID,
		clock: p.Clock,

		projectrepo: repository.ProvideStore[projectdomain.Project](p.DB),
		memberrepo:  repository.ProvideStore[projectdomain.Member](p.DB),
		userrepo:    repository.ProvideStore[userdomain.User](p.DB),
		quotaSvc:    p.QuotaSvc,
	}
}

func (s *Service) Create(ctx context.Context, viewerID snowflake.ID, req projectdomain.CreateProjectRequest) (projectdomain.Project, error) {
	now := s.clock.Now()
	project := projectdomain.Project{
		ID:             s.genID.Generate(),
		Name:           strings.TrimSpace(req.Name),
		Description:    strings.TrimSpace(req.Description),
		Color:          strings.TrimSpace(req.Color),
		CreatorID:      viewerID,
		LastActivityAt: now,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.quotaSvc.EnforceCreation(ctx, tx, viewerID, quota.ActionProjects); err != nil {
			return err
		}
		if err := s.projectrepo.WithTrx(tx).Create(ctx, &project); err != nil {
			return err
		}
		member := projectdomain.Member{ProjectID: project.ID, UserID: viewerID}
		return s.memberrepo.WithTrx(tx).Create(ctx, &member)
	})
	if err != nil {
		return projectdomain.Project{}, err
	}

	s.log.Info("project created",
		zap.String("project_id", project.ID.String()),
		zap.String("creator_id", viewerID.String()),
	)
	return project, nil
}

func (s *Service) List(ctx context.Context, req projectdomain.ListProjectsRequest) ([]projectdomain.Project, error) {
	limit := req.Limit
	if limit <= 0 || limit > 200 {
		limit = 100
	}

	query := s.db.WithContext(ctx).Model(&projectdomain.Project{}).
		Preload("Members").
		Order("last_activity_at DESC").
		Limit(limit)
	if !req.IncludeArchived {
		query = query.Where("archived_at IS NULL")
	}

	var projects []projectdomain.Project
	if err := query.Find(&projects).Error; err != nil {
		return nil, err
	}
	return projects, nil
}

func (s *Service) GetByID(ctx context.Context, id snowflake.ID) (projectdomain.Project, error) {
	var project projectdomain.Project
	err := s.db.WithContext(ctx).Preload("Members").First(&project, "id = ?", id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return projectdomain.Project{}, projectdomain.ErrProjectNotFound
		}
		return projectdomain.Project{}, err
	}
	return project, nil
}

func (s *Service) AddMember(ctx context.Context, viewerID, projectID snowflake.ID, req projectdomain.AddMemberRequest) (projectdomain.AddMemberResponse, error) {
	project, err := s.GetByID(ctx, projectID)
	if err != nil {
		return projectdomain.AddMemberResponse{}, err
	}
	if err := s.requireManage(ctx, project, viewerID); err != nil {
		return projectdomain.AddMemberResponse{}, err
	}

	identifier := strings.TrimSpace(req.Identifier)
	if identifier == "" {
		return projectdomain.AddMemberResponse{}, projectdomain.ErrIdentifierRequired
	}

	member, err := s.resolveUser(ctx, identifier)
	if err != nil {
		return projectdomain.AddMemberResponse{}, err
	}

	existing, err := s.memberrepo.FindOne(ctx, &projectdomain.Member{ProjectID: projectID, UserID: member.ID})
	if err != nil {
		return projectdomain.AddMemberResponse{}, err
	}
	if existing != nil {
		return projectdomain.AddMemberResponse{Added: false, UserID: member.ID}, nil
	}

	row := projectdomain.Member{ProjectID: projectID, UserID: member.ID}
	if err := s.memberrepo.Create(ctx, &row); err != nil {
		return projectdomain.AddMemberResponse{}, err
	}
	if err := s.TouchActivity(ctx, projectID); err != nil {
		return projectdomain.AddMemberResponse{}, err
	}
	return projectdomain.AddMemberResponse{Added: true, UserID: member.ID}, nil
}

func (s *Service) RemoveMember(ctx context.Context, viewerID, projectID, userID snowflake.ID) (projectdomain.RemoveMemberResponse, error) {
	project, err := s.GetByID(ctx, projectID)
	if err != nil {
		return projectdomain.RemoveMemberResponse{}, err
	}
	if err := s.requireManage(ctx, project, viewerID); err != nil {
		return projectdomain.RemoveMemberResponse{}, err
	}
	if project.CreatorID == userID {
		return projectdomain.RemoveMemberResponse{}, projectdomain.ErrCannotRemoveCreator
	}

	existing, err := s.memberrepo.FindOne(ctx, &projectdomain.Member{ProjectID: projectID, UserID: userID})
	if err != nil {
		return projectdomain.RemoveMemberResponse{}, err
	}
	if existing == nil {
		return projectdomain.RemoveMemberResponse{Removed: false}, nil
	}

	err = s.db.WithContext(ctx).
		Where("project_id = ? AND user_id = ?", projectID, userID).
		Delete(&projectdomain.Member{}).Error
	if err != nil {
		return projectdomain.RemoveMemberResponse{}, err
	}
	if err := s.TouchActivity(ctx, projectID); err != nil {
		return projectdomain.RemoveMemberResponse{}, err
	}
	return projectdomain.RemoveMemberResponse{Removed: true}, nil
}

func (s *Service) IsMember(ctx context.Context, projectID, userID snowflake.ID) (bool, error) {
	member, err := s.memberrepo.FindOne(ctx, &projectdomain.Member{ProjectID: projectID, UserID: userID})
	if err != nil {
		return false, err
	}
	if member != nil {
		return true, nil
	}

	project, err := s.projectrepo.FindOne(ctx, &projectdomain.Project{ID: projectID})
	if err != nil {
		return false, err
	}
	return project != nil && project.CreatorID == userID, nil
}

func (s *Service) MemberIDs(ctx context.Context, projectID snowflake.ID) ([]snowflake.ID, error) {
	members, err := s.memberrepo.Find(ctx, &projectdomain.Member{ProjectID: projectID},
		option.WithSortBy(option.QuerySortBy{Field: "created_at", Desc: false, Allow: map[string]bool{"created_at": true}}),
	)
	if err != nil {
		return nil, err
	}

	ids := make([]snowflake.ID, 0, len(members)+1)
	seen := make(map[snowflake.ID]bool)
	for _, m := range members {
		if !seen[m.UserID] {
			seen[m.UserID] = true
			ids = append(ids, m.UserID)
		}
	}

	project, err := s.projectrepo.FindOne(ctx, &projectdomain.Project{ID: projectID})
	if err != nil {
		return nil, err
	}
	if project != nil && !seen[project.CreatorID] {
		ids = append(ids, project.CreatorID)
	}
	return ids, nil
}

func (s *Service) TouchActivity(ctx context.Context, projectID snowflake.ID) error {
	return s.db.WithContext(ctx).
		Model(&projectdomain.Project{}).
		Where("id = ?", projectID).
		Update("last_activity_at", s.clock.Now()).Error
}

func (s *Service) requireManage(ctx context.Context, project projectdomain.Project, viewerID snowflake.ID) error {
	ok, err := s.IsMember(ctx, project.ID, viewerID)
	if err != nil {
		return err
	}
	if !ok {
		return projectdomain.ErrNotAuthorized
	}
	return nil
}

// resolveUser accepts a user id or an email address.
func (s *Service) resolveUser(ctx context.Context, identifier string) (*userdomain.User, error) {
	if id, err := snowflake.ParseString(identifier); err == nil {
		user, err := s.userrepo.FindOne(ctx, &userdomain.User{ID: id})
		if err != nil {
			return nil, err
		}
		if user != nil {
			return user, nil
		}
	}

	user, err := s.userrepo.FindOne(ctx, &userdomain.User{Email: strings.ToLower(identifier)})
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, projectdomain.ErrMemberNotFound
	}
	return user, nil
}
