package service

import (
	"context"
	"regexp"
	"strings"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/tracklane/tracklane/internal/clock"
	userdomain "github.com/tracklane/tracklane/internal/user/domain"
	"github.com/tracklane/tracklane/pkg/db"
	"github.com/tracklane/tracklane/pkg/repository"
)

// Usernames are mentionable, so they share the mention token charset.
var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._:-]{0,127}$`)

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock

	userrepo repository.Repository[userdomain.User]
}

func NewService(p ServiceParam) userdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("user.service"),
		genID: p.GenID,
		clock: p.Clock,

		userrepo: repository.ProvideStore[userdomain.User](p.DB),
	}
}

func (s *Service) Register(ctx context.Context, req userdomain.RegisterRequest) (userdomain.User, error) {
	username := strings.ToLower(strings.TrimSpace(req.Username))
	if !usernamePattern.MatchString(username) {
		return userdomain.User{}, userdomain.ErrInvalidUsername
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	if existing, err := s.userrepo.FindOne(ctx, &userdomain.User{Username: username}); err != nil {
		return userdomain.User{}, err
	} else if existing != nil {
		return userdomain.User{}, userdomain.ErrUsernameTaken
	}
	if existing, err := s.userrepo.FindOne(ctx, &userdomain.User{Email: email}); err != nil {
		return userdomain.User{}, err
	} else if existing != nil {
		return userdomain.User{}, userdomain.ErrEmailTaken
	}

	displayName := strings.TrimSpace(req.DisplayName)
	if displayName == "" {
		displayName = username
	}

	user := userdomain.User{
		ID:          s.genID.Generate(),
		Username:    username,
		Email:       email,
		DisplayName: displayName,
		PictureURL:  strings.TrimSpace(req.PictureURL),
		PlanTier:    userdomain.PlanFree,
	}

	if err := s.userrepo.Create(ctx, &user); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return userdomain.User{}, userdomain.ErrUsernameTaken
		}
		return userdomain.User{}, err
	}

	s.log.Info("user registered",
		zap.String("user_id", user.ID.String()),
		zap.String("username", user.Username),
	)
	return user, nil
}

func (s *Service) GetByID(ctx context.Context, id snowflake.ID) (userdomain.User, error) {
	user, err := s.userrepo.FindOne(ctx, &userdomain.User{ID: id})
	if err != nil {
		return userdomain.User{}, err
	}
	if user == nil {
		return userdomain.User{}, userdomain.ErrUserNotFound
	}
	return *user, nil
}

func (s *Service) GetByUsername(ctx context.Context, username string) (userdomain.User, error) {
	user, err := s.userrepo.FindOne(ctx, &userdomain.User{Username: strings.ToLower(strings.TrimSpace(username))})
	if err != nil {
		return userdomain.User{}, err
	}
	if user == nil {
		return userdomain.User{}, userdomain.ErrUserNotFound
	}
	return *user, nil
}

func (s *Service) ListByIDs(ctx context.Context, ids []snowflake.ID) ([]userdomain.User, error) {
	if len(ids) == 0 {
		return []userdomain.User{}, nil
	}

	var rows []userdomain.User
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}

	byID := make(map[snowflake.ID]userdomain.User, len(rows))
	for _, u := range rows {
		byID[u.ID] = u
	}
	users := make([]userdomain.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := byID[id]; ok {
			users = append(users, u)
		}
	}
	return users, nil
}

func (s *Service) UpdateProfile(ctx context.Context, id snowflake.ID, req userdomain.UpdateProfileRequest) (userdomain.User, error) {
	user, err := s.GetByID(ctx, id)
	if err != nil {
		return userdomain.User{}, err
	}

	if req.DisplayName != nil {
		if name := strings.TrimSpace(*req.DisplayName); name != "" {
			user.DisplayName = name
		}
	}
	if req.PictureURL != nil {
		user.PictureURL = strings.TrimSpace(*req.PictureURL)
	}
	user.UpdatedAt = s.clock.Now()

	if err := s.userrepo.Update(ctx, user.ID.String(), &user); err != nil {
		return userdomain.User{}, err
	}
	return user, nil
}

func (s *Service) TouchLastSeen(ctx context.Context, id snowflake.ID) error {
	now := s.clock.Now()
	return s.db.WithContext(ctx).
		Model(&userdomain.User{}).
		Where("id = ?", id).
		Update("last_seen_at", now).Error
}
