// Package seed bootstraps a default account for local and self-hosted
// installs so the API is usable before any client registers users.
package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	projectdomain "github.com/tracklane/tracklane/internal/project/domain"
	userdomain "github.com/tracklane/tracklane/internal/user/domain"
)

const (
	defaultUsername    = "admin"
	defaultEmail       = "admin@tracklane.local"
	defaultDisplayName = "Tracklane Admin"
	defaultProjectName = "General"
)

// EnsureDefaultUser creates the admin account and its starter project if
// they do not exist yet. Idempotent across restarts.
func EnsureDefaultUser(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := ensureAdminTx(ctx, tx, node)
		if err != nil {
			return err
		}
		return ensureStarterProjectTx(ctx, tx, node, user.ID)
	})
}

func ensureAdminTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node) (userdomain.User, error) {
	var user userdomain.User
	err := tx.WithContext(ctx).Where("username = ?", defaultUsername).First(&user).Error
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return user, err
	}

	now := time.Now().UTC()
	user = userdomain.User{
		ID:          node.Generate(),
		Username:    defaultUsername,
		Email:       defaultEmail,
		DisplayName: defaultDisplayName,
		PlanTier:    userdomain.PlanFree,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := tx.WithContext(ctx).Create(&user).Error; err != nil {
		return user, err
	}
	return user, nil
}

func ensureStarterProjectTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node, creatorID snowflake.ID) error {
	var project projectdomain.Project
	err := tx.WithContext(ctx).
		Where("creator_id = ? AND name = ?", creatorID, defaultProjectName).
		First(&project).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	now := time.Now().UTC()
	project = projectdomain.Project{
		ID:             node.Generate(),
		Name:           defaultProjectName,
		CreatorID:      creatorID,
		LastActivityAt: now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := tx.WithContext(ctx).Create(&project).Error; err != nil {
		return err
	}

	member := projectdomain.Member{ProjectID: project.ID, UserID: creatorID, CreatedAt: now}
	return tx.WithContext(ctx).Create(&member).Error
}
