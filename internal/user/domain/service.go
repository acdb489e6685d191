package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type RegisterRequest struct {
	Username    string `json:"username" binding:"required"`
	Email       string `json:"email" binding:"required,email"`
	DisplayName string `json:"displayName"`
	PictureURL  string `json:"pictureUrl"`
}

type UpdateProfileRequest struct {
	DisplayName *string `json:"displayName"`
	PictureURL  *string `json:"pictureUrl"`
}

type Service interface {
	Register(ctx context.Context, req RegisterRequest) (User, error)
	GetByID(ctx context.Context, id snowflake.ID) (User, error)
	GetByUsername(ctx context.Context, username string) (User, error)

	// ListByIDs hydrates user rows for display. Unknown ids are skipped;
	// order follows the input.
	ListByIDs(ctx context.Context, ids []snowflake.ID) ([]User, error)
	UpdateProfile(ctx context.Context, id snowflake.ID, req UpdateProfileRequest) (User, error)
	TouchLastSeen(ctx context.Context, id snowflake.ID) error
}

var (
	ErrUserNotFound    = errors.New("user_not_found")
	ErrInvalidUsername = errors.New("invalid_username")
	ErrUsernameTaken   = errors.New("username_taken")
	ErrEmailTaken      = errors.New("email_taken")
)
