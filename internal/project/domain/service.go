package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type CreateProjectRequest struct {
	Name        string `json:"name" binding:"required,min=1,max=100"`
	Description string `json:"description" binding:"max=2000"`
	Color       string `json:"color" binding:"max=32"`
}

type ListProjectsRequest struct {
	IncludeArchived bool `form:"include_archived"`
	Limit           int  `form:"limit"`
}

type AddMemberRequest struct {
	// Identifier is a user ID or an email address.
	Identifier string `json:"identifier" binding:"required"`
}

type AddMemberResponse struct {
	Added  bool         `json:"added"`
	UserID snowflake.ID `json:"userId,string"`
}

type RemoveMemberResponse struct {
	Removed bool `json:"removed"`
}

type Service interface {
	Create(ctx context.Context, viewerID snowflake.ID, req CreateProjectRequest) (Project, error)
	List(ctx context.Context, req ListProjectsRequest) ([]Project, error)
	GetByID(ctx context.Context, id snowflake.ID) (Project, error)
	AddMember(ctx context.Context, viewerID, projectID snowflake.ID, req AddMemberRequest) (AddMemberResponse, error)
	RemoveMember(ctx context.Context, viewerID, projectID, userID snowflake.ID) (RemoveMemberResponse, error)

	// IsMember reports whether the user is the creator or a member.
	IsMember(ctx context.Context, projectID, userID snowflake.ID) (bool, error)
	// MemberIDs returns the project's member ids, creator included.
	MemberIDs(ctx context.Context, projectID snowflake.ID) ([]snowflake.ID, error)
	// TouchActivity bumps lastActivityAt.
	TouchActivity(ctx context.Context, projectID snowflake.ID) error
}

var (
	ErrProjectNotFound     = errors.New("project_not_found")
	ErrNotAuthorized       = errors.New("project_not_authorized")
	ErrMemberNotFound      = errors.New("member_not_found")
	ErrCannotRemoveCreator = errors.New("cannot_remove_creator")
	ErrIdentifierRequired  = errors.New("member_identifier_required")
)
