package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"

	userdomain "github.com/tracklane/tracklane/internal/user/domain"
)

func (s *Server) RegisterUser(c *gin.Context) {
	var req userdomain.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("body", "invalid_body", err.Error()))
		return
	}

	u, err := s.userSvc.Register(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": u})
}

func (s *Server) GetMe(c *gin.Context) {
	u, err := s.userSvc.GetByID(c.Request.Context(), s.viewerID(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": u})
}

func (s *Server) UpdateMe(c *gin.Context) {
	var req userdomain.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("body", "invalid_body", err.Error()))
		return
	}

	u, err := s.userSvc.UpdateProfile(c.Request.Context(), s.viewerID(c), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": u})
}

// ListUsersByIDs hydrates user rows for display, e.g. assignee chips.
// Ids come comma-separated in the "ids" query parameter.
func (s *Server) ListUsersByIDs(c *gin.Context) {
	raw := strings.TrimSpace(c.Query("ids"))
	if raw == "" {
		c.JSON(http.StatusOK, gin.H{"data": []userdomain.User{}})
		return
	}

	var ids []snowflake.ID
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := snowflake.ParseString(part)
		if err != nil || id == 0 {
			AbortWithError(c, newValidationError("ids", "invalid_id", "invalid id "+part))
			return
		}
		ids = append(ids, id)
	}

	users, err := s.userSvc.ListByIDs(c.Request.Context(), ids)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": users})
}

func (s *Server) GetUserByUsername(c *gin.Context) {
	username := strings.TrimSpace(c.Param("username"))
	if username == "" {
		AbortWithError(c, newValidationError("username", "required", "username is required"))
		return
	}

	u, err := s.userSvc.GetByUsername(c.Request.Context(), username)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": u})
}
