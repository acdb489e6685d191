package server

import (
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"

	"github.com/tracklane/tracklane/internal/observability/obscontext"
)

const (
	// HeaderUser carries the authenticated user's id. Upstream auth
	// (gateway or reverse proxy) is expected to have verified it.
	HeaderUser = "X-User-ID"

	contextUserIDKey = "user_id"
)

func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(HeaderUser))
		if raw == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		userID, err := snowflake.ParseString(raw)
		if err != nil || userID == 0 {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		if _, err := s.userSvc.GetByID(c.Request.Context(), userID); err != nil {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		c.Set(contextUserIDKey, userID.String())
		ctx := obscontext.WithUserID(c.Request.Context(), userID.String())
		c.Request = c.Request.WithContext(ctx)

		// Presence is best effort; a failed stamp never blocks the request.
		_ = s.userSvc.TouchLastSeen(c.Request.Context(), userID)

		c.Next()
	}
}

// viewerID returns the authenticated user's id set by AuthRequired.
func (s *Server) viewerID(c *gin.Context) snowflake.ID {
	id, err := snowflake.ParseString(c.GetString(contextUserIDKey))
	if err != nil {
		return 0
	}
	return id
}
