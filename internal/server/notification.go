package server

import (
	"net/http"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"

	notificationdomain "github.com/tracklane/tracklane/internal/notification/domain"
)

type markAllReadRequest struct {
	ProjectID *snowflake.ID `json:"projectId,string,omitempty"`
}

func (s *Server) ListNotifications(c *gin.Context) {
	unreadOnly, err := queryBool(c, "unread_only")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	projectID, err := queryID(c, "project_id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	limit, err := queryInt(c, "limit")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	notifications, err := s.notificationSvc.List(c.Request.Context(), s.viewerID(c), notificationdomain.ListRequest{
		UnreadOnly: unreadOnly,
		ProjectID:  projectID,
		Limit:      limit,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": notifications})
}

func (s *Server) GetUnreadNotificationCount(c *gin.Context) {
	count, err := s.notificationSvc.UnreadCount(c.Request.Context(), s.viewerID(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"count": count}})
}

func (s *Server) MarkNotificationRead(c *gin.Context) {
	notificationID, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.notificationSvc.MarkRead(c.Request.Context(), s.viewerID(c), notificationID); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"read": true}})
}

func (s *Server) MarkAllNotificationsRead(c *gin.Context) {
	var req markAllReadRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, newValidationError("body", "invalid_body", err.Error()))
			return
		}
	}

	resp, err := s.notificationSvc.MarkAllRead(c.Request.Context(), s.viewerID(c), req.ProjectID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
