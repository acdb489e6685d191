package server

import (
	"net/http"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"

	timedomain "github.com/tracklane/tracklane/internal/timeentry/domain"
)

type stopTimerRequest struct {
	EntryID *snowflake.ID `json:"entryId,string,omitempty"`
}

func (s *Server) StartTimer(c *gin.Context) {
	var req timedomain.StartTimerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("body", "invalid_body", err.Error()))
		return
	}

	entry, err := s.timeSvc.Start(c.Request.Context(), s.viewerID(c), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.metrics.RecordTimerStarted(c.Request.Context())
	c.JSON(http.StatusCreated, gin.H{"data": entry})
}

func (s *Server) StopTimer(c *gin.Context) {
	var req stopTimerRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, newValidationError("body", "invalid_body", err.Error()))
			return
		}
	}

	entry, err := s.timeSvc.Stop(c.Request.Context(), s.viewerID(c), req.EntryID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": entry})
}

func (s *Server) GetActiveTimer(c *gin.Context) {
	entry, err := s.timeSvc.GetActive(c.Request.Context(), s.viewerID(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": entry})
}

func (s *Server) ListTimeEntries(c *gin.Context) {
	issueID, err := queryID(c, "issue_id")
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

	entries, err := s.timeSvc.ListForViewer(c.Request.Context(), s.viewerID(c), timedomain.ListEntriesRequest{
		IssueID:   issueID,
		ProjectID: projectID,
		Limit:     limit,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": entries})
}
