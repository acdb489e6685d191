package server

import (
	"net/http"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"

	issuedomain "github.com/tracklane/tracklane/internal/issue/domain"
)

type setIssueStatusRequest struct {
	Status issuedomain.IssueStatus `json:"status" binding:"required"`
}

type setIssueAssigneesRequest struct {
	AssigneeIDs []snowflake.ID `json:"assigneeIds"`
}

type setIssueLabelsRequest struct {
	Labels []string `json:"labels"`
}

type toggleIssueLinkRequest struct {
	OtherIssueID snowflake.ID         `json:"otherIssueId,string" binding:"required"`
	Type         issuedomain.LinkType `json:"type" binding:"required"`
}

func (s *Server) CreateIssue(c *gin.Context) {
	var req issuedomain.CreateIssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("body", "invalid_body", err.Error()))
		return
	}

	issue, err := s.issueSvc.Create(c.Request.Context(), s.viewerID(c), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": issue})
}

func (s *Server) ListIssues(c *gin.Context) {
	projectID, err := queryID(c, "project_id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	parentID, err := queryID(c, "parent_issue_id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	includeArchived, err := queryBool(c, "include_archived")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	limit, err := queryInt(c, "limit")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var status *issuedomain.IssueStatus
	if raw := c.Query("status"); raw != "" {
		st := issuedomain.IssueStatus(raw)
		if !st.Valid() {
			AbortWithError(c, issuedomain.ErrInvalidStatus)
			return
		}
		status = &st
	}

	issues, err := s.issueSvc.List(c.Request.Context(), issuedomain.ListIssuesRequest{
		ProjectID:       projectID,
		ParentIssueID:   parentID,
		Status:          status,
		IncludeArchived: includeArchived,
		Limit:           limit,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": issues})
}

func (s *Server) ListFavoriteIssues(c *gin.Context) {
	limit, err := queryInt(c, "limit")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	issues, err := s.issueSvc.ListFavorites(c.Request.Context(), s.viewerID(c), limit)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": issues})
}

func (s *Server) GetIssueByID(c *gin.Context) {
	issueID, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	issue, err := s.issueSvc.GetByID(c.Request.Context(), issueID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": issue})
}

func (s *Server) SetIssueStatus(c *gin.Context) {
	issueID, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req setIssueStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("body", "invalid_body", err.Error()))
		return
	}

	if err := s.issueSvc.SetStatus(c.Request.Context(), s.viewerID(c), issueID, req.Status); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"updated": true}})
}

func (s *Server) SetIssueAssignees(c *gin.Context) {
	issueID, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req setIssueAssigneesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("body", "invalid_body", err.Error()))
		return
	}

	if err := s.issueSvc.SetAssignees(c.Request.Context(), s.viewerID(c), issueID, req.AssigneeIDs); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"updated": true}})
}

func (s *Server) SetIssueLabels(c *gin.Context) {
	issueID, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req setIssueLabelsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("body", "invalid_body", err.Error()))
		return
	}

	issue, err := s.issueSvc.SetLabels(c.Request.Context(), s.viewerID(c), issueID, req.Labels)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": issue})
}

func (s *Server) ToggleIssueFavorite(c *gin.Context) {
	issueID, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	result, err := s.issueSvc.ToggleFavorite(c.Request.Context(), s.viewerID(c), issueID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}

func (s *Server) ToggleIssueLink(c *gin.Context) {
	issueID, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req toggleIssueLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("body", "invalid_body", err.Error()))
		return
	}

	result, err := s.issueSvc.ToggleLink(c.Request.Context(), s.viewerID(c), issueID, req.OtherIssueID, req.Type)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}

func (s *Server) AddIssueComment(c *gin.Context) {
	issueID, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req issuedomain.AddCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("body", "invalid_body", err.Error()))
		return
	}

	comment, err := s.issueSvc.AddComment(c.Request.Context(), s.viewerID(c), issueID, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": comment})
}

func (s *Server) ListIssueComments(c *gin.Context) {
	issueID, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	parentID, err := queryID(c, "parent_comment_id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	flat, err := queryBool(c, "flat")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	limit, err := queryInt(c, "limit")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var comments []issuedomain.Comment
	if flat {
		comments, err = s.issueSvc.ListCommentsFlat(c.Request.Context(), issueID, limit)
	} else {
		comments, err = s.issueSvc.ListComments(c.Request.Context(), issueID, parentID, limit)
	}
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": comments})
}

func (s *Server) ToggleIssueReaction(c *gin.Context) {
	issueID, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req issuedomain.ToggleReactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("body", "invalid_body", err.Error()))
		return
	}

	result, err := s.issueSvc.ToggleReaction(c.Request.Context(), s.viewerID(c), issueID, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}

func (s *Server) ListIssueReactions(c *gin.Context) {
	issueID, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	reactions, err := s.issueSvc.ListReactions(c.Request.Context(), issueID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": reactions})
}
