package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	projectdomain "github.com/tracklane/tracklane/internal/project/domain"
)

func (s *Server) CreateProject(c *gin.Context) {
	var req projectdomain.CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("body", "invalid_body", err.Error()))
		return
	}

	p, err := s.projectSvc.Create(c.Request.Context(), s.viewerID(c), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": p})
}

func (s *Server) ListProjects(c *gin.Context) {
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

	projects, err := s.projectSvc.List(c.Request.Context(), projectdomain.ListProjectsRequest{
		IncludeArchived: includeArchived,
		Limit:           limit,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": projects})
}

func (s *Server) GetProjectByID(c *gin.Context) {
	projectID, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	p, err := s.projectSvc.GetByID(c.Request.Context(), projectID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": p})
}

func (s *Server) AddProjectMember(c *gin.Context) {
	projectID, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req projectdomain.AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("body", "invalid_body", err.Error()))
		return
	}

	resp, err := s.projectSvc.AddMember(c.Request.Context(), s.viewerID(c), projectID, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) RemoveProjectMember(c *gin.Context) {
	projectID, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	userID, err := pathID(c, "userId")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.projectSvc.RemoveMember(c.Request.Context(), s.viewerID(c), projectID, userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
