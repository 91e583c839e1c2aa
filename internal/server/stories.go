package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"scrumboard/internal/lifecycle"
)

type storyRequest struct {
	Title         string `json:"title" binding:"required"`
	Description   string `json:"description" binding:"required"`
	Tests         string `json:"tests" binding:"required"`
	Priority      int    `json:"priority" binding:"required"`
	BusinessValue int    `json:"business_value" binding:"required"`
}

type storyEditRequest struct {
	Title         *string  `json:"title"`
	Description   *string  `json:"description"`
	Tests         *string  `json:"tests"`
	Priority      *int     `json:"priority"`
	BusinessValue *int     `json:"business_value"`
	TimeRequired  *float64 `json:"time_required"`
}

type estimateRequest struct {
	Points *float64 `json:"points" binding:"required"`
}

type moveRequest struct {
	Destination string `json:"destination" binding:"required"`
	SprintID    *int64 `json:"sprint_id"`
}

type sprintAssignRequest struct {
	SprintID int64 `json:"sprint_id" binding:"required"`
}

type realizeRequest struct {
	Passed  *bool  `json:"passed" binding:"required"`
	Comment string `json:"comment"`
}

func (s *Server) handleListStories(c *gin.Context) {
	projectID, ok := parseID(c, "id")
	if !ok {
		return
	}
	stories, err := s.board.ListStories(c.Request.Context(), projectID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"stories": stories})
}

// handleCreateStory adds a story to the product backlog.
func (s *Server) handleCreateStory(c *gin.Context) {
	projectID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req storyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}

	story, err := s.board.CreateStory(c.Request.Context(), actorID(c), projectID, lifecycle.StoryInput{
		Title:         req.Title,
		Description:   req.Description,
		Tests:         req.Tests,
		Priority:      req.Priority,
		BusinessValue: req.BusinessValue,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"story": story})
}

func (s *Server) handleGetStory(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	story, err := s.board.GetStory(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"story": story})
}

// handleEditStory applies a partial update.
func (s *Server) handleEditStory(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req storyEditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}

	story, err := s.board.EditStory(c.Request.Context(), actorID(c), id, lifecycle.StoryEdit{
		Title:         req.Title,
		Description:   req.Description,
		Tests:         req.Tests,
		Priority:      req.Priority,
		BusinessValue: req.BusinessValue,
		TimeRequired:  req.TimeRequired,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"story": story})
}

func (s *Server) handleDeleteStory(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := s.board.DeleteStory(c.Request.Context(), actorID(c), id); err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"status": "deleted"})
}

func (s *Server) handleEstimateStory(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req estimateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}

	story, warning, err := s.board.EstimateStory(c.Request.Context(), actorID(c), id, *req.Points)
	if err != nil {
		s.respondError(c, err)
		return
	}
	payload := gin.H{"story": story}
	if warning != "" {
		payload["warning"] = warning
	}
	respondSuccess(c, http.StatusOK, payload)
}

// handleMoveStory drags a story to another board column.
func (s *Server) handleMoveStory(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req moveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}
	dest, err := lifecycle.ParseColumn(req.Destination)
	if err != nil {
		s.respondError(c, err)
		return
	}

	story, err := s.board.MoveStory(c.Request.Context(), actorID(c), id, dest, req.SprintID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"story": story})
}

func (s *Server) handleAssignStory(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req sprintAssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}

	story, err := s.board.AssignStoryToSprint(c.Request.Context(), actorID(c), id, req.SprintID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"story": story})
}

// handleRealizeStory records the product owner's acceptance decision.
func (s *Server) handleRealizeStory(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req realizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}

	story, err := s.board.RealizeStory(c.Request.Context(), actorID(c), id, *req.Passed, req.Comment)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"story": story})
}

func (s *Server) handleRejections(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	posts, err := s.board.RejectionHistory(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"posts": posts})
}
