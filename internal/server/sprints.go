package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"scrumboard/internal/lifecycle"
)

type sprintRequest struct {
	StartDate  string  `json:"start_date" binding:"required"`
	FinishDate string  `json:"finish_date" binding:"required"`
	Velocity   int     `json:"velocity"`
	StoryIDs   []int64 `json:"story_ids"`
}

func (r sprintRequest) draft() (lifecycle.SprintDraft, error) {
	start, err := lifecycle.ParseDate(r.StartDate)
	if err != nil {
		return lifecycle.SprintDraft{}, err
	}
	finish, err := lifecycle.ParseDate(r.FinishDate)
	if err != nil {
		return lifecycle.SprintDraft{}, err
	}
	return lifecycle.SprintDraft{StartDate: start, FinishDate: finish, Velocity: r.Velocity}, nil
}

type returnedStory struct {
	StoryID int64  `json:"story_id" binding:"required"`
	Reason  string `json:"reason"`
	Comment string `json:"comment"`
}

type completeRequest struct {
	Stories []returnedStory `json:"stories" binding:"dive"`
}

func (s *Server) handleListSprints(c *gin.Context) {
	projectID, ok := parseID(c, "id")
	if !ok {
		return
	}
	sprints, err := s.board.ListSprints(c.Request.Context(), projectID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"sprints": sprints})
}

// handleCreateSprint plans a sprint with an optional story selection.
func (s *Server) handleCreateSprint(c *gin.Context) {
	projectID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req sprintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}
	draft, err := req.draft()
	if err != nil {
		s.respondError(c, err)
		return
	}

	sprint, err := s.board.CreateSprint(c.Request.Context(), actorID(c), projectID, draft, req.StoryIDs)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"sprint": sprint})
}

func (s *Server) handleGetSprint(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	sprint, err := s.board.GetSprint(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"sprint": sprint})
}

func (s *Server) handleEditSprint(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req sprintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}
	draft, err := req.draft()
	if err != nil {
		s.respondError(c, err)
		return
	}

	sprint, changed, err := s.board.EditSprint(c.Request.Context(), actorID(c), id, draft)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"sprint": sprint, "changed": changed})
}

func (s *Server) handleDeleteSprint(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := s.board.DeleteSprint(c.Request.Context(), actorID(c), id); err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"status": "deleted"})
}

func (s *Server) handleSprintStories(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	stories, err := s.board.SprintStories(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"stories": stories})
}

// handleCompleteSprint returns the listed unfinished stories to the
// product backlog.
func (s *Server) handleCompleteSprint(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req completeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}
	returned := make([]lifecycle.ReturnedStory, 0, len(req.Stories))
	for _, r := range req.Stories {
		returned = append(returned, lifecycle.ReturnedStory{StoryID: r.StoryID, Reason: r.Reason, Comment: r.Comment})
	}

	stories, err := s.board.CompleteSprint(c.Request.Context(), actorID(c), id, returned)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"returned": stories})
}

func (s *Server) handleBurndown(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	points, err := s.board.Burndown(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"burndown": points})
}
