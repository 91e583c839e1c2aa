package server

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"scrumboard/internal/lifecycle"
	"scrumboard/internal/models"
)

type subtaskRequest struct {
	Description  string  `json:"description" binding:"required"`
	TimeRequired float64 `json:"time_required" binding:"required"`
	Priority     int     `json:"priority" binding:"required"`
	Assignee     *int64  `json:"assignee"`
}

// subtaskEditRequest keeps the raw assignee so that an explicit null can
// be told apart from a missing field.
type subtaskEditRequest struct {
	Description  *string         `json:"description"`
	TimeRequired *float64        `json:"time_required"`
	Priority     *int            `json:"priority"`
	Assignee     json.RawMessage `json:"assignee"`
}

func (r subtaskEditRequest) edit() (lifecycle.SubtaskEdit, error) {
	edit := lifecycle.SubtaskEdit{
		Description:  r.Description,
		TimeRequired: r.TimeRequired,
		Priority:     r.Priority,
	}
	if len(r.Assignee) == 0 {
		return edit, nil
	}
	edit.SetAssignee = true
	if err := json.Unmarshal(r.Assignee, &edit.Assignee); err != nil {
		return lifecycle.SubtaskEdit{}, lifecycle.Validation("assignee must be a user id or null")
	}
	return edit, nil
}

type assignRequest struct {
	Assignee *int64 `json:"assignee"`
}

type finishedRequest struct {
	Finished *bool `json:"finished" binding:"required"`
}

func (s *Server) handleListSubtasks(c *gin.Context) {
	storyID, ok := parseID(c, "id")
	if !ok {
		return
	}
	subtasks, err := s.board.ListSubtasks(c.Request.Context(), storyID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"subtasks": subtasks})
}

func (s *Server) handleCreateSubtask(c *gin.Context) {
	storyID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req subtaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}

	st, err := s.board.CreateSubtask(c.Request.Context(), actorID(c), storyID, lifecycle.SubtaskInput{
		Description:  req.Description,
		TimeRequired: req.TimeRequired,
		Priority:     req.Priority,
		Assignee:     req.Assignee,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"subtask": st})
}

func (s *Server) handleGetSubtask(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	st, err := s.board.GetSubtask(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"subtask": st})
}

func (s *Server) handleEditSubtask(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req subtaskEditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}
	edit, err := req.edit()
	if err != nil {
		s.respondError(c, err)
		return
	}

	st, err := s.board.EditSubtask(c.Request.Context(), actorID(c), id, edit)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"subtask": st})
}

func (s *Server) handleDeleteSubtask(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := s.board.DeleteSubtask(c.Request.Context(), actorID(c), id); err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"status": "deleted"})
}

func (s *Server) handleAssignSubtask(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req assignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}

	s.respondSubtask(c, func() (models.Subtask, error) {
		return s.board.AssignSubtask(c.Request.Context(), actorID(c), id, req.Assignee)
	})
}

func (s *Server) handleClaimSubtask(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	s.respondSubtask(c, func() (models.Subtask, error) {
		return s.board.ClaimSubtask(c.Request.Context(), actorID(c), id)
	})
}

func (s *Server) handleAcceptSubtask(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	s.respondSubtask(c, func() (models.Subtask, error) {
		return s.board.AcceptSubtask(c.Request.Context(), actorID(c), id)
	})
}

func (s *Server) handleRejectSubtask(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	s.respondSubtask(c, func() (models.Subtask, error) {
		return s.board.RejectSubtask(c.Request.Context(), actorID(c), id)
	})
}

func (s *Server) handleFinishSubtask(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req finishedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}

	s.respondSubtask(c, func() (models.Subtask, error) {
		return s.board.SetSubtaskFinished(c.Request.Context(), actorID(c), id, *req.Finished)
	})
}

func (s *Server) respondSubtask(c *gin.Context, op func() (models.Subtask, error)) {
	st, err := op()
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"subtask": st})
}

func (s *Server) handleSubtaskHistory(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	rows, err := s.board.SubtaskHistory(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"history": rows})
}
