package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"scrumboard/internal/lifecycle"
)

type stopRequest struct {
	EstimatedRemaining *float64 `json:"estimated_remaining"`
}

type manualLogRequest struct {
	Date               string   `json:"date" binding:"required"`
	Duration           float64  `json:"duration"`
	EstimatedRemaining *float64 `json:"estimated_remaining"`
}

type logEditRequest struct {
	Duration           *float64 `json:"duration"`
	EstimatedRemaining *float64 `json:"estimated_remaining"`
}

func (s *Server) handleListTimeLogs(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	logs, err := s.board.ListTimeLogs(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"timelogs": logs})
}

func (s *Server) handleStartTimeLog(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	log, err := s.board.StartTimeLog(c.Request.Context(), actorID(c), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"timelog": log})
}

func (s *Server) handleStopTimeLog(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req stopRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}

	log, err := s.board.StopTimeLog(c.Request.Context(), actorID(c), id, req.EstimatedRemaining)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"timelog": log})
}

// handleManualTimeLog records hours for a past day of the sprint.
func (s *Server) handleManualTimeLog(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req manualLogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}
	date, err := lifecycle.ParseDate(req.Date)
	if err != nil {
		s.respondError(c, err)
		return
	}

	log, err := s.board.ManualTimeLog(c.Request.Context(), actorID(c), id, lifecycle.ManualEntry{
		Date:               date,
		Duration:           req.Duration,
		EstimatedRemaining: req.EstimatedRemaining,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"timelog": log})
}

func (s *Server) handleUpdateTimeLog(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req logEditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}

	log, err := s.board.UpdateTimeLog(c.Request.Context(), actorID(c), id, lifecycle.LogEdit{
		Duration:           req.Duration,
		EstimatedRemaining: req.EstimatedRemaining,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"timelog": log})
}

func (s *Server) handleDeleteTimeLog(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := s.board.DeleteTimeLog(c.Request.Context(), actorID(c), id); err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"status": "deleted"})
}

// handleActiveTimeLog reports what the caller is tracking right now.
func (s *Server) handleActiveTimeLog(c *gin.Context) {
	log, err := s.board.ActiveTimeLog(c.Request.Context(), actorID(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"timelog": log})
}

func (s *Server) handleRemaining(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	summary, err := s.board.Remaining(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, summary)
}
