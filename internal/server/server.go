package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"scrumboard/internal/lifecycle"
	"scrumboard/internal/service"
)

// ActorHeader carries the id of the authenticated user.
const ActorHeader = "X-User-ID"

const actorKey = "actor"

// Server provides HTTP handlers for the Scrum board backend.
type Server struct {
	engine    *gin.Engine
	board     *service.Manager
	logger    *slog.Logger
	staticDir string
}

// New constructs the HTTP server with routes and middleware configured.
func New(board *service.Manager, logger *slog.Logger, staticDir string) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(gin.LoggerWithWriter(gin.DefaultWriter, "/api"))

	srv := &Server{
		engine:    router,
		board:     board,
		logger:    logger,
		staticDir: staticDir,
	}

	srv.registerRoutes()
	return srv
}

// Engine exposes the underlying Gin engine.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerRoutes() {
	api := s.engine.Group("/api")
	api.GET("/healthz", s.handleHealth)
	// The first user is created before anyone can authenticate.
	api.POST("/people", s.optionalActor, s.handleCreatePerson)

	authed := api.Group("", s.requireActor)
	{
		authed.GET("/people", s.handleListPeople)
		authed.GET("/people/:id", s.handleGetPerson)

		projects := authed.Group("/projects")
		{
			projects.GET("", s.handleListProjects)
			projects.POST("", s.handleCreateProject)
			projects.GET(":id", s.handleGetProject)
			projects.PUT(":id/members", s.handleUpdateMembers)
			projects.GET(":id/board", s.handleBoard)
			projects.GET(":id/posts", s.handleListPosts)
			projects.GET(":id/stories", s.handleListStories)
			projects.POST(":id/stories", s.handleCreateStory)
			projects.GET(":id/sprints", s.handleListSprints)
			projects.POST(":id/sprints", s.handleCreateSprint)
		}

		stories := authed.Group("/stories")
		{
			stories.GET(":id", s.handleGetStory)
			stories.PUT(":id", s.handleEditStory)
			stories.DELETE(":id", s.handleDeleteStory)
			stories.PUT(":id/estimate", s.handleEstimateStory)
			stories.PUT(":id/move", s.handleMoveStory)
			stories.PUT(":id/sprint", s.handleAssignStory)
			stories.POST(":id/realize", s.handleRealizeStory)
			stories.GET(":id/rejections", s.handleRejections)
			stories.GET(":id/subtasks", s.handleListSubtasks)
			stories.POST(":id/subtasks", s.handleCreateSubtask)
		}

		subtasks := authed.Group("/subtasks")
		{
			subtasks.GET(":id", s.handleGetSubtask)
			subtasks.PUT(":id", s.handleEditSubtask)
			subtasks.DELETE(":id", s.handleDeleteSubtask)
			subtasks.PUT(":id/assign", s.handleAssignSubtask)
			subtasks.PUT(":id/claim", s.handleClaimSubtask)
			subtasks.PUT(":id/accept", s.handleAcceptSubtask)
			subtasks.PUT(":id/reject", s.handleRejectSubtask)
			subtasks.PUT(":id/finished", s.handleFinishSubtask)
			subtasks.GET(":id/history", s.handleSubtaskHistory)
			subtasks.GET(":id/remaining", s.handleRemaining)
			subtasks.GET(":id/timelogs", s.handleListTimeLogs)
			subtasks.POST(":id/timelogs/start", s.handleStartTimeLog)
			subtasks.POST(":id/timelogs/stop", s.handleStopTimeLog)
			subtasks.POST(":id/timelogs/manual", s.handleManualTimeLog)
		}

		timelogs := authed.Group("/timelogs")
		{
			timelogs.GET("active", s.handleActiveTimeLog)
			timelogs.PUT(":id", s.handleUpdateTimeLog)
			timelogs.DELETE(":id", s.handleDeleteTimeLog)
		}

		sprints := authed.Group("/sprints")
		{
			sprints.GET(":id", s.handleGetSprint)
			sprints.PUT(":id", s.handleEditSprint)
			sprints.DELETE(":id", s.handleDeleteSprint)
			sprints.GET(":id/stories", s.handleSprintStories)
			sprints.POST(":id/complete", s.handleCompleteSprint)
			sprints.GET(":id/burndown", s.handleBurndown)
		}
	}

	s.mountStatic()
}

// handleHealth provides a basic readiness endpoint.
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func parseActor(c *gin.Context) (int64, bool, error) {
	raw := c.GetHeader(ActorHeader)
	if raw == "" {
		return 0, false, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false, errors.New("invalid " + ActorHeader + " header")
	}
	return id, true, nil
}

// requireActor rejects requests that do not name the acting user.
func (s *Server) requireActor(c *gin.Context) {
	id, ok, err := parseActor(c)
	if err != nil || !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required", "kind": "unauthorized"})
		return
	}
	c.Set(actorKey, id)
	c.Next()
}

func (s *Server) optionalActor(c *gin.Context) {
	id, _, err := parseActor(c)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error(), "kind": "unauthorized"})
		return
	}
	c.Set(actorKey, id)
	c.Next()
}

func actorID(c *gin.Context) int64 {
	return c.GetInt64(actorKey)
}

// parseID converts a path parameter to int64 with error handling.
func parseID(c *gin.Context, name string) (int64, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid identifier", "kind": "validation"})
		return 0, false
	}
	return id, true
}

// statusOf maps an error kind to its HTTP status.
func statusOf(err error) int {
	switch {
	case errors.Is(err, lifecycle.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, lifecycle.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, lifecycle.ErrConflict), errors.Is(err, lifecycle.ErrIncompleteSubtasks):
		return http.StatusConflict
	case errors.Is(err, lifecycle.ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// respondError logs the error and returns a JSON payload.
func (s *Server) respondError(c *gin.Context, err error) {
	status := statusOf(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", slog.String("path", c.FullPath()), slog.String("error", msg))
		msg = "internal server error"
	} else {
		s.logger.Warn("request rejected", slog.String("path", c.FullPath()), slog.String("error", msg))
	}
	c.JSON(status, gin.H{"error": msg, "kind": lifecycle.KindName(err)})
}

// badRequest reports a body that failed to bind.
func (s *Server) badRequest(c *gin.Context, err error) {
	s.respondError(c, lifecycle.Validation("%s", err.Error()))
}

// respondSuccess wraps a payload in a JSON envelope for consistency.
func respondSuccess(c *gin.Context, status int, payload any) {
	if payload == nil {
		c.Status(status)
		return
	}
	c.JSON(status, payload)
}
