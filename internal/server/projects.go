package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"scrumboard/internal/models"
	"scrumboard/internal/service"
)

type personRequest struct {
	Username string `json:"username" binding:"required"`
	Name     string `json:"name"`
	Lastname string `json:"lastname"`
	Email    string `json:"email"`
	Admin    bool   `json:"admin"`
}

type teamRequest struct {
	ProductOwner int64   `json:"product_owner" binding:"required"`
	ScrumMaster  int64   `json:"scrum_master" binding:"required"`
	Developers   []int64 `json:"developers" binding:"required,min=1"`
}

func (r teamRequest) team() service.Team {
	return service.Team{ProductOwner: r.ProductOwner, ScrumMaster: r.ScrumMaster, Developers: r.Developers}
}

type projectRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	teamRequest
}

func (s *Server) handleCreatePerson(c *gin.Context) {
	var req personRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}
	person, err := s.board.CreatePerson(c.Request.Context(), actorID(c), models.Person{
		Username: req.Username,
		Name:     req.Name,
		Lastname: req.Lastname,
		Email:    req.Email,
		Admin:    req.Admin,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"person": person})
}

func (s *Server) handleListPeople(c *gin.Context) {
	people, err := s.board.ListPeople(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"people": people})
}

func (s *Server) handleGetPerson(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	person, err := s.board.GetPerson(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"person": person})
}

// handleListProjects returns all available projects.
func (s *Server) handleListProjects(c *gin.Context) {
	projects, err := s.board.ListProjects(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"projects": projects})
}

// handleCreateProject creates a new project together with its team.
func (s *Server) handleCreateProject(c *gin.Context) {
	var req projectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}

	project, err := s.board.CreateProject(c.Request.Context(), actorID(c), service.ProjectInput{
		Title:       req.Title,
		Description: req.Description,
		Team:        req.team(),
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"project": project})
}

func (s *Server) handleGetProject(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	project, err := s.board.GetProject(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"project": project})
}

// handleUpdateMembers replaces the team of a project.
func (s *Server) handleUpdateMembers(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req teamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}

	project, err := s.board.UpdateProjectMembers(c.Request.Context(), actorID(c), id, req.team())
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"project": project})
}

func (s *Server) handleBoard(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	board, err := s.board.GetBoard(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"columns": board})
}

func (s *Server) handleListPosts(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	posts, err := s.board.ListPosts(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"posts": posts})
}
