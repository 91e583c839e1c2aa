package server

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
)

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// mountStatic serves the board client from staticDir. Unknown non API
// paths fall back to index.html so client side routes survive a reload.
func (s *Server) mountStatic() {
	s.engine.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api/") || s.index() == "" {
			c.JSON(http.StatusNotFound, gin.H{"error": "endpoint not found", "kind": "not_found"})
			return
		}
		c.File(s.index())
	})

	if s.staticDir == "" {
		s.logger.Warn("static directory not configured; API only mode")
		return
	}
	if !isDir(s.staticDir) {
		s.logger.Warn("static directory missing", "path", s.staticDir)
		return
	}
	if index := s.index(); index != "" {
		s.engine.GET("/", func(c *gin.Context) { c.File(index) })
	} else {
		s.logger.Warn("index.html not found", "dir", s.staticDir)
	}

	if assets := filepath.Join(s.staticDir, "assets"); isDir(assets) {
		s.engine.StaticFS("/assets", gin.Dir(assets, false))
	}
	if favicon := filepath.Join(s.staticDir, "favicon.ico"); isFile(favicon) {
		s.engine.StaticFile("/favicon.ico", favicon)
	}
}

func (s *Server) index() string {
	if s.staticDir == "" {
		return ""
	}
	path := filepath.Join(s.staticDir, "index.html")
	if !isFile(path) {
		return ""
	}
	return path
}
