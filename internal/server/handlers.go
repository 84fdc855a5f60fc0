package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/luocen/notelens/internal/models"
	"github.com/luocen/notelens/internal/service"
	"github.com/luocen/notelens/internal/service/xiaohongshu"
)

type credentialsRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (s *Server) handleRegister(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and password are required"})
		return
	}

	user, err := s.Auth.Register(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrUsernameTaken) {
			c.JSON(http.StatusConflict, gin.H{"error": "Username already taken"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"user": user})
}

func (s *Server) handleLogin(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and password are required"})
		return
	}

	token, err := s.Auth.Login(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid username or password"})
			return
		}
		s.Logger.Error("Login failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Login failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token})
}

func (s *Server) handleLogout(c *gin.Context) {
	header := c.GetHeader("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		s.Auth.Logout(token)
	}
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

type createTaskRequest struct {
	CreatorProfileURL string                 `json:"creator_profile_url" binding:"required"`
	UserCookie        string                 `json:"user_cookie" binding:"required"`
	SelectionRules    *models.SelectionRules `json:"selection_rules"`
}

func (s *Server) handleCreateTask(c *gin.Context) {
	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "creator_profile_url and user_cookie are required"})
		return
	}

	creatorID := xiaohongshu.ParseCreatorID(req.CreatorProfileURL)
	if creatorID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Could not parse creator id from profile URL"})
		return
	}

	rules := models.DefaultSelectionRules()
	if req.SelectionRules != nil {
		rules = *req.SelectionRules
	}

	task := &models.Task{
		UserID:            c.GetUint("user_id"),
		CreatorProfileURL: req.CreatorProfileURL,
		CreatorID:         creatorID,
		UserCookie:        req.UserCookie,
		SelectionRules:    rules,
		Status:            models.TaskStatusPending,
	}
	if err := s.Store.CreateTask(task); err != nil {
		s.Logger.Error("Failed to create task", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create task"})
		return
	}

	// Feed discovery runs in the background; the task status tracks it.
	// The request context ends with the response, so detach.
	go s.Discovery.Discover(context.Background(), task.ID)

	c.JSON(http.StatusCreated, gin.H{"task": task})
}

func (s *Server) handleListTasks(c *gin.Context) {
	offset, limit := pagination(c)
	tasks, err := s.Store.ListTasksByUser(c.GetUint("user_id"), offset, limit)
	if err != nil {
		s.Logger.Error("Failed to list tasks", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list tasks"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"tasks": tasks})
}

func (s *Server) handleGetTask(c *gin.Context) {
	task, ok := s.ownedTask(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"task": task})
}

func (s *Server) handleDeleteTask(c *gin.Context) {
	task, ok := s.ownedTask(c)
	if !ok {
		return
	}

	if err := s.Store.DeleteTask(task.ID); err != nil {
		s.Logger.Error("Failed to delete task", zap.Uint("task_id", task.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete task"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Task deleted"})
}

func (s *Server) handleListTaskNotes(c *gin.Context) {
	task, ok := s.ownedTask(c)
	if !ok {
		return
	}

	offset, limit := pagination(c)
	notes, err := s.Store.ListNotesByTask(task.ID, offset, limit)
	if err != nil {
		s.Logger.Error("Failed to list notes", zap.Uint("task_id", task.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list notes"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"notes": notes})
}

func (s *Server) handleGetNote(c *gin.Context) {
	id, err := idParam(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid note id"})
		return
	}

	note, err := s.Store.GetNote(id)
	if err != nil {
		s.Logger.Error("Failed to get note", zap.Uint("note_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get note"})
		return
	}
	if note == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Note not found"})
		return
	}

	// Ownership goes through the parent task.
	task, err := s.Store.GetTask(note.TaskID)
	if err != nil || task == nil || task.UserID != c.GetUint("user_id") {
		c.JSON(http.StatusNotFound, gin.H{"error": "Note not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"note": note})
}

func (s *Server) handleRecentErrors(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit < 1 || limit > 500 {
		limit = 50
	}

	logs, err := s.Monitoring.RecentErrors(limit)
	if err != nil {
		s.Logger.Error("Failed to list error logs", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list error logs"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"errors": logs})
}

// ownedTask loads the task from the :id param and enforces ownership.
// It writes the error response itself when the task is unavailable.
func (s *Server) ownedTask(c *gin.Context) (*models.Task, bool) {
	id, err := idParam(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid task id"})
		return nil, false
	}

	task, err := s.Store.GetTask(id)
	if err != nil {
		s.Logger.Error("Failed to get task", zap.Uint("task_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get task"})
		return nil, false
	}
	if task == nil || task.UserID != c.GetUint("user_id") {
		c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
		return nil, false
	}
	return task, true
}

func idParam(c *gin.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	return uint(id), err
}

func pagination(c *gin.Context) (offset, limit int) {
	offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "50"))
	if offset < 0 {
		offset = 0
	}
	if limit < 1 || limit > 200 {
		limit = 50
	}
	return offset, limit
}
