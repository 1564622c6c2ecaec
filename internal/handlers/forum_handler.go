package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/circuitlink/backend/internal/models"
	"github.com/circuitlink/backend/internal/services"
)

// ForumHandler handles forum creation, deletion and post listing routes.
type ForumHandler struct {
	forums    *services.ForumService
	structure *services.StructureService
	cascade   *services.CascadeService
}

// NewForumHandler creates a new ForumHandler.
func NewForumHandler(forums *services.ForumService, structure *services.StructureService, cascade *services.CascadeService) *ForumHandler {
	return &ForumHandler{forums: forums, structure: structure, cascade: cascade}
}

// RegisterForumRoutes registers forum-related routes.
func (h *ForumHandler) RegisterForumRoutes(g *echo.Group) {
	g.POST("/forums/create", h.Create)
	g.DELETE("/forums/delete/:forumId", h.Delete)
	g.POST("/forums/get/:commName/:forumSlug", h.GetPosts)
}

// Create creates a forum under a community group.
func (h *ForumHandler) Create(c echo.Context) error {
	var req models.CreateForumRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	id, err := h.forums.CreateForum(c.Request().Context(), req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, statusCreated("Forum created", id))
}

// Delete cascades a forum deletion through its posts and replies.
func (h *ForumHandler) Delete(c echo.Context) error {
	var req models.DeleteForumRequest
	if err := c.Bind(&req); err != nil || req.UserID == "" {
		req.UserID = callerID(c)
	}
	if req.UserID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "userId is required")
	}
	if err := h.cascade.DeleteForum(c.Request().Context(), c.Param("forumId"), req.UserID); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, statusOK("Forum deleted"))
}

// GetPosts lists a forum's posts in the requested order.
func (h *ForumHandler) GetPosts(c echo.Context) error {
	var req models.GetForumPostsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	if req.SortMode == "" {
		req.SortMode = services.SortNew
	}
	forum, posts, err := h.structure.GetForumPosts(c.Request().Context(), c.Param("commName"), c.Param("forumSlug"), req.SortMode)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{"status": "OK", "forum": forum, "posts": posts})
}
