package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/circuitlink/backend/internal/models"
	"github.com/circuitlink/backend/internal/services"
)

// PostHandler handles post lifecycle, voting and search routes.
type PostHandler struct {
	posts     *services.PostService
	votes     *services.VoteService
	structure *services.StructureService
	cascade   *services.CascadeService
}

// NewPostHandler creates a new PostHandler.
func NewPostHandler(posts *services.PostService, votes *services.VoteService, structure *services.StructureService, cascade *services.CascadeService) *PostHandler {
	return &PostHandler{posts: posts, votes: votes, structure: structure, cascade: cascade}
}

// RegisterPostRoutes registers post-related routes.
func (h *PostHandler) RegisterPostRoutes(g *echo.Group) {
	g.POST("/posts/create", h.Create)
	g.PUT("/posts/:id", h.Update)
	g.DELETE("/posts/:id", h.Delete)
	g.POST("/posts/vote", h.Vote)
	g.GET("/posts/search", h.Search)
	g.GET("/posts/:id/replies", h.GetReplies)
}

// Create creates a post in a forum.
func (h *PostHandler) Create(c echo.Context) error {
	var req models.CreatePostRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	id, err := h.posts.Create(c.Request().Context(), req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, statusCreated("Post created", id))
}

// Update edits a post's title or contents.
func (h *PostHandler) Update(c echo.Context) error {
	var req models.UpdatePostRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	if err := h.posts.Update(c.Request().Context(), c.Param("id"), req); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, statusOK("Post updated"))
}

// Delete cascades a post deletion through its reply tree.
func (h *PostHandler) Delete(c echo.Context) error {
	userID := callerID(c)
	if userID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "userId is required")
	}
	if err := h.cascade.DeletePost(c.Request().Context(), c.Param("id"), userID); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, statusOK("Post deleted"))
}

// Vote applies a yay or nay vote to a post.
func (h *PostHandler) Vote(c echo.Context) error {
	var req models.VoteRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	if _, err := h.votes.VotePost(c.Request().Context(), req.ID, req.UserID, req.Type); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{})
}

// Search returns posts matching the q query parameter.
func (h *PostHandler) Search(c echo.Context) error {
	q := c.QueryParam("q")
	if q == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "q is required")
	}
	limit := int64(20)
	if raw := c.QueryParam("limit"); raw != "" {
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}
	posts, err := h.posts.Search(c.Request().Context(), q, limit)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{"status": "OK", "posts": posts})
}

// GetReplies returns a post's reply tree with authors resolved.
func (h *PostHandler) GetReplies(c echo.Context) error {
	replies, err := h.structure.FormattedReplies(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{"status": "OK", "replies": replies})
}
