package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/circuitlink/backend/internal/models"
	"github.com/circuitlink/backend/internal/services"
)

// ReplyHandler handles reply creation, deletion and voting routes.
type ReplyHandler struct {
	replies *services.ReplyService
	votes   *services.VoteService
	cascade *services.CascadeService
}

// NewReplyHandler creates a new ReplyHandler.
func NewReplyHandler(replies *services.ReplyService, votes *services.VoteService, cascade *services.CascadeService) *ReplyHandler {
	return &ReplyHandler{replies: replies, votes: votes, cascade: cascade}
}

// RegisterReplyRoutes registers reply-related routes.
func (h *ReplyHandler) RegisterReplyRoutes(g *echo.Group) {
	g.POST("/replies/create", h.Create)
	g.POST("/replies/vote", h.Vote)
	g.DELETE("/replies/:id", h.Delete)
}

// Create creates a reply on a post or another reply.
func (h *ReplyHandler) Create(c echo.Context) error {
	var req models.CreateReplyRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	id, err := h.replies.Create(c.Request().Context(), req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, statusCreated("Reply created", id))
}

// Vote applies a yay or nay vote to a reply.
func (h *ReplyHandler) Vote(c echo.Context) error {
	var req models.VoteRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	if _, err := h.votes.VoteReply(c.Request().Context(), req.ID, req.UserID, req.Type); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{})
}

// Delete cascades a reply deletion through its child subtree.
func (h *ReplyHandler) Delete(c echo.Context) error {
	userID := callerID(c)
	if userID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "userId is required")
	}
	if err := h.cascade.DeleteReply(c.Request().Context(), c.Param("id"), userID); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, statusOK("Reply deleted"))
}
