package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/circuitlink/backend/internal/models"
	"github.com/circuitlink/backend/internal/services"
)

// CommunityHandler handles community lifecycle, membership and structure routes.
type CommunityHandler struct {
	communities *services.CommunityService
	structure   *services.StructureService
	cascade     *services.CascadeService
}

// NewCommunityHandler creates a new CommunityHandler.
func NewCommunityHandler(communities *services.CommunityService, structure *services.StructureService, cascade *services.CascadeService) *CommunityHandler {
	return &CommunityHandler{communities: communities, structure: structure, cascade: cascade}
}

// RegisterCommunityRoutes registers community-related routes.
func (h *CommunityHandler) RegisterCommunityRoutes(g *echo.Group) {
	g.GET("/comm/get-structure/:name", h.GetStructure)
	g.POST("/comm/create", h.Create)
	g.POST("/comm/join", h.Join)
	g.POST("/comm/leave", h.Leave)
	g.POST("/comm/create-group", h.CreateGroup)
	g.POST("/comm/blacklist", h.Blacklist)
	g.DELETE("/comm/delete-group/:groupId", h.DeleteGroup)
}

// GetStructure returns the nested community -> groups -> forums tree.
func (h *CommunityHandler) GetStructure(c echo.Context) error {
	structure, err := h.structure.GetStructure(c.Request().Context(), c.Param("name"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{"status": "OK", "community": structure})
}

// Create creates a new community owned by the caller.
func (h *CommunityHandler) Create(c echo.Context) error {
	var req models.CreateCommunityRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	id, err := h.communities.Create(c.Request().Context(), req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, statusCreated("Community created", id))
}

// Join adds the caller to a community.
func (h *CommunityHandler) Join(c echo.Context) error {
	var req models.MembershipRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	if err := h.communities.Join(c.Request().Context(), req.CommName, req.UserID); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, statusOK("Joined community"))
}

// Leave removes the caller from a community.
func (h *CommunityHandler) Leave(c echo.Context) error {
	var req models.MembershipRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	if err := h.communities.Leave(c.Request().Context(), req.CommName, req.UserID); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, statusOK("Left community"))
}

// CreateGroup creates a group under a community.
func (h *CommunityHandler) CreateGroup(c echo.Context) error {
	var req models.CreateGroupRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	id, err := h.communities.CreateGroup(c.Request().Context(), req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, map[string]any{"status": "OK", "message": "Group created", "groupId": id})
}

// Blacklist bans a user from a community.
func (h *CommunityHandler) Blacklist(c echo.Context) error {
	var req models.BlacklistRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	if err := h.communities.BlacklistUser(c.Request().Context(), req.CommName, req.TargetID, req.UserID); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, statusOK("User blacklisted"))
}

// DeleteGroup cascades a group deletion through its forums, posts and replies.
func (h *CommunityHandler) DeleteGroup(c echo.Context) error {
	userID := callerID(c)
	if err := h.cascade.DeleteGroup(c.Request().Context(), c.Param("groupId"), userID); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, statusOK("Group deleted"))
}
