package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/circuitlink/backend/internal/models"
	"github.com/circuitlink/backend/internal/services"
)

// UserHandler handles user registration, profiles and the friend-request
// workflow.
type UserHandler struct {
	users   *services.UserService
	friends *services.FriendService
	notifs  *services.NotificationService
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(users *services.UserService, friends *services.FriendService, notifs *services.NotificationService) *UserHandler {
	return &UserHandler{users: users, friends: friends, notifs: notifs}
}

// RegisterUserRoutes registers user-related routes.
func (h *UserHandler) RegisterUserRoutes(g *echo.Group) {
	g.POST("/users/create", h.Create)
	g.GET("/users/:id", h.Get)
	g.POST("/users/friend-request", h.SendFriendRequest)
	g.POST("/users/respond-friend-request", h.RespondFriendRequest)
	g.GET("/users/:id/notifications", h.GetNotifications)
}

// Create registers a user record after sign-up.
func (h *UserHandler) Create(c echo.Context) error {
	var req models.CreateUserRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	if err := h.users.Create(c.Request().Context(), req); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, statusOK("User created"))
}

// Get returns a user profile.
func (h *UserHandler) Get(c echo.Context) error {
	user, err := h.users.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{"status": "OK", "user": user})
}

// SendFriendRequest sends a friend request and notifies the recipient.
func (h *UserHandler) SendFriendRequest(c echo.Context) error {
	var req models.SendFriendRequestRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	id, err := h.friends.SendRequest(c.Request().Context(), req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, statusCreated("Friend request sent", id))
}

// RespondFriendRequest accepts or rejects a pending friend request.
func (h *UserHandler) RespondFriendRequest(c echo.Context) error {
	var req models.RespondFriendRequestRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	if err := h.friends.Respond(c.Request().Context(), req); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, statusOK("Friend request updated"))
}

// GetNotifications returns a user's notifications, newest first.
func (h *UserHandler) GetNotifications(c echo.Context) error {
	notifs, err := h.notifs.List(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{"status": "OK", "notifications": notifs})
}
