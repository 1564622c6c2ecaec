package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/circuitlink/backend/internal/services"
)

// NotificationHandler handles read/delete operations on notifications. The
// owning user comes from the auth context or the userId query parameter.
type NotificationHandler struct {
	notifs *services.NotificationService
}

// NewNotificationHandler creates a new NotificationHandler.
func NewNotificationHandler(notifs *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{notifs: notifs}
}

// RegisterNotificationRoutes registers notification-related routes.
func (h *NotificationHandler) RegisterNotificationRoutes(g *echo.Group) {
	g.PUT("/notifications/:id/read", h.MarkAsRead)
	g.DELETE("/notifications/:id", h.Delete)
}

// MarkAsRead flags a notification as read.
func (h *NotificationHandler) MarkAsRead(c echo.Context) error {
	userID := callerID(c)
	if userID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "userId is required")
	}
	if err := h.notifs.MarkAsRead(c.Request().Context(), userID, c.Param("id")); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, statusOK("Notification marked as read"))
}

// Delete removes a notification.
func (h *NotificationHandler) Delete(c echo.Context) error {
	userID := callerID(c)
	if userID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "userId is required")
	}
	if err := h.notifs.Delete(c.Request().Context(), userID, c.Param("id")); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, statusOK("Notification deleted"))
}
