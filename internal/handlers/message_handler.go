package handlers

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/circuitlink/backend/internal/models"
	"github.com/circuitlink/backend/internal/services"
	"github.com/circuitlink/backend/internal/ws"
	"github.com/circuitlink/backend/pkg/logger"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// MessageHandler handles chat routes and the live websocket endpoint.
type MessageHandler struct {
	messages *services.MessageService
	hub      *ws.Hub
}

// NewMessageHandler creates a new MessageHandler.
func NewMessageHandler(messages *services.MessageService, hub *ws.Hub) *MessageHandler {
	return &MessageHandler{messages: messages, hub: hub}
}

// RegisterMessageRoutes registers message-related routes.
func (h *MessageHandler) RegisterMessageRoutes(g *echo.Group) {
	g.POST("/messages/send", h.Send)
	g.GET("/messages/:channelId", h.History)
	g.GET("/ws", h.Connect)
}

// Send persists a message and pushes it to the recipient's live connections.
func (h *MessageHandler) Send(c echo.Context) error {
	var req models.SendMessageRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	id, err := h.messages.Send(c.Request().Context(), req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, statusCreated("Message sent", id))
}

// History returns a community channel's messages, or the caller's two-way
// conversation when the channel is another user.
func (h *MessageHandler) History(c echo.Context) error {
	msgs, err := h.messages.History(c.Request().Context(), c.Param("channelId"), callerID(c))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{"status": "OK", "messages": msgs})
}

// Connect upgrades the request to a websocket and registers it on the hub.
// The connection is held open until the client goes away; pushes flow from
// the hub, and inbound frames are discarded.
func (h *MessageHandler) Connect(c echo.Context) error {
	userID := callerID(c)
	if userID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "userId is required")
	}
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	h.hub.Add(userID, conn)
	logger.S.Debugw("websocket connected", "user", userID)

	go func() {
		defer h.hub.Remove(userID, conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
	return nil
}
