package handlers

import (
	"realtime-service/internal/api/middleware"
	"realtime-service/internal/websocket"

	"github.com/gin-gonic/gin"
	gorilla "github.com/gorilla/websocket"
)

type WSHandler struct {
	hub      *websocket.Hub
	upgrader *gorilla.Upgrader
}

func NewWSHandler(hub *websocket.Hub, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		hub:      hub,
		upgrader: websocket.NewUpgrader(allowedOrigins),
	}
}

// HandleWebSocket godoc
// @Summary WebSocket connection
// @Description Upgrade to the realtime WebSocket protocol. A token query parameter pins the connection to its user; without one the client must send an auth message.
// @Tags websocket
// @Param token query string false "JWT with a user_id claim"
// @Success 101 "Switching Protocols"
// @Failure 401 {object} map[string]interface{} "Invalid token"
// @Failure 403 {object} map[string]interface{} "Origin not allowed"
// @Failure 429 {object} map[string]interface{} "Too many connection attempts"
// @Router /ws [get]
func (h *WSHandler) HandleWebSocket(c *gin.Context) {
	websocket.ServeWS(h.hub, h.upgrader, c.Writer, c.Request, c.GetString(middleware.ContextUserID))
}

// GetStats godoc
// @Summary Hub statistics
// @Description Live connection, user and channel counts plus delivery counters
// @Tags websocket
// @Produce json
// @Success 200 {object} websocket.Stats
// @Router /ws/stats [get]
func (h *WSHandler) GetStats(c *gin.Context) {
	c.JSON(200, h.hub.Stats())
}
