package handlers

import (
	"net/http"

	"realtime-service/internal/models"
	"realtime-service/internal/websocket"

	"github.com/gin-gonic/gin"
)

// Publisher fans an event out to a channel. websocket.Broadcaster satisfies it.
type Publisher interface {
	Broadcast(channel, eventType string, payload any) (int, error)
}

type BroadcastHandler struct {
	publisher Publisher
}

func NewBroadcastHandler(publisher Publisher) *BroadcastHandler {
	return &BroadcastHandler{publisher: publisher}
}

// Broadcast godoc
// @Summary Broadcast an event
// @Description Deliver an event to every connection subscribed to the channel. Requires a token with the broadcast scope.
// @Tags broadcast
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.BroadcastRequest true "Event to broadcast"
// @Success 200 {object} models.BroadcastResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} map[string]interface{}
// @Failure 403 {object} map[string]interface{}
// @Router /broadcast [post]
func (h *BroadcastHandler) Broadcast(c *gin.Context) {
	var req models.BroadcastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Code:    http.StatusBadRequest,
			Message: "Invalid request data",
			Details: err.Error(),
		})
		return
	}

	delivered, err := h.publisher.Broadcast(req.Channel, req.Type, req.Payload)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Code:    http.StatusBadRequest,
			Message: "Failed to broadcast",
			Details: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, models.BroadcastResponse{Delivered: delivered})
}

var _ Publisher = (*websocket.Broadcaster)(nil)
