package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"realtime-service/internal/api/middleware"
	"realtime-service/internal/models"
	"realtime-service/internal/services"

	"github.com/gin-gonic/gin"
)

type NotificationHandler struct {
	unreadService *services.UnreadService
}

func NewNotificationHandler(unreadService *services.UnreadService) *NotificationHandler {
	return &NotificationHandler{unreadService: unreadService}
}

// GetUnread godoc
// @Summary Unread counts
// @Description Per-channel unread counts grouped by community. Used as the polling fallback when push delivery is degraded.
// @Tags notifications
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.UnreadResponse
// @Failure 401 {object} map[string]interface{}
// @Failure 500 {object} models.ErrorResponse
// @Router /notifications/unread [get]
func (h *NotificationHandler) GetUnread(c *gin.Context) {
	userID := c.GetString(middleware.ContextUserID)

	resp, err := h.unreadService.Summary(c.Request.Context(), userID)
	if err != nil {
		slog.Error("Failed to load unread counts", "userID", userID, "error", err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Code:    http.StatusInternalServerError,
			Message: "Failed to load unread counts",
		})
		return
	}

	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusOK, resp)
}

// MarkChannelRead godoc
// @Summary Mark a channel read
// @Description Zero the caller's unread count for a channel and push the change to their live connections
// @Tags notifications
// @Produce json
// @Security BearerAuth
// @Param id path string true "Channel ID"
// @Success 200 {object} models.MarkReadResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /notifications/channels/{id}/read [post]
func (h *NotificationHandler) MarkChannelRead(c *gin.Context) {
	userID := c.GetString(middleware.ContextUserID)
	channelID := c.Param("id")

	row, err := h.unreadService.MarkRead(c.Request.Context(), userID, channelID)
	if err != nil {
		if errors.Is(err, services.ErrChannelNotFound) {
			c.JSON(http.StatusNotFound, models.ErrorResponse{
				Code:    http.StatusNotFound,
				Message: "Channel not found",
			})
			return
		}
		slog.Error("Failed to mark channel read", "userID", userID, "channelID", channelID, "error", err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Code:    http.StatusInternalServerError,
			Message: "Failed to mark channel read",
		})
		return
	}

	c.JSON(http.StatusOK, models.MarkReadResponse{ChannelID: row.ChannelID, UnreadCount: row.UnreadCount})
}
