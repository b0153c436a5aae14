package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"realtime-service/internal/models"
	"realtime-service/internal/websocket"
)

var ErrChannelNotFound = errors.New("channel not found")

type UnreadStore interface {
	ListForUser(ctx context.Context, userID string) ([]models.ChannelUnread, error)
	MarkRead(ctx context.Context, userID, channelID string, at time.Time) (*models.ChannelUnread, error)
}

// UnreadNotifier pushes count changes to the user's private channel.
// websocket.Notifier satisfies it.
type UnreadNotifier interface {
	UnreadCount(userID string, payload websocket.UnreadCountPayload) (int, error)
}

type UnreadService struct {
	store    UnreadStore
	notifier UnreadNotifier
	// notFound is the store's "no such row" error, mapped to ErrChannelNotFound.
	notFound error
	now      func() time.Time
}

func NewUnreadService(store UnreadStore, notifier UnreadNotifier, notFound error) *UnreadService {
	return &UnreadService{
		store:    store,
		notifier: notifier,
		notFound: notFound,
		now:      time.Now,
	}
}

// Summary builds the polling response. Community totals are summed from
// channel counts; the newest channel message becomes the community's lastMessage.
func (s *UnreadService) Summary(ctx context.Context, userID string) (*models.UnreadResponse, error) {
	rows, err := s.store.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return Summarize(rows), nil
}

func Summarize(rows []models.ChannelUnread) *models.UnreadResponse {
	resp := &models.UnreadResponse{Communities: []models.CommunityUnread{}}
	index := make(map[string]int)

	for _, row := range rows {
		i, ok := index[row.CommunityID]
		if !ok {
			i = len(resp.Communities)
			index[row.CommunityID] = i
			resp.Communities = append(resp.Communities, models.CommunityUnread{
				ID:       row.CommunityID,
				Name:     row.CommunityName,
				Channels: []models.ChannelCount{},
			})
		}
		community := &resp.Communities[i]
		community.Channels = append(community.Channels, models.ChannelCount{
			ID:          row.ChannelID,
			Name:        row.ChannelName,
			UnreadCount: row.UnreadCount,
		})
		community.TotalUnreadCount += row.UnreadCount

		if row.LastMessageAt != nil && (community.LastMessage == nil || row.LastMessageAt.After(community.LastMessage.CreatedAt)) {
			community.LastMessage = &models.LastMessage{
				Content:   row.LastMessageContent,
				Author:    models.MessageAuthor{Name: row.LastMessageAuthor, Image: row.LastMessageImage},
				CreatedAt: *row.LastMessageAt,
			}
		}
	}
	return resp
}

// MarkRead zeroes the channel counter and pushes the new count to the user's
// live connections.
func (s *UnreadService) MarkRead(ctx context.Context, userID, channelID string) (*models.ChannelUnread, error) {
	row, err := s.store.MarkRead(ctx, userID, channelID, s.now())
	if err != nil {
		if s.notFound != nil && errors.Is(err, s.notFound) {
			return nil, ErrChannelNotFound
		}
		return nil, err
	}

	if s.notifier != nil {
		payload := websocket.UnreadCountPayload{
			ChannelID:   row.ChannelID,
			CommunityID: row.CommunityID,
			UnreadCount: row.UnreadCount,
		}
		if _, err := s.notifier.UnreadCount(userID, payload); err != nil {
			slog.Warn("Failed to push unread count", "userID", userID, "channelID", channelID, "error", err)
		}
	}
	return row, nil
}
