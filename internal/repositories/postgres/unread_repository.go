package postgres

import (
	"context"
	"time"

	"realtime-service/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UnreadRepository struct {
	db *gorm.DB
}

func NewUnreadRepository(db *gorm.DB) *UnreadRepository {
	return &UnreadRepository{db}
}

// ListForUser returns the user's channel counters grouped by community.
func (r *UnreadRepository) ListForUser(ctx context.Context, userID string) ([]models.ChannelUnread, error) {
	var rows []models.ChannelUnread
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("community_id, channel_name").
		Find(&rows).Error
	return rows, err
}

// MarkRead zeroes one counter. It returns gorm.ErrRecordNotFound when the
// user has no counter for the channel.
func (r *UnreadRepository) MarkRead(ctx context.Context, userID, channelID string, at time.Time) (*models.ChannelUnread, error) {
	result := r.db.WithContext(ctx).
		Model(&models.ChannelUnread{}).
		Where("user_id = ? AND channel_id = ?", userID, channelID).
		Updates(map[string]interface{}{"unread_count": 0, "last_read_at": at})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}

	var row models.ChannelUnread
	err := r.db.WithContext(ctx).First(&row, "user_id = ? AND channel_id = ?", userID, channelID).Error
	return &row, err
}

// Upsert inserts the counter or overwrites its mutable columns.
func (r *UnreadRepository) Upsert(ctx context.Context, row *models.ChannelUnread) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "channel_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"community_name", "channel_name", "unread_count",
			"last_message_content", "last_message_author", "last_message_image", "last_message_at",
			"updated_at",
		}),
	}).Create(row).Error
}
