package models

import (
	"time"
)

/** --------------------ENTITIES-------------------- */
// ChannelUnread is one user's unread counter for one community channel.
// Channel-level counts are authoritative; community totals are summed from them.
type ChannelUnread struct {
	UserID        string `gorm:"primaryKey;size:64" json:"userId"`
	ChannelID     string `gorm:"primaryKey;size:64" json:"channelId"`
	CommunityID   string `gorm:"not null;size:64;index" json:"communityId"`
	CommunityName string `json:"communityName"`
	ChannelName   string `json:"channelName"`
	UnreadCount   int64  `gorm:"not null;default:0" json:"unreadCount"`

	LastMessageContent string     `json:"lastMessageContent,omitempty"`
	LastMessageAuthor  string     `json:"lastMessageAuthor,omitempty"`
	LastMessageImage   string     `json:"lastMessageImage,omitempty"`
	LastMessageAt      *time.Time `json:"lastMessageAt,omitempty"`
	LastReadAt         *time.Time `json:"lastReadAt,omitempty"`

	UpdatedAt time.Time `json:"updatedAt"`
}

/** -------------------- DTOs -------------------- */
// Response of GET /notifications/unread, also decoded by the polling client.
type UnreadResponse struct {
	Communities []CommunityUnread `json:"communities"`
}

type CommunityUnread struct {
	ID               string         `json:"id"`
	Name             string         `json:"name,omitempty"`
	TotalUnreadCount int64          `json:"totalUnreadCount"`
	Channels         []ChannelCount `json:"channels"`
	LastMessage      *LastMessage   `json:"lastMessage,omitempty"`
}

type ChannelCount struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	UnreadCount int64  `json:"unreadCount"`
}

type LastMessage struct {
	Content   string        `json:"content"`
	Author    MessageAuthor `json:"author"`
	CreatedAt time.Time     `json:"createdAt"`
}

type MessageAuthor struct {
	Name  string `json:"name"`
	Image string `json:"image,omitempty"`
}

// Request
type BroadcastRequest struct {
	Channel string         `json:"channel" binding:"required"`
	Type    string         `json:"type" binding:"required"`
	Payload map[string]any `json:"payload"`
}

// Response
type BroadcastResponse struct {
	Delivered int `json:"delivered"`
}

type MarkReadResponse struct {
	ChannelID   string `json:"channelId"`
	UnreadCount int64  `json:"unreadCount"`
}
