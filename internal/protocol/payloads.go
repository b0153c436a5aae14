package protocol

import "encoding/json"

// TypingPayload is fanned out as user_typing / user_stopped_typing on typing-<conversationId>.
type TypingPayload struct {
	ConversationID string `json:"conversationId"`
	UserID         string `json:"userId"`
	UserName       string `json:"userName,omitempty"`
	UserImage      string `json:"userImage,omitempty"`
}

// PresencePayload is fanned out as presence_update on presence-<conversationId>.
type PresencePayload struct {
	ConversationID string `json:"conversationId"`
	UserID         string `json:"userId"`
	IsOnline       bool   `json:"isOnline"`
}

// BroadcastRequest is the producer-side envelope accepted over HTTP and Kafka.
type BroadcastRequest struct {
	Channel string          `json:"channel" binding:"required"`
	Type    string          `json:"type" binding:"required"`
	Payload json.RawMessage `json:"payload"`
}
