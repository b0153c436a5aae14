package protocol

import (
	"encoding/json"
	"fmt"
	"time"
)

// MessageType is the "type" discriminator carried by every frame on the wire.
type MessageType string

// Control and ephemeral message types. Domain broadcasts use arbitrary types.
const (
	// Client to server
	TypeAuth        MessageType = "auth"
	TypeSubscribe   MessageType = "subscribe"
	TypeUnsubscribe MessageType = "unsubscribe"
	TypeTyping      MessageType = "typing"
	TypeTypingStop  MessageType = "typing_stop"
	TypePresence    MessageType = "presence"

	// Both directions
	TypePing MessageType = "ping"
	TypePong MessageType = "pong"

	// Server to client
	TypeConnected         MessageType = "connected"
	TypeAuthSuccess       MessageType = "auth_success"
	TypeError             MessageType = "error"
	TypeUserTyping        MessageType = "user_typing"
	TypeUserStoppedTyping MessageType = "user_stopped_typing"
	TypePresenceUpdate    MessageType = "presence_update"
)

// String returns the string representation of the MessageType
func (mt MessageType) String() string {
	return string(mt)
}

// IsClientControl reports whether the type is one the server accepts from clients.
func (mt MessageType) IsClientControl() bool {
	switch mt {
	case TypeAuth, TypeSubscribe, TypeUnsubscribe, TypePing, TypePong,
		TypeTyping, TypeTypingStop, TypePresence:
		return true
	default:
		return false
	}
}

// IsServerControl reports whether the type is a channel-less control frame sent by the server.
func (mt MessageType) IsServerControl() bool {
	switch mt {
	case TypeConnected, TypeAuthSuccess, TypePing, TypePong, TypeError:
		return true
	default:
		return false
	}
}

// Message is the flat envelope used for control traffic in both directions.
// Only the fields relevant to Type are populated.
type Message struct {
	Type           MessageType     `json:"type"`
	Channel        string          `json:"channel,omitempty"`
	UserID         string          `json:"userId,omitempty"`
	ConnectionID   string          `json:"connectionId,omitempty"`
	Timestamp      int64           `json:"timestamp,omitempty"`
	ConversationID string          `json:"conversationId,omitempty"`
	UserName       string          `json:"userName,omitempty"`
	UserImage      string          `json:"userImage,omitempty"`
	IsOnline       *bool           `json:"isOnline,omitempty"`
	Error          string          `json:"error,omitempty"`
	Payload        json.RawMessage `json:"payload,omitempty"`
	TS             int64           `json:"ts,omitempty"`
}

// Validate checks the fields required by the client-originated message types.
func (m *Message) Validate() error {
	switch m.Type {
	case "":
		return fmt.Errorf("%w: missing type", ErrInvalidMessage)
	case TypeAuth:
		if m.UserID == "" {
			return fmt.Errorf("%w: auth requires userId", ErrInvalidMessage)
		}
	case TypeSubscribe, TypeUnsubscribe:
		if m.Channel == "" {
			return fmt.Errorf("%w: %s requires channel", ErrInvalidMessage, m.Type)
		}
	case TypeTyping:
		if m.ConversationID == "" || m.UserName == "" {
			return fmt.Errorf("%w: typing requires conversationId and userName", ErrInvalidMessage)
		}
	case TypeTypingStop:
		if m.ConversationID == "" {
			return fmt.Errorf("%w: typing_stop requires conversationId", ErrInvalidMessage)
		}
	case TypePresence:
		if m.ConversationID == "" || m.IsOnline == nil {
			return fmt.Errorf("%w: presence requires conversationId and isOnline", ErrInvalidMessage)
		}
	}
	return nil
}

// Now returns the wire timestamp (milliseconds since the epoch).
func Now() int64 {
	return time.Now().UnixMilli()
}

// NewConnectedMessage creates the handshake acknowledgment
func NewConnectedMessage(connectionID string) *Message {
	return &Message{Type: TypeConnected, ConnectionID: connectionID, Timestamp: Now()}
}

// NewAuthSuccessMessage creates the auth acknowledgment
func NewAuthSuccessMessage(userID string) *Message {
	return &Message{Type: TypeAuthSuccess, UserID: userID, Timestamp: Now()}
}

// NewErrorMessage creates a non-fatal protocol error notice
func NewErrorMessage(text string) *Message {
	return &Message{Type: TypeError, Error: text, Timestamp: Now()}
}

func NewPingMessage() *Message {
	return &Message{Type: TypePing, Timestamp: Now()}
}

func NewPongMessage() *Message {
	return &Message{Type: TypePong, Timestamp: Now()}
}

func NewAuthMessage(userID string) *Message {
	return &Message{Type: TypeAuth, UserID: userID}
}

func NewSubscribeMessage(channel string) *Message {
	return &Message{Type: TypeSubscribe, Channel: channel}
}

func NewUnsubscribeMessage(channel string) *Message {
	return &Message{Type: TypeUnsubscribe, Channel: channel}
}

// NewTypingMessage creates a typing indicator; userImage may be empty.
func NewTypingMessage(conversationID, userName, userImage string) *Message {
	return &Message{
		Type:           TypeTyping,
		ConversationID: conversationID,
		UserName:       userName,
		UserImage:      userImage,
	}
}

func NewTypingStopMessage(conversationID, userName string) *Message {
	return &Message{Type: TypeTypingStop, ConversationID: conversationID, UserName: userName}
}

func NewPresenceMessage(conversationID string, isOnline bool) *Message {
	return &Message{Type: TypePresence, ConversationID: conversationID, IsOnline: &isOnline}
}
