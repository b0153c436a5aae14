package websocket

// Channel naming conventions shared with producers and clients. The index
// treats channel names as opaque keys; these helpers only build them.

const (
	conversationPrefix = "conversation-"
	userPrefix         = "user-"
	typingPrefix       = "typing-"
	presencePrefix     = "presence-"
)

func ConversationChannel(conversationID string) string {
	return conversationPrefix + conversationID
}

func UserChannel(userID string) string {
	return userPrefix + userID
}

func TypingChannel(conversationID string) string {
	return typingPrefix + conversationID
}

func PresenceChannel(conversationID string) string {
	return presencePrefix + conversationID
}
