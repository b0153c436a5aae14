package websocket

// Domain event types pushed by the platform's producers.
const (
	EventNewNotification   = "new-notification"
	EventNotificationCount = "notification-count-update"
	EventNotificationRead  = "notification-read"
	EventUnreadCount       = "unread-count-update"
	EventNewMessage        = "new-message"
)

// NotificationCountPayload is the body of notification-count-update.
type NotificationCountPayload struct {
	Count int `json:"count"`
}

// NotificationReadPayload is the body of notification-read.
type NotificationReadPayload struct {
	NotificationID string `json:"notificationId"`
}

// UnreadCountPayload is the body of unread-count-update.
type UnreadCountPayload struct {
	ChannelID   string `json:"channelId"`
	CommunityID string `json:"communityId,omitempty"`
	UnreadCount int64  `json:"unreadCount"`
}

// Notifier addresses users and conversations by their well-known channels.
type Notifier struct {
	broadcaster *Broadcaster
}

func NewNotifier(b *Broadcaster) *Notifier {
	return &Notifier{broadcaster: b}
}

func (n *Notifier) NewNotification(userID string, notification any) (int, error) {
	return n.broadcaster.Broadcast(UserChannel(userID), EventNewNotification, notification)
}

func (n *Notifier) NotificationCount(userID string, count int) (int, error) {
	return n.broadcaster.Broadcast(UserChannel(userID), EventNotificationCount, NotificationCountPayload{Count: count})
}

func (n *Notifier) NotificationRead(userID, notificationID string) (int, error) {
	return n.broadcaster.Broadcast(UserChannel(userID), EventNotificationRead, NotificationReadPayload{NotificationID: notificationID})
}

func (n *Notifier) UnreadCount(userID string, payload UnreadCountPayload) (int, error) {
	return n.broadcaster.Broadcast(UserChannel(userID), EventUnreadCount, payload)
}

// NewMessage pushes a chat message to everyone viewing the conversation.
func (n *Notifier) NewMessage(conversationID string, message any) (int, error) {
	return n.broadcaster.Broadcast(ConversationChannel(conversationID), EventNewMessage, message)
}
