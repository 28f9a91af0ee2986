package groupchat

// Socket events emitted by the client.
const (
	EventJoinRoom     = "join-group-room"
	EventLeaveRoom    = "leave-group-room"
	EventSendMessage  = "send-group-message"
	EventTyping       = "group-typing"
	EventMessageSeen  = "group-message-seen"
	EventRestoreRooms = "restore-group-rooms"
)

// Socket events pushed by the platform.
const (
	EventNewMessage   = "new-group-message"
	EventMemberJoined = "group-member-joined"
	EventMemberLeft   = "group-member-left"
	EventUserTyping   = "group-user-typing"
	EventRoomJoined   = "group-room-joined"
	EventGroupError   = "group-error"
)

// Bus event kinds published by a Room.
const (
	KindRoomChanged       = "group.room_changed"
	KindMessagesChanged   = "group.messages_changed"
	KindMembersChanged    = "group.members_changed"
	KindTypingChanged     = "group.typing_changed"
	KindPaginationChanged = "group.pagination_changed"
	KindPageLoaded        = "group.page_loaded"
)

// PageLoaded is the payload of KindPageLoaded: the unique messages a history
// fetch added to the room.
type PageLoaded struct {
	GroupID  int64          `json:"groupId"`
	Messages []GroupMessage `json:"messages"`
}

type roomPayload struct {
	GroupID int64 `json:"groupId"`
	UserID  int64 `json:"userId"`
}

type sendPayload struct {
	GroupID     int64        `json:"groupId"`
	Content     string       `json:"content"`
	MessageType string       `json:"messageType"`
	Attachments []Attachment `json:"attachments"`
	ReplyToID   *int64       `json:"replyToId"`
}

type typingPayload struct {
	GroupID  int64 `json:"groupId"`
	IsTyping bool  `json:"isTyping"`
}

type seenPayload struct {
	GroupID   int64 `json:"groupId"`
	MessageID int64 `json:"messageId"`
}

type restorePayload struct {
	UserID int64 `json:"userId"`
}
