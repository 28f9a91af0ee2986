package groupchat

// User is the account the daemon acts for.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// UserSummary is the sender profile denormalized onto each message.
type UserSummary struct {
	ID          int64  `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName,omitempty"`
	Avatar      string `json:"avatar,omitempty"`
}

// Attachment is a media item referenced by a message.
type Attachment struct {
	URL     string `json:"url"`
	Type    string `json:"type"`
	Name    string `json:"name,omitempty"`
	Size    int64  `json:"size,omitempty"`
	MediaID string `json:"mediaId,omitempty"`
}

// GroupMessage is one chat message. Messages are treated as immutable once
// they are stored in a room.
type GroupMessage struct {
	ID          int64         `json:"id"`
	GroupID     int64         `json:"groupId"`
	Content     string        `json:"content"`
	MessageType string        `json:"messageType"`
	SenderID    int64         `json:"senderId"`
	Sender      UserSummary   `json:"sender"`
	ReplyTo     *GroupMessage `json:"replyTo,omitempty"`
	Attachments []Attachment  `json:"attachments"`
	CreatedAt   string        `json:"created_at"`
	Timestamp   string        `json:"timestamp"`
}

// Role is a member's permission level in a group.
type Role string

const (
	RoleAdmin     Role = "ADMIN"
	RoleModerator Role = "MODERATOR"
	RoleMember    Role = "MEMBER"
)

// GroupMember is a participant of the active group.
type GroupMember struct {
	UserID      int64  `json:"userId"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName,omitempty"`
	Avatar      string `json:"avatar,omitempty"`
	Role        Role   `json:"role"`
	JoinedAt    string `json:"joinedAt"`
	IsActive    bool   `json:"isActive"`
}

// TypingUser is an ephemeral "is typing" marker.
type TypingUser struct {
	UserID    int64  `json:"userId"`
	Username  string `json:"username"`
	IsTyping  bool   `json:"isTyping"`
	Timestamp int64  `json:"timestamp"`
}

// Page is one backward page of history as returned by the platform API.
// Messages arrive newest-first.
type Page struct {
	Messages   []GroupMessage `json:"messages"`
	NextCursor *int64         `json:"nextCursor"`
	HasMore    bool           `json:"hasMore"`
}

// State is a point-in-time copy of a room.
type State struct {
	CurrentGroupID    int64          `json:"currentGroupId"`
	IsJoined          bool           `json:"isJoined"`
	Messages          []GroupMessage `json:"messages"`
	ActiveMembers     []GroupMember  `json:"activeMembers"`
	TypingUsers       []TypingUser   `json:"typingUsers"`
	CurrentCursor     *int64         `json:"currentCursor"`
	HasMoreMessages   bool           `json:"hasMoreMessages"`
	TotalMessages     int            `json:"totalMessages"`
	IsLoadingMessages bool           `json:"isLoadingMessages"`
	// LastFetchError is set when the latest history fetch failed. HasMoreMessages
	// is false in that case too.
	LastFetchError string `json:"lastFetchError,omitempty"`
}
