package groupchat

import "slices"

// SetMembers replaces the active member list, keeping the last entry per user.
func (r *Room) SetMembers(members []GroupMember) {
	deduped := make([]GroupMember, 0, len(members))
	for _, m := range members {
		if i := slices.IndexFunc(deduped, func(x GroupMember) bool { return x.UserID == m.UserID }); i >= 0 {
			deduped[i] = m
			continue
		}
		deduped = append(deduped, m)
	}

	r.mu.Lock()
	r.state.ActiveMembers = deduped
	groupID := r.state.CurrentGroupID
	r.mu.Unlock()
	r.bus.Emit(KindMembersChanged, groupID)
}

// MemberJoined adds or replaces a member.
func (r *Room) MemberJoined(m GroupMember) {
	r.mu.Lock()
	if i := slices.IndexFunc(r.state.ActiveMembers, func(x GroupMember) bool { return x.UserID == m.UserID }); i >= 0 {
		r.state.ActiveMembers[i] = m
	} else {
		r.state.ActiveMembers = append(r.state.ActiveMembers, m)
	}
	groupID := r.state.CurrentGroupID
	r.mu.Unlock()
	r.bus.Emit(KindMembersChanged, groupID)
}

// MemberLeft removes a member. Unknown users are ignored.
func (r *Room) MemberLeft(userID int64) {
	r.mu.Lock()
	before := len(r.state.ActiveMembers)
	r.state.ActiveMembers = slices.DeleteFunc(r.state.ActiveMembers, func(x GroupMember) bool { return x.UserID == userID })
	changed := len(r.state.ActiveMembers) != before
	groupID := r.state.CurrentGroupID
	r.mu.Unlock()
	if changed {
		r.bus.Emit(KindMembersChanged, groupID)
	}
}

// SetTyping records a typing update. An update with IsTyping=false removes
// the user.
func (r *Room) SetTyping(t TypingUser) {
	if !t.IsTyping {
		r.RemoveTyping(t.UserID)
		return
	}
	r.mu.Lock()
	if i := slices.IndexFunc(r.state.TypingUsers, func(x TypingUser) bool { return x.UserID == t.UserID }); i >= 0 {
		r.state.TypingUsers[i] = t
	} else {
		r.state.TypingUsers = append(r.state.TypingUsers, t)
	}
	groupID := r.state.CurrentGroupID
	r.mu.Unlock()
	r.bus.Emit(KindTypingChanged, groupID)
}

// RemoveTyping clears a user's typing marker.
func (r *Room) RemoveTyping(userID int64) {
	r.mu.Lock()
	before := len(r.state.TypingUsers)
	r.state.TypingUsers = slices.DeleteFunc(r.state.TypingUsers, func(x TypingUser) bool { return x.UserID == userID })
	changed := len(r.state.TypingUsers) != before
	groupID := r.state.CurrentGroupID
	r.mu.Unlock()
	if changed {
		r.bus.Emit(KindTypingChanged, groupID)
	}
}

// MarkDisconnected records that the socket dropped: the platform forgets room
// membership with the connection, so the next join must be re-sent. Typing
// markers are stale at that point and are cleared.
func (r *Room) MarkDisconnected() {
	r.mu.Lock()
	r.state.IsJoined = false
	r.state.TypingUsers = []TypingUser{}
	groupID := r.state.CurrentGroupID
	r.mu.Unlock()
	r.bus.Emit(KindRoomChanged, groupID)
}
