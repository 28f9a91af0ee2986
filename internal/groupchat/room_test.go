package groupchat

import (
	"testing"
	"time"

	"github.com/matheus3301/gchat/internal/bus"
)

func TestSetMessagesReversesServerOrder(t *testing.T) {
	r, _, _ := connectedRoom(t)
	r.SetMessages([]GroupMessage{msg(3), msg(2), msg(1)})

	s := r.Snapshot()
	equalIDs(t, s.Messages, 1, 2, 3)
	if s.TotalMessages != 3 {
		t.Errorf("TotalMessages = %d, want 3", s.TotalMessages)
	}
}

func TestSetMessagesDoesNotAliasInput(t *testing.T) {
	r, _, _ := connectedRoom(t)
	in := []GroupMessage{msg(2), msg(1)}
	r.SetMessages(in)
	if in[0].ID != 2 {
		t.Errorf("input slice was reordered: %v", ids(in))
	}
}

func TestAddMessageDropsDuplicates(t *testing.T) {
	r, _, _ := connectedRoom(t)

	sequence := []int64{1, 2, 2, 3, 1, 3, 4}
	for _, id := range sequence {
		r.AddMessage(msg(id))
	}

	s := r.Snapshot()
	equalIDs(t, s.Messages, 1, 2, 3, 4)

	seen := map[int64]bool{}
	for _, m := range s.Messages {
		if seen[m.ID] {
			t.Fatalf("duplicate id %d in %v", m.ID, ids(s.Messages))
		}
		seen[m.ID] = true
	}
}

func TestAddMessageReportsDuplicate(t *testing.T) {
	r, _, _ := connectedRoom(t)
	if !r.AddMessage(msg(1)) {
		t.Error("first AddMessage() = false, want true")
	}
	if r.AddMessage(msg(1)) {
		t.Error("second AddMessage() = true, want false")
	}
}

func TestJoinGroupRoomEmits(t *testing.T) {
	r, em, _ := connectedRoom(t)

	if err := r.JoinGroupRoom(42); err != nil {
		t.Fatalf("JoinGroupRoom() error = %v", err)
	}

	s := r.Snapshot()
	if s.CurrentGroupID != 42 || !s.IsJoined {
		t.Errorf("state = group %d joined %v, want group 42 joined", s.CurrentGroupID, s.IsJoined)
	}
	sent := em.sent()
	if len(sent) != 1 {
		t.Fatalf("got %d events, want 1", len(sent))
	}
	if sent[0].Event != EventJoinRoom {
		t.Errorf("event = %q, want %q", sent[0].Event, EventJoinRoom)
	}
	if sent[0].Payload["groupId"] != float64(42) || sent[0].Payload["userId"] != float64(7) {
		t.Errorf("payload = %v, want groupId 42 userId 7", sent[0].Payload)
	}
}

func TestJoinSameGroupIsNoop(t *testing.T) {
	r, em, _ := connectedRoom(t)
	_ = r.JoinGroupRoom(42)
	_ = r.JoinGroupRoom(42)

	if n := len(em.sent()); n != 1 {
		t.Errorf("got %d events, want 1 (second join is a no-op)", n)
	}
}

func TestJoinWhileDisconnectedIsSilent(t *testing.T) {
	r, em, _ := connectedRoom(t)
	em.setConnected(false)

	if err := r.JoinGroupRoom(42); err != ErrNotConnected {
		t.Errorf("JoinGroupRoom() error = %v, want ErrNotConnected", err)
	}
	if n := len(em.sent()); n != 0 {
		t.Errorf("got %d events while disconnected, want 0", n)
	}
	s := r.Snapshot()
	if s.CurrentGroupID != 42 {
		t.Errorf("CurrentGroupID = %d, want 42 (remembered for reconnect)", s.CurrentGroupID)
	}
	if s.IsJoined {
		t.Error("IsJoined = true, want false while disconnected")
	}

	// Once connected, joining the same group actually sends.
	em.setConnected(true)
	if err := r.JoinGroupRoom(42); err != nil {
		t.Fatalf("JoinGroupRoom() after reconnect error = %v", err)
	}
	if !r.Snapshot().IsJoined {
		t.Error("IsJoined = false after connected join")
	}
}

func TestJoinWithoutUserIsSilent(t *testing.T) {
	em := &fakeEmitter{connected: true}
	r := NewRoom(Options{Emitter: em})

	if err := r.JoinGroupRoom(42); err != ErrNoUser {
		t.Errorf("JoinGroupRoom() error = %v, want ErrNoUser", err)
	}
	if n := len(em.sent()); n != 0 {
		t.Errorf("got %d events without user, want 0", n)
	}
}

func TestSwitchingGroupsTearsDownState(t *testing.T) {
	r, em, _ := connectedRoom(t)
	_ = r.JoinGroupRoom(1)
	r.AddMessage(msg(10))
	r.MemberJoined(GroupMember{UserID: 3})
	r.SetTyping(TypingUser{UserID: 3, IsTyping: true})

	_ = r.JoinGroupRoom(2)

	s := r.Snapshot()
	if s.CurrentGroupID != 2 {
		t.Errorf("CurrentGroupID = %d, want 2", s.CurrentGroupID)
	}
	if len(s.Messages) != 0 || len(s.ActiveMembers) != 0 || len(s.TypingUsers) != 0 {
		t.Errorf("state not cleared on switch: %d msgs, %d members, %d typing",
			len(s.Messages), len(s.ActiveMembers), len(s.TypingUsers))
	}

	sent := em.sent()
	var events []string
	for _, e := range sent {
		events = append(events, e.Event)
	}
	want := []string{EventJoinRoom, EventLeaveRoom, EventJoinRoom}
	if len(events) != len(want) {
		t.Fatalf("events = %v, want %v", events, want)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Fatalf("events = %v, want %v", events, want)
		}
	}
	if sent[1].Payload["groupId"] != float64(1) {
		t.Errorf("leave payload = %v, want groupId 1", sent[1].Payload)
	}
}

func TestLeaveGroupRoomResetsState(t *testing.T) {
	r, em, _ := connectedRoom(t)
	_ = r.JoinGroupRoom(42)
	r.SetMessages([]GroupMessage{msg(2), msg(1)})
	r.SetMembers([]GroupMember{{UserID: 1}, {UserID: 2}})
	r.SetTyping(TypingUser{UserID: 2, IsTyping: true})

	if err := r.LeaveGroupRoom(); err != nil {
		t.Fatalf("LeaveGroupRoom() error = %v", err)
	}

	s := r.Snapshot()
	if len(s.Messages) != 0 || len(s.ActiveMembers) != 0 || len(s.TypingUsers) != 0 {
		t.Errorf("state not cleared: %d msgs, %d members, %d typing",
			len(s.Messages), len(s.ActiveMembers), len(s.TypingUsers))
	}
	if s.CurrentGroupID != 0 || s.IsJoined {
		t.Errorf("CurrentGroupID = %d joined = %v, want 0 / false", s.CurrentGroupID, s.IsJoined)
	}
	last := em.sent()[len(em.sent())-1]
	if last.Event != EventLeaveRoom || last.Payload["groupId"] != float64(42) {
		t.Errorf("last event = %v, want leave-group-room for 42", last)
	}
}

func TestLeaveGroupRoomResetsEvenWhenDisconnected(t *testing.T) {
	r, em, _ := connectedRoom(t)
	_ = r.JoinGroupRoom(42)
	r.AddMessage(msg(1))
	em.setConnected(false)

	if err := r.LeaveGroupRoom(); err != ErrNotConnected {
		t.Errorf("LeaveGroupRoom() error = %v, want ErrNotConnected", err)
	}
	s := r.Snapshot()
	if len(s.Messages) != 0 || s.CurrentGroupID != 0 {
		t.Errorf("state = %d msgs group %d, want empty and 0", len(s.Messages), s.CurrentGroupID)
	}
}

func TestSendMessageDoesNotAppendOptimistically(t *testing.T) {
	r, em, _ := connectedRoom(t)
	_ = r.JoinGroupRoom(42)

	reply := int64(5)
	if err := r.SendMessage("hello", nil, &reply); err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}
	if n := len(r.Snapshot().Messages); n != 0 {
		t.Fatalf("got %d messages after send, want 0 until echoed", n)
	}

	last := em.sent()[len(em.sent())-1]
	if last.Event != EventSendMessage {
		t.Fatalf("event = %q, want %q", last.Event, EventSendMessage)
	}
	p := last.Payload
	if p["groupId"] != float64(42) || p["content"] != "hello" || p["messageType"] != "text" || p["replyToId"] != float64(5) {
		t.Errorf("payload = %v", p)
	}
	if atts, ok := p["attachments"].([]any); !ok || len(atts) != 0 {
		t.Errorf("attachments = %v, want empty list", p["attachments"])
	}

	// The echo is what makes it appear, exactly once.
	echo := msg(100)
	r.AddMessage(echo)
	r.AddMessage(echo)
	equalIDs(t, r.Snapshot().Messages, 100)
}

func TestSendMessageTypeFromAttachment(t *testing.T) {
	r, em, _ := connectedRoom(t)
	_ = r.JoinGroupRoom(42)

	if err := r.SendMessage("", []Attachment{{URL: "https://cdn/x.jpg", Type: "image"}}, nil); err != nil {
		t.Fatal(err)
	}
	last := em.sent()[len(em.sent())-1]
	if last.Payload["messageType"] != "image" {
		t.Errorf("messageType = %v, want image", last.Payload["messageType"])
	}
	if last.Payload["replyToId"] != nil {
		t.Errorf("replyToId = %v, want null", last.Payload["replyToId"])
	}
}

func TestSendMessageRejections(t *testing.T) {
	r, em, _ := connectedRoom(t)

	if err := r.SendMessage("", nil, nil); err != ErrEmptyMessage {
		t.Errorf("empty SendMessage() error = %v, want ErrEmptyMessage", err)
	}
	if err := r.SendMessage("hi", nil, nil); err != ErrNoGroup {
		t.Errorf("SendMessage() outside room error = %v, want ErrNoGroup", err)
	}
	if n := len(em.sent()); n != 0 {
		t.Errorf("got %d events, want 0", n)
	}
}

func TestThinEmitWrappers(t *testing.T) {
	r, em, _ := connectedRoom(t)
	_ = r.JoinGroupRoom(42)

	if err := r.SetTypingStatus(true); err != nil {
		t.Fatal(err)
	}
	if err := r.MarkMessageAsSeen(9); err != nil {
		t.Fatal(err)
	}
	if err := r.RestoreGroupRoom(); err != nil {
		t.Fatal(err)
	}

	sent := em.sent()[1:]
	tests := []struct {
		event string
		key   string
		value any
	}{
		{EventTyping, "isTyping", true},
		{EventMessageSeen, "messageId", float64(9)},
		{EventRestoreRooms, "userId", float64(7)},
	}
	if len(sent) != len(tests) {
		t.Fatalf("got %d events, want %d", len(sent), len(tests))
	}
	for i, tt := range tests {
		if sent[i].Event != tt.event {
			t.Errorf("event[%d] = %q, want %q", i, sent[i].Event, tt.event)
		}
		if sent[i].Payload[tt.key] != tt.value {
			t.Errorf("event[%d] %s = %v, want %v", i, tt.key, sent[i].Payload[tt.key], tt.value)
		}
	}
}

func TestThinEmitWrappersNoopWithoutContext(t *testing.T) {
	r, em, _ := connectedRoom(t)

	if err := r.SetTypingStatus(true); err != ErrNoGroup {
		t.Errorf("SetTypingStatus() error = %v, want ErrNoGroup", err)
	}
	if err := r.MarkMessageAsSeen(1); err != ErrNoGroup {
		t.Errorf("MarkMessageAsSeen() error = %v, want ErrNoGroup", err)
	}
	if err := r.RestoreGroupRoom(); err != ErrNoGroup {
		t.Errorf("RestoreGroupRoom() error = %v, want ErrNoGroup", err)
	}
	if n := len(em.sent()); n != 0 {
		t.Errorf("got %d events, want 0", n)
	}
}

func TestMembersAreKeyedByUser(t *testing.T) {
	r, _, _ := connectedRoom(t)

	r.MemberJoined(GroupMember{UserID: 1, Username: "a", Role: RoleMember})
	r.MemberJoined(GroupMember{UserID: 1, Username: "a", Role: RoleAdmin})
	r.MemberJoined(GroupMember{UserID: 2, Username: "b"})
	r.MemberLeft(2)
	r.MemberLeft(2)
	r.MemberLeft(99)

	members := r.Snapshot().ActiveMembers
	if len(members) != 1 {
		t.Fatalf("got %d members, want 1", len(members))
	}
	if members[0].Role != RoleAdmin {
		t.Errorf("role = %s, want ADMIN (upserted)", members[0].Role)
	}
}

func TestSetMembersDeduplicates(t *testing.T) {
	r, _, _ := connectedRoom(t)
	r.SetMembers([]GroupMember{{UserID: 1, Username: "old"}, {UserID: 2}, {UserID: 1, Username: "new"}})

	members := r.Snapshot().ActiveMembers
	if len(members) != 2 {
		t.Fatalf("got %d members, want 2", len(members))
	}
	if members[0].Username != "new" {
		t.Errorf("username = %q, want new", members[0].Username)
	}
}

func TestTypingUpsertAndRemove(t *testing.T) {
	r, _, _ := connectedRoom(t)

	r.SetTyping(TypingUser{UserID: 1, Username: "a", IsTyping: true, Timestamp: 1})
	r.SetTyping(TypingUser{UserID: 1, Username: "a", IsTyping: true, Timestamp: 2})
	r.SetTyping(TypingUser{UserID: 2, Username: "b", IsTyping: true})

	typing := r.Snapshot().TypingUsers
	if len(typing) != 2 {
		t.Fatalf("got %d typing users, want 2", len(typing))
	}
	if typing[0].Timestamp != 2 {
		t.Errorf("timestamp = %d, want 2 (superseded)", typing[0].Timestamp)
	}

	r.SetTyping(TypingUser{UserID: 1, IsTyping: false})
	r.RemoveTyping(2)
	r.RemoveTyping(2)
	if n := len(r.Snapshot().TypingUsers); n != 0 {
		t.Errorf("got %d typing users, want 0", n)
	}
}

func TestMarkDisconnectedRequiresRejoin(t *testing.T) {
	r, em, _ := connectedRoom(t)
	_ = r.JoinGroupRoom(42)
	r.SetTyping(TypingUser{UserID: 1, IsTyping: true})

	r.MarkDisconnected()
	s := r.Snapshot()
	if s.IsJoined || len(s.TypingUsers) != 0 {
		t.Errorf("joined = %v typing = %d, want false / 0", s.IsJoined, len(s.TypingUsers))
	}

	_ = r.JoinGroupRoom(42)
	if n := len(em.sent()); n != 2 {
		t.Errorf("got %d events, want 2 (join re-sent)", n)
	}
}

func TestRoomPublishesChanges(t *testing.T) {
	b := bus.New()
	ch, unsub := b.Subscribe("group.", 16)
	defer unsub()

	r := NewRoom(Options{Bus: b, Emitter: &fakeEmitter{connected: true}, User: &User{ID: 1}})
	_ = r.JoinGroupRoom(42)
	r.AddMessage(msg(1))

	want := []string{KindRoomChanged, KindMessagesChanged}
	for _, kind := range want {
		select {
		case evt := <-ch:
			if evt.Kind != kind {
				t.Errorf("event kind = %q, want %q", evt.Kind, kind)
			}
			if evt.Payload != int64(42) {
				t.Errorf("payload = %v, want 42", evt.Payload)
			}
		case <-time.After(time.Second):
			t.Fatalf("timeout waiting for %s", kind)
		}
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	r, _, _ := connectedRoom(t)
	r.AddMessage(msg(1))

	s := r.Snapshot()
	s.Messages[0].Content = "mutated"
	s.Messages = append(s.Messages, msg(2))

	if got := r.Snapshot(); len(got.Messages) != 1 || got.Messages[0].Content != "m" {
		t.Errorf("room state changed through snapshot: %+v", got.Messages)
	}
}
