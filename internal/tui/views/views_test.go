package views

import (
	"strings"
	"testing"
	"time"

	"github.com/matheus3301/gchat/internal/api"
	"github.com/matheus3301/gchat/internal/groupchat"
	"github.com/matheus3301/gchat/internal/tui/ui"
)

func TestSanitizeForTerminal(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "hello", "hello"},
		{"newline kept", "a\nb\tc", "a\nb\tc"},
		{"escape sequence", "x\x1b[31mred", "x[31mred"},
		{"bell and del", "a\x07b\x7f", "ab"},
		{"c1 control", "a\u009bb", "ab"},
		{"skin tone", "\U0001F44D\U0001F3FB", "\U0001F44D"},
		{"zwj", "a\u200Db", "ab"},
		{"variation selector", "\u2764\uFE0F", "\u2764"},
		{"invalid utf8", "a\xffb", "ab"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sanitizeForTerminal(tt.in); got != tt.want {
				t.Errorf("sanitizeForTerminal(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSingleLine(t *testing.T) {
	if got := singleLine("  a\n\nb   c "); got != "a b c" {
		t.Errorf("singleLine() = %q, want %q", got, "a b c")
	}
}

func TestFormatTimestamp(t *testing.T) {
	now := time.Date(2026, 10, 19, 15, 0, 0, 0, time.UTC)
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"2026-10-19T09:30:00Z", "09:30"},
		{"2026-10-18T09:30:00Z", "10/18 09:30"},
		{"1792315800000", "10/18 09:30"},
		{"yesterday", "yesterday"},
	}
	for _, tt := range tests {
		if got := formatTimestamp(tt.in, now); got != tt.want {
			t.Errorf("formatTimestamp(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatSize(t *testing.T) {
	tests := map[int64]string{
		512:             "512 B",
		2048:            "2.0 KiB",
		5 * 1024 * 1024: "5.0 MiB",
	}
	for in, want := range tests {
		if got := formatSize(in); got != want {
			t.Errorf("formatSize(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestRenderMessages(t *testing.T) {
	theme := ui.DefaultTheme()
	now := time.Date(2026, 10, 19, 15, 0, 0, 0, time.UTC)
	state := groupchat.State{
		CurrentGroupID:  42,
		HasMoreMessages: true,
		Messages: []groupchat.GroupMessage{
			{ID: 1, SenderID: 9, Sender: groupchat.UserSummary{Username: "bob"}, Content: "hi [red]", CreatedAt: "2026-10-19T09:30:00Z"},
			{ID: 2, SenderID: 7, Sender: groupchat.UserSummary{Username: "ada"}, Content: "yo",
				ReplyTo:     &groupchat.GroupMessage{Content: "hi"},
				Attachments: []groupchat.Attachment{{Type: "image", Name: "cat.png"}}},
		},
	}

	out := renderMessages(state, 7, theme, now)

	for _, want := range []string{"m: load older messages", "bob", "09:30", "You", "| hi", "image: cat.png"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "hi [red]") {
		t.Error("message content should be escaped for tview")
	}
	if strings.Index(out, "bob") > strings.Index(out, "You") {
		t.Error("messages should render oldest first")
	}
}

func TestRenderMessagesFetchError(t *testing.T) {
	out := renderMessages(groupchat.State{CurrentGroupID: 1, LastFetchError: "boom"}, 0, ui.DefaultTheme(), time.Now())
	if !strings.Contains(out, "history unavailable: boom") {
		t.Errorf("output = %q", out)
	}
}

func TestTypingLine(t *testing.T) {
	users := []groupchat.TypingUser{
		{UserID: 7, Username: "me", IsTyping: true},
		{UserID: 8, Username: "bob", IsTyping: true},
	}
	if got := typingLine(users, 7); got != " bob is typing..." {
		t.Errorf("typingLine() = %q", got)
	}
	users = append(users, groupchat.TypingUser{UserID: 9, Username: "eve", IsTyping: true})
	if got := typingLine(users, 7); got != " bob and eve are typing..." {
		t.Errorf("typingLine() = %q", got)
	}
	users = append(users, groupchat.TypingUser{UserID: 10, Username: "joe", IsTyping: true})
	if got := typingLine(users, 7); got != " 3 people are typing..." {
		t.Errorf("typingLine() = %q", got)
	}
	if got := typingLine(nil, 7); got != "" {
		t.Errorf("typingLine(nil) = %q", got)
	}
}

func TestProgressBar(t *testing.T) {
	if got := progressBar(50, 10); got != "[#####.....]  50%" {
		t.Errorf("progressBar(50) = %q", got)
	}
	if got := progressBar(150, 4); got != "[####] 100%" {
		t.Errorf("progressBar(150) = %q", got)
	}
}

func TestStatusBarLine(t *testing.T) {
	sb := NewStatusBar(ui.DefaultTheme())
	sb.profile = "main"
	sb.status = &api.GetStatusResponse{Status: "CONNECTED", Connected: true, Username: "ada", GroupID: 42}
	sb.uploading = 2
	sb.hints = []string{"q:quit"}

	line := sb.line(time.Date(2026, 1, 1, 12, 5, 0, 0, time.UTC))
	for _, want := range []string{"main", "CONNECTED", "@ada", "group 42", "uploading 2", "12:05", "q:quit"} {
		if !strings.Contains(line, want) {
			t.Errorf("line missing %q: %s", want, line)
		}
	}

	sb.flash = "Send failed"
	if line := sb.line(time.Now()); strings.Contains(line, "q:quit") || !strings.Contains(line, "Send failed") {
		t.Errorf("flash should replace hints: %s", line)
	}
}
