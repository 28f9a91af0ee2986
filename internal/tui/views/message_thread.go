package views

import (
	"fmt"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/gchat/internal/groupchat"
	"github.com/matheus3301/gchat/internal/tui/ui"
	"github.com/rivo/tview"
)

// MessageThread displays the active room's messages, who is typing and a
// composer.
type MessageThread struct {
	*tview.Flex
	theme    *ui.Theme
	messages *tview.TextView
	typing   *tview.TextView
	composer *tview.InputField
	onSend   func(text string)
	onType   func(typing bool)
}

// NewMessageThread creates a new message thread view.
func NewMessageThread(theme *ui.Theme) *MessageThread {
	messages := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWordWrap(true)
	messages.SetBorder(true)
	messages.SetBorderColor(theme.BorderColor)
	messages.SetBackgroundColor(theme.BgColor)
	messages.SetTextColor(theme.FgColor)
	messages.SetTitle(" No room ")
	messages.SetTitleColor(theme.TitleColor)

	typing := tview.NewTextView().SetDynamicColors(true)
	typing.SetBackgroundColor(theme.BgColor)
	typing.SetTextColor(theme.TypingColor)

	composer := tview.NewInputField().
		SetLabel(" > ").
		SetFieldWidth(0)
	composer.SetBorder(true)
	composer.SetBorderColor(theme.BorderColor)
	composer.SetBackgroundColor(theme.BgColor)
	composer.SetFieldBackgroundColor(theme.BgColor)
	composer.SetFieldTextColor(theme.FgColor)
	composer.SetLabelColor(theme.MenuKeyColor)
	composer.SetTitle(" Compose (i to focus) ")
	composer.SetTitleColor(theme.TitleColor)

	flex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(messages, 0, 1, true).
		AddItem(typing, 1, 0, false).
		AddItem(composer, 3, 0, false)

	mt := &MessageThread{
		Flex:     flex,
		theme:    theme,
		messages: messages,
		typing:   typing,
		composer: composer,
	}

	composer.SetChangedFunc(func(text string) {
		if mt.onType != nil {
			mt.onType(text != "")
		}
	})
	composer.SetDoneFunc(func(key tcell.Key) {
		if key == tcell.KeyEnter && mt.onSend != nil {
			text := composer.GetText()
			mt.onSend(text)
			composer.SetText("")
		}
	})

	return mt
}

// SetOnSend sets the callback for Enter in the composer. Empty text is passed
// through so pending attachments can be sent alone.
func (mt *MessageThread) SetOnSend(fn func(text string)) {
	mt.onSend = fn
}

// SetOnTyping sets the callback fired as the composer becomes (non-)empty.
func (mt *MessageThread) SetOnTyping(fn func(typing bool)) {
	mt.onType = fn
}

// SetPending shows how many attachments will go with the next message.
func (mt *MessageThread) SetPending(n int) {
	if n == 0 {
		mt.composer.SetTitle(" Compose (i to focus) ")
		return
	}
	mt.composer.SetTitle(fmt.Sprintf(" Compose (%d attachment(s)) ", n))
}

// Update re-renders the room.
func (mt *MessageThread) Update(state groupchat.State, me int64) {
	if state.CurrentGroupID == 0 {
		mt.messages.SetTitle(" No room (:join <id>) ")
	} else {
		joined := ""
		if !state.IsJoined {
			joined = " (joining...)"
		}
		mt.messages.SetTitle(fmt.Sprintf(" Group %d%s ", state.CurrentGroupID, joined))
	}

	mt.messages.Clear()
	_, _ = fmt.Fprint(mt.messages, renderMessages(state, me, mt.theme, time.Now()))
	mt.messages.ScrollToEnd()

	mt.typing.Clear()
	_, _ = fmt.Fprint(mt.typing, typingLine(state.TypingUsers, me))
}

// Messages returns the messages text view (for focus management).
func (mt *MessageThread) Messages() *tview.TextView {
	return mt.messages
}

// Composer returns the composer input field (for focus management).
func (mt *MessageThread) Composer() *tview.InputField {
	return mt.composer
}

func renderMessages(state groupchat.State, me int64, theme *ui.Theme, now time.Time) string {
	var b strings.Builder
	switch {
	case state.IsLoadingMessages:
		b.WriteString("[::d]  loading older messages...[-:-:-]\n\n")
	case state.LastFetchError != "":
		fmt.Fprintf(&b, "[%s]  history unavailable: %s[-]\n\n", ui.Tag(theme.FlashErrColor), tview.Escape(singleLine(state.LastFetchError)))
	case state.HasMoreMessages && state.CurrentGroupID != 0:
		b.WriteString("[::d]  m: load older messages[-:-:-]\n\n")
	}

	for _, m := range state.Messages {
		sender := m.Sender.DisplayName
		if sender == "" {
			sender = m.Sender.Username
		}
		if sender == "" {
			sender = fmt.Sprintf("user %d", m.SenderID)
		}
		color := theme.SenderColor
		if m.SenderID == me {
			sender = "You"
			color = theme.OwnMessageColor
		}
		ts := m.CreatedAt
		if ts == "" {
			ts = m.Timestamp
		}
		fmt.Fprintf(&b, "[%s::b]%s[-:-:-] [::d]%s[-:-:-]\n",
			ui.Tag(color), tview.Escape(sanitizeForTerminal(sender)), formatTimestamp(ts, now))

		if m.ReplyTo != nil {
			fmt.Fprintf(&b, "[::d]  | %s[-:-:-]\n", tview.Escape(truncate(singleLine(m.ReplyTo.Content), 60)))
		}
		if m.Content != "" {
			b.WriteString(tview.Escape(sanitizeForTerminal(m.Content)))
			b.WriteString("\n")
		}
		for _, a := range m.Attachments {
			name := a.Name
			if name == "" {
				name = a.URL
			}
			size := ""
			if a.Size > 0 {
				size = " (" + formatSize(a.Size) + ")"
			}
			fmt.Fprintf(&b, "[%s]  + %s: %s%s[-]\n", ui.Tag(theme.AttachmentColor), a.Type, tview.Escape(sanitizeForTerminal(name)), size)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func typingLine(users []groupchat.TypingUser, me int64) string {
	var names []string
	for _, u := range users {
		if u.UserID == me || !u.IsTyping {
			continue
		}
		names = append(names, sanitizeForTerminal(u.Username))
	}
	switch len(names) {
	case 0:
		return ""
	case 1:
		return " " + tview.Escape(names[0]) + " is typing..."
	case 2:
		return " " + tview.Escape(names[0]+" and "+names[1]) + " are typing..."
	default:
		return fmt.Sprintf(" %d people are typing...", len(names))
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
