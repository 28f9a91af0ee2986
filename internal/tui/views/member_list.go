package views

import (
	"fmt"

	"github.com/matheus3301/gchat/internal/groupchat"
	"github.com/matheus3301/gchat/internal/tui/ui"
	"github.com/rivo/tview"
)

// MemberList is the side table of active room members.
type MemberList struct {
	*tview.Table
	theme *ui.Theme
}

// NewMemberList creates a new member table.
func NewMemberList(theme *ui.Theme) *MemberList {
	table := tview.NewTable().
		SetSelectable(false, false).
		SetBorders(false)
	table.SetBorder(true).SetTitle(" Members ")
	table.SetBorderColor(theme.BorderColor)
	table.SetTitleColor(theme.TitleColor)
	table.SetBackgroundColor(theme.BgColor)

	return &MemberList{Table: table, theme: theme}
}

// Update refreshes the member list with new data.
func (ml *MemberList) Update(members []groupchat.GroupMember, typing []groupchat.TypingUser) {
	ml.Clear()
	ml.SetTitle(fmt.Sprintf(" Members (%d) ", len(members)))

	isTyping := make(map[int64]bool, len(typing))
	for _, t := range typing {
		isTyping[t.UserID] = t.IsTyping
	}

	for row, m := range members {
		name := m.DisplayName
		if name == "" {
			name = m.Username
		}
		marker := " "
		if isTyping[m.UserID] {
			marker = "~"
		}
		ml.SetCell(row, 0, tview.NewTableCell(marker).SetTextColor(ml.theme.TypingColor))
		ml.SetCell(row, 1, tview.NewTableCell(tview.Escape(sanitizeForTerminal(name))).SetMaxWidth(20).SetExpansion(1))
		ml.SetCell(row, 2, tview.NewTableCell(roleBadge(m.Role)).SetTextColor(ml.theme.MenuKeyColor))
	}
}

func roleBadge(r groupchat.Role) string {
	switch r {
	case groupchat.RoleAdmin:
		return "admin"
	case groupchat.RoleModerator:
		return "mod"
	default:
		return ""
	}
}
