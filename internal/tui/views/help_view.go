package views

import (
	"fmt"

	"github.com/matheus3301/gchat/internal/tui/ui"
	"github.com/rivo/tview"
)

// HelpView displays key binding reference.
type HelpView struct {
	*tview.TextView
}

// NewHelpView creates a new help view.
func NewHelpView(theme *ui.Theme) *HelpView {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true)
	tv.SetBorder(true)
	tv.SetBorderColor(theme.BorderColor)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetTextColor(theme.FgColor)
	tv.SetTitle(" Help ")
	tv.SetTitleColor(theme.TitleColor)

	_, _ = fmt.Fprint(tv, helpText(ui.Tag(theme.MenuKeyColor)))
	return &HelpView{TextView: tv}
}

func helpText(kc string) string {
	return fmt.Sprintf(`
  [::b]Room[-:-:-]

  [%[1]s]i[-:-:-]       Focus composer        [%[1]s]Enter[-:-:-]  Send (in composer)
  [%[1]s]m[-:-:-]       Load older messages   [%[1]s]a[-:-:-]      Attach files
  [%[1]s]u[-:-:-]       Show uploads          [%[1]s]Esc[-:-:-]    Back / leave composer
  [%[1]s]c[-:-:-]       Clear finished (uploads page)
  [%[1]s]?[-:-:-]       Help                  [%[1]s]q[-:-:-]      Quit

  [::b]Commands (: mode)[-:-:-]

  [%[1]s]:join <group id>[-:-:-]     Switch to a group room
  [%[1]s]:leave[-:-:-]               Leave the current room
  [%[1]s]:more[-:-:-]                Load older messages
  [%[1]s]:attach <path>...[-:-:-]    Upload files for the next message
  [%[1]s]:uploads[-:-:-]             Show upload progress
  [%[1]s]:help[-:-:-] / [%[1]s]:h[-:-:-]          Show this help
  [%[1]s]:quit[-:-:-] / [%[1]s]:q[-:-:-]          Quit application
`, kc)
}
