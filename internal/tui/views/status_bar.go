package views

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/matheus3301/gchat/internal/api"
	"github.com/matheus3301/gchat/internal/tui/ui"
	"github.com/rivo/tview"
)

// StatusBar displays persistent connection and room status.
type StatusBar struct {
	*tview.TextView
	theme      *ui.Theme
	profile    string
	status     *api.GetStatusResponse
	uploading  int
	flash      string
	flashError bool
	hints      []string
}

// NewStatusBar creates a new status bar.
func NewStatusBar(theme *ui.Theme) *StatusBar {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBackgroundColor(tview.Styles.MoreContrastBackgroundColor)

	return &StatusBar{TextView: tv, theme: theme}
}

// SetProfile updates the profile name display.
func (sb *StatusBar) SetProfile(name string) {
	sb.profile = name
	sb.render()
}

// SetStatus updates the connection display.
func (sb *StatusBar) SetStatus(st *api.GetStatusResponse) {
	sb.status = st
	sb.render()
}

// SetUploading updates the count of uploads in progress.
func (sb *StatusBar) SetUploading(n int) {
	sb.uploading = n
	sb.render()
}

// SetFlash sets a temporary message.
func (sb *StatusBar) SetFlash(msg string, isError bool) {
	sb.flash = msg
	sb.flashError = isError
	sb.render()
}

// SetHints sets the key hints shown when no flash is active.
func (sb *StatusBar) SetHints(hints []string) {
	sb.hints = hints
	sb.render()
}

func (sb *StatusBar) render() {
	sb.Clear()
	_, _ = fmt.Fprint(sb, sb.line(time.Now()))
}

func (sb *StatusBar) line(now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, " [::b]%s[-:-:-]", tview.Escape(sb.profile))

	if st := sb.status; st != nil {
		color := sb.theme.DisconnectedColor
		if st.Connected {
			color = sb.theme.ConnectedColor
		}
		fmt.Fprintf(&b, " | [%s]%s[-]", ui.Tag(color), st.Status)
		if st.Username != "" {
			fmt.Fprintf(&b, " | @%s", tview.Escape(st.Username))
		}
		if st.GroupID != 0 {
			b.WriteString(" | group " + strconv.FormatInt(st.GroupID, 10))
			if !st.IsJoined {
				b.WriteString(" (pending)")
			}
		}
	}
	if sb.uploading > 0 {
		fmt.Fprintf(&b, " | uploading %d", sb.uploading)
	}
	b.WriteString(" | " + now.Format("15:04"))

	switch {
	case sb.flash != "":
		color := sb.theme.FlashInfoColor
		if sb.flashError {
			color = sb.theme.FlashErrColor
		}
		fmt.Fprintf(&b, " | [%s]%s[-]", ui.Tag(color), tview.Escape(sb.flash))
	case len(sb.hints) > 0:
		fmt.Fprintf(&b, " | [::d]%s[-:-:-]", strings.Join(sb.hints, " "))
	}
	return b.String()
}
