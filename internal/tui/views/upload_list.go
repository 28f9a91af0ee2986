package views

import (
	"fmt"

	"github.com/matheus3301/gchat/internal/tui/ui"
	"github.com/matheus3301/gchat/internal/upload"
	"github.com/rivo/tview"
)

// UploadList shows this run's media uploads.
type UploadList struct {
	*tview.Table
	theme *ui.Theme
}

// NewUploadList creates the uploads table.
func NewUploadList(theme *ui.Theme) *UploadList {
	table := tview.NewTable().
		SetSelectable(true, false).
		SetFixed(1, 0)
	table.SetBorder(true).SetTitle(" Uploads ")
	table.SetBorderColor(theme.BorderColor)
	table.SetTitleColor(theme.TitleColor)
	table.SetBackgroundColor(theme.BgColor)
	return &UploadList{Table: table, theme: theme}
}

// Update refreshes the table.
func (ul *UploadList) Update(items []upload.FileProgress) {
	ul.Clear()
	for col, h := range []string{" File", " Kind", " Status", " Progress"} {
		ul.SetCell(0, col, tview.NewTableCell(h).SetSelectable(false).SetTextColor(ul.theme.TableHeaderFg))
	}
	for i, it := range items {
		row := i + 1
		statusText := it.Status
		color := ul.theme.FgColor
		switch it.Status {
		case upload.StatusFailed:
			statusText = "failed: " + it.Error
			color = ul.theme.FlashErrColor
		case upload.StatusDone:
			color = ul.theme.ConnectedColor
		}
		ul.SetCell(row, 0, tview.NewTableCell(" "+tview.Escape(it.FileName)).SetMaxWidth(40).SetExpansion(2))
		ul.SetCell(row, 1, tview.NewTableCell(" "+it.Kind))
		ul.SetCell(row, 2, tview.NewTableCell(" "+tview.Escape(statusText)).SetTextColor(color).SetExpansion(1))
		ul.SetCell(row, 3, tview.NewTableCell(" "+progressBar(it.Percent, 10)))
	}
}

func progressBar(percent, width int) string {
	percent = max(0, min(percent, 100))
	filled := percent * width / 100
	bar := make([]rune, width)
	for i := range bar {
		if i < filled {
			bar[i] = '#'
		} else {
			bar[i] = '.'
		}
	}
	return fmt.Sprintf("[%s] %3d%%", string(bar), percent)
}
