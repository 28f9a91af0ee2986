package ui

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
)

// Theme holds color constants for the TUI.
type Theme struct {
	BgColor           tcell.Color
	FgColor           tcell.Color
	BorderColor       tcell.Color
	TitleColor        tcell.Color
	TableHeaderFg     tcell.Color
	MenuKeyColor      tcell.Color
	OwnMessageColor   tcell.Color
	SenderColor       tcell.Color
	AttachmentColor   tcell.Color
	TypingColor       tcell.Color
	FlashInfoColor    tcell.Color
	FlashErrColor     tcell.Color
	ConnectedColor    tcell.Color
	DisconnectedColor tcell.Color
	PromptBorderColor tcell.Color
}

// DefaultTheme returns a dark theme.
func DefaultTheme() *Theme {
	return &Theme{
		BgColor:           tcell.ColorBlack,
		FgColor:           tcell.ColorCadetBlue,
		BorderColor:       tcell.ColorDodgerBlue,
		TitleColor:        tcell.ColorFuchsia,
		TableHeaderFg:     tcell.ColorWhite,
		MenuKeyColor:      tcell.ColorDodgerBlue,
		OwnMessageColor:   tcell.ColorLightGreen,
		SenderColor:       tcell.ColorAqua,
		AttachmentColor:   tcell.ColorPapayaWhip,
		TypingColor:       tcell.ColorGray,
		FlashInfoColor:    tcell.ColorNavajoWhite,
		FlashErrColor:     tcell.ColorOrangeRed,
		ConnectedColor:    tcell.ColorGreen,
		DisconnectedColor: tcell.ColorOrange,
		PromptBorderColor: tcell.ColorDodgerBlue,
	}
}

// Tag returns c as a tview color tag value, e.g. "#00ffff".
func Tag(c tcell.Color) string {
	return fmt.Sprintf("#%06x", c.Hex())
}
