package tui

import (
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// showPopup opens the read-only detail view. It is modal: all input goes to
// the popup until it is closed with q, which returns to the list unchanged.
func (a *App) showPopup(title, summary string) {
	text := tview.NewTextView().
		SetText(summary).
		SetWordWrap(true)
	text.SetBorder(true)
	text.SetTitle(" " + title + " — q: close ")
	text.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Rune() == 'q' {
			a.pages.RemovePage("detail")
			return nil
		}
		return event
	})

	a.pages.AddPage("detail", text, true, true)
}

func sanitizeTitle(title string) string {
	return strings.ReplaceAll(title, "!", "")
}
