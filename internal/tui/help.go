package tui

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/asandoval/breeze/internal/config"
)

// showHelp overlays the configured key bindings; any key closes it.
func (a *App) showHelp() {
	a.mu.Lock()
	a.composeOpen = true
	a.mu.Unlock()
	a.chordDetector.Reset()

	view := tview.NewTextView()
	view.SetDynamicColors(true)
	view.SetBorder(true)
	view.SetTitle(" Help ")
	view.SetText(helpText(a.cfg.Keys))
	view.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		a.closeHelp()
		return nil
	})
	a.pages.AddPage("help", modal(view, 46, 20), true, true)
	a.SetFocus(view)
}

func (a *App) closeHelp() {
	a.mu.Lock()
	a.composeOpen = false
	a.mu.Unlock()
	a.pages.RemovePage("help")
}

// helpText renders one line per configured binding so the overlay stays
// truthful when keys are remapped.
func helpText(keys config.KeyBindings) string {
	rows := []struct{ key, what string }{
		{keys.Reply, "reply to the open thread"},
		{keys.ReplyAll, "reply all (right after " + keys.Reply + ")"},
		{keys.Forward, "forward the open thread"},
		{keys.Compose, "compose a new message"},
		{keys.Search, "search"},
		{keys.ToggleRead, "toggle read"},
		{keys.Trash, "move to trash"},
		{keys.Done, "mark done"},
		{keys.Move, "move to next category"},
		{keys.Undo, "undo the pending action"},
		{keys.BulkSelect, "toggle bulk selection"},
		{keys.NextList, "next category list"},
		{"esc", "clear selection"},
		{keys.Help, "this help"},
		{keys.Quit, "quit"},
	}
	var b strings.Builder
	for _, row := range rows {
		if row.key == "" {
			continue
		}
		fmt.Fprintf(&b, " [::b]%-6s[-:-:-] %s\n", row.key, row.what)
	}
	b.WriteString("\n Press any key to close")
	return b.String()
}
