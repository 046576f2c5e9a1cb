package tui

import (
	"github.com/gdamore/tcell/v2"

	"github.com/asandoval/breeze/internal/chord"
	"github.com/asandoval/breeze/internal/services"
)

// bindKeys installs the global input capture. Every shortcut ends up in
// the coordinator's HandleAction funnel; the chord detector gets first
// look at the reply/forward keys.
func (a *App) bindKeys() {
	a.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if a.editableFocused() {
			return event
		}
		if event.Key() == tcell.KeyEscape {
			a.coordinator.Selection().Clear()
			a.chordDetector.Reset()
			a.refreshList()
			return nil
		}
		if event.Key() == tcell.KeyTab {
			if a.handleShortcut('\t') {
				return nil
			}
			return event
		}
		if event.Key() != tcell.KeyRune {
			return event
		}
		if event.Modifiers()&(tcell.ModCtrl|tcell.ModMeta) != 0 {
			return event
		}
		r := event.Rune()

		// Chord keys first: "r" may still become reply-all.
		if a.chordDetector.HandleKey(r, a.modalOpen(), false) {
			return nil
		}
		if a.handleShortcut(r) {
			return nil
		}
		return event
	})
}

func (a *App) handleShortcut(r rune) bool {
	keys := a.cfg.Keys
	switch {
	case bindingMatches(keys.ToggleRead, r):
		a.toggleRead()
	case bindingMatches(keys.Trash, r):
		a.act(services.ActionDelete)
	case bindingMatches(keys.Done, r):
		a.act(services.ActionMarkDone)
	case bindingMatches(keys.Undo, r):
		a.act(services.ActionUndo)
	case bindingMatches(keys.Move, r):
		a.moveCurrent()
	case bindingMatches(keys.Compose, r):
		a.openCompose(nil)
	case bindingMatches(keys.Search, r):
		a.openSearch()
	case bindingMatches(keys.BulkSelect, r):
		a.toggleBulkSelect()
	case bindingMatches(keys.NextList, r):
		a.nextCategory()
	case bindingMatches(keys.Help, r):
		a.showHelp()
	case bindingMatches(keys.Quit, r):
		a.Stop()
	default:
		return false
	}
	return true
}

// bindingRune maps a configured binding to the rune the input capture
// sees. The named forms cover bindings with no printable rune of their
// own; anything else binds on its first rune.
func bindingRune(binding string) rune {
	switch binding {
	case "":
		return 0
	case "space":
		return ' '
	case "tab":
		return '\t'
	}
	return []rune(binding)[0]
}

func bindingMatches(binding string, r rune) bool {
	b := bindingRune(binding)
	return b != 0 && b == r
}

// act routes an action through HandleAction: the selection when one is
// live, otherwise the entity under the cursor.
func (a *App) act(kind services.ActionKind) {
	var targets []string
	if a.coordinator.Selection().Len() == 0 {
		id := a.selectedRowID()
		if id == "" {
			return
		}
		targets = []string{id}
	}
	if err := a.coordinator.HandleAction(a.ctx, kind, targets); err != nil {
		a.showError(err.Error())
		return
	}
	a.refreshList()
}

func (a *App) toggleRead() {
	id := a.selectedRowID()
	if id == "" {
		return
	}
	for _, e := range a.coordinator.VisibleList(a.currentCategory()) {
		if e.ID == id {
			kind := services.ActionMarkRead
			if e.Read {
				kind = services.ActionMarkUnread
			}
			if err := a.coordinator.HandleAction(a.ctx, kind, []string{id}); err != nil {
				a.showError(err.Error())
			}
			return
		}
	}
}

func (a *App) toggleBulkSelect() {
	id := a.selectedRowID()
	if id == "" {
		return
	}
	a.coordinator.Selection().Toggle(id)
	a.refreshList()
}

// moveCurrent recategorizes the entity under the cursor into the next
// configured category; the row disappears from this list immediately.
func (a *App) moveCurrent() {
	id := a.selectedRowID()
	if id == "" {
		return
	}
	from := a.currentCategory()
	to := a.followingCategory(from)
	if to == from {
		return
	}
	if err := a.coordinator.MoveToCategory(a.ctx, id, from, to); err != nil {
		a.showError(err.Error())
		return
	}
	a.showStatusMessage("Moved to " + to)
}

func (a *App) followingCategory(current string) string {
	for i, c := range a.categories {
		if c == current {
			return a.categories[(i+1)%len(a.categories)]
		}
	}
	return current
}

// onChordAction receives resolved chords from the detector and opens the
// matching compose surface for the open thread's latest message.
func (a *App) onChordAction(action chord.Action) {
	a.QueueUpdateDraw(func() {
		id := a.ShownEntityID()
		if id == "" {
			id = a.selectedRowID()
		}
		if id == "" {
			return
		}
		switch action {
		case chord.ActionReply:
			a.startReply(id, false)
		case chord.ActionReplyAll:
			a.startReply(id, true)
		case chord.ActionForward:
			a.startForward(id)
		}
	})
}
