package tui

import (
	"fmt"
	"time"

	"github.com/rivo/tview"

	"github.com/asandoval/breeze/internal/config"
	"github.com/asandoval/breeze/internal/pending"
	"github.com/asandoval/breeze/internal/services"
)

func (a *App) setBaselineStatus() {
	if status, ok := a.views["status"].(*tview.TextView); ok {
		status.SetText(fmt.Sprintf("breeze | Press %s for help | Press %s to quit",
			a.cfg.Keys.Help, a.cfg.Keys.Quit))
	}
}

// showStatusMessage displays a transient message in the status bar
func (a *App) showStatusMessage(msg string) {
	if status, ok := a.views["status"].(*tview.TextView); ok {
		status.SetText(fmt.Sprintf("breeze | %s", msg))
		go func() {
			time.Sleep(3 * time.Second)
			a.QueueUpdateDraw(a.setBaselineStatus)
		}()
	}
}

// showError shows an error message via status helpers
func (a *App) showError(msg string) {
	a.showStatusMessage(fmt.Sprintf("[red]%s[-]", msg))
}

// Notify implements services.Notifier.
func (a *App) Notify(level services.NotifyLevel, msg string) {
	a.QueueUpdateDraw(func() {
		switch level {
		case services.NotifyError:
			a.showError(msg)
		case services.NotifyWarning:
			a.showStatusMessage(fmt.Sprintf("[yellow]%s[-]", msg))
		default:
			a.showStatusMessage(msg)
		}
	})
}

// OfferUndo implements services.Notifier: shows the undo affordance for
// a pending operation until its grace window runs out or it is
// cancelled via the undo key.
func (a *App) OfferUndo(handle *pending.Handle, msg string) {
	if handle == nil {
		return
	}
	a.QueueUpdateDraw(func() {
		if status, ok := a.views["status"].(*tview.TextView); ok {
			status.SetText(fmt.Sprintf("breeze | %s (press %s to undo)", msg, a.cfg.Keys.Undo))
		}
	})
	go func() {
		time.Sleep(undoToastDuration(a.cfg, handle.Kind()))
		a.QueueUpdateDraw(func() {
			if handle.Cancelled() {
				a.showStatusMessage("Undone")
			} else {
				a.setBaselineStatus()
			}
		})
	}()
}

// undoToastDuration matches the affordance's lifetime to the operation's
// grace window: a pending send stays cancellable longer than a delete.
func undoToastDuration(cfg *config.Config, kind pending.Kind) time.Duration {
	if kind == pending.KindSend {
		return cfg.SendGrace()
	}
	return cfg.UndoGrace()
}
