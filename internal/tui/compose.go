package tui

import (
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/google/uuid"
	"github.com/rivo/tview"

	"github.com/asandoval/breeze/internal/services"
)

// openCompose shows the compose form, prefilled from draft when a
// cancelled send restores one.
func (a *App) openCompose(draft *services.Draft) {
	if draft == nil {
		draft = &services.Draft{ComposeContextID: uuid.New().String()}
	}
	a.mu.Lock()
	a.composeOpen = true
	a.mu.Unlock()
	a.chordDetector.Reset()

	form := tview.NewForm()
	form.SetBorder(true)
	form.SetTitle(" Compose ")
	form.AddInputField("To", strings.Join(draft.To, ", "), 60, nil, nil)
	form.AddInputField("Cc", strings.Join(draft.Cc, ", "), 60, nil, nil)
	form.AddInputField("Subject", draft.Subject, 60, nil, nil)
	form.AddTextArea("Body", draft.Body, 60, 10, 0, nil)
	form.AddButton("Send", func() {
		draft.To = splitList(form.GetFormItemByLabel("To").(*tview.InputField).GetText())
		draft.Cc = splitList(form.GetFormItemByLabel("Cc").(*tview.InputField).GetText())
		draft.Subject = form.GetFormItemByLabel("Subject").(*tview.InputField).GetText()
		draft.Body = form.GetFormItemByLabel("Body").(*tview.TextArea).GetText()
		a.closeCompose()
		if err := a.coordinator.Send(a.ctx, draft); err != nil {
			a.showError(err.Error())
		}
	})
	form.AddButton("Discard", func() {
		a.closeCompose()
	})

	a.pages.AddPage("compose", modal(form, 70, 20), true, true)
	a.SetFocus(form)
}

func (a *App) closeCompose() {
	a.mu.Lock()
	a.composeOpen = false
	a.mu.Unlock()
	a.pages.RemovePage("compose")
}

// RestoreDraft implements services.ComposeSurface: a cancelled send puts
// the payload back in front of the user for further editing.
func (a *App) RestoreDraft(draft *services.Draft) {
	a.QueueUpdateDraw(func() {
		a.openCompose(draft)
	})
}

// startReply opens a prefilled reply to the latest message of a thread.
func (a *App) startReply(threadID string, all bool) {
	msgs := a.coordinator.ThreadMessages(threadID)
	draft := &services.Draft{
		ComposeContextID: uuid.New().String(),
		ThreadID:         threadID,
	}
	if len(msgs) > 0 {
		last := msgs[len(msgs)-1]
		draft.To = []string{last.From}
		if all {
			draft.Cc = last.To
		}
		draft.Subject = rePrefix(last.Subject)
	}
	a.openCompose(draft)
}

// startForward opens a forward of the latest message of a thread.
func (a *App) startForward(threadID string) {
	msgs := a.coordinator.ThreadMessages(threadID)
	draft := &services.Draft{
		ComposeContextID: uuid.New().String(),
		ThreadID:         threadID,
	}
	if len(msgs) > 0 {
		last := msgs[len(msgs)-1]
		draft.Subject = fwdPrefix(last.Subject)
		draft.Body = "\n\n---------- Forwarded message ----------\n" + last.Body
	}
	a.openCompose(draft)
}

// openSearch shows the search prompt, recording submitted queries in the
// local history.
func (a *App) openSearch() {
	a.mu.Lock()
	a.composeOpen = true
	a.mu.Unlock()
	a.chordDetector.Reset()

	input := tview.NewInputField().SetLabel("Search: ").SetFieldWidth(50)
	input.SetBorder(true)
	input.SetDoneFunc(func(key tcell.Key) {
		query := input.GetText()
		a.mu.Lock()
		a.composeOpen = false
		a.mu.Unlock()
		a.pages.RemovePage("search")
		if strings.TrimSpace(query) == "" {
			return
		}
		if a.search != nil {
			if err := a.search.SaveHistory(a.ctx, query); err != nil && a.logger != nil {
				a.logger.Printf("tui: save search history: %v", err)
			}
		}
		a.showStatusMessage("Searching: " + query)
	})
	a.pages.AddPage("search", modal(input, 60, 3), true, true)
	a.SetFocus(input)
}

func splitList(v string) []string {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func rePrefix(subject string) string {
	if strings.HasPrefix(strings.ToLower(subject), "re:") {
		return subject
	}
	return "Re: " + subject
}

func fwdPrefix(subject string) string {
	if strings.HasPrefix(strings.ToLower(subject), "fwd:") {
		return subject
	}
	return "Fwd: " + subject
}

// modal centers a primitive at a fixed size.
func modal(p tview.Primitive, width, height int) tview.Primitive {
	return tview.NewFlex().
		AddItem(nil, 0, 1, false).
		AddItem(tview.NewFlex().SetDirection(tview.FlexRow).
			AddItem(nil, 0, 1, false).
			AddItem(p, height, 0, true).
			AddItem(nil, 0, 1, false), width, 0, true).
		AddItem(nil, 0, 1, false)
}
