package tui

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/rivo/tview"

	"github.com/asandoval/breeze/internal/chord"
	"github.com/asandoval/breeze/internal/config"
	"github.com/asandoval/breeze/internal/services"
)

// App is the TUI shell. It only reads projected state; every mutation
// goes through the coordinator's HandleAction funnel.
type App struct {
	*tview.Application

	cfg         *config.Config
	coordinator *services.Coordinator
	search      services.SearchService

	ctx    context.Context
	cancel context.CancelFunc

	views map[string]tview.Primitive
	pages *tview.Pages

	chordDetector *chord.Detector

	mu          sync.Mutex
	categories  []string
	categoryIdx int
	rows        []string // entity IDs by list row, header excluded
	shownID     string   // entity open in the detail pane
	composeOpen bool

	logger *log.Logger
}

// NewApp creates the shell over a wired coordinator.
func NewApp(cfg *config.Config, coordinator *services.Coordinator, search services.SearchService) *App {
	ctx, cancel := context.WithCancel(context.Background())
	a := &App{
		Application: tview.NewApplication(),
		cfg:         cfg,
		coordinator: coordinator,
		search:      search,
		ctx:         ctx,
		cancel:      cancel,
		views:       make(map[string]tview.Primitive),
		categories:  cfg.CategoryNames(),
	}
	a.chordDetector = chord.NewDetector(chord.SystemClock{}, cfg.ChordWindow(), a.onChordAction)
	a.chordDetector.SetKeys(chord.Keys{
		Reply:    bindingRune(cfg.Keys.Reply),
		ReplyAll: bindingRune(cfg.Keys.ReplyAll),
		Forward:  bindingRune(cfg.Keys.Forward),
	})
	return a
}

// SetLogger sets the logger for debug output.
func (a *App) SetLogger(logger *log.Logger) {
	a.logger = logger
}

// Run builds the layout and blocks until quit.
func (a *App) Run() error {
	a.initLayout()
	a.bindKeys()
	a.coordinator.SetOnChange(func() {
		a.QueueUpdateDraw(a.refreshList)
	})
	a.refreshList()
	defer a.cancel()
	return a.SetRoot(a.pages, true).EnableMouse(false).Run()
}

func (a *App) initLayout() {
	list := tview.NewTable()
	list.SetSelectable(true, false)
	list.SetBorder(true)
	a.views["list"] = list

	detail := tview.NewTextView()
	detail.SetDynamicColors(true)
	detail.SetBorder(true)
	detail.SetTitle(" Conversation ")
	a.views["detail"] = detail

	status := tview.NewTextView()
	status.SetDynamicColors(true)
	a.views["status"] = status
	a.setBaselineStatus()

	flex := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(tview.NewFlex().
			AddItem(list, 0, 1, true).
			AddItem(detail, 0, 2, false), 0, 1, true).
		AddItem(status, 1, 0, false)

	a.pages = tview.NewPages().AddPage("main", flex, true, true)

	list.SetSelectedFunc(func(row, col int) {
		a.openRow(row)
	})
}

// refreshList repaints the current category from the projector. Called
// on every overlay or feed change; recomputation is cheap at these list
// sizes.
func (a *App) refreshList() {
	list, ok := a.views["list"].(*tview.Table)
	if !ok {
		return
	}
	a.mu.Lock()
	category := a.categories[a.categoryIdx]
	a.mu.Unlock()

	entities := a.coordinator.VisibleList(category)
	unread := a.coordinator.UnreadCount(category)
	list.Clear()
	list.SetTitle(fmt.Sprintf(" %s (%d unread) ", category, unread))

	sel := a.coordinator.Selection()
	rows := make([]string, 0, len(entities))
	for i, e := range entities {
		rows = append(rows, e.ID)
		list.SetCell(i, 0, tview.NewTableCell(a.formatRow(e, sel.Contains(e.ID))).SetExpansion(1))
	}
	a.mu.Lock()
	a.rows = rows
	a.mu.Unlock()
}

func (a *App) openRow(row int) {
	a.mu.Lock()
	if row < 0 || row >= len(a.rows) {
		a.mu.Unlock()
		return
	}
	id := a.rows[row]
	a.shownID = id
	a.mu.Unlock()
	// The unread count drops immediately; the remote call resolves later.
	if err := a.coordinator.MarkReadOnOpen(a.ctx, id); err != nil && a.logger != nil {
		a.logger.Printf("tui: mark read on open: %v", err)
	}
	a.chordDetector.Reset()
	a.coordinator.OpenThread(a.ctx, id)
	a.renderDetail(id)
}

// ShownEntityID implements services.DetailView.
func (a *App) ShownEntityID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.shownID
}

// Advance implements services.DetailView: moves the detail pane to a
// neighbor entity, or closes it when id is empty.
func (a *App) Advance(id string) {
	a.mu.Lock()
	a.shownID = id
	a.mu.Unlock()
	a.chordDetector.Reset()
	a.coordinator.OpenThread(a.ctx, id)
	if id == "" {
		if detail, ok := a.views["detail"].(*tview.TextView); ok {
			detail.SetText("")
		}
		return
	}
	a.renderDetail(id)
}

func (a *App) renderDetail(id string) {
	detail, ok := a.views["detail"].(*tview.TextView)
	if !ok {
		return
	}
	// Paint whatever the projector already knows; the thread watcher
	// repaints as snapshots arrive.
	msgs := a.coordinator.ThreadMessages(id)
	if len(msgs) == 0 {
		detail.SetText(fmt.Sprintf("[yellow]loading %s…[-]", id))
		return
	}
	detail.Clear()
	for _, m := range msgs {
		fmt.Fprintf(detail, "[::b]%s[-:-:-]  %s\n%s\n\n", m.From, m.Date.Format("Jan 2 15:04"), m.Body)
	}
}

func (a *App) currentCategory() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.categories[a.categoryIdx]
}

func (a *App) nextCategory() {
	a.mu.Lock()
	a.categoryIdx = (a.categoryIdx + 1) % len(a.categories)
	a.mu.Unlock()
	a.chordDetector.Reset()
	a.refreshList()
}

func (a *App) selectedRowID() string {
	list, ok := a.views["list"].(*tview.Table)
	if !ok {
		return ""
	}
	row, _ := list.GetSelection()
	a.mu.Lock()
	defer a.mu.Unlock()
	if row < 0 || row >= len(a.rows) {
		return ""
	}
	return a.rows[row]
}

// editableFocused reports whether the focused primitive accepts text,
// in which case chord and shortcut keys must pass through untouched.
func (a *App) editableFocused() bool {
	switch a.GetFocus().(type) {
	case *tview.InputField, *tview.TextArea, *tview.Form:
		return true
	}
	return false
}

func (a *App) modalOpen() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.composeOpen
}
