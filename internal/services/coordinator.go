package services

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/asandoval/breeze/internal/feed"
	"github.com/asandoval/breeze/internal/overlay"
)

// ActionKind names a user-triggered mutation routed through the
// coordinator's single entry point.
type ActionKind string

const (
	ActionMarkRead   ActionKind = "markRead"
	ActionMarkUnread ActionKind = "markUnread"
	ActionMarkDone   ActionKind = "markDone"
	ActionDelete     ActionKind = "delete"
	ActionUndo       ActionKind = "undo"
)

// Coordinator funnels every user-triggered mutation, whether it came
// from a key binding or the batch toolbar, through HandleAction and feeds
// live snapshots into the projector. It is the single writer of the
// overlay store, the pending queue and the selection set; the rendering
// layer only reads.
type Coordinator struct {
	email     EmailService
	batch     BatchService
	undo      UndoService
	projector *overlay.Projector
	selection *SelectionSet

	mu       sync.Mutex
	onChange func()
	snapSink func(feed.Snapshot)
	source   feed.Source
	watched  map[string]context.CancelFunc

	logger *log.Logger
}

// NewCoordinator wires the coordinator over its services.
func NewCoordinator(email EmailService, batch BatchService, undo UndoService, projector *overlay.Projector) *Coordinator {
	return &Coordinator{
		email:     email,
		batch:     batch,
		undo:      undo,
		projector: projector,
		selection: NewSelectionSet(),
		watched:   make(map[string]context.CancelFunc),
	}
}

// SetLogger sets the logger for debug output.
func (c *Coordinator) SetLogger(logger *log.Logger) {
	c.logger = logger
}

// SetOnChange registers a callback invoked after anything that changes
// what VisibleList or UnreadCount would return. The TUI uses it to
// schedule a redraw.
func (c *Coordinator) SetOnChange(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onChange = fn
}

// SetSnapshotSink registers a callback that sees every live snapshot
// after it is applied. main uses it to keep the startup cache warm.
func (c *Coordinator) SetSnapshotSink(fn func(feed.Snapshot)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapSink = fn
}

// SeedSnapshot applies a locally cached snapshot before the first live
// delivery, so the UI has something to paint at startup. The next live
// snapshot for the category replaces it wholesale.
func (c *Coordinator) SeedSnapshot(snap feed.Snapshot) {
	c.projector.ApplySnapshot(snap)
	c.notifyChange()
}

// Selection returns the coordinator-owned selection set.
func (c *Coordinator) Selection() *SelectionSet {
	return c.selection
}

// VisibleList returns the effective entities to render for a category.
func (c *Coordinator) VisibleList(category string) []overlay.EffectiveEntity {
	return c.projector.VisibleList(category)
}

// UnreadCount returns the category's unread count, overlay included.
func (c *Coordinator) UnreadCount(category string) int {
	return c.projector.UnreadCount(category)
}

// ThreadMessages returns the messages to render for an open thread,
// ephemeral pending sends included.
func (c *Coordinator) ThreadMessages(threadID string) []feed.Message {
	return c.projector.ThreadMessages(threadID)
}

// HandleAction is the single entry point for user-triggered mutations.
// With explicit targets it acts on those; with none it acts on the
// current selection. Acting on nothing is a no-op, never an error.
func (c *Coordinator) HandleAction(ctx context.Context, kind ActionKind, targetIDs []string) error {
	sel := c.targetSelection(targetIDs)
	defer c.notifyChange()

	switch kind {
	case ActionMarkRead, ActionMarkUnread, ActionMarkDone, ActionDelete:
		return c.batch.ApplyToSelection(ctx, BatchOp(kind), sel)
	case ActionUndo:
		if h := c.undo.LastHandle(); h != nil {
			h.Cancel()
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown action %q", ErrInvalidInput, kind)
	}
}

// MoveToCategory recategorizes one entity, hiding it from its old list
// immediately.
func (c *Coordinator) MoveToCategory(ctx context.Context, entityID, from, to string) error {
	defer c.notifyChange()
	return c.email.MoveToCategory(ctx, entityID, from, to)
}

// ApplyLabel adds a label to one entity through the overlay.
func (c *Coordinator) ApplyLabel(ctx context.Context, entityID, label string) error {
	defer c.notifyChange()
	return c.email.ApplyLabel(ctx, entityID, label)
}

// RemoveLabel removes a label from one entity through the overlay.
func (c *Coordinator) RemoveLabel(ctx context.Context, entityID, label string) error {
	defer c.notifyChange()
	return c.email.RemoveLabel(ctx, entityID, label)
}

// Send enqueues a composed message behind the send grace window.
func (c *Coordinator) Send(ctx context.Context, draft *Draft) error {
	defer c.notifyChange()
	_, err := c.undo.EnqueueSend(ctx, draft)
	return err
}

// MarkReadOnOpen marks a thread read when the user opens it; the unread
// count drops immediately, before the remote call resolves.
func (c *Coordinator) MarkReadOnOpen(ctx context.Context, entityID string) error {
	defer c.notifyChange()
	return c.email.MarkRead(ctx, entityID)
}

// Run consumes the feed source for the given categories until ctx is
// done. Each snapshot replaces ground truth wholesale.
func (c *Coordinator) Run(ctx context.Context, source feed.Source, categories []string) error {
	c.mu.Lock()
	c.source = source
	c.mu.Unlock()
	var wg sync.WaitGroup
	for _, category := range categories {
		ch, err := source.Subscribe(ctx, category)
		if err != nil {
			return fmt.Errorf("subscribe %s: %w", category, err)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			for snap := range ch {
				c.projector.ApplySnapshot(snap)
				c.mu.Lock()
				sink := c.snapSink
				c.mu.Unlock()
				if sink != nil {
					sink(snap)
				}
				c.notifyChange()
			}
		}()
	}
	wg.Wait()
	return nil
}

// OpenThread starts watching an open thread's messages using the feed
// source Run was given, stopping any previous watch. Before Run, or with
// an empty ID, it only stops the previous watch.
func (c *Coordinator) OpenThread(ctx context.Context, threadID string) {
	c.mu.Lock()
	source := c.source
	for id, cancel := range c.watched {
		cancel()
		delete(c.watched, id)
	}
	c.mu.Unlock()
	if source == nil || threadID == "" {
		return
	}
	watchCtx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	c.watched[threadID] = cancel
	c.mu.Unlock()
	if err := c.WatchThread(watchCtx, source, threadID); err != nil {
		if c.logger != nil {
			c.logger.Printf("coordinator: watch %s: %v", threadID, err)
		}
		cancel()
	}
}

// WatchThread consumes thread snapshots for an open thread until ctx is
// done, retracting confirmed ephemeral sends along the way.
func (c *Coordinator) WatchThread(ctx context.Context, source feed.Source, threadID string) error {
	ch, err := source.SubscribeThread(ctx, threadID)
	if err != nil {
		return fmt.Errorf("subscribe thread %s: %w", threadID, err)
	}
	go func() {
		for snap := range ch {
			c.projector.ApplyThreadSnapshot(snap)
			c.notifyChange()
		}
	}()
	return nil
}

// targetSelection builds the selection a mutation acts on: explicit
// targets win, otherwise the live selection set is used as-is.
func (c *Coordinator) targetSelection(targetIDs []string) *SelectionSet {
	if len(targetIDs) == 0 {
		return c.selection
	}
	sel := NewSelectionSet()
	for _, id := range targetIDs {
		sel.Add(id)
	}
	return sel
}

func (c *Coordinator) notifyChange() {
	c.mu.Lock()
	fn := c.onChange
	c.mu.Unlock()
	if fn != nil {
		fn()
	}
}
