package services

import (
	"context"
	"time"

	"github.com/asandoval/breeze/internal/feed"
	"github.com/asandoval/breeze/internal/pending"
)

// MessageRepository is the remote mutation API: a small set of bulk calls
// over message or thread IDs. Every call returns success or failure only;
// callers never interpret a structured response body.
type MessageRepository interface {
	BulkMarkRead(ctx context.Context, messageIDs []string) error
	BulkMarkUnread(ctx context.Context, messageIDs []string) error
	BulkArchive(ctx context.Context, messageIDs []string) error
	BulkTrash(ctx context.Context, messageIDs []string) error
	BulkApplyLabel(ctx context.Context, messageIDs []string, label string) error
	BulkRemoveLabel(ctx context.Context, messageIDs []string, label string) error
	Recategorize(ctx context.Context, messageIDs []string, from, to string) error
	SendMessage(ctx context.Context, draft *Draft) (string, error)
	CancelScheduledSend(ctx context.Context, draftID string) error
	RescheduleSend(ctx context.Context, draftID string, at time.Time) error
}

// EmailService handles single-entity email actions. Every action applies
// its overlay before the remote call is issued; rollback policy on
// failure varies per action and is documented on each method.
type EmailService interface {
	MarkRead(ctx context.Context, entityID string) error
	MarkUnread(ctx context.Context, entityID string) error
	Archive(ctx context.Context, entityID string) error
	MoveToCategory(ctx context.Context, entityID, from, to string) error
	ApplyLabel(ctx context.Context, entityID, label string) error
	RemoveLabel(ctx context.Context, entityID, label string) error
}

// UndoService is the delayed-commit coordinator. Enqueued operations are
// visually applied immediately and commit for real only after the grace
// window, unless the returned handle is cancelled first.
type UndoService interface {
	EnqueueDelete(ctx context.Context, entityIDs []string) (*pending.Handle, error)
	EnqueueSend(ctx context.Context, draft *Draft) (*pending.Handle, error)
	LastHandle() *pending.Handle
}

// BatchOp is an operation the batch executor can apply to a selection.
type BatchOp string

const (
	BatchMarkRead   BatchOp = "markRead"
	BatchMarkUnread BatchOp = "markUnread"
	BatchMarkDone   BatchOp = "markDone"
	BatchDelete     BatchOp = "delete"
)

// BatchService applies an operation to the current selection as a unit.
type BatchService interface {
	ApplyToSelection(ctx context.Context, op BatchOp, selection *SelectionSet) error
}

// SearchService persists and recalls search history.
type SearchService interface {
	SaveHistory(ctx context.Context, query string) error
	History(ctx context.Context, limit int) ([]string, error)
}

// ComposeSurface is the compose UI as seen from the coordinator: it
// receives a payload back when an undo-cancel of a send restores the
// draft for further editing.
type ComposeSurface interface {
	RestoreDraft(draft *Draft)
}

// DetailView is the open-entity view as seen from the batch executor.
// When a batch deletes or archives the shown entity, the executor
// advances it to a neighbor or closes it.
type DetailView interface {
	ShownEntityID() string
	// Advance moves to the given neighbor entity, or closes the view
	// when id is empty.
	Advance(id string)
}

// Notifier surfaces transient outcomes (undo toasts, failures) to the
// user. The TUI implements it; tests use a recording fake.
type Notifier interface {
	Notify(level NotifyLevel, msg string)
	// OfferUndo shows an undo affordance for a pending operation.
	OfferUndo(handle *pending.Handle, msg string)
}

// NotifyLevel classifies a notification for display purposes.
type NotifyLevel int

const (
	NotifyInfo NotifyLevel = iota
	NotifySuccess
	NotifyWarning
	NotifyError
)

// Draft is a composed message awaiting transmission. ComposeContextID
// ties it to the compose surface it came from so a cancelled send can be
// restored there.
type Draft struct {
	ComposeContextID string
	ThreadID         string
	From             string
	To               []string
	Cc               []string
	Bcc              []string
	Subject          string
	Body             string
}

// SelectionSet is the set of entity IDs checked for a batch action. It is
// independent of the overlay and cleared after every batch action.
type SelectionSet struct {
	ids map[string]bool
}

// NewSelectionSet creates an empty selection.
func NewSelectionSet() *SelectionSet {
	return &SelectionSet{ids: make(map[string]bool)}
}

// Toggle flips membership of an entity ID and reports the new state.
func (s *SelectionSet) Toggle(id string) bool {
	if s.ids[id] {
		delete(s.ids, id)
		return false
	}
	s.ids[id] = true
	return true
}

// Add inserts an entity ID.
func (s *SelectionSet) Add(id string) { s.ids[id] = true }

// Contains reports membership.
func (s *SelectionSet) Contains(id string) bool { return s.ids[id] }

// Len returns the selection size.
func (s *SelectionSet) Len() int { return len(s.ids) }

// IDs snapshots the selection into a slice.
func (s *SelectionSet) IDs() []string {
	out := make([]string, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	return out
}

// Clear empties the selection.
func (s *SelectionSet) Clear() {
	s.ids = make(map[string]bool)
}

// ExpandToMessageIDs expands entity IDs to their member message IDs using
// the feed's last-known membership lists. Entities the feed no longer
// knows expand to their own ID so the remote call still targets them.
func ExpandToMessageIDs(lookup func(id string) (feed.Entity, bool), entityIDs []string) []string {
	var out []string
	for _, id := range entityIDs {
		e, ok := lookup(id)
		if !ok || len(e.MessageIDs) == 0 {
			out = append(out, id)
			continue
		}
		out = append(out, e.MessageIDs...)
	}
	return out
}
