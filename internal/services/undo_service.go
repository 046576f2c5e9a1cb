package services

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/asandoval/breeze/internal/feed"
	"github.com/asandoval/breeze/internal/overlay"
	"github.com/asandoval/breeze/internal/pending"
	"github.com/google/uuid"
)

// Default grace windows between optimistic display and real commit.
const (
	DefaultDeleteGrace = 3000 * time.Millisecond
	DefaultSendGrace   = 5000 * time.Millisecond
)

// UndoServiceImpl implements UndoService on top of the pending-operation
// queue. Enqueued work is visually applied through the overlay store (or
// as an ephemeral thread message for sends) before any network traffic;
// the real call happens exactly once, on timer expiry, or never if the
// handle is cancelled inside the grace window.
type UndoServiceImpl struct {
	repo      MessageRepository
	projector *overlay.Projector
	store     *overlay.Store
	queue     *pending.Queue
	compose   ComposeSurface
	notifier  Notifier

	deleteGrace time.Duration
	sendGrace   time.Duration

	mu           sync.Mutex
	lastHandle   *pending.Handle
	pendingSends map[string]*pending.Handle // by compose context ID

	logger *log.Logger
}

// NewUndoService creates a new undo service. A nil queue gets a real
// clock; tests inject a queue built on a manual clock.
func NewUndoService(repo MessageRepository, projector *overlay.Projector, queue *pending.Queue, compose ComposeSurface, notifier Notifier) *UndoServiceImpl {
	if queue == nil {
		queue = pending.NewQueue(pending.RealClock{})
	}
	return &UndoServiceImpl{
		repo:         repo,
		projector:    projector,
		store:        projector.Store(),
		queue:        queue,
		compose:      compose,
		notifier:     notifier,
		deleteGrace:  DefaultDeleteGrace,
		sendGrace:    DefaultSendGrace,
		pendingSends: make(map[string]*pending.Handle),
	}
}

// SetLogger sets the logger for debug output.
func (s *UndoServiceImpl) SetLogger(logger *log.Logger) {
	s.logger = logger
}

// SetComposeSurface wires the surface drafts are restored into when a
// pending send is cancelled. The TUI is built after the services, so
// this is set late rather than at construction.
func (s *UndoServiceImpl) SetComposeSurface(compose ComposeSurface) {
	s.compose = compose
}

// SetNotifier wires the toast sink used for undo prompts.
func (s *UndoServiceImpl) SetNotifier(notifier Notifier) {
	s.notifier = notifier
}

// SetGraceWindows overrides the delete and send grace windows.
// Non-positive values keep the current setting.
func (s *UndoServiceImpl) SetGraceWindows(deleteGrace, sendGrace time.Duration) {
	if deleteGrace > 0 {
		s.deleteGrace = deleteGrace
	}
	if sendGrace > 0 {
		s.sendGrace = sendGrace
	}
}

// EnqueueDelete hides the entities immediately and schedules the real
// bulk trash call behind the grace window. Cancelling reverts the overlay
// and guarantees no network call is ever made for this operation.
func (s *UndoServiceImpl) EnqueueDelete(ctx context.Context, entityIDs []string) (*pending.Handle, error) {
	if len(entityIDs) == 0 {
		return nil, nil
	}
	deleted := true
	for _, id := range entityIDs {
		s.store.Apply(id, overlay.Patch{Deleted: &deleted})
	}
	// Expand before the timer fires: the feed may have forgotten the
	// entities by commit time, once the overlay hid them.
	msgIDs := ExpandToMessageIDs(s.projector.Entity, entityIDs)

	handle := s.queue.Schedule(pending.KindDelete, entityIDs, msgIDs, s.deleteGrace,
		func(op *pending.Operation) {
			ids := op.Payload.([]string)
			if err := s.repo.BulkTrash(context.Background(), ids); err != nil {
				// Revert only the fields this call was meant to confirm.
				for _, id := range op.EntityIDs {
					s.store.Clear(id, overlay.FieldDeleted)
				}
				s.surface(NotifyError, fmt.Sprintf("Delete failed: %v", err))
				return
			}
			// Success: the deleted overlay stays until the feed snapshot
			// confirms removal and prunes it.
		},
		func(op *pending.Operation) {
			for _, id := range op.EntityIDs {
				s.store.Clear(id, overlay.FieldDeleted)
			}
		})

	s.mu.Lock()
	s.lastHandle = handle
	s.mu.Unlock()
	if s.notifier != nil {
		s.notifier.OfferUndo(handle, deleteToastText(len(entityIDs)))
	}
	return handle, nil
}

// EnqueueSend optimistically shows the composed message in its thread and
// schedules the real transmission. Cancelling restores the draft into the
// compose surface for further editing. A second pending send for the same
// compose context is rejected with ErrSendPending.
func (s *UndoServiceImpl) EnqueueSend(ctx context.Context, draft *Draft) (*pending.Handle, error) {
	if draft == nil {
		return nil, ErrInvalidInput
	}
	s.mu.Lock()
	if prev, ok := s.pendingSends[draft.ComposeContextID]; ok && !prev.Cancelled() {
		s.mu.Unlock()
		return nil, ErrSendPending
	}
	s.mu.Unlock()

	ephemeralID := "pending-" + uuid.New().String()
	s.projector.AddEphemeral(feed.Message{
		ID:       ephemeralID,
		ThreadID: draft.ThreadID,
		From:     draft.From,
		To:       draft.To,
		Subject:  draft.Subject,
		Body:     draft.Body,
		Date:     s.queue.Clock().Now(),
		Read:     true,
	})

	handle := s.queue.Schedule(pending.KindSend, []string{draft.ThreadID}, draft, s.sendGrace,
		func(op *pending.Operation) {
			d := op.Payload.(*Draft)
			s.clearPendingSend(d.ComposeContextID)
			if _, err := s.repo.SendMessage(context.Background(), d); err != nil {
				s.projector.RetractEphemeral(d.ThreadID, ephemeralID)
				s.surface(NotifyError, fmt.Sprintf("Send failed: %v", err))
				return
			}
			// The ephemeral stays visible until the feed delivers the
			// real message and thread growth retracts it.
		},
		func(op *pending.Operation) {
			d := op.Payload.(*Draft)
			s.clearPendingSend(d.ComposeContextID)
			s.projector.RetractEphemeral(d.ThreadID, ephemeralID)
			if s.compose != nil {
				s.compose.RestoreDraft(d)
			}
		})

	s.mu.Lock()
	s.pendingSends[draft.ComposeContextID] = handle
	s.lastHandle = handle
	s.mu.Unlock()
	if s.notifier != nil {
		s.notifier.OfferUndo(handle, "Sending…")
	}
	return handle, nil
}

// LastHandle returns the most recently enqueued operation's handle, for
// the keyboard undo path.
func (s *UndoServiceImpl) LastHandle() *pending.Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastHandle
}

func (s *UndoServiceImpl) clearPendingSend(composeContextID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pendingSends, composeContextID)
}

func (s *UndoServiceImpl) surface(level NotifyLevel, msg string) {
	if s.logger != nil {
		s.logger.Printf("undo: %s", msg)
	}
	if s.notifier != nil {
		s.notifier.Notify(level, msg)
	}
}

func deleteToastText(count int) string {
	if count == 1 {
		return "Deleted 1 conversation"
	}
	return fmt.Sprintf("Deleted %d conversations", count)
}
