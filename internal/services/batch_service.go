package services

import (
	"context"
	"fmt"
	"log"

	"github.com/asandoval/breeze/internal/overlay"
)

// BatchServiceImpl implements BatchService. Overlay writes for a batch
// are synchronous and the selection is cleared before any remote call
// resolves, so the list reflects the action instantly.
//
// Rollback policy is deliberately uneven and matches single-item
// behavior: markDone reverts the whole batch on remote failure, the
// read-state ops never revert, and delete goes through the undo
// coordinator so it stays cancellable while done does not.
type BatchServiceImpl struct {
	repo      MessageRepository
	projector *overlay.Projector
	store     *overlay.Store
	undo      UndoService
	detail    DetailView
	logger    *log.Logger
}

// NewBatchService creates a new batch executor.
func NewBatchService(repo MessageRepository, projector *overlay.Projector, undo UndoService) *BatchServiceImpl {
	return &BatchServiceImpl{
		repo:      repo,
		projector: projector,
		store:     projector.Store(),
		undo:      undo,
	}
}

// SetLogger sets the logger for debug output.
func (s *BatchServiceImpl) SetLogger(logger *log.Logger) {
	s.logger = logger
}

// SetDetailView attaches the open-entity view so a batch that hides the
// shown entity can advance or close it.
func (s *BatchServiceImpl) SetDetailView(detail DetailView) {
	s.detail = detail
}

// ApplyToSelection applies op to every selected entity as a unit. An
// empty selection is a no-op, never an error. The selection is cleared
// before the remote call is issued.
func (s *BatchServiceImpl) ApplyToSelection(ctx context.Context, op BatchOp, selection *SelectionSet) error {
	if selection == nil || selection.Len() == 0 {
		return nil
	}
	ids := selection.IDs()
	selection.Clear()

	switch op {
	case BatchMarkRead:
		return s.setReadBulk(ctx, ids, true)
	case BatchMarkUnread:
		return s.setReadBulk(ctx, ids, false)
	case BatchMarkDone:
		return s.markDoneBulk(ctx, ids)
	case BatchDelete:
		s.advanceDetailAway(ids)
		_, err := s.undo.EnqueueDelete(ctx, ids)
		return err
	default:
		return fmt.Errorf("%w: unknown batch op %q", ErrInvalidInput, op)
	}
}

// setReadBulk applies the read override to every ID and issues a single
// bulk call over the expanded message IDs. Failures are not rolled back;
// the optimistic state stands and the feed corrects it eventually.
func (s *BatchServiceImpl) setReadBulk(ctx context.Context, ids []string, read bool) error {
	for _, id := range ids {
		v := read
		s.store.Apply(id, overlay.Patch{ReadOverride: &v})
	}
	msgIDs := ExpandToMessageIDs(s.projector.Entity, ids)
	var err error
	if read {
		err = s.repo.BulkMarkRead(ctx, msgIDs)
	} else {
		err = s.repo.BulkMarkUnread(ctx, msgIDs)
	}
	if err != nil {
		if s.logger != nil {
			s.logger.Printf("batch: bulk read=%v failed for %d ids: %v", read, len(ids), err)
		}
		return fmt.Errorf("bulk update read state: %w", err)
	}
	return nil
}

// markDoneBulk archives the whole batch optimistically; on remote failure
// every entity's archived override is restored to its pre-action state.
func (s *BatchServiceImpl) markDoneBulk(ctx context.Context, ids []string) error {
	s.advanceDetailAway(ids)
	prev := make(map[string]*bool, len(ids))
	for _, id := range ids {
		if entry, ok := s.store.Entry(id); ok {
			prev[id] = entry.Archived
		}
		archived := true
		s.store.Apply(id, overlay.Patch{Archived: &archived})
	}

	msgIDs := ExpandToMessageIDs(s.projector.Entity, ids)
	if err := s.repo.BulkArchive(ctx, msgIDs); err != nil {
		// All-or-nothing revert of the archived override.
		for _, id := range ids {
			if p := prev[id]; p != nil {
				v := *p
				s.store.Apply(id, overlay.Patch{Archived: &v})
			} else {
				s.store.Clear(id, overlay.FieldArchived)
			}
		}
		return fmt.Errorf("bulk done: %w", err)
	}
	return nil
}

// advanceDetailAway moves the open detail view off any entity the batch
// is about to hide: next item first, previous as fallback, closed when
// the list has nothing else.
func (s *BatchServiceImpl) advanceDetailAway(ids []string) {
	if s.detail == nil {
		return
	}
	shown := s.detail.ShownEntityID()
	if shown == "" {
		return
	}
	affected := make(map[string]bool, len(ids))
	for _, id := range ids {
		affected[id] = true
	}
	if !affected[shown] {
		return
	}
	entity, ok := s.projector.Entity(shown)
	if !ok {
		s.detail.Advance("")
		return
	}
	category := s.store.Project(entity).Category
	list := s.projector.VisibleList(category)
	idx := -1
	for i := range list {
		if list[i].ID == shown {
			idx = i
			break
		}
	}
	for i := idx + 1; i >= 0 && i < len(list); i++ {
		if !affected[list[i].ID] {
			s.detail.Advance(list[i].ID)
			return
		}
	}
	for i := idx - 1; i >= 0; i-- {
		if !affected[list[i].ID] {
			s.detail.Advance(list[i].ID)
			return
		}
	}
	s.detail.Advance("")
}
