package services

import (
	"context"
	"fmt"
	"log"

	"github.com/asandoval/breeze/internal/overlay"
)

// EmailServiceImpl implements EmailService over the overlay store and the
// remote mutation API. The overlay write always lands before the remote
// call is issued, so the UI reflects the action immediately; a later user
// action on the same field wins over an earlier call still in flight.
type EmailServiceImpl struct {
	repo      MessageRepository
	store     *overlay.Store
	projector *overlay.Projector
	logger    *log.Logger
}

// NewEmailService creates a new email service.
func NewEmailService(repo MessageRepository, projector *overlay.Projector) *EmailServiceImpl {
	return &EmailServiceImpl{
		repo:      repo,
		store:     projector.Store(),
		projector: projector,
	}
}

// SetLogger sets the logger for debug output.
func (s *EmailServiceImpl) SetLogger(logger *log.Logger) {
	s.logger = logger
}

// MarkRead marks an entity read. The optimistic state is kept even if the
// remote call fails; the feed will eventually correct a wrong guess.
func (s *EmailServiceImpl) MarkRead(ctx context.Context, entityID string) error {
	return s.setRead(ctx, entityID, true)
}

// MarkUnread marks an entity unread. Same no-rollback policy as MarkRead.
func (s *EmailServiceImpl) MarkUnread(ctx context.Context, entityID string) error {
	return s.setRead(ctx, entityID, false)
}

func (s *EmailServiceImpl) setRead(ctx context.Context, entityID string, read bool) error {
	if entityID == "" {
		return ErrInvalidMessageID
	}
	s.store.Apply(entityID, overlay.Patch{ReadOverride: &read})
	msgIDs := ExpandToMessageIDs(s.projector.Entity, []string{entityID})
	var err error
	if read {
		err = s.repo.BulkMarkRead(ctx, msgIDs)
	} else {
		err = s.repo.BulkMarkUnread(ctx, msgIDs)
	}
	if err != nil {
		// Read-state failures are deliberately not rolled back.
		if s.logger != nil {
			s.logger.Printf("email: mark read=%v failed for %s: %v", read, entityID, err)
		}
		return fmt.Errorf("update read state: %w", err)
	}
	return nil
}

// Archive hides an entity from its list and archives its messages
// remotely. On failure the archived overlay is reverted.
func (s *EmailServiceImpl) Archive(ctx context.Context, entityID string) error {
	if entityID == "" {
		return ErrInvalidMessageID
	}
	archived := true
	s.store.Apply(entityID, overlay.Patch{Archived: &archived})
	msgIDs := ExpandToMessageIDs(s.projector.Entity, []string{entityID})
	if err := s.repo.BulkArchive(ctx, msgIDs); err != nil {
		s.store.Clear(entityID, overlay.FieldArchived)
		return fmt.Errorf("archive: %w", err)
	}
	return nil
}

// MoveToCategory applies a category-move overlay, hiding the entity from
// its old list before the backend has relabeled it, then issues the
// recategorize call. On failure the move overlay is reverted.
func (s *EmailServiceImpl) MoveToCategory(ctx context.Context, entityID, from, to string) error {
	if entityID == "" {
		return ErrInvalidMessageID
	}
	if from == to {
		return nil
	}
	s.store.Apply(entityID, overlay.Patch{CategoryMove: &overlay.CategoryMove{From: from, To: to}})
	msgIDs := ExpandToMessageIDs(s.projector.Entity, []string{entityID})
	if err := s.repo.Recategorize(ctx, msgIDs, from, to); err != nil {
		s.store.Clear(entityID, overlay.FieldCategoryMove)
		return fmt.Errorf("move to %s: %w", to, err)
	}
	return nil
}

// ApplyLabel adds a label through the overlay, then remotely. The label
// override is reverted on failure.
func (s *EmailServiceImpl) ApplyLabel(ctx context.Context, entityID, label string) error {
	return s.updateLabel(ctx, entityID, label, true)
}

// RemoveLabel removes a label through the overlay, then remotely. The
// label override is reverted on failure.
func (s *EmailServiceImpl) RemoveLabel(ctx context.Context, entityID, label string) error {
	return s.updateLabel(ctx, entityID, label, false)
}

func (s *EmailServiceImpl) updateLabel(ctx context.Context, entityID, label string, add bool) error {
	if entityID == "" {
		return ErrInvalidMessageID
	}
	if label == "" {
		return ErrInvalidLabelID
	}
	// Seed the override from the effective label set so a repeated apply
	// stays idempotent.
	prev, hadOverride := s.store.Entry(entityID)
	base := overlay.LabelSet{}
	if hadOverride && prev.LabelOverride != nil {
		for l := range prev.LabelOverride {
			base[l] = true
		}
	} else if e, ok := s.projector.Entity(entityID); ok {
		for _, l := range e.Labels {
			base[l] = true
		}
	}
	if add {
		base[label] = true
	} else {
		delete(base, label)
	}
	s.store.Apply(entityID, overlay.Patch{LabelOverride: base})

	msgIDs := ExpandToMessageIDs(s.projector.Entity, []string{entityID})
	var err error
	if add {
		err = s.repo.BulkApplyLabel(ctx, msgIDs, label)
	} else {
		err = s.repo.BulkRemoveLabel(ctx, msgIDs, label)
	}
	if err != nil {
		if hadOverride && prev.LabelOverride != nil {
			s.store.Apply(entityID, overlay.Patch{LabelOverride: prev.LabelOverride})
		} else {
			s.store.Clear(entityID, overlay.FieldLabels)
		}
		return fmt.Errorf("update label %s: %w", label, err)
	}
	return nil
}
