package services

import (
	"context"
	"time"

	"github.com/asandoval/breeze/internal/gmail"
)

// GmailRepository adapts the Gmail client to the MessageRepository
// interface the services consume.
type GmailRepository struct {
	client *gmail.Client
}

// NewGmailRepository creates a repository backed by the Gmail client.
func NewGmailRepository(client *gmail.Client) *GmailRepository {
	return &GmailRepository{client: client}
}

func (r *GmailRepository) BulkMarkRead(ctx context.Context, messageIDs []string) error {
	return r.client.BulkMarkRead(ctx, messageIDs)
}

func (r *GmailRepository) BulkMarkUnread(ctx context.Context, messageIDs []string) error {
	return r.client.BulkMarkUnread(ctx, messageIDs)
}

func (r *GmailRepository) BulkArchive(ctx context.Context, messageIDs []string) error {
	return r.client.BulkArchive(ctx, messageIDs)
}

func (r *GmailRepository) BulkTrash(ctx context.Context, messageIDs []string) error {
	return r.client.BulkTrash(ctx, messageIDs)
}

func (r *GmailRepository) BulkApplyLabel(ctx context.Context, messageIDs []string, label string) error {
	return r.client.BulkApplyLabel(ctx, messageIDs, label)
}

func (r *GmailRepository) BulkRemoveLabel(ctx context.Context, messageIDs []string, label string) error {
	return r.client.BulkRemoveLabel(ctx, messageIDs, label)
}

func (r *GmailRepository) Recategorize(ctx context.Context, messageIDs []string, from, to string) error {
	return r.client.Recategorize(ctx, messageIDs, from, to)
}

func (r *GmailRepository) SendMessage(ctx context.Context, draft *Draft) (string, error) {
	if draft == nil {
		return "", ErrInvalidInput
	}
	return r.client.SendMessage(ctx, draft.From, draft.To, draft.Cc, draft.Bcc, draft.Subject, draft.Body, draft.ThreadID)
}

func (r *GmailRepository) CancelScheduledSend(ctx context.Context, draftID string) error {
	return r.client.CancelScheduledSend(ctx, draftID)
}

func (r *GmailRepository) RescheduleSend(ctx context.Context, draftID string, at time.Time) error {
	return r.client.RescheduleSend(ctx, draftID, at)
}
