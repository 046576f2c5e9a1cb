package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/asandoval/breeze/internal/feed"
	"github.com/asandoval/breeze/internal/overlay"
)

// MockRepository implements MessageRepository for testing
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) BulkMarkRead(ctx context.Context, messageIDs []string) error {
	args := m.Called(ctx, messageIDs)
	return args.Error(0)
}

func (m *MockRepository) BulkMarkUnread(ctx context.Context, messageIDs []string) error {
	args := m.Called(ctx, messageIDs)
	return args.Error(0)
}

func (m *MockRepository) BulkArchive(ctx context.Context, messageIDs []string) error {
	args := m.Called(ctx, messageIDs)
	return args.Error(0)
}

func (m *MockRepository) BulkTrash(ctx context.Context, messageIDs []string) error {
	args := m.Called(ctx, messageIDs)
	return args.Error(0)
}

func (m *MockRepository) BulkApplyLabel(ctx context.Context, messageIDs []string, label string) error {
	args := m.Called(ctx, messageIDs, label)
	return args.Error(0)
}

func (m *MockRepository) BulkRemoveLabel(ctx context.Context, messageIDs []string, label string) error {
	args := m.Called(ctx, messageIDs, label)
	return args.Error(0)
}

func (m *MockRepository) Recategorize(ctx context.Context, messageIDs []string, from, to string) error {
	args := m.Called(ctx, messageIDs, from, to)
	return args.Error(0)
}

func (m *MockRepository) SendMessage(ctx context.Context, draft *Draft) (string, error) {
	args := m.Called(ctx, draft)
	return args.String(0), args.Error(1)
}

func (m *MockRepository) CancelScheduledSend(ctx context.Context, draftID string) error {
	args := m.Called(ctx, draftID)
	return args.Error(0)
}

func (m *MockRepository) RescheduleSend(ctx context.Context, draftID string, at time.Time) error {
	args := m.Called(ctx, draftID, at)
	return args.Error(0)
}

func seededProjector() *overlay.Projector {
	p := overlay.NewProjector(overlay.NewStore())
	p.ApplySnapshot(feed.Snapshot{
		Category: "urgent",
		Entities: []feed.Entity{
			{ID: "t1", Category: "urgent", MessageIDs: []string{"m1", "m2"}, Labels: []string{"URGENT"}},
			{ID: "t2", Category: "urgent", MessageIDs: []string{"m3"}},
		},
	})
	return p
}

func TestEmailService_MarkRead_AppliesOverlayAndExpandsIDs(t *testing.T) {
	repo := &MockRepository{}
	projector := seededProjector()
	service := NewEmailService(repo, projector)
	ctx := context.Background()

	repo.On("BulkMarkRead", ctx, []string{"m1", "m2"}).Return(nil)

	err := service.MarkRead(ctx, "t1")

	assert.NoError(t, err)
	entry, ok := projector.Store().Entry("t1")
	assert.True(t, ok)
	assert.True(t, *entry.ReadOverride)
	repo.AssertExpectations(t)
}

func TestEmailService_MarkRead_FailureKeepsOverlay(t *testing.T) {
	repo := &MockRepository{}
	projector := seededProjector()
	service := NewEmailService(repo, projector)
	ctx := context.Background()

	repo.On("BulkMarkRead", ctx, mock.Anything).Return(errors.New("network down"))

	err := service.MarkRead(ctx, "t1")

	assert.Error(t, err)
	entry, ok := projector.Store().Entry("t1")
	assert.True(t, ok, "read-state failures are not rolled back")
	assert.True(t, *entry.ReadOverride)
}

func TestEmailService_MarkUnread(t *testing.T) {
	repo := &MockRepository{}
	projector := seededProjector()
	service := NewEmailService(repo, projector)
	ctx := context.Background()

	repo.On("BulkMarkUnread", ctx, []string{"m3"}).Return(nil)

	err := service.MarkUnread(ctx, "t2")

	assert.NoError(t, err)
	entry, _ := projector.Store().Entry("t2")
	assert.False(t, *entry.ReadOverride)
	repo.AssertExpectations(t)
}

func TestEmailService_EmptyEntityID(t *testing.T) {
	repo := &MockRepository{}
	service := NewEmailService(repo, seededProjector())
	ctx := context.Background()

	assert.ErrorIs(t, service.MarkRead(ctx, ""), ErrInvalidMessageID)
	assert.ErrorIs(t, service.Archive(ctx, ""), ErrInvalidMessageID)
	assert.ErrorIs(t, service.MoveToCategory(ctx, "", "urgent", "done"), ErrInvalidMessageID)
	repo.AssertNotCalled(t, "BulkMarkRead", mock.Anything, mock.Anything)
}

func TestEmailService_Archive_FailureReverts(t *testing.T) {
	repo := &MockRepository{}
	projector := seededProjector()
	service := NewEmailService(repo, projector)
	ctx := context.Background()

	repo.On("BulkArchive", ctx, []string{"m1", "m2"}).Return(errors.New("boom"))

	err := service.Archive(ctx, "t1")

	assert.Error(t, err)
	_, ok := projector.Store().Entry("t1")
	assert.False(t, ok, "failed archive must revert the overlay")
}

func TestEmailService_Archive_Success(t *testing.T) {
	repo := &MockRepository{}
	projector := seededProjector()
	service := NewEmailService(repo, projector)
	ctx := context.Background()

	repo.On("BulkArchive", ctx, []string{"m1", "m2"}).Return(nil)

	err := service.Archive(ctx, "t1")

	assert.NoError(t, err)
	entity, _ := projector.Entity("t1")
	assert.False(t, projector.Store().VisibleIn(entity, "urgent"))
}

func TestEmailService_MoveToCategory(t *testing.T) {
	repo := &MockRepository{}
	projector := seededProjector()
	service := NewEmailService(repo, projector)
	ctx := context.Background()

	repo.On("Recategorize", ctx, []string{"m1", "m2"}, "urgent", "others").Return(nil)

	err := service.MoveToCategory(ctx, "t1", "urgent", "others")

	assert.NoError(t, err)
	entity, _ := projector.Entity("t1")
	assert.False(t, projector.Store().VisibleIn(entity, "urgent"))
	assert.True(t, projector.Store().VisibleIn(entity, "others"))
	repo.AssertExpectations(t)
}

func TestEmailService_MoveToCategory_SameCategoryIsNoop(t *testing.T) {
	repo := &MockRepository{}
	projector := seededProjector()
	service := NewEmailService(repo, projector)

	err := service.MoveToCategory(context.Background(), "t1", "urgent", "urgent")

	assert.NoError(t, err)
	assert.Equal(t, 0, projector.Store().Len())
	repo.AssertNotCalled(t, "Recategorize", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestEmailService_MoveToCategory_FailureReverts(t *testing.T) {
	repo := &MockRepository{}
	projector := seededProjector()
	service := NewEmailService(repo, projector)
	ctx := context.Background()

	repo.On("Recategorize", ctx, mock.Anything, "urgent", "others").Return(errors.New("boom"))

	err := service.MoveToCategory(ctx, "t1", "urgent", "others")

	assert.Error(t, err)
	entity, _ := projector.Entity("t1")
	assert.True(t, projector.Store().VisibleIn(entity, "urgent"))
}

func TestEmailService_ApplyLabel_SeedsFromEffectiveSet(t *testing.T) {
	repo := &MockRepository{}
	projector := seededProjector()
	service := NewEmailService(repo, projector)
	ctx := context.Background()

	repo.On("BulkApplyLabel", ctx, []string{"m1", "m2"}, "starred").Return(nil)

	err := service.ApplyLabel(ctx, "t1", "starred")

	assert.NoError(t, err)
	entity, _ := projector.Entity("t1")
	eff := projector.Store().Project(entity)
	assert.ElementsMatch(t, []string{"URGENT", "starred"}, eff.Labels)
}

func TestEmailService_RemoveLabel_FailureRestoresPriorOverride(t *testing.T) {
	repo := &MockRepository{}
	projector := seededProjector()
	service := NewEmailService(repo, projector)
	ctx := context.Background()

	repo.On("BulkApplyLabel", ctx, mock.Anything, "starred").Return(nil)
	repo.On("BulkRemoveLabel", ctx, mock.Anything, "URGENT").Return(errors.New("boom"))

	assert.NoError(t, service.ApplyLabel(ctx, "t1", "starred"))
	assert.Error(t, service.RemoveLabel(ctx, "t1", "URGENT"))

	entity, _ := projector.Entity("t1")
	eff := projector.Store().Project(entity)
	assert.ElementsMatch(t, []string{"URGENT", "starred"}, eff.Labels, "failed remove must restore the prior override")
}

func TestEmailService_UpdateLabel_EmptyLabel(t *testing.T) {
	service := NewEmailService(&MockRepository{}, seededProjector())
	assert.ErrorIs(t, service.ApplyLabel(context.Background(), "t1", ""), ErrInvalidLabelID)
}
