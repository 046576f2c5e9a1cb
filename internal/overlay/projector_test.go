package overlay

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/asandoval/breeze/internal/feed"
)

func testSnapshot() feed.Snapshot {
	base := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	return feed.Snapshot{
		Category: "urgent",
		Entities: []feed.Entity{
			{ID: "t1", Category: "urgent", Read: false, Date: base.Add(2 * time.Hour)},
			{ID: "t2", Category: "urgent", Read: false, Date: base.Add(time.Hour)},
			{ID: "t3", Category: "urgent", Read: true, Date: base},
		},
		FetchedAt: time.Now(),
	}
}

func TestProjector_VisibleListNewestFirst(t *testing.T) {
	p := NewProjector(NewStore())
	p.ApplySnapshot(testSnapshot())

	list := p.VisibleList("urgent")

	assert.Len(t, list, 3)
	assert.Equal(t, "t1", list[0].ID)
	assert.Equal(t, "t2", list[1].ID)
	assert.Equal(t, "t3", list[2].ID)
}

func TestProjector_UnreadCountFoldsOverlay(t *testing.T) {
	store := NewStore()
	p := NewProjector(store)
	p.ApplySnapshot(testSnapshot())

	assert.Equal(t, 2, p.UnreadCount("urgent"))

	// Optimistically mark one unread thread read.
	store.Apply("t1", Patch{ReadOverride: boolPtr(true)})
	assert.Equal(t, 1, p.UnreadCount("urgent"))

	// And the already-read one unread.
	store.Apply("t3", Patch{ReadOverride: boolPtr(false)})
	assert.Equal(t, 2, p.UnreadCount("urgent"))
}

func TestProjector_DeletedEntityHiddenFromList(t *testing.T) {
	store := NewStore()
	p := NewProjector(store)
	p.ApplySnapshot(testSnapshot())

	store.Apply("t2", Patch{Deleted: boolPtr(true)})

	list := p.VisibleList("urgent")
	assert.Len(t, list, 2)
	for _, e := range list {
		assert.NotEqual(t, "t2", e.ID)
	}
}

func TestProjector_CategoryMoveShowsInTargetList(t *testing.T) {
	store := NewStore()
	p := NewProjector(store)
	p.ApplySnapshot(testSnapshot())
	p.ApplySnapshot(feed.Snapshot{Category: "others"})

	store.Apply("t1", Patch{CategoryMove: &CategoryMove{From: "urgent", To: "others"}})

	urgent := p.VisibleList("urgent")
	others := p.VisibleList("others")
	assert.Len(t, urgent, 2)
	assert.Len(t, others, 1)
	assert.Equal(t, "t1", others[0].ID)
	assert.Equal(t, "others", others[0].Category)
}

func TestProjector_OtherCategorySnapshotKeepsPendingDelete(t *testing.T) {
	store := NewStore()
	p := NewProjector(store)
	p.ApplySnapshot(testSnapshot())

	// t1 hidden while its trash call waits out the grace window.
	store.Apply("t1", Patch{Deleted: boolPtr(true)})
	assert.Len(t, p.VisibleList("urgent"), 2)

	// A delivery for an unrelated category arrives mid-window. t1 is of
	// course absent from it; that must not resurrect it.
	p.ApplySnapshot(feed.Snapshot{
		Category: "others",
		Entities: []feed.Entity{{ID: "o1", Category: "others", Date: time.Now()}},
	})

	assert.Len(t, p.VisibleList("urgent"), 2)
	for _, e := range p.VisibleList("urgent") {
		assert.NotEqual(t, "t1", e.ID)
	}
	assert.Equal(t, 1, store.Len())

	// Once t1's own category reports it gone the override is confirmed
	// and pruned.
	p.ApplySnapshot(feed.Snapshot{
		Category: "urgent",
		Entities: testSnapshot().Entities[1:],
	})
	assert.Len(t, p.VisibleList("urgent"), 2)
	assert.Equal(t, 0, store.Len())
}

func TestProjector_SnapshotReplacesNotMerges(t *testing.T) {
	p := NewProjector(NewStore())
	p.ApplySnapshot(testSnapshot())

	p.ApplySnapshot(feed.Snapshot{
		Category: "urgent",
		Entities: []feed.Entity{{ID: "t9", Category: "urgent"}},
	})

	list := p.VisibleList("urgent")
	assert.Len(t, list, 1)
	assert.Equal(t, "t9", list[0].ID)
}

func TestProjector_ApplySnapshotPrunesOverlay(t *testing.T) {
	store := NewStore()
	p := NewProjector(store)
	store.Apply("t1", Patch{ReadOverride: boolPtr(true)})

	p.ApplySnapshot(feed.Snapshot{
		Category: "urgent",
		Entities: []feed.Entity{{ID: "t1", Category: "urgent", Read: true}},
	})

	assert.Equal(t, 0, store.Len())
}

func TestProjector_EphemeralShownInThread(t *testing.T) {
	p := NewProjector(NewStore())
	p.ApplyThreadSnapshot(feed.ThreadSnapshot{
		ThreadID: "t1",
		Messages: []feed.Message{{ID: "m1", ThreadID: "t1"}},
	})

	p.AddEphemeral(feed.Message{ID: "pending-1", ThreadID: "t1", Body: "on my way"})

	msgs := p.ThreadMessages("t1")
	assert.Len(t, msgs, 2)
	assert.Equal(t, "pending-1", msgs[1].ID)
	assert.Equal(t, 1, p.ThreadMessageCount("t1"), "ephemerals never count as feed messages")
}

func TestProjector_EphemeralDroppedOnFeedGrowth(t *testing.T) {
	p := NewProjector(NewStore())
	p.ApplyThreadSnapshot(feed.ThreadSnapshot{
		ThreadID: "t1",
		Messages: []feed.Message{{ID: "m1", ThreadID: "t1"}},
	})
	p.AddEphemeral(feed.Message{ID: "pending-1", ThreadID: "t1"})

	// Same count: the real message has not landed, keep the ephemeral.
	p.ApplyThreadSnapshot(feed.ThreadSnapshot{
		ThreadID: "t1",
		Messages: []feed.Message{{ID: "m1", ThreadID: "t1"}},
	})
	assert.Len(t, p.ThreadMessages("t1"), 2)

	// Feed grew past the baseline: retract, no duplicate.
	p.ApplyThreadSnapshot(feed.ThreadSnapshot{
		ThreadID: "t1",
		Messages: []feed.Message{{ID: "m1", ThreadID: "t1"}, {ID: "m2", ThreadID: "t1"}},
	})
	msgs := p.ThreadMessages("t1")
	assert.Len(t, msgs, 2)
	assert.Equal(t, "m2", msgs[1].ID)
}

func TestProjector_RetractEphemeral(t *testing.T) {
	p := NewProjector(NewStore())
	id := p.AddEphemeral(feed.Message{ID: "pending-1", ThreadID: "t1"})

	p.RetractEphemeral("t1", id)

	assert.Empty(t, p.ThreadMessages("t1"))
	// Retracting twice is safe.
	p.RetractEphemeral("t1", id)
}

func TestProjector_EntityLookupAcrossSnapshots(t *testing.T) {
	p := NewProjector(NewStore())
	p.ApplySnapshot(testSnapshot())
	p.ApplySnapshot(feed.Snapshot{
		Category: "others",
		Entities: []feed.Entity{{ID: "o1", Category: "others"}},
	})

	e, ok := p.Entity("o1")
	assert.True(t, ok)
	assert.Equal(t, "others", e.Category)

	_, ok = p.Entity("missing")
	assert.False(t, ok)
}

func TestProjector_Categories(t *testing.T) {
	p := NewProjector(NewStore())
	p.ApplySnapshot(feed.Snapshot{Category: "urgent"})
	p.ApplySnapshot(feed.Snapshot{Category: "done"})

	assert.Equal(t, []string{"done", "urgent"}, p.Categories())
}
