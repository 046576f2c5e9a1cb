package feed

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeLister returns canned results and counts calls.
type fakeLister struct {
	mu       sync.Mutex
	entities []Entity
	messages []Message
	err      error
	calls    int
}

func (l *fakeLister) ListCategory(ctx context.Context, category string) ([]Entity, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	return l.entities, l.err
}

func (l *fakeLister) ListThread(ctx context.Context, threadID string) ([]Message, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	return l.messages, l.err
}

func TestSnapshot_EntityLookup(t *testing.T) {
	snap := Snapshot{
		Category: "urgent",
		Entities: []Entity{{ID: "t1", Subject: "hola"}, {ID: "t2"}},
	}

	assert.True(t, snap.HasEntity("t1"))
	assert.False(t, snap.HasEntity("t9"))

	e, ok := snap.Entity("t1")
	assert.True(t, ok)
	assert.Equal(t, "hola", e.Subject)

	_, ok = snap.Entity("t9")
	assert.False(t, ok)
}

func TestPoller_DeliversInitialSnapshot(t *testing.T) {
	lister := &fakeLister{entities: []Entity{{ID: "t1", Category: "urgent"}}}
	poller := NewPoller(lister, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := poller.Subscribe(ctx, "urgent")
	assert.NoError(t, err)

	select {
	case snap := <-ch:
		assert.Equal(t, "urgent", snap.Category)
		assert.Len(t, snap.Entities, 1)
		assert.False(t, snap.FetchedAt.IsZero())
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot delivered")
	}

	cancel()
	for range ch {
	}
}

func TestPoller_ChannelClosesOnCancel(t *testing.T) {
	lister := &fakeLister{}
	poller := NewPoller(lister, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())

	ch, err := poller.Subscribe(ctx, "urgent")
	assert.NoError(t, err)
	cancel()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("channel never closed")
		}
	}
}

func TestPoller_FetchErrorSkipsDelivery(t *testing.T) {
	lister := &fakeLister{err: errors.New("boom")}
	poller := NewPoller(lister, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())

	ch, err := poller.Subscribe(ctx, "urgent")
	assert.NoError(t, err)

	select {
	case snap, ok := <-ch:
		if ok {
			t.Fatalf("unexpected snapshot after fetch error: %+v", snap)
		}
	case <-time.After(200 * time.Millisecond):
	}

	cancel()
	for range ch {
	}
}

func TestPoller_SubscribeThread(t *testing.T) {
	lister := &fakeLister{messages: []Message{{ID: "m1", ThreadID: "t1"}}}
	poller := NewPoller(lister, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())

	ch, err := poller.SubscribeThread(ctx, "t1")
	assert.NoError(t, err)

	select {
	case snap := <-ch:
		assert.Equal(t, "t1", snap.ThreadID)
		assert.Len(t, snap.Messages, 1)
	case <-time.After(2 * time.Second):
		t.Fatal("no thread snapshot delivered")
	}

	cancel()
	for range ch {
	}
}

func TestPoller_DefaultInterval(t *testing.T) {
	poller := NewPoller(&fakeLister{}, 0)
	assert.Equal(t, DefaultPollInterval, poller.interval)
}

func TestPublishLatest_SlowConsumerSeesNewest(t *testing.T) {
	ch := make(chan Snapshot, 1)

	publishLatest(ch, Snapshot{Category: "one"})
	publishLatest(ch, Snapshot{Category: "two"})
	publishLatest(ch, Snapshot{Category: "three"})

	snap := <-ch
	assert.Equal(t, "three", snap.Category)
	select {
	case extra := <-ch:
		t.Fatalf("stale snapshot left behind: %+v", extra)
	default:
	}
}
