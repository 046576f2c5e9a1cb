package feed

import (
	"context"
	"log"
	"time"
)

// Source delivers replace-not-diff snapshots of remote ground truth.
// Consumers treat every delivery as "replace my view", never as a diff
// they must compute themselves.
type Source interface {
	Subscribe(ctx context.Context, category string) (<-chan Snapshot, error)
	SubscribeThread(ctx context.Context, threadID string) (<-chan ThreadSnapshot, error)
}

// Lister fetches current remote state for the poller. The Gmail client
// implements it.
type Lister interface {
	ListCategory(ctx context.Context, category string) ([]Entity, error)
	ListThread(ctx context.Context, threadID string) ([]Message, error)
}

// DefaultPollInterval is how often the poller refreshes a subscription.
const DefaultPollInterval = 15 * time.Second

// Poller is a Source that polls a Lister on an interval. Each fetch is
// published as a full snapshot; a slow consumer only ever sees the
// latest one.
type Poller struct {
	lister   Lister
	interval time.Duration
	logger   *log.Logger
}

// NewPoller creates a poller. A non-positive interval uses the default.
func NewPoller(lister Lister, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Poller{lister: lister, interval: interval}
}

// SetLogger sets the logger for debug output.
func (p *Poller) SetLogger(logger *log.Logger) {
	p.logger = logger
}

// Subscribe starts polling a category. The channel closes when ctx is
// done. Fetch errors are logged and skipped; the previous snapshot
// remains the consumer's ground truth.
func (p *Poller) Subscribe(ctx context.Context, category string) (<-chan Snapshot, error) {
	ch := make(chan Snapshot, 1)
	go func() {
		defer close(ch)
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()
		for {
			entities, err := p.lister.ListCategory(ctx, category)
			if err != nil {
				if p.logger != nil {
					p.logger.Printf("feed: list %s: %v", category, err)
				}
			} else {
				publishLatest(ch, Snapshot{
					Category:  category,
					Entities:  entities,
					FetchedAt: time.Now(),
				})
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
	return ch, nil
}

// SubscribeThread starts polling an open thread's messages.
func (p *Poller) SubscribeThread(ctx context.Context, threadID string) (<-chan ThreadSnapshot, error) {
	ch := make(chan ThreadSnapshot, 1)
	go func() {
		defer close(ch)
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()
		for {
			msgs, err := p.lister.ListThread(ctx, threadID)
			if err != nil {
				if p.logger != nil {
					p.logger.Printf("feed: thread %s: %v", threadID, err)
				}
			} else {
				publishLatest(ch, ThreadSnapshot{
					ThreadID:  threadID,
					Messages:  msgs,
					FetchedAt: time.Now(),
				})
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
	return ch, nil
}

// publishLatest replaces any unconsumed value so the channel always holds
// the newest snapshot.
func publishLatest[T any](ch chan T, v T) {
	for {
		select {
		case ch <- v:
			return
		default:
			select {
			case <-ch:
			default:
			}
		}
	}
}
