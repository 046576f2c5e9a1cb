package overlay

import (
	"sort"
	"sync"

	"github.com/asandoval/breeze/internal/feed"
)

// EphemeralMessage is a locally-synthesized sent message shown in a
// thread while its real transmission is still pending. It is not part of
// the overlay store proper; the feed never reported it.
type EphemeralMessage struct {
	Message feed.Message
	// BaselineCount is the thread's message count at the moment the
	// ephemeral was added. Once the feed reports more messages than the
	// baseline, the real message has landed and the ephemeral is dropped.
	BaselineCount int
}

// Projector derives what the UI renders by merging the feed's last-known
// snapshots with the overlay store. It caches only raw snapshots; every
// visible list and unread count is recomputed on demand, which is fine
// for the bounded list sizes involved.
type Projector struct {
	store *Store

	mu         sync.RWMutex
	snapshots  map[string]feed.Snapshot       // by category
	threads    map[string]feed.ThreadSnapshot // by thread ID
	ephemerals map[string][]EphemeralMessage  // by thread ID
}

// NewProjector creates a projector over the given overlay store.
func NewProjector(store *Store) *Projector {
	return &Projector{
		store:      store,
		snapshots:  make(map[string]feed.Snapshot),
		threads:    make(map[string]feed.ThreadSnapshot),
		ephemerals: make(map[string][]EphemeralMessage),
	}
}

// Store returns the overlay store this projector reads through.
func (p *Projector) Store() *Store {
	return p.store
}

// ApplySnapshot replaces the projector's view of ground truth for the
// snapshot's category and prunes overlay fields the feed now agrees with.
func (p *Projector) ApplySnapshot(snap feed.Snapshot) {
	p.mu.Lock()
	prev := p.snapshots[snap.Category]
	p.snapshots[snap.Category] = snap
	p.mu.Unlock()
	known := make(map[string]bool, len(prev.Entities))
	for i := range prev.Entities {
		known[prev.Entities[i].ID] = true
	}
	p.store.PruneAgainst(snap, known)
}

// ApplyThreadSnapshot replaces the known message list for a thread and
// retracts any ephemeral message whose real counterpart has arrived,
// detected by feed growth rather than content matching.
func (p *Projector) ApplyThreadSnapshot(snap feed.ThreadSnapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.threads[snap.ThreadID] = snap
	pending := p.ephemerals[snap.ThreadID]
	if len(pending) == 0 {
		return
	}
	kept := pending[:0]
	for _, em := range pending {
		if len(snap.Messages) > em.BaselineCount {
			continue
		}
		kept = append(kept, em)
	}
	if len(kept) == 0 {
		delete(p.ephemerals, snap.ThreadID)
	} else {
		p.ephemerals[snap.ThreadID] = kept
	}
}

// AddEphemeral optimistically shows a locally-synthesized message in its
// thread. Returns the message ID for later retraction.
func (p *Projector) AddEphemeral(msg feed.Message) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	baseline := len(p.threads[msg.ThreadID].Messages)
	p.ephemerals[msg.ThreadID] = append(p.ephemerals[msg.ThreadID], EphemeralMessage{
		Message:       msg,
		BaselineCount: baseline,
	})
	return msg.ID
}

// RetractEphemeral removes a previously added ephemeral message. Safe to
// call for an ID that was already dropped by feed growth.
func (p *Projector) RetractEphemeral(threadID, messageID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	pending := p.ephemerals[threadID]
	kept := pending[:0]
	for _, em := range pending {
		if em.Message.ID == messageID {
			continue
		}
		kept = append(kept, em)
	}
	if len(kept) == 0 {
		delete(p.ephemerals, threadID)
	} else {
		p.ephemerals[threadID] = kept
	}
}

// VisibleList returns the effective entities to render for a category,
// newest first. An entity appears here if its own snapshot places it in
// the category, or if a pending category move targets the category, and
// the overlay does not hide it.
func (p *Projector) VisibleList(category string) []EffectiveEntity {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var out []EffectiveEntity
	seen := make(map[string]bool)
	for _, snap := range p.snapshots {
		for i := range snap.Entities {
			e := snap.Entities[i]
			if seen[e.ID] {
				continue
			}
			if !p.store.VisibleIn(e, category) {
				continue
			}
			seen[e.ID] = true
			out = append(out, p.store.Project(e))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.After(out[j].Date)
	})
	return out
}

// UnreadCount folds every entity visible in the category through the
// overlay's read override, falling back to the remote read flag.
func (p *Projector) UnreadCount(category string) int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	count := 0
	seen := make(map[string]bool)
	for _, snap := range p.snapshots {
		for i := range snap.Entities {
			e := snap.Entities[i]
			if seen[e.ID] {
				continue
			}
			if !p.store.VisibleIn(e, category) {
				continue
			}
			seen[e.ID] = true
			if !p.store.Project(e).Read {
				count++
			}
		}
	}
	return count
}

// ThreadMessages returns the messages to render for an open thread: the
// feed's last snapshot plus any still-pending ephemeral sends, in date
// order with ephemerals last.
func (p *Projector) ThreadMessages(threadID string) []feed.Message {
	p.mu.RLock()
	defer p.mu.RUnlock()
	snap := p.threads[threadID]
	out := make([]feed.Message, 0, len(snap.Messages)+len(p.ephemerals[threadID]))
	out = append(out, snap.Messages...)
	for _, em := range p.ephemerals[threadID] {
		out = append(out, em.Message)
	}
	return out
}

// ThreadMessageCount returns the feed-reported message count for a
// thread, excluding ephemerals.
func (p *Projector) ThreadMessageCount(threadID string) int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.threads[threadID].Messages)
}

// Entity looks an entity up across all cached snapshots.
func (p *Projector) Entity(id string) (feed.Entity, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, snap := range p.snapshots {
		if e, ok := snap.Entity(id); ok {
			return e, true
		}
	}
	return feed.Entity{}, false
}

// Categories returns the categories a snapshot has been applied for.
func (p *Projector) Categories() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]string, 0, len(p.snapshots))
	for c := range p.snapshots {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}
