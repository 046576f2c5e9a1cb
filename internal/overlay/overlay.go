package overlay

import (
	"log"
	"sync"

	"github.com/asandoval/breeze/internal/feed"
)

// Field names an individual override inside an Entry, for selective clears.
type Field string

const (
	FieldRead         Field = "read"
	FieldArchived     Field = "archived"
	FieldDeleted      Field = "deleted"
	FieldCategoryMove Field = "category_move"
	FieldLabels       Field = "labels"
)

// CategoryMove records a locally-initiated recategorization that the
// backend has not confirmed yet.
type CategoryMove struct {
	From string
	To   string
}

// LabelSet is a label override; a nil LabelSet means "no override".
type LabelSet map[string]bool

// NewLabelSet builds a LabelSet from a list of label names.
func NewLabelSet(labels ...string) LabelSet {
	ls := make(LabelSet, len(labels))
	for _, l := range labels {
		ls[l] = true
	}
	return ls
}

// Names returns the labels in the set as a slice (unordered).
func (ls LabelSet) Names() []string {
	out := make([]string, 0, len(ls))
	for l := range ls {
		out = append(out, l)
	}
	return out
}

// Patch is a partial Entry; nil fields are left untouched on Apply.
type Patch struct {
	ReadOverride  *bool
	Archived      *bool
	Deleted       *bool
	CategoryMove  *CategoryMove
	LabelOverride LabelSet
}

// Entry holds the locally-known overrides for one entity. Each field is
// present only while the corresponding remote confirmation is outstanding.
type Entry struct {
	ReadOverride  *bool
	Archived      *bool
	Deleted       *bool
	CategoryMove  *CategoryMove
	LabelOverride LabelSet
}

func (e *Entry) empty() bool {
	return e.ReadOverride == nil && e.Archived == nil && e.Deleted == nil &&
		e.CategoryMove == nil && e.LabelOverride == nil
}

// EffectiveEntity is the merged view of a remote entity and its overlay
// entry; it is what consumers render.
type EffectiveEntity struct {
	feed.Entity
	Archived bool
	Deleted  bool
}

// Store maps entity IDs to their overlay entries. All writes go through
// Apply/Clear; rendering code only ever reads. A Store must be shared by
// handle, never copied.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*Entry
	logger  *log.Logger
}

// NewStore creates an empty overlay store.
func NewStore() *Store {
	return &Store{entries: make(map[string]*Entry)}
}

// SetLogger sets the logger for debug output.
func (s *Store) SetLogger(logger *log.Logger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logger = logger
}

// Apply merges a patch into the entry for entityID, last-write-wins per
// field. Applying the same patch twice is a no-op the second time.
func (s *Store) Apply(entityID string, patch Patch) {
	if entityID == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	entry := s.entries[entityID]
	if entry == nil {
		entry = &Entry{}
		s.entries[entityID] = entry
	}
	if patch.ReadOverride != nil {
		v := *patch.ReadOverride
		entry.ReadOverride = &v
	}
	if patch.Archived != nil {
		v := *patch.Archived
		entry.Archived = &v
	}
	if patch.Deleted != nil {
		v := *patch.Deleted
		entry.Deleted = &v
	}
	if patch.CategoryMove != nil {
		v := *patch.CategoryMove
		entry.CategoryMove = &v
	}
	if patch.LabelOverride != nil {
		ls := make(LabelSet, len(patch.LabelOverride))
		for l, ok := range patch.LabelOverride {
			ls[l] = ok
		}
		entry.LabelOverride = ls
	}
	if s.logger != nil {
		s.logger.Printf("overlay: apply %s -> %+v", entityID, *entry)
	}
}

// Clear removes the named fields from the entry for entityID; with no
// fields it removes the whole entry. Clearing an absent entry is a no-op.
func (s *Store) Clear(entityID string, fields ...Field) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry := s.entries[entityID]
	if entry == nil {
		return
	}
	if len(fields) == 0 {
		delete(s.entries, entityID)
		return
	}
	for _, f := range fields {
		switch f {
		case FieldRead:
			entry.ReadOverride = nil
		case FieldArchived:
			entry.Archived = nil
		case FieldDeleted:
			entry.Deleted = nil
		case FieldCategoryMove:
			entry.CategoryMove = nil
		case FieldLabels:
			entry.LabelOverride = nil
		}
	}
	if entry.empty() {
		delete(s.entries, entityID)
	}
}

// Entry returns a copy of the entry for entityID, if one exists.
func (s *Store) Entry(entityID string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry := s.entries[entityID]
	if entry == nil {
		return Entry{}, false
	}
	return copyEntry(entry), true
}

// Project applies the present overlay fields onto a remote entity. Fields
// with no override pass the remote value through unchanged.
func (s *Store) Project(remote feed.Entity) EffectiveEntity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	eff := EffectiveEntity{Entity: remote}
	entry := s.entries[remote.ID]
	if entry == nil {
		return eff
	}
	if entry.ReadOverride != nil {
		eff.Read = *entry.ReadOverride
	}
	if entry.Archived != nil {
		eff.Archived = *entry.Archived
	}
	if entry.Deleted != nil {
		eff.Deleted = *entry.Deleted
	}
	if entry.CategoryMove != nil {
		eff.Category = entry.CategoryMove.To
	}
	if entry.LabelOverride != nil {
		eff.Labels = entry.LabelOverride.Names()
	}
	return eff
}

// VisibleIn reports whether the entity should appear in the given
// category's list once its overlay is applied. Deleted and archived
// entities are hidden everywhere; a pending category move hides the
// entity from its old list and shows it in the new one before the
// backend has actually relabeled it.
func (s *Store) VisibleIn(remote feed.Entity, category string) bool {
	s.mu.RLock()
	entry := s.entries[remote.ID]
	s.mu.RUnlock()
	if entry != nil {
		if entry.Deleted != nil && *entry.Deleted {
			return false
		}
		if entry.Archived != nil && *entry.Archived {
			return false
		}
		if entry.CategoryMove != nil {
			return entry.CategoryMove.To == category
		}
	}
	return remote.Category == category
}

// PruneAgainst drops overlay fields the given snapshot already agrees
// with. known holds the entity IDs the previous snapshot for the same
// category contained; absence from the new snapshot counts as remote
// confirmation only for those. A snapshot for one category says nothing
// about entities living in another, so without the known set an
// unrelated category's delivery would strip a delete override that is
// still in flight. Memory hygiene only; projection results are
// identical either way.
func (s *Store) PruneAgainst(snap feed.Snapshot, known map[string]bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, entry := range s.entries {
		remote, ok := snap.Entity(id)
		if !ok {
			// A deleted/archived override is confirmed once the entity
			// stops appearing in the snapshot of the category it was
			// last seen in.
			if snap.Category != "" && known[id] {
				if entry.Deleted != nil && *entry.Deleted {
					entry.Deleted = nil
				}
				if entry.Archived != nil && *entry.Archived {
					entry.Archived = nil
				}
				if entry.CategoryMove != nil && entry.CategoryMove.From == snap.Category {
					entry.CategoryMove = nil
				}
			}
			if entry.empty() {
				delete(s.entries, id)
			}
			continue
		}
		if entry.ReadOverride != nil && remote.Read == *entry.ReadOverride {
			entry.ReadOverride = nil
		}
		if entry.CategoryMove != nil && remote.Category == entry.CategoryMove.To {
			entry.CategoryMove = nil
		}
		if entry.LabelOverride != nil && sameLabels(remote.Labels, entry.LabelOverride) {
			entry.LabelOverride = nil
		}
		if entry.empty() {
			delete(s.entries, id)
		}
	}
}

// Len returns the number of entities with at least one override.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func copyEntry(e *Entry) Entry {
	out := Entry{}
	if e.ReadOverride != nil {
		v := *e.ReadOverride
		out.ReadOverride = &v
	}
	if e.Archived != nil {
		v := *e.Archived
		out.Archived = &v
	}
	if e.Deleted != nil {
		v := *e.Deleted
		out.Deleted = &v
	}
	if e.CategoryMove != nil {
		v := *e.CategoryMove
		out.CategoryMove = &v
	}
	if e.LabelOverride != nil {
		ls := make(LabelSet, len(e.LabelOverride))
		for l, ok := range e.LabelOverride {
			ls[l] = ok
		}
		out.LabelOverride = ls
	}
	return out
}

func sameLabels(remote []string, override LabelSet) bool {
	if len(remote) != len(override) {
		return false
	}
	for _, l := range remote {
		if !override[l] {
			return false
		}
	}
	return true
}
