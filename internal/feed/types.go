package feed

import (
	"time"
)

// Entity is a conversation thread as last reported by the live feed.
// The feed owns these records; local code never mutates one in place,
// it shadows fields through the overlay store instead.
type Entity struct {
	ID         string
	Category   string
	Read       bool
	Labels     []string
	MessageIDs []string
	Subject    string
	From       string
	Snippet    string
	Date       time.Time
}

// Message is a single message inside a thread, as reported by the feed.
type Message struct {
	ID       string
	ThreadID string
	From     string
	To       []string
	Subject  string
	Body     string
	Date     time.Time
	Read     bool
}

// Snapshot is one complete delivery of ground truth for a category.
// Each delivery replaces the previous one wholesale; consumers must not
// treat it as a diff.
type Snapshot struct {
	Category  string
	Entities  []Entity
	FetchedAt time.Time
}

// ThreadSnapshot is one complete delivery of the messages of an open thread.
type ThreadSnapshot struct {
	ThreadID  string
	Messages  []Message
	FetchedAt time.Time
}

// HasEntity reports whether the snapshot contains the given entity ID.
func (s Snapshot) HasEntity(id string) bool {
	for i := range s.Entities {
		if s.Entities[i].ID == id {
			return true
		}
	}
	return false
}

// Entity returns the entity with the given ID, if present.
func (s Snapshot) Entity(id string) (Entity, bool) {
	for i := range s.Entities {
		if s.Entities[i].ID == id {
			return s.Entities[i], true
		}
	}
	return Entity{}, false
}
