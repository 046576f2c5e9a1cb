// Package chord turns raw key presses into composite commands: the
// reply key followed by the reply-all key inside the chord window is
// reply-all, the reply key alone after the window is a plain reply, and
// the forward key always fires immediately. The defaults are "r", "a"
// and "f".
package chord

import (
	"sync"
	"time"
)

// Action is the composite command a key sequence resolved to.
type Action int

const (
	ActionNone Action = iota
	ActionReply
	ActionReplyAll
	ActionForward
)

func (a Action) String() string {
	switch a {
	case ActionReply:
		return "reply"
	case ActionReplyAll:
		return "reply-all"
	case ActionForward:
		return "forward"
	default:
		return "none"
	}
}

// Clock abstracts time for the chord window; production uses SystemClock.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is the cancellable handle for the deferred plain-reply check.
type Timer interface {
	Stop() bool
}

// SystemClock is the production Clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

func (SystemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// DefaultWindow is how long a leading "r" waits for a follow-up "a".
const DefaultWindow = 300 * time.Millisecond

// Keys are the runes the detector listens for.
type Keys struct {
	Reply    rune
	ReplyAll rune
	Forward  rune
}

// DefaultKeys returns the stock reply/reply-all/forward bindings.
func DefaultKeys() Keys {
	return Keys{Reply: 'r', ReplyAll: 'a', Forward: 'f'}
}

type state int

const (
	stateIdle state = iota
	statePending
)

// Detector is the chord state machine. It holds at most one pending key;
// generation counting keeps a stale deferred check from firing after the
// state moved on.
type Detector struct {
	mu         sync.Mutex
	clock      Clock
	window     time.Duration
	keys       Keys
	state      state
	pendingKey rune
	gen        int
	timer      Timer
	emit       func(Action)
}

// NewDetector creates a detector that calls emit for every resolved
// action. A nil clock uses the system clock; a non-positive window uses
// DefaultWindow. The detector starts on DefaultKeys.
func NewDetector(clock Clock, window time.Duration, emit func(Action)) *Detector {
	if clock == nil {
		clock = SystemClock{}
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &Detector{clock: clock, window: window, keys: DefaultKeys(), emit: emit}
}

// SetKeys rebinds the chord keys. Zero runes keep their default, so a
// caller can override just the bindings its configuration names.
func (d *Detector) SetKeys(keys Keys) {
	def := DefaultKeys()
	if keys.Reply == 0 {
		keys.Reply = def.Reply
	}
	if keys.ReplyAll == 0 {
		keys.ReplyAll = def.ReplyAll
	}
	if keys.Forward == 0 {
		keys.Forward = def.Forward
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.keys = keys
}

// HandleKey feeds one key press through the state machine. It returns
// true if the key was consumed. Keys are ignored entirely while a modal
// or compose surface is open or when typed into an editable field.
func (d *Detector) HandleKey(key rune, modalOpen, editableFocused bool) bool {
	if modalOpen || editableFocused {
		d.Reset()
		return false
	}
	d.mu.Lock()
	switch d.state {
	case statePending:
		if key == d.keys.ReplyAll {
			// Follow-up inside the window: reply-all, exactly once.
			d.stopTimerLocked()
			d.state = stateIdle
			d.gen++
			emit := d.emit
			d.mu.Unlock()
			if emit != nil {
				emit(ActionReplyAll)
			}
			return true
		}
		// Any other key abandons the chord, then is processed from idle.
		d.stopTimerLocked()
		d.state = stateIdle
		d.gen++
	case stateIdle:
	}

	switch key {
	case d.keys.Reply:
		d.state = statePending
		d.pendingKey = key
		d.gen++
		gen := d.gen
		d.timer = d.clock.AfterFunc(d.window, func() {
			d.deadline(gen)
		})
		d.mu.Unlock()
		return true
	case d.keys.Forward:
		// Forward never waits on the chord window.
		emit := d.emit
		d.mu.Unlock()
		if emit != nil {
			emit(ActionForward)
		}
		return true
	}
	d.mu.Unlock()
	return false
}

// deadline is the deferred check: if the same chord is still pending when
// the window elapses, resolve it to a plain reply.
func (d *Detector) deadline(gen int) {
	d.mu.Lock()
	if d.state != statePending || d.gen != gen {
		d.mu.Unlock()
		return
	}
	d.state = stateIdle
	d.timer = nil
	emit := d.emit
	d.mu.Unlock()
	if emit != nil {
		emit(ActionReply)
	}
}

// Reset discards any pending chord without emitting. Called when the
// selected thread changes or a modal opens, so no timer leaks across
// selection changes.
func (d *Detector) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopTimerLocked()
	d.state = stateIdle
	d.gen++
}

// Pending reports whether a chord is waiting on its window.
func (d *Detector) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state == statePending
}

func (d *Detector) stopTimerLocked() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
