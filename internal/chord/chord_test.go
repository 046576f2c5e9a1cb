package chord

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeClock drives the chord window by hand.
type fakeClock struct {
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	at      time.Time
	f       func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	if t.fired || t.stopped {
		return false
	}
	t.stopped = true
	return true
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	t := &fakeTimer{at: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

func (c *fakeClock) advance(d time.Duration) {
	c.now = c.now.Add(d)
	for _, t := range c.timers {
		if !t.stopped && !t.fired && !t.at.After(c.now) {
			t.fired = true
			t.f()
		}
	}
}

func (c *fakeClock) armed() int {
	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

func newTestDetector() (*Detector, *fakeClock, *[]Action) {
	clock := newFakeClock()
	var actions []Action
	d := NewDetector(clock, DefaultWindow, func(a Action) { actions = append(actions, a) })
	return d, clock, &actions
}

func TestDetector_SetKeysRebinds(t *testing.T) {
	d, clock, actions := newTestDetector()
	d.SetKeys(Keys{Reply: 'w', ReplyAll: 'e', Forward: 'q'})

	// The stock keys are unbound once rebinding takes effect.
	assert.False(t, d.HandleKey('r', false, false))
	assert.False(t, d.HandleKey('f', false, false))
	assert.Empty(t, *actions)

	assert.True(t, d.HandleKey('w', false, false))
	assert.True(t, d.Pending())
	assert.True(t, d.HandleKey('e', false, false))
	assert.Equal(t, []Action{ActionReplyAll}, *actions)

	assert.True(t, d.HandleKey('q', false, false))
	assert.Equal(t, []Action{ActionReplyAll, ActionForward}, *actions)

	assert.True(t, d.HandleKey('w', false, false))
	clock.advance(DefaultWindow)
	assert.Equal(t, []Action{ActionReplyAll, ActionForward, ActionReply}, *actions)
}

func TestDetector_SetKeysZeroRunesKeepDefaults(t *testing.T) {
	d, _, actions := newTestDetector()
	d.SetKeys(Keys{Reply: 'w'})

	assert.True(t, d.HandleKey('w', false, false))
	assert.True(t, d.HandleKey('a', false, false))
	assert.Equal(t, []Action{ActionReplyAll}, *actions)

	assert.True(t, d.HandleKey('f', false, false))
	assert.Equal(t, []Action{ActionReplyAll, ActionForward}, *actions)
}

func TestDetector_ReplyAllChord(t *testing.T) {
	d, clock, actions := newTestDetector()

	assert.True(t, d.HandleKey('r', false, false))
	assert.True(t, d.Pending())
	clock.advance(100 * time.Millisecond)
	assert.True(t, d.HandleKey('a', false, false))

	assert.Equal(t, []Action{ActionReplyAll}, *actions)
	assert.False(t, d.Pending())

	// The abandoned window timer must not fire a reply later.
	clock.advance(time.Second)
	assert.Equal(t, []Action{ActionReplyAll}, *actions)
}

func TestDetector_PlainReplyAfterWindow(t *testing.T) {
	d, clock, actions := newTestDetector()

	d.HandleKey('r', false, false)
	clock.advance(DefaultWindow)

	assert.Equal(t, []Action{ActionReply}, *actions)
	assert.False(t, d.Pending())
}

func TestDetector_LateFollowUpIsNotReplyAll(t *testing.T) {
	d, clock, actions := newTestDetector()

	d.HandleKey('r', false, false)
	clock.advance(DefaultWindow + 50*time.Millisecond)
	// 'a' arrives after the window resolved to a plain reply; from idle it
	// means nothing to the detector.
	consumed := d.HandleKey('a', false, false)

	assert.False(t, consumed)
	assert.Equal(t, []Action{ActionReply}, *actions)
}

func TestDetector_ForwardIsImmediate(t *testing.T) {
	d, _, actions := newTestDetector()

	assert.True(t, d.HandleKey('f', false, false))
	assert.Equal(t, []Action{ActionForward}, *actions)
	assert.False(t, d.Pending())
}

func TestDetector_OtherKeyAbandonsChord(t *testing.T) {
	d, clock, actions := newTestDetector()

	d.HandleKey('r', false, false)
	d.HandleKey('f', false, false)

	assert.Equal(t, []Action{ActionForward}, *actions)
	clock.advance(time.Second)
	assert.Equal(t, []Action{ActionForward}, *actions, "abandoned chord must not resolve to reply")
}

func TestDetector_ChordAfterChord(t *testing.T) {
	d, clock, actions := newTestDetector()

	d.HandleKey('r', false, false)
	d.HandleKey('a', false, false)
	d.HandleKey('r', false, false)
	clock.advance(DefaultWindow)

	assert.Equal(t, []Action{ActionReplyAll, ActionReply}, *actions)
}

func TestDetector_ResetDiscardsPendingChord(t *testing.T) {
	d, clock, actions := newTestDetector()

	d.HandleKey('r', false, false)
	d.Reset()
	clock.advance(time.Second)

	assert.Empty(t, *actions)
	assert.False(t, d.Pending())
	assert.Equal(t, 0, clock.armed(), "reset must stop the window timer")
}

func TestDetector_IgnoredWhileModalOpen(t *testing.T) {
	d, clock, actions := newTestDetector()

	assert.False(t, d.HandleKey('r', true, false))
	clock.advance(time.Second)
	assert.Empty(t, *actions)
}

func TestDetector_ModalOpenDiscardsPendingChord(t *testing.T) {
	d, clock, actions := newTestDetector()

	d.HandleKey('r', false, false)
	// A modal opens mid-chord; the pending 'r' must be dropped silently.
	assert.False(t, d.HandleKey('a', true, false))
	clock.advance(time.Second)

	assert.Empty(t, *actions)
}

func TestDetector_IgnoredInEditableField(t *testing.T) {
	d, _, actions := newTestDetector()

	assert.False(t, d.HandleKey('r', false, true))
	assert.False(t, d.HandleKey('f', false, true))
	assert.Empty(t, *actions)
}

func TestDetector_UnrelatedKeyNotConsumed(t *testing.T) {
	d, _, actions := newTestDetector()

	assert.False(t, d.HandleKey('x', false, false))
	assert.Empty(t, *actions)
}

func TestDetector_DefaultsApplied(t *testing.T) {
	d := NewDetector(nil, 0, nil)
	assert.NotNil(t, d)
	assert.Equal(t, DefaultWindow, d.window)
	// No emit callback: keys are still consumed without panicking.
	assert.True(t, d.HandleKey('f', false, false))
}
