// Package playback runs the countdown that auto-advances the feed past an
// active video card.
package playback

import (
	"context"
	"sync"
	"time"
)

// DefaultDuration is the number of one-second ticks a video card stays active
// before the feed advances.
const DefaultDuration = 120

// ExpiryFunc is called once when the countdown for card from reaches zero.
type ExpiryFunc func(from int)

// Timer counts down for the active video card. It is safe for concurrent use;
// onExpire is always called without the timer's lock held.
type Timer struct {
	mu        sync.Mutex
	duration  int
	remaining int
	index     int
	running   bool
	onExpire  ExpiryFunc
}

// New creates a disarmed timer.
func New(duration int, onExpire ExpiryFunc) *Timer {
	if duration <= 0 {
		duration = DefaultDuration
	}
	return &Timer{duration: duration, remaining: duration, index: -1, onExpire: onExpire}
}

// Arm resets the countdown to full duration for card index. The countdown only
// runs when the card carries a video.
func (t *Timer) Arm(index int, hasVideo bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.index = index
	t.remaining = t.duration
	t.running = hasVideo
}

// Disarm stops the countdown and resets it to full duration.
func (t *Timer) Disarm() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.index = -1
	t.remaining = t.duration
	t.running = false
}

// Tick advances the countdown by one unit and reports whether it expired.
func (t *Timer) Tick() bool {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return false
	}
	t.remaining--
	if t.remaining > 0 {
		t.mu.Unlock()
		return false
	}
	t.remaining = 0
	t.running = false
	from := t.index
	t.mu.Unlock()

	if t.onExpire != nil {
		t.onExpire(from)
	}
	return true
}

// Remaining returns the ticks left.
func (t *Timer) Remaining() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.remaining
}

// Running reports whether the countdown is active.
func (t *Timer) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

// Index returns the card the timer is armed for, or -1.
func (t *Timer) Index() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.index
}

// Run ticks every interval until ctx is cancelled.
func (t *Timer) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.Tick()
		}
	}
}
