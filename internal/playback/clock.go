// Package playback bridges a live playback clock to parsed subtitle cues:
// it tracks the active cue, derives per-track token highlighting, and
// mediates manual token selection and cue seeking. The heavy lifting of
// interval lookup lives in internal/timing; this package owns the state
// machine around it.
package playback

import "sync"

// Clock is the external playback position source. A media player, an
// audio device, or a manual clock in tests; the driver only reads time,
// reads pause state and seeks.
type Clock interface {
	// Now returns the current playback time in seconds.
	Now() float64
	// Paused reports whether playback is paused.
	Paused() bool
	// Seek moves the playback position.
	Seek(seconds float64)
}

// Transport extends the read-only clock with play/pause control.
type Transport interface {
	Clock
	Play()
	Pause()
}

// ManualClock is a Clock advanced by hand, for tests.
type ManualClock struct {
	mu     sync.Mutex
	t      float64
	paused bool
}

// NewManualClock returns a paused clock at time zero.
func NewManualClock() *ManualClock {
	return &ManualClock{paused: true}
}

// Now returns the current time.
func (c *ManualClock) Now() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

// Paused reports the pause state.
func (c *ManualClock) Paused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.paused
}

// Seek sets the current time.
func (c *ManualClock) Seek(seconds float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if seconds < 0 {
		seconds = 0
	}
	c.t = seconds
}

// Advance moves the clock forward. No-op while paused.
func (c *ManualClock) Advance(seconds float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.paused {
		c.t += seconds
	}
}

// SetPaused toggles the pause state.
func (c *ManualClock) SetPaused(paused bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.paused = paused
}

// Play resumes the clock.
func (c *ManualClock) Play() { c.SetPaused(false) }

// Pause suspends the clock.
func (c *ManualClock) Pause() { c.SetPaused(true) }
