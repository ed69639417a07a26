package playback

import (
	"sync"
	"time"
)

// WallClock is a Transport that advances with real time while playing.
// It stands in for a media element when no narration audio is loaded:
// the viewer still gets a moving playhead to synchronize against.
type WallClock struct {
	mu        sync.Mutex
	base      float64
	resumedAt time.Time
	paused    bool
}

// NewWallClock returns a paused wall clock at time zero.
func NewWallClock() *WallClock {
	return &WallClock{paused: true}
}

// Now returns the playback position in seconds.
func (c *WallClock) Now() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.paused {
		return c.base
	}
	return c.base + time.Since(c.resumedAt).Seconds()
}

// Paused reports the pause state.
func (c *WallClock) Paused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.paused
}

// Seek moves the playhead.
func (c *WallClock) Seek(seconds float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if seconds < 0 {
		seconds = 0
	}
	c.base = seconds
	c.resumedAt = time.Now()
}

// Play resumes the clock.
func (c *WallClock) Play() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.paused {
		return
	}
	c.paused = false
	c.resumedAt = time.Now()
}

// Pause freezes the playhead.
func (c *WallClock) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.paused {
		return
	}
	c.base += time.Since(c.resumedAt).Seconds()
	c.paused = true
}
