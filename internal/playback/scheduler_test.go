package playback

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestSchedulerTicksWhilePlaying(t *testing.T) {
	clock := NewManualClock()
	clock.SetPaused(false)

	s := NewScheduler(clock, time.Millisecond)
	var frames atomic.Int64
	s.OnFrame(func(t float64) { frames.Add(1) })

	s.Start()
	defer s.Stop()

	deadline := time.After(time.Second)
	for frames.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("no frames within a second")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestSchedulerSuspendsWhilePaused(t *testing.T) {
	clock := NewManualClock() // starts paused

	s := NewScheduler(clock, time.Millisecond)
	var frames atomic.Int64
	s.OnFrame(func(t float64) { frames.Add(1) })

	s.Start()
	defer s.Stop()

	time.Sleep(30 * time.Millisecond)
	if got := frames.Load(); got != 0 {
		t.Errorf("got %d frames while paused, want 0", got)
	}
}

func TestSchedulerStartStopIdempotent(t *testing.T) {
	s := NewScheduler(NewManualClock(), time.Millisecond)
	s.Start()
	s.Start()
	if !s.Running() {
		t.Error("scheduler not running after Start")
	}
	s.Stop()
	s.Stop()
	if s.Running() {
		t.Error("scheduler still running after Stop")
	}

	// Restart works after a full stop.
	s.Start()
	if !s.Running() {
		t.Error("scheduler did not restart")
	}
	s.Stop()
}

func TestManualClock(t *testing.T) {
	c := NewManualClock()
	if !c.Paused() {
		t.Error("manual clock should start paused")
	}

	c.Advance(1.0)
	if got := c.Now(); got != 0 {
		t.Errorf("Advance while paused moved clock to %v", got)
	}

	c.SetPaused(false)
	c.Advance(1.5)
	if got := c.Now(); got != 1.5 {
		t.Errorf("Now = %v, want 1.5", got)
	}

	c.Seek(-3)
	if got := c.Now(); got != 0 {
		t.Errorf("negative seek landed at %v, want clamp to 0", got)
	}
}
