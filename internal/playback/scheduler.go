package playback

import (
	"sync"
	"time"
)

// FrameFunc receives the playback time of one frame tick.
type FrameFunc func(t float64)

// Scheduler drives frame callbacks off a clock at a fixed rate while
// playback runs. Ticks are swallowed while the clock reports paused, so
// playback-driven updates suspend without tearing the loop down.
type Scheduler struct {
	clock Clock
	rate  time.Duration

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	onFrame []FrameFunc
}

// DefaultFrameRate approximates a display refresh tick.
const DefaultFrameRate = 16 * time.Millisecond

// NewScheduler creates a scheduler over a clock. A non-positive rate
// falls back to DefaultFrameRate.
func NewScheduler(clock Clock, rate time.Duration) *Scheduler {
	if rate <= 0 {
		rate = DefaultFrameRate
	}
	return &Scheduler{clock: clock, rate: rate}
}

// OnFrame registers a callback invoked on every unpaused tick.
func (s *Scheduler) OnFrame(fn FrameFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onFrame = append(s.onFrame, fn)
}

// Start begins ticking. Starting a running scheduler is a no-op.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})
	go s.loop(s.stopCh)
}

// Stop halts ticking. Safe to call repeatedly.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.running = false
	close(s.stopCh)
}

// Running reports whether the scheduler is ticking.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) loop(stop chan struct{}) {
	ticker := time.NewTicker(s.rate)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if s.clock.Paused() {
				continue
			}
			t := s.clock.Now()
			s.mu.Lock()
			callbacks := make([]FrameFunc, len(s.onFrame))
			copy(callbacks, s.onFrame)
			s.mu.Unlock()
			for _, fn := range callbacks {
				fn(t)
			}
		}
	}
}
