package prefetch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

var (
	// ErrCircuitOpen is returned when a resource has failed too many
	// times in a row and retries are halted until Reset.
	ErrCircuitOpen = errors.New("prefetch retries halted for resource")

	// ErrThrottled is returned when the backoff window for a resource
	// has not elapsed yet.
	ErrThrottled = errors.New("prefetch attempt throttled by backoff")
)

// FetchFunc obtains one chunk by resource id. It must honor ctx
// cancellation; the loader aborts in-flight fetches when the caller no
// longer needs them.
type FetchFunc func(ctx context.Context, id string) ([]byte, error)

// Cache is the chunk store consulted before the network. Satisfied by
// internal/cache.
type Cache interface {
	Get(key string) ([]byte, bool)
	Put(key string, data []byte) error
}

// Config tunes a Loader.
type Config struct {
	// AttemptsPerSecond rate-limits fetch attempts across all resources.
	AttemptsPerSecond float64
	// Parallelism bounds concurrent fetches in FetchAll.
	Parallelism int
}

// DefaultConfig returns loader defaults.
func DefaultConfig() Config {
	return Config{
		AttemptsPerSecond: 8,
		Parallelism:       4,
	}
}

// Loader fetches chunks with retry gating, rate limiting and caching.
// Safe for concurrent use.
type Loader struct {
	fetch   FetchFunc
	cache   Cache
	limiter *rate.Limiter

	mu     sync.Mutex
	states map[string]*RetryState

	parallelism int

	// nowMS is stubbed in tests.
	nowMS func() int64
}

// NewLoader creates a loader around a fetch function. cache may be nil.
func NewLoader(fetch FetchFunc, cache Cache, cfg Config) *Loader {
	if cfg.AttemptsPerSecond <= 0 {
		cfg.AttemptsPerSecond = DefaultConfig().AttemptsPerSecond
	}
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = DefaultConfig().Parallelism
	}
	return &Loader{
		fetch:       fetch,
		cache:       cache,
		limiter:     rate.NewLimiter(rate.Limit(cfg.AttemptsPerSecond), 1),
		states:      make(map[string]*RetryState),
		parallelism: cfg.Parallelism,
		nowMS:       func() int64 { return time.Now().UnixMilli() },
	}
}

// Fetch returns the chunk for id, from cache when possible. A fetch
// attempt is only issued when the retry policy allows one; the attempt is
// recorded before the fetch starts so concurrent checks for the same
// resource see it.
func (l *Loader) Fetch(ctx context.Context, id string) ([]byte, error) {
	if l.cache != nil {
		if data, ok := l.cache.Get(id); ok {
			return data, nil
		}
	}

	prev, err := l.begin(id)
	if err != nil {
		return nil, err
	}

	if err := l.limiter.Wait(ctx); err != nil {
		l.abandon(id, prev)
		return nil, fmt.Errorf("prefetch rate limiter: %w", err)
	}

	data, err := l.fetch(ctx, id)
	if err != nil {
		// A caller-initiated cancellation is not a resource failure and
		// must not feed the breaker.
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			l.abandon(id, prev)
			return nil, fmt.Errorf("fetch chunk %s: %w", id, err)
		}
		failures := l.fail(id)
		log.Debug("chunk fetch failed", "id", id, "failures", failures, "err", err)
		return nil, fmt.Errorf("fetch chunk %s: %w", id, err)
	}

	l.succeed(id)
	if l.cache != nil {
		if err := l.cache.Put(id, data); err != nil {
			log.Debug("chunk cache write failed", "id", id, "err", err)
		}
	}
	return data, nil
}

// FetchAll fetches several chunks with bounded parallelism. The first
// error cancels the remaining fetches. Results map ids to chunk bytes.
func (l *Loader) FetchAll(ctx context.Context, ids []string) (map[string][]byte, error) {
	var mu sync.Mutex
	results := make(map[string][]byte, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.parallelism)
	for _, id := range ids {
		g.Go(func() error {
			data, err := l.Fetch(gctx, id)
			if err != nil {
				return err
			}
			mu.Lock()
			results[id] = data
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Reset clears a resource's retry state, re-arming a tripped breaker.
// Used for user-initiated retries.
func (l *Loader) Reset(id string) {
	l.mu.Lock()
	delete(l.states, id)
	l.mu.Unlock()
}

// begin records an attempt if the policy allows one. It returns the
// previous attempt stamp so a cancelled attempt can be rolled back.
func (l *Loader) begin(id string) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.nowMS()
	state := l.states[id]
	if !ShouldRetry(state, now) {
		if state != nil && state.Failures >= maxFailures {
			return 0, ErrCircuitOpen
		}
		return 0, ErrThrottled
	}
	if state == nil {
		state = &RetryState{}
		l.states[id] = state
	}
	prev := state.LastAttempt
	state.LastAttempt = now
	return prev, nil
}

// abandon rolls back the attempt recorded by begin. A cancelled fetch
// neither counts as a failure nor restarts the backoff window.
func (l *Loader) abandon(id string, prev int64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	state := l.states[id]
	if state == nil {
		return
	}
	if state.Failures == 0 && prev == 0 {
		delete(l.states, id)
		return
	}
	state.LastAttempt = prev
}

func (l *Loader) fail(id string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	state := l.states[id]
	if state == nil {
		return 0
	}
	state.Failures++
	return state.Failures
}

func (l *Loader) succeed(id string) {
	l.mu.Lock()
	delete(l.states, id)
	l.mu.Unlock()
}
