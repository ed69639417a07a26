package prefetch

import (
	"context"
	"errors"
	"sync"
	"testing"
)

type fakeCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: make(map[string][]byte)}
}

func (c *fakeCache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	d, ok := c.data[key]
	return d, ok
}

func (c *fakeCache) Put(key string, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = data
	return nil
}

// testLoader returns a loader with a controllable clock. advance moves
// the fake clock forward in milliseconds.
func testLoader(fetch FetchFunc, cache Cache) (*Loader, func(int64)) {
	l := NewLoader(fetch, cache, Config{AttemptsPerSecond: 1e6, Parallelism: 2})
	var now int64
	var mu sync.Mutex
	l.nowMS = func() int64 {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	advance := func(ms int64) {
		mu.Lock()
		now += ms
		mu.Unlock()
	}
	return l, advance
}

func TestLoaderFetchSuccess(t *testing.T) {
	l, _ := testLoader(func(ctx context.Context, id string) ([]byte, error) {
		return []byte("chunk:" + id), nil
	}, newFakeCache())

	data, err := l.Fetch(context.Background(), "a")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if string(data) != "chunk:a" {
		t.Errorf("data = %q", data)
	}
}

func TestLoaderCacheHitSkipsFetch(t *testing.T) {
	calls := 0
	cache := newFakeCache()
	l, _ := testLoader(func(ctx context.Context, id string) ([]byte, error) {
		calls++
		return []byte("x"), nil
	}, cache)

	ctx := context.Background()
	if _, err := l.Fetch(ctx, "a"); err != nil {
		t.Fatalf("first Fetch: %v", err)
	}
	if _, err := l.Fetch(ctx, "a"); err != nil {
		t.Fatalf("second Fetch: %v", err)
	}
	if calls != 1 {
		t.Errorf("fetch calls = %d, want 1 (second served from cache)", calls)
	}
}

func TestLoaderBackoffGating(t *testing.T) {
	boom := errors.New("boom")
	l, advance := testLoader(func(ctx context.Context, id string) ([]byte, error) {
		return nil, boom
	}, nil)
	ctx := context.Background()

	// First attempt runs and fails.
	if _, err := l.Fetch(ctx, "a"); !errors.Is(err, boom) {
		t.Fatalf("first attempt err = %v, want boom", err)
	}

	// Immediately after, the backoff window blocks the next attempt.
	if _, err := l.Fetch(ctx, "a"); !errors.Is(err, ErrThrottled) {
		t.Fatalf("throttled attempt err = %v, want ErrThrottled", err)
	}

	// One millisecond before the window closes it is still blocked.
	advance(BackoffMS(1) - 1)
	if _, err := l.Fetch(ctx, "a"); !errors.Is(err, ErrThrottled) {
		t.Fatalf("early attempt err = %v, want ErrThrottled", err)
	}

	// At the boundary the attempt goes through (and fails again).
	advance(1)
	if _, err := l.Fetch(ctx, "a"); !errors.Is(err, boom) {
		t.Fatalf("boundary attempt err = %v, want boom", err)
	}
}

func TestLoaderCircuitBreaker(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	l, advance := testLoader(func(ctx context.Context, id string) ([]byte, error) {
		calls++
		return nil, boom
	}, nil)
	ctx := context.Background()

	// Burn through three consecutive failures.
	for i := 0; i < 3; i++ {
		if _, err := l.Fetch(ctx, "a"); !errors.Is(err, boom) {
			t.Fatalf("attempt %d err = %v, want boom", i, err)
		}
		advance(BackoffMS(i + 1))
	}

	// The breaker is now open no matter how long we wait.
	advance(1 << 40)
	if _, err := l.Fetch(ctx, "a"); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("err = %v, want ErrCircuitOpen", err)
	}
	if calls != 3 {
		t.Errorf("fetch calls = %d, want 3", calls)
	}

	// Reset re-arms the resource.
	l.Reset("a")
	if _, err := l.Fetch(ctx, "a"); !errors.Is(err, boom) {
		t.Fatalf("post-reset err = %v, want boom", err)
	}
}

func TestLoaderFailureThenSuccessClearsState(t *testing.T) {
	fail := true
	l, advance := testLoader(func(ctx context.Context, id string) ([]byte, error) {
		if fail {
			return nil, errors.New("transient")
		}
		return []byte("ok"), nil
	}, nil)
	ctx := context.Background()

	if _, err := l.Fetch(ctx, "a"); err == nil {
		t.Fatal("expected transient failure")
	}
	advance(BackoffMS(1))
	fail = false
	if _, err := l.Fetch(ctx, "a"); err != nil {
		t.Fatalf("recovery Fetch: %v", err)
	}

	// State was discarded on success: a new failure starts from zero.
	fail = true
	if _, err := l.Fetch(ctx, "a"); err == nil {
		t.Fatal("expected failure")
	}
	l.mu.Lock()
	failures := l.states["a"].Failures
	l.mu.Unlock()
	if failures != 1 {
		t.Errorf("failures after fresh failure = %d, want 1", failures)
	}
}

func TestLoaderFetchAll(t *testing.T) {
	l, _ := testLoader(func(ctx context.Context, id string) ([]byte, error) {
		return []byte(id), nil
	}, nil)

	results, err := l.FetchAll(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("results = %d, want 3", len(results))
	}
	for _, id := range []string{"a", "b", "c"} {
		if string(results[id]) != id {
			t.Errorf("results[%q] = %q", id, results[id])
		}
	}
}

func TestLoaderFetchAllPropagatesCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	l, _ := testLoader(func(ctx context.Context, id string) ([]byte, error) {
		return nil, ctx.Err()
	}, nil)

	if _, err := l.FetchAll(ctx, []string{"a", "b"}); err == nil {
		t.Fatal("expected error from canceled context")
	}
}

func TestLoaderCancelIsNotAFailure(t *testing.T) {
	canceled := true
	l, _ := testLoader(func(ctx context.Context, id string) ([]byte, error) {
		if canceled {
			return nil, context.Canceled
		}
		return []byte("ok"), nil
	}, nil)
	ctx := context.Background()

	// Repeated caller cancellations must not feed the breaker.
	for i := 0; i < 5; i++ {
		if _, err := l.Fetch(ctx, "a"); !errors.Is(err, context.Canceled) {
			t.Fatalf("attempt %d err = %v, want context.Canceled", i, err)
		}
	}

	// The next real attempt goes straight through: no backoff window, no
	// open breaker.
	canceled = false
	data, err := l.Fetch(ctx, "a")
	if err != nil {
		t.Fatalf("Fetch after cancels: %v", err)
	}
	if string(data) != "ok" {
		t.Errorf("data = %q, want %q", data, "ok")
	}
}

func TestLoaderCancelKeepsPriorBackoffWindow(t *testing.T) {
	fail := true
	canceled := false
	l, advance := testLoader(func(ctx context.Context, id string) ([]byte, error) {
		if canceled {
			return nil, context.DeadlineExceeded
		}
		if fail {
			return nil, errors.New("transient")
		}
		return []byte("ok"), nil
	}, nil)
	ctx := context.Background()

	// One real failure opens a backoff window.
	if _, err := l.Fetch(ctx, "a"); err == nil {
		t.Fatal("expected transient failure")
	}

	// A cancellation after the window elapses neither counts as a second
	// failure nor restarts the window.
	advance(BackoffMS(1))
	canceled = true
	if _, err := l.Fetch(ctx, "a"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want context.DeadlineExceeded", err)
	}

	canceled = false
	fail = false
	data, err := l.Fetch(ctx, "a")
	if err != nil {
		t.Fatalf("Fetch after cancel: %v", err)
	}
	if string(data) != "ok" {
		t.Errorf("data = %q, want %q", data, "ok")
	}
}
