package prefetch

import (
	"context"
	"errors"
	"sync"

	"github.com/charmbracelet/log"
)

// ErrQueueClosed is returned when operations are attempted on a closed
// queue.
var ErrQueueClosed = errors.New("prefetch queue is closed")

// Request asks for one chunk to be fetched. Urgent requests come from
// user seeks and are served before sequential lookahead requests.
type Request struct {
	ID     string
	Urgent bool
}

// QueueStats tracks queue activity.
type QueueStats struct {
	TotalEnqueued int64
	TotalDequeued int64
	TotalDropped  int64
	UrgentCount   int64
	CurrentSize   int
	PeakSize      int
}

// Queue orders chunk fetch requests for a Loader. Urgent requests are
// dequeued first; within each class requests keep FIFO order. A request
// for an id already waiting in the queue is dropped. Enqueue blocks
// while the queue is at capacity and Dequeue blocks while it is empty,
// so a slow fetcher applies backpressure to the producer. Safe for
// concurrent use.
type Queue struct {
	mu       sync.Mutex
	notEmpty *sync.Cond
	notFull  *sync.Cond

	urgent  []Request
	regular []Request
	pending map[string]struct{}

	maxSize int
	closed  bool
	stats   QueueStats
}

// NewQueue creates a request queue holding at most maxSize requests.
func NewQueue(maxSize int) *Queue {
	if maxSize <= 0 {
		maxSize = 16
	}
	q := &Queue{
		pending: make(map[string]struct{}),
		maxSize: maxSize,
	}
	q.notEmpty = sync.NewCond(&q.mu)
	q.notFull = sync.NewCond(&q.mu)
	return q
}

// Enqueue adds a request, blocking while the queue is full. Duplicate
// ids still waiting are dropped without error.
func (q *Queue) Enqueue(req Request) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrQueueClosed
	}

	if _, ok := q.pending[req.ID]; ok {
		q.stats.TotalDropped++
		return nil
	}

	for len(q.urgent)+len(q.regular) >= q.maxSize && !q.closed {
		q.notFull.Wait()
	}
	if q.closed {
		return ErrQueueClosed
	}
	// Another producer may have queued the same id while we waited.
	if _, ok := q.pending[req.ID]; ok {
		q.stats.TotalDropped++
		return nil
	}

	if req.Urgent {
		q.urgent = append(q.urgent, req)
		q.stats.UrgentCount++
	} else {
		q.regular = append(q.regular, req)
	}
	q.pending[req.ID] = struct{}{}

	q.stats.TotalEnqueued++
	if size := len(q.urgent) + len(q.regular); size > q.stats.PeakSize {
		q.stats.PeakSize = size
	}
	q.stats.CurrentSize = len(q.urgent) + len(q.regular)

	q.notEmpty.Signal()
	return nil
}

// Dequeue removes and returns the next request, blocking while the
// queue is empty. Urgent requests are returned first.
func (q *Queue) Dequeue() (Request, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.urgent) == 0 && len(q.regular) == 0 && !q.closed {
		q.notEmpty.Wait()
	}
	if q.closed {
		return Request{}, ErrQueueClosed
	}

	var req Request
	if len(q.urgent) > 0 {
		req = q.urgent[0]
		q.urgent = q.urgent[1:]
	} else {
		req = q.regular[0]
		q.regular = q.regular[1:]
	}
	delete(q.pending, req.ID)

	q.stats.TotalDequeued++
	q.stats.CurrentSize = len(q.urgent) + len(q.regular)

	q.notFull.Signal()
	return req, nil
}

// Clear drops all waiting requests. Used when a large seek invalidates
// the lookahead window.
func (q *Queue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.urgent = q.urgent[:0]
	q.regular = q.regular[:0]
	q.pending = make(map[string]struct{})
	q.stats.CurrentSize = 0

	q.notFull.Broadcast()
}

// Len returns the number of waiting requests.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.urgent) + len(q.regular)
}

// Stats returns a snapshot of queue activity.
func (q *Queue) Stats() QueueStats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.stats
}

// Close wakes all blocked producers and consumers. Subsequent calls are
// no-ops.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	q.notEmpty.Broadcast()
	q.notFull.Broadcast()
}

// Serve drains q through l until q is closed or ctx is cancelled. Fetch
// errors are logged and do not stop the loop; the retry policy inside
// the loader decides when an id may be attempted again.
func Serve(ctx context.Context, q *Queue, l *Loader) {
	stop := context.AfterFunc(ctx, q.Close)
	defer stop()

	for {
		req, err := q.Dequeue()
		if err != nil {
			return
		}
		if _, err := l.Fetch(ctx, req.ID); err != nil {
			log.Debug("prefetch request failed", "id", req.ID, "urgent", req.Urgent, "err", err)
		}
	}
}
