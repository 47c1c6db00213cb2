// Package recovery defers failed index mutations and retries them in
// the background with exponential backoff. Entries live in process
// memory only; delivery is best-effort and does not survive a crash.
package recovery

import (
	"context"
	"sync"
	"time"

	"github.com/sgx-labs/notevault/internal/logging"
)

// Operation names the index mutation to replay.
type Operation string

const (
	OpIndex  Operation = "index"
	OpRemove Operation = "remove"
)

// Entry is one deferred mutation, keyed by (UID, Op).
type Entry struct {
	UID  string    `json:"uid"`
	Op   Operation `json:"op"`
	Path string    `json:"path,omitempty"`

	Retries         int       `json:"retries"`
	FirstEnqueuedAt time.Time `json:"firstEnqueuedAt"`
	LastError       string    `json:"lastError,omitempty"`
}

func (e Entry) key() string {
	return e.UID + "|" + string(e.Op)
}

// Status is a point-in-time snapshot of the queue.
type Status struct {
	Size       int  `json:"size"`
	Processing bool `json:"processing"`

	Entries []Entry `json:"entries"`

	Processed int `json:"processed"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// ApplyFunc replays one deferred mutation against the index.
type ApplyFunc func(ctx context.Context, e Entry) error

// Options tunes the worker. Zero values take the defaults.
type Options struct {
	MaxRetries     int           // drop after this many failed replays (default 5)
	BaseDelay      time.Duration // backoff base (default 1s)
	WorkerInterval time.Duration // tick period (default 2s)
}

func (o Options) withDefaults() Options {
	if o.MaxRetries <= 0 {
		o.MaxRetries = 5
	}
	if o.BaseDelay <= 0 {
		o.BaseDelay = time.Second
	}
	if o.WorkerInterval <= 0 {
		o.WorkerInterval = 2 * time.Second
	}
	return o
}

// Queue holds deferred index mutations and drains them with a single
// background worker. The worker starts on the first enqueue and stops
// when the queue empties.
type Queue struct {
	apply ApplyFunc
	opts  Options

	mu         sync.Mutex
	entries    map[string]Entry
	running    bool
	processing bool
	stop       chan struct{}
	done       chan struct{}

	processed int
	succeeded int
	failed    int
}

// NewQueue builds an idle queue. apply must be safe to call from a
// background goroutine.
func NewQueue(apply ApplyFunc, opts Options) *Queue {
	return &Queue{
		apply:   apply,
		opts:    opts.withDefaults(),
		entries: make(map[string]Entry),
	}
}

// Enqueue upserts an entry by (UID, Op) and ensures the worker is
// running. Re-enqueueing an existing key refreshes its error and path
// but keeps its retry count and clock.
func (q *Queue) Enqueue(e Entry) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if existing, ok := q.entries[e.key()]; ok {
		existing.Path = e.Path
		if e.LastError != "" {
			existing.LastError = e.LastError
		}
		q.entries[e.key()] = existing
	} else {
		e.FirstEnqueuedAt = time.Now()
		e.Retries = 0
		q.entries[e.key()] = e
		logging.Debugf("recovery: queued %s %s (queue size %d)", e.Op, e.UID, len(q.entries))
	}

	if !q.running {
		q.running = true
		q.stop = make(chan struct{})
		q.done = make(chan struct{})
		go q.work(q.stop, q.done)
	}
}

// Size returns the number of pending entries.
func (q *Queue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Status snapshots the queue, including copies of all entries and the
// cumulative drain counters.
func (q *Queue) Status() Status {
	q.mu.Lock()
	defer q.mu.Unlock()

	entries := make([]Entry, 0, len(q.entries))
	for _, e := range q.entries {
		entries = append(entries, e)
	}
	return Status{
		Size:       len(q.entries),
		Processing: q.processing,
		Entries:    entries,
		Processed:  q.processed,
		Succeeded:  q.succeeded,
		Failed:     q.failed,
	}
}

// Cleanup stops the worker and logs anything left behind.
func (q *Queue) Cleanup() {
	q.mu.Lock()
	if !q.running {
		residual := len(q.entries)
		q.mu.Unlock()
		if residual > 0 {
			logging.Warnf("recovery: shutting down with %d unprocessed entries", residual)
		}
		return
	}
	stop, done := q.stop, q.done
	q.mu.Unlock()

	close(stop)
	<-done

	q.mu.Lock()
	residual := len(q.entries)
	q.mu.Unlock()
	if residual > 0 {
		logging.Warnf("recovery: shutting down with %d unprocessed entries", residual)
	}
}

func (q *Queue) work(stop, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(q.opts.WorkerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			q.mu.Lock()
			q.running = false
			q.mu.Unlock()
			return
		case <-ticker.C:
			if empty := q.drain(); empty {
				q.mu.Lock()
				// Re-check under the lock: an enqueue may have raced the
				// drain. If so, keep running.
				if len(q.entries) == 0 {
					q.running = false
					q.mu.Unlock()
					return
				}
				q.mu.Unlock()
			}
		}
	}
}

// drain processes one snapshot of due entries sequentially and reports
// whether the queue is empty afterwards.
func (q *Queue) drain() bool {
	now := time.Now()

	q.mu.Lock()
	var due []Entry
	for _, e := range q.entries {
		wait := q.opts.BaseDelay << uint(e.Retries)
		if !now.Before(e.FirstEnqueuedAt.Add(wait)) {
			due = append(due, e)
		}
	}
	q.processing = len(due) > 0
	q.mu.Unlock()

	for _, e := range due {
		err := q.apply(context.Background(), e)

		q.mu.Lock()
		q.processed++
		if err == nil {
			q.succeeded++
			delete(q.entries, e.key())
			logging.Debugf("recovery: replayed %s %s", e.Op, e.UID)
		} else {
			q.failed++
			cur, ok := q.entries[e.key()]
			if ok {
				cur.Retries++
				cur.LastError = err.Error()
				cur.FirstEnqueuedAt = time.Now()
				if cur.Retries >= q.opts.MaxRetries {
					delete(q.entries, e.key())
					logging.Errorf("recovery: abandoning %s %s after %d retries: %v",
						e.Op, e.UID, cur.Retries, err)
				} else {
					q.entries[e.key()] = cur
				}
			}
		}
		q.mu.Unlock()
	}

	q.mu.Lock()
	q.processing = false
	empty := len(q.entries) == 0
	q.mu.Unlock()
	return empty
}
