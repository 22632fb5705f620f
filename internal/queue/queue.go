// Package queue serializes "append rows to a remote table" requests from
// concurrent callers into batched, retried writes. The remote store has no
// transactions and rate-limits frequent small writes, so pending tasks are
// claimed in one pass, merged per table into a single append call, and
// retried with linear backoff. Every accepted task is settled exactly once.
//
// Delivery is at-least-once: a retried append after an ambiguous failure can
// duplicate rows in the remote table. Tasks may carry an idempotency key so
// a repeated submission of the same key is acknowledged without a second
// append, but the remote side is never deduplicated.
package queue

import (
	"context"
	"errors"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/nlukin/sheet-orders/internal/observability"
	"github.com/nlukin/sheet-orders/internal/pkg/retry"
)

// ErrClosed is returned for tasks submitted after Close.
var ErrClosed = errors.New("write queue closed")

// Appender is the remote store primitive the queue drains into.
type Appender interface {
	Append(ctx context.Context, table string, rows [][]string) error
}

type Config struct {
	Attempts    int
	BackoffBase time.Duration
	BatchDelay  time.Duration
	DedupeSize  int
}

func (c Config) withDefaults() Config {
	if c.Attempts < 1 {
		c.Attempts = 3
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = time.Second
	}
	if c.BatchDelay < 0 {
		c.BatchDelay = 0
	}
	if c.DedupeSize < 1 {
		c.DedupeSize = 1024
	}
	return c
}

type task struct {
	table string
	rows  [][]string
	key   string
	done  chan error
}

type Queue struct {
	appender Appender
	cfg      Config
	logger   *zap.Logger
	metrics  observability.Metrics

	mu      sync.Mutex
	pending []*task
	active  bool
	closed  bool

	// keys of tasks already appended; a resubmission resolves immediately
	seen *lru.Cache[string, struct{}]

	wg sync.WaitGroup
}

func New(appender Appender, cfg Config, logger *zap.Logger, metrics observability.Metrics) *Queue {
	cfg = cfg.withDefaults()
	seen, err := lru.New[string, struct{}](cfg.DedupeSize)
	if err != nil {
		// only possible with a non-positive size, which withDefaults rules out
		panic(err)
	}
	if metrics == nil {
		metrics = observability.Noop{}
	}
	return &Queue{
		appender: appender,
		cfg:      cfg,
		logger:   logger,
		metrics:  metrics,
		seen:     seen,
	}
}

// Enqueue submits rows for table and returns a channel that receives the
// task's outcome exactly once: nil when the rows were appended, an error
// when the write definitively did not happen. Enqueue never blocks.
func (q *Queue) Enqueue(table string, rows [][]string) <-chan error {
	return q.EnqueueWithKey(table, rows, "")
}

// EnqueueWithKey is Enqueue with an idempotency key. A key that was already
// appended resolves immediately without touching the remote store.
func (q *Queue) EnqueueWithKey(table string, rows [][]string, key string) <-chan error {
	done := make(chan error, 1)

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		done <- ErrClosed
		return done
	}
	if key != "" {
		if _, dup := q.seen.Get(key); dup {
			q.mu.Unlock()
			q.logger.Info("duplicate submission acknowledged", zap.String("key", key))
			done <- nil
			return done
		}
	}
	q.pending = append(q.pending, &task{table: table, rows: rows, key: key, done: done})
	start := !q.active
	if start {
		q.active = true
		q.wg.Add(1)
	}
	q.mu.Unlock()

	if start {
		go q.drain()
	}
	return done
}

// Pending reports the number of tasks not yet claimed by a drain pass.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Close stops intake and blocks until every accepted task has settled.
// Later submissions fail fast with ErrClosed.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.wg.Wait()
}

// drain claims everything pending as one batch per pass. Tasks arriving
// while a pass is in flight form the next batch, which bounds batch size to
// whatever was queued before the pass started.
func (q *Queue) drain() {
	defer q.wg.Done()
	for {
		q.mu.Lock()
		if len(q.pending) == 0 {
			q.active = false
			q.mu.Unlock()
			return
		}
		batch := q.pending
		q.pending = nil
		q.mu.Unlock()

		for _, g := range partition(batch) {
			q.flush(g)
		}

		// courtesy pause toward the rate-limited store, not a correctness need
		time.Sleep(q.cfg.BatchDelay)
	}
}

type group struct {
	table string
	tasks []*task
}

// partition splits a batch by target table, preserving task arrival order
// within each group and ordering groups by first appearance. Merging rows
// across tables into one append call would interleave unrelated data.
func partition(batch []*task) []*group {
	var groups []*group
	index := make(map[string]*group, 1)
	for _, t := range batch {
		g, ok := index[t.table]
		if !ok {
			g = &group{table: t.table}
			index[t.table] = g
			groups = append(groups, g)
		}
		g.tasks = append(g.tasks, t)
	}
	return groups
}

func (q *Queue) flush(g *group) {
	var rows [][]string
	for _, t := range g.tasks {
		rows = append(rows, t.rows...)
	}

	var attempts int
	start := time.Now()
	// In-flight writes are not cancelable: the batch either lands or
	// exhausts its attempts, and every waiter learns which.
	err := retry.Do(context.Background(), retry.Policy{
		Attempts: q.cfg.Attempts,
		Base:     q.cfg.BackoffBase,
		Strategy: retry.Linear,
	}, func() error {
		attempts++
		return q.appender.Append(context.Background(), g.table, rows)
	})
	durMs := float64(time.Since(start).Microseconds()) / 1000.0
	q.metrics.ObserveAppend(attempts, durMs, err == nil)

	if err != nil {
		q.logger.Error("batch append failed, rejecting tasks",
			zap.String("table", g.table),
			zap.Int("tasks", len(g.tasks)),
			zap.Int("rows", len(rows)),
			zap.Int("attempts", attempts),
			zap.Error(err),
		)
		for _, t := range g.tasks {
			t.done <- err
		}
		return
	}

	q.mu.Lock()
	for _, t := range g.tasks {
		if t.key != "" {
			q.seen.Add(t.key, struct{}{})
		}
	}
	q.mu.Unlock()

	q.logger.Info("batch appended",
		zap.String("table", g.table),
		zap.Int("tasks", len(g.tasks)),
		zap.Int("rows", len(rows)),
		zap.Int("attempts", attempts),
		zap.Float64("dur_ms", durMs),
	)
	for _, t := range g.tasks {
		t.done <- nil
	}
}
