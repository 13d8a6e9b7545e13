package session

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// RecordState is the durability state of one queued write.
type RecordState string

const (
	// StatePending: locally confirmed, remotely pending.
	StatePending RecordState = "pending"
	// StateConfirmed: the sink accepted the write.
	StateConfirmed RecordState = "confirmed"
	// StateFailed: all attempts exhausted; the write is abandoned.
	StateFailed RecordState = "failed"
)

// Record is the ledger entry for one outbound write.
type Record struct {
	Label    string
	State    RecordState
	Attempts int
	Err      string
}

const (
	defaultMaxAttempts = 4
	defaultBackoffBase = 250 * time.Millisecond
)

// Outbox is the write-ahead buffer between a session and its sink. Enqueue
// never blocks; a single worker applies writes in enqueue order, retrying
// with exponential backoff. Local state always wins: a write that fails all
// attempts is logged and abandoned, never rolled back or re-surfaced.
type Outbox struct {
	logger      *zap.Logger
	maxAttempts int
	backoffBase time.Duration
	sleep       func(time.Duration)

	mu       sync.Mutex
	cond     *sync.Cond
	queue    []*outboxEntry
	records  []*Record
	inflight bool
	closed   bool
	done     chan struct{}
}

type outboxEntry struct {
	rec *Record
	do  func() error
}

// OutboxOption adjusts retry behavior.
type OutboxOption func(*Outbox)

// WithMaxAttempts sets how many times a write is tried before it is abandoned.
func WithMaxAttempts(n int) OutboxOption {
	return func(o *Outbox) {
		if n > 0 {
			o.maxAttempts = n
		}
	}
}

// WithBackoffBase sets the first retry delay; each further retry doubles it.
func WithBackoffBase(d time.Duration) OutboxOption {
	return func(o *Outbox) {
		if d > 0 {
			o.backoffBase = d
		}
	}
}

// NewOutbox starts the worker. A nil logger is replaced with a no-op one.
func NewOutbox(logger *zap.Logger, opts ...OutboxOption) *Outbox {
	if logger == nil {
		logger = zap.NewNop()
	}
	o := &Outbox{
		logger:      logger,
		maxAttempts: defaultMaxAttempts,
		backoffBase: defaultBackoffBase,
		sleep:       time.Sleep,
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.cond = sync.NewCond(&o.mu)
	go o.loop()
	return o
}

// Enqueue appends a write to the buffer and returns immediately. After Close
// the write is recorded as failed without being attempted.
func (o *Outbox) Enqueue(label string, do func() error) {
	rec := &Record{Label: label, State: StatePending}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.records = append(o.records, rec)
	if o.closed {
		rec.State = StateFailed
		rec.Err = "outbox closed"
		o.logger.Warn("outbox write dropped after close", zap.String("label", label))
		return
	}
	o.queue = append(o.queue, &outboxEntry{rec: rec, do: do})
	o.cond.Broadcast()
}

func (o *Outbox) loop() {
	for {
		o.mu.Lock()
		for len(o.queue) == 0 && !o.closed {
			o.cond.Wait()
		}
		if len(o.queue) == 0 {
			o.mu.Unlock()
			close(o.done)
			return
		}
		e := o.queue[0]
		o.queue = o.queue[1:]
		o.inflight = true
		o.mu.Unlock()

		o.apply(e)

		o.mu.Lock()
		o.inflight = false
		o.cond.Broadcast()
		o.mu.Unlock()
	}
}

func (o *Outbox) apply(e *outboxEntry) {
	var err error
	for attempt := 1; attempt <= o.maxAttempts; attempt++ {
		err = e.do()
		o.mu.Lock()
		e.rec.Attempts = attempt
		o.mu.Unlock()
		if err == nil {
			o.mu.Lock()
			e.rec.State = StateConfirmed
			o.mu.Unlock()
			return
		}
		o.logger.Warn("outbox write failed",
			zap.String("label", e.rec.Label),
			zap.Int("attempt", attempt),
			zap.Error(err))
		if attempt < o.maxAttempts {
			o.sleep(o.backoffBase << (attempt - 1))
		}
	}
	o.mu.Lock()
	e.rec.State = StateFailed
	e.rec.Err = err.Error()
	o.mu.Unlock()
	o.logger.Error("outbox write abandoned",
		zap.String("label", e.rec.Label),
		zap.Error(err))
}

// Flush blocks until every enqueued write has been attempted to completion.
func (o *Outbox) Flush() {
	o.mu.Lock()
	defer o.mu.Unlock()
	for (len(o.queue) > 0 || o.inflight) && !o.closed {
		o.cond.Wait()
	}
}

// Records returns a snapshot of the write ledger in enqueue order.
func (o *Outbox) Records() []Record {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]Record, len(o.records))
	for i, r := range o.records {
		out[i] = *r
	}
	return out
}

// Close drains the buffer and stops the worker. Writes enqueued after Close
// are dropped.
func (o *Outbox) Close() {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		<-o.done
		return
	}
	o.closed = true
	o.cond.Broadcast()
	o.mu.Unlock()
	<-o.done
}
