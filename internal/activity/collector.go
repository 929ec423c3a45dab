package activity

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// BatchInserter is the interface used by Collector to persist events.
// It exists to allow testing without a real database.
type BatchInserter interface {
	BatchInsert(ctx context.Context, events []Event) error
}

// Stats receives collector instrumentation. Implementations must be safe for
// concurrent use; a nil Stats disables reporting.
type Stats interface {
	SetCollectorBufferSize(n int)
	IncCollectorFlush(status string)
	AddCollectorEvents(n int)
}

// Collector buffers activity events in memory and periodically flushes them to
// the store in batches. It is safe for concurrent use.
type Collector struct {
	store         BatchInserter
	stats         Stats
	buffer        []Event
	mu            sync.Mutex
	batchSize     int
	flushInterval time.Duration
	done          chan struct{}
}

// NewCollector creates a new Collector that flushes to the given store when the
// buffer reaches batchSize or every flushInterval, whichever comes first.
func NewCollector(store BatchInserter, stats Stats, batchSize int, flushInterval time.Duration) *Collector {
	return &Collector{
		store:         store,
		stats:         stats,
		buffer:        make([]Event, 0, batchSize),
		batchSize:     batchSize,
		flushInterval: flushInterval,
		done:          make(chan struct{}),
	}
}

// Start begins a background goroutine that flushes buffered events on a timer.
// It blocks until Stop is called or the context is cancelled.
func (c *Collector) Start(ctx context.Context) {
	ticker := time.NewTicker(c.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.flush()
		case <-ctx.Done():
			c.flush()
			return
		case <-c.done:
			c.flush()
			return
		}
	}
}

// Record adds an event to the buffer. If the buffer reaches batchSize, a flush
// is triggered immediately. Timestamps are stamped here so handlers never have
// to.
func (c *Collector) Record(ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}

	c.mu.Lock()
	c.buffer = append(c.buffer, ev)
	buffered := len(c.buffer)
	c.mu.Unlock()

	if c.stats != nil {
		c.stats.AddCollectorEvents(1)
		c.stats.SetCollectorBufferSize(buffered)
	}

	if buffered >= c.batchSize {
		c.flush()
	}
}

// Buffered returns the number of events currently waiting to be flushed.
func (c *Collector) Buffered() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.buffer)
}

// flush drains all buffered events and writes them to the store. It logs
// errors rather than returning them so callers are not blocked.
func (c *Collector) flush() {
	c.mu.Lock()
	if len(c.buffer) == 0 {
		c.mu.Unlock()
		return
	}
	batch := c.buffer
	c.buffer = make([]Event, 0, c.batchSize)
	c.mu.Unlock()

	if c.stats != nil {
		c.stats.SetCollectorBufferSize(0)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := c.store.BatchInsert(ctx, batch); err != nil {
		if c.stats != nil {
			c.stats.IncCollectorFlush("error")
		}
		slog.Error("failed to flush activity events", "count", len(batch), "error", err)
		return
	}
	if c.stats != nil {
		c.stats.IncCollectorFlush("success")
	}
}

// Stop signals the background goroutine to exit and performs a final flush.
func (c *Collector) Stop() {
	close(c.done)
}
