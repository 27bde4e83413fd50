package analytics

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/symptom-checker/pkg/kafka"
)

// Collector buffers prediction events and publishes them to Kafka in
// batches, flushing when a batch fills or on a timer. Track never blocks:
// events are dropped when the buffer is full.
type Collector struct {
	publisher     kafka.Publisher
	eventCh       chan PredictionEvent
	batchSize     int
	flushInterval time.Duration
	logger        *slog.Logger
	done          chan struct{}

	// closeMu guards eventCh against sends after Close.
	closeMu sync.RWMutex
	closed  bool

	mu      sync.Mutex
	dropped int64
	sent    int64
}

func NewCollector(publisher kafka.Publisher, bufferSize, batchSize int, flushInterval time.Duration) *Collector {
	if bufferSize <= 0 {
		bufferSize = 10000
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	if flushInterval <= 0 {
		flushInterval = 2 * time.Second
	}
	return &Collector{
		publisher:     publisher,
		eventCh:       make(chan PredictionEvent, bufferSize),
		batchSize:     batchSize,
		flushInterval: flushInterval,
		logger:        slog.Default().With("component", "analytics-collector"),
		done:          make(chan struct{}),
	}
}

// Start runs the publish loop until ctx is cancelled or Close is called.
func (c *Collector) Start(ctx context.Context) {
	go func() {
		defer close(c.done)
		ticker := time.NewTicker(c.flushInterval)
		defer ticker.Stop()
		batch := make([]kafka.Event, 0, c.batchSize)
		for {
			select {
			case event, ok := <-c.eventCh:
				if !ok {
					c.flush(context.Background(), batch)
					return
				}
				batch = append(batch, toKafka(event))
				if len(batch) >= c.batchSize {
					batch = c.flush(ctx, batch)
				}
			case <-ticker.C:
				batch = c.flush(ctx, batch)
			case <-ctx.Done():
				c.drainRemaining(batch)
				return
			}
		}
	}()
	c.logger.Info("analytics collector started",
		"buffer_size", cap(c.eventCh),
		"batch_size", c.batchSize,
		"flush_interval", c.flushInterval,
	)
}

// Track queues event for publishing. Events tracked after Close are
// counted as dropped.
func (c *Collector) Track(event PredictionEvent) {
	c.closeMu.RLock()
	defer c.closeMu.RUnlock()
	if c.closed {
		c.drop()
		c.logger.Debug("analytics event dropped (collector closed)")
		return
	}
	select {
	case c.eventCh <- event:
	default:
		c.drop()
		c.logger.Warn("analytics event dropped (buffer full)")
	}
}

func (c *Collector) drop() {
	c.mu.Lock()
	c.dropped++
	c.mu.Unlock()
}

// Close stops accepting events, publishes what is buffered and waits for
// the loop to exit.
func (c *Collector) Close() {
	c.closeMu.Lock()
	if !c.closed {
		c.closed = true
		close(c.eventCh)
	}
	c.closeMu.Unlock()
	<-c.done
}

// Counts returns the number of events published and dropped so far.
func (c *Collector) Counts() (sent, dropped int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sent, c.dropped
}

func (c *Collector) flush(ctx context.Context, batch []kafka.Event) []kafka.Event {
	if len(batch) == 0 {
		return batch
	}
	if err := c.publisher.PublishBatch(ctx, batch); err != nil {
		c.logger.Error("failed to publish analytics batch", "events", len(batch), "error", err)
		c.mu.Lock()
		c.dropped += int64(len(batch))
		c.mu.Unlock()
	} else {
		c.mu.Lock()
		c.sent += int64(len(batch))
		c.mu.Unlock()
	}
	return batch[:0]
}

func (c *Collector) drainRemaining(batch []kafka.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		select {
		case event, ok := <-c.eventCh:
			if !ok {
				c.flush(ctx, batch)
				return
			}
			batch = append(batch, toKafka(event))
		default:
			c.flush(ctx, batch)
			return
		}
	}
}

func toKafka(event PredictionEvent) kafka.Event {
	return kafka.Event{Key: event.Disease, Value: event}
}
