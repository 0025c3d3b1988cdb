package audit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// QueuedSinkConfig configures a QueuedSink.
type QueuedSinkConfig struct {
	// QueueSize is the size of the async event queue. Default: 1000
	QueueSize int

	// WriteTimeout is the timeout for writing to the underlying sink.
	// Default: 5s
	WriteTimeout time.Duration
}

// QueuedSink decouples audit writes from the orchestration path: Write
// enqueues without blocking and a background worker drains to the wrapped
// sink. Events are dropped (and counted) when the queue is full; the audit
// trail must never stall a scan.
type QueuedSink struct {
	sink   Sink
	queue  chan *Event
	config QueuedSinkConfig
	logger *zap.Logger

	droppedEvents   atomic.Int64
	processedEvents atomic.Int64
	failedEvents    atomic.Int64

	closed atomic.Bool
	wg     sync.WaitGroup
}

// NewQueuedSink wraps a sink with an async queue and starts its worker.
func NewQueuedSink(sink Sink, cfg QueuedSinkConfig, logger *zap.Logger) *QueuedSink {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1000
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}

	q := &QueuedSink{
		sink:   sink,
		queue:  make(chan *Event, cfg.QueueSize),
		config: cfg,
		logger: logger.Named("audit-queue"),
	}
	q.wg.Add(1)
	go q.worker()
	return q
}

// Write enqueues the event without blocking.
func (q *QueuedSink) Write(_ context.Context, event *Event) error {
	if q.closed.Load() {
		q.droppedEvents.Add(1)
		return nil
	}
	select {
	case q.queue <- event:
	default:
		q.droppedEvents.Add(1)
		q.logger.Warn("audit queue full, dropping event",
			zap.String("event_type", string(event.Type)),
			zap.String("instance_id", event.InstanceID))
	}
	return nil
}

func (q *QueuedSink) worker() {
	defer q.wg.Done()
	for event := range q.queue {
		ctx, cancel := context.WithTimeout(context.Background(), q.config.WriteTimeout)
		if err := q.sink.Write(ctx, event); err != nil {
			q.failedEvents.Add(1)
			q.logger.Warn("audit sink write failed",
				zap.String("sink", q.sink.Name()),
				zap.String("event_id", event.ID),
				zap.Error(err))
		} else {
			q.processedEvents.Add(1)
		}
		cancel()
	}
}

// Close drains the queue, stops the worker, and closes the wrapped sink.
func (q *QueuedSink) Close() error {
	if q.closed.Swap(true) {
		return nil
	}
	close(q.queue)
	q.wg.Wait()
	return q.sink.Close()
}

// Name returns the wrapped sink's identifier with a queued marker.
func (q *QueuedSink) Name() string {
	return "queued-" + q.sink.Name()
}

// Stats returns processed, failed, and dropped event counts.
func (q *QueuedSink) Stats() (processed, failed, dropped int64) {
	return q.processedEvents.Load(), q.failedEvents.Load(), q.droppedEvents.Load()
}
