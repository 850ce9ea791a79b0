package export

import (
	"context"
	"log/slog"
	"time"

	"charak/internal/audit"
	"charak/internal/audit/export/metrics"
)

const (
	defaultBatchSize     = 100
	defaultFlushInterval = 5 * time.Second
)

// Worker drains the export ring buffer into the clinic topic. Events
// arrive through Submit, which never blocks the audit path: under a
// broker outage they accumulate in the bounded buffer and the oldest
// are dropped first.
type Worker struct {
	buffer    *RingBuffer
	publisher Publisher
	logger    *slog.Logger
	metrics   *metrics.Metrics

	inbox         chan audit.Event
	batchSize     int
	flushInterval time.Duration
	lastDropped   int64
}

// WorkerOption configures a Worker.
type WorkerOption func(*Worker)

// WithBatchSize overrides the per-flush batch size.
func WithBatchSize(n int) WorkerOption {
	return func(w *Worker) {
		if n > 0 {
			w.batchSize = n
		}
	}
}

// WithFlushInterval overrides the retry flush interval.
func WithFlushInterval(d time.Duration) WorkerOption {
	return func(w *Worker) {
		if d > 0 {
			w.flushInterval = d
		}
	}
}

// WithWorkerMetrics attaches Prometheus metrics.
func WithWorkerMetrics(m *metrics.Metrics) WorkerOption {
	return func(w *Worker) {
		w.metrics = m
	}
}

// NewWorker builds a Worker over the given buffer and publisher.
func NewWorker(buffer *RingBuffer, publisher Publisher, logger *slog.Logger, opts ...WorkerOption) *Worker {
	w := &Worker{
		buffer:        buffer,
		publisher:     publisher,
		logger:        logger,
		inbox:         make(chan audit.Event, 256),
		batchSize:     defaultBatchSize,
		flushInterval: defaultFlushInterval,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Submit hands an event to the export pipeline without blocking. When
// the inbox is full the event goes straight to the ring buffer.
func (w *Worker) Submit(event audit.Event) {
	select {
	case w.inbox <- event:
	default:
		w.buffer.Enqueue(event)
		w.metrics.SetBuffered(w.buffer.Len())
	}
}

// Run consumes the inbox and flushes the buffer until the context ends.
// A final best-effort flush runs on shutdown.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.drainInbox()
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			w.flush(flushCtx)
			cancel()
			return ctx.Err()
		case event := <-w.inbox:
			w.buffer.Enqueue(event)
			w.metrics.SetBuffered(w.buffer.Len())
		case <-ticker.C:
			w.flush(ctx)
		}
	}
}

// drainInbox moves whatever is still queued into the ring buffer.
func (w *Worker) drainInbox() {
	for {
		select {
		case event := <-w.inbox:
			w.buffer.Enqueue(event)
		default:
			return
		}
	}
}

// flush ships buffered events in batches until the buffer is empty or a
// publish fails. Failed batches are requeued in order for the next tick.
func (w *Worker) flush(ctx context.Context) {
	for {
		batch := w.buffer.DequeueBatch(w.batchSize)
		if len(batch) == 0 {
			w.metrics.SetBuffered(0)
			if dropped := w.buffer.Dropped(); dropped > w.lastDropped {
				w.metrics.AddDropped(dropped - w.lastDropped)
				w.lastDropped = dropped
			}
			return
		}
		if err := w.publisher.Publish(ctx, batch); err != nil {
			w.buffer.Requeue(batch)
			w.metrics.IncrementFailures()
			w.metrics.SetBuffered(w.buffer.Len())
			w.logger.WarnContext(ctx, "audit export publish failed",
				slog.Int("batch", len(batch)),
				slog.Int("buffered", w.buffer.Len()),
				slog.String("error", err.Error()))
			return
		}
		w.metrics.IncrementPublished(len(batch))
		w.metrics.SetBuffered(w.buffer.Len())
	}
}
