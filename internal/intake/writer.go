package intake

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/rickgao/catalog-feed/internal/metrics"
)

// ErrClosed is returned by Submit after the writer stopped.
var ErrClosed = errors.New("intake: closed")

// Appender is the write side of the delta ledger.
type Appender interface {
	AppendBatch(ctx context.Context, itemIDs []int64) error
}

// Config holds Writer configuration.
type Config struct {
	BufferSize    int
	BatchSize     int
	FlushInterval time.Duration
	WriteTimeout  time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		BufferSize:    1024,
		BatchSize:     500,
		FlushInterval: 250 * time.Millisecond,
		WriteTimeout:  10 * time.Second,
	}
}

// Writer batches submitted item changes into the ledger.
type Writer struct {
	cfg     Config
	ledger  Appender
	input   *Buffer[int64]
	metrics *metrics.Metrics
	logger  *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	statsMu sync.Mutex
	stats   WriterStats
}

// WriterStats tracks writer activity.
type WriterStats struct {
	Written  int64
	Batches  int64
	Failures int64
}

// NewWriter creates a writer. m may be nil.
func NewWriter(cfg Config, ledger Appender, m *metrics.Metrics, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultConfig()
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = def.BufferSize
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = def.FlushInterval
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = def.WriteTimeout
	}
	return &Writer{
		cfg:     cfg,
		ledger:  ledger,
		input:   NewBuffer[int64](cfg.BufferSize),
		metrics: m,
		logger:  logger,
	}
}

// Submit queues item changes. It never waits on the database.
func (w *Writer) Submit(itemIDs ...int64) error {
	before := w.input.Stats().Grows
	if !w.input.Send(itemIDs...) {
		return ErrClosed
	}
	st := w.input.Stats()
	for i := before; i < st.Grows; i++ {
		w.metrics.IntakeGrew()
	}
	w.metrics.SetIntakeDepth(st.Count)
	return nil
}

// Pending returns the number of queued changes.
func (w *Writer) Pending() int {
	return w.input.Len()
}

// Stats returns writer statistics.
func (w *Writer) Stats() WriterStats {
	w.statsMu.Lock()
	defer w.statsMu.Unlock()
	return w.stats
}

// Start begins writing in the background.
func (w *Writer) Start(ctx context.Context) error {
	w.ctx, w.cancel = context.WithCancel(ctx)

	w.wg.Add(1)
	go w.run()

	w.logger.Info("intake writer started",
		"batch_size", w.cfg.BatchSize,
		"flush_interval", w.cfg.FlushInterval,
	)
	return nil
}

// Stop closes intake, waits for the loop and writes what is left.
func (w *Writer) Stop(ctx context.Context) error {
	w.logger.Info("stopping intake writer")
	w.input.Close()

	if w.cancel != nil {
		w.cancel()
	}

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		w.logger.Warn("intake writer stop timed out")
		return ctx.Err()
	}

	// Final flush with the caller's deadline.
	for w.input.Len() > 0 {
		if !w.flushOnce(ctx) {
			w.logger.Error("dropping unwritten changes", "count", w.input.Len())
			return errors.New("intake: final flush failed")
		}
	}
	w.logger.Info("intake writer stopped")
	return nil
}

func (w *Writer) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-w.input.Ready():
			// Batch up until full or the next tick.
			if w.input.Len() >= w.cfg.BatchSize {
				w.flushAll()
			}
		case <-ticker.C:
			w.flushAll()
		}
	}
}

// flushAll writes full batches until the buffer is empty or a write fails.
func (w *Writer) flushAll() {
	for w.input.Len() > 0 && w.ctx.Err() == nil {
		if !w.flushOnce(w.ctx) {
			return
		}
	}
}

// flushOnce writes one batch. A failed batch is queued again.
func (w *Writer) flushOnce(ctx context.Context) bool {
	batch := w.input.Drain(w.cfg.BatchSize)
	if len(batch) == 0 {
		return true
	}

	wctx, cancel := context.WithTimeout(ctx, w.cfg.WriteTimeout)
	defer cancel()

	start := time.Now()
	err := w.ledger.AppendBatch(wctx, batch)

	w.statsMu.Lock()
	if err != nil {
		w.stats.Failures++
	} else {
		w.stats.Written += int64(len(batch))
		w.stats.Batches++
	}
	w.statsMu.Unlock()

	if err != nil {
		w.logger.Error("ledger batch append failed", "error", err, "count", len(batch))
		w.metrics.IntakeBatchFailed()
		w.input.Requeue(batch...)
		return false
	}

	w.metrics.IntakeWritten(len(batch))
	w.metrics.SetIntakeDepth(w.input.Len())
	w.logger.Debug("appended item changes",
		"count", len(batch),
		"duration", time.Since(start),
	)
	return true
}
