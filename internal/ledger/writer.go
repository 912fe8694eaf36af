package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/BatmanBruc/bat-bot-search/internal/logger"
	"github.com/BatmanBruc/bat-bot-search/internal/metrics"
	"github.com/BatmanBruc/bat-bot-search/types"
)

// Writer persists usage records off the request path with a fixed worker pool.
// Records are delivered at least once; a record that exhausts its attempts is
// logged and counted, never returned to the caller that produced the grant.
type Writer struct {
	sink    types.UsageLedger
	log     *logger.Logger
	metrics *metrics.AccessMetrics
	workers int
	retries uint64
	backoff time.Duration
	timeout time.Duration

	mu      sync.RWMutex
	running bool
	queue   chan types.UsageRecord
	wg      sync.WaitGroup
}

type Config struct {
	Workers     int
	QueueSize   int
	MaxAttempts int
	Backoff     time.Duration
	// WriteTimeout bounds a single AppendUsage call.
	WriteTimeout time.Duration
}

func NewWriter(sink types.UsageLedger, cfg Config, log *logger.Logger, m *metrics.AccessMetrics) *Writer {
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = cfg.Workers * 16
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 100 * time.Millisecond
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}
	if log == nil {
		log = logger.Nop()
	}

	return &Writer{
		sink:    sink,
		log:     log,
		metrics: m,
		workers: cfg.Workers,
		retries: uint64(cfg.MaxAttempts - 1),
		backoff: cfg.Backoff,
		timeout: cfg.WriteTimeout,
		queue:   make(chan types.UsageRecord, cfg.QueueSize),
	}
}

func (w *Writer) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return
	}
	w.running = true

	for i := 0; i < w.workers; i++ {
		w.wg.Add(1)
		go w.worker()
	}
	w.log.Info(context.Background(), fmt.Sprintf("ledger writer started with %d workers", w.workers))
}

// Stop closes the queue and waits until every queued record has been written.
func (w *Writer) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	close(w.queue)
	w.mu.Unlock()

	w.wg.Wait()
	w.log.Info(context.Background(), "ledger writer stopped")
}

// AppendUsage queues rec. When the writer is stopped or the queue is full the
// record is written on the caller's goroutine instead.
func (w *Writer) AppendUsage(ctx context.Context, rec types.UsageRecord) error {
	w.mu.RLock()
	if w.running {
		select {
		case w.queue <- rec:
			w.mu.RUnlock()
			return nil
		default:
		}
	}
	w.mu.RUnlock()

	return w.write(ctx, rec)
}

func (w *Writer) worker() {
	defer w.wg.Done()
	for rec := range w.queue {
		ctx := w.log.WithFields(context.Background(), map[string]any{
			"user_id": rec.UserID,
			"chat_id": rec.ChatID,
			"tier":    string(rec.Tier),
		})
		_ = w.write(ctx, rec)
	}
}

func (w *Writer) write(ctx context.Context, rec types.UsageRecord) error {
	backoff := retry.WithMaxRetries(w.retries, retry.NewConstant(w.backoff))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attemptCtx, cancel := context.WithTimeout(ctx, w.timeout)
		defer cancel()
		if err := w.sink.AppendUsage(attemptCtx, rec); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		w.metrics.IncLedgerFailure()
		w.log.Error(ctx, "usage record not persisted", err)
		return fmt.Errorf("append usage: %w", err)
	}
	return nil
}
