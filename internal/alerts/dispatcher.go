package alerts

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/alitto/pond/v2"
	"go.uber.org/zap"

	"github.com/pharmatrace/pt-indexer/internal/adapter"
	"github.com/pharmatrace/pt-indexer/internal/domain"
	"github.com/pharmatrace/pt-indexer/internal/logger"
	"github.com/pharmatrace/pt-indexer/internal/messaging"
	"github.com/pharmatrace/pt-indexer/internal/store"
	"github.com/pharmatrace/pt-indexer/internal/store/schema"
)

// Config holds the dispatcher parameters
type Config struct {
	// WorkerPoolSize bounds concurrent deliveries
	WorkerPoolSize int
	// BatchSize is how many pending alerts one drain cycle picks up
	BatchSize int
	// DrainInterval is the idle wait between drain cycles
	DrainInterval time.Duration
	// MaxAttempts is the delivery budget before an alert is marked FAILED
	MaxAttempts int
	// RetryBaseDelay is the backoff window after the first failed attempt,
	// doubling on each subsequent failure
	RetryBaseDelay time.Duration
}

// Dispatcher drains the alert queue and hands entries to the message broker.
// Delivery runs on its own worker pool, fully decoupled from event
// processing; a broker outage can never stall the indexing cursor.
type Dispatcher struct {
	config    Config
	store     store.Store
	publisher messaging.Publisher
	clock     adapter.Clock

	running   atomic.Bool
	stopChan  chan struct{}
	stoppedCh chan struct{}
}

// NewDispatcher creates a Dispatcher
func NewDispatcher(cfg Config, s store.Store, publisher messaging.Publisher, clock adapter.Clock) *Dispatcher {
	if cfg.WorkerPoolSize <= 0 {
		cfg.WorkerPoolSize = 5
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.DrainInterval <= 0 {
		cfg.DrainInterval = 5 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = domain.MAX_ALERT_ATTEMPTS
	}
	if cfg.RetryBaseDelay <= 0 {
		cfg.RetryBaseDelay = 2 * time.Second
	}
	return &Dispatcher{
		config:    cfg,
		store:     s,
		publisher: publisher,
		clock:     clock,
		stopChan:  make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
}

// Start begins the dispatcher's drain loop, blocking until Stop is called or
// the context is cancelled
func (d *Dispatcher) Start(ctx context.Context) error {
	if !d.running.CompareAndSwap(false, true) {
		return fmt.Errorf("dispatcher already running")
	}
	defer func() {
		d.running.Store(false)
		close(d.stoppedCh)
	}()

	logger.InfoCtx(ctx, "Starting alert dispatcher",
		zap.Int("worker_pool_size", d.config.WorkerPoolSize),
		zap.Int("batch_size", d.config.BatchSize),
		zap.Duration("drain_interval", d.config.DrainInterval))

	for {
		select {
		case <-ctx.Done():
			logger.InfoCtx(ctx, "Alert dispatcher stopping due to context cancellation")
			return nil
		case <-d.stopChan:
			logger.InfoCtx(ctx, "Alert dispatcher stop requested")
			return nil
		default:
			if err := d.drainCycle(ctx); err != nil {
				if !errors.Is(err, context.Canceled) {
					logger.ErrorCtx(ctx, err)
				}
			}
		}
	}
}

// Stop gracefully stops the dispatcher, waiting for in-flight deliveries
func (d *Dispatcher) Stop(ctx context.Context) error {
	if !d.running.CompareAndSwap(true, false) {
		return nil
	}

	close(d.stopChan)

	select {
	case <-d.stoppedCh:
		logger.InfoCtx(ctx, "Alert dispatcher stopped gracefully")
		return nil
	case <-ctx.Done():
		logger.WarnCtx(ctx, "Alert dispatcher stop interrupted by context timeout")
		return ctx.Err()
	}
}

// drainCycle delivers one batch of pending alerts
func (d *Dispatcher) drainCycle(ctx context.Context) error {
	pending, err := d.store.GetPendingAlerts(ctx, d.clock.Now(), d.config.BatchSize)
	if err != nil {
		return fmt.Errorf("failed to get pending alerts: %w", err)
	}

	if len(pending) == 0 {
		if !d.sleep(ctx, d.config.DrainInterval) {
			return ctx.Err()
		}
		return nil
	}

	logger.DebugCtx(ctx, "Draining pending alerts", zap.Int("count", len(pending)))

	pool := pond.NewPool(
		d.config.WorkerPoolSize,
		pond.WithQueueSize(d.config.BatchSize),
		pond.WithContext(ctx),
	)
	for _, alert := range pending {
		pool.Submit(func() {
			d.deliver(ctx, alert)
		})
	}
	pool.StopAndWait()

	return nil
}

// deliver makes one delivery attempt and records its outcome. SENT is
// terminal; a failed attempt stays PENDING behind an exponential backoff
// window until the budget is spent.
func (d *Dispatcher) deliver(ctx context.Context, alert *schema.AlertQueue) {
	attempts := alert.Attempts + 1

	err := d.publisher.PublishAlert(ctx, &domain.AlertMessage{
		AlertID:   alert.ID,
		BatchID:   alert.BatchID,
		Recipient: alert.Recipient,
		Type:      alert.AlertType,
		Message:   alert.Message,
		QueuedAt:  alert.CreatedAt,
	})
	if err == nil {
		if err := d.store.UpdateAlertDelivery(ctx, alert.ID, schema.AlertStatusSent, attempts, nil, nil); err != nil {
			logger.ErrorCtx(ctx, fmt.Errorf("failed to mark alert sent: %w", err),
				zap.Uint64("alertID", alert.ID))
		}
		return
	}

	status := schema.AlertStatusPending
	var nextAttempt *time.Time
	if attempts >= d.config.MaxAttempts {
		status = schema.AlertStatusFailed
		logger.WarnCtx(ctx, "Alert delivery budget exhausted",
			zap.Uint64("alertID", alert.ID),
			zap.Uint64("batchID", alert.BatchID),
			zap.Int("attempts", attempts),
			zap.Error(err))
	} else {
		at := d.clock.Now().Add(d.config.RetryBaseDelay * time.Duration(1<<(attempts-1)))
		nextAttempt = &at
	}

	msg := err.Error()
	if err := d.store.UpdateAlertDelivery(ctx, alert.ID, status, attempts, nextAttempt, &msg); err != nil {
		logger.ErrorCtx(ctx, fmt.Errorf("failed to record alert delivery failure: %w", err),
			zap.Uint64("alertID", alert.ID))
	}
}

// sleep waits for the given duration, returning false if the context was
// cancelled first
func (d *Dispatcher) sleep(ctx context.Context, duration time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-d.stopChan:
		return false
	case <-d.clock.After(duration):
		return true
	}
}
