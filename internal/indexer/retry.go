package indexer

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/pharmatrace/pt-indexer/internal/adapter"
	"github.com/pharmatrace/pt-indexer/internal/domain"
	"github.com/pharmatrace/pt-indexer/internal/logger"
	"github.com/pharmatrace/pt-indexer/internal/store"
	"github.com/pharmatrace/pt-indexer/internal/store/schema"
)

// RetryPolicy bounds the retry pipeline for transient event failures
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// DefaultRetryPolicy matches the documented pipeline: 3 attempts, 2s base
// delay, doubling.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: domain.MAX_EVENT_ATTEMPTS,
		BaseDelay:   2 * time.Second,
	}
}

// Retrier drives a Processor through the bounded-retry-then-dead-letter
// pipeline. Terminal errors (invariant violations, unknown events) never
// retry; transient errors leave a RETRY audit row and retry with exponential
// backoff, and an exhausted budget quarantines the event instead of dropping
// it.
type Retrier struct {
	processor *Processor
	store     store.Store
	json      adapter.JSON
	policy    RetryPolicy
}

// NewRetrier creates a Retrier around one Processor
func NewRetrier(processor *Processor, s store.Store, json adapter.JSON, policy RetryPolicy) *Retrier {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = domain.MAX_EVENT_ATTEMPTS
	}
	if policy.BaseDelay <= 0 {
		policy.BaseDelay = 2 * time.Second
	}
	return &Retrier{processor: processor, store: s, json: json, policy: policy}
}

// ApplyWithRetry applies one event, retrying transient failures. The returned
// error is nil whenever the event reached a terminal status, including FAILED
// and dead-lettered: only store-level failures while recording the outcome
// propagate, so the caller can keep the cursor from advancing.
func (r *Retrier) ApplyWithRetry(ctx context.Context, event *domain.Event) error {
	attempts := 0
	operation := func() error {
		attempts++
		err := r.processor.Apply(ctx, event)
		if err == nil {
			return nil
		}
		if domain.IsTerminalEventError(err) {
			return backoff.Permanent(err)
		}
		// The RETRY row keeps the attempt count durable, so a crash between
		// attempts resumes the budget instead of resetting it
		if recErr := r.record(ctx, event, schema.EventLogStatusRetry, err, attempts); recErr != nil {
			logger.WarnCtx(ctx, "Failed to record retry audit row",
				zap.String("txHash", event.TxHash),
				zap.Uint("logIndex", event.LogIndex),
				zap.Error(recErr))
		}
		return err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.policy.BaseDelay
	b.Multiplier = 2.0
	b.MaxElapsedTime = 0

	err := backoff.Retry(operation,
		backoff.WithMaxRetries(backoff.WithContext(b, ctx), uint64(r.policy.MaxAttempts-1))) //nolint:gosec,G115 // MaxAttempts is a small positive config value
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	if domain.IsTerminalEventError(err) {
		logger.WarnCtx(ctx, "Event failed with non-retryable error",
			zap.String("txHash", event.TxHash),
			zap.Uint("logIndex", event.LogIndex),
			zap.String("event", string(event.Name)),
			zap.Error(err))
		return r.record(ctx, event, schema.EventLogStatusFailed, err, attempts)
	}

	logger.ErrorCtx(ctx, fmt.Errorf("event retry budget exhausted: %w", err),
		zap.String("txHash", event.TxHash),
		zap.Uint("logIndex", event.LogIndex),
		zap.Int("attempts", attempts))
	if err := r.deadLetter(ctx, event, err, attempts); err != nil {
		return err
	}
	return r.record(ctx, event, schema.EventLogStatusFailed, err, attempts)
}

func (r *Retrier) record(ctx context.Context, event *domain.Event, status schema.EventLogStatus, cause error, attempts int) error {
	argsJSON, err := r.json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event args: %w", err)
	}
	msg := cause.Error()
	return r.store.UpsertEventLog(ctx, &schema.EventLog{
		TxHash:      event.TxHash,
		LogIndex:    event.LogIndex,
		EventName:   event.Name,
		BatchID:     event.BatchID(),
		BlockNumber: event.BlockNumber,
		Args:        argsJSON,
		Status:      status,
		Error:       &msg,
		Attempts:    attempts,
	})
}

func (r *Retrier) deadLetter(ctx context.Context, event *domain.Event, cause error, attempts int) error {
	payload, err := r.json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}
	return r.store.CreateDeadLetter(ctx, &schema.DeadLetter{
		TxHash:      event.TxHash,
		LogIndex:    event.LogIndex,
		EventName:   event.Name,
		BlockNumber: event.BlockNumber,
		Payload:     payload,
		Error:       cause.Error(),
		Attempts:    attempts,
	})
}

// RecordUndecodable writes the FAILED audit row for a log that did not decode.
// Decoding errors are terminal by definition and never retried.
func (r *Retrier) RecordUndecodable(ctx context.Context, failed *domain.Event, cause error) error {
	return r.record(ctx, failed, schema.EventLogStatusFailed, cause, 1)
}
