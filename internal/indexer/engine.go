package indexer

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/pharmatrace/pt-indexer/internal/domain"
	"github.com/pharmatrace/pt-indexer/internal/ledger"
	"github.com/pharmatrace/pt-indexer/internal/logger"
	"github.com/pharmatrace/pt-indexer/internal/store"
	"github.com/pharmatrace/pt-indexer/internal/store/schema"
)

// Config holds the engine parameters
type Config struct {
	ContractAddress string
	ChainID         uint64
	// StartBlock is the deployment block of the tracked contract; scanning
	// never begins before it
	StartBlock uint64
}

// Engine owns the indexing lifecycle: resume from the durable cursor, catch
// up to the chain head, then follow new blocks until cancelled. Events inside
// a block are applied strictly sequentially; the cursor advances at block
// granularity only after every event in the window reached a terminal status.
type Engine struct {
	cfg     Config
	source  ledger.Source
	client  ledger.Client
	store   store.Store
	retrier *Retrier
}

// NewEngine creates an Engine
func NewEngine(cfg Config, source ledger.Source, client ledger.Client, s store.Store, retrier *Retrier) *Engine {
	return &Engine{
		cfg:     cfg,
		source:  source,
		client:  client,
		store:   s,
		retrier: retrier,
	}
}

// Run blocks until the context is cancelled or the sync pass fails. The
// caller restarts a failed pass; resumption is safe because the cursor only
// moves past durably committed blocks.
func (e *Engine) Run(ctx context.Context) error {
	if err := e.store.InitSyncState(ctx, e.cfg.ContractAddress, e.cfg.ChainID); err != nil {
		return fmt.Errorf("failed to init sync state: %w", err)
	}

	// The syncing flag is advisory and the process model is single-instance,
	// so a stale flag left by a crash is cleared rather than honored.
	if err := e.store.ExitSync(ctx); err != nil {
		return fmt.Errorf("failed to clear sync flag: %w", err)
	}
	entered, err := e.store.TryEnterSync(ctx)
	if err != nil {
		return fmt.Errorf("failed to enter sync: %w", err)
	}
	if !entered {
		return domain.ErrSyncInProgress
	}
	defer func() {
		if err := e.store.ExitSync(context.WithoutCancel(ctx)); err != nil {
			logger.Error(fmt.Errorf("failed to exit sync: %w", err))
		}
	}()

	state, err := e.store.GetSyncState(ctx)
	if err != nil {
		return fmt.Errorf("failed to load sync state: %w", err)
	}

	fromBlock := state.LastProcessedBlock + 1
	if state.LastProcessedBlock == 0 && e.cfg.StartBlock > 0 {
		fromBlock = e.cfg.StartBlock
	}

	logger.InfoCtx(ctx, "Starting indexing",
		zap.String("contract", e.cfg.ContractAddress),
		zap.Uint64("chainID", e.cfg.ChainID),
		zap.Uint64("fromBlock", fromBlock))

	return e.source.Run(ctx, fromBlock, e.handleBlock, e.checkpoint)
}

// handleBlock applies one block's events in log order. On a shutdown signal
// the in-flight block still runs to completion, so the cursor never records a
// torn block.
func (e *Engine) handleBlock(ctx context.Context, block ledger.BlockEvents) error {
	appCtx := context.WithoutCancel(ctx)

	for i := range block.Events {
		event := &block.Events[i]
		if err := e.retrier.ApplyWithRetry(appCtx, event); err != nil {
			return fmt.Errorf("failed to apply event %s:%d: %w", event.TxHash, event.LogIndex, err)
		}
	}

	for _, failed := range block.Undecodable {
		stub := &domain.Event{
			TxHash:      failed.Log.TxHash.Hex(),
			LogIndex:    failed.Log.Index,
			BlockNumber: failed.Log.BlockNumber,
		}
		logger.WarnCtx(ctx, "Undecodable log entry",
			zap.String("txHash", stub.TxHash),
			zap.Uint("logIndex", stub.LogIndex),
			zap.Error(failed.Err))
		if err := e.retrier.RecordUndecodable(appCtx, stub, failed.Err); err != nil {
			return fmt.Errorf("failed to record undecodable log %s:%d: %w", stub.TxHash, stub.LogIndex, err)
		}
	}

	return nil
}

func (e *Engine) checkpoint(ctx context.Context, blockNumber uint64) error {
	return e.store.AdvanceCursor(context.WithoutCancel(ctx), blockNumber)
}

// EventOutcome is the per-log result of a forced transaction run
type EventOutcome struct {
	LogIndex  uint                  `json:"log_index"`
	EventName domain.EventName      `json:"event_name"`
	Status    schema.EventLogStatus `json:"status"`
	Error     string                `json:"error,omitempty"`
}

// TxOutcome summarizes a forced transaction run
type TxOutcome struct {
	TxHash    string         `json:"tx_hash"`
	Processed int            `json:"processed"`
	Failed    int            `json:"failed"`
	Events    []EventOutcome `json:"events"`
}

// ProcessTransaction force-processes one transaction's logs synchronously,
// bypassing the retry pipeline so validation errors surface to the caller
// immediately. Redelivered logs are counted as processed no-ops.
func (e *Engine) ProcessTransaction(ctx context.Context, txHash string) (*TxOutcome, error) {
	logs, err := e.client.TransactionLogs(ctx, txHash)
	if err != nil {
		return nil, err
	}

	outcome := &TxOutcome{TxHash: txHash}
	for _, vLog := range logs {
		event, err := ledger.DecodeLog(vLog)
		if err != nil {
			stub := &domain.Event{
				TxHash:      vLog.TxHash.Hex(),
				LogIndex:    vLog.Index,
				BlockNumber: vLog.BlockNumber,
			}
			if recErr := e.retrier.RecordUndecodable(ctx, stub, err); recErr != nil {
				return nil, recErr
			}
			outcome.Failed++
			outcome.Events = append(outcome.Events, EventOutcome{
				LogIndex: vLog.Index,
				Status:   schema.EventLogStatusFailed,
				Error:    err.Error(),
			})
			continue
		}

		applyErr := e.retrier.processor.Apply(ctx, event)
		if applyErr == nil {
			outcome.Processed++
			outcome.Events = append(outcome.Events, EventOutcome{
				LogIndex:  event.LogIndex,
				EventName: event.Name,
				Status:    schema.EventLogStatusProcessed,
			})
			continue
		}
		if !domain.IsTerminalEventError(applyErr) {
			return nil, applyErr
		}
		if err := e.retrier.record(ctx, event, schema.EventLogStatusFailed, applyErr, 1); err != nil {
			return nil, err
		}
		outcome.Failed++
		outcome.Events = append(outcome.Events, EventOutcome{
			LogIndex:  event.LogIndex,
			EventName: event.Name,
			Status:    schema.EventLogStatusFailed,
			Error:     applyErr.Error(),
		})
	}

	return outcome, nil
}
