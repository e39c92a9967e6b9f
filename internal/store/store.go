package store

import (
	"context"
	"time"

	"github.com/pharmatrace/pt-indexer/internal/domain"
	"github.com/pharmatrace/pt-indexer/internal/store/schema"
)

// BatchFilter narrows batch listing queries
type BatchFilter struct {
	Owner  string
	Status *domain.BatchStatus
	Limit  int
	Offset int
}

// EventLogFilter narrows event log listing queries
type EventLogFilter struct {
	EventName *domain.EventName
	BatchID   *uint64
	Limit     int
	Offset    int
}

// Store defines the interface for database operations
type Store interface {
	// Transaction runs fn inside a database transaction. The Store passed to
	// fn operates on the transaction; returning an error rolls back.
	Transaction(ctx context.Context, fn func(tx Store) error) error

	// GetBatch retrieves a batch by its ledger id. Returns (nil, nil) when absent.
	GetBatch(ctx context.Context, batchID uint64) (*schema.Batch, error)
	// GetBatchByNumber retrieves a batch by its business key. Returns (nil, nil) when absent.
	GetBatchByNumber(ctx context.Context, batchNumber string) (*schema.Batch, error)
	// GetBatchesByOwner lists batches held by an owner, optionally filtered by status
	GetBatchesByOwner(ctx context.Context, filter BatchFilter) ([]*schema.Batch, int64, error)
	// SearchBatches does a case-insensitive substring match on product name,
	// manufacturer and batch number, most recent first
	SearchBatches(ctx context.Context, query string, limit int) ([]*schema.Batch, error)
	// GetChildBatches lists the direct children of the given parent batches
	GetChildBatches(ctx context.Context, parentIDs []uint64) ([]*schema.Batch, error)
	// CreateBatch inserts a new batch. Returns domain.ErrBatchAlreadyExists
	// when the batch id is already projected.
	CreateBatch(ctx context.Context, batch *schema.Batch) error
	// SaveBatch persists mutations to an existing batch
	SaveBatch(ctx context.Context, batch *schema.Batch) error
	// CountBatches returns the total number of projected batches
	CountBatches(ctx context.Context) (int64, error)

	// InsertEventLog reserves one (tx_hash, log_index) pair. Returns
	// domain.ErrDuplicateEvent when the pair already exists.
	InsertEventLog(ctx context.Context, row *schema.EventLog) error
	// GetEventLog retrieves the audit row for one log entry. Returns (nil, nil) when absent.
	GetEventLog(ctx context.Context, txHash string, logIndex uint) (*schema.EventLog, error)
	// UpsertEventLog records the outcome of one application attempt, replacing
	// an earlier RETRY or FAILED row. A row already PROCESSED is never changed.
	UpsertEventLog(ctx context.Context, row *schema.EventLog) error
	// ListEventLogs pages through the audit trail
	ListEventLogs(ctx context.Context, filter EventLogFilter) ([]*schema.EventLog, int64, error)

	// GetSyncState returns the singleton cursor, creating the zero-value row
	// on first use
	GetSyncState(ctx context.Context) (*schema.SyncState, error)
	// InitSyncState records the tracked contract and chain on the singleton row
	InitSyncState(ctx context.Context, contractAddress string, chainID uint64) error
	// AdvanceCursor atomically moves last_processed_block forward. The write
	// is guarded so the cursor never regresses.
	AdvanceCursor(ctx context.Context, blockNumber uint64) error
	// TryEnterSync flips the advisory is_syncing flag, returning false when a
	// catch-up pass already holds it
	TryEnterSync(ctx context.Context) (bool, error)
	// ExitSync clears the advisory is_syncing flag
	ExitSync(ctx context.Context) error

	// EnqueueAlert inserts an alert if its natural key is not already queued.
	// Returns true when a new row was created.
	EnqueueAlert(ctx context.Context, alert *schema.AlertQueue) (bool, error)
	// GetPendingAlerts lists alerts whose next delivery attempt is due at
	// now, oldest first
	GetPendingAlerts(ctx context.Context, now time.Time, limit int) ([]*schema.AlertQueue, error)
	// UpdateAlertDelivery records the outcome of one delivery attempt. A
	// non-nil nextAttemptAt defers the row past the backoff window.
	UpdateAlertDelivery(ctx context.Context, id uint64, status schema.AlertStatus, attempts int, nextAttemptAt *time.Time, errMsg *string) error
	// GetAlertsByBatch lists alerts for one batch
	GetAlertsByBatch(ctx context.Context, batchID uint64) ([]*schema.AlertQueue, error)

	// CreateDeadLetter quarantines an event whose retry budget was exhausted
	CreateDeadLetter(ctx context.Context, entry *schema.DeadLetter) error
	// ListDeadLetters pages through quarantined events for manual review
	ListDeadLetters(ctx context.Context, limit, offset int) ([]*schema.DeadLetter, int64, error)
}
