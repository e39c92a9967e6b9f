package schema

import (
	"time"

	"gorm.io/datatypes"

	"github.com/pharmatrace/pt-indexer/internal/domain"
)

// EventLogStatus represents the terminal or pending outcome of one log entry
type EventLogStatus string

const (
	// EventLogStatusProcessed indicates the event was fully applied to the projection
	EventLogStatusProcessed EventLogStatus = "PROCESSED"
	// EventLogStatusFailed indicates a terminal failure (invariant violation,
	// decoding error, or exhausted retries)
	EventLogStatusFailed EventLogStatus = "FAILED"
	// EventLogStatusRetry indicates a transient failure awaiting another attempt
	EventLogStatusRetry EventLogStatus = "RETRY"
)

// EventLog represents the event_logs table - the immutable audit record of
// every ledger log entry seen by the indexer. The (tx_hash, log_index)
// uniqueness constraint is the sole deduplication mechanism.
type EventLog struct {
	// ID is the internal database primary key
	ID uint64 `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	// TxHash is the transaction hash of the log entry
	TxHash string `gorm:"column:tx_hash;not null;type:text;uniqueIndex:idx_event_logs_tx_log,priority:1" json:"tx_hash"`
	// LogIndex is the position of the log within its transaction receipt
	LogIndex uint `gorm:"column:log_index;not null;uniqueIndex:idx_event_logs_tx_log,priority:2" json:"log_index"`
	// EventName is one of the closed ledger event enum
	EventName domain.EventName `gorm:"column:event_name;not null;type:text;index" json:"event_name"`
	// BatchID is the primary batch the event refers to (0 for bulk events)
	BatchID uint64 `gorm:"column:batch_id;not null;index" json:"batch_id"`
	// BlockNumber is the block the log entry was recorded in
	BlockNumber uint64 `gorm:"column:block_number;not null;index" json:"block_number"`
	// Args holds the decoded event payload as JSON
	Args datatypes.JSON `gorm:"column:args;type:jsonb" json:"args"`
	// Status is PROCESSED, FAILED or RETRY. Never mutated once PROCESSED.
	Status EventLogStatus `gorm:"column:status;not null;type:text;index" json:"status"`
	// Error carries the failure reason when Status is FAILED or RETRY
	Error *string `gorm:"column:error;type:text" json:"error,omitempty"`
	// Attempts counts application attempts, incremented by the retry pipeline
	Attempts int `gorm:"column:attempts;not null;default:1" json:"attempts"`
	// ProcessedAt is when the row reached its current status
	ProcessedAt time.Time `gorm:"column:processed_at;not null" json:"processed_at"`
}

// TableName specifies the table name for the EventLog model
func (EventLog) TableName() string {
	return "event_logs"
}
