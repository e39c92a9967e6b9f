package schema

import (
	"time"

	"gorm.io/datatypes"

	"github.com/pharmatrace/pt-indexer/internal/domain"
)

// DeadLetter represents the dead_letters table - quarantine for events whose
// retry budget was exhausted. Entries require manual review; nothing in the
// engine auto-resolves them.
type DeadLetter struct {
	// ID is the internal database primary key
	ID uint64 `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	// TxHash and LogIndex identify the quarantined log entry
	TxHash   string `gorm:"column:tx_hash;not null;type:text;uniqueIndex:idx_dead_letters_tx_log,priority:1" json:"tx_hash"`
	LogIndex uint   `gorm:"column:log_index;not null;uniqueIndex:idx_dead_letters_tx_log,priority:2" json:"log_index"`
	// EventName is the decoded event name, if decoding succeeded
	EventName domain.EventName `gorm:"column:event_name;type:text" json:"event_name"`
	// BlockNumber is the block the log entry was recorded in
	BlockNumber uint64 `gorm:"column:block_number;not null" json:"block_number"`
	// Payload holds the decoded event (or raw log when undecodable)
	Payload datatypes.JSON `gorm:"column:payload;type:jsonb" json:"payload"`
	// Error is the final error that exhausted the retry budget
	Error string `gorm:"column:error;not null;type:text" json:"error"`
	// Attempts is the number of application attempts made
	Attempts int `gorm:"column:attempts;not null" json:"attempts"`

	CreatedAt time.Time `gorm:"column:created_at;not null;autoCreateTime" json:"created_at"`
}

// TableName specifies the table name for the DeadLetter model
func (DeadLetter) TableName() string {
	return "dead_letters"
}
