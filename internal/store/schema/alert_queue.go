package schema

import (
	"time"

	"github.com/pharmatrace/pt-indexer/internal/domain"
)

// AlertStatus represents the delivery state of one alert queue entry
type AlertStatus string

const (
	// AlertStatusPending indicates the alert awaits delivery
	AlertStatusPending AlertStatus = "PENDING"
	// AlertStatusSent is terminal: the alert was handed to the transport
	AlertStatusSent AlertStatus = "SENT"
	// AlertStatusFailed is terminal: the delivery budget was exhausted
	AlertStatusFailed AlertStatus = "FAILED"
)

// AlertQueue represents the alert_queue table - one row per notification to
// deliver. The (batch_id, recipient, alert_type) uniqueness constraint makes
// enqueuing idempotent by natural key, which is what lets a recall cascade
// resume safely after a crash.
type AlertQueue struct {
	// ID is the internal database primary key
	ID uint64 `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	// BatchID is the batch the alert is about
	BatchID uint64 `gorm:"column:batch_id;not null;uniqueIndex:idx_alert_queue_natural_key,priority:1" json:"batch_id"`
	// Recipient is the address of the holder being notified
	Recipient string `gorm:"column:recipient;not null;type:text;uniqueIndex:idx_alert_queue_natural_key,priority:2" json:"recipient"`
	// AlertType is RECALL, TRANSFER_PENDING, TRANSFER_ACCEPTED or BATCH_SPLIT
	AlertType domain.AlertType `gorm:"column:alert_type;not null;type:text;uniqueIndex:idx_alert_queue_natural_key,priority:3" json:"alert_type"`
	// Message is the human-readable notification body
	Message string `gorm:"column:message;not null;type:text" json:"message"`
	// Status is PENDING, SENT or FAILED. SENT rows are never retried.
	Status AlertStatus `gorm:"column:status;not null;type:text;index" json:"status"`
	// Attempts increments only on a delivery attempt
	Attempts int `gorm:"column:attempts;not null;default:0" json:"attempts"`
	// Error carries the last delivery failure, if any
	Error *string `gorm:"column:error;type:text" json:"error,omitempty"`
	// NextAttemptAt defers redelivery after a failed attempt; nil means
	// immediately eligible
	NextAttemptAt *time.Time `gorm:"column:next_attempt_at;index" json:"next_attempt_at,omitempty"`

	CreatedAt time.Time `gorm:"column:created_at;not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null;autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for the AlertQueue model
func (AlertQueue) TableName() string {
	return "alert_queue"
}
