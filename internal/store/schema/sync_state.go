package schema

import "time"

// SyncStateID is the fixed primary key of the singleton sync state row
const SyncStateID = 1

// SyncState represents the sync_state table - the singleton durable cursor of
// the indexing process. LastProcessedBlock is monotonically non-decreasing
// and only advanced after every event at or before it is durably committed.
type SyncState struct {
	ID int `gorm:"column:id;primaryKey" json:"id"`
	// LastProcessedBlock is the last block whose events all reached a
	// terminal status
	LastProcessedBlock uint64 `gorm:"column:last_processed_block;not null;default:0" json:"last_processed_block"`
	// ContractAddress is the tracked contract
	ContractAddress string `gorm:"column:contract_address;type:text" json:"contract_address"`
	// ChainID identifies the ledger network
	ChainID uint64 `gorm:"column:chain_id;not null;default:0" json:"chain_id"`
	// IsSyncing is an advisory guard against concurrent catch-up passes
	IsSyncing bool `gorm:"column:is_syncing;not null;default:false" json:"is_syncing"`
	// LastSyncedAt is when the cursor last advanced
	LastSyncedAt time.Time `gorm:"column:last_synced_at" json:"last_synced_at"`

	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for the SyncState model
func (SyncState) TableName() string {
	return "sync_state"
}
