package schema

import (
	"time"

	"gorm.io/datatypes"

	"github.com/pharmatrace/pt-indexer/internal/domain"
)

// Batch represents the batches table - the mutable projection of one lot of
// product as currently known from the ledger event stream.
type Batch struct {
	// BatchID is the ledger-assigned identifier, used directly as primary key
	BatchID uint64 `gorm:"column:batch_id;primaryKey" json:"batch_id"`
	// BatchNumber is the human-readable business key, unique across batches
	BatchNumber string `gorm:"column:batch_number;not null;uniqueIndex;type:text" json:"batch_number"`
	// Manufacturer is the creator address, immutable after creation
	Manufacturer string `gorm:"column:manufacturer;not null;type:text;index" json:"manufacturer"`
	// Owner is the current holder address
	Owner string `gorm:"column:owner;not null;type:text;index" json:"owner"`
	// ParentBatchID is 0 for root batches, otherwise the batch this one was
	// split or derived from. Immutable once set.
	ParentBatchID uint64 `gorm:"column:parent_batch_id;not null;default:0;index" json:"parent_batch_id"`
	// Quantity is the authoritative current quantity, never negative
	Quantity int64 `gorm:"column:quantity;not null" json:"quantity"`
	// Status is the lifecycle state, mutated only along the allowed edge set
	Status domain.BatchStatus `gorm:"column:status;not null;type:text;index" json:"status"`

	// Descriptive fields cached from the manifest for search. Informational
	// only, never authoritative for business logic.
	ProductName string         `gorm:"column:product_name;type:text;index" json:"product_name,omitempty"`
	Strength    string         `gorm:"column:strength;type:text" json:"strength,omitempty"`
	Packaging   string         `gorm:"column:packaging;type:text" json:"packaging,omitempty"`
	ExpiryDate  string         `gorm:"column:expiry_date;type:text" json:"expiry_date,omitempty"`
	Ingredients datatypes.JSON `gorm:"column:ingredients;type:jsonb" json:"ingredients,omitempty"`

	// Financial fields stay off every public artifact, including the audit
	// trail export. Hidden from JSON serialization.
	UnitCost  int64 `gorm:"column:unit_cost;not null;default:0" json:"-"`
	UnitPrice int64 `gorm:"column:unit_price;not null;default:0" json:"-"`

	// Pending transfer stash: set by TransferInitiated, cleared on acceptance
	PendingRecipient *string `gorm:"column:pending_recipient;type:text" json:"pending_recipient,omitempty"`
	PendingQuantity  *int64  `gorm:"column:pending_quantity" json:"pending_quantity,omitempty"`

	// Provenance of the creation event
	IPFSHash    string `gorm:"column:ipfs_hash;type:text" json:"ipfs_hash"`
	TxHash      string `gorm:"column:tx_hash;type:text" json:"tx_hash"`
	BlockNumber uint64 `gorm:"column:block_number;not null" json:"block_number"`

	CreatedAt time.Time `gorm:"column:created_at;not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null;autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for the Batch model
func (Batch) TableName() string {
	return "batches"
}
