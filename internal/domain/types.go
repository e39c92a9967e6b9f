package domain

import (
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// BatchStatus represents the lifecycle state of a batch projection.
type BatchStatus string

const (
	BatchStatusCreated   BatchStatus = "CREATED"
	BatchStatusInTransit BatchStatus = "IN_TRANSIT"
	BatchStatusSold      BatchStatus = "SOLD"
	BatchStatusRecalled  BatchStatus = "RECALLED"
	BatchStatusDelivered BatchStatus = "DELIVERED"
)

// IsValidBatchStatus checks if a status is part of the closed enum
func IsValidBatchStatus(s BatchStatus) bool {
	switch s {
	case BatchStatusCreated, BatchStatusInTransit, BatchStatusSold,
		BatchStatusRecalled, BatchStatusDelivered:
		return true
	}
	return false
}

// AllowedStatusTransition reports whether a direct StatusUpdate from one
// status to another is legal. Any status may move to RECALLED; the remaining
// edges form the normal forward flow of a batch.
func AllowedStatusTransition(from, to BatchStatus) bool {
	if to == BatchStatusRecalled {
		return true
	}
	switch {
	case from == BatchStatusCreated && to == BatchStatusInTransit:
		return true
	case from == BatchStatusInTransit && to == BatchStatusDelivered:
		return true
	case from == BatchStatusCreated && to == BatchStatusSold:
		return true
	}
	return false
}

// BatchStatusFromCode maps the on-chain uint8 status code to a BatchStatus.
// Returns false for codes outside the enum.
func BatchStatusFromCode(code uint8) (BatchStatus, bool) {
	switch code {
	case 0:
		return BatchStatusCreated, true
	case 1:
		return BatchStatusInTransit, true
	case 2:
		return BatchStatusSold, true
	case 3:
		return BatchStatusRecalled, true
	case 4:
		return BatchStatusDelivered, true
	}
	return "", false
}

// ParticipantRole identifies the kind of supply-chain actor receiving a
// transfer. The role determines the batch status after acceptance.
type ParticipantRole uint8

const (
	RoleManufacturer ParticipantRole = 0
	RoleDistributor  ParticipantRole = 1
	RolePharmacy     ParticipantRole = 2
	RoleConsumer     ParticipantRole = 3
)

// StatusAfterAcceptance returns the batch status after a completed transfer
// to an actor with the given role.
func StatusAfterAcceptance(role ParticipantRole) BatchStatus {
	switch role {
	case RolePharmacy:
		return BatchStatusDelivered
	case RoleConsumer:
		return BatchStatusSold
	default:
		return BatchStatusCreated
	}
}

// EventName represents the closed set of ledger event names
type EventName string

const (
	EventBatchCreated      EventName = "BatchCreated"
	EventBatchSplit        EventName = "BatchSplit"
	EventTransferInitiated EventName = "TransferInitiated"
	EventTransfer          EventName = "Transfer"
	EventStatusUpdate      EventName = "StatusUpdate"
	EventMetadataAdded     EventName = "MetadataAdded"
	EventBatchRecalled     EventName = "BatchRecalled"
	EventBatchTransfer     EventName = "BatchTransfer"
	EventBulkBatchCreated  EventName = "BulkBatchCreated"
)

// IsValidEventName checks if an event name is part of the closed enum
func IsValidEventName(name EventName) bool {
	switch name {
	case EventBatchCreated, EventBatchSplit, EventTransferInitiated,
		EventTransfer, EventStatusUpdate, EventMetadataAdded,
		EventBatchRecalled, EventBatchTransfer, EventBulkBatchCreated:
		return true
	}
	return false
}

// BatchCreatedArgs carries the decoded payload of a BatchCreated event
type BatchCreatedArgs struct {
	BatchID      uint64 `json:"batch_id"`
	BatchNumber  string `json:"batch_number"`
	Manufacturer string `json:"manufacturer"`
	Quantity     int64  `json:"quantity"`
	IPFSHash     string `json:"ipfs_hash"`
	ProductName  string `json:"product_name,omitempty"`
}

// BulkBatchCreatedArgs carries the decoded payload of a BulkBatchCreated
// event. The three slices are parallel: index i describes the i-th batch.
type BulkBatchCreatedArgs struct {
	Manufacturer string   `json:"manufacturer"`
	BatchIDs     []uint64 `json:"batch_ids"`
	BatchNumbers []string `json:"batch_numbers"`
	Quantities   []int64  `json:"quantities"`
	IPFSHash     string   `json:"ipfs_hash"`
}

// BatchSplitArgs carries the decoded payload of a BatchSplit event
type BatchSplitArgs struct {
	ParentBatchID    uint64 `json:"parent_batch_id"`
	ChildBatchID     uint64 `json:"child_batch_id"`
	ChildBatchNumber string `json:"child_batch_number"`
	Recipient        string `json:"recipient"`
	Quantity         int64  `json:"quantity"`
}

// TransferInitiatedArgs carries the decoded payload of a TransferInitiated event
type TransferInitiatedArgs struct {
	BatchID  uint64 `json:"batch_id"`
	From     string `json:"from"`
	To       string `json:"to"`
	Quantity int64  `json:"quantity"`
}

// TransferArgs carries the decoded payload of a Transfer or BatchTransfer
// (acceptance) event
type TransferArgs struct {
	BatchID       uint64          `json:"batch_id"`
	From          string          `json:"from"`
	To            string          `json:"to"`
	Quantity      int64           `json:"quantity"`
	RecipientRole ParticipantRole `json:"recipient_role"`
}

// StatusUpdateArgs carries the decoded payload of a StatusUpdate event
type StatusUpdateArgs struct {
	BatchID   uint64      `json:"batch_id"`
	NewStatus BatchStatus `json:"new_status"`
}

// MetadataAddedArgs carries the decoded payload of a MetadataAdded event
type MetadataAddedArgs struct {
	BatchID     uint64 `json:"batch_id"`
	IPFSHash    string `json:"ipfs_hash"`
	ProductName string `json:"product_name,omitempty"`
	Strength    string `json:"strength,omitempty"`
	Packaging   string `json:"packaging,omitempty"`
	ExpiryDate  string `json:"expiry_date,omitempty"`
}

// BatchRecalledArgs carries the decoded payload of a BatchRecalled event
type BatchRecalledArgs struct {
	BatchID uint64 `json:"batch_id"`
	Reason  string `json:"reason"`
}

// Event is the decoded form of one ledger log entry: a tagged union over the
// closed event-name enum. Exactly one payload pointer is non-nil, matching
// Name. TxHash and LogIndex identify the log entry globally.
type Event struct {
	Name        EventName `json:"name"`
	TxHash      string    `json:"tx_hash"`
	LogIndex    uint      `json:"log_index"`
	BlockNumber uint64    `json:"block_number"`

	Created      *BatchCreatedArgs      `json:"created,omitempty"`
	BulkCreated  *BulkBatchCreatedArgs  `json:"bulk_created,omitempty"`
	Split        *BatchSplitArgs        `json:"split,omitempty"`
	TransferInit *TransferInitiatedArgs `json:"transfer_init,omitempty"`
	Transfer     *TransferArgs          `json:"transfer,omitempty"`
	Status       *StatusUpdateArgs      `json:"status,omitempty"`
	Metadata     *MetadataAddedArgs     `json:"metadata,omitempty"`
	Recall       *BatchRecalledArgs     `json:"recall,omitempty"`
}

// BatchID returns the primary batch the event refers to, or 0 for bulk events
// which carry a list instead.
func (e *Event) BatchID() uint64 {
	switch e.Name {
	case EventBatchCreated:
		return e.Created.BatchID
	case EventBatchSplit:
		return e.Split.ParentBatchID
	case EventTransferInitiated:
		return e.TransferInit.BatchID
	case EventTransfer, EventBatchTransfer:
		return e.Transfer.BatchID
	case EventStatusUpdate:
		return e.Status.BatchID
	case EventMetadataAdded:
		return e.Metadata.BatchID
	case EventBatchRecalled:
		return e.Recall.BatchID
	}
	return 0
}

// AlertType represents the kind of notification queued for delivery
type AlertType string

const (
	AlertTypeRecall           AlertType = "RECALL"
	AlertTypeTransferPending  AlertType = "TRANSFER_PENDING"
	AlertTypeTransferAccepted AlertType = "TRANSFER_ACCEPTED"
	AlertTypeBatchSplit       AlertType = "BATCH_SPLIT"
)

// AlertMessage is the wire form of one notification handed to the message
// broker
type AlertMessage struct {
	AlertID   uint64    `json:"alert_id"`
	BatchID   uint64    `json:"batch_id"`
	Recipient string    `json:"recipient"`
	Type      AlertType `json:"type"`
	Message   string    `json:"message"`
	QueuedAt  time.Time `json:"queued_at"`
}

// NormalizeAddress normalizes a hex address to its checksummed form
func NormalizeAddress(address string) string {
	if strings.HasPrefix(address, "0x") {
		return common.HexToAddress(address).String()
	}
	return address
}
