package ledger

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/pharmatrace/pt-indexer/internal/domain"
)

// Event signatures of the batch registry contract
var (
	// BatchCreated(uint256 indexed batchId, address indexed manufacturer, string batchNumber, uint256 quantity, string ipfsHash)
	batchCreatedSignature = crypto.Keccak256Hash([]byte("BatchCreated(uint256,address,string,uint256,string)"))

	// BulkBatchCreated(address indexed manufacturer, uint256[] batchIds, string[] batchNumbers, uint256[] quantities, string ipfsHash)
	bulkBatchCreatedSignature = crypto.Keccak256Hash([]byte("BulkBatchCreated(address,uint256[],string[],uint256[],string)"))

	// BatchSplit(uint256 indexed parentBatchId, uint256 indexed childBatchId, address indexed recipient, string childBatchNumber, uint256 quantity)
	batchSplitSignature = crypto.Keccak256Hash([]byte("BatchSplit(uint256,uint256,address,string,uint256)"))

	// TransferInitiated(uint256 indexed batchId, address indexed from, address indexed to, uint256 quantity)
	transferInitiatedSignature = crypto.Keccak256Hash([]byte("TransferInitiated(uint256,address,address,uint256)"))

	// Transfer(uint256 indexed batchId, address indexed from, address indexed to, uint256 quantity, uint8 recipientRole)
	transferSignature = crypto.Keccak256Hash([]byte("Transfer(uint256,address,address,uint256,uint8)"))

	// BatchTransfer carries the same payload as Transfer; older contract
	// versions emit it for acceptances
	batchTransferSignature = crypto.Keccak256Hash([]byte("BatchTransfer(uint256,address,address,uint256,uint8)"))

	// StatusUpdate(uint256 indexed batchId, uint8 newStatus)
	statusUpdateSignature = crypto.Keccak256Hash([]byte("StatusUpdate(uint256,uint8)"))

	// MetadataAdded(uint256 indexed batchId, string ipfsHash)
	metadataAddedSignature = crypto.Keccak256Hash([]byte("MetadataAdded(uint256,string)"))

	// BatchRecalled(uint256 indexed batchId, string reason)
	batchRecalledSignature = crypto.Keccak256Hash([]byte("BatchRecalled(uint256,string)"))
)

// ABI argument layouts for the non-indexed portion of each event
var (
	typeUint256, _      = abi.NewType("uint256", "", nil)
	typeUint8, _        = abi.NewType("uint8", "", nil)
	typeString, _       = abi.NewType("string", "", nil)
	typeUint256Array, _ = abi.NewType("uint256[]", "", nil)
	typeStringArray, _  = abi.NewType("string[]", "", nil)

	batchCreatedData = abi.Arguments{
		{Name: "batchNumber", Type: typeString},
		{Name: "quantity", Type: typeUint256},
		{Name: "ipfsHash", Type: typeString},
	}
	bulkBatchCreatedData = abi.Arguments{
		{Name: "batchIds", Type: typeUint256Array},
		{Name: "batchNumbers", Type: typeStringArray},
		{Name: "quantities", Type: typeUint256Array},
		{Name: "ipfsHash", Type: typeString},
	}
	batchSplitData = abi.Arguments{
		{Name: "childBatchNumber", Type: typeString},
		{Name: "quantity", Type: typeUint256},
	}
	transferInitiatedData = abi.Arguments{
		{Name: "quantity", Type: typeUint256},
	}
	transferData = abi.Arguments{
		{Name: "quantity", Type: typeUint256},
		{Name: "recipientRole", Type: typeUint8},
	}
	statusUpdateData = abi.Arguments{
		{Name: "newStatus", Type: typeUint8},
	}
	metadataAddedData = abi.Arguments{
		{Name: "ipfsHash", Type: typeString},
	}
	batchRecalledData = abi.Arguments{
		{Name: "reason", Type: typeString},
	}
)

// DecodeLog decodes one raw contract log into a domain event. Logs whose
// topic0 is outside the known set return domain.ErrUnknownEvent; a matching
// topic0 with a malformed payload returns a decoding error. Both are terminal:
// the entry is recorded FAILED and never retried.
func DecodeLog(vLog types.Log) (*domain.Event, error) {
	if len(vLog.Topics) == 0 {
		return nil, fmt.Errorf("log %s:%d has no topics: %w", vLog.TxHash.Hex(), vLog.Index, domain.ErrUnknownEvent)
	}

	event := &domain.Event{
		TxHash:      vLog.TxHash.Hex(),
		LogIndex:    vLog.Index,
		BlockNumber: vLog.BlockNumber,
	}

	switch vLog.Topics[0] {
	case batchCreatedSignature:
		if len(vLog.Topics) != 3 {
			return nil, fmt.Errorf("invalid BatchCreated event: expected 3 topics, got %d", len(vLog.Topics))
		}
		values, err := batchCreatedData.Unpack(vLog.Data)
		if err != nil {
			return nil, fmt.Errorf("failed to unpack BatchCreated data: %w", err)
		}
		quantity, err := toInt64(values[1].(*big.Int))
		if err != nil {
			return nil, fmt.Errorf("invalid BatchCreated quantity: %w", err)
		}
		event.Name = domain.EventBatchCreated
		event.Created = &domain.BatchCreatedArgs{
			BatchID:      topicUint64(vLog.Topics[1]),
			Manufacturer: topicAddress(vLog.Topics[2]),
			BatchNumber:  values[0].(string),
			Quantity:     quantity,
			IPFSHash:     values[2].(string),
		}

	case bulkBatchCreatedSignature:
		if len(vLog.Topics) != 2 {
			return nil, fmt.Errorf("invalid BulkBatchCreated event: expected 2 topics, got %d", len(vLog.Topics))
		}
		values, err := bulkBatchCreatedData.Unpack(vLog.Data)
		if err != nil {
			return nil, fmt.Errorf("failed to unpack BulkBatchCreated data: %w", err)
		}
		rawIDs := values[0].([]*big.Int)
		numbers := values[1].([]string)
		rawQuantities := values[2].([]*big.Int)
		if len(rawIDs) != len(numbers) || len(rawIDs) != len(rawQuantities) {
			return nil, fmt.Errorf("invalid BulkBatchCreated event: mismatched array lengths %d/%d/%d",
				len(rawIDs), len(numbers), len(rawQuantities))
		}
		ids := make([]uint64, len(rawIDs))
		quantities := make([]int64, len(rawQuantities))
		for i := range rawIDs {
			ids[i] = rawIDs[i].Uint64()
			q, err := toInt64(rawQuantities[i])
			if err != nil {
				return nil, fmt.Errorf("invalid BulkBatchCreated quantity at index %d: %w", i, err)
			}
			quantities[i] = q
		}
		event.Name = domain.EventBulkBatchCreated
		event.BulkCreated = &domain.BulkBatchCreatedArgs{
			Manufacturer: topicAddress(vLog.Topics[1]),
			BatchIDs:     ids,
			BatchNumbers: numbers,
			Quantities:   quantities,
			IPFSHash:     values[3].(string),
		}

	case batchSplitSignature:
		if len(vLog.Topics) != 4 {
			return nil, fmt.Errorf("invalid BatchSplit event: expected 4 topics, got %d", len(vLog.Topics))
		}
		values, err := batchSplitData.Unpack(vLog.Data)
		if err != nil {
			return nil, fmt.Errorf("failed to unpack BatchSplit data: %w", err)
		}
		quantity, err := toInt64(values[1].(*big.Int))
		if err != nil {
			return nil, fmt.Errorf("invalid BatchSplit quantity: %w", err)
		}
		event.Name = domain.EventBatchSplit
		event.Split = &domain.BatchSplitArgs{
			ParentBatchID:    topicUint64(vLog.Topics[1]),
			ChildBatchID:     topicUint64(vLog.Topics[2]),
			Recipient:        topicAddress(vLog.Topics[3]),
			ChildBatchNumber: values[0].(string),
			Quantity:         quantity,
		}

	case transferInitiatedSignature:
		if len(vLog.Topics) != 4 {
			return nil, fmt.Errorf("invalid TransferInitiated event: expected 4 topics, got %d", len(vLog.Topics))
		}
		values, err := transferInitiatedData.Unpack(vLog.Data)
		if err != nil {
			return nil, fmt.Errorf("failed to unpack TransferInitiated data: %w", err)
		}
		quantity, err := toInt64(values[0].(*big.Int))
		if err != nil {
			return nil, fmt.Errorf("invalid TransferInitiated quantity: %w", err)
		}
		event.Name = domain.EventTransferInitiated
		event.TransferInit = &domain.TransferInitiatedArgs{
			BatchID:  topicUint64(vLog.Topics[1]),
			From:     topicAddress(vLog.Topics[2]),
			To:       topicAddress(vLog.Topics[3]),
			Quantity: quantity,
		}

	case transferSignature, batchTransferSignature:
		if len(vLog.Topics) != 4 {
			return nil, fmt.Errorf("invalid Transfer event: expected 4 topics, got %d", len(vLog.Topics))
		}
		values, err := transferData.Unpack(vLog.Data)
		if err != nil {
			return nil, fmt.Errorf("failed to unpack Transfer data: %w", err)
		}
		quantity, err := toInt64(values[0].(*big.Int))
		if err != nil {
			return nil, fmt.Errorf("invalid Transfer quantity: %w", err)
		}
		event.Name = domain.EventTransfer
		if vLog.Topics[0] == batchTransferSignature {
			event.Name = domain.EventBatchTransfer
		}
		event.Transfer = &domain.TransferArgs{
			BatchID:       topicUint64(vLog.Topics[1]),
			From:          topicAddress(vLog.Topics[2]),
			To:            topicAddress(vLog.Topics[3]),
			Quantity:      quantity,
			RecipientRole: domain.ParticipantRole(values[1].(uint8)),
		}

	case statusUpdateSignature:
		if len(vLog.Topics) != 2 {
			return nil, fmt.Errorf("invalid StatusUpdate event: expected 2 topics, got %d", len(vLog.Topics))
		}
		values, err := statusUpdateData.Unpack(vLog.Data)
		if err != nil {
			return nil, fmt.Errorf("failed to unpack StatusUpdate data: %w", err)
		}
		code := values[0].(uint8)
		status, ok := domain.BatchStatusFromCode(code)
		if !ok {
			return nil, fmt.Errorf("invalid StatusUpdate event: unknown status code %d", code)
		}
		event.Name = domain.EventStatusUpdate
		event.Status = &domain.StatusUpdateArgs{
			BatchID:   topicUint64(vLog.Topics[1]),
			NewStatus: status,
		}

	case metadataAddedSignature:
		if len(vLog.Topics) != 2 {
			return nil, fmt.Errorf("invalid MetadataAdded event: expected 2 topics, got %d", len(vLog.Topics))
		}
		values, err := metadataAddedData.Unpack(vLog.Data)
		if err != nil {
			return nil, fmt.Errorf("failed to unpack MetadataAdded data: %w", err)
		}
		event.Name = domain.EventMetadataAdded
		event.Metadata = &domain.MetadataAddedArgs{
			BatchID:  topicUint64(vLog.Topics[1]),
			IPFSHash: values[0].(string),
		}

	case batchRecalledSignature:
		if len(vLog.Topics) != 2 {
			return nil, fmt.Errorf("invalid BatchRecalled event: expected 2 topics, got %d", len(vLog.Topics))
		}
		values, err := batchRecalledData.Unpack(vLog.Data)
		if err != nil {
			return nil, fmt.Errorf("failed to unpack BatchRecalled data: %w", err)
		}
		event.Name = domain.EventBatchRecalled
		event.Recall = &domain.BatchRecalledArgs{
			BatchID: topicUint64(vLog.Topics[1]),
			Reason:  values[0].(string),
		}

	default:
		return nil, fmt.Errorf("signature %s: %w", vLog.Topics[0].Hex(), domain.ErrUnknownEvent)
	}

	return event, nil
}

func topicUint64(topic common.Hash) uint64 {
	return new(big.Int).SetBytes(topic.Bytes()).Uint64()
}

func topicAddress(topic common.Hash) string {
	return common.BytesToAddress(topic.Bytes()).Hex()
}

func toInt64(v *big.Int) (int64, error) {
	if !v.IsInt64() {
		return 0, fmt.Errorf("value %s overflows int64", v.String())
	}
	return v.Int64(), nil
}
