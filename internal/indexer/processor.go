package indexer

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"

	"go.uber.org/zap"

	"github.com/pharmatrace/pt-indexer/internal/adapter"
	"github.com/pharmatrace/pt-indexer/internal/domain"
	"github.com/pharmatrace/pt-indexer/internal/logger"
	"github.com/pharmatrace/pt-indexer/internal/store"
	"github.com/pharmatrace/pt-indexer/internal/store/schema"
)

// Cascader fans a recall out to every downstream holder of a batch
type Cascader interface {
	Cascade(ctx context.Context, batchID uint64, reason string) error
}

// Processor applies decoded ledger events to the batch projection. Every
// application runs in one store transaction together with its audit row, so a
// crash can never leave a mutation without the matching EventLog entry.
type Processor struct {
	store   store.Store
	json    adapter.JSON
	cascade Cascader
}

// NewProcessor creates a Processor. The cascader may be nil, in which case
// recalls update the batch but fan no alerts out.
func NewProcessor(s store.Store, json adapter.JSON, cascade Cascader) *Processor {
	return &Processor{store: s, json: json, cascade: cascade}
}

// Apply projects one event. A redelivered event whose audit row is already
// terminal is a silent no-op. Errors for which domain.IsTerminalEventError
// holds must not be retried; everything else is transient.
func (p *Processor) Apply(ctx context.Context, event *domain.Event) error {
	argsJSON, err := p.json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event args: %w", err)
	}

	attempts := 1
	err = p.store.Transaction(ctx, func(tx store.Store) error {
		existing, err := tx.GetEventLog(ctx, event.TxHash, event.LogIndex)
		if err != nil {
			return err
		}
		if existing != nil {
			if existing.Status != schema.EventLogStatusRetry {
				return domain.ErrDuplicateEvent
			}
			attempts = existing.Attempts + 1
		}

		if err := p.mutate(ctx, tx, event); err != nil {
			return err
		}

		return tx.UpsertEventLog(ctx, &schema.EventLog{
			TxHash:      event.TxHash,
			LogIndex:    event.LogIndex,
			EventName:   event.Name,
			BatchID:     event.BatchID(),
			BlockNumber: event.BlockNumber,
			Args:        argsJSON,
			Status:      schema.EventLogStatusProcessed,
			Attempts:    attempts,
		})
	})
	if errors.Is(err, domain.ErrDuplicateEvent) {
		logger.DebugCtx(ctx, "Skipping already processed event",
			zap.String("txHash", event.TxHash),
			zap.Uint("logIndex", event.LogIndex))
		return nil
	}
	if err != nil {
		return err
	}

	// The cascade runs outside the event transaction: enqueuing is idempotent
	// by natural key, so a crash between commit and fan-out is recoverable by
	// re-running the cascade.
	if event.Name == domain.EventBatchRecalled && p.cascade != nil {
		if err := p.cascade.Cascade(ctx, event.Recall.BatchID, event.Recall.Reason); err != nil {
			logger.WarnCtx(ctx, "Recall cascade incomplete",
				zap.Uint64("batchID", event.Recall.BatchID),
				zap.Error(err))
		}
	}
	return nil
}

func (p *Processor) mutate(ctx context.Context, tx store.Store, event *domain.Event) error {
	switch event.Name {
	case domain.EventBatchCreated:
		return p.applyBatchCreated(ctx, tx, event)
	case domain.EventBulkBatchCreated:
		return p.applyBulkBatchCreated(ctx, tx, event)
	case domain.EventBatchSplit:
		return p.applyBatchSplit(ctx, tx, event)
	case domain.EventTransferInitiated:
		return p.applyTransferInitiated(ctx, tx, event)
	case domain.EventTransfer, domain.EventBatchTransfer:
		return p.applyTransferAccepted(ctx, tx, event)
	case domain.EventStatusUpdate:
		return p.applyStatusUpdate(ctx, tx, event)
	case domain.EventMetadataAdded:
		return p.applyMetadataAdded(ctx, tx, event)
	case domain.EventBatchRecalled:
		return p.applyBatchRecalled(ctx, tx, event)
	default:
		return fmt.Errorf("event %s: %w", event.Name, domain.ErrUnknownEvent)
	}
}

func (p *Processor) applyBatchCreated(ctx context.Context, tx store.Store, event *domain.Event) error {
	args := event.Created
	manufacturer := domain.NormalizeAddress(args.Manufacturer)
	return tx.CreateBatch(ctx, &schema.Batch{
		BatchID:      args.BatchID,
		BatchNumber:  args.BatchNumber,
		Manufacturer: manufacturer,
		Owner:        manufacturer,
		Quantity:     args.Quantity,
		Status:       domain.BatchStatusCreated,
		ProductName:  args.ProductName,
		IPFSHash:     args.IPFSHash,
		TxHash:       event.TxHash,
		BlockNumber:  event.BlockNumber,
	})
}

func (p *Processor) applyBulkBatchCreated(ctx context.Context, tx store.Store, event *domain.Event) error {
	args := event.BulkCreated
	manufacturer := domain.NormalizeAddress(args.Manufacturer)
	for i, batchID := range args.BatchIDs {
		if err := tx.CreateBatch(ctx, &schema.Batch{
			BatchID:      batchID,
			BatchNumber:  args.BatchNumbers[i],
			Manufacturer: manufacturer,
			Owner:        manufacturer,
			Quantity:     args.Quantities[i],
			Status:       domain.BatchStatusCreated,
			IPFSHash:     args.IPFSHash,
			TxHash:       event.TxHash,
			BlockNumber:  event.BlockNumber,
		}); err != nil {
			return fmt.Errorf("bulk creation of batch %d: %w", batchID, err)
		}
	}
	return nil
}

func (p *Processor) applyBatchSplit(ctx context.Context, tx store.Store, event *domain.Event) error {
	args := event.Split
	parent, err := tx.GetBatch(ctx, args.ParentBatchID)
	if err != nil {
		return err
	}
	if parent == nil {
		return fmt.Errorf("split of batch %d: %w", args.ParentBatchID, domain.ErrUnknownParent)
	}
	if args.Quantity > parent.Quantity {
		return fmt.Errorf("split %d from batch %d holding %d: %w",
			args.Quantity, parent.BatchID, parent.Quantity, domain.ErrInsufficientQuantity)
	}

	recipient := domain.NormalizeAddress(args.Recipient)
	if err := tx.CreateBatch(ctx, &schema.Batch{
		BatchID:       args.ChildBatchID,
		BatchNumber:   args.ChildBatchNumber,
		Manufacturer:  parent.Manufacturer,
		Owner:         recipient,
		ParentBatchID: parent.BatchID,
		Quantity:      args.Quantity,
		Status:        domain.BatchStatusCreated,
		ProductName:   parent.ProductName,
		Strength:      parent.Strength,
		Packaging:     parent.Packaging,
		ExpiryDate:    parent.ExpiryDate,
		IPFSHash:      parent.IPFSHash,
		TxHash:        event.TxHash,
		BlockNumber:   event.BlockNumber,
	}); err != nil {
		return err
	}

	parent.Quantity -= args.Quantity
	if err := tx.SaveBatch(ctx, parent); err != nil {
		return err
	}

	_, err = tx.EnqueueAlert(ctx, &schema.AlertQueue{
		BatchID:   args.ChildBatchID,
		Recipient: recipient,
		AlertType: domain.AlertTypeBatchSplit,
		Message: fmt.Sprintf("Batch %s: %d units split from %s to you",
			args.ChildBatchNumber, args.Quantity, parent.BatchNumber),
	})
	return err
}

func (p *Processor) applyTransferInitiated(ctx context.Context, tx store.Store, event *domain.Event) error {
	args := event.TransferInit
	batch, err := tx.GetBatch(ctx, args.BatchID)
	if err != nil {
		return err
	}
	if batch == nil {
		return fmt.Errorf("transfer of batch %d: %w", args.BatchID, domain.ErrBatchNotFound)
	}
	if !domain.AllowedStatusTransition(batch.Status, domain.BatchStatusInTransit) {
		return fmt.Errorf("transfer of batch %d in status %s: %w",
			batch.BatchID, batch.Status, domain.ErrInvalidStatusTransition)
	}

	recipient := domain.NormalizeAddress(args.To)
	batch.Status = domain.BatchStatusInTransit
	batch.PendingRecipient = &recipient
	quantity := args.Quantity
	batch.PendingQuantity = &quantity
	if err := tx.SaveBatch(ctx, batch); err != nil {
		return err
	}

	_, err = tx.EnqueueAlert(ctx, &schema.AlertQueue{
		BatchID:   batch.BatchID,
		Recipient: recipient,
		AlertType: domain.AlertTypeTransferPending,
		Message: fmt.Sprintf("Batch %s: transfer of %d units awaiting your acceptance",
			batch.BatchNumber, args.Quantity),
	})
	return err
}

func (p *Processor) applyTransferAccepted(ctx context.Context, tx store.Store, event *domain.Event) error {
	args := event.Transfer
	batch, err := tx.GetBatch(ctx, args.BatchID)
	if err != nil {
		return err
	}
	if batch == nil {
		return fmt.Errorf("acceptance of batch %d: %w", args.BatchID, domain.ErrBatchNotFound)
	}
	if batch.Status != domain.BatchStatusInTransit {
		return fmt.Errorf("acceptance of batch %d in status %s: %w",
			batch.BatchID, batch.Status, domain.ErrInvalidStatusTransition)
	}
	if args.Quantity > batch.Quantity {
		return fmt.Errorf("acceptance of %d units from batch %d holding %d: %w",
			args.Quantity, batch.BatchID, batch.Quantity, domain.ErrInsufficientQuantity)
	}

	recipient := domain.NormalizeAddress(args.To)
	if args.Quantity == batch.Quantity {
		// Full acceptance: the whole batch changes hands
		batch.Owner = recipient
		batch.Status = domain.StatusAfterAcceptance(args.RecipientRole)
	} else {
		// Partial acceptance: the accepted units continue as a derived batch
		// owned by the recipient, the remainder stays with the sender
		childID := derivedBatchID(event.TxHash, event.LogIndex)
		if err := tx.CreateBatch(ctx, &schema.Batch{
			BatchID:       childID,
			BatchNumber:   fmt.Sprintf("%s-part-%06x", batch.BatchNumber, childID&0xFFFFFF),
			Manufacturer:  batch.Manufacturer,
			Owner:         recipient,
			ParentBatchID: batch.BatchID,
			Quantity:      args.Quantity,
			Status:        domain.StatusAfterAcceptance(args.RecipientRole),
			ProductName:   batch.ProductName,
			Strength:      batch.Strength,
			Packaging:     batch.Packaging,
			ExpiryDate:    batch.ExpiryDate,
			IPFSHash:      batch.IPFSHash,
			TxHash:        event.TxHash,
			BlockNumber:   event.BlockNumber,
		}); err != nil {
			return err
		}
		batch.Quantity -= args.Quantity
		batch.Status = domain.BatchStatusCreated
	}

	batch.PendingRecipient = nil
	batch.PendingQuantity = nil
	if err := tx.SaveBatch(ctx, batch); err != nil {
		return err
	}

	_, err = tx.EnqueueAlert(ctx, &schema.AlertQueue{
		BatchID:   batch.BatchID,
		Recipient: domain.NormalizeAddress(args.From),
		AlertType: domain.AlertTypeTransferAccepted,
		Message: fmt.Sprintf("Batch %s: %d units accepted by %s",
			batch.BatchNumber, args.Quantity, recipient),
	})
	return err
}

func (p *Processor) applyStatusUpdate(ctx context.Context, tx store.Store, event *domain.Event) error {
	args := event.Status
	batch, err := tx.GetBatch(ctx, args.BatchID)
	if err != nil {
		return err
	}
	if batch == nil {
		return fmt.Errorf("status update of batch %d: %w", args.BatchID, domain.ErrBatchNotFound)
	}
	if batch.Status == args.NewStatus {
		return nil
	}
	if !domain.AllowedStatusTransition(batch.Status, args.NewStatus) {
		return fmt.Errorf("status update of batch %d from %s to %s: %w",
			batch.BatchID, batch.Status, args.NewStatus, domain.ErrInvalidStatusTransition)
	}

	batch.Status = args.NewStatus
	return tx.SaveBatch(ctx, batch)
}

func (p *Processor) applyMetadataAdded(ctx context.Context, tx store.Store, event *domain.Event) error {
	args := event.Metadata
	batch, err := tx.GetBatch(ctx, args.BatchID)
	if err != nil {
		return err
	}
	if batch == nil {
		return fmt.Errorf("metadata for batch %d: %w", args.BatchID, domain.ErrBatchNotFound)
	}

	// Append-only enrichment: empty incoming fields never blank stored ones
	if args.IPFSHash != "" {
		batch.IPFSHash = args.IPFSHash
	}
	if args.ProductName != "" {
		batch.ProductName = args.ProductName
	}
	if args.Strength != "" {
		batch.Strength = args.Strength
	}
	if args.Packaging != "" {
		batch.Packaging = args.Packaging
	}
	if args.ExpiryDate != "" {
		batch.ExpiryDate = args.ExpiryDate
	}
	return tx.SaveBatch(ctx, batch)
}

func (p *Processor) applyBatchRecalled(ctx context.Context, tx store.Store, event *domain.Event) error {
	args := event.Recall
	batch, err := tx.GetBatch(ctx, args.BatchID)
	if err != nil {
		return err
	}
	if batch == nil {
		return fmt.Errorf("recall of batch %d: %w", args.BatchID, domain.ErrBatchNotFound)
	}

	batch.Status = domain.BatchStatusRecalled
	return tx.SaveBatch(ctx, batch)
}

// derivedBatchID builds a stable synthetic id for a batch that exists only in
// the projection (partial acceptances have no ledger-assigned child id). The
// top bit keeps the synthetic range disjoint from ledger ids.
func derivedBatchID(txHash string, logIndex uint) uint64 {
	h := fnv.New64a()
	fmt.Fprintf(h, "%s:%d", txHash, logIndex)
	return h.Sum64() | (1 << 63)
}
