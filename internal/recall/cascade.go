package recall

import (
	"context"
	"fmt"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/pharmatrace/pt-indexer/internal/domain"
	"github.com/pharmatrace/pt-indexer/internal/logger"
	"github.com/pharmatrace/pt-indexer/internal/store"
	"github.com/pharmatrace/pt-indexer/internal/store/schema"
	"github.com/pharmatrace/pt-indexer/internal/trace"
)

// Cascade fans a recall out to every distinct holder in the recalled batch's
// downstream distribution. Enqueuing is idempotent by (batch, recipient,
// type), so an interrupted cascade is safe to re-run.
type Cascade struct {
	store store.Store
	graph *trace.Graph
}

// NewCascade creates a Cascade over the projection store
func NewCascade(s store.Store, graph *trace.Graph) *Cascade {
	return &Cascade{store: s, graph: graph}
}

// Cascade enqueues one RECALL alert per distinct owner holding the batch or
// any of its descendants. The alerts all reference the recalled root batch,
// so a holder of several affected children receives a single notification.
func (c *Cascade) Cascade(ctx context.Context, batchID uint64, reason string) error {
	runID := ulid.Make().String()

	root, err := c.store.GetBatch(ctx, batchID)
	if err != nil {
		return err
	}
	if root == nil {
		return fmt.Errorf("recalled batch %d: %w", batchID, domain.ErrBatchNotFound)
	}

	descendants, err := c.graph.DownstreamDistribution(ctx, batchID)
	if err != nil {
		return err
	}

	owners := make([]string, 0, len(descendants)+1)
	seen := make(map[string]bool)
	for _, batch := range append([]*schema.Batch{root}, descendants...) {
		owner := domain.NormalizeAddress(batch.Owner)
		if owner == "" || seen[owner] {
			continue
		}
		seen[owner] = true
		owners = append(owners, owner)
	}

	message := fmt.Sprintf("RECALL: batch %s (and derived batches) has been recalled. Reason: %s",
		root.BatchNumber, reason)

	enqueued := 0
	for _, owner := range owners {
		created, err := c.store.EnqueueAlert(ctx, &schema.AlertQueue{
			BatchID:   batchID,
			Recipient: owner,
			AlertType: domain.AlertTypeRecall,
			Message:   message,
		})
		if err != nil {
			return fmt.Errorf("failed to enqueue recall alert for %s: %w", owner, err)
		}
		if created {
			enqueued++
		}
	}

	logger.InfoCtx(ctx, "Recall cascade complete",
		zap.String("runID", runID),
		zap.Uint64("batchID", batchID),
		zap.Int("holders", len(owners)),
		zap.Int("newAlerts", enqueued))
	return nil
}
