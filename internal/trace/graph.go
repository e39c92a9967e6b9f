package trace

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/pharmatrace/pt-indexer/internal/domain"
	"github.com/pharmatrace/pt-indexer/internal/logger"
	"github.com/pharmatrace/pt-indexer/internal/store"
	"github.com/pharmatrace/pt-indexer/internal/store/schema"
)

// Trace is the combined lineage view of one batch
type Trace struct {
	Batch *schema.Batch `json:"batch"`
	// Upstream is the ancestor chain ordered root first, queried batch last
	Upstream []*schema.Batch `json:"upstream"`
	// Downstream is the descendant set in breadth-first level order
	Downstream []*schema.Batch `json:"downstream"`
}

// Graph answers lineage queries over the batch forest. Both walks are bounded
// so malformed parent links degrade into an error instead of a hung query.
type Graph struct {
	store store.Store
}

// NewGraph creates a Graph over the projection store
func NewGraph(s store.Store) *Graph {
	return &Graph{store: s}
}

// UpstreamLineage returns the ancestor chain of a batch, ordered from the
// root down to the queried batch itself.
func (g *Graph) UpstreamLineage(ctx context.Context, batchID uint64) ([]*schema.Batch, error) {
	batch, err := g.store.GetBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if batch == nil {
		return nil, fmt.Errorf("batch %d: %w", batchID, domain.ErrBatchNotFound)
	}

	chain := []*schema.Batch{batch}
	visited := map[uint64]bool{batch.BatchID: true}

	current := batch
	for depth := 0; current.ParentBatchID != 0; depth++ {
		if depth >= domain.MAX_TRACE_DEPTH {
			return nil, fmt.Errorf("lineage of batch %d exceeds %d hops: %w",
				batchID, domain.MAX_TRACE_DEPTH, domain.ErrTraceDepthExceeded)
		}
		if visited[current.ParentBatchID] {
			return nil, fmt.Errorf("lineage of batch %d revisits batch %d: %w",
				batchID, current.ParentBatchID, domain.ErrTraceDepthExceeded)
		}

		parent, err := g.store.GetBatch(ctx, current.ParentBatchID)
		if err != nil {
			return nil, err
		}
		if parent == nil {
			// Dangling parent link: the chain ends here rather than failing
			// the whole query
			logger.WarnCtx(ctx, "Dangling parent link in lineage",
				zap.Uint64("batchID", current.BatchID),
				zap.Uint64("parentBatchID", current.ParentBatchID))
			break
		}

		visited[parent.BatchID] = true
		chain = append(chain, parent)
		current = parent
	}

	// Reverse to root-first order
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, nil
}

// DownstreamDistribution returns every descendant of a batch in breadth-first
// level order. The walk visits at most MAX_TRACE_NODES batches.
func (g *Graph) DownstreamDistribution(ctx context.Context, batchID uint64) ([]*schema.Batch, error) {
	batch, err := g.store.GetBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if batch == nil {
		return nil, fmt.Errorf("batch %d: %w", batchID, domain.ErrBatchNotFound)
	}

	var descendants []*schema.Batch
	visited := map[uint64]bool{batchID: true}
	frontier := []uint64{batchID}

	for len(frontier) > 0 {
		children, err := g.store.GetChildBatches(ctx, frontier)
		if err != nil {
			return nil, err
		}

		frontier = frontier[:0]
		for _, child := range children {
			if visited[child.BatchID] {
				continue
			}
			visited[child.BatchID] = true
			descendants = append(descendants, child)
			frontier = append(frontier, child.BatchID)

			if len(descendants) > domain.MAX_TRACE_NODES {
				return nil, fmt.Errorf("distribution of batch %d exceeds %d nodes: %w",
					batchID, domain.MAX_TRACE_NODES, domain.ErrTraceDepthExceeded)
			}
		}
	}

	return descendants, nil
}

// FullTrace returns the batch with its full upstream and downstream lineage
// in one read.
func (g *Graph) FullTrace(ctx context.Context, batchID uint64) (*Trace, error) {
	batch, err := g.store.GetBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if batch == nil {
		return nil, fmt.Errorf("batch %d: %w", batchID, domain.ErrBatchNotFound)
	}

	upstream, err := g.UpstreamLineage(ctx, batchID)
	if err != nil {
		return nil, err
	}
	// The queried batch belongs to the trace root, not the ancestor list
	upstream = upstream[:len(upstream)-1]

	downstream, err := g.DownstreamDistribution(ctx, batchID)
	if err != nil {
		return nil, err
	}

	return &Trace{Batch: batch, Upstream: upstream, Downstream: downstream}, nil
}

// Search resolves a query to candidate batches: an exact batch-number match
// wins and returns a single result, otherwise a fuzzy match over product
// name, manufacturer and batch number returns a capped recency-ordered list.
func (g *Graph) Search(ctx context.Context, query string) ([]*schema.Batch, error) {
	exact, err := g.store.GetBatchByNumber(ctx, query)
	if err != nil {
		return nil, err
	}
	if exact != nil {
		return []*schema.Batch{exact}, nil
	}
	return g.store.SearchBatches(ctx, query, domain.SEARCH_PAGE_SIZE)
}
