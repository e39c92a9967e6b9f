package trace_test

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/pharmatrace/pt-indexer/internal/domain"
	"github.com/pharmatrace/pt-indexer/internal/logger"
	"github.com/pharmatrace/pt-indexer/internal/store"
	"github.com/pharmatrace/pt-indexer/internal/store/schema"
	"github.com/pharmatrace/pt-indexer/internal/trace"
)

func TestMain(m *testing.M) {
	// Initialize logger for tests
	err := logger.Initialize(logger.Config{
		Debug: false,
	})
	if err != nil {
		panic(err)
	}

	code := m.Run()
	os.Exit(code)
}

func setupTestGraph(t *testing.T) (*trace.Graph, store.Store) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, store.AutoMigrate(db))

	dataStore := store.NewPGStore(db)
	return trace.NewGraph(dataStore), dataStore
}

func seedBatch(t *testing.T, s store.Store, batchID, parentID uint64, batchNumber, owner string) {
	t.Helper()
	require.NoError(t, s.CreateBatch(context.Background(), &schema.Batch{
		BatchID:       batchID,
		BatchNumber:   batchNumber,
		Manufacturer:  "0xAb5801a7D398351b8bE11C439e05C5B3259aeC9B",
		Owner:         owner,
		ParentBatchID: parentID,
		Quantity:      10,
		Status:        domain.BatchStatusCreated,
		ProductName:   "Amoxicillin 500mg",
	}))
}

// seedChain builds 1 <- 2 <- 3 with a sibling 4 under 2
func seedChain(t *testing.T, s store.Store) {
	seedBatch(t, s, 1, 0, "BN-1", "0xAb5801a7D398351b8bE11C439e05C5B3259aeC9B")
	seedBatch(t, s, 2, 1, "BN-1-A", "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed")
	seedBatch(t, s, 3, 2, "BN-1-A-1", "0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359")
	seedBatch(t, s, 4, 2, "BN-1-A-2", "0xdbF03B407c01E7cD3CBea99509d93f8DDDC8C6FB")
}

func TestUpstreamLineage_RootFirst(t *testing.T) {
	graph, s := setupTestGraph(t)
	seedChain(t, s)

	chain, err := graph.UpstreamLineage(context.Background(), 3)
	require.NoError(t, err)

	require.Len(t, chain, 3)
	assert.Equal(t, uint64(1), chain[0].BatchID)
	assert.Equal(t, uint64(2), chain[1].BatchID)
	assert.Equal(t, uint64(3), chain[2].BatchID)
}

func TestUpstreamLineage_RootBatch(t *testing.T) {
	graph, s := setupTestGraph(t)
	seedChain(t, s)

	chain, err := graph.UpstreamLineage(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, chain, 1)
	assert.Equal(t, uint64(1), chain[0].BatchID)
}

func TestUpstreamLineage_DanglingParentEndsChain(t *testing.T) {
	graph, s := setupTestGraph(t)
	// Parent 99 was never projected
	seedBatch(t, s, 5, 99, "BN-5", "0xAb5801a7D398351b8bE11C439e05C5B3259aeC9B")

	chain, err := graph.UpstreamLineage(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, chain, 1)
	assert.Equal(t, uint64(5), chain[0].BatchID)
}

func TestUpstreamLineage_CycleDetected(t *testing.T) {
	graph, s := setupTestGraph(t)
	seedBatch(t, s, 1, 2, "BN-1", "0xAb5801a7D398351b8bE11C439e05C5B3259aeC9B")
	seedBatch(t, s, 2, 1, "BN-2", "0xAb5801a7D398351b8bE11C439e05C5B3259aeC9B")

	_, err := graph.UpstreamLineage(context.Background(), 1)
	assert.ErrorIs(t, err, domain.ErrTraceDepthExceeded)
}

func TestUpstreamLineage_NotFound(t *testing.T) {
	graph, _ := setupTestGraph(t)

	_, err := graph.UpstreamLineage(context.Background(), 42)
	assert.ErrorIs(t, err, domain.ErrBatchNotFound)
}

func TestDownstreamDistribution_BreadthFirst(t *testing.T) {
	graph, s := setupTestGraph(t)
	seedChain(t, s)

	descendants, err := graph.DownstreamDistribution(context.Background(), 1)
	require.NoError(t, err)

	require.Len(t, descendants, 3)
	// Level order: the direct child first, then its children
	assert.Equal(t, uint64(2), descendants[0].BatchID)
	assert.Equal(t, uint64(3), descendants[1].BatchID)
	assert.Equal(t, uint64(4), descendants[2].BatchID)
}

func TestDownstreamDistribution_Leaf(t *testing.T) {
	graph, s := setupTestGraph(t)
	seedChain(t, s)

	descendants, err := graph.DownstreamDistribution(context.Background(), 3)
	require.NoError(t, err)
	assert.Empty(t, descendants)
}

func TestFullTrace_ExcludesSelfFromUpstream(t *testing.T) {
	graph, s := setupTestGraph(t)
	seedChain(t, s)

	result, err := graph.FullTrace(context.Background(), 2)
	require.NoError(t, err)

	assert.Equal(t, uint64(2), result.Batch.BatchID)
	require.Len(t, result.Upstream, 1)
	assert.Equal(t, uint64(1), result.Upstream[0].BatchID)
	require.Len(t, result.Downstream, 2)
}

func TestSearch_ExactBatchNumberWins(t *testing.T) {
	graph, s := setupTestGraph(t)
	seedChain(t, s)

	results, err := graph.Search(context.Background(), "BN-1-A")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, uint64(2), results[0].BatchID)
}

func TestSearch_FuzzyFallback(t *testing.T) {
	graph, s := setupTestGraph(t)
	seedChain(t, s)

	results, err := graph.Search(context.Background(), "amoxicillin")
	require.NoError(t, err)
	assert.Len(t, results, 4)
}
