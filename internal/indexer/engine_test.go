package indexer_test

import (
	"context"
	"fmt"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/pharmatrace/pt-indexer/internal/adapter"
	"github.com/pharmatrace/pt-indexer/internal/domain"
	"github.com/pharmatrace/pt-indexer/internal/indexer"
	"github.com/pharmatrace/pt-indexer/internal/ledger"
	"github.com/pharmatrace/pt-indexer/internal/mocks"
	"github.com/pharmatrace/pt-indexer/internal/recall"
	"github.com/pharmatrace/pt-indexer/internal/store"
	"github.com/pharmatrace/pt-indexer/internal/store/schema"
	"github.com/pharmatrace/pt-indexer/internal/trace"
)

const testContractAddr = "0x5FbDB2315678afecb367f032d93F642f64180aa3"

// testEngineMocks contains the mocks needed for testing the engine
type testEngineMocks struct {
	ctrl   *gomock.Controller
	source *mocks.MockSource
	client *mocks.MockLedgerClient
	store  store.Store
	engine *indexer.Engine
}

func setupTestEngine(t *testing.T, startBlock uint64) *testEngineMocks {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, store.AutoMigrate(db))

	ctrl := gomock.NewController(t)
	tm := &testEngineMocks{
		ctrl:   ctrl,
		source: mocks.NewMockSource(ctrl),
		client: mocks.NewMockLedgerClient(ctrl),
		store:  store.NewPGStore(db),
	}

	jsonAdapter := adapter.NewJSON()
	cascade := recall.NewCascade(tm.store, trace.NewGraph(tm.store))
	processor := indexer.NewProcessor(tm.store, jsonAdapter, cascade)
	retrier := indexer.NewRetrier(processor, tm.store, jsonAdapter, indexer.RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
	})
	tm.engine = indexer.NewEngine(indexer.Config{
		ContractAddress: testContractAddr,
		ChainID:         11155111,
		StartBlock:      startBlock,
	}, tm.source, tm.client, tm.store, retrier)
	return tm
}

func TestEngineRun_FirstRunStartsAtDeploymentBlock(t *testing.T) {
	tm := setupTestEngine(t, 500)
	defer tm.ctrl.Finish()

	tm.source.EXPECT().
		Run(gomock.Any(), uint64(500), gomock.Any(), gomock.Any()).
		Return(nil)

	require.NoError(t, tm.engine.Run(context.Background()))

	state, err := tm.store.GetSyncState(context.Background())
	require.NoError(t, err)
	assert.Equal(t, testContractAddr, state.ContractAddress)
	assert.Equal(t, uint64(11155111), state.ChainID)
	assert.False(t, state.IsSyncing)
}

func TestEngineRun_ResumesPastCursor(t *testing.T) {
	tm := setupTestEngine(t, 500)
	defer tm.ctrl.Finish()
	ctx := context.Background()

	_, err := tm.store.GetSyncState(ctx)
	require.NoError(t, err)
	require.NoError(t, tm.store.AdvanceCursor(ctx, 750))

	tm.source.EXPECT().
		Run(gomock.Any(), uint64(751), gomock.Any(), gomock.Any()).
		Return(nil)

	require.NoError(t, tm.engine.Run(ctx))
}

func TestEngineRun_ClearsStaleSyncFlag(t *testing.T) {
	tm := setupTestEngine(t, 1)
	defer tm.ctrl.Finish()
	ctx := context.Background()

	// A crashed run leaves the advisory flag set
	_, err := tm.store.GetSyncState(ctx)
	require.NoError(t, err)
	entered, err := tm.store.TryEnterSync(ctx)
	require.NoError(t, err)
	require.True(t, entered)

	tm.source.EXPECT().
		Run(gomock.Any(), uint64(1), gomock.Any(), gomock.Any()).
		Return(nil)

	require.NoError(t, tm.engine.Run(ctx))
}

func TestEngineRun_AppliesBlocksAndCheckpoints(t *testing.T) {
	tm := setupTestEngine(t, 1)
	defer tm.ctrl.Finish()
	ctx := context.Background()

	tm.source.EXPECT().
		Run(gomock.Any(), uint64(1), gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, fromBlock uint64, handler ledger.BlockHandler, checkpoint ledger.CheckpointFunc) error {
			event := createdEvent(1, "BN-1", 100, "0xtx1")
			event.BlockNumber = 7
			if err := handler(ctx, ledger.BlockEvents{
				BlockNumber: 7,
				Events:      []domain.Event{*event},
			}); err != nil {
				return err
			}
			return checkpoint(ctx, 7)
		})

	require.NoError(t, tm.engine.Run(ctx))

	batch, err := tm.store.GetBatch(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, batch)

	state, err := tm.store.GetSyncState(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), state.LastProcessedBlock)
}

func recalledLog(t *testing.T, batchID uint64, reason string, index uint) types.Log {
	t.Helper()

	stringType, err := abi.NewType("string", "", nil)
	require.NoError(t, err)
	data, err := abi.Arguments{{Type: stringType}}.Pack(reason)
	require.NoError(t, err)

	return types.Log{
		Topics: []common.Hash{
			crypto.Keccak256Hash([]byte("BatchRecalled(uint256,string)")),
			common.BigToHash(new(big.Int).SetUint64(batchID)),
		},
		Data:        data,
		TxHash:      common.HexToHash("0xabc"),
		Index:       index,
		BlockNumber: 12,
	}
}

func TestProcessTransaction_MixedOutcome(t *testing.T) {
	tm := setupTestEngine(t, 1)
	defer tm.ctrl.Finish()
	ctx := context.Background()

	// Projection already holds the batch the recall refers to
	processor := indexer.NewProcessor(tm.store, adapter.NewJSON(),
		recall.NewCascade(tm.store, trace.NewGraph(tm.store)))
	require.NoError(t, processor.Apply(ctx, createdEvent(1, "BN-1", 100, "0xtx0")))

	undecodable := types.Log{
		Topics:      []common.Hash{crypto.Keccak256Hash([]byte("SomethingElse(uint256)"))},
		TxHash:      common.HexToHash("0xabc"),
		Index:       1,
		BlockNumber: 12,
	}
	tm.client.EXPECT().
		TransactionLogs(gomock.Any(), "0xabc").
		Return([]types.Log{recalledLog(t, 1, "contamination detected", 0), undecodable}, nil)

	outcome, err := tm.engine.ProcessTransaction(ctx, "0xabc")
	require.NoError(t, err)

	assert.Equal(t, "0xabc", outcome.TxHash)
	assert.Equal(t, 1, outcome.Processed)
	assert.Equal(t, 1, outcome.Failed)
	require.Len(t, outcome.Events, 2)
	assert.Equal(t, schema.EventLogStatusProcessed, outcome.Events[0].Status)
	assert.Equal(t, domain.EventBatchRecalled, outcome.Events[0].EventName)
	assert.Equal(t, schema.EventLogStatusFailed, outcome.Events[1].Status)

	batch, err := tm.store.GetBatch(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, domain.BatchStatusRecalled, batch.Status)
}

func TestProcessTransaction_NotFound(t *testing.T) {
	tm := setupTestEngine(t, 1)
	defer tm.ctrl.Finish()

	tm.client.EXPECT().
		TransactionLogs(gomock.Any(), "0xmissing").
		Return(nil, domain.ErrTxNotFound)

	_, err := tm.engine.ProcessTransaction(context.Background(), "0xmissing")
	assert.ErrorIs(t, err, domain.ErrTxNotFound)
}
