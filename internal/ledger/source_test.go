package ledger_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharmatrace/pt-indexer/internal/adapter"
	"github.com/pharmatrace/pt-indexer/internal/ledger"
	"github.com/pharmatrace/pt-indexer/internal/mocks"
)

// testSourceMocks contains the mocks needed for testing the source
type testSourceMocks struct {
	ctrl   *gomock.Controller
	client *mocks.MockLedgerClient
	clock  *mocks.MockClock
	source ledger.Source
}

func setupTestSource(t *testing.T, chunkSize uint64) *testSourceMocks {
	ctrl := gomock.NewController(t)

	tm := &testSourceMocks{
		ctrl:   ctrl,
		client: mocks.NewMockLedgerClient(ctrl),
		clock:  mocks.NewMockClock(ctrl),
	}
	tm.source = ledger.NewSource(tm.client, tm.clock, chunkSize, time.Second)
	return tm
}

func tearDownTestSource(mocks *testSourceMocks) {
	mocks.ctrl.Finish()
}

func collectBlocks(blocks *[]ledger.BlockEvents) ledger.BlockHandler {
	return func(ctx context.Context, block ledger.BlockEvents) error {
		*blocks = append(*blocks, block)
		return nil
	}
}

func collectCheckpoints(checkpoints *[]uint64) ledger.CheckpointFunc {
	return func(ctx context.Context, blockNumber uint64) error {
		*checkpoints = append(*checkpoints, blockNumber)
		return nil
	}
}

func TestScanRange_WindowChunking(t *testing.T) {
	tm := setupTestSource(t, 100)
	defer tearDownTestSource(tm)

	ctx := context.Background()
	tm.client.EXPECT().FilterRange(gomock.Any(), uint64(1), uint64(100)).Return(nil, nil)
	tm.client.EXPECT().FilterRange(gomock.Any(), uint64(101), uint64(200)).Return(nil, nil)
	tm.client.EXPECT().FilterRange(gomock.Any(), uint64(201), uint64(250)).Return(nil, nil)

	var blocks []ledger.BlockEvents
	var checkpoints []uint64
	err := tm.source.ScanRange(ctx, 1, 250, collectBlocks(&blocks), collectCheckpoints(&checkpoints))
	require.NoError(t, err)

	assert.Empty(t, blocks)
	// The cursor advances through empty windows too
	assert.Equal(t, []uint64{100, 200, 250}, checkpoints)
}

func TestScanRange_GroupsLogsPerBlock(t *testing.T) {
	tm := setupTestSource(t, 100)
	defer tearDownTestSource(tm)

	ctx := context.Background()

	logA := batchCreatedLog(t, 1, "BN-1", 100)
	logA.BlockNumber = 5
	logB := batchCreatedLog(t, 2, "BN-2", 200)
	logB.BlockNumber = 6
	logB.Index = 1

	// Reorged-out entries are dropped before decoding
	removed := batchCreatedLog(t, 3, "BN-3", 300)
	removed.BlockNumber = 6
	removed.Removed = true

	// A malformed payload surfaces as undecodable, not a scan error
	undecodable := logB
	undecodable.BlockNumber = 6
	undecodable.Index = 2
	undecodable.Data = []byte{0x01}

	tm.client.EXPECT().
		FilterRange(gomock.Any(), uint64(1), uint64(10)).
		Return([]types.Log{logA, removed, logB, undecodable}, nil)

	var blocks []ledger.BlockEvents
	var checkpoints []uint64
	err := tm.source.ScanRange(ctx, 1, 10, collectBlocks(&blocks), collectCheckpoints(&checkpoints))
	require.NoError(t, err)

	require.Len(t, blocks, 2)
	assert.Equal(t, uint64(5), blocks[0].BlockNumber)
	assert.Len(t, blocks[0].Events, 1)
	assert.Equal(t, uint64(6), blocks[1].BlockNumber)
	assert.Len(t, blocks[1].Events, 1)
	require.Len(t, blocks[1].Undecodable, 1)
	assert.Error(t, blocks[1].Undecodable[0].Err)

	assert.Equal(t, []uint64{10}, checkpoints)
}

func TestScanRange_WindowFailureAbortsScan(t *testing.T) {
	tm := setupTestSource(t, 100)
	defer tearDownTestSource(tm)

	ctx := context.Background()
	tm.client.EXPECT().FilterRange(gomock.Any(), uint64(1), uint64(100)).Return(nil, nil)
	tm.client.EXPECT().FilterRange(gomock.Any(), uint64(101), uint64(200)).
		Return(nil, errors.New("rpc timeout"))

	var blocks []ledger.BlockEvents
	var checkpoints []uint64
	err := tm.source.ScanRange(ctx, 1, 300, collectBlocks(&blocks), collectCheckpoints(&checkpoints))
	require.Error(t, err)

	// Nothing past the failed window was checkpointed
	assert.Equal(t, []uint64{100}, checkpoints)
}

func TestScanRange_HandlerFailureStopsBeforeCheckpoint(t *testing.T) {
	tm := setupTestSource(t, 100)
	defer tearDownTestSource(tm)

	ctx := context.Background()
	logA := batchCreatedLog(t, 1, "BN-1", 100)
	logA.BlockNumber = 5
	tm.client.EXPECT().
		FilterRange(gomock.Any(), uint64(1), uint64(10)).
		Return([]types.Log{logA}, nil)

	var checkpoints []uint64
	err := tm.source.ScanRange(ctx, 1, 10,
		func(ctx context.Context, block ledger.BlockEvents) error {
			return errors.New("projection store unavailable")
		},
		collectCheckpoints(&checkpoints))
	require.Error(t, err)
	assert.Empty(t, checkpoints)
}

func TestRun_CatchUpThenStop(t *testing.T) {
	tm := setupTestSource(t, 100)
	defer tearDownTestSource(tm)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tm.client.EXPECT().HeadBlock(gomock.Any()).Return(uint64(50), nil)
	tm.client.EXPECT().FilterRange(gomock.Any(), uint64(1), uint64(50)).Return(nil, nil)

	var never <-chan time.Time = make(chan time.Time)
	tm.clock.EXPECT().After(gomock.Any()).Return(never).AnyTimes()

	var checkpoints []uint64
	err := tm.source.Run(ctx, 1,
		collectBlocks(&[]ledger.BlockEvents{}),
		func(ctx context.Context, blockNumber uint64) error {
			checkpoints = append(checkpoints, blockNumber)
			// Simulate shutdown once the catch-up pass completes
			cancel()
			return nil
		})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []uint64{50}, checkpoints)
}

func TestNewSource_ClampsChunkSize(t *testing.T) {
	// An oversized chunk is clamped to the node query limit; exercised through
	// the window boundaries of a scan
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	client := mocks.NewMockLedgerClient(ctrl)
	source := ledger.NewSource(client, adapter.NewClock(), 5000, time.Second)

	client.EXPECT().FilterRange(gomock.Any(), uint64(1), uint64(1000)).Return(nil, nil)
	client.EXPECT().FilterRange(gomock.Any(), uint64(1001), uint64(1500)).Return(nil, nil)

	var checkpoints []uint64
	err := source.ScanRange(context.Background(), 1, 1500, func(ctx context.Context, block ledger.BlockEvents) error {
		return nil
	}, collectCheckpoints(&checkpoints))
	require.NoError(t, err)
	assert.Equal(t, []uint64{1000, 1500}, checkpoints)
}
