package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"github.com/pharmatrace/pt-indexer/internal/adapter"
	"github.com/pharmatrace/pt-indexer/internal/domain"
	"github.com/pharmatrace/pt-indexer/internal/logger"
)

// FailedDecode pairs a raw log with the error that made it undecodable
type FailedDecode struct {
	Log types.Log
	Err error
}

// BlockEvents is everything the tracked contract emitted in one block, in
// log-index order
type BlockEvents struct {
	BlockNumber uint64
	Events      []domain.Event
	Undecodable []FailedDecode
}

// BlockHandler consumes one block's events. Returning an error aborts the scan
// before the block's checkpoint, so the block is redelivered on the next pass.
type BlockHandler func(ctx context.Context, block BlockEvents) error

// CheckpointFunc is invoked after every fully handled window with the last
// block of that window
type CheckpointFunc func(ctx context.Context, blockNumber uint64) error

// Source turns the raw contract log stream into ordered per-block event
// groups, in catch-up and live polling modes
//
//go:generate mockgen -source=source.go -destination=../mocks/ledger_source.go -package=mocks -mock_names=Source=MockSource
type Source interface {
	// Head returns the latest block number known to the node
	Head(ctx context.Context) (uint64, error)

	// ScanRange replays [fromBlock, toBlock] window by window, invoking the
	// handler once per block that has logs and the checkpoint after each
	// window. Any window failure aborts the whole scan.
	ScanRange(ctx context.Context, fromBlock, toBlock uint64, handle BlockHandler, checkpoint CheckpointFunc) error

	// Run scans from fromBlock to the current head, then polls for new blocks
	// until the context is cancelled
	Run(ctx context.Context, fromBlock uint64, handle BlockHandler, checkpoint CheckpointFunc) error
}

type ledgerSource struct {
	client       Client
	clock        adapter.Clock
	chunkSize    uint64
	pollInterval time.Duration
}

// NewSource creates a Source over one tracked contract
func NewSource(client Client, clock adapter.Clock, chunkSize uint64, pollInterval time.Duration) Source {
	if chunkSize == 0 || chunkSize > domain.MAX_BLOCK_RANGE {
		chunkSize = domain.MAX_BLOCK_RANGE
	}
	if pollInterval <= 0 {
		pollInterval = 15 * time.Second
	}
	return &ledgerSource{
		client:       client,
		clock:        clock,
		chunkSize:    chunkSize,
		pollInterval: pollInterval,
	}
}

func (s *ledgerSource) Head(ctx context.Context) (uint64, error) {
	return s.client.HeadBlock(ctx)
}

func (s *ledgerSource) ScanRange(ctx context.Context, fromBlock, toBlock uint64, handle BlockHandler, checkpoint CheckpointFunc) error {
	for currentFrom := fromBlock; currentFrom <= toBlock; {
		if err := ctx.Err(); err != nil {
			return err
		}

		currentTo := currentFrom + s.chunkSize - 1
		if currentTo > toBlock {
			currentTo = toBlock
		}

		logs, err := s.client.FilterRange(ctx, currentFrom, currentTo)
		if err != nil {
			return err
		}

		for _, block := range groupByBlock(logs) {
			if err := handle(ctx, block); err != nil {
				return fmt.Errorf("failed to handle block %d: %w", block.BlockNumber, err)
			}
		}

		if err := checkpoint(ctx, currentTo); err != nil {
			return fmt.Errorf("failed to checkpoint block %d: %w", currentTo, err)
		}

		currentFrom = currentTo + 1
	}
	return nil
}

func (s *ledgerSource) Run(ctx context.Context, fromBlock uint64, handle BlockHandler, checkpoint CheckpointFunc) error {
	next := fromBlock
	for {
		head, err := s.client.HeadBlock(ctx)
		if err != nil {
			return fmt.Errorf("failed to get head block: %w", err)
		}

		if head >= next {
			logger.InfoCtx(ctx, "Scanning block range",
				zap.Uint64("fromBlock", next),
				zap.Uint64("toBlock", head))
			if err := s.ScanRange(ctx, next, head, handle, checkpoint); err != nil {
				return err
			}
			next = head + 1
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.clock.After(s.pollInterval):
		}
	}
}

// groupByBlock splits an ordered log slice into per-block event groups,
// preserving log-index order inside each block
func groupByBlock(logs []types.Log) []BlockEvents {
	var blocks []BlockEvents
	for _, vLog := range logs {
		if vLog.Removed {
			continue
		}

		if len(blocks) == 0 || blocks[len(blocks)-1].BlockNumber != vLog.BlockNumber {
			blocks = append(blocks, BlockEvents{BlockNumber: vLog.BlockNumber})
		}
		block := &blocks[len(blocks)-1]

		event, err := DecodeLog(vLog)
		if err != nil {
			block.Undecodable = append(block.Undecodable, FailedDecode{Log: vLog, Err: err})
			continue
		}
		block.Events = append(block.Events, *event)
	}
	return blocks
}
