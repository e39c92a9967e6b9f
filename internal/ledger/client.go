package ledger

import (
	"context"
	"fmt"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"github.com/pharmatrace/pt-indexer/internal/adapter"
	"github.com/pharmatrace/pt-indexer/internal/domain"
	"github.com/pharmatrace/pt-indexer/internal/logger"
)

// Client wraps the raw RPC connection with the log queries the indexer needs
//
//go:generate mockgen -source=client.go -destination=../mocks/ledger_client.go -package=mocks -mock_names=Client=MockLedgerClient
type Client interface {
	// FilterRange retrieves every log emitted by the tracked contract in
	// [fromBlock, toBlock], ordered by block number then log index. The range
	// is split into windows no wider than the node's query limit; a failure
	// in any window fails the whole call.
	FilterRange(ctx context.Context, fromBlock, toBlock uint64) ([]types.Log, error)

	// HeadBlock returns the latest block number known to the node
	HeadBlock(ctx context.Context) (uint64, error)

	// TransactionLogs retrieves the tracked contract's logs from one mined
	// transaction. Returns domain.ErrTxNotFound when the node has no receipt.
	TransactionLogs(ctx context.Context, txHash string) ([]types.Log, error)

	// Close closes the connection
	Close()
}

type ledgerClient struct {
	client    adapter.EthClient
	contract  common.Address
	chunkSize uint64
}

// NewClient creates a ledger Client scoped to one tracked contract
func NewClient(client adapter.EthClient, contractAddress string, chunkSize uint64) Client {
	if chunkSize == 0 || chunkSize > domain.MAX_BLOCK_RANGE {
		chunkSize = domain.MAX_BLOCK_RANGE
	}
	return &ledgerClient{
		client:    client,
		contract:  common.HexToAddress(contractAddress),
		chunkSize: chunkSize,
	}
}

func (c *ledgerClient) FilterRange(ctx context.Context, fromBlock, toBlock uint64) ([]types.Log, error) {
	if fromBlock > toBlock {
		return nil, nil
	}

	var allLogs []types.Log
	for currentFrom := fromBlock; currentFrom <= toBlock; {
		currentTo := currentFrom + c.chunkSize - 1
		if currentTo > toBlock {
			currentTo = toBlock
		}

		query := ethereum.FilterQuery{
			FromBlock: new(big.Int).SetUint64(currentFrom),
			ToBlock:   new(big.Int).SetUint64(currentTo),
			Addresses: []common.Address{c.contract},
		}

		logs, err := c.client.FilterLogs(ctx, query)
		if err != nil {
			return nil, fmt.Errorf("failed to get logs for range %d-%d: %w", currentFrom, currentTo, err)
		}

		logger.Debug("Fetched log window",
			zap.Uint64("fromBlock", currentFrom),
			zap.Uint64("toBlock", currentTo),
			zap.Int("logs", len(logs)))

		allLogs = append(allLogs, logs...)
		currentFrom = currentTo + 1
	}

	// Nodes return each window ordered already; sorting across windows keeps
	// the ledger-order guarantee even if a provider misbehaves.
	sort.SliceStable(allLogs, func(i, j int) bool {
		if allLogs[i].BlockNumber != allLogs[j].BlockNumber {
			return allLogs[i].BlockNumber < allLogs[j].BlockNumber
		}
		return allLogs[i].Index < allLogs[j].Index
	})

	return allLogs, nil
}

func (c *ledgerClient) HeadBlock(ctx context.Context) (uint64, error) {
	header, err := c.client.HeaderByNumber(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to get latest block: %w", err)
	}
	return header.Number.Uint64(), nil
}

func (c *ledgerClient) TransactionLogs(ctx context.Context, txHash string) ([]types.Log, error) {
	receipt, err := c.client.TransactionReceipt(ctx, common.HexToHash(txHash))
	if err != nil {
		if err == ethereum.NotFound {
			return nil, domain.ErrTxNotFound
		}
		return nil, fmt.Errorf("failed to get transaction receipt: %w", err)
	}

	logs := make([]types.Log, 0, len(receipt.Logs))
	for _, vLog := range receipt.Logs {
		if vLog == nil || vLog.Address != c.contract {
			continue
		}
		logs = append(logs, *vLog)
	}
	return logs, nil
}

func (c *ledgerClient) Close() {
	c.client.Close()
}
