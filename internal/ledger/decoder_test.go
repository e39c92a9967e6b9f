package ledger_test

import (
	"math/big"
	"os"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharmatrace/pt-indexer/internal/domain"
	"github.com/pharmatrace/pt-indexer/internal/ledger"
	"github.com/pharmatrace/pt-indexer/internal/logger"
)

const (
	testManufacturer = "0xAb5801a7D398351b8bE11C439e05C5B3259aeC9B"
	testRecipient    = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"
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

func mustType(t *testing.T, name string) abi.Type {
	t.Helper()
	typ, err := abi.NewType(name, "", nil)
	require.NoError(t, err)
	return typ
}

func packArgs(t *testing.T, args abi.Arguments, values ...interface{}) []byte {
	t.Helper()
	data, err := args.Pack(values...)
	require.NoError(t, err)
	return data
}

func addressTopic(addr string) common.Hash {
	return common.BytesToHash(common.HexToAddress(addr).Bytes())
}

func uintTopic(v uint64) common.Hash {
	return common.BigToHash(new(big.Int).SetUint64(v))
}

func batchCreatedLog(t *testing.T, batchID uint64, batchNumber string, quantity int64) types.Log {
	t.Helper()
	data := packArgs(t, abi.Arguments{
		{Type: mustType(t, "string")},
		{Type: mustType(t, "uint256")},
		{Type: mustType(t, "string")},
	}, batchNumber, big.NewInt(quantity), "QmManifest")

	return types.Log{
		Topics: []common.Hash{
			crypto.Keccak256Hash([]byte("BatchCreated(uint256,address,string,uint256,string)")),
			uintTopic(batchID),
			addressTopic(testManufacturer),
		},
		Data:        data,
		TxHash:      common.HexToHash("0x1"),
		Index:       0,
		BlockNumber: 10,
	}
}

func TestDecodeLog_BatchCreated(t *testing.T) {
	event, err := ledger.DecodeLog(batchCreatedLog(t, 1, "BN-1", 100))
	require.NoError(t, err)

	assert.Equal(t, domain.EventBatchCreated, event.Name)
	require.NotNil(t, event.Created)
	assert.Equal(t, uint64(1), event.Created.BatchID)
	assert.Equal(t, "BN-1", event.Created.BatchNumber)
	assert.Equal(t, testManufacturer, event.Created.Manufacturer)
	assert.Equal(t, int64(100), event.Created.Quantity)
	assert.Equal(t, "QmManifest", event.Created.IPFSHash)
	assert.Equal(t, uint64(10), event.BlockNumber)
}

func TestDecodeLog_BulkBatchCreated(t *testing.T) {
	data := packArgs(t, abi.Arguments{
		{Type: mustType(t, "uint256[]")},
		{Type: mustType(t, "string[]")},
		{Type: mustType(t, "uint256[]")},
		{Type: mustType(t, "string")},
	},
		[]*big.Int{big.NewInt(1), big.NewInt(2)},
		[]string{"BN-1", "BN-2"},
		[]*big.Int{big.NewInt(100), big.NewInt(200)},
		"QmManifest")

	event, err := ledger.DecodeLog(types.Log{
		Topics: []common.Hash{
			crypto.Keccak256Hash([]byte("BulkBatchCreated(address,uint256[],string[],uint256[],string)")),
			addressTopic(testManufacturer),
		},
		Data:   data,
		TxHash: common.HexToHash("0x1"),
	})
	require.NoError(t, err)

	assert.Equal(t, domain.EventBulkBatchCreated, event.Name)
	require.NotNil(t, event.BulkCreated)
	assert.Equal(t, []uint64{1, 2}, event.BulkCreated.BatchIDs)
	assert.Equal(t, []string{"BN-1", "BN-2"}, event.BulkCreated.BatchNumbers)
	assert.Equal(t, []int64{100, 200}, event.BulkCreated.Quantities)
}

func TestDecodeLog_BatchSplit(t *testing.T) {
	data := packArgs(t, abi.Arguments{
		{Type: mustType(t, "string")},
		{Type: mustType(t, "uint256")},
	}, "BN-1-A", big.NewInt(40))

	event, err := ledger.DecodeLog(types.Log{
		Topics: []common.Hash{
			crypto.Keccak256Hash([]byte("BatchSplit(uint256,uint256,address,string,uint256)")),
			uintTopic(1),
			uintTopic(2),
			addressTopic(testRecipient),
		},
		Data:   data,
		TxHash: common.HexToHash("0x1"),
	})
	require.NoError(t, err)

	assert.Equal(t, domain.EventBatchSplit, event.Name)
	require.NotNil(t, event.Split)
	assert.Equal(t, uint64(1), event.Split.ParentBatchID)
	assert.Equal(t, uint64(2), event.Split.ChildBatchID)
	assert.Equal(t, testRecipient, event.Split.Recipient)
	assert.Equal(t, "BN-1-A", event.Split.ChildBatchNumber)
	assert.Equal(t, int64(40), event.Split.Quantity)
}

func TestDecodeLog_TransferCarriesRole(t *testing.T) {
	data := packArgs(t, abi.Arguments{
		{Type: mustType(t, "uint256")},
		{Type: mustType(t, "uint8")},
	}, big.NewInt(100), uint8(domain.RolePharmacy))

	event, err := ledger.DecodeLog(types.Log{
		Topics: []common.Hash{
			crypto.Keccak256Hash([]byte("Transfer(uint256,address,address,uint256,uint8)")),
			uintTopic(1),
			addressTopic(testManufacturer),
			addressTopic(testRecipient),
		},
		Data:   data,
		TxHash: common.HexToHash("0x1"),
	})
	require.NoError(t, err)

	assert.Equal(t, domain.EventTransfer, event.Name)
	require.NotNil(t, event.Transfer)
	assert.Equal(t, domain.RolePharmacy, event.Transfer.RecipientRole)
	assert.Equal(t, testManufacturer, event.Transfer.From)
	assert.Equal(t, testRecipient, event.Transfer.To)
}

func TestDecodeLog_BatchTransferAlias(t *testing.T) {
	data := packArgs(t, abi.Arguments{
		{Type: mustType(t, "uint256")},
		{Type: mustType(t, "uint8")},
	}, big.NewInt(100), uint8(domain.RoleDistributor))

	event, err := ledger.DecodeLog(types.Log{
		Topics: []common.Hash{
			crypto.Keccak256Hash([]byte("BatchTransfer(uint256,address,address,uint256,uint8)")),
			uintTopic(1),
			addressTopic(testManufacturer),
			addressTopic(testRecipient),
		},
		Data:   data,
		TxHash: common.HexToHash("0x1"),
	})
	require.NoError(t, err)

	assert.Equal(t, domain.EventBatchTransfer, event.Name)
	require.NotNil(t, event.Transfer)
}

func TestDecodeLog_StatusUpdate_UnknownCode(t *testing.T) {
	data := packArgs(t, abi.Arguments{
		{Type: mustType(t, "uint8")},
	}, uint8(42))

	_, err := ledger.DecodeLog(types.Log{
		Topics: []common.Hash{
			crypto.Keccak256Hash([]byte("StatusUpdate(uint256,uint8)")),
			uintTopic(1),
		},
		Data:   data,
		TxHash: common.HexToHash("0x1"),
	})
	assert.ErrorContains(t, err, "unknown status code")
}

func TestDecodeLog_BatchRecalled(t *testing.T) {
	data := packArgs(t, abi.Arguments{
		{Type: mustType(t, "string")},
	}, "contamination detected")

	event, err := ledger.DecodeLog(types.Log{
		Topics: []common.Hash{
			crypto.Keccak256Hash([]byte("BatchRecalled(uint256,string)")),
			uintTopic(7),
		},
		Data:   data,
		TxHash: common.HexToHash("0x1"),
	})
	require.NoError(t, err)

	assert.Equal(t, domain.EventBatchRecalled, event.Name)
	require.NotNil(t, event.Recall)
	assert.Equal(t, uint64(7), event.Recall.BatchID)
	assert.Equal(t, "contamination detected", event.Recall.Reason)
}

func TestDecodeLog_UnknownSignature(t *testing.T) {
	_, err := ledger.DecodeLog(types.Log{
		Topics: []common.Hash{
			crypto.Keccak256Hash([]byte("SomethingElse(uint256)")),
			uintTopic(1),
		},
		TxHash: common.HexToHash("0x1"),
	})
	assert.ErrorIs(t, err, domain.ErrUnknownEvent)
}

func TestDecodeLog_MalformedPayload(t *testing.T) {
	_, err := ledger.DecodeLog(types.Log{
		Topics: []common.Hash{
			crypto.Keccak256Hash([]byte("BatchCreated(uint256,address,string,uint256,string)")),
			uintTopic(1),
			addressTopic(testManufacturer),
		},
		Data:   []byte{0x01, 0x02},
		TxHash: common.HexToHash("0x1"),
	})
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrUnknownEvent)
}

func TestDecodeLog_NoTopics(t *testing.T) {
	_, err := ledger.DecodeLog(types.Log{TxHash: common.HexToHash("0x1")})
	assert.ErrorIs(t, err, domain.ErrUnknownEvent)
}
