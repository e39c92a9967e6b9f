package recall_test

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
	"github.com/pharmatrace/pt-indexer/internal/recall"
	"github.com/pharmatrace/pt-indexer/internal/store"
	"github.com/pharmatrace/pt-indexer/internal/store/schema"
	"github.com/pharmatrace/pt-indexer/internal/trace"
)

const (
	manufacturerAddr = "0xAb5801a7D398351b8bE11C439e05C5B3259aeC9B"
	distributorAddr  = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"
	pharmacyAddr     = "0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359"
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

func setupTestCascade(t *testing.T) (*recall.Cascade, store.Store) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, store.AutoMigrate(db))

	dataStore := store.NewPGStore(db)
	return recall.NewCascade(dataStore, trace.NewGraph(dataStore)), dataStore
}

func seedBatch(t *testing.T, s store.Store, batchID, parentID uint64, owner string) {
	t.Helper()
	require.NoError(t, s.CreateBatch(context.Background(), &schema.Batch{
		BatchID:       batchID,
		BatchNumber:   fmt.Sprintf("BN-%d", batchID),
		Manufacturer:  manufacturerAddr,
		Owner:         owner,
		ParentBatchID: parentID,
		Quantity:      10,
		Status:        domain.BatchStatusCreated,
	}))
}

func TestCascade_NotifiesDistinctHolders(t *testing.T) {
	cascade, s := setupTestCascade(t)
	ctx := context.Background()

	seedBatch(t, s, 1, 0, manufacturerAddr)
	seedBatch(t, s, 2, 1, distributorAddr)
	seedBatch(t, s, 3, 2, pharmacyAddr)
	// A second child held by a holder already notified
	seedBatch(t, s, 4, 1, distributorAddr)

	require.NoError(t, cascade.Cascade(ctx, 1, "contamination detected"))

	alerts, err := s.GetAlertsByBatch(ctx, 1)
	require.NoError(t, err)
	require.Len(t, alerts, 3)

	recipients := map[string]bool{}
	for _, alert := range alerts {
		assert.Equal(t, domain.AlertTypeRecall, alert.AlertType)
		assert.Equal(t, uint64(1), alert.BatchID)
		assert.Contains(t, alert.Message, "BN-1")
		assert.Contains(t, alert.Message, "contamination detected")
		recipients[alert.Recipient] = true
	}
	assert.True(t, recipients[manufacturerAddr])
	assert.True(t, recipients[distributorAddr])
	assert.True(t, recipients[pharmacyAddr])
}

func TestCascade_RerunIsIdempotent(t *testing.T) {
	cascade, s := setupTestCascade(t)
	ctx := context.Background()

	seedBatch(t, s, 1, 0, manufacturerAddr)
	seedBatch(t, s, 2, 1, distributorAddr)

	require.NoError(t, cascade.Cascade(ctx, 1, "contamination detected"))
	// An interrupted cascade is recovered by running it again
	require.NoError(t, cascade.Cascade(ctx, 1, "contamination detected"))

	alerts, err := s.GetAlertsByBatch(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, alerts, 2)
}

func TestCascade_LeafBatchNotifiesOwnerOnly(t *testing.T) {
	cascade, s := setupTestCascade(t)
	ctx := context.Background()

	seedBatch(t, s, 1, 0, manufacturerAddr)

	require.NoError(t, cascade.Cascade(ctx, 1, "labeling error"))

	alerts, err := s.GetAlertsByBatch(ctx, 1)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, manufacturerAddr, alerts[0].Recipient)
}

func TestCascade_UnknownBatch(t *testing.T) {
	cascade, _ := setupTestCascade(t)

	err := cascade.Cascade(context.Background(), 42, "contamination detected")
	assert.ErrorIs(t, err, domain.ErrBatchNotFound)
}
