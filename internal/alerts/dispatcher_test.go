package alerts_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/pharmatrace/pt-indexer/internal/adapter"
	"github.com/pharmatrace/pt-indexer/internal/alerts"
	"github.com/pharmatrace/pt-indexer/internal/domain"
	"github.com/pharmatrace/pt-indexer/internal/logger"
	"github.com/pharmatrace/pt-indexer/internal/mocks"
	"github.com/pharmatrace/pt-indexer/internal/store"
	"github.com/pharmatrace/pt-indexer/internal/store/schema"
)

const pharmacyAddr = "0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359"

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

func setupTestDispatcher(t *testing.T, maxAttempts int, retryBase time.Duration) (*alerts.Dispatcher, store.Store, *mocks.MockPublisher) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, store.AutoMigrate(db))

	dataStore := store.NewPGStore(db)
	publisher := mocks.NewMockPublisher(gomock.NewController(t))

	// A single worker avoids write contention on the shared sqlite connection
	dispatcher := alerts.NewDispatcher(alerts.Config{
		WorkerPoolSize: 1,
		BatchSize:      10,
		DrainInterval:  5 * time.Millisecond,
		MaxAttempts:    maxAttempts,
		RetryBaseDelay: retryBase,
	}, dataStore, publisher, adapter.NewClock())

	return dispatcher, dataStore, publisher
}

func enqueueTestAlert(t *testing.T, s store.Store) {
	t.Helper()
	created, err := s.EnqueueAlert(context.Background(), &schema.AlertQueue{
		BatchID:   1,
		Recipient: pharmacyAddr,
		AlertType: domain.AlertTypeRecall,
		Message:   "RECALL: batch BN-1 (and derived batches) has been recalled. Reason: contamination detected",
	})
	require.NoError(t, err)
	require.True(t, created)
}

func runDispatcher(t *testing.T, dispatcher *alerts.Dispatcher) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- dispatcher.Start(ctx)
	}()

	t.Cleanup(func() {
		cancel()
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer stopCancel()
		require.NoError(t, dispatcher.Stop(stopCtx))
		require.NoError(t, <-done)
	})
}

func alertStatus(t *testing.T, s store.Store) (schema.AlertStatus, int, *string) {
	t.Helper()
	rows, err := s.GetAlertsByBatch(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	return rows[0].Status, rows[0].Attempts, rows[0].Error
}

func TestDispatcher_DeliversPendingAlert(t *testing.T) {
	dispatcher, s, publisher := setupTestDispatcher(t, 3, time.Millisecond)
	enqueueTestAlert(t, s)

	publisher.EXPECT().
		PublishAlert(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, msg *domain.AlertMessage) error {
			assert.Equal(t, uint64(1), msg.BatchID)
			assert.Equal(t, pharmacyAddr, msg.Recipient)
			assert.Equal(t, domain.AlertTypeRecall, msg.Type)
			return nil
		}).
		Times(1)

	runDispatcher(t, dispatcher)

	require.Eventually(t, func() bool {
		status, _, _ := alertStatus(t, s)
		return status == schema.AlertStatusSent
	}, 2*time.Second, 10*time.Millisecond)

	status, attempts, errMsg := alertStatus(t, s)
	assert.Equal(t, schema.AlertStatusSent, status)
	assert.Equal(t, 1, attempts)
	assert.Nil(t, errMsg)

	pending, err := s.GetPendingAlerts(context.Background(), time.Now(), 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestDispatcher_RetriesUntilBrokerRecovers(t *testing.T) {
	dispatcher, s, publisher := setupTestDispatcher(t, 5, time.Millisecond)
	enqueueTestAlert(t, s)

	gomock.InOrder(
		publisher.EXPECT().
			PublishAlert(gomock.Any(), gomock.Any()).
			Return(errors.New("nats: connection closed")),
		publisher.EXPECT().
			PublishAlert(gomock.Any(), gomock.Any()).
			Return(nil),
	)

	runDispatcher(t, dispatcher)

	require.Eventually(t, func() bool {
		status, _, _ := alertStatus(t, s)
		return status == schema.AlertStatusSent
	}, 2*time.Second, 10*time.Millisecond)

	_, attempts, _ := alertStatus(t, s)
	assert.Equal(t, 2, attempts)
}

func TestDispatcher_ExhaustedBudgetMarksFailed(t *testing.T) {
	dispatcher, s, publisher := setupTestDispatcher(t, 1, time.Millisecond)
	enqueueTestAlert(t, s)

	publisher.EXPECT().
		PublishAlert(gomock.Any(), gomock.Any()).
		Return(errors.New("nats: no responders available")).
		Times(1)

	runDispatcher(t, dispatcher)

	require.Eventually(t, func() bool {
		status, _, _ := alertStatus(t, s)
		return status == schema.AlertStatusFailed
	}, 2*time.Second, 10*time.Millisecond)

	status, attempts, errMsg := alertStatus(t, s)
	assert.Equal(t, schema.AlertStatusFailed, status)
	assert.Equal(t, 1, attempts)
	require.NotNil(t, errMsg)
	assert.Contains(t, *errMsg, "no responders")

	// A FAILED alert is never picked up again
	pending, err := s.GetPendingAlerts(context.Background(), time.Now(), 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestDispatcher_FailedDeliveryWaitsOutBackoffWindow(t *testing.T) {
	dispatcher, s, publisher := setupTestDispatcher(t, 3, time.Hour)
	enqueueTestAlert(t, s)

	// Times(1) rejects any redelivery inside the backoff window
	publisher.EXPECT().
		PublishAlert(gomock.Any(), gomock.Any()).
		Return(errors.New("nats: connection closed")).
		Times(1)

	runDispatcher(t, dispatcher)

	require.Eventually(t, func() bool {
		_, attempts, _ := alertStatus(t, s)
		return attempts == 1
	}, 2*time.Second, 10*time.Millisecond)

	// Let the drain loop come around a few more times
	time.Sleep(50 * time.Millisecond)

	status, attempts, _ := alertStatus(t, s)
	assert.Equal(t, schema.AlertStatusPending, status)
	assert.Equal(t, 1, attempts)

	rows, err := s.GetAlertsByBatch(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.NotNil(t, rows[0].NextAttemptAt)
	assert.WithinDuration(t, time.Now().Add(time.Hour), *rows[0].NextAttemptAt, time.Minute)

	pending, err := s.GetPendingAlerts(context.Background(), time.Now(), 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestDispatcher_StopWithoutStart(t *testing.T) {
	dispatcher, _, _ := setupTestDispatcher(t, 3, time.Millisecond)

	assert.NoError(t, dispatcher.Stop(context.Background()))
}
