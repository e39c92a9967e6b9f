package jetstream_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	natsjs "github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharmatrace/pt-indexer/internal/adapter"
	"github.com/pharmatrace/pt-indexer/internal/domain"
	"github.com/pharmatrace/pt-indexer/internal/logger"
	"github.com/pharmatrace/pt-indexer/internal/messaging"
	"github.com/pharmatrace/pt-indexer/internal/mocks"
	"github.com/pharmatrace/pt-indexer/internal/providers/jetstream"
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

// testPublisherMocks contains the mocks needed for testing the publisher
type testPublisherMocks struct {
	ctrl *gomock.Controller
	nc   *mocks.MockNatsConn
	js   *mocks.MockJetStream
}

func setupTestPublisher(t *testing.T) (*testPublisherMocks, messaging.Publisher) {
	ctrl := gomock.NewController(t)

	tm := &testPublisherMocks{
		ctrl: ctrl,
		nc:   mocks.NewMockNatsConn(ctrl),
		js:   mocks.NewMockJetStream(ctrl),
	}

	natsJS := mocks.NewMockNatsJetStream(ctrl)
	natsJS.EXPECT().
		Connect("nats://localhost:4222",
			gomock.Any(), gomock.Any(), gomock.Any(),
			gomock.Any(), gomock.Any(), gomock.Any()).
		Return(tm.nc, tm.js, nil)

	publisher, err := jetstream.NewPublisher(jetstream.Config{
		URL:            "nats://localhost:4222",
		StreamName:     "BATCH_ALERTS",
		MaxReconnects:  3,
		ReconnectWait:  time.Second,
		ConnectionName: "test-publisher",
	}, natsJS, adapter.NewJSON())
	require.NoError(t, err)

	return tm, publisher
}

func TestPublishAlert_SubjectAndPayload(t *testing.T) {
	tm, publisher := setupTestPublisher(t)
	defer tm.ctrl.Finish()

	alert := &domain.AlertMessage{
		AlertID:   9,
		BatchID:   42,
		Recipient: "0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359",
		Type:      domain.AlertTypeRecall,
		Message:   "RECALL: batch BN-42 (and derived batches) has been recalled. Reason: contamination detected",
	}

	tm.js.EXPECT().
		Publish(gomock.Any(), "alerts.recall.42", gomock.Any()).
		DoAndReturn(func(ctx context.Context, subject string, data []byte, opts ...natsjs.PublishOpt) (*natsjs.PubAck, error) {
			var decoded domain.AlertMessage
			require.NoError(t, json.Unmarshal(data, &decoded))
			assert.Equal(t, alert.AlertID, decoded.AlertID)
			assert.Equal(t, alert.Recipient, decoded.Recipient)
			assert.Equal(t, alert.Message, decoded.Message)
			return &natsjs.PubAck{Stream: "BATCH_ALERTS"}, nil
		})

	require.NoError(t, publisher.PublishAlert(context.Background(), alert))
}

func TestPublishAlert_BrokerError(t *testing.T) {
	tm, publisher := setupTestPublisher(t)
	defer tm.ctrl.Finish()

	tm.js.EXPECT().
		Publish(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, errors.New("nats: no responders available"))

	err := publisher.PublishAlert(context.Background(), &domain.AlertMessage{
		BatchID: 1,
		Type:    domain.AlertTypeTransferPending,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to publish alert")
}

func TestNewPublisher_ConnectError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	natsJS := mocks.NewMockNatsJetStream(ctrl)
	natsJS.EXPECT().
		Connect(gomock.Any(),
			gomock.Any(), gomock.Any(), gomock.Any(),
			gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, nil, errors.New("connection refused"))

	publisher, err := jetstream.NewPublisher(jetstream.Config{
		URL: "nats://unreachable:4222",
	}, natsJS, adapter.NewJSON())
	require.Error(t, err)
	assert.Nil(t, publisher)
}

func TestClose(t *testing.T) {
	tm, publisher := setupTestPublisher(t)
	defer tm.ctrl.Finish()

	tm.nc.EXPECT().Close()
	publisher.Close()
}
