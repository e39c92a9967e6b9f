package messaging

import (
	"context"

	"github.com/pharmatrace/pt-indexer/internal/domain"
)

// Publisher defines the interface for handing alerts to the message broker
//
//go:generate mockgen -source=publisher.go -destination=../mocks/publisher.go -package=mocks -mock_names=Publisher=MockPublisher
type Publisher interface {
	// PublishAlert publishes one alert to the broker
	PublishAlert(ctx context.Context, alert *domain.AlertMessage) error
	// Close closes the connection
	Close()
}
