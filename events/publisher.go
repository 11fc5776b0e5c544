package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/shivamdarekar/TrendsWave/models"
)

// Publisher sends domain events to a message bus.
type Publisher interface {
	Publish(ctx context.Context, event models.DomainEvent) error
	Close() error
}

func encode(event models.DomainEvent) ([]byte, error) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal event %s: %w", event.Type, err)
	}
	return data, nil
}

// PublishBestEffort publishes on a detached context and only logs failures.
// Events are a side channel; a failed publish never fails the request.
func PublishBestEffort(p Publisher, logger *zap.Logger, event models.DomainEvent) {
	if p == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.Publish(ctx, event); err != nil {
		logger.Warn("Failed to publish event",
			zap.String("type", event.Type),
			zap.String("order_id", event.OrderID),
			zap.Error(err),
		)
	}
}

// NoopPublisher drops every event.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, models.DomainEvent) error { return nil }
func (NoopPublisher) Close() error                                      { return nil }
