package events

import (
	"context"

	awspkg "github.com/shivamdarekar/TrendsWave/pkg/aws"
	"github.com/shivamdarekar/TrendsWave/models"
)

// SNSPublisher publishes events to one topic with an event_type attribute
// subscribers can filter on.
type SNSPublisher struct {
	client   awspkg.SNSPublisher
	topicArn string
}

func NewSNSPublisher(client awspkg.SNSPublisher, topicArn string) *SNSPublisher {
	return &SNSPublisher{client: client, topicArn: topicArn}
}

func (p *SNSPublisher) Publish(ctx context.Context, event models.DomainEvent) error {
	data, err := encode(event)
	if err != nil {
		return err
	}
	return p.client.Publish(ctx, p.topicArn, data, map[string]string{"event_type": event.Type})
}

func (p *SNSPublisher) Close() error { return nil }
