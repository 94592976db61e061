package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/timetable-change-api/internal/models"
)

// EventPublisher fans outcome events out on a Redis pub/sub channel.
type EventPublisher struct {
	client  *redis.Client
	channel string
}

// NewEventPublisher constructs a publisher for channel.
func NewEventPublisher(client *redis.Client, channel string) *EventPublisher {
	return &EventPublisher{client: client, channel: channel}
}

// PublishOutcome sends one event. Subscribers that are offline miss it.
func (p *EventPublisher) PublishOutcome(ctx context.Context, event models.OutcomeEvent) error {
	if p.client == nil {
		return nil
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal outcome event %s: %w", event.RequestID, err)
	}
	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish outcome event %s: %w", event.RequestID, err)
	}
	return nil
}
