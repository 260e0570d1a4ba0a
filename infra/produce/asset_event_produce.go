package produce

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	AssetEventExchange   = "asset.exchange"
	AssetEventQueue      = "asset.events"
	AssetEventBindingKey = "asset.#"
)

// AssetEventMessage carries the same envelope shape as outbound webhooks.
type AssetEventMessage struct {
	Event     string                 `json:"event"`
	Timestamp int64                  `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

type AssetEventService struct {
	channel publisher
}

func InitAssetEventService(channel *amqp.Channel) *AssetEventService {
	declareTopic(channel, AssetEventExchange, AssetEventQueue, AssetEventBindingKey)
	return &AssetEventService{channel: channel}
}

// Notify publishes a lifecycle event; the event name is the routing key.
func (s *AssetEventService) Notify(ctx context.Context, event string, data map[string]interface{}) error {
	body, err := json.Marshal(AssetEventMessage{
		Event:     event,
		Timestamp: time.Now().UnixMilli(),
		Data:      data,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal asset event: %w", err)
	}

	err = s.channel.PublishWithContext(
		ctx,
		AssetEventExchange,
		event,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish asset event %s: %w", event, err)
	}
	return nil
}
