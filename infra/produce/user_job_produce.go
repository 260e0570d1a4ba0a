package produce

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	UserJobExchange     = "user.exchange"
	UserPurgeQueue      = "user.purge"
	UserPurgeRoutingKey = "user.purge"
)

type UserPurgeMessage struct {
	UserID      string `json:"user_id"`
	RequestedBy string `json:"requested_by"`
	Timestamp   int64  `json:"timestamp"`
}

type UserJobService struct {
	channel publisher
}

func InitUserJobService(channel *amqp.Channel) *UserJobService {
	declareTopic(channel, UserJobExchange, UserPurgeQueue, UserPurgeRoutingKey)
	return &UserJobService{channel: channel}
}

func (s *UserJobService) PublishUserPurge(ctx context.Context, userID, requestedBy string) error {
	body, err := json.Marshal(UserPurgeMessage{
		UserID:      userID,
		RequestedBy: requestedBy,
		Timestamp:   time.Now().Unix(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal purge message: %w", err)
	}

	err = s.channel.PublishWithContext(
		ctx,
		UserJobExchange,
		UserPurgeRoutingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish purge message: %w", err)
	}
	return nil
}
