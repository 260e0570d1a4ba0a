package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/tnqbao/gau-asset-service/infra/produce"
	"github.com/tnqbao/gau-asset-service/service"
)

const purgeMaxRetries = 3

type consumeChannel interface {
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
}

type Purger interface {
	Purge(ctx context.Context, userID uuid.UUID) error
}

// UserPurgeConsumer runs principal purges queued by UserService.RequestDeletion.
type UserPurgeConsumer struct {
	channel consumeChannel
	purger  Purger
	logger  service.Logger
	sleep   func(time.Duration)
}

func NewUserPurgeConsumer(channel consumeChannel, purger Purger, logger service.Logger) *UserPurgeConsumer {
	return &UserPurgeConsumer{
		channel: channel,
		purger:  purger,
		logger:  logger,
		sleep:   time.Sleep,
	}
}

func (c *UserPurgeConsumer) Start(ctx context.Context) error {
	msgs, err := c.channel.Consume(
		produce.UserPurgeQueue,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to register user purge consumer: %w", err)
	}

	c.logger.InfoWithContextf(ctx, "[User Purge Consumer] Started listening on queue: %s", produce.UserPurgeQueue)

	go func() {
		for {
			select {
			case <-ctx.Done():
				c.logger.InfoWithContextf(ctx, "[User Purge Consumer] Shutting down...")
				return
			case msg, ok := <-msgs:
				if !ok {
					c.logger.WarningWithContextf(ctx, "[User Purge Consumer] Channel closed")
					return
				}
				c.handle(ctx, msg)
			}
		}
	}()

	return nil
}

func (c *UserPurgeConsumer) handle(ctx context.Context, msg amqp.Delivery) {
	var payload produce.UserPurgeMessage
	if err := json.Unmarshal(msg.Body, &payload); err != nil {
		c.logger.ErrorWithContextf(ctx, err, "[User Purge Consumer] Failed to unmarshal message: %v", err)
		_ = msg.Nack(false, false)
		return
	}

	userID, err := uuid.Parse(payload.UserID)
	if err != nil {
		c.logger.ErrorWithContextf(ctx, err, "[User Purge Consumer] Invalid user ID %q: %v", payload.UserID, err)
		_ = msg.Nack(false, false)
		return
	}

	for attempt := 1; attempt <= purgeMaxRetries; attempt++ {
		err = c.purger.Purge(ctx, userID)
		if err == nil {
			c.logger.InfoWithContextf(ctx, "[User Purge Consumer] Purged %s (requested by %s)", userID, payload.RequestedBy)
			_ = msg.Ack(false)
			return
		}

		c.logger.ErrorWithContextf(ctx, err, "[User Purge Consumer] Attempt %d/%d for %s failed: %v", attempt, purgeMaxRetries, userID, err)
		if attempt < purgeMaxRetries {
			c.sleep(time.Duration(attempt) * 2 * time.Second)
		}
	}

	c.logger.ErrorWithContextf(ctx, err, "[User Purge Consumer] Failed after %d attempts, requeueing %s", purgeMaxRetries, userID)
	_ = msg.Nack(false, true)
}
