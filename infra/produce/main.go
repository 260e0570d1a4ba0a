package produce

import (
	"context"

	amqp "github.com/rabbitmq/amqp091-go"
)

type publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

type Produce struct {
	AssetEventService *AssetEventService
	UserJobService    *UserJobService
}

var produceInstance *Produce

func InitProduce(channel *amqp.Channel) *Produce {
	if produceInstance != nil {
		return produceInstance
	}

	assetEventService := InitAssetEventService(channel)
	if assetEventService == nil {
		panic("Failed to initialize Asset event service")
	}

	userJobService := InitUserJobService(channel)
	if userJobService == nil {
		panic("Failed to initialize User job service")
	}

	produceInstance = &Produce{
		AssetEventService: assetEventService,
		UserJobService:    userJobService,
	}

	return produceInstance
}

func declareTopic(channel *amqp.Channel, exchange, queue, bindingKey string) {
	err := channel.ExchangeDeclare(
		exchange,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		panic("Failed to declare " + exchange + " exchange: " + err.Error())
	}

	_, err = channel.QueueDeclare(
		queue,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		panic("Failed to declare " + queue + " queue: " + err.Error())
	}

	err = channel.QueueBind(queue, bindingKey, exchange, false, nil)
	if err != nil {
		panic("Failed to bind " + queue + " queue: " + err.Error())
	}
}
