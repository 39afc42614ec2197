package queue

import (
	"context"

	"github.com/conorbowles51/owl-n4j-sub001/internal/util"
	"github.com/conorbowles51/owl-n4j-sub001/pkg/logger"

	"github.com/rabbitmq/amqp091-go"
)

// Init connects to RabbitMQ, retrying a few times to ride out broker
// startup. Connection failure is fatal: a worker without its queue has
// nothing to do.
func Init(ctx context.Context, url string) *amqp091.Connection {
	conn, err := util.RetryWithContext(ctx, 5, func(ctx context.Context) (*amqp091.Connection, error) {
		return amqp091.Dial(url)
	})
	if err != nil {
		logger.Fatal("Failed to connect to RabbitMQ", "err", err)
	}
	return conn
}

// SetupQueues declares each queue together with its retry queue (messages
// bounce back to the main queue after a short TTL) and its dead-letter
// queue.
func SetupQueues(ch *amqp091.Channel, queueNames []string) error {
	for _, name := range queueNames {
		_, err := ch.QueueDeclare(
			name,
			true,  // durable
			false, // autoDelete
			false, // exclusive
			false, // noWait
			nil,   // args
		)
		if err != nil {
			return err
		}

		dlqName := name + "_dlq"
		_, err = ch.QueueDeclare(
			dlqName,
			true,
			false,
			false,
			false,
			nil,
		)
		if err != nil {
			return err
		}

		retryName := name + "_retry"
		_, err = ch.QueueDeclare(
			retryName,
			true,
			false,
			false,
			false,
			amqp091.Table{
				"x-message-ttl":             int32(10000),
				"x-dead-letter-exchange":    "",
				"x-dead-letter-routing-key": name,
			},
		)
		if err != nil {
			return err
		}
	}

	return nil
}
