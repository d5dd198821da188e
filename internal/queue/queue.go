package queue

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/kitchenlens/relgraph/internal/util"
	"github.com/kitchenlens/relgraph/pkg/logger"

	"github.com/rabbitmq/amqp091-go"
)

const TopicExchange = "pubsub_exchange"

// Publisher is the publishing side of an AMQP channel. *amqp091.Channel
// satisfies it.
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
}

// ConnURL builds the broker URL from the RABBITMQ_* environment variables.
func ConnURL() string {
	u := url.URL{
		Scheme: "amqp",
		User:   url.UserPassword(util.GetEnv("RABBITMQ_USER"), util.GetEnv("RABBITMQ_PASSWORD")),
		Host:   util.GetEnvString("RABBITMQ_HOST", "localhost") + ":" + util.GetEnvString("RABBITMQ_PORT", "5672"),
		Path:   "/",
	}
	return u.String()
}

func Init() *amqp091.Connection {
	conn, err := amqp091.Dial(ConnURL())
	if err != nil {
		logger.Fatal("Failed to connect to RabbitMQ", "err", err)
	}

	return conn
}

// SetupQueues declares the topic exchange and, for every name, a durable
// work queue with its _dlq and _retry companions. Messages in _retry are
// dead-lettered back to the work queue after 10 seconds.
func SetupQueues(ch *amqp091.Channel, queueNames []string) error {
	err := ch.ExchangeDeclare(
		TopicExchange,
		"topic",
		false, // durable
		true,  // autoDelete
		false, // internal
		false, // noWait
		nil,
	)
	if err != nil {
		return fmt.Errorf("exchange declare failed: %w", err)
	}

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
			return fmt.Errorf("queue declare %s failed: %w", name, err)
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
			return fmt.Errorf("queue declare %s failed: %w", dlqName, err)
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
			return fmt.Errorf("queue declare %s failed: %w", retryName, err)
		}
	}

	return nil
}

// PublishFIFO publishes a persistent JSON message to a work queue. The queue
// must have been declared with SetupQueues.
func PublishFIFO(ctx context.Context, pub Publisher, queueName string, data []byte) error {
	publishing := amqp091.Publishing{
		ContentType:  "application/json",
		Body:         data,
		DeliveryMode: amqp091.Persistent,
		Timestamp:    time.Now(),
	}

	return pub.PublishWithContext(ctx, "", queueName, false, false, publishing)
}

// PublishTopic publishes an event to the topic exchange.
func PublishTopic(ctx context.Context, pub Publisher, topic string, data []byte) error {
	publishing := amqp091.Publishing{
		ContentType:  "application/json",
		Body:         data,
		DeliveryMode: amqp091.Persistent,
		Timestamp:    time.Now(),
	}

	return pub.PublishWithContext(ctx, TopicExchange, topic, false, false, publishing)
}

// Reply answers a request/reply style message on its ReplyTo queue.
func Reply(ctx context.Context, pub Publisher, msg amqp091.Delivery, data []byte) error {
	if msg.ReplyTo == "" {
		return nil
	}
	publishing := amqp091.Publishing{
		ContentType:   "application/json",
		CorrelationId: msg.CorrelationId,
		Body:          data,
		Timestamp:     time.Now(),
	}
	return pub.PublishWithContext(ctx, "", msg.ReplyTo, false, false, publishing)
}
