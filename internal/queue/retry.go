package queue

import (
	"context"
	"errors"

	"github.com/kitchenlens/relgraph/pkg/logger"

	"github.com/rabbitmq/amqp091-go"
)

const maxRetries = 10

func retryCount(headers amqp091.Table) int {
	switch v := headers["x-retries"].(type) {
	case int32:
		return int(v)
	case int64:
		return int(v)
	case int:
		return v
	}
	return 0
}

// HandleProcessingError routes a failed message. Unprocessable messages and
// messages that already used up their retries go to <queue>_dlq; everything
// else goes to <queue>_retry with an incremented x-retries header. The
// original delivery is acked once the copy is published, or requeued if
// publishing fails.
func HandleProcessingError(ctx context.Context, pub Publisher, msg amqp091.Delivery, queueName string, procErr error) {
	retries := retryCount(msg.Headers)

	if errors.Is(procErr, ErrUnprocessable) || retries >= maxRetries {
		dlqName := queueName + "_dlq"
		logger.Info("Sending message to DLQ", "dlq", dlqName, "retries", retries)
		headers := amqp091.Table{}
		for k, v := range msg.Headers {
			headers[k] = v
		}
		headers["x-error"] = procErr.Error()
		pubErr := pub.PublishWithContext(ctx,
			"",
			dlqName,
			false,
			false,
			amqp091.Publishing{
				ContentType:   msg.ContentType,
				CorrelationId: msg.CorrelationId,
				ReplyTo:       msg.ReplyTo,
				Body:          msg.Body,
				Headers:       headers,
			},
		)
		if pubErr != nil {
			logger.Error("Failed to publish to DLQ", "dlq", dlqName, "err", pubErr)
			_ = msg.Nack(false, true)
			return
		}
		_ = msg.Ack(false)
		return
	}

	retryName := queueName + "_retry"
	headers := amqp091.Table{}
	for k, v := range msg.Headers {
		headers[k] = v
	}
	headers["x-retries"] = int32(retries + 1)

	pubErr := pub.PublishWithContext(ctx,
		"",
		retryName,
		false,
		false,
		amqp091.Publishing{
			ContentType:   msg.ContentType,
			CorrelationId: msg.CorrelationId,
			ReplyTo:       msg.ReplyTo,
			Body:          msg.Body,
			Headers:       headers,
		},
	)
	if pubErr != nil {
		logger.Error("Failed to publish to retry queue", "retry_queue", retryName, "err", pubErr)
		_ = msg.Nack(false, true)
		return
	}
	_ = msg.Ack(false)
}
