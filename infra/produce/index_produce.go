package produce

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	IndexExchange   = "index.exchange"
	IndexQueue      = "index.file"
	IndexRoutingKey = "index.file"

	// RetryCountHeader carries how many times a message has been re-queued.
	RetryCountHeader = "x-retry-count"
)

// IndexFileMessage is the payload for one content-indexing task.
type IndexFileMessage struct {
	FileID    string `json:"file_id"`
	Timestamp int64  `json:"timestamp"`
}

// IndexProduceService publishes indexing tasks to the durable index queue.
// The queue survives broker restarts and messages are persistent, so a task
// enqueued before a crash is still delivered afterwards.
type IndexProduceService struct {
	channel *amqp.Channel
}

func InitIndexProduceService(channel *amqp.Channel) *IndexProduceService {
	service := &IndexProduceService{
		channel: channel,
	}

	err := channel.ExchangeDeclare(
		IndexExchange,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		panic("Failed to declare Index exchange: " + err.Error())
	}

	_, err = channel.QueueDeclare(
		IndexQueue,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		panic("Failed to declare Index queue: " + err.Error())
	}

	err = channel.QueueBind(
		IndexQueue,
		IndexRoutingKey,
		IndexExchange,
		false,
		nil,
	)
	if err != nil {
		panic("Failed to bind Index queue: " + err.Error())
	}

	return service
}

// PublishIndexFile enqueues an indexing task for the given file record.
func (s *IndexProduceService) PublishIndexFile(ctx context.Context, fileID uuid.UUID) error {
	return s.publish(ctx, fileID, 0)
}

// PublishIndexRetry re-enqueues a task with its retry count bumped.
func (s *IndexProduceService) PublishIndexRetry(ctx context.Context, fileID uuid.UUID, retryCount int) error {
	return s.publish(ctx, fileID, retryCount)
}

func (s *IndexProduceService) publish(ctx context.Context, fileID uuid.UUID, retryCount int) error {
	msg := IndexFileMessage{
		FileID:    fileID.String(),
		Timestamp: time.Now().Unix(),
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	return s.channel.PublishWithContext(
		ctx,
		IndexExchange,
		IndexRoutingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Headers: amqp.Table{
				RetryCountHeader: int32(retryCount),
			},
		},
	)
}
