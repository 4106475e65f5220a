package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/tnqbao/gau-file-hub/config"
	"github.com/tnqbao/gau-file-hub/infra"
	"github.com/tnqbao/gau-file-hub/infra/produce"
	"github.com/tnqbao/gau-file-hub/service"
	"github.com/tnqbao/gau-file-hub/service/extract"
)

// IndexConsumer drains the index queue and runs keyword extraction for each
// uploaded file. Deliveries are acked manually: a transient failure is
// re-published with a bumped retry count, a permanent one marks the record
// FAILED and is acked so it never loops.
type IndexConsumer struct {
	channel    *amqp.Channel
	infra      *infra.Infra
	indexer    *service.Indexer
	maxRetries int
	workers    int
}

func NewIndexConsumer(channel *amqp.Channel, infraClient *infra.Infra, cfg *config.EnvConfig) *IndexConsumer {
	indexer := service.NewIndexer(
		infraClient.Postgres.DB,
		infraClient.Minio,
		extract.NewService(),
		infraClient.Logger,
		cfg.Index.MinWordLength,
		cfg.Index.MaxWordLength,
	)

	return &IndexConsumer{
		channel:    channel,
		infra:      infraClient,
		indexer:    indexer,
		maxRetries: cfg.Index.MaxRetries,
		workers:    cfg.Index.WorkerCount,
	}
}

// Start registers the consumer and spawns the worker goroutines. Prefetch
// matches the worker count so the broker never floods a slow consumer.
func (c *IndexConsumer) Start(ctx context.Context) error {
	if err := c.channel.Qos(c.workers, 0, false); err != nil {
		return fmt.Errorf("failed to set prefetch: %w", err)
	}

	msgs, err := c.channel.Consume(
		produce.IndexQueue,
		"",
		false, // manual ack
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to register index consumer: %w", err)
	}

	c.infra.Logger.InfoWithContextf(ctx, "[Index Consumer] Started %d workers on queue: %s", c.workers, produce.IndexQueue)

	for i := 0; i < c.workers; i++ {
		go func() {
			for {
				select {
				case <-ctx.Done():
					c.infra.Logger.InfoWithContextf(ctx, "[Index Consumer] Shutting down...")
					return
				case msg, ok := <-msgs:
					if !ok {
						c.infra.Logger.WarningWithContextf(ctx, "[Index Consumer] Channel closed")
						return
					}
					c.handleIndexTask(ctx, msg)
				}
			}
		}()
	}

	return nil
}

func (c *IndexConsumer) handleIndexTask(ctx context.Context, msg amqp.Delivery) {
	var payload produce.IndexFileMessage
	if err := json.Unmarshal(msg.Body, &payload); err != nil {
		c.infra.Logger.ErrorWithContextf(ctx, err, "[Index Consumer] Failed to unmarshal message: %v", err)
		_ = msg.Nack(false, false)
		return
	}

	fileID, err := uuid.Parse(payload.FileID)
	if err != nil {
		c.infra.Logger.ErrorWithContextf(ctx, err, "[Index Consumer] Invalid file id in message: %s", payload.FileID)
		_ = msg.Nack(false, false)
		return
	}

	keywords, err := c.indexer.IndexFile(ctx, fileID)
	if err == nil {
		c.infra.Logger.InfoWithContextf(ctx, "[Index Consumer] Indexed file %s with %d keywords", fileID, keywords)
		_ = msg.Ack(false)
		return
	}

	var retryable *service.RetryableTaskError
	if errors.As(err, &retryable) {
		c.retryOrFail(ctx, msg, fileID, err)
		return
	}

	// Extraction and permanent errors already left the record in a terminal
	// state; nothing is gained by re-running them.
	c.infra.Logger.ErrorWithContextf(ctx, err, "[Index Consumer] Indexing of file %s failed permanently", fileID)
	_ = msg.Ack(false)
}

func (c *IndexConsumer) retryOrFail(ctx context.Context, msg amqp.Delivery, fileID uuid.UUID, cause error) {
	retryCount := retryCountFromHeaders(msg.Headers)

	if retryCount >= c.maxRetries {
		c.infra.Logger.ErrorWithContextf(ctx, cause, "[Index Consumer] File %s exhausted %d retries, marking FAILED", fileID, c.maxRetries)
		if err := c.indexer.MarkFailed(fileID, cause.Error()); err != nil {
			c.infra.Logger.ErrorWithContextf(ctx, err, "[Index Consumer] Failed to mark file %s as FAILED", fileID)
		}
		_ = msg.Ack(false)
		return
	}

	c.infra.Logger.WarningWithContextf(ctx, "[Index Consumer] Retrying file %s (attempt %d/%d): %v", fileID, retryCount+1, c.maxRetries, cause)
	if err := c.infra.Produce.IndexService.PublishIndexRetry(ctx, fileID, retryCount+1); err != nil {
		c.infra.Logger.ErrorWithContextf(ctx, err, "[Index Consumer] Failed to re-publish file %s, requeueing delivery", fileID)
		_ = msg.Nack(false, true)
		return
	}
	_ = msg.Ack(false)
}

func retryCountFromHeaders(headers amqp.Table) int {
	raw, ok := headers[produce.RetryCountHeader]
	if !ok {
		return 0
	}
	switch v := raw.(type) {
	case int32:
		return int(v)
	case int64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}
