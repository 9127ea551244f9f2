package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"edskill-hub/internal/model"
	"edskill-hub/internal/platform/rabbitmq"
)

type MessageStore interface {
	WriteMessages(ctx context.Context, messages []model.Message) error
}

// HistoryInvalidator drops cached history once queued rows have landed.
type HistoryInvalidator interface {
	Invalidate(ctx context.Context, conversationID string) error
}

// MessagePersistWorker drains the persist queue into the message table. A
// batch that fails to decode or insert is dropped, never requeued.
type MessagePersistWorker struct {
	conn      *amqp.Connection
	store     MessageStore
	history   HistoryInvalidator
	queueName string
	logger    *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewMessagePersistWorker builds a consumer for queueName. history may be nil
// when no history cache is configured.
func NewMessagePersistWorker(conn *amqp.Connection, store MessageStore, history HistoryInvalidator, queueName string, logger *zap.Logger) *MessagePersistWorker {
	return &MessagePersistWorker{
		conn:      conn,
		store:     store,
		history:   history,
		queueName: queueName,
		logger:    logger,
	}
}

func (w *MessagePersistWorker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	ch, err := w.conn.Channel()
	if err != nil {
		cancel()
		return fmt.Errorf("open worker channel failed: %w", err)
	}

	deliveries, err := ch.Consume(
		w.queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("consume queue failed: %w", err)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ch.Close()

		for {
			select {
			case <-workerCtx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}
				if err := w.handle(workerCtx, d.Body); err != nil {
					w.logger.Error("persist message batch failed", zap.Error(err))
					_ = d.Nack(false, false)
					continue
				}
				_ = d.Ack(false)
			}
		}
	}()

	return nil
}

func (w *MessagePersistWorker) handle(ctx context.Context, body []byte) error {
	var batch rabbitmq.MessageBatch
	if err := json.Unmarshal(body, &batch); err != nil {
		return fmt.Errorf("decode message batch failed: %w", err)
	}
	if err := w.store.WriteMessages(ctx, batch.Messages); err != nil {
		return err
	}
	if w.history != nil && len(batch.Messages) > 0 {
		conversationID := batch.Messages[0].ConversationID
		if err := w.history.Invalidate(ctx, conversationID); err != nil {
			w.logger.Warn("invalidate history cache failed", zap.String("conversation_id", conversationID), zap.Error(err))
		}
	}
	w.logger.Debug("message batch persisted", zap.Int("count", len(batch.Messages)))
	return nil
}

func (w *MessagePersistWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
