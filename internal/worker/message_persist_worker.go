package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"linguachat/internal/model"
)

// SessionStore guarantees a session row for an incoming message.
type SessionStore interface {
	EnsureExists(sessionID, name string) error
}

// MessageStore persists one conversation turn.
type MessageStore interface {
	Create(msg *model.Message) error
}

// MessagePersistWorker drains the message queue into MySQL. Before writing
// a message it makes sure the session row exists, so a history row never
// references a missing session even when messages arrive for a session the
// HTTP path has not created yet.
type MessagePersistWorker struct {
	conn        *amqp.Connection
	messageRepo MessageStore
	sessionRepo SessionStore
	queueName   string

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewMessagePersistWorker(
	conn *amqp.Connection,
	messageRepo MessageStore,
	sessionRepo SessionStore,
	queueName string,
) *MessagePersistWorker {
	return &MessagePersistWorker{
		conn:        conn,
		messageRepo: messageRepo,
		sessionRepo: sessionRepo,
		queueName:   queueName,
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

	_, err = ch.QueueDeclare(
		w.queueName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("declare worker queue failed: %w", err)
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
				w.handleDelivery(d)
			}
		}
	}()

	return nil
}

func (w *MessagePersistWorker) handleDelivery(d amqp.Delivery) {
	var msg model.Message
	if err := json.Unmarshal(d.Body, &msg); err != nil {
		log.Printf("worker decode message failed: %v", err)
		_ = d.Nack(false, false)
		return
	}

	if err := w.sessionRepo.EnsureExists(msg.SessionID, "Untitled Chat"); err != nil {
		log.Printf("worker ensure session failed: %v", err)
		_ = d.Nack(false, true)
		return
	}

	if err := w.messageRepo.Create(&msg); err != nil {
		log.Printf("worker persist message failed: %v", err)
		_ = d.Nack(false, false)
		return
	}

	_ = d.Ack(false)
}

func (w *MessagePersistWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
