// Package worker drains the interaction queue into MySQL. The interaction
// log is append-only: records are written once here and never mutated.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"helpdesk-rag/internal/model"
)

// InteractionStore is where drained interactions land.
type InteractionStore interface {
	Create(ctx context.Context, interaction *model.Interaction) error
}

// HistoryInvalidator drops any cached history for the requester once the
// record is durable, so the next history read sees it.
type HistoryInvalidator interface {
	Invalidate(ctx context.Context, requester string) error
}

type InteractionPersistWorker struct {
	conn        *amqp.Connection
	store       InteractionStore
	invalidator HistoryInvalidator
	queueName   string

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewInteractionPersistWorker(
	conn *amqp.Connection,
	store InteractionStore,
	invalidator HistoryInvalidator,
	queueName string,
) *InteractionPersistWorker {
	return &InteractionPersistWorker{
		conn:        conn,
		store:       store,
		invalidator: invalidator,
		queueName:   queueName,
	}
}

func (w *InteractionPersistWorker) Start(ctx context.Context) error {
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
	if _, err := ch.QueueDeclare(w.queueName, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("declare worker queue failed: %w", err)
	}

	deliveries, err := ch.Consume(w.queueName, "", false, false, false, false, nil)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("consume queue failed: %w", err)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ch.Close()
		w.run(workerCtx, deliveries)
	}()
	return nil
}

func (w *InteractionPersistWorker) run(ctx context.Context, deliveries <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-deliveries:
			if !ok {
				return
			}
			w.handle(ctx, d)
		}
	}
}

func (w *InteractionPersistWorker) handle(ctx context.Context, d amqp.Delivery) {
	var interaction model.Interaction
	if err := json.Unmarshal(d.Body, &interaction); err != nil {
		log.Printf("worker: decode interaction failed: %v", err)
		_ = d.Nack(false, false)
		return
	}

	if err := w.store.Create(ctx, &interaction); err != nil {
		log.Printf("worker: persist interaction failed: %v", err)
		_ = d.Nack(false, false)
		return
	}

	if w.invalidator != nil {
		if err := w.invalidator.Invalidate(ctx, interaction.Requester); err != nil {
			log.Printf("worker: invalidate history cache failed: %v", err)
		}
	}
	_ = d.Ack(false)
}

func (w *InteractionPersistWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
