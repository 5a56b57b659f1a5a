package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"helpdesk-rag/internal/model"
)

// InteractionPublisher enqueues interaction records on a durable queue so
// that answering a query never blocks on the log write. The persist worker
// drains the queue into MySQL.
type InteractionPublisher struct {
	conn      *amqp.Connection
	queueName string
}

func NewInteractionPublisher(conn *amqp.Connection, queueName string) *InteractionPublisher {
	return &InteractionPublisher{
		conn:      conn,
		queueName: queueName,
	}
}

// Log implements kb.InteractionLogger.
func (p *InteractionPublisher) Log(ctx context.Context, interaction model.Interaction) error {
	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("open rabbitmq channel failed: %w", err)
	}
	defer ch.Close()

	if _, err := ch.QueueDeclare(p.queueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue failed: %w", err)
	}

	payload, err := json.Marshal(interaction)
	if err != nil {
		return fmt.Errorf("marshal interaction payload failed: %w", err)
	}

	err = ch.PublishWithContext(ctx, "", p.queueName, false, false, amqp.Publishing{
		ContentType:  "application/json",
		Body:         payload,
		DeliveryMode: amqp.Persistent,
	})
	if err != nil {
		return fmt.Errorf("publish interaction failed: %w", err)
	}
	return nil
}
