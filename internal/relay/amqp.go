// ABOUTME: AMQP relay publishing live-feed messages to a topic exchange
// ABOUTME: Declares the exchange on connect and stamps message/correlation IDs

package relay

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"

	"github.com/2389/wadash/internal/store"
)

// AMQPRelay publishes envelopes to a topic exchange.
type AMQPRelay struct {
	conn       *amqp091.Connection
	exchange   string
	routingKey string
	logger     *slog.Logger
}

// DialAMQP connects to url and declares a durable topic exchange.
func DialAMQP(url, exchange, routingKey string, logger *slog.Logger) (*AMQPRelay, error) {
	if logger == nil {
		logger = slog.Default()
	}
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dialing amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("opening channel: %w", err)
	}
	defer ch.Close()

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("declaring exchange %s: %w", exchange, err)
	}

	return &AMQPRelay{
		conn:       conn,
		exchange:   exchange,
		routingKey: routingKey,
		logger:     logger.With("component", "relay.amqp"),
	}, nil
}

func (r *AMQPRelay) Relay(ctx context.Context, msg *store.Message) error {
	body, err := encode(msg)
	if err != nil {
		return err
	}

	ch, err := r.conn.Channel()
	if err != nil {
		return fmt.Errorf("opening channel: %w", err)
	}
	defer ch.Close()

	err = ch.PublishWithContext(ctx, r.exchange, r.routingKey, false, false, publishing(msg, body))
	if err != nil {
		return fmt.Errorf("amqp publish %s: %w", r.exchange, err)
	}
	r.logger.Debug("relayed message", "message_id", msg.ID, "routing_key", r.routingKey)
	return nil
}

// publishing builds the AMQP message for an encoded envelope.
func publishing(msg *store.Message, body []byte) amqp091.Publishing {
	msgID := msg.ID
	if msgID == "" {
		msgID = uuid.NewString()
	}
	return amqp091.Publishing{
		ContentType:   "application/json",
		DeliveryMode:  amqp091.Persistent,
		MessageId:     msgID,
		CorrelationId: uuid.NewString(),
		Type:          EventNewMessage,
		Timestamp:     time.Now(),
		Body:          body,
	}
}

func (r *AMQPRelay) Close() error {
	return r.conn.Close()
}

var _ Relay = (*AMQPRelay)(nil)
