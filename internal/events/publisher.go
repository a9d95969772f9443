package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/dkoun25/SportStoreProject/internal/order"
	"github.com/dkoun25/SportStoreProject/internal/sequence"
)

const (
	EventsExchange = "ecommerce.events"
	publishTimeout = 3 * time.Second
)

// channel is the part of *amqp.Channel the publisher uses.
type channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// RabbitPublisher emits enveloped events on the topic exchange.
type RabbitPublisher struct {
	mu       sync.Mutex
	ch       channel
	seq      *sequence.Partitioned
	producer string
	now      func() time.Time
}

type PublisherOptions struct {
	Producer string
}

func NewRabbitPublisher(conn *amqp.Connection, opts PublisherOptions) (*RabbitPublisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	p, err := newRabbitPublisher(ch, opts)
	if err != nil {
		_ = ch.Close()
		return nil, err
	}
	return p, nil
}

func newRabbitPublisher(ch channel, opts PublisherOptions) (*RabbitPublisher, error) {
	if err := declareEventsExchange(ch); err != nil {
		return nil, fmt.Errorf("declare events exchange: %w", err)
	}

	producer := opts.Producer
	if producer == "" {
		producer = defaultProducerIdentity
	}

	return &RabbitPublisher{
		ch:       ch,
		seq:      sequence.NewPartitioned(),
		producer: producer,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

func declareEventsExchange(ch channel) error {
	return ch.ExchangeDeclare(
		EventsExchange,
		"topic",
		true,
		false,
		false,
		false,
		nil,
	)
}

func (p *RabbitPublisher) Close() error {
	return p.ch.Close()
}

// PublishOrderPlaced is partitioned by session so consumers see a session's
// orders in sequence.
func (p *RabbitPublisher) PublishOrderPlaced(ctx context.Context, o *order.Order) error {
	partitionKey := o.SessionID
	seq := p.seq.NextSequence(partitionKey)

	env := newOrderPlacedEvent(MetadataFrom(ctx), partitionKey, seq, p.producer, newOrderPlacedPayload(o), p.now())
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal OrderPlaced envelope: %w", err)
	}

	return p.publishJSON(ctx, OrderPlacedRoutingKey, env.EventID, strconv.FormatInt(o.ID, 10), body)
}

func (p *RabbitPublisher) publishJSON(ctx context.Context, routingKey, messageID, orderID string, body []byte) error {
	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	p.mu.Lock()
	defer p.mu.Unlock()

	return p.ch.PublishWithContext(
		pubCtx,
		EventsExchange,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    messageID,
			Timestamp:    p.now(),
			Headers:      amqp.Table{"orderId": orderID},
			Body:         body,
		},
	)
}

// NopPublisher drops every event. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) PublishOrderPlaced(context.Context, *order.Order) error { return nil }

// Dial connects to the broker at url.
func Dial(url string) (*amqp.Connection, error) {
	conn, err := amqp.DialConfig(url, amqp.Config{
		Dial: amqp.DefaultDial(10 * time.Second),
	})
	if err != nil {
		return nil, fmt.Errorf("connect to RabbitMQ: %w", err)
	}
	return conn, nil
}
