package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"github.com/feedbreak/feedbreak/internal/logger"
)

// Publisher emits domain events. Implementations must be safe for
// concurrent use.
type Publisher interface {
	PublishWatchRecorded(ctx context.Context, e *WatchRecordedEvent) error
	PublishCheckpointTriggered(ctx context.Context, e *CheckpointTriggeredEvent) error
	PublishResponseRecorded(ctx context.Context, e *ResponseRecordedEvent) error
	Close() error
}

type EventPublisher struct {
	conn         *amqp091.Connection
	channel      *amqp091.Channel
	exchangeName string
	enabled      bool
	log          *logger.Logger
}

// NewEventPublisher connects to RabbitMQ and declares the topic exchange.
// An empty URI returns a disabled publisher whose methods do nothing.
func NewEventPublisher(rabbitURI string, log *logger.Logger) (*EventPublisher, error) {
	if log == nil {
		log = logger.Nop()
	}
	log = log.With("component", "EventPublisher")

	if rabbitURI == "" {
		log.Warn("RabbitMQ URI is empty, event publishing is disabled")
		return &EventPublisher{enabled: false, log: log}, nil
	}

	conn, err := amqp091.Dial(rabbitURI)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}

	err = channel.ExchangeDeclare(
		ExchangeName, // name
		"topic",      // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	return &EventPublisher{
		conn:         conn,
		channel:      channel,
		exchangeName: ExchangeName,
		enabled:      true,
		log:          log,
	}, nil
}

// Enabled reports whether events are actually sent.
func (p *EventPublisher) Enabled() bool { return p.enabled }

func (p *EventPublisher) publishEvent(ctx context.Context, routingKey EventType, event any) error {
	if !p.enabled {
		p.log.Debug("event publishing is disabled, skipping event", "routing_key", routingKey)
		return nil
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = p.channel.PublishWithContext(
		pubCtx,
		p.exchangeName,     // exchange
		string(routingKey), // routing key
		false,              // mandatory
		false,              // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	p.log.Debug("published event", "routing_key", routingKey)
	return nil
}

func (p *EventPublisher) PublishWatchRecorded(ctx context.Context, e *WatchRecordedEvent) error {
	return p.publishEvent(ctx, EventTypeWatchRecorded, e)
}

func (p *EventPublisher) PublishCheckpointTriggered(ctx context.Context, e *CheckpointTriggeredEvent) error {
	return p.publishEvent(ctx, EventTypeCheckpointTriggered, e)
}

func (p *EventPublisher) PublishResponseRecorded(ctx context.Context, e *ResponseRecordedEvent) error {
	return p.publishEvent(ctx, EventTypeResponseRecorded, e)
}

func (p *EventPublisher) Close() error {
	if !p.enabled {
		return nil
	}
	if p.channel != nil {
		if err := p.channel.Close(); err != nil {
			return fmt.Errorf("failed to close channel: %w", err)
		}
	}
	if p.conn != nil {
		if err := p.conn.Close(); err != nil {
			return fmt.Errorf("failed to close connection: %w", err)
		}
	}
	return nil
}
