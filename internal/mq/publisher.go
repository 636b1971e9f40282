package mq

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Publisher handles message publishing to RabbitMQ
type Publisher struct {
	conn       *Connection
	channel    *amqp.Channel
	exchange   string
	routingKey string
	logger     *zap.Logger
}

// NewPublisher creates a new RabbitMQ publisher
func NewPublisher(conn *Connection, exchange, routingKey string, logger *zap.Logger) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("[RABBITMQ] failed to create channel: %w", err)
	}

	// Declare exchange
	err = ch.ExchangeDeclare(
		exchange,
		"topic",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("[RABBITMQ] failed to declare exchange: %w", err)
	}

	return &Publisher{
		conn:       conn,
		channel:    ch,
		exchange:   exchange,
		routingKey: routingKey,
		logger:     logger,
	}, nil
}

// ThermostatResult is the runtime sync outcome of one thermostat
type ThermostatResult struct {
	Thermostat   string `json:"thermostat"`
	State        string `json:"state"`
	LastRecorded string `json:"last_recorded,omitempty"`
	Points       int    `json:"points"`
}

// RunCompletedEvent represents the event published after a sync run
type RunCompletedEvent struct {
	RunID          string             `json:"run_id"`
	Status         string             `json:"status"`
	Error          string             `json:"error,omitempty"`
	StartedAt      string             `json:"started_at"`
	DurationMillis int64              `json:"duration_ms"`
	Thermostats    int                `json:"thermostats"`
	SnapshotPoints int                `json:"snapshot_points"`
	RuntimePoints  int                `json:"runtime_points"`
	Results        []ThermostatResult `json:"results"`
}

// EncodeEvent marshals an event into its message body
func EncodeEvent(event RunCompletedEvent) ([]byte, error) {
	body, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("[RABBITMQ] failed to marshal event: %w", err)
	}
	return body, nil
}

// PublishRunCompleted publishes a run completed event
func (p *Publisher) PublishRunCompleted(ctx context.Context, event RunCompletedEvent) error {
	body, err := EncodeEvent(event)
	if err != nil {
		return err
	}

	err = p.channel.PublishWithContext(
		ctx,
		p.exchange,
		p.routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			MessageId:    event.RunID,
		},
	)
	if err != nil {
		return fmt.Errorf("[RABBITMQ] failed to publish event: %w", err)
	}

	p.logger.Debug("published run completed event",
		zap.String("routing_key", p.routingKey),
		zap.String("run_id", event.RunID),
		zap.String("status", event.Status),
	)

	return nil
}

// Close closes the publisher channel
func (p *Publisher) Close() error {
	if p.channel != nil {
		return p.channel.Close()
	}
	return nil
}
