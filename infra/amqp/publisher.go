// Package amqp publishes relayed domain events to a RabbitMQ topic exchange.
// The routing key is the event name, so consumers bind on patterns such as
// "shipment_*" or "#".
package amqp

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	amqp091 "github.com/rabbitmq/amqp091-go"

	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/logger"
	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/monitoring"
	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/infra/relay"
)

// DefaultExchange is used when Config.Exchange is empty.
const DefaultExchange = "warehouse.events"

// Config holds the broker settings.
type Config struct {
	URL      string `json:"url"`
	Exchange string `json:"exchange"`
}

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	if c.Exchange == "" {
		c.Exchange = DefaultExchange
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("amqp: url required")
	}
	return nil
}

// Publisher implements relay.Publisher on a durable topic exchange.
type Publisher struct {
	mu       sync.Mutex
	conn     *amqp091.Connection
	channel  *amqp091.Channel
	exchange string
	log      logger.Logger
}

var _ relay.Publisher = (*Publisher)(nil)

// NewPublisher dials the broker and declares the exchange.
func NewPublisher(cfg Config, log logger.Logger) (*Publisher, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log = logger.OrNop(log)
	conn, err := amqp091.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to create channel: %w", err)
	}
	err = ch.ExchangeDeclare(
		cfg.Exchange, // name
		"topic",      // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", cfg.Exchange, err)
	}
	log.Infof("AMQP publisher ready on exchange %s", cfg.Exchange)
	return &Publisher{conn: conn, channel: ch, exchange: cfg.Exchange, log: log}, nil
}

// Publish sends the envelope as a persistent JSON message.
func (p *Publisher) Publish(ctx context.Context, env relay.Envelope) error {
	body, err := json.Marshal(env)
	if err != nil {
		return err
	}
	p.mu.Lock()
	err = p.channel.PublishWithContext(
		ctx,
		p.exchange, // exchange name
		env.Name,   // routing key
		false,      // mandatory
		false,      // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			MessageId:    env.ID,
			Type:         env.Name,
			Timestamp:    env.OccurredAt,
			Body:         body,
		},
	)
	p.mu.Unlock()
	if err != nil {
		monitoring.CaptureException(err, map[string]string{"module": "amqp", "event": env.Name})
		return fmt.Errorf("failed to publish %s: %w", env.Name, err)
	}
	p.log.Debugw("event published", map[string]any{"exchange": p.exchange, "routing_key": env.Name, "event_id": env.ID})
	return nil
}

// Close closes the channel and the connection.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.channel != nil {
		if err := p.channel.Close(); err != nil {
			return fmt.Errorf("error closing channel: %w", err)
		}
		p.channel = nil
	}
	if p.conn != nil {
		if err := p.conn.Close(); err != nil {
			return fmt.Errorf("error closing connection: %w", err)
		}
		p.conn = nil
	}
	return nil
}
