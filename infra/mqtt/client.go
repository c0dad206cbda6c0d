// Package mqtt publishes relayed domain events to an MQTT broker using
// Eclipse Paho.
package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/logger"
	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/monitoring"
	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/infra/relay"
)

// pahoClient is the subset of paho.Client the publisher uses.
type pahoClient interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
}

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// Publisher implements relay.Publisher on an MQTT broker. Each event goes
// to <prefix>/<event name>.
type Publisher struct {
	cli    pahoClient
	cfg    Config
	log    logger.Logger
	sleeps func(ctx context.Context, d time.Duration) error
}

var _ relay.Publisher = (*Publisher)(nil)

// NewPublisher connects to the broker. cfg is defaulted and validated.
func NewPublisher(cfg Config, log logger.Logger) (*Publisher, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log = logger.OrNop(log)
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}
	opts.SetOnConnectHandler(func(paho.Client) {
		log.Infof("connected to %s as %s", cfg.Broker, cfg.ClientID)
	})
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		log.Warnf("connection to %s lost: %v", cfg.Broker, err)
	})
	cli := newMQTTClient(opts)
	if tok := cli.Connect(); tok.Wait() && tok.Error() != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", cfg.Broker, tok.Error())
	}
	return &Publisher{cli: cli, cfg: cfg, log: log, sleeps: sleepCtx}, nil
}

// NewClientOptions maps cfg onto paho options.
func NewClientOptions(cfg Config) (*paho.ClientOptions, error) {
	opts := paho.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(false)
	if cfg.usesPassword() {
		opts.SetUsername(cfg.Username).SetPassword(cfg.Password)
	}
	if cfg.UseTLS {
		tlsCfg, err := cfg.LoadTLSConfig()
		if err != nil {
			return nil, err
		}
		opts.SetTLSConfig(tlsCfg)
	}
	if cfg.LWTTopic != "" {
		opts.SetWill(cfg.LWTTopic, cfg.LWTPayload, cfg.LWTQoS, cfg.LWTRetain)
	}
	return opts, nil
}

// Topic returns the topic an event name is published on.
func (p *Publisher) Topic(name string) string {
	return p.cfg.TopicPrefix + "/" + name
}

// QoS returns the delivery level used for an event name.
func (p *Publisher) QoS(name string) byte {
	if q, ok := p.cfg.EventQoS[name]; ok {
		return q
	}
	return p.cfg.QoS
}

// Publish sends the envelope, retrying with exponential backoff. The last
// error is reported to the monitor.
func (p *Publisher) Publish(ctx context.Context, env relay.Envelope) error {
	payload, err := json.Marshal(env)
	if err != nil {
		return err
	}
	topic, qos := p.Topic(env.Name), p.QoS(env.Name)
	backoff := time.Duration(p.cfg.BackoffMS) * time.Millisecond

	var lastErr error
	for attempt := 0; attempt <= p.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := p.sleeps(ctx, backoff<<(attempt-1)); err != nil {
				lastErr = err
				break
			}
		}
		tok := p.cli.Publish(topic, qos, p.cfg.Retain, payload)
		tok.Wait()
		if lastErr = tok.Error(); lastErr == nil {
			p.log.Debugw("event published", map[string]any{"topic": topic, "event_id": env.ID, "qos": qos})
			return nil
		}
		p.log.Warnf("publish %s attempt %d: %v", topic, attempt+1, lastErr)
	}
	monitoring.CaptureException(lastErr, map[string]string{"module": "mqtt", "topic": topic, "event": env.Name})
	return fmt.Errorf("mqtt publish %s: %w", topic, lastErr)
}

// Close disconnects, giving in-flight messages 250ms.
func (p *Publisher) Close() error {
	if p.cli != nil && p.cli.IsConnected() {
		p.cli.Disconnect(250)
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
