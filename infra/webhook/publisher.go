// Package webhook posts relayed domain events to an HTTP endpoint,
// optionally authenticated with OAuth2 client credentials.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/auth"
	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/logger"
	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/infra/relay"
)

// Config describes the receiving endpoint.
type Config struct {
	URL       string            `json:"url"`
	Headers   map[string]string `json:"headers"`
	TimeoutMS int               `json:"timeout_ms"`
	Auth      *auth.Conf        `json:"auth"`
}

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	if c.TimeoutMS <= 0 {
		c.TimeoutMS = int(relay.DefaultTimeout / time.Millisecond)
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("webhook: url required")
	}
	if c.Auth != nil {
		return c.Auth.Validate()
	}
	return nil
}

// Publisher implements relay.Publisher over HTTP POST.
type Publisher struct {
	url     string
	headers map[string]string
	client  *http.Client
	creds   *auth.ClientCred
	log     logger.Logger
}

var _ relay.Publisher = (*Publisher)(nil)

func NewPublisher(cfg Config, log logger.Logger) (*Publisher, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log = logger.OrNop(log)
	p := &Publisher{
		url:     cfg.URL,
		headers: cfg.Headers,
		client:  &http.Client{Timeout: time.Duration(cfg.TimeoutMS) * time.Millisecond},
		log:     log,
	}
	if cfg.Auth != nil {
		p.creds = auth.NewClientCred(*cfg.Auth)
	}
	return p, nil
}

// Publish posts env as JSON. A 401 answer triggers one retry with a
// refreshed token; any other non-2xx status is an error.
func (p *Publisher) Publish(ctx context.Context, env relay.Envelope) error {
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}
	status, err := p.post(ctx, env, body)
	if err != nil {
		return err
	}
	if status == http.StatusUnauthorized && p.creds != nil {
		p.log.Warnf("webhook rejected token, refreshing")
		if _, err := p.creds.ForceRefresh(ctx); err != nil {
			return err
		}
		if status, err = p.post(ctx, env, body); err != nil {
			return err
		}
	}
	if status < 200 || status > 299 {
		return fmt.Errorf("webhook %s: status %d for %s", p.url, status, env.Name)
	}
	return nil
}

func (p *Publisher) post(ctx context.Context, env relay.Envelope, body []byte) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Event-Name", env.Name)
	req.Header.Set("X-Event-Id", env.ID)
	for k, v := range p.headers {
		req.Header.Set(k, v)
	}
	if p.creds != nil {
		if err := p.creds.SetAuthHeader(req); err != nil {
			return 0, err
		}
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("webhook post: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}

func (p *Publisher) Close() error {
	p.client.CloseIdleConnections()
	return nil
}
