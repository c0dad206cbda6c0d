package mqtt

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"strings"
)

// DefaultTopicPrefix is used when Config.TopicPrefix is empty.
const DefaultTopicPrefix = "warehouse/events"

// Authentication modes.
const (
	AuthPassword    = "username_password"
	AuthCertificate = "certificate"
	AuthBoth        = "both"
)

// Config describes the broker connection and publish options.
type Config struct {
	Broker      string `json:"broker"`
	ClientID    string `json:"client_id"`
	TopicPrefix string `json:"topic_prefix"`
	QoS         byte   `json:"qos"`
	Retain      bool   `json:"retain"`
	// EventQoS overrides QoS for individual event names, for example
	// sla_escalated: 2.
	EventQoS map[string]byte `json:"event_qos"`

	AuthMethod string `json:"auth_method"`
	Username   string `json:"username"`
	Password   string `json:"password"`

	UseTLS     bool   `json:"use_tls"`
	CABundle   string `json:"ca_bundle"`
	ClientCert string `json:"client_cert"`
	ClientKey  string `json:"client_key"`
	// TLSConfig takes precedence over the file settings. Tests only.
	TLSConfig *tls.Config `json:"-"`

	// Last will, published by the broker when the relay drops off.
	LWTTopic   string `json:"lwt_topic"`
	LWTPayload string `json:"lwt_payload"`
	LWTQoS     byte   `json:"lwt_qos"`
	LWTRetain  bool   `json:"lwt_retain"`

	MaxRetries int `json:"max_retries"`
	BackoffMS  int `json:"backoff_ms"`
}

func (c *Config) SetDefaults() {
	c.TopicPrefix = strings.Trim(c.TopicPrefix, "/")
	if c.TopicPrefix == "" {
		c.TopicPrefix = DefaultTopicPrefix
	}
	if c.ClientID == "" {
		c.ClientID = "warehouse-dispatch"
	}
	if c.AuthMethod == "" {
		c.AuthMethod = AuthPassword
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.BackoffMS <= 0 {
		c.BackoffMS = 100
	}
}

func (c Config) Validate() error {
	if c.Broker == "" {
		return errors.New("mqtt: broker required")
	}
	if c.QoS > 2 || c.LWTQoS > 2 {
		return errors.New("mqtt: qos must be 0, 1 or 2")
	}
	for name, q := range c.EventQoS {
		if q > 2 {
			return fmt.Errorf("mqtt: qos for %s must be 0, 1 or 2", name)
		}
	}
	switch c.AuthMethod {
	case "", AuthPassword:
	case AuthCertificate, AuthBoth:
		if !c.UseTLS {
			return fmt.Errorf("mqtt: auth_method %s requires use_tls", c.AuthMethod)
		}
		if c.TLSConfig == nil && (c.ClientCert == "" || c.ClientKey == "") {
			return fmt.Errorf("mqtt: auth_method %s requires client_cert and client_key", c.AuthMethod)
		}
	default:
		return fmt.Errorf("mqtt: unknown auth_method %s", c.AuthMethod)
	}
	if (c.ClientCert == "") != (c.ClientKey == "") {
		return errors.New("mqtt: client_cert and client_key go together")
	}
	return nil
}

// usesPassword reports whether credentials are sent in CONNECT.
func (c Config) usesPassword() bool {
	return c.AuthMethod == "" || c.AuthMethod == AuthPassword || c.AuthMethod == AuthBoth
}

// LoadTLSConfig builds the client TLS settings. Without ca_bundle the system
// roots verify the broker; the client certificate is optional.
func (c Config) LoadTLSConfig() (*tls.Config, error) {
	if c.TLSConfig != nil {
		return c.TLSConfig, nil
	}
	cfg := &tls.Config{MinVersion: tls.VersionTLS12}
	if c.CABundle != "" {
		pem, err := os.ReadFile(c.CABundle)
		if err != nil {
			return nil, fmt.Errorf("read ca bundle: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("ca bundle %s holds no certificates", c.CABundle)
		}
		cfg.RootCAs = pool
	}
	if c.ClientCert != "" {
		cert, err := tls.LoadX509KeyPair(c.ClientCert, c.ClientKey)
		if err != nil {
			return nil, fmt.Errorf("load client certificate: %w", err)
		}
		cfg.Certificates = []tls.Certificate{cert}
	}
	return cfg, nil
}
