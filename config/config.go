package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/dispatch"
	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/inventory"
	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/metrics"
	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/reconcile"
	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/sla"
)

// EnvPrefix prefixes environment overrides. K_STORE__DSN sets store.dsn.
const EnvPrefix = "K_"

type Config struct {
	Store       StoreConfig      `json:"store"`
	Dispatch    dispatch.Config  `json:"dispatch"`
	Reservation inventory.Config `json:"reservation"`
	SLA         sla.Config       `json:"sla"`
	Reconcile   reconcile.Config `json:"reconcile"`
	Metrics     metrics.Config   `json:"metrics"`
	Events      EventsConfig     `json:"events"`
	Logging     LoggingConfig    `json:"logging"`
	API         APIConfig        `json:"api"`
	Sentry      SentryConfig     `json:"sentry"`
	LogLevel    string           `json:"log_level"`
}

// SetDefaults fills every section's unset fields.
func (c *Config) SetDefaults() {
	c.Store.SetDefaults()
	c.Dispatch.SetDefaults()
	c.Reservation.SetDefaults()
	c.SLA.SetDefaults()
	c.Metrics.SetDefaults()
	c.Events.SetDefaults()
	c.Logging.SetDefaults()
	c.API.SetDefaults()
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Validate checks every section.
func (c Config) Validate() error {
	validators := []struct {
		name string
		fn   func() error
	}{
		{"store", c.Store.Validate},
		{"dispatch", c.Dispatch.Validate},
		{"reservation", c.Reservation.Validate},
		{"events", c.Events.Validate},
		{"logging", c.Logging.Validate},
		{"sentry", c.Sentry.Validate},
	}
	for _, v := range validators {
		if err := v.fn(); err != nil {
			return fmt.Errorf("%s: %w", v.name, err)
		}
	}
	return nil
}

// Load reads an optional .env file, then the configuration file at path
// (YAML or JSON, skipped when path is empty), then K_ prefixed environment
// overrides. Defaults are applied before validation.
func Load(path string) (*Config, error) {
	// A missing .env is the normal case outside development.
	_ = godotenv.Load()

	k := koanf.New(".")
	if path != "" {
		ext := strings.ToLower(filepath.Ext(path))
		var parser koanf.Parser
		switch ext {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		default:
			return nil, fmt.Errorf("unsupported config format: %s", ext)
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, err
		}
	}
	if err := k.Load(env.Provider(EnvPrefix, "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
