package plugins

import (
	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/config"
	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/factory"
	dispatchlog "github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/dispatch/logging"
	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/infra/amqp"
	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/infra/logger"
	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/infra/mqtt"
	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/infra/relay"
	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/infra/webhook"
)

func init() {
	_ = RegisterRelay("log", func(map[string]any) (relay.Publisher, error) {
		return relay.NewLogPublisher(logger.New("relay")), nil
	})
	_ = RegisterRelay("mqtt", func(conf map[string]any) (relay.Publisher, error) {
		var c mqtt.Config
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		c.SetDefaults()
		if err := c.Validate(); err != nil {
			return nil, err
		}
		return mqtt.NewPublisher(c, logger.New("mqtt"))
	})
	_ = RegisterRelay("amqp", func(conf map[string]any) (relay.Publisher, error) {
		var c amqp.Config
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		c.SetDefaults()
		if err := c.Validate(); err != nil {
			return nil, err
		}
		return amqp.NewPublisher(c, logger.New("amqp"))
	})
	_ = RegisterRelay("webhook", func(conf map[string]any) (relay.Publisher, error) {
		var c webhook.Config
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		c.SetDefaults()
		if err := c.Validate(); err != nil {
			return nil, err
		}
		return webhook.NewPublisher(c, logger.New("webhook"))
	})

	_ = RegisterLogStore(config.AuditJSONL, func(conf map[string]any) (dispatchlog.LogStore, error) {
		lc, err := decodeLogging(conf)
		if err != nil {
			return nil, err
		}
		return dispatchlog.NewJSONLStore(lc.Path)
	})
	_ = RegisterLogStore(config.AuditRotating, func(conf map[string]any) (dispatchlog.LogStore, error) {
		lc, err := decodeLogging(conf)
		if err != nil {
			return nil, err
		}
		return dispatchlog.NewRotatingJSONLStore(lc.Path, dispatchlog.Rotation{
			MaxSizeMB:  lc.MaxSizeMB,
			MaxBackups: lc.MaxBackups,
			MaxAgeDays: lc.MaxAgeDays,
			Compress:   lc.Compress,
		})
	})
	_ = RegisterLogStore(config.AuditSQLite, func(conf map[string]any) (dispatchlog.LogStore, error) {
		lc, err := decodeLogging(conf)
		if err != nil {
			return nil, err
		}
		return dispatchlog.NewSQLiteStore(lc.Path)
	})
}

func decodeLogging(conf map[string]any) (config.LoggingConfig, error) {
	var lc config.LoggingConfig
	if err := factory.Decode(conf, &lc); err != nil {
		return lc, err
	}
	lc.SetDefaults()
	return lc, lc.Validate()
}

// NewLogStore builds the audit store selected by cfg.
func NewLogStore(cfg config.LoggingConfig) (dispatchlog.LogStore, error) {
	return LogStores.Create(factory.ModuleConfig{Type: cfg.Backend, Conf: map[string]any{
		"backend":      cfg.Backend,
		"path":         cfg.Path,
		"max_size_mb":  cfg.MaxSizeMB,
		"max_backups":  cfg.MaxBackups,
		"max_age_days": cfg.MaxAgeDays,
		"compress":     cfg.Compress,
	}})
}
