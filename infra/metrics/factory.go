package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/factory"
	coremetrics "github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/metrics"
	corekpi "github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/metrics/kpi"
	infrakpi "github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/infra/kpi"
)

// KPIConfig configures the kpi sink. Without Path the daily records live
// in memory and are lost on restart.
type KPIConfig struct {
	Path string `json:"path"`
}

// OpenStore returns the store described by c.
func (c KPIConfig) OpenStore() (corekpi.Store, error) {
	if c.Path == "" {
		return corekpi.NewMemoryStore(), nil
	}
	return infrakpi.NewSQLiteStore(c.Path)
}

func init() {
	builtin := map[string]factory.Factory[coremetrics.MetricsSink]{
		"nop": func(map[string]any) (coremetrics.MetricsSink, error) {
			return coremetrics.NopSink{}, nil
		},
		"prometheus": func(map[string]any) (coremetrics.MetricsSink, error) {
			return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
		},
		"influx": func(conf map[string]any) (coremetrics.MetricsSink, error) {
			var c InfluxConfig
			if err := factory.Decode(conf, &c); err != nil {
				return nil, err
			}
			if err := c.Validate(); err != nil {
				return nil, err
			}
			return NewInfluxSinkWithFallback(c), nil
		},
		"kpi": func(conf map[string]any) (coremetrics.MetricsSink, error) {
			var c KPIConfig
			if err := factory.Decode(conf, &c); err != nil {
				return nil, err
			}
			store, err := c.OpenStore()
			if err != nil {
				return nil, err
			}
			return NewKPISink(store, prometheus.DefaultRegisterer)
		},
	}
	for name, f := range builtin {
		_ = coremetrics.RegisterMetricsSink(name, f)
	}
}
