package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	apidelivery "github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/api/delivery"
	apidispatch "github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/api/dispatch"
	apidrivers "github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/api/drivers"
	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/api/httpx"
	apiinventory "github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/api/inventory"
	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/app/plugins"
	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/config"
	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/delivery"
	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/dispatch"
	dispatchlog "github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/dispatch/logging"
	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/inventory"
	coremetrics "github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/metrics"
	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/metrics/kpi"
	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/monitoring"
	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/reconcile"
	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/scheduler"
	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/sla"
	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/store"
	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/infra/logger"
	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/infra/metrics"
	inframon "github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/infra/monitoring"
	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/infra/relay"
	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/infra/sqlstore"
	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/internal/eventbus"
)

// Service wires the engines to their store, event bus, metrics and HTTP API.
type Service struct {
	Store      store.Store
	Bus        *eventbus.Bus
	Dispatch   *dispatch.Manager
	Inventory  *inventory.Engine
	Reconciler *reconcile.Reconciler
	Sweeper    *sla.Sweeper
	Delivery   *delivery.Service

	cfg      *config.Config
	sink     coremetrics.MetricsSink
	logStore dispatchlog.LogStore
	relay    *relay.Relay
	sched    *scheduler.CronScheduler
	log      logger.Logger
}

// New creates a Service from the configuration. Resources opened before a
// failure are released.
func New(ctx context.Context, cfg *config.Config) (svc *Service, err error) {
	if cfg == nil {
		return nil, fmt.Errorf("app: nil config")
	}
	if err := logger.SetLevel(cfg.LogLevel); err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	mon, err := inframon.NewSentryMonitor(cfg.Sentry)
	if err != nil {
		return nil, fmt.Errorf("sentry: %w", err)
	}
	monitoring.Init(mon)

	s := &Service{cfg: cfg, log: logger.New("service")}
	defer func() {
		if err != nil {
			if cerr := s.Close(); cerr != nil {
				s.log.Errorf("cleanup after failed start: %v", cerr)
			}
		}
	}()

	if s.Store, err = OpenStore(ctx, cfg.Store); err != nil {
		return nil, err
	}
	if s.sink, err = coremetrics.NewMetricsSink(cfg.Metrics.Sinks); err != nil {
		return nil, fmt.Errorf("metrics sink: %w", err)
	}
	if s.logStore, err = plugins.NewLogStore(cfg.Logging); err != nil {
		return nil, fmt.Errorf("audit log: %w", err)
	}
	s.Bus = eventbus.NewWithBuffer(cfg.Events.Buffer)

	if s.Dispatch, err = dispatch.NewManager(s.Store, cfg.Dispatch, s.sink, s.Bus, logger.New("dispatch")); err != nil {
		return nil, fmt.Errorf("dispatch manager: %w", err)
	}
	s.Dispatch.SetLogStore(s.logStore)
	if s.Inventory, err = inventory.NewEngine(s.Store, cfg.Reservation, s.sink, s.Bus, logger.New("inventory")); err != nil {
		return nil, fmt.Errorf("inventory engine: %w", err)
	}
	if s.Reconciler, err = reconcile.NewReconciler(s.Store, s.Bus, s.sink, logger.New("reconcile")); err != nil {
		return nil, fmt.Errorf("reconciler: %w", err)
	}
	if s.Sweeper, err = sla.NewSweeper(s.Store, s.Bus, s.sink, logger.New("sla"), nil); err != nil {
		return nil, fmt.Errorf("sla sweeper: %w", err)
	}
	if s.Delivery, err = delivery.NewService(s.Store, s.Bus, s.sink, logger.New("delivery")); err != nil {
		return nil, fmt.Errorf("delivery service: %w", err)
	}

	targets, err := plugins.NewRelayTargets(cfg.Events.Relays)
	if err != nil {
		return nil, err
	}
	if len(targets) > 0 {
		if s.relay, err = relay.New(s.Bus, logger.New("relay"), targets...); err != nil {
			return nil, fmt.Errorf("relay: %w", err)
		}
	}

	s.sched = scheduler.NewCronScheduler(logger.New("scheduler"))
	if cfg.SLA.Schedule != "" {
		if err := s.sched.Add("sla-sweep", cfg.SLA.Schedule, s.Sweeper.Job); err != nil {
			return nil, fmt.Errorf("sla schedule: %w", err)
		}
	}
	if cfg.Reconcile.Schedule != "" {
		if err := s.sched.Add("conflict-detection", cfg.Reconcile.Schedule, s.Reconciler.Job); err != nil {
			return nil, fmt.Errorf("reconcile schedule: %w", err)
		}
	}
	return s, nil
}

// OpenStore returns the persistence backend selected by cfg.
func OpenStore(ctx context.Context, cfg config.StoreConfig) (store.Store, error) {
	switch cfg.Backend {
	case "", config.BackendMemory:
		return store.NewMemoryStore(), nil
	case config.BackendSQLite:
		return sqlstore.Open(ctx, sqlstore.DriverSQLite, cfg.DSN)
	case config.BackendPostgres:
		return sqlstore.Open(ctx, sqlstore.DriverPostgres, cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown store backend %s", cfg.Backend)
	}
}

// Handler returns the HTTP API.
func (s *Service) Handler() http.Handler {
	mux := http.NewServeMux()
	apidispatch.Register(mux, s.Dispatch, s.logStore)
	apiinventory.Handlers{
		Shipments:  s.Inventory,
		Reconciler: s.Reconciler,
		Sweeper:    s.Sweeper,
		Store:      s.Store,
	}.Register(mux)
	apidelivery.Register(mux, s.Delivery)
	apidrivers.Register(mux, s.Store, s.KPIStore())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, map[string]any{
			"status":         "ok",
			"subscribers":    s.Bus.Subscribers(),
			"events_dropped": s.Bus.Dropped(),
		})
	})
	return httpx.RequireToken(s.cfg.API.Token, mux)
}

// AuditLog returns the allocation audit trail.
func (s *Service) AuditLog() dispatchlog.LogStore { return s.logStore }

// KPIStore returns the store of the first configured kpi sink, or nil.
func (s *Service) KPIStore() kpi.Store {
	for _, sk := range flatten(s.sink) {
		if ks, ok := sk.(interface{ Store() kpi.Store }); ok {
			return ks.Store()
		}
	}
	return nil
}

// Run starts the background workers and the HTTP server and blocks until
// ctx is canceled or the server fails.
func (s *Service) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if s.relay != nil {
		s.relay.Start(ctx)
	}
	metrics.StartEventCollector(ctx, s.Bus, s.sink)
	if s.promEnabled() {
		go func() {
			defer monitoring.Recover()
			if err := metrics.StartPromServer(ctx, s.cfg.Metrics.PrometheusAddr, nil, logger.New("metrics")); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}
	s.sched.Start(ctx)
	defer s.sched.Stop()

	srv := &http.Server{Addr: s.cfg.API.Addr, Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		s.log.Infof("api listening on %s", s.cfg.API.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("api server: %w", err)
		}
	}
	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.log.Errorf("api shutdown: %v", err)
	}
	return nil
}

func (s *Service) promEnabled() bool {
	for _, c := range s.cfg.Metrics.Sinks {
		if c.Type == "prometheus" {
			return true
		}
	}
	return false
}

// Close stops the relay and releases every resource held by the service.
func (s *Service) Close() error {
	var errs []error
	if s.relay != nil {
		s.relay.Stop()
	}
	if s.Delivery != nil {
		s.Delivery.Close()
	}
	if s.Dispatch != nil {
		if err := s.Dispatch.Close(); err != nil {
			errs = append(errs, fmt.Errorf("dispatch: %w", err))
		}
	} else if s.logStore != nil {
		if err := s.logStore.Close(); err != nil {
			errs = append(errs, fmt.Errorf("audit log: %w", err))
		}
	}
	if s.Bus != nil {
		s.Bus.Close()
	}
	for _, sk := range flatten(s.sink) {
		switch c := sk.(type) {
		case io.Closer:
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("metrics sink: %w", err))
			}
		case interface{ Close() }:
			c.Close()
		}
		if ks, ok := sk.(interface{ Store() kpi.Store }); ok {
			if c, ok := ks.Store().(io.Closer); ok {
				if err := c.Close(); err != nil {
					errs = append(errs, fmt.Errorf("kpi store: %w", err))
				}
			}
		}
	}
	if s.Store != nil {
		if err := s.Store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("store: %w", err))
		}
	}
	monitoring.Flush(2 * time.Second)
	return errors.Join(errs...)
}

func flatten(sink coremetrics.MetricsSink) []coremetrics.MetricsSink {
	if m, ok := sink.(*coremetrics.MultiSink); ok {
		return m.Sinks
	}
	if sink == nil {
		return nil
	}
	return []coremetrics.MetricsSink{sink}
}
