// Package inventory reserves stock for outbound shipments, preempting
// lower-priority orders under scarcity, and credits stock on inbound
// receipt.
package inventory

import (
	"fmt"
	"sync"
	"time"

	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/logger"
	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/metrics"
	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/store"
	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/internal/eventbus"
)

// Engine owns shipment creation and stock reservation.
type Engine struct {
	store   store.Store
	cfg     Config
	log     logger.Logger
	metrics metrics.MetricsSink
	bus     eventbus.EventBus
	clock   func() time.Time
	locks   keyedMutex
}

// NewEngine creates an Engine. sink, bus and log may be nil.
func NewEngine(st store.Store, cfg Config, sink metrics.MetricsSink, bus eventbus.EventBus, log logger.Logger) (*Engine, error) {
	if st == nil {
		return nil, fmt.Errorf("inventory: nil store provided to NewEngine")
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if sink == nil {
		sink = metrics.NopSink{}
	}
	if log == nil {
		log = logger.Nop{}
	}
	return &Engine{store: st, cfg: cfg, log: log, metrics: sink, bus: bus, clock: time.Now}, nil
}

// SetClock overrides the time source.
func (e *Engine) SetClock(now func() time.Time) {
	if now != nil {
		e.clock = now
	}
}

func (e *Engine) warehouse(code string) string {
	if code == "" {
		return e.cfg.DefaultWarehouse
	}
	return code
}

func (e *Engine) publish(ev eventbus.Event) {
	if e.bus != nil {
		e.bus.Publish(ev)
	}
}

func (e *Engine) recordReservation(ev metrics.ReservationEvent) {
	rec, ok := e.metrics.(metrics.ReservationRecorder)
	if !ok {
		return
	}
	if err := rec.RecordReservation(ev); err != nil {
		e.log.Errorf("reservation metrics error: %v", err)
	}
}

// keyedMutex serializes reservation decisions per SKU and warehouse within
// the process. Stores still apply each increment conditionally.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (k *keyedMutex) lock(sku, warehouse string) func() {
	key := sku + "@" + warehouse
	k.mu.Lock()
	if k.locks == nil {
		k.locks = map[string]*sync.Mutex{}
	}
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()
	m.Lock()
	return m.Unlock
}
