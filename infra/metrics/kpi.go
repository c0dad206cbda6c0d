package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/metrics"
	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/metrics/kpi"
)

// KPISink aggregates delivery outcomes into daily driver KPIs and mirrors
// the current day in Prometheus gauges.
type KPISink struct {
	store     kpi.Store
	delivered *prometheus.GaugeVec
	success   *prometheus.GaugeVec
	avgLoad   *prometheus.GaugeVec
}

// NewKPISink creates a sink with Prometheus gauges registered on reg.
func NewKPISink(store kpi.Store, reg prometheus.Registerer) (*KPISink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	delivered, err := register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "driver_delivered_shipments",
		Help: "Daily delivered shipments per driver",
	}, []string{"driver_id", "day"}))
	if err != nil {
		return nil, err
	}
	success, err := register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "driver_delivery_success_ratio",
		Help: "Daily ratio of delivered to finished shipments",
	}, []string{"driver_id", "day"}))
	if err != nil {
		return nil, err
	}
	avg, err := register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "driver_average_load_kg",
		Help: "Daily mean delivered weight per shipment",
	}, []string{"driver_id", "day"}))
	if err != nil {
		return nil, err
	}
	return &KPISink{store: store, delivered: delivered, success: success, avgLoad: avg}, nil
}

// Store returns the underlying KPI store.
func (s *KPISink) Store() kpi.Store { return s.store }

// RecordDispatchPass is a no-op; KPIs are driven by delivery outcomes.
func (s *KPISink) RecordDispatchPass(coremetrics.PassEvent) error { return nil }

// RecordDelivery adds the outcome to the driver's day.
func (s *KPISink) RecordDelivery(ev coremetrics.DeliveryEvent) error {
	if ev.DriverID == "" {
		return nil
	}
	rec := kpi.Record{DriverID: ev.DriverID, Date: ev.Time}
	switch ev.Outcome {
	case coremetrics.DeliveryDelivered:
		rec.Delivered = 1
		rec.DeliveredKg = ev.Weight
	case coremetrics.DeliveryReturned:
		rec.Returned = 1
	default:
		return nil
	}
	if err := s.store.Add(rec); err != nil {
		return err
	}
	s.refresh(rec)
	return nil
}

// RecordEscalation counts escalations of shipments already on a driver.
func (s *KPISink) RecordEscalation(ev coremetrics.EscalationEvent) error {
	if ev.DriverID == "" {
		return nil
	}
	return s.store.Add(kpi.Record{DriverID: ev.DriverID, Date: ev.Time, EscalatedCount: 1})
}

func (s *KPISink) refresh(rec kpi.Record) {
	records, _ := s.store.Query(rec.DriverID, rec.Date, rec.Date)
	if len(records) == 0 {
		return
	}
	rr := records[0]
	day := kpi.Day(rec.Date).Format("2006-01-02")
	s.delivered.WithLabelValues(rec.DriverID, day).Set(float64(rr.Delivered))
	s.success.WithLabelValues(rec.DriverID, day).Set(rr.SuccessRate())
	s.avgLoad.WithLabelValues(rec.DriverID, day).Set(rr.AverageLoad())
}
