package metrics

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/logger"
	coremetrics "github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/metrics"
	infralogger "github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/infra/logger"
)

// InfluxConfig locates an InfluxDB v2 bucket.
type InfluxConfig struct {
	URL    string `json:"url"`
	Token  string `json:"token"`
	Org    string `json:"org"`
	Bucket string `json:"bucket"`
}

// Validate checks the configuration.
func (c InfluxConfig) Validate() error {
	if c.URL == "" || c.Org == "" || c.Bucket == "" {
		return fmt.Errorf("influx: url, org and bucket are required")
	}
	return nil
}

// InfluxSink writes allocation and inventory events to an InfluxDB instance using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(cfg InfluxConfig) *InfluxSink {
	base := strings.TrimSuffix(cfg.URL, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, cfg.Token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		log:      infralogger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(cfg InfluxConfig) coremetrics.MetricsSink {
	sink := NewInfluxSink(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

func (s *InfluxSink) write(timeout time.Duration, points ...*write.Point) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.writeAPI.WritePoint(ctx, points...)
}

// RecordDispatchPass writes one point per allocation pass.
func (s *InfluxSink) RecordDispatchPass(ev coremetrics.PassEvent) error {
	p := write.NewPointWithMeasurement("allocation_pass").
		AddTag("method", ev.Method).
		AddTag("pass_id", ev.PassID).
		AddTag("component", "dispatch_manager").
		AddField("eligible", ev.Eligible).
		AddField("assigned", ev.Assigned).
		AddField("unassigned", ev.Unassigned).
		AddField("score", round3(ev.Score)).
		AddField("utilization", round3(ev.Utilization)).
		AddField("duration_ms", round3(ev.Duration.Seconds()*1000)).
		SetTime(ev.Time)
	return s.write(5*time.Second, p)
}

// RecordAssignments writes one point per committed shipment.
func (s *InfluxSink) RecordAssignments(evs []coremetrics.AssignmentEvent) error {
	if len(evs) == 0 {
		return nil
	}
	points := make([]*write.Point, 0, len(evs))
	for _, ev := range evs {
		points = append(points, write.NewPointWithMeasurement("shipment_assigned").
			AddTag("driver_id", ev.DriverID).
			AddTag("zone", ev.Zone).
			AddTag("priority", ev.Priority).
			AddTag("method", ev.Method).
			AddTag("pass_id", ev.PassID).
			AddField("tracking_id", ev.TrackingID).
			AddField("weight", round3(ev.Weight)).
			AddField("volume", round3(ev.Volume)).
			SetTime(ev.Time))
	}
	return s.write(10*time.Second, points...)
}

// RecordReservation writes a reservation decision.
func (s *InfluxSink) RecordReservation(ev coremetrics.ReservationEvent) error {
	p := write.NewPointWithMeasurement("reservation_decision").
		AddTag("sku", ev.SKU).
		AddTag("warehouse", ev.Warehouse).
		AddTag("outcome", ev.Outcome).
		AddField("tracking_id", ev.TrackingID).
		AddField("quantity", ev.Quantity).
		AddField("victims", ev.Victims).
		SetTime(ev.Time)
	return s.write(5*time.Second, p)
}

// RecordConflict writes a split-brain detection or resolution.
func (s *InfluxSink) RecordConflict(ev coremetrics.ConflictEvent) error {
	p := write.NewPointWithMeasurement("inventory_conflict").
		AddTag("sku", ev.SKU).
		AddTag("resolved", strconv.FormatBool(ev.Resolved)).
		AddField("total_on_hand", ev.TotalOnHand).
		AddField("total_reserved", ev.TotalReserved).
		SetTime(ev.Time)
	return s.write(5*time.Second, p)
}

// RecordEscalation writes an SLA escalation.
func (s *InfluxSink) RecordEscalation(ev coremetrics.EscalationEvent) error {
	p := write.NewPointWithMeasurement("sla_escalation").
		AddTag("tier", ev.Tier)
	if ev.DriverID != "" {
		p = p.AddTag("driver_id", ev.DriverID)
	}
	p = p.AddField("tracking_id", ev.TrackingID).
		AddField("overdue_s", round3(ev.Overdue.Seconds())).
		SetTime(ev.Time)
	return s.write(5*time.Second, p)
}

// RecordDelivery writes a finished delivery.
func (s *InfluxSink) RecordDelivery(ev coremetrics.DeliveryEvent) error {
	p := write.NewPointWithMeasurement("delivery_outcome").
		AddTag("driver_id", ev.DriverID).
		AddTag("outcome", ev.Outcome).
		AddField("shipment_id", ev.ShipmentID).
		AddField("weight", round3(ev.Weight)).
		SetTime(ev.Time)
	return s.write(5*time.Second, p)
}

// Close releases the client.
func (s *InfluxSink) Close() {
	s.client.Close()
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
