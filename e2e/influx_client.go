package e2e

import (
	"context"
	"fmt"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
)

// InfluxReader reads back the points the service wrote.
type InfluxReader struct {
	client influxdb2.Client
	api    api.QueryAPI
	bucket string
}

func NewInfluxReader(url, token, org, bucket string) *InfluxReader {
	cli := influxdb2.NewClient(url, token)
	return &InfluxReader{client: cli, api: cli.QueryAPI(org), bucket: bucket}
}

// Sum adds up one numeric field of a measurement over the last ten
// minutes. It returns 0 when nothing was written yet.
func (r *InfluxReader) Sum(ctx context.Context, measurement, field string) (float64, error) {
	flux := fmt.Sprintf(`from(bucket: %q)
  |> range(start: -10m)
  |> filter(fn: (r) => r._measurement == %q and r._field == %q)
  |> group()
  |> sum()`, r.bucket, measurement, field)
	res, err := r.api.Query(ctx, flux)
	if err != nil {
		return 0, fmt.Errorf("flux query: %w", err)
	}
	defer func() { _ = res.Close() }()
	var total float64
	for res.Next() {
		switch v := res.Record().Value().(type) {
		case int64:
			total += float64(v)
		case float64:
			total += v
		case uint64:
			total += float64(v)
		}
	}
	return total, res.Err()
}

func (r *InfluxReader) Close() { r.client.Close() }
