package e2e

import (
	"context"
	"fmt"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
)

// InfluxClient reads back what the influx sink wrote during a run.
type InfluxClient struct {
	bucket string
	client influxdb2.Client
	query  api.QueryAPI
}

// NewInfluxClient creates a new client for the given parameters. It assumes
// the server is already running and reachable.
func NewInfluxClient(url, org, bucket, token string) *InfluxClient {
	c := influxdb2.NewClient(url, token)
	return &InfluxClient{
		bucket: bucket,
		client: c,
		query:  c.QueryAPI(org),
	}
}

// Field returns the last value of field in measurement for one run.
func (c *InfluxClient) Field(ctx context.Context, measurement, field, runID string) (any, error) {
	flux := fmt.Sprintf(`from(bucket:%q)
  |> range(start:-1h)
  |> filter(fn: (r) => r._measurement == %q and r._field == %q and r.run_id == %q)
  |> last()`, c.bucket, measurement, field, runID)
	res, err := c.query.Query(ctx, flux)
	if err != nil {
		return nil, err
	}
	defer res.Close()
	var v any
	for res.Next() {
		v = res.Record().Value()
	}
	if err := res.Err(); err != nil {
		return nil, err
	}
	if v == nil {
		return nil, fmt.Errorf("no %s.%s point for run %s", measurement, field, runID)
	}
	return v, nil
}

// Count returns how many points of measurement.field a run wrote.
func (c *InfluxClient) Count(ctx context.Context, measurement, field, runID string) (int64, error) {
	flux := fmt.Sprintf(`from(bucket:%q)
  |> range(start:-1h)
  |> filter(fn: (r) => r._measurement == %q and r._field == %q and r.run_id == %q)
  |> group()
  |> count()`, c.bucket, measurement, field, runID)
	res, err := c.query.Query(ctx, flux)
	if err != nil {
		return 0, err
	}
	defer res.Close()
	var n int64
	for res.Next() {
		if v, ok := res.Record().Value().(int64); ok {
			n += v
		}
	}
	return n, res.Err()
}

// Close releases the underlying client resources.
func (c *InfluxClient) Close() { c.client.Close() }
