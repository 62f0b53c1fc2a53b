package metrics

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/dispatchsim/core/metrics"
	"github.com/kilianp07/dispatchsim/infra/logger"
)

// InfluxConfig locates the InfluxDB bucket.
type InfluxConfig struct {
	URL    string `json:"url"`
	Token  string `json:"token"`
	Org    string `json:"org"`
	Bucket string `json:"bucket"`
}

// InfluxSink writes simulation events to an InfluxDB instance using the official client.
// Points carry the wall clock time they were written at; the simulated
// time is a field.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
	now      func() time.Time
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(c InfluxConfig) *InfluxSink {
	base := strings.TrimSuffix(c.URL, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, c.Token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(c.Org, c.Bucket),
		log:      logger.New("influx-sink"),
		now:      time.Now,
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(c InfluxConfig) coremetrics.Sink {
	sink := NewInfluxSink(c)
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

func (s *InfluxSink) write(p *write.Point) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordCompletion writes one task_serviced point.
func (s *InfluxSink) RecordCompletion(ev coremetrics.CompletionEvent) error {
	p := write.NewPointWithMeasurement("task_serviced").
		AddTag("run_id", ev.RunID).
		AddTag("actor", strconv.Itoa(ev.Actor)).
		AddTag("sector", strconv.Itoa(ev.Sector)).
		AddField("task_id", ev.TaskID).
		AddField("wait", round3(ev.Wait)).
		AddField("arrival", round3(ev.Arrival)).
		AddField("completion", round3(ev.Completion)).
		AddField("service_time", round3(ev.ServiceTime)).
		SetTime(s.now())
	return s.write(p)
}

// RecordReplan writes one replan point.
func (s *InfluxSink) RecordReplan(ev coremetrics.ReplanEvent) error {
	stop := ev.Stop
	if stop == "" {
		stop = "none"
	}
	p := write.NewPointWithMeasurement("replan").
		AddTag("run_id", ev.RunID).
		AddTag("policy", ev.Policy).
		AddTag("stop", stop).
		AddField("sim_time", round3(ev.SimTime)).
		AddField("sector", ev.Sector).
		AddField("planned", ev.Planned).
		AddField("committed", ev.Committed).
		AddField("rejected", ev.Rejected).
		AddField("iterations", ev.Iterations).
		AddField("cost", round3(ev.Cost)).
		AddField("elapsed_ms", round3(ev.Elapsed.Seconds()*1000)).
		SetTime(s.now())
	return s.write(p)
}

// RecordActorState writes an actor snapshot.
func (s *InfluxSink) RecordActorState(ev coremetrics.ActorStateEvent) error {
	p := write.NewPointWithMeasurement("actor_state").
		AddTag("run_id", ev.RunID).
		AddTag("actor", strconv.Itoa(ev.Actor)).
		AddField("sim_time", round3(ev.SimTime)).
		AddField("x", round3(ev.X)).
		AddField("y", round3(ev.Y)).
		AddField("heading", round3(ev.Heading)).
		AddField("busy", ev.Busy).
		AddField("queue", ev.Queue).
		AddField("travelled", round3(ev.Travelled)).
		SetTime(s.now())
	return s.write(p)
}

// RecordRunSummary writes the run_summary point.
func (s *InfluxSink) RecordRunSummary(sum coremetrics.RunSummary) error {
	p := write.NewPointWithMeasurement("run_summary").
		AddTag("run_id", sum.RunID).
		AddTag("policy", sum.Policy).
		AddField("rate", sum.Rate).
		AddField("sim_time", round3(sum.SimTime)).
		AddField("serviced", sum.Serviced).
		AddField("avg_wait", round3(sum.AvgWait)).
		AddField("max_wait", round3(sum.MaxWait)).
		AddField("total_travel", round3(sum.TotalTravel)).
		AddField("max_queue", sum.MaxQueue).
		AddField("replans", sum.Replans).
		AddField("rejections", sum.Rejections).
		SetTime(s.now())
	return s.write(p)
}

// Close releases the client.
func (s *InfluxSink) Close() { s.client.Close() }

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
