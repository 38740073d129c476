package metrics

import (
	"context"
	"net/http"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/lucasgrd/shopsched/core/metrics"
	"github.com/lucasgrd/shopsched/core/model"
	"github.com/lucasgrd/shopsched/infra/logger"
)

// InfluxSink writes scheduling KPIs to an InfluxDB instance using the
// official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a sink for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	client := influxdb2.NewClientWithOptions(url, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback pings the InfluxDB instance and returns a
// NopSink if the health check fails, so a missing time-series backend
// never blocks scheduling.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.MetricsSink {
	sink := NewInfluxSink(url, token, org, bucket)
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

// RecordSolve writes one solve result as a measurement point.
func (s *InfluxSink) RecordSolve(rec coremetrics.SolveRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("schedule_solve").
		AddTag("status", rec.Status.String()).
		AddField("solve_seconds", rec.SolveTime.Seconds()).
		AddField("makespan_minutes", rec.Makespan).
		AddField("tardiness_minutes", rec.Tardiness).
		AddField("gap_pct", rec.GapPct).
		AddField("nodes_explored", rec.Explored).
		SetTime(time.Now())
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordDisruption writes one disruption event.
func (s *InfluxSink) RecordDisruption(ev model.DisruptionEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("disruption_event").
		AddTag("type", ev.Type.String()).
		AddTag("resource", ev.Resource).
		AddField("duration_minutes", ev.Duration).
		SetTime(time.Now())
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordAdjustment writes one adjustment outcome.
func (s *InfluxSink) RecordAdjustment(adj model.Adjustment, applied bool) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("schedule_adjustment").
		AddTag("action", adj.Action.String()).
		AddField("applied", applied).
		AddField("confidence", adj.Confidence).
		SetTime(time.Now())
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordTraining writes one training progress point.
func (s *InfluxSink) RecordTraining(rec coremetrics.TrainingRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("training_progress").
		AddField("episode", rec.Episode).
		AddField("best_reward", rec.BestReward).
		SetTime(time.Now())
	return s.writeAPI.WritePoint(ctx, p)
}

// Close shuts down the underlying client.
func (s *InfluxSink) Close() error {
	s.client.Close()
	return nil
}
