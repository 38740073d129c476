// Package metrics defines the sink interface through which scheduling
// components report operational measurements. Implementations live in
// infra/metrics.
package metrics

import (
	"time"

	"github.com/lucasgrd/shopsched/core/model"
)

// SolveRecord summarizes one Tier 1 solve for recording.
type SolveRecord struct {
	Status    model.SolveStatus
	SolveTime time.Duration
	Makespan  int
	Tardiness int
	GapPct    float64
	Explored  int64
}

// TrainingRecord summarizes training progress for recording.
type TrainingRecord struct {
	Episode    int
	BestReward float64
}

// MetricsSink records scheduling events. Implementations must be safe
// for concurrent use.
type MetricsSink interface {
	RecordSolve(SolveRecord) error
	RecordDisruption(model.DisruptionEvent) error
	RecordAdjustment(adj model.Adjustment, applied bool) error
	RecordTraining(TrainingRecord) error
	Close() error
}

// Config selects and parameterizes the metrics sinks.
type Config struct {
	PrometheusEnabled bool   `json:"prometheus_enabled"`
	PrometheusPort    int    `json:"prometheus_port"`
	InfluxEnabled     bool   `json:"influx_enabled"`
	InfluxURL         string `json:"influx_url"`
	InfluxToken       string `json:"influx_token"`
	InfluxOrg         string `json:"influx_org"`
	InfluxBucket      string `json:"influx_bucket"`
}

// NopSink discards all records.
type NopSink struct{}

func (NopSink) RecordSolve(SolveRecord) error                 { return nil }
func (NopSink) RecordDisruption(model.DisruptionEvent) error  { return nil }
func (NopSink) RecordAdjustment(model.Adjustment, bool) error { return nil }
func (NopSink) RecordTraining(TrainingRecord) error           { return nil }
func (NopSink) Close() error                                  { return nil }
