package metrics

import (
	coremetrics "github.com/lucasgrd/shopsched/core/metrics"
	"github.com/lucasgrd/shopsched/core/model"
)

// MultiSink fans records out to multiple sinks, returning the first
// error encountered.
type MultiSink struct {
	Sinks []coremetrics.MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...coremetrics.MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordSolve forwards the record to all sinks.
func (m *MultiSink) RecordSolve(rec coremetrics.SolveRecord) error {
	for _, s := range m.Sinks {
		if err := s.RecordSolve(rec); err != nil {
			return err
		}
	}
	return nil
}

// RecordDisruption forwards the event to all sinks.
func (m *MultiSink) RecordDisruption(ev model.DisruptionEvent) error {
	for _, s := range m.Sinks {
		if err := s.RecordDisruption(ev); err != nil {
			return err
		}
	}
	return nil
}

// RecordAdjustment forwards the adjustment to all sinks.
func (m *MultiSink) RecordAdjustment(adj model.Adjustment, applied bool) error {
	for _, s := range m.Sinks {
		if err := s.RecordAdjustment(adj, applied); err != nil {
			return err
		}
	}
	return nil
}

// RecordTraining forwards the progress record to all sinks.
func (m *MultiSink) RecordTraining(rec coremetrics.TrainingRecord) error {
	for _, s := range m.Sinks {
		if err := s.RecordTraining(rec); err != nil {
			return err
		}
	}
	return nil
}

// Close closes all sinks, returning the first error.
func (m *MultiSink) Close() error {
	var first error
	for _, s := range m.Sinks {
		if err := s.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// NewFromConfig assembles the configured sinks. With nothing enabled a
// NopSink is returned.
func NewFromConfig(cfg coremetrics.Config) (coremetrics.MetricsSink, error) {
	var sinks []coremetrics.MetricsSink
	if cfg.PrometheusEnabled {
		prom, err := NewPromSink()
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, prom)
	}
	if cfg.InfluxEnabled {
		sinks = append(sinks, NewInfluxSinkWithFallback(cfg.InfluxURL, cfg.InfluxToken, cfg.InfluxOrg, cfg.InfluxBucket))
	}
	switch len(sinks) {
	case 0:
		return coremetrics.NopSink{}, nil
	case 1:
		return sinks[0], nil
	default:
		return NewMultiSink(sinks...), nil
	}
}
