package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/lucasgrd/shopsched/core/metrics"
	"github.com/lucasgrd/shopsched/core/model"
)

// PromSink records scheduling events in Prometheus metrics.
type PromSink struct {
	solves      *prometheus.CounterVec
	solveTime   prometheus.Histogram
	makespan    prometheus.Gauge
	tardiness   prometheus.Gauge
	disruptions *prometheus.CounterVec
	adjustments *prometheus.CounterVec
	episodes    prometheus.Gauge
}

// NewPromSink registers scheduling metrics on the default Prometheus
// registerer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided
// registerer. A nil registerer defaults to the global one.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	solves := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scheduler_solves_total",
		Help: "Total number of Tier 1 solve calls by status",
	}, []string{"status"})
	solveTime := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "scheduler_solve_duration_seconds",
		Help:    "Wall-clock duration of Tier 1 solves",
		Buckets: prometheus.DefBuckets,
	})
	makespan := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "scheduler_makespan_minutes",
		Help: "Makespan of the most recent schedule",
	})
	tardiness := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "scheduler_total_tardiness_minutes",
		Help: "Total tardiness of the most recent schedule",
	})
	disruptions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scheduler_disruptions_total",
		Help: "Disruption events reported, by type",
	}, []string{"type"})
	adjustments := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scheduler_adjustments_total",
		Help: "Tier 2 adjustments by action and outcome",
	}, []string{"action", "applied"})
	episodes := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "scheduler_training_episode",
		Help: "Latest reported training episode",
	})

	s := &PromSink{
		solves:      solves,
		solveTime:   solveTime,
		makespan:    makespan,
		tardiness:   tardiness,
		disruptions: disruptions,
		adjustments: adjustments,
		episodes:    episodes,
	}
	collectors := []prometheus.Collector{solves, solveTime, makespan, tardiness, disruptions, adjustments, episodes}
	for i, c := range collectors {
		if err := reg.Register(c); err != nil {
			are, ok := err.(prometheus.AlreadyRegisteredError)
			if !ok {
				return nil, err
			}
			switch i {
			case 0:
				s.solves = are.ExistingCollector.(*prometheus.CounterVec)
			case 1:
				s.solveTime = are.ExistingCollector.(prometheus.Histogram)
			case 2:
				s.makespan = are.ExistingCollector.(prometheus.Gauge)
			case 3:
				s.tardiness = are.ExistingCollector.(prometheus.Gauge)
			case 4:
				s.disruptions = are.ExistingCollector.(*prometheus.CounterVec)
			case 5:
				s.adjustments = are.ExistingCollector.(*prometheus.CounterVec)
			case 6:
				s.episodes = are.ExistingCollector.(prometheus.Gauge)
			}
		}
	}
	return s, nil
}

// RecordSolve records one Tier 1 result.
func (s *PromSink) RecordSolve(rec coremetrics.SolveRecord) error {
	s.solves.WithLabelValues(rec.Status.String()).Inc()
	s.solveTime.Observe(rec.SolveTime.Seconds())
	s.makespan.Set(float64(rec.Makespan))
	s.tardiness.Set(float64(rec.Tardiness))
	return nil
}

// RecordDisruption counts one disruption event.
func (s *PromSink) RecordDisruption(ev model.DisruptionEvent) error {
	s.disruptions.WithLabelValues(ev.Type.String()).Inc()
	return nil
}

// RecordAdjustment counts one Tier 2 adjustment outcome.
func (s *PromSink) RecordAdjustment(adj model.Adjustment, applied bool) error {
	label := "false"
	if applied {
		label = "true"
	}
	s.adjustments.WithLabelValues(adj.Action.String(), label).Inc()
	return nil
}

// RecordTraining updates the training episode gauge.
func (s *PromSink) RecordTraining(rec coremetrics.TrainingRecord) error {
	s.episodes.Set(float64(rec.Episode))
	return nil
}

// Close is a no-op for the Prometheus sink.
func (s *PromSink) Close() error { return nil }
