// Package hybrid orchestrates the three scheduling tiers and computes
// comparison metrics against the FIFO baseline.
package hybrid

import (
	"context"
	"errors"
	"fmt"

	"github.com/lucasgrd/shopsched/core/agent"
	"github.com/lucasgrd/shopsched/core/fifo"
	"github.com/lucasgrd/shopsched/core/gnn"
	"github.com/lucasgrd/shopsched/core/logger"
	"github.com/lucasgrd/shopsched/core/metrics"
	"github.com/lucasgrd/shopsched/core/model"
	"github.com/lucasgrd/shopsched/core/solver"
	"github.com/lucasgrd/shopsched/core/tracker"
)

// Options controls which tiers run.
type Options struct {
	EnableRL  bool
	EnableGNN bool
	// Events are outstanding disruptions replayed through Tier 2
	// after the baseline solve.
	Events []model.DisruptionEvent
}

// Predictions groups Tier 3 output.
type Predictions struct {
	Bottlenecks     []gnn.BottleneckPrediction `json:"bottlenecks"`
	Delays          []gnn.DelayPrediction      `json:"delays"`
	Durations       []gnn.DurationPrediction   `json:"durations"`
	Recommendations []gnn.Recommendation       `json:"recommendations"`
}

// Result aggregates the output of a hybrid run.
type Result struct {
	Solve       *solver.SolveResult
	Baseline    *model.Schedule // FIFO comparison schedule
	Final       *model.Schedule // after any Tier 2 commits
	Adjustments []model.Adjustment
	Predictions *Predictions
	Comparison  ComparisonMetrics
	Optimized   bool
}

// Coordinator wires the tiers together. Tier 1 failures abort the run;
// Tier 2 and Tier 3 failures degrade gracefully and never invalidate a
// committed Tier 1 schedule.
type Coordinator struct {
	solver    *solver.Solver
	agent     *agent.Agent
	predictor *gnn.Predictor
	sink      metrics.MetricsSink
	log       logger.Logger
}

// New creates a coordinator. The agent and predictor may be nil when
// the corresponding tier is disabled; sink and log default to no-ops.
func New(s *solver.Solver, a *agent.Agent, pred *gnn.Predictor, sink metrics.MetricsSink, log logger.Logger) (*Coordinator, error) {
	if s == nil {
		return nil, errors.New("hybrid: solver is required")
	}
	if sink == nil {
		sink = metrics.NopSink{}
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Coordinator{solver: s, agent: a, predictor: pred, sink: sink, log: log}, nil
}

// Run executes Tier 1, optionally replays disruptions through Tier 2,
// optionally runs Tier 3 against the final schedule, and aggregates
// everything with comparison metrics against the FIFO baseline.
func (c *Coordinator) Run(ctx context.Context, p *model.Problem, opts Options) (*Result, error) {
	res, err := c.solver.Solve(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("tier1 solve: %w", err)
	}
	if res.Status == model.StatusInfeasible {
		return nil, fmt.Errorf("tier1 solve: problem infeasible")
	}
	if recErr := c.sink.RecordSolve(metrics.SolveRecord{
		Status:    res.Status,
		SolveTime: res.SolveTime,
		Makespan:  res.Schedule.Makespan(),
		Tardiness: res.Schedule.TotalTardiness(p),
		GapPct:    res.GapPct,
		Explored:  res.Explored,
	}); recErr != nil {
		c.log.Warnf("solve metrics: %v", recErr)
	}

	out := &Result{Solve: res, Final: res.Schedule, Baseline: fifo.Generate(p)}

	if opts.EnableRL && c.agent != nil && len(opts.Events) > 0 {
		out.Final, out.Adjustments = c.replay(p, res.Schedule, opts.Events)
	}

	if opts.EnableGNN && c.predictor != nil {
		if preds, err := c.predict(out.Final, p); err != nil {
			// Soft failure: prediction output is advisory.
			c.log.Warnf("tier3 unavailable: %v", err)
		} else {
			out.Predictions = preds
		}
	}

	out.Comparison = Compare(out.Final, out.Baseline, p)
	out.Optimized = IsOptimized(res.Status, res.GapPct, out.Comparison)
	c.log.Infof("hybrid run: status=%s makespan=%d vs fifo %.1f%% optimized=%t",
		res.Status, out.Final.Makespan(), out.Comparison.MakespanDeltaPct, out.Optimized)
	return out, nil
}

// replay feeds each outstanding disruption through the tracker and
// agent, committing validated adjustments. Rejected events leave the
// schedule untouched.
func (c *Coordinator) replay(p *model.Problem, base *model.Schedule, events []model.DisruptionEvent) (*model.Schedule, []model.Adjustment) {
	tr := tracker.New(p, tracker.WithLogger(c.log))
	defer tr.Close()
	if err := tr.SetBaseline(base); err != nil {
		c.log.Errorf("tier2 baseline rejected: %v", err)
		return base, nil
	}
	var applied []model.Adjustment
	queue := append([]model.DisruptionEvent(nil), events...)
	for len(queue) > 0 {
		ev := queue[0]
		queue = queue[1:]
		if err := c.sink.RecordDisruption(ev); err != nil {
			c.log.Warnf("disruption metrics: %v", err)
		}
		obs, err := tr.Report(ev)
		if err != nil {
			c.log.Warnf("disruption %s dropped: %v", ev.ID, err)
			continue
		}
		adj, err := c.agent.Recommend(obs, tr.Current(), p)
		if err != nil {
			c.log.Warnf("tier2 has no valid adjustment for %s: %v", ev.ID, err)
			continue
		}
		if adj.Action == model.ActionNone {
			c.log.Debugf("event %s requires no action", ev.ID)
			continue
		}
		if _, err := tr.Commit(adj); err != nil {
			c.log.Warnf("tier2 commit rejected: %v", err)
			if rerr := c.sink.RecordAdjustment(adj, false); rerr != nil {
				c.log.Warnf("adjustment metrics: %v", rerr)
			}
			continue
		}
		if rerr := c.sink.RecordAdjustment(adj, true); rerr != nil {
			c.log.Warnf("adjustment metrics: %v", rerr)
		}
		applied = append(applied, adj)
		queue = append(queue, tr.Drain()...)
	}
	return tr.Current(), applied
}

func (c *Coordinator) predict(s *model.Schedule, p *model.Problem) (*Predictions, error) {
	bottlenecks, err := c.predictor.PredictBottlenecks(s, p, 0)
	if err != nil {
		return nil, err
	}
	delays, err := c.predictor.PredictDelays(s, p, 0)
	if err != nil {
		return nil, err
	}
	durations, err := c.predictor.PredictDurations(s, p)
	if err != nil {
		return nil, err
	}
	recos, err := c.predictor.Recommend(s, p, 0)
	if err != nil {
		return nil, err
	}
	return &Predictions{
		Bottlenecks:     bottlenecks,
		Delays:          delays,
		Durations:       durations,
		Recommendations: recos,
	}, nil
}
