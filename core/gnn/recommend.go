package gnn

import (
	"fmt"
	"sort"

	"github.com/lucasgrd/shopsched/core/model"
)

// Recommend derives strategic recommendations from the prediction
// heads: high-probability bottleneck machines and high-risk jobs are
// mapped to a small rule set. Results are ordered by priority and
// capped at maxN.
func (p *Predictor) Recommend(s *model.Schedule, prob *model.Problem, maxN int) ([]Recommendation, error) {
	if !p.loaded {
		return nil, ErrModelUnavailable
	}
	if maxN <= 0 {
		maxN = p.cfg.MaxRecommendations
	}

	bottlenecks, err := p.PredictBottlenecks(s, prob, p.cfg.BottleneckThreshold)
	if err != nil {
		return nil, err
	}
	delays, err := p.PredictDelays(s, prob, p.cfg.DelayThreshold)
	if err != nil {
		return nil, err
	}

	var recos []Recommendation
	for _, b := range bottlenecks {
		prio := PriorityHighReco
		effort := "medium"
		if b.Probability >= 0.8 {
			prio = PriorityCriticalReco
			effort = "high"
		}
		recos = append(recos, Recommendation{
			Priority:    prio,
			Title:       fmt.Sprintf("Add capacity on %s", b.MachineID),
			Description: fmt.Sprintf("Machine %s carries %d operations and is predicted to constrain throughput (p=%.2f). Add a shift or route work to alternate machines.", b.MachineID, b.Operations, b.Probability),
			Impact:      fmt.Sprintf("expected makespan reduction on the %s queue", b.MachineID),
			Effort:      effort,
			Confidence:  b.Probability,
		})
		recos = append(recos, Recommendation{
			Priority:    PriorityMediumReco,
			Title:       fmt.Sprintf("Cross-train operators for %s", b.MachineID),
			Description: fmt.Sprintf("Widening the pool able to run %s reduces its single-point risk.", b.MachineID),
			Impact:      "more routing flexibility under disruption",
			Effort:      "medium",
			Confidence:  b.Probability * 0.8,
		})
	}
	for _, d := range delays {
		prio := PriorityMediumReco
		if d.ExpectedDelayMin > 0 && d.Probability >= 0.7 {
			prio = PriorityHighReco
		}
		recos = append(recos, Recommendation{
			Priority:    prio,
			Title:       fmt.Sprintf("Reschedule job %s", d.JobID),
			Description: fmt.Sprintf("Job %s is predicted late (p=%.2f, ~%.0f min). Pull its operations earlier or raise its priority before the due date slips.", d.JobID, d.Probability, d.ExpectedDelayMin),
			Impact:      fmt.Sprintf("~%.0f min tardiness avoided", d.ExpectedDelayMin),
			Effort:      "low",
			Confidence:  d.Probability,
		})
	}

	sort.SliceStable(recos, func(i, j int) bool { return recos[i].Priority > recos[j].Priority })
	if len(recos) > maxN {
		recos = recos[:maxN]
	}
	return recos, nil
}
