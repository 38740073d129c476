package hybrid

import "github.com/lucasgrd/shopsched/core/model"

// ComparisonMetrics quantifies a schedule against the FIFO baseline.
// Percentage deltas are relative to the baseline; utilization is an
// absolute percentage-point delta.
type ComparisonMetrics struct {
	MakespanDeltaPct   float64 `json:"makespan_delta_pct"`
	TardinessDeltaPct  float64 `json:"tardiness_delta_pct"`
	LateJobsDeltaPct   float64 `json:"late_jobs_delta_pct"`
	UtilizationDeltaPP float64 `json:"utilization_delta_pp"`
}

// Compare measures schedule s against baseline b. Negative makespan,
// tardiness and late-jobs deltas mean s improves on the baseline.
func Compare(s, b *model.Schedule, p *model.Problem) ComparisonMetrics {
	return ComparisonMetrics{
		MakespanDeltaPct:   pctDelta(float64(s.Makespan()), float64(b.Makespan())),
		TardinessDeltaPct:  pctDelta(float64(s.TotalTardiness(p)), float64(b.TotalTardiness(p))),
		LateJobsDeltaPct:   pctDelta(float64(s.LateJobs(p)), float64(b.LateJobs(p))),
		UtilizationDeltaPP: s.Utilization(p) - b.Utilization(p),
	}
}

func pctDelta(value, base float64) float64 {
	if base == 0 {
		if value == 0 {
			return 0
		}
		return 100
	}
	return 100 * (value - base) / base
}

// optimizedGapLimit is the maximum gap at which a solver result still
// counts as optimized.
const optimizedGapLimit = 5.0

// IsOptimized labels a schedule "optimized" only when the solver
// proved quality (Optimal, or Feasible within the gap limit) and the
// schedule beats the FIFO baseline by at least 10% makespan and 20%
// fewer late jobs.
func IsOptimized(status model.SolveStatus, gapPct float64, cmp ComparisonMetrics) bool {
	switch status {
	case model.StatusOptimal:
	case model.StatusFeasible, model.StatusTimeout:
		if gapPct >= optimizedGapLimit {
			return false
		}
	default:
		return false
	}
	return cmp.MakespanDeltaPct <= -10 && cmp.LateJobsDeltaPct <= -20
}
