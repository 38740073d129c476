package model

// AssignmentOutput is the logical per-operation output schema.
type AssignmentOutput struct {
	OperationID      string `json:"operation_id"`
	MachineID        string `json:"machine_id"`
	Start            int    `json:"start"`
	End              int    `json:"end"`
	IsLate           bool   `json:"is_late"`
	TardinessMinutes int    `json:"tardiness_minutes"`
}

// ScheduleOutput is the logical schedule output schema.
type ScheduleOutput struct {
	Assignments           []AssignmentOutput `json:"assignments"`
	SolverStatus          string             `json:"solver_status"`
	SolveTimeSeconds      float64            `json:"solve_time_seconds"`
	GapPercentage         float64            `json:"gap_percentage"`
	MakespanMinutes       int                `json:"makespan_minutes"`
	TotalTardinessMinutes int                `json:"total_tardiness_minutes"`
	MachineUtilizationPct float64            `json:"machine_utilization_percent"`
}

// Export renders the schedule in the external output schema. Lateness
// is reported on every operation of a late job, with the tardiness
// attached to the job's final operation.
func (s *Schedule) Export(p *Problem) ScheduleOutput {
	out := ScheduleOutput{
		SolverStatus:          s.Status.String(),
		SolveTimeSeconds:      s.SolveTime.Seconds(),
		GapPercentage:         s.GapPct,
		MakespanMinutes:       s.Makespan(),
		TotalTardinessMinutes: s.TotalTardiness(p),
		MachineUtilizationPct: s.Utilization(p),
	}
	tardiness := make(map[string]int, len(p.Jobs))
	lastOp := make(map[string]string, len(p.Jobs))
	for _, j := range p.Jobs {
		tardiness[j.ID] = s.JobTardiness(j)
		lastOp[j.ID] = j.LastOperation().ID
	}
	for _, a := range s.Assignments {
		ao := AssignmentOutput{
			OperationID: a.OperationID,
			MachineID:   a.MachineID,
			Start:       a.Start,
			End:         a.End,
			IsLate:      tardiness[a.JobID] > 0,
		}
		if lastOp[a.JobID] == a.OperationID {
			ao.TardinessMinutes = tardiness[a.JobID]
		}
		out.Assignments = append(out.Assignments, ao)
	}
	return out
}
