package model

import (
	"sort"
	"time"
)

// SolveStatus classifies the outcome of a solver run.
type SolveStatus int

const (
	StatusOptimal SolveStatus = iota
	StatusFeasible
	StatusInfeasible
	StatusTimeout
)

// String returns a human-readable representation of the status.
func (s SolveStatus) String() string {
	switch s {
	case StatusOptimal:
		return "optimal"
	case StatusFeasible:
		return "feasible"
	case StatusInfeasible:
		return "infeasible"
	case StatusTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// ScheduleSource records which tier produced or last modified a
// schedule.
type ScheduleSource int

const (
	SourceSolver ScheduleSource = iota
	SourceFIFO
	SourceAdjusted
)

// String returns a human-readable representation of the source.
func (s ScheduleSource) String() string {
	switch s {
	case SourceSolver:
		return "solver"
	case SourceFIFO:
		return "fifo"
	case SourceAdjusted:
		return "adjusted"
	default:
		return "unknown"
	}
}

// Assignment places one operation on one machine in one time slot.
type Assignment struct {
	OperationID string
	JobID       string
	MachineID   string
	Start       int
	End         int
	// Overtime flags an interval falling outside the machine's
	// working calendar. Hard for solver output, soft (penalized) for
	// committed adjustments.
	Overtime bool
}

// Interval returns the occupied time range.
func (a Assignment) Interval() Interval { return Interval{Start: a.Start, End: a.End} }

// Schedule maps every operation to a machine and time slot. Schedules
// are value-replaced, never mutated in place: applying an adjustment
// or re-solving produces a new Schedule.
type Schedule struct {
	Assignments []Assignment
	Status      SolveStatus
	Source      ScheduleSource
	SolveTime   time.Duration
	GapPct      float64
}

// Clone returns a deep copy of the schedule.
func (s *Schedule) Clone() *Schedule {
	cp := *s
	cp.Assignments = make([]Assignment, len(s.Assignments))
	copy(cp.Assignments, s.Assignments)
	return &cp
}

// AssignmentFor returns the assignment of the given operation.
func (s *Schedule) AssignmentFor(opID string) (Assignment, bool) {
	for _, a := range s.Assignments {
		if a.OperationID == opID {
			return a, true
		}
	}
	return Assignment{}, false
}

// ByMachine groups assignments per machine, sorted by start time.
func (s *Schedule) ByMachine() map[string][]Assignment {
	m := make(map[string][]Assignment)
	for _, a := range s.Assignments {
		m[a.MachineID] = append(m[a.MachineID], a)
	}
	for id := range m {
		sort.Slice(m[id], func(i, j int) bool { return m[id][i].Start < m[id][j].Start })
	}
	return m
}

// Makespan returns the end time of the last assignment.
func (s *Schedule) Makespan() int {
	end := 0
	for _, a := range s.Assignments {
		if a.End > end {
			end = a.End
		}
	}
	return end
}

// JobCompletion returns the end time of the job's last assigned
// operation, or zero when none of its operations is assigned.
func (s *Schedule) JobCompletion(jobID string) int {
	end := 0
	for _, a := range s.Assignments {
		if a.JobID == jobID && a.End > end {
			end = a.End
		}
	}
	return end
}

// JobTardiness returns max(0, completion - due date) for the job.
func (s *Schedule) JobTardiness(j Job) int {
	t := s.JobCompletion(j.ID) - j.DueDate
	if t < 0 {
		return 0
	}
	return t
}

// TotalTardiness sums unweighted tardiness over all jobs.
func (s *Schedule) TotalTardiness(p *Problem) int {
	total := 0
	for _, j := range p.Jobs {
		total += s.JobTardiness(j)
	}
	return total
}

// WeightedTardiness sums job-weighted tardiness over all jobs.
func (s *Schedule) WeightedTardiness(p *Problem) float64 {
	total := 0.0
	for _, j := range p.Jobs {
		total += j.Weight * float64(s.JobTardiness(j))
	}
	return total
}

// LateJobs counts jobs completing after their due date.
func (s *Schedule) LateJobs(p *Problem) int {
	n := 0
	for _, j := range p.Jobs {
		if s.JobTardiness(j) > 0 {
			n++
		}
	}
	return n
}

// Utilization returns busy minutes over available machine minutes
// within the makespan, as a percentage.
func (s *Schedule) Utilization(p *Problem) float64 {
	mk := s.Makespan()
	if mk == 0 || len(p.Machines) == 0 {
		return 0
	}
	busy := 0
	for _, a := range s.Assignments {
		busy += a.End - a.Start
	}
	return 100 * float64(busy) / float64(mk*len(p.Machines))
}
