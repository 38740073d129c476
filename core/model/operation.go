package model

import "fmt"

// Operation is the atomic unit of work inside a Job. All times are
// integer minutes relative to the scheduling horizon start.
type Operation struct {
	ID               string
	JobID            string
	Seq              int // position within the owning job, strictly increasing
	EligibleMachines []string
	Duration         int    // standard processing time in minutes
	Type             string // machine-type tag, keys the setup matrix
}

// Eligible reports whether the operation may run on the given machine.
func (o Operation) Eligible(machineID string) bool {
	for _, id := range o.EligibleMachines {
		if id == machineID {
			return true
		}
	}
	return false
}

// Validate checks that the operation definition is sound.
func (o Operation) Validate() error {
	if o.Duration <= 0 {
		return fmt.Errorf("operation %s: duration must be positive", o.ID)
	}
	if len(o.EligibleMachines) == 0 {
		return fmt.Errorf("operation %s: empty eligible machine set", o.ID)
	}
	return nil
}

// Priority classifies the urgency of a job. The numeric tardiness
// weight attached to each level is configurable, see PriorityWeights.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityMedium
	PriorityHigh
	PriorityUrgent
)

// String returns a human-readable representation of the priority.
func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityMedium:
		return "medium"
	case PriorityHigh:
		return "high"
	case PriorityUrgent:
		return "urgent"
	default:
		return "unknown"
	}
}

// ParsePriority converts a textual priority level to its enum value.
func ParsePriority(s string) (Priority, error) {
	switch s {
	case "low":
		return PriorityLow, nil
	case "medium":
		return PriorityMedium, nil
	case "high":
		return PriorityHigh, nil
	case "urgent":
		return PriorityUrgent, nil
	default:
		return PriorityLow, fmt.Errorf("unknown priority %q", s)
	}
}

// PriorityWeights maps each priority level to its tardiness weight in
// the solver objective. Defaults follow the common urgent-first ratios
// but deployments may override them through configuration.
type PriorityWeights struct {
	Urgent float64 `json:"urgent"`
	High   float64 `json:"high"`
	Medium float64 `json:"medium"`
	Low    float64 `json:"low"`
}

// DefaultPriorityWeights returns the default weighting.
func DefaultPriorityWeights() PriorityWeights {
	return PriorityWeights{Urgent: 100, High: 50, Medium: 10, Low: 1}
}

// Weight resolves the numeric weight for a priority level.
func (w PriorityWeights) Weight(p Priority) float64 {
	switch p {
	case PriorityUrgent:
		return w.Urgent
	case PriorityHigh:
		return w.High
	case PriorityMedium:
		return w.Medium
	default:
		return w.Low
	}
}

// Job is an ordered sequence of operations sharing one due date and
// one priority weight. Due date and weight are immutable once
// scheduling begins.
type Job struct {
	ID         string
	Priority   Priority
	Weight     float64 // resolved tardiness weight
	DueDate    int     // minutes from horizon start
	Arrival    int     // creation order anchor for the FIFO baseline
	Operations []Operation
}

// LastOperation returns the final operation of the job. The job must
// contain at least one operation.
func (j Job) LastOperation() Operation {
	return j.Operations[len(j.Operations)-1]
}
