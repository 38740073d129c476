package model

import (
	"errors"
	"fmt"
	"sort"
)

// ActionType enumerates the local schedule mutations the reactive
// agent may propose.
type ActionType int

const (
	ActionNone ActionType = iota
	ActionReassign
	ActionResequence
	ActionDelay
)

// String returns a human-readable representation of the action.
func (a ActionType) String() string {
	switch a {
	case ActionNone:
		return "none"
	case ActionReassign:
		return "reassign"
	case ActionResequence:
		return "resequence"
	case ActionDelay:
		return "delay"
	default:
		return "unknown"
	}
}

// Adjustment is a proposed local mutation to a committed schedule. It
// is either applied, yielding a new validated schedule, or discarded.
type Adjustment struct {
	Action        ActionType
	OperationID   string
	TargetMachine string // reassign target
	DelayMinutes  int    // delay amount
	Confidence    float64
	Rationale     string
}

// ErrUnknownOperation is returned when an adjustment targets an
// operation absent from the schedule.
var ErrUnknownOperation = errors.New("adjustment targets unknown operation")

// Apply produces a new schedule implementing the adjustment, then
// re-times every operation downstream of the change so that precedence
// and machine no-overlap hold again. The input schedule is not
// modified. Callers must still Validate the result before committing.
func (adj Adjustment) Apply(s *Schedule, p *Problem) (*Schedule, error) {
	if adj.Action == ActionNone {
		return s.Clone(), nil
	}
	op, ok := p.OperationByID(adj.OperationID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownOperation, adj.OperationID)
	}

	// Operation -> machine mapping after the action.
	machineOf := make(map[string]string, len(s.Assignments))
	earliest := make(map[string]int)
	for _, a := range s.Assignments {
		machineOf[a.OperationID] = a.MachineID
	}
	seqBias := make(map[string]int)

	switch adj.Action {
	case ActionReassign:
		if !op.Eligible(adj.TargetMachine) {
			return nil, fmt.Errorf("%w: %s on %s", ErrIneligibleMachine, op.ID, adj.TargetMachine)
		}
		machineOf[op.ID] = adj.TargetMachine
	case ActionDelay:
		if a, ok := s.AssignmentFor(op.ID); ok {
			earliest[op.ID] = a.Start + adj.DelayMinutes
		}
	case ActionResequence:
		// Push the operation behind its current machine successor by
		// biasing the rebuild order.
		seqBias[op.ID] = 1
	}

	return rebuild(s, p, machineOf, earliest, seqBias)
}

// rebuild re-times all assignments given an operation->machine mapping
// using list scheduling in the original start order. Operations that
// no longer fit inside a calendar window are pushed past it and
// flagged Overtime.
func rebuild(s *Schedule, p *Problem, machineOf map[string]string, earliest map[string]int, seqBias map[string]int) (*Schedule, error) {
	order := make([]Assignment, len(s.Assignments))
	copy(order, s.Assignments)
	sort.SliceStable(order, func(i, j int) bool {
		si := order[i].Start + seqBias[order[i].OperationID]*(order[i].End-order[i].Start+1)
		sj := order[j].Start + seqBias[order[j].OperationID]*(order[j].End-order[j].Start+1)
		if si != sj {
			return si < sj
		}
		return order[i].OperationID < order[j].OperationID
	})

	jobReady := make(map[string]int)
	busy := make(map[string][]Interval)
	windows := make(map[string][]Interval)
	for _, m := range p.Machines {
		windows[m.ID] = m.OpenWindows(p.Horizon)
	}

	// Schedule job operations in sequence order regardless of the
	// machine ordering above.
	type pending struct {
		op      Operation
		machine string
	}
	nextSeq := make(map[string]int)
	queue := make(map[string][]pending)
	for _, j := range p.Jobs {
		nextSeq[j.ID] = 0
		for _, o := range j.Operations {
			queue[j.ID] = append(queue[j.ID], pending{op: o, machine: machineOf[o.ID]})
		}
	}

	out := s.Clone()
	out.Assignments = out.Assignments[:0]
	out.Source = SourceAdjusted

	placed := make(map[string]bool)
	for progress := true; progress; {
		progress = false
		for _, a := range order {
			if placed[a.OperationID] {
				continue
			}
			op, ok := p.OperationByID(a.OperationID)
			if !ok {
				return nil, fmt.Errorf("%w: %s", ErrUnknownOperation, a.OperationID)
			}
			q := queue[op.JobID]
			idx := nextSeq[op.JobID]
			if idx >= len(q) || q[idx].op.ID != op.ID {
				continue // an earlier operation of this job is not placed yet
			}
			machineID := q[idx].machine
			min := jobReady[op.JobID]
			if idx > 0 {
				min += p.MinGap
			}
			if e, ok := earliest[op.ID]; ok && e > min {
				min = e
			}
			start, overtime := placeOrOvertime(windows[machineID], busy[machineID], min, op.Duration, p.Horizon)
			asn := Assignment{
				OperationID: op.ID,
				JobID:       op.JobID,
				MachineID:   machineID,
				Start:       start,
				End:         start + op.Duration,
				Overtime:    overtime,
			}
			out.Assignments = append(out.Assignments, asn)
			busy[machineID] = insertBusy(busy[machineID], asn.Interval())
			jobReady[op.JobID] = asn.End
			nextSeq[op.JobID] = idx + 1
			placed[op.ID] = true
			progress = true
		}
	}
	if len(out.Assignments) != len(s.Assignments) {
		return nil, errors.New("rebuild left operations unplaced")
	}
	return out, nil
}

// placeOrOvertime tries a calendar slot first and falls back to the
// first gap after all busy intervals, flagged as overtime.
func placeOrOvertime(windows, busy []Interval, earliest, duration, horizon int) (int, bool) {
	if start, ok := EarliestSlot(windows, busy, earliest, duration); ok {
		return start, false
	}
	start := earliest
	for _, b := range busy {
		if b.Overlaps(Interval{Start: start, End: start + duration}) {
			start = b.End
		}
	}
	return start, true
}

func insertBusy(busy []Interval, iv Interval) []Interval {
	busy = append(busy, iv)
	sort.Slice(busy, func(i, j int) bool { return busy[i].Start < busy[j].Start })
	return busy
}
