package model

import (
	"errors"
	"fmt"
)

// Hard-constraint violations reported by Validate.
var (
	ErrIneligibleMachine = errors.New("operation assigned to ineligible machine")
	ErrMachineOverlap    = errors.New("overlapping assignments on machine")
	ErrPrecedence        = errors.New("job precedence violated")
	ErrOutsideCalendar   = errors.New("assignment outside working calendar")
	ErrUnassigned        = errors.New("operation not assigned")
)

// Validate checks a schedule against the hard manufacturing
// constraints of the problem: every operation assigned to an eligible
// machine, per-machine no-overlap, within-job precedence with the
// configured minimum gap, and calendar containment. Assignments
// flagged Overtime are exempt from calendar containment; the flag is a
// soft violation handled by scoring, not here.
func Validate(s *Schedule, p *Problem) error {
	assigned := make(map[string]Assignment, len(s.Assignments))
	for _, a := range s.Assignments {
		assigned[a.OperationID] = a
	}

	for _, j := range p.Jobs {
		prevEnd := -1
		for _, o := range j.Operations {
			a, ok := assigned[o.ID]
			if !ok {
				return fmt.Errorf("%w: %s", ErrUnassigned, o.ID)
			}
			if !o.Eligible(a.MachineID) {
				return fmt.Errorf("%w: %s on %s", ErrIneligibleMachine, o.ID, a.MachineID)
			}
			if a.End-a.Start != o.Duration {
				return fmt.Errorf("assignment %s: interval %d does not match duration %d", o.ID, a.End-a.Start, o.Duration)
			}
			if prevEnd >= 0 && a.Start < prevEnd+p.MinGap {
				return fmt.Errorf("%w: %s starts at %d before %d", ErrPrecedence, o.ID, a.Start, prevEnd+p.MinGap)
			}
			prevEnd = a.End
		}
	}

	byMachine := s.ByMachine()
	for machineID, asns := range byMachine {
		m, ok := p.MachineByID(machineID)
		if !ok {
			return fmt.Errorf("unknown machine %s", machineID)
		}
		windows := m.OpenWindows(p.Horizon)
		for i, a := range asns {
			if i > 0 && asns[i-1].End > a.Start {
				return fmt.Errorf("%w: %s and %s on %s", ErrMachineOverlap, asns[i-1].OperationID, a.OperationID, machineID)
			}
			if a.Overtime {
				continue
			}
			if !insideWindows(windows, a.Interval()) {
				return fmt.Errorf("%w: %s [%d,%d) on %s", ErrOutsideCalendar, a.OperationID, a.Start, a.End, machineID)
			}
		}
	}
	return nil
}

func insideWindows(windows []Interval, iv Interval) bool {
	for _, w := range windows {
		if w.Contains(iv) {
			return true
		}
	}
	return false
}

// EarliestSlot finds the earliest start within the open windows at or
// after earliest where an operation of the given duration fits wholly
// inside one window and does not overlap any busy interval. The busy
// slice must be sorted by start. Returns ok=false when no slot exists
// before the windows are exhausted.
func EarliestSlot(windows, busy []Interval, earliest, duration int) (int, bool) {
	for _, w := range windows {
		start := w.Start
		if earliest > start {
			start = earliest
		}
		for start+duration <= w.End {
			conflict := false
			for _, b := range busy {
				if b.Overlaps(Interval{Start: start, End: start + duration}) {
					conflict = true
					if b.End > start {
						start = b.End
					}
					break
				}
			}
			if !conflict {
				return start, true
			}
		}
	}
	return 0, false
}
