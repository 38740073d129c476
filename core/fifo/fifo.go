// Package fifo produces the naive first-come-first-served baseline
// schedule that all comparison metrics are measured against.
package fifo

import (
	"sort"

	"github.com/lucasgrd/shopsched/core/model"
)

// Generate builds a deterministic FIFO schedule: jobs in arrival then
// id order, each operation placed on the eligible machine offering the
// earliest calendar slot at or after the previous operation's end plus
// the minimum gap. No search is performed. Operations that fit no
// calendar window within the horizon are left out and the schedule is
// marked infeasible.
func Generate(p *model.Problem) *model.Schedule {
	jobs := make([]model.Job, len(p.Jobs))
	copy(jobs, p.Jobs)
	sort.SliceStable(jobs, func(i, j int) bool {
		if jobs[i].Arrival != jobs[j].Arrival {
			return jobs[i].Arrival < jobs[j].Arrival
		}
		return jobs[i].ID < jobs[j].ID
	})

	windows := make(map[string][]model.Interval, len(p.Machines))
	busy := make(map[string][]model.Interval, len(p.Machines))
	lastType := make(map[string]string, len(p.Machines))
	lastEnd := make(map[string]int, len(p.Machines))
	for _, m := range p.Machines {
		windows[m.ID] = m.OpenWindows(p.Horizon)
	}

	s := &model.Schedule{Status: model.StatusFeasible, Source: model.SourceFIFO}
	for _, job := range jobs {
		ready := 0
		for k, op := range job.Operations {
			earliest := ready
			if k > 0 {
				earliest += p.MinGap
			}
			bestMachine := ""
			bestStart := 0
			for _, mid := range op.EligibleMachines {
				min := earliest
				// Setup gaps anchor on the machine's last finished
				// operation, not on the job's readiness.
				if setup := p.Setup(lastType[mid], op.Type); setup > 0 && lastEnd[mid]+setup > min {
					min = lastEnd[mid] + setup
				}
				start, ok := model.EarliestSlot(windows[mid], busy[mid], min, op.Duration)
				if !ok {
					continue
				}
				if bestMachine == "" || start < bestStart {
					bestMachine = mid
					bestStart = start
				}
			}
			if bestMachine == "" {
				s.Status = model.StatusInfeasible
				return s
			}
			asn := model.Assignment{
				OperationID: op.ID,
				JobID:       job.ID,
				MachineID:   bestMachine,
				Start:       bestStart,
				End:         bestStart + op.Duration,
			}
			s.Assignments = append(s.Assignments, asn)
			busy[bestMachine] = append(busy[bestMachine], asn.Interval())
			sort.Slice(busy[bestMachine], func(i, j int) bool {
				return busy[bestMachine][i].Start < busy[bestMachine][j].Start
			})
			lastType[bestMachine] = op.Type
			if asn.End > lastEnd[bestMachine] {
				lastEnd[bestMachine] = asn.End
			}
			ready = asn.End
		}
	}
	return s
}
