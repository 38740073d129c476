// Package problem converts external job/machine/shift records into the
// canonical scheduling problem consumed by every tier.
package problem

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/lucasgrd/shopsched/core/model"
)

// Model validation failures. Both fail fast before any solve.
var (
	ErrNoEligibleMachine = errors.New("operation has no eligible machine")
	ErrInvalidSequence   = errors.New("job operation sequence is not contiguous and strictly increasing")
	ErrUnknownMachine    = errors.New("eligible machine not declared")
	ErrEmptyProblem      = errors.New("problem contains no jobs or no machines")
)

// OperationInput mirrors the external operation record.
type OperationInput struct {
	ID               string   `json:"id"`
	Seq              int      `json:"seq"`
	EligibleMachines []string `json:"eligible_machines"`
	DurationMinutes  int      `json:"duration_minutes"`
	Type             string   `json:"type,omitempty"`
}

// JobInput mirrors the external job record. DueDate and Arrival are
// minutes from the horizon start.
type JobInput struct {
	ID         string           `json:"id"`
	Priority   string           `json:"priority,omitempty"`
	DueDate    int              `json:"due_date"`
	Arrival    int              `json:"arrival,omitempty"`
	Operations []OperationInput `json:"operations"`
}

// MachineInput mirrors the external machine record.
type MachineInput struct {
	ID       string              `json:"id"`
	Calendar []model.ShiftWindow `json:"calendar,omitempty"`
}

// SetupInput is one entry of the optional type-to-type setup matrix.
type SetupInput struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Minutes int    `json:"minutes"`
}

// Input is the full external problem description.
type Input struct {
	Jobs        []JobInput     `json:"jobs"`
	Machines    []MachineInput `json:"machines"`
	SetupMatrix []SetupInput   `json:"setup_matrix,omitempty"`
}

// Options tune the canonical problem produced by Build.
type Options struct {
	MinGap          int // minimum gap between consecutive ops of a job
	HorizonMinutes  int // defaults to 28 days
	PriorityWeights model.PriorityWeights
}

// DefaultOptions returns the builder defaults.
func DefaultOptions() Options {
	return Options{
		MinGap:          0,
		HorizonMinutes:  28 * model.MinutesPerDay,
		PriorityWeights: model.DefaultPriorityWeights(),
	}
}

// Build validates the input and produces a canonical Problem. It is a
// pure transformation with no side effects.
func Build(in Input, opts Options) (*model.Problem, error) {
	if len(in.Jobs) == 0 || len(in.Machines) == 0 {
		return nil, ErrEmptyProblem
	}
	if opts.HorizonMinutes <= 0 {
		opts.HorizonMinutes = 28 * model.MinutesPerDay
	}
	if opts.PriorityWeights == (model.PriorityWeights{}) {
		opts.PriorityWeights = model.DefaultPriorityWeights()
	}

	p := &model.Problem{
		MinGap:      opts.MinGap,
		Horizon:     opts.HorizonMinutes,
		SetupMatrix: make(map[model.TypePair]int, len(in.SetupMatrix)),
	}

	known := make(map[string]bool, len(in.Machines))
	for _, m := range in.Machines {
		if known[m.ID] {
			return nil, fmt.Errorf("duplicate machine id %s", m.ID)
		}
		known[m.ID] = true
		p.Machines = append(p.Machines, model.Machine{ID: m.ID, Calendar: m.Calendar})
	}

	for _, ji := range in.Jobs {
		prio := model.PriorityMedium
		if ji.Priority != "" {
			var err error
			if prio, err = model.ParsePriority(ji.Priority); err != nil {
				return nil, fmt.Errorf("job %s: %w", ji.ID, err)
			}
		}
		job := model.Job{
			ID:       ji.ID,
			Priority: prio,
			Weight:   opts.PriorityWeights.Weight(prio),
			DueDate:  ji.DueDate,
			Arrival:  ji.Arrival,
		}
		for k, oi := range ji.Operations {
			if oi.Seq != k {
				return nil, fmt.Errorf("%w: job %s operation %s has seq %d, want %d", ErrInvalidSequence, ji.ID, oi.ID, oi.Seq, k)
			}
			if len(oi.EligibleMachines) == 0 {
				return nil, fmt.Errorf("%w: job %s operation %s", ErrNoEligibleMachine, ji.ID, oi.ID)
			}
			for _, mid := range oi.EligibleMachines {
				if !known[mid] {
					return nil, fmt.Errorf("%w: %s (operation %s)", ErrUnknownMachine, mid, oi.ID)
				}
			}
			op := model.Operation{
				ID:               oi.ID,
				JobID:            ji.ID,
				Seq:              oi.Seq,
				EligibleMachines: oi.EligibleMachines,
				Duration:         oi.DurationMinutes,
				Type:             oi.Type,
			}
			if err := op.Validate(); err != nil {
				return nil, err
			}
			job.Operations = append(job.Operations, op)
		}
		if len(job.Operations) == 0 {
			return nil, fmt.Errorf("job %s has no operations", ji.ID)
		}
		p.Jobs = append(p.Jobs, job)
	}

	for _, s := range in.SetupMatrix {
		p.SetupMatrix[model.TypePair{From: s.From, To: s.To}] = s.Minutes
	}

	p.Reindex()
	return p, nil
}

// LoadInput reads a JSON problem description from disk.
func LoadInput(path string) (Input, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Input{}, err
	}
	var in Input
	if err := json.Unmarshal(b, &in); err != nil {
		return Input{}, fmt.Errorf("parse problem input: %w", err)
	}
	return in, nil
}
