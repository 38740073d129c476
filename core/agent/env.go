package agent

import (
	"math/rand"

	"github.com/lucasgrd/shopsched/core/model"
	"github.com/lucasgrd/shopsched/core/tracker"
)

// Environment simulates disruption episodes against an immutable
// snapshot of a problem and baseline schedule. Each training task owns
// its own Environment; nothing is shared with live inference.
type Environment struct {
	problem  *model.Problem
	baseline *model.Schedule
	rng      *rand.Rand

	current *model.Schedule
	track   *tracker.Tracker
	steps   int

	// EventsPerEpisode controls episode length.
	EventsPerEpisode int
}

// NewEnvironment creates a training environment. The baseline schedule
// is cloned; the caller's copy is never mutated.
func NewEnvironment(p *model.Problem, baseline *model.Schedule, seed int64) *Environment {
	return &Environment{
		problem:          p,
		baseline:         baseline.Clone(),
		rng:              rand.New(rand.NewSource(seed)),
		EventsPerEpisode: 4,
	}
}

// Reset starts a new episode from the baseline snapshot.
func (e *Environment) Reset() {
	if e.track != nil {
		e.track.Close()
	}
	e.current = e.baseline.Clone()
	e.track = tracker.New(e.problem)
	_ = e.track.SetBaseline(e.current)
	e.steps = 0
}

// Done reports whether the episode has consumed all its events.
func (e *Environment) Done() bool { return e.steps >= e.EventsPerEpisode }

// Observe draws a random disruption and reports it to the episode
// tracker.
func (e *Environment) Observe() (tracker.Observation, error) {
	e.steps++
	ev := e.randomEvent()
	return e.track.Report(ev)
}

// Current returns the episode's active schedule.
func (e *Environment) Current() *model.Schedule { return e.track.Current() }

// Problem returns the immutable problem snapshot.
func (e *Environment) Problem() *model.Problem { return e.problem }

// Step commits the adjustment and returns the per-step reward:
// positive for makespan reduction and newly on-time jobs, negative
// for added tardiness and idle time. ActionNone is a no-op with zero
// reward.
func (e *Environment) Step(adj model.Adjustment) (float64, error) {
	if adj.Action == model.ActionNone {
		return 0, nil
	}
	prev := e.track.Current()
	next, err := e.track.Commit(adj)
	if err != nil {
		return invalidPenalty, err
	}
	return e.reward(prev, next), nil
}

const (
	makespanGain     = 1.0
	onTimeBonus      = 5.0
	tardinessPenalty = 0.5
	idlePenalty      = 0.1
	invalidPenalty   = -2.0
)

func (e *Environment) reward(prev, next *model.Schedule) float64 {
	dMakespan := float64(prev.Makespan() - next.Makespan())
	dLate := float64(prev.LateJobs(e.problem) - next.LateJobs(e.problem))
	dTardiness := float64(next.TotalTardiness(e.problem) - prev.TotalTardiness(e.problem))
	dIdle := float64(idleMinutes(next) - idleMinutes(prev))
	return makespanGain*dMakespan + onTimeBonus*dLate - tardinessPenalty*dTardiness - idlePenalty*dIdle
}

// idleMinutes sums per-machine gaps between consecutive assignments.
func idleMinutes(s *model.Schedule) int {
	idle := 0
	for _, asns := range s.ByMachine() {
		for i := 1; i < len(asns); i++ {
			idle += asns[i].Start - asns[i-1].End
		}
	}
	return idle
}

// randomEvent draws a disruption uniformly over machines and types.
func (e *Environment) randomEvent() model.DisruptionEvent {
	mk := e.track.Current().Makespan()
	if mk == 0 {
		mk = 1
	}
	types := []model.DisruptionType{
		model.MachineBreakdown,
		model.ProcessingDelay,
		model.MaterialShortage,
		model.WorkerAbsence,
	}
	t := types[e.rng.Intn(len(types))]
	m := e.problem.Machines[e.rng.Intn(len(e.problem.Machines))]
	start := e.rng.Intn(mk)
	duration := 30 + e.rng.Intn(90)
	return model.NewDisruptionEvent(t, m.ID, start, duration)
}
