// Package tracker maintains the single currently-active schedule,
// detects the impact of disruption events, and mediates adjustment
// commits. The active schedule is an immutable snapshot swapped
// atomically after validation, never edited field by field.
package tracker

import (
	"errors"
	"fmt"
	"sync"

	"golang.org/x/time/rate"

	"github.com/lucasgrd/shopsched/core/logger"
	"github.com/lucasgrd/shopsched/core/model"
	"github.com/lucasgrd/shopsched/internal/eventbus"
)

// State is the lifecycle stage of the active schedule.
type State int

const (
	StateDraft State = iota
	StateOptimized
	StateDisrupted
	StateAdjusted
	StateArchived
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StateDraft:
		return "draft"
	case StateOptimized:
		return "optimized"
	case StateDisrupted:
		return "disrupted"
	case StateAdjusted:
		return "adjusted"
	case StateArchived:
		return "archived"
	default:
		return "unknown"
	}
}

// StateEvent is published on every lifecycle transition.
type StateEvent struct {
	From   State
	To     State
	Reason string
}

// Observation is the environment snapshot handed to the reactive
// agent when a disruption is reported.
type Observation struct {
	Event       model.DisruptionEvent
	AffectedOps []string
	FrozenOps   map[string]bool
	Utilization float64
	Makespan    int
	Tardiness   int
	PendingOps  int
}

var (
	// ErrNoActiveSchedule is returned when an operation requires a
	// committed schedule and none exists.
	ErrNoActiveSchedule = errors.New("no active schedule")
	// ErrArchived is returned when the tracked run has been
	// superseded.
	ErrArchived = errors.New("schedule run archived")
)

// Tracker wraps the active schedule. All methods are safe for
// concurrent use.
type Tracker struct {
	mu         sync.Mutex
	problem    *model.Problem
	current    *model.Schedule
	state      State
	now        int // wall-clock position in schedule minutes
	committing bool
	queued     []model.DisruptionEvent

	bus     *eventbus.Bus[StateEvent]
	log     logger.Logger
	resolve *rate.Limiter
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithLogger sets the tracker logger.
func WithLogger(l logger.Logger) Option {
	return func(t *Tracker) { t.log = l }
}

// WithResolveLimit caps how often ShouldResolve grants a full Tier 1
// re-solve during disruption storms.
func WithResolveLimit(l *rate.Limiter) Option {
	return func(t *Tracker) { t.resolve = l }
}

// New creates a tracker for one scheduling run of the given problem.
func New(p *model.Problem, opts ...Option) *Tracker {
	t := &Tracker{
		problem: p,
		state:   StateDraft,
		bus:     eventbus.New[StateEvent](),
		log:     logger.NopLogger{},
		resolve: rate.NewLimiter(rate.Every(0), 1),
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// Events exposes the lifecycle event stream.
func (t *Tracker) Events() <-chan StateEvent { return t.bus.Subscribe() }

// Close releases the event bus.
func (t *Tracker) Close() { t.bus.Close() }

func (t *Tracker) transition(to State, reason string) {
	from := t.state
	t.state = to
	t.log.Debugw("schedule state transition", map[string]any{
		"from": from.String(), "to": to.String(), "reason": reason,
	})
	t.bus.Publish(StateEvent{From: from, To: to, Reason: reason})
}

// State returns the current lifecycle state.
func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Current returns the active schedule snapshot. Callers must treat the
// returned schedule as read-only.
func (t *Tracker) Current() *model.Schedule {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

// SetBaseline installs a Tier 1 schedule as the active snapshot,
// validating it first. A previous snapshot is superseded.
func (t *Tracker) SetBaseline(s *model.Schedule) error {
	if err := model.Validate(s, t.problem); err != nil {
		return fmt.Errorf("baseline rejected: %w", err)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == StateArchived {
		return ErrArchived
	}
	t.current = s
	t.transition(StateOptimized, "tier1 solve")
	return nil
}

// Advance moves the wall-clock position. Operations started or
// completed before now become frozen: immutable for any adjustment.
func (t *Tracker) Advance(now int) {
	t.mu.Lock()
	t.now = now
	t.mu.Unlock()
}

// Archive terminates this run. Further reports and commits fail.
func (t *Tracker) Archive() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != StateArchived {
		t.transition(StateArchived, "superseded")
	}
}

// frozenSet computes operations whose start precedes the wall clock.
func (t *Tracker) frozenSet() map[string]bool {
	frozen := make(map[string]bool)
	if t.current == nil {
		return frozen
	}
	for _, a := range t.current.Assignments {
		if a.Start < t.now {
			frozen[a.OperationID] = true
		}
	}
	return frozen
}

// Report consumes a disruption event and builds the observation for
// the reactive agent. Events arriving while a commit is in flight are
// queued; Drain retrieves them for reprocessing against the
// post-commit snapshot.
func (t *Tracker) Report(ev model.DisruptionEvent) (Observation, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == StateArchived {
		return Observation{}, ErrArchived
	}
	if t.current == nil {
		return Observation{}, ErrNoActiveSchedule
	}
	if t.committing {
		t.queued = append(t.queued, ev)
		return Observation{}, errQueued
	}
	return t.observe(ev), nil
}

var errQueued = errors.New("commit in flight, event queued")

// ErrQueued reports whether a Report error means the event was queued
// rather than rejected.
func ErrQueued(err error) bool { return errors.Is(err, errQueued) }

func (t *Tracker) observe(ev model.DisruptionEvent) Observation {
	frozen := t.frozenSet()
	window := ev.Window()
	affected := make([]string, 0)
	explicit := make(map[string]bool, len(ev.AffectedOps))
	for _, id := range ev.AffectedOps {
		explicit[id] = true
	}
	for _, a := range t.current.Assignments {
		if frozen[a.OperationID] {
			continue
		}
		switch {
		case explicit[a.OperationID]:
			affected = append(affected, a.OperationID)
		case len(explicit) > 0:
			// explicit set overrides resource matching
		case a.MachineID == ev.Resource && a.Interval().Overlaps(window):
			affected = append(affected, a.OperationID)
		case a.JobID == ev.Resource:
			affected = append(affected, a.OperationID)
		}
	}

	t.transition(StateDisrupted, ev.Type.String())
	return Observation{
		Event:       ev,
		AffectedOps: affected,
		FrozenOps:   frozen,
		Utilization: t.current.Utilization(t.problem),
		Makespan:    t.current.Makespan(),
		Tardiness:   t.current.TotalTardiness(t.problem),
		PendingOps:  t.problem.OperationCount() - len(frozen),
	}
}

// Commit atomically replaces the active snapshot with the schedule
// resulting from the adjustment, after validating the hard
// invariants. Only one commit runs at a time; disruptions reported
// mid-commit are queued for Drain.
func (t *Tracker) Commit(adj model.Adjustment) (*model.Schedule, error) {
	t.mu.Lock()
	if t.state == StateArchived {
		t.mu.Unlock()
		return nil, ErrArchived
	}
	if t.current == nil {
		t.mu.Unlock()
		return nil, ErrNoActiveSchedule
	}
	if t.committing {
		t.mu.Unlock()
		return nil, errors.New("commit already in flight")
	}
	t.committing = true
	base := t.current
	t.mu.Unlock()

	next, err := adj.Apply(base, t.problem)
	if err == nil {
		err = validateAdjusted(next, t.problem)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.committing = false
	if err != nil {
		return nil, fmt.Errorf("adjustment rejected: %w", err)
	}
	t.current = next
	t.transition(StateAdjusted, adj.Action.String())
	return next, nil
}

// validateAdjusted applies the standard invariants; overtime flags are
// tolerated as soft violations on adjusted schedules.
func validateAdjusted(s *model.Schedule, p *model.Problem) error {
	return model.Validate(s, p)
}

// Drain returns and clears disruption events queued during a commit.
func (t *Tracker) Drain() []model.DisruptionEvent {
	t.mu.Lock()
	defer t.mu.Unlock()
	q := t.queued
	t.queued = nil
	return q
}

// ShouldResolve reports whether a full Tier 1 re-solve is currently
// allowed under the rate limit.
func (t *Tracker) ShouldResolve() bool {
	return t.resolve.Allow()
}
