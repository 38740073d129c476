package agent

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/lucasgrd/shopsched/core/model"
	"github.com/lucasgrd/shopsched/core/tracker"
)

func testProblem() *model.Problem {
	p := &model.Problem{
		Jobs: []model.Job{
			{
				ID: "J1", DueDate: 100, Weight: 10,
				Operations: []model.Operation{
					{ID: "J1-1", JobID: "J1", Seq: 0, EligibleMachines: []string{"M1", "M2"}, Duration: 10},
					{ID: "J1-2", JobID: "J1", Seq: 1, EligibleMachines: []string{"M2"}, Duration: 20},
				},
			},
			{
				ID: "J2", DueDate: 100, Weight: 1,
				Operations: []model.Operation{
					{ID: "J2-1", JobID: "J2", Seq: 0, EligibleMachines: []string{"M1", "M2"}, Duration: 15},
				},
			},
		},
		Machines: []model.Machine{{ID: "M1"}, {ID: "M2"}, {ID: "M3"}},
		Horizon:  1000,
	}
	p.Reindex()
	return p
}

func testSchedule() *model.Schedule {
	return &model.Schedule{
		Assignments: []model.Assignment{
			{OperationID: "J1-1", JobID: "J1", MachineID: "M1", Start: 0, End: 10},
			{OperationID: "J1-2", JobID: "J1", MachineID: "M2", Start: 10, End: 30},
			{OperationID: "J2-1", JobID: "J2", MachineID: "M1", Start: 10, End: 25},
		},
		Status: model.StatusOptimal,
		Source: model.SourceSolver,
	}
}

func newTestAgent(t *testing.T) *Agent {
	t.Helper()
	pol, err := NewPolicy(KindPPO, 0.01)
	if err != nil {
		t.Fatalf("new policy: %v", err)
	}
	return New(pol, Config{Kind: "ppo"}, nil)
}

// A breakdown of a machine nothing is scheduled on must not trigger
// any schedule change.
func TestRecommendNoActionForIdleMachine(t *testing.T) {
	p := testProblem()
	s := testSchedule()
	tr := tracker.New(p)
	defer tr.Close()
	if err := tr.SetBaseline(s); err != nil {
		t.Fatalf("baseline: %v", err)
	}

	ev := model.NewDisruptionEvent(model.MachineBreakdown, "M3", 0, 120)
	obs, err := tr.Report(ev)
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if len(obs.AffectedOps) != 0 {
		t.Fatalf("affected = %v, want none", obs.AffectedOps)
	}

	adj, err := newTestAgent(t).Recommend(obs, tr.Current(), p)
	if err != nil {
		t.Fatalf("recommend: %v", err)
	}
	if adj.Action != model.ActionNone {
		t.Errorf("action = %s, want none", adj.Action)
	}
	if adj.Confidence != 1 {
		t.Errorf("confidence = %g, want 1", adj.Confidence)
	}
	if !strings.Contains(adj.Rationale, "no action") {
		t.Errorf("rationale %q does not explain the no-op", adj.Rationale)
	}
}

func TestRecommendValidAdjustment(t *testing.T) {
	p := testProblem()
	s := testSchedule()
	tr := tracker.New(p)
	defer tr.Close()
	_ = tr.SetBaseline(s)

	ev := model.NewDisruptionEvent(model.MachineBreakdown, "M1", 0, 60)
	obs, err := tr.Report(ev)
	if err != nil {
		t.Fatalf("report: %v", err)
	}

	adj, err := newTestAgent(t).Recommend(obs, tr.Current(), p)
	if err != nil {
		t.Fatalf("recommend: %v", err)
	}
	if adj.Action == model.ActionNone {
		t.Fatal("disrupted operations got no action")
	}
	if adj.Confidence <= 0 || adj.Confidence > 1 {
		t.Errorf("confidence = %g, want (0,1]", adj.Confidence)
	}
	next, err := adj.Apply(tr.Current(), p)
	if err != nil {
		t.Fatalf("apply recommendation: %v", err)
	}
	if err := model.Validate(next, p); err != nil {
		t.Fatalf("recommended schedule invalid: %v", err)
	}
}

func TestRecommendAllFrozen(t *testing.T) {
	p := testProblem()
	obs := tracker.Observation{
		Event:       model.NewDisruptionEvent(model.MachineBreakdown, "M1", 0, 60),
		AffectedOps: []string{"J1-1", "J2-1"},
		FrozenOps:   map[string]bool{"J1-1": true, "J2-1": true},
		Makespan:    30,
	}
	_, err := newTestAgent(t).Recommend(obs, testSchedule(), p)
	if !errors.Is(err, ErrNoValidAdjustment) {
		t.Fatalf("want ErrNoValidAdjustment, got %v", err)
	}
}

func TestRankConfidence(t *testing.T) {
	p := testProblem()
	s := testSchedule()
	obs := tracker.Observation{
		Event:       model.NewDisruptionEvent(model.MachineBreakdown, "M1", 0, 60),
		AffectedOps: []string{"J1-1", "J2-1"},
		FrozenOps:   map[string]bool{},
		Makespan:    30,
		Utilization: 75,
	}
	ranked := newTestAgent(t).Rank(obs, s, p)
	if len(ranked) == 0 {
		t.Fatal("no candidates ranked")
	}
	sum := 0.0
	for i, c := range ranked {
		sum += c.Confidence
		if i > 0 && c.Score > ranked[i-1].Score {
			t.Error("ranking not sorted by score")
		}
	}
	if math.Abs(sum-1) > 1e-9 {
		t.Errorf("confidence sum = %g, want 1", sum)
	}
}

func TestRankRespectsCandidateCap(t *testing.T) {
	p := testProblem()
	s := testSchedule()
	obs := tracker.Observation{
		Event:       model.NewDisruptionEvent(model.MachineBreakdown, "M1", 0, 60),
		AffectedOps: []string{"J1-1", "J2-1"},
		FrozenOps:   map[string]bool{},
		Makespan:    30,
	}
	pol, _ := NewPolicy(KindPPO, 0.01)
	a := New(pol, Config{Kind: "ppo", MaxCandidates: 2}, nil)
	if ranked := a.Rank(obs, s, p); len(ranked) > 2 {
		t.Fatalf("ranked %d candidates, cap is 2", len(ranked))
	}
}

func TestFeaturize(t *testing.T) {
	p := testProblem()
	s := testSchedule()
	obs := tracker.Observation{Makespan: 30, Utilization: 75, Tardiness: 6}
	adj := model.Adjustment{Action: model.ActionDelay, OperationID: "J1-1", DelayMinutes: 15}
	f := Featurize(obs, adj, s, p)
	if len(f) != featureCount {
		t.Fatalf("feature count = %d, want %d", len(f), featureCount)
	}
	if f[0] != 0 || f[1] != 0 || f[2] != 1 {
		t.Errorf("action one-hot = %v", f[:3])
	}
	if f[7] != 0.5 {
		t.Errorf("delay feature = %g, want 0.5", f[7])
	}
}
