package fifo

import (
	"reflect"
	"testing"

	"github.com/lucasgrd/shopsched/core/model"
)

func testProblem() *model.Problem {
	p := &model.Problem{
		Jobs: []model.Job{
			{
				ID: "J2", DueDate: 100, Arrival: 10,
				Operations: []model.Operation{
					{ID: "J2-1", JobID: "J2", Seq: 0, EligibleMachines: []string{"M1", "M2"}, Duration: 20},
				},
			},
			{
				ID: "J1", DueDate: 100, Arrival: 0,
				Operations: []model.Operation{
					{ID: "J1-1", JobID: "J1", Seq: 0, EligibleMachines: []string{"M1"}, Duration: 30},
					{ID: "J1-2", JobID: "J1", Seq: 1, EligibleMachines: []string{"M1", "M2"}, Duration: 10},
				},
			},
		},
		Machines: []model.Machine{{ID: "M1"}, {ID: "M2"}},
		Horizon:  1000,
	}
	p.Reindex()
	return p
}

func TestGenerateValid(t *testing.T) {
	p := testProblem()
	s := Generate(p)
	if s.Status != model.StatusFeasible {
		t.Fatalf("status = %s, want feasible", s.Status)
	}
	if s.Source != model.SourceFIFO {
		t.Fatalf("source = %s, want fifo", s.Source)
	}
	if err := model.Validate(s, p); err != nil {
		t.Fatalf("fifo schedule invalid: %v", err)
	}
}

func TestGenerateArrivalOrder(t *testing.T) {
	s := Generate(testProblem())
	// J1 arrived first: its first operation claims M1 at time zero.
	a, ok := s.AssignmentFor("J1-1")
	if !ok || a.Start != 0 || a.MachineID != "M1" {
		t.Fatalf("J1-1 = %+v, want M1 at 0", a)
	}
	// J2 takes the free machine instead of queueing behind J1.
	b, _ := s.AssignmentFor("J2-1")
	if b.MachineID != "M2" || b.Start != 0 {
		t.Fatalf("J2-1 = %+v, want M2 at 0", b)
	}
}

func TestGenerateDeterministic(t *testing.T) {
	p := testProblem()
	first := Generate(p)
	for i := 0; i < 5; i++ {
		if next := Generate(p); !reflect.DeepEqual(first.Assignments, next.Assignments) {
			t.Fatal("fifo output varies between runs")
		}
	}
}

func TestGenerateSetupTimes(t *testing.T) {
	p := &model.Problem{
		Jobs: []model.Job{
			{ID: "J1", DueDate: 100, Operations: []model.Operation{
				{ID: "J1-1", JobID: "J1", Seq: 0, EligibleMachines: []string{"M1"}, Duration: 10, Type: "mill"},
			}},
			{ID: "J2", DueDate: 100, Arrival: 1, Operations: []model.Operation{
				{ID: "J2-1", JobID: "J2", Seq: 0, EligibleMachines: []string{"M1"}, Duration: 10, Type: "drill"},
			}},
		},
		Machines:    []model.Machine{{ID: "M1"}},
		SetupMatrix: map[model.TypePair]int{{From: "mill", To: "drill"}: 5},
		Horizon:     1000,
	}
	p.Reindex()
	s := Generate(p)
	a, _ := s.AssignmentFor("J2-1")
	if a.Start != 15 {
		t.Fatalf("J2-1 start = %d, want 15 (10 processing + 5 setup)", a.Start)
	}
}

func TestGenerateInfeasible(t *testing.T) {
	p := &model.Problem{
		Jobs: []model.Job{
			{ID: "J1", DueDate: 100, Operations: []model.Operation{
				// Longer than any calendar window.
				{ID: "J1-1", JobID: "J1", Seq: 0, EligibleMachines: []string{"M1"}, Duration: 120},
			}},
		},
		Machines: []model.Machine{{ID: "M1", Calendar: []model.ShiftWindow{{Weekday: 0, StartMin: 0, EndMin: 60}}}},
		Horizon:  model.MinutesPerDay,
	}
	p.Reindex()
	if s := Generate(p); s.Status != model.StatusInfeasible {
		t.Fatalf("status = %s, want infeasible", s.Status)
	}
}
