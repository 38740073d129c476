package model

import (
	"errors"
	"testing"
)

func testProblem() *Problem {
	p := &Problem{
		Jobs: []Job{
			{
				ID: "J1", Priority: PriorityHigh, Weight: 50, DueDate: 40,
				Operations: []Operation{
					{ID: "J1-1", JobID: "J1", Seq: 0, EligibleMachines: []string{"M1", "M2"}, Duration: 10},
					{ID: "J1-2", JobID: "J1", Seq: 1, EligibleMachines: []string{"M2"}, Duration: 20},
				},
			},
			{
				ID: "J2", Priority: PriorityLow, Weight: 1, DueDate: 20, Arrival: 5,
				Operations: []Operation{
					{ID: "J2-1", JobID: "J2", Seq: 0, EligibleMachines: []string{"M1"}, Duration: 15},
				},
			},
		},
		Machines: []Machine{{ID: "M1"}, {ID: "M2"}},
		Horizon:  1000,
	}
	p.Reindex()
	return p
}

func testSchedule() *Schedule {
	return &Schedule{
		Assignments: []Assignment{
			{OperationID: "J1-1", JobID: "J1", MachineID: "M1", Start: 0, End: 10},
			{OperationID: "J1-2", JobID: "J1", MachineID: "M2", Start: 10, End: 30},
			{OperationID: "J2-1", JobID: "J2", MachineID: "M1", Start: 10, End: 25},
		},
		Status: StatusOptimal,
	}
}

func TestValidateOK(t *testing.T) {
	if err := Validate(testSchedule(), testProblem()); err != nil {
		t.Fatalf("valid schedule rejected: %v", err)
	}
}

func TestValidateIneligibleMachine(t *testing.T) {
	s := testSchedule()
	s.Assignments[1].MachineID = "M1" // J1-2 only runs on M2
	s.Assignments[1].Start = 30
	s.Assignments[1].End = 50
	if err := Validate(s, testProblem()); !errors.Is(err, ErrIneligibleMachine) {
		t.Fatalf("want ErrIneligibleMachine, got %v", err)
	}
}

func TestValidateMachineOverlap(t *testing.T) {
	s := testSchedule()
	s.Assignments[2].Start = 5 // collides with J1-1 on M1
	s.Assignments[2].End = 20
	if err := Validate(s, testProblem()); !errors.Is(err, ErrMachineOverlap) {
		t.Fatalf("want ErrMachineOverlap, got %v", err)
	}
}

func TestValidatePrecedence(t *testing.T) {
	s := testSchedule()
	s.Assignments[1].Start = 5 // J1-2 starts before J1-1 ends
	s.Assignments[1].End = 25
	if err := Validate(s, testProblem()); !errors.Is(err, ErrPrecedence) {
		t.Fatalf("want ErrPrecedence, got %v", err)
	}
}

func TestValidateMinGap(t *testing.T) {
	p := testProblem()
	p.MinGap = 5
	if err := Validate(testSchedule(), p); !errors.Is(err, ErrPrecedence) {
		t.Fatalf("want ErrPrecedence with min gap, got %v", err)
	}
}

func TestValidateUnassigned(t *testing.T) {
	s := testSchedule()
	s.Assignments = s.Assignments[:2]
	if err := Validate(s, testProblem()); !errors.Is(err, ErrUnassigned) {
		t.Fatalf("want ErrUnassigned, got %v", err)
	}
}

func TestValidateOutsideCalendar(t *testing.T) {
	p := testProblem()
	// One 8h shift on day 0 only.
	p.Machines[0].Calendar = []ShiftWindow{{Weekday: 0, StartMin: 0, EndMin: 480}}
	s := testSchedule()
	s.Assignments[2].Start = 470 // spills past the shift end
	s.Assignments[2].End = 485
	err := Validate(s, p)
	if !errors.Is(err, ErrOutsideCalendar) {
		t.Fatalf("want ErrOutsideCalendar, got %v", err)
	}
	// The Overtime flag exempts the assignment.
	s.Assignments[2].Overtime = true
	if err := Validate(s, p); err != nil {
		t.Fatalf("overtime assignment rejected: %v", err)
	}
}

func TestValidateDurationMismatch(t *testing.T) {
	s := testSchedule()
	s.Assignments[0].End = 12
	if err := Validate(s, testProblem()); err == nil {
		t.Fatal("duration mismatch accepted")
	}
}

func TestEarliestSlot(t *testing.T) {
	windows := []Interval{{Start: 0, End: 100}, {Start: 200, End: 300}}
	busy := []Interval{{Start: 10, End: 40}, {Start: 60, End: 90}}

	start, ok := EarliestSlot(windows, busy, 0, 10)
	if !ok || start != 0 {
		t.Fatalf("want slot at 0, got %d ok=%t", start, ok)
	}
	// Too long for the gaps of the first window, must jump to the second.
	start, ok = EarliestSlot(windows, busy, 0, 50)
	if !ok || start != 200 {
		t.Fatalf("want slot at 200, got %d ok=%t", start, ok)
	}
	// Earliest pushes past the first free gap.
	start, ok = EarliestSlot(windows, busy, 45, 10)
	if !ok || start != 45 {
		t.Fatalf("want slot at 45, got %d ok=%t", start, ok)
	}
	// Nothing fits.
	if _, ok = EarliestSlot(windows, busy, 0, 400); ok {
		t.Fatal("oversized operation placed")
	}
}

func TestOpenWindows(t *testing.T) {
	m := Machine{ID: "M1", Calendar: []ShiftWindow{
		{Weekday: 0, StartMin: 480, EndMin: 960},
		{Weekday: 1, StartMin: 480, EndMin: 960},
	}}
	windows := m.OpenWindows(2 * MinutesPerDay)
	want := []Interval{{Start: 480, End: 960}, {Start: MinutesPerDay + 480, End: MinutesPerDay + 960}}
	if len(windows) != len(want) {
		t.Fatalf("want %d windows, got %d", len(want), len(windows))
	}
	for i := range want {
		if windows[i] != want[i] {
			t.Errorf("window %d: want %v, got %v", i, want[i], windows[i])
		}
	}

	// Empty calendar means always open.
	open := Machine{ID: "M2"}.OpenWindows(500)
	if len(open) != 1 || open[0] != (Interval{Start: 0, End: 500}) {
		t.Fatalf("want one full-horizon window, got %v", open)
	}
}
