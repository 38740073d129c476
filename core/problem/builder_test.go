package problem

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/lucasgrd/shopsched/core/model"
)

func validInput() Input {
	return Input{
		Jobs: []JobInput{
			{
				ID: "J1", Priority: "urgent", DueDate: 480,
				Operations: []OperationInput{
					{ID: "J1-1", Seq: 0, EligibleMachines: []string{"M1"}, DurationMinutes: 60, Type: "mill"},
					{ID: "J1-2", Seq: 1, EligibleMachines: []string{"M2"}, DurationMinutes: 30, Type: "drill"},
				},
			},
		},
		Machines: []MachineInput{{ID: "M1"}, {ID: "M2"}},
		SetupMatrix: []SetupInput{
			{From: "mill", To: "drill", Minutes: 15},
		},
	}
}

func TestBuild(t *testing.T) {
	p, err := Build(validInput(), DefaultOptions())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(p.Jobs) != 1 || len(p.Machines) != 2 {
		t.Fatalf("jobs=%d machines=%d", len(p.Jobs), len(p.Machines))
	}
	j := p.Jobs[0]
	if j.Priority != model.PriorityUrgent {
		t.Errorf("priority = %s, want urgent", j.Priority)
	}
	if j.Weight != 100 {
		t.Errorf("weight = %g, want 100", j.Weight)
	}
	if got := p.Setup("mill", "drill"); got != 15 {
		t.Errorf("setup mill->drill = %d, want 15", got)
	}
	if got := p.Setup("drill", "drill"); got != 0 {
		t.Errorf("setup drill->drill = %d, want 0", got)
	}
	if _, ok := p.OperationByID("J1-2"); !ok {
		t.Error("operation index not built")
	}
	if p.Horizon != 28*model.MinutesPerDay {
		t.Errorf("horizon = %d, want default", p.Horizon)
	}
}

func TestBuildCustomWeights(t *testing.T) {
	opts := DefaultOptions()
	opts.PriorityWeights = model.PriorityWeights{Urgent: 9, High: 5, Medium: 2, Low: 1}
	p, err := Build(validInput(), opts)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if p.Jobs[0].Weight != 9 {
		t.Errorf("weight = %g, want 9", p.Jobs[0].Weight)
	}
}

func TestBuildEmpty(t *testing.T) {
	if _, err := Build(Input{}, DefaultOptions()); !errors.Is(err, ErrEmptyProblem) {
		t.Fatalf("want ErrEmptyProblem, got %v", err)
	}
}

func TestBuildInvalidSequence(t *testing.T) {
	in := validInput()
	in.Jobs[0].Operations[1].Seq = 5
	if _, err := Build(in, DefaultOptions()); !errors.Is(err, ErrInvalidSequence) {
		t.Fatalf("want ErrInvalidSequence, got %v", err)
	}
}

func TestBuildNoEligibleMachine(t *testing.T) {
	in := validInput()
	in.Jobs[0].Operations[0].EligibleMachines = nil
	if _, err := Build(in, DefaultOptions()); !errors.Is(err, ErrNoEligibleMachine) {
		t.Fatalf("want ErrNoEligibleMachine, got %v", err)
	}
}

func TestBuildUnknownMachine(t *testing.T) {
	in := validInput()
	in.Jobs[0].Operations[0].EligibleMachines = []string{"M9"}
	if _, err := Build(in, DefaultOptions()); !errors.Is(err, ErrUnknownMachine) {
		t.Fatalf("want ErrUnknownMachine, got %v", err)
	}
}

func TestBuildUnknownPriority(t *testing.T) {
	in := validInput()
	in.Jobs[0].Priority = "asap"
	if _, err := Build(in, DefaultOptions()); err == nil {
		t.Fatal("unknown priority accepted")
	}
}

func TestBuildDuplicateMachine(t *testing.T) {
	in := validInput()
	in.Machines = append(in.Machines, MachineInput{ID: "M1"})
	if _, err := Build(in, DefaultOptions()); err == nil {
		t.Fatal("duplicate machine accepted")
	}
}

func TestLoadInput(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "problem.json")
	data := `{
  "jobs": [
    {
      "id": "J1",
      "priority": "high",
      "due_date": 240,
      "operations": [
        {"id": "J1-1", "seq": 0, "eligible_machines": ["M1"], "duration_minutes": 45}
      ]
    }
  ],
  "machines": [{"id": "M1"}]
}`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}
	in, err := LoadInput(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(in.Jobs) != 1 || in.Jobs[0].Operations[0].DurationMinutes != 45 {
		t.Fatalf("unexpected input: %+v", in)
	}
	if _, err := Build(in, DefaultOptions()); err != nil {
		t.Fatalf("build loaded input: %v", err)
	}
}

func TestLoadInputMissing(t *testing.T) {
	if _, err := LoadInput(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Fatal("missing file accepted")
	}
}
