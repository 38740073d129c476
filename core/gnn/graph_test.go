package gnn

import (
	"testing"

	"github.com/lucasgrd/shopsched/core/model"
)

func testProblem() *model.Problem {
	p := &model.Problem{
		Jobs: []model.Job{
			{
				ID: "J1", DueDate: 25, Weight: 10,
				Operations: []model.Operation{
					{ID: "J1-1", JobID: "J1", Seq: 0, EligibleMachines: []string{"M1", "M2"}, Duration: 10},
					{ID: "J1-2", JobID: "J1", Seq: 1, EligibleMachines: []string{"M2"}, Duration: 20},
				},
			},
			{
				ID: "J2", DueDate: 100, Weight: 1,
				Operations: []model.Operation{
					{ID: "J2-1", JobID: "J2", Seq: 0, EligibleMachines: []string{"M1"}, Duration: 15},
				},
			},
		},
		Machines: []model.Machine{{ID: "M1"}, {ID: "M2"}},
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
	}
}

func TestBuildGraph(t *testing.T) {
	g := BuildGraph(testSchedule(), testProblem())
	if len(g.Nodes) != 3 {
		t.Fatalf("nodes = %d, want 3", len(g.Nodes))
	}
	for _, n := range g.Nodes {
		if len(n.Features) != FeatureDim {
			t.Fatalf("node %s has %d features, want %d", n.OpID, len(n.Features), FeatureDim)
		}
		for k, f := range n.Features {
			if f < 0 || f > 1 {
				t.Errorf("node %s feature %d = %g outside [0,1]", n.OpID, k, f)
			}
		}
	}

	var prec, res int
	for _, e := range g.Edges {
		switch e.Kind {
		case EdgePrecedence:
			prec++
		case EdgeResource:
			res++
		}
	}
	// One precedence edge inside J1, one resource edge on M1.
	if prec != 1 || res != 1 {
		t.Errorf("edges: precedence=%d resource=%d, want 1/1", prec, res)
	}

	i, ok := g.NodeIndex("J1-2")
	if !ok {
		t.Fatal("J1-2 not indexed")
	}
	if g.Nodes[i].MachineID != "M2" {
		t.Errorf("J1-2 machine = %s, want M2", g.Nodes[i].MachineID)
	}
}

func TestNeighborsUndirected(t *testing.T) {
	g := BuildGraph(testSchedule(), testProblem())
	adj := g.Neighbors()
	for from, neigh := range adj {
		for _, to := range neigh {
			back := false
			for _, r := range adj[to] {
				if r == from {
					back = true
				}
			}
			if !back {
				t.Fatalf("edge %d->%d has no reverse adjacency", from, to)
			}
		}
	}
}

func TestBuildGraphEmptySchedule(t *testing.T) {
	g := BuildGraph(&model.Schedule{}, testProblem())
	if len(g.Nodes) != 0 || len(g.Edges) != 0 {
		t.Fatalf("empty schedule produced %d nodes %d edges", len(g.Nodes), len(g.Edges))
	}
}
