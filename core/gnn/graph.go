// Package gnn implements the Tier 3 prediction layer: a graph
// attention encoder over the operation dependency graph of a committed
// schedule, with heads for bottleneck, duration and delay prediction
// and a small rule set deriving strategic recommendations. The layer
// is read-only with respect to the schedule.
package gnn

import "github.com/lucasgrd/shopsched/core/model"

// EdgeKind tags graph edges by relationship type.
type EdgeKind int

const (
	// EdgePrecedence links consecutive operations of one job.
	EdgePrecedence EdgeKind = iota
	// EdgeResource links consecutive operations on one machine.
	EdgeResource
)

// Edge is one directed relationship between node indices.
type Edge struct {
	From int
	To   int
	Kind EdgeKind
}

// FeatureDim is the node feature vector length.
const FeatureDim = 6

// Node is one operation in the graph arena.
type Node struct {
	OpID      string
	JobID     string
	MachineID string
	Features  []float64
}

// OperationGraph is a read-only projection of a committed schedule:
// an arena of nodes indexed by integer id plus an edge list tagged by
// type. It is rebuilt per prediction request and never mutated.
type OperationGraph struct {
	Nodes []Node
	Edges []Edge

	index map[string]int
}

// NodeIndex returns the arena index of an operation id.
func (g *OperationGraph) NodeIndex(opID string) (int, bool) {
	i, ok := g.index[opID]
	return i, ok
}

// Neighbors returns the (undirected) adjacency lists over both edge
// kinds, as used by the attention layers.
func (g *OperationGraph) Neighbors() [][]int {
	adj := make([][]int, len(g.Nodes))
	for _, e := range g.Edges {
		adj[e.From] = append(adj[e.From], e.To)
		adj[e.To] = append(adj[e.To], e.From)
	}
	return adj
}

// BuildGraph projects a schedule onto an operation graph. Node
// features are normalized against the schedule makespan; precedence
// edges follow job sequences and resource edges chain consecutive
// assignments per machine.
func BuildGraph(s *model.Schedule, p *model.Problem) *OperationGraph {
	g := &OperationGraph{index: make(map[string]int)}
	mk := float64(s.Makespan())
	if mk == 0 {
		mk = 1
	}

	for _, a := range s.Assignments {
		op, ok := p.OperationByID(a.OperationID)
		if !ok {
			continue
		}
		status := 0.0
		if a.Overtime {
			status = 1
		}
		g.index[a.OperationID] = len(g.Nodes)
		g.Nodes = append(g.Nodes, Node{
			OpID:      a.OperationID,
			JobID:     a.JobID,
			MachineID: a.MachineID,
			Features: []float64{
				float64(op.Duration) / mk,
				float64(a.Start) / mk,
				float64(a.End) / mk,
				float64(p.MachineIndex(a.MachineID)+1) / float64(len(p.Machines)),
				float64(p.JobIndex(a.JobID)+1) / float64(len(p.Jobs)),
				status,
			},
		})
	}

	for _, j := range p.Jobs {
		for k := 1; k < len(j.Operations); k++ {
			from, okF := g.index[j.Operations[k-1].ID]
			to, okT := g.index[j.Operations[k].ID]
			if okF && okT {
				g.Edges = append(g.Edges, Edge{From: from, To: to, Kind: EdgePrecedence})
			}
		}
	}
	for _, asns := range s.ByMachine() {
		for k := 1; k < len(asns); k++ {
			from, okF := g.index[asns[k-1].OperationID]
			to, okT := g.index[asns[k].OperationID]
			if okF && okT {
				g.Edges = append(g.Edges, Edge{From: from, To: to, Kind: EdgeResource})
			}
		}
	}
	return g
}
