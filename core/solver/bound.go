package solver

import (
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"
)

// lpSolve points to the function used to solve the makespan
// relaxation. It can be overridden in tests to simulate solver
// failures.
var lpSolve = solveMakespanLP

// solveMakespanLP computes a lower bound on the makespan by relaxing
// the assignment problem: fractional variables x[o][m] split each
// operation's duration across its eligible machines, T bounds every
// machine load, and the LP minimizes T. Sequencing and calendars are
// ignored, so the optimum is a valid lower bound.
func solveMakespanLP(in *instance) (float64, error) {
	// Variable layout: one column per eligible (op, machine) pair,
	// followed by T.
	cols := 0
	offset := make([][]int, len(in.dur))
	for o, elig := range in.elig {
		offset[o] = make([]int, len(elig))
		for k := range elig {
			offset[o][k] = cols
			cols++
		}
	}
	tCol := cols
	cols++

	// Machine load rows: sum(dur*x) - T <= 0, plus -T <= 0.
	rows := len(in.windows) + 1
	g := mat.NewDense(rows, cols, nil)
	h := make([]float64, rows)
	for o, elig := range in.elig {
		for k, m := range elig {
			g.Set(m, offset[o][k], float64(in.dur[o]))
		}
	}
	for m := 0; m < len(in.windows); m++ {
		g.Set(m, tCol, -1)
	}
	g.Set(len(in.windows), tCol, -1)

	// Assignment rows: sum_m x[o][m] = 1 per operation.
	a := mat.NewDense(len(in.dur), cols, nil)
	b := make([]float64, len(in.dur))
	for o := range in.dur {
		for k := range in.elig[o] {
			a.Set(o, offset[o][k], 1)
		}
		b[o] = 1
	}

	c := make([]float64, cols)
	c[tCol] = 1

	cStd, aStd, bStd := lp.Convert(c, g, h, a, b)
	opt, _, err := lp.Simplex(cStd, aStd, bStd, 1e-7, nil)
	if err != nil {
		return 0, err
	}
	return opt, nil
}

// rootMakespanBound combines the LP relaxation with combinatorial
// bounds: the longest job critical path and the heaviest load among
// operations with a single eligible machine.
func rootMakespanBound(in *instance) float64 {
	bound := 0.0

	for _, ops := range in.jobOps {
		path := 0
		for k, o := range ops {
			path += in.dur[o]
			if k > 0 {
				path += in.minGap
			}
		}
		if float64(path) > bound {
			bound = float64(path)
		}
	}

	exclusive := make([]int, len(in.windows))
	for o, elig := range in.elig {
		if len(elig) == 1 {
			exclusive[elig[0]] += in.dur[o]
		}
	}
	for _, load := range exclusive {
		if float64(load) > bound {
			bound = float64(load)
		}
	}

	if lb, err := lpSolve(in); err == nil && lb > bound {
		bound = lb
	}
	return bound
}

// rootObjectiveBound lower-bounds the full weighted objective.
func rootObjectiveBound(in *instance, mkBound float64) float64 {
	tard := 0.0
	for j, ops := range in.jobOps {
		path := 0
		for k, o := range ops {
			path += in.dur[o]
			if k > 0 {
				path += in.minGap
			}
		}
		if late := path - in.due[j]; late > 0 {
			tard += in.weight[j] * float64(late)
		}
	}
	return in.cfg.MakespanWeight*mkBound + in.cfg.TardinessWeight*tard
}

// nodeBound lower-bounds the objective reachable from a partial
// schedule: each unfinished job must still run its remaining
// operations after its current ready time.
func nodeBound(in *instance, n *node) float64 {
	mk := float64(n.makespan)
	tard := n.tardiness
	for j, next := range n.nextOp {
		ops := in.jobOps[j]
		if next >= len(ops) {
			continue
		}
		rem := 0
		for k := next; k < len(ops); k++ {
			rem += in.dur[ops[k]]
			if k > 0 {
				rem += in.minGap
			}
		}
		finish := n.jobReady[j] + rem
		if float64(finish) > mk {
			mk = float64(finish)
		}
		if late := finish - in.due[j]; late > 0 {
			tard += in.weight[j] * float64(late)
		}
	}
	return in.cfg.MakespanWeight*mk + in.cfg.TardinessWeight*tard
}
