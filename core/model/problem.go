package model

// TypePair keys the setup matrix by the machine-type tags of two
// consecutive operations on the same machine.
type TypePair struct {
	From string
	To   string
}

// Problem is the canonical scheduling problem consumed by every tier.
// All times are integer minutes relative to the horizon start. A
// Problem is immutable once built; each scheduling run owns its own
// instance.
type Problem struct {
	Jobs        []Job
	Machines    []Machine
	SetupMatrix map[TypePair]int
	MinGap      int // minimum gap between consecutive operations of a job
	Horizon     int // scheduling horizon length in minutes

	jobIndex map[string]int
	opIndex  map[string]opRef
	machIdx  map[string]int
}

type opRef struct {
	job int
	op  int
}

// Reindex rebuilds the internal lookup tables. It must be called after
// constructing a Problem by hand; the builder does it automatically.
func (p *Problem) Reindex() {
	p.jobIndex = make(map[string]int, len(p.Jobs))
	p.opIndex = make(map[string]opRef)
	p.machIdx = make(map[string]int, len(p.Machines))
	for ji, j := range p.Jobs {
		p.jobIndex[j.ID] = ji
		for oi, o := range j.Operations {
			p.opIndex[o.ID] = opRef{job: ji, op: oi}
		}
	}
	for mi, m := range p.Machines {
		p.machIdx[m.ID] = mi
	}
}

// JobByID returns the job with the given id.
func (p *Problem) JobByID(id string) (Job, bool) {
	i, ok := p.jobIndex[id]
	if !ok {
		return Job{}, false
	}
	return p.Jobs[i], true
}

// OperationByID returns the operation with the given id.
func (p *Problem) OperationByID(id string) (Operation, bool) {
	r, ok := p.opIndex[id]
	if !ok {
		return Operation{}, false
	}
	return p.Jobs[r.job].Operations[r.op], true
}

// MachineByID returns the machine with the given id.
func (p *Problem) MachineByID(id string) (Machine, bool) {
	i, ok := p.machIdx[id]
	if !ok {
		return Machine{}, false
	}
	return p.Machines[i], true
}

// MachineIndex returns the position of a machine in p.Machines.
func (p *Problem) MachineIndex(id string) int {
	i, ok := p.machIdx[id]
	if !ok {
		return -1
	}
	return i
}

// JobIndex returns the position of a job in p.Jobs.
func (p *Problem) JobIndex(id string) int {
	i, ok := p.jobIndex[id]
	if !ok {
		return -1
	}
	return i
}

// Operations returns all operations of all jobs in job order.
func (p *Problem) Operations() []Operation {
	var ops []Operation
	for _, j := range p.Jobs {
		ops = append(ops, j.Operations...)
	}
	return ops
}

// OperationCount returns the total number of operations.
func (p *Problem) OperationCount() int {
	n := 0
	for _, j := range p.Jobs {
		n += len(j.Operations)
	}
	return n
}

// Setup returns the setup minutes required between two consecutive
// operation types on the same machine. Zero when no matrix entry
// exists or the types match.
func (p *Problem) Setup(from, to string) int {
	if from == "" || to == "" || from == to {
		return 0
	}
	return p.SetupMatrix[TypePair{From: from, To: to}]
}
