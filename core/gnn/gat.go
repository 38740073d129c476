package gnn

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// gatLayer is one graph-attention layer: attention logits are
// LeakyReLU(a . [Wh_i || Wh_j]), softmax-normalized over each node's
// neighborhood including itself.
type gatLayer struct {
	w *mat.Dense // outDim x inDim
	a []float64  // 2*outDim attention vector
}

func newGATLayer(rng *rand.Rand, inDim, outDim int) *gatLayer {
	// Glorot-style scaling keeps early attention logits small.
	scale := math.Sqrt(2.0 / float64(inDim+outDim))
	wData := make([]float64, outDim*inDim)
	for i := range wData {
		wData[i] = rng.NormFloat64() * scale
	}
	a := make([]float64, 2*outDim)
	for i := range a {
		a[i] = rng.NormFloat64() * scale
	}
	return &gatLayer{w: mat.NewDense(outDim, inDim, wData), a: a}
}

const leakySlope = 0.2

func leakyReLU(x float64) float64 {
	if x < 0 {
		return leakySlope * x
	}
	return x
}

func elu(x float64) float64 {
	if x < 0 {
		return math.Exp(x) - 1
	}
	return x
}

// forward transforms node states h (n x inDim) into n x outDim using
// attention-weighted neighborhood aggregation. adj must include each
// node's neighbor lists; self-attention is always added.
func (l *gatLayer) forward(h *mat.Dense, adj [][]int, activate bool) *mat.Dense {
	n, _ := h.Dims()
	outDim, _ := l.w.Dims()

	// Wh per node.
	wh := mat.NewDense(n, outDim, nil)
	wh.Mul(h, l.w.T())

	out := mat.NewDense(n, outDim, nil)
	srcA := l.a[:outDim]
	dstA := l.a[outDim:]
	for i := 0; i < n; i++ {
		hood := append([]int{i}, adj[i]...)
		logits := make([]float64, len(hood))
		selfTerm := floats.Dot(srcA, wh.RawRowView(i))
		for k, j := range hood {
			logits[k] = leakyReLU(selfTerm + floats.Dot(dstA, wh.RawRowView(j)))
		}
		// Softmax over the neighborhood.
		maxLogit := floats.Max(logits)
		sum := 0.0
		for k := range logits {
			logits[k] = math.Exp(logits[k] - maxLogit)
			sum += logits[k]
		}
		row := out.RawRowView(i)
		for k, j := range hood {
			alpha := logits[k] / sum
			floats.AddScaled(row, alpha, wh.RawRowView(j))
		}
		if activate {
			for c := range row {
				row[c] = elu(row[c])
			}
		}
	}
	return out
}

// encoder stacks two attention layers: the first aggregates direct
// precedence and resource neighbors, the second widens the receptive
// field to multi-hop dependencies.
type encoder struct {
	l1 *gatLayer
	l2 *gatLayer
}

func newEncoder(rng *rand.Rand, hidden int) *encoder {
	return &encoder{
		l1: newGATLayer(rng, FeatureDim, hidden),
		l2: newGATLayer(rng, hidden, hidden),
	}
}

// embed produces per-node embeddings for the graph.
func (e *encoder) embed(g *OperationGraph) *mat.Dense {
	n := len(g.Nodes)
	h := mat.NewDense(n, FeatureDim, nil)
	for i, node := range g.Nodes {
		h.SetRow(i, node.Features)
	}
	adj := g.Neighbors()
	h1 := e.l1.forward(h, adj, true)
	return e.l2.forward(h1, adj, false)
}

// head is a task-specific linear output layer.
type head struct {
	w    []float64
	bias float64
}

func newHead(rng *rand.Rand, dim int) *head {
	w := make([]float64, dim)
	scale := math.Sqrt(1.0 / float64(dim))
	for i := range w {
		w[i] = rng.NormFloat64() * scale
	}
	return &head{w: w, bias: rng.NormFloat64() * scale}
}

func sigmoid(x float64) float64 { return 1 / (1 + math.Exp(-x)) }

// prob applies the classification head to one embedding.
func (h *head) prob(embedding []float64) float64 {
	return sigmoid(floats.Dot(h.w, embedding) + h.bias)
}

// regress applies the regression head to one embedding.
func (h *head) regress(embedding []float64) float64 {
	return floats.Dot(h.w, embedding) + h.bias
}
