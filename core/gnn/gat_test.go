package gnn

import (
	"math"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestActivations(t *testing.T) {
	if got := leakyReLU(-1); got != -leakySlope {
		t.Errorf("leakyReLU(-1) = %g", got)
	}
	if got := leakyReLU(2); got != 2 {
		t.Errorf("leakyReLU(2) = %g", got)
	}
	if got := elu(1); got != 1 {
		t.Errorf("elu(1) = %g", got)
	}
	if got := elu(-100); got < -1 || got > 0 {
		t.Errorf("elu(-100) = %g outside (-1,0)", got)
	}
	if got := sigmoid(0); got != 0.5 {
		t.Errorf("sigmoid(0) = %g", got)
	}
	if got := sigmoid(100); got <= 0.99 {
		t.Errorf("sigmoid(100) = %g", got)
	}
}

func TestTanhClamp(t *testing.T) {
	for _, x := range []float64{-10, -3, -1, 0, 1, 3, 10} {
		got := tanhClamp(x)
		if got < -1 || got > 1 {
			t.Errorf("tanhClamp(%g) = %g outside [-1,1]", x, got)
		}
	}
	if tanhClamp(0) != 0 {
		t.Errorf("tanhClamp(0) = %g", tanhClamp(0))
	}
	if tanhClamp(1) <= 0 {
		t.Errorf("tanhClamp(1) = %g, want positive", tanhClamp(1))
	}
}

// Zero attention vectors make the softmax uniform, so each output row
// must be the plain neighborhood mean of Wh.
func TestForwardUniformAttention(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	l := newGATLayer(rng, 2, 2)
	for i := range l.a {
		l.a[i] = 0
	}

	h := mat.NewDense(2, 2, []float64{1, 0, 0, 1})
	adj := [][]int{{1}, {0}}
	out := l.forward(h, adj, false)

	wh := mat.NewDense(2, 2, nil)
	wh.Mul(h, l.w.T())
	for i := 0; i < 2; i++ {
		for c := 0; c < 2; c++ {
			want := (wh.At(0, c) + wh.At(1, c)) / 2
			if math.Abs(out.At(i, c)-want) > 1e-12 {
				t.Fatalf("out[%d][%d] = %g, want neighborhood mean %g", i, c, out.At(i, c), want)
			}
		}
	}
}

func TestForwardIsolatedNode(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	l := newGATLayer(rng, 3, 4)

	h := mat.NewDense(1, 3, []float64{0.2, 0.4, 0.6})
	out := l.forward(h, [][]int{nil}, false)

	wh := mat.NewDense(1, 4, nil)
	wh.Mul(h, l.w.T())
	for c := 0; c < 4; c++ {
		if math.Abs(out.At(0, c)-wh.At(0, c)) > 1e-12 {
			t.Fatalf("isolated node out[%d] = %g, want Wh %g", c, out.At(0, c), wh.At(0, c))
		}
	}
}

func TestEmbedDeterministic(t *testing.T) {
	g := BuildGraph(testSchedule(), testProblem())

	a := newEncoder(rand.New(rand.NewSource(9)), 8)
	b := newEncoder(rand.New(rand.NewSource(9)), 8)
	ea := a.embed(g)
	eb := b.embed(g)

	r, c := ea.Dims()
	if r != len(g.Nodes) || c != 8 {
		t.Fatalf("embedding dims %dx%d, want %dx8", r, c, len(g.Nodes))
	}
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			va, vb := ea.At(i, j), eb.At(i, j)
			if math.IsNaN(va) || math.IsInf(va, 0) {
				t.Fatalf("embedding[%d][%d] = %g", i, j, va)
			}
			if va != vb {
				t.Fatalf("same seed produced different embeddings at [%d][%d]", i, j)
			}
		}
	}
}
