package gnn

import (
	"errors"
	"math"
	"path/filepath"
	"testing"
)

func TestPredictorUnavailableUntilLoaded(t *testing.T) {
	p := NewPredictor(Config{}, nil)
	if p.Loaded() {
		t.Fatal("fresh predictor claims to be loaded")
	}
	s, prob := testSchedule(), testProblem()
	if _, err := p.PredictBottlenecks(s, prob, 0); !errors.Is(err, ErrModelUnavailable) {
		t.Errorf("bottlenecks: %v", err)
	}
	if _, err := p.PredictDurations(s, prob); !errors.Is(err, ErrModelUnavailable) {
		t.Errorf("durations: %v", err)
	}
	if _, err := p.PredictDelays(s, prob, 0); !errors.Is(err, ErrModelUnavailable) {
		t.Errorf("delays: %v", err)
	}
	if _, err := p.Recommend(s, prob, 0); !errors.Is(err, ErrModelUnavailable) {
		t.Errorf("recommend: %v", err)
	}
	if err := p.Save(filepath.Join(t.TempDir(), "w.yaml")); !errors.Is(err, ErrModelUnavailable) {
		t.Errorf("save: %v", err)
	}
}

func TestPredictBottlenecks(t *testing.T) {
	p := NewPredictor(Config{Hidden: 8}, nil)
	p.InitSeed(42)
	s, prob := testSchedule(), testProblem()

	all, err := p.PredictBottlenecks(s, prob, 1e-9)
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("machines = %d, want 2 above a tiny threshold", len(all))
	}
	for i, b := range all {
		if b.Probability <= 0 || b.Probability >= 1 {
			t.Errorf("%s probability = %g outside (0,1)", b.MachineID, b.Probability)
		}
		if i > 0 && b.Probability > all[i-1].Probability {
			t.Error("bottlenecks not sorted by probability")
		}
	}
	byID := map[string]int{}
	for _, b := range all {
		byID[b.MachineID] = b.Operations
	}
	if byID["M1"] != 2 || byID["M2"] != 1 {
		t.Errorf("operation counts = %v", byID)
	}
}

func TestPredictDurationsBounded(t *testing.T) {
	p := NewPredictor(Config{Hidden: 8}, nil)
	p.InitSeed(42)
	s, prob := testSchedule(), testProblem()

	preds, err := p.PredictDurations(s, prob)
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if len(preds) != 3 {
		t.Fatalf("predictions = %d, want one per operation", len(preds))
	}
	for _, d := range preds {
		lo := 0.5 * float64(d.StandardMinutes)
		hi := 1.5 * float64(d.StandardMinutes)
		if d.PredictedMinutes < lo || d.PredictedMinutes > hi {
			t.Errorf("%s predicted %g outside [%g,%g]", d.OperationID, d.PredictedMinutes, lo, hi)
		}
	}
}

func TestPredictDelays(t *testing.T) {
	p := NewPredictor(Config{Hidden: 8}, nil)
	p.InitSeed(42)
	s, prob := testSchedule(), testProblem()

	preds, err := p.PredictDelays(s, prob, 1e-9)
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if len(preds) != 2 {
		t.Fatalf("jobs = %d, want 2 above a tiny threshold", len(preds))
	}
	for _, d := range preds {
		if d.Probability <= 0 || d.Probability >= 1 {
			t.Errorf("%s probability = %g outside (0,1)", d.JobID, d.Probability)
		}
		if d.ExpectedDelayMin < 0 {
			t.Errorf("%s negative expected delay %g", d.JobID, d.ExpectedDelayMin)
		}
	}
	// J1 completes at 30 against a due date of 25: already 5 late.
	for _, d := range preds {
		if d.JobID == "J1" && d.ExpectedDelayMin != 5 {
			t.Errorf("J1 expected delay = %g, want the observed 5", d.ExpectedDelayMin)
		}
	}
}

func TestPredictDeterministic(t *testing.T) {
	s, prob := testSchedule(), testProblem()
	a := NewPredictor(Config{Hidden: 8}, nil)
	a.InitSeed(7)
	b := NewPredictor(Config{Hidden: 8}, nil)
	b.InitSeed(7)

	pa, _ := a.PredictBottlenecks(s, prob, 1e-9)
	pb, _ := b.PredictBottlenecks(s, prob, 1e-9)
	if len(pa) != len(pb) {
		t.Fatal("same seed, different result sizes")
	}
	for i := range pa {
		if pa[i] != pb[i] {
			t.Fatalf("same seed, different prediction %d: %+v vs %+v", i, pa[i], pb[i])
		}
	}
}

func TestWeightsRoundtrip(t *testing.T) {
	s, prob := testSchedule(), testProblem()
	orig := NewPredictor(Config{Hidden: 8}, nil)
	orig.InitSeed(13)

	path := filepath.Join(t.TempDir(), "weights.yaml")
	if err := orig.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}

	restored := NewPredictor(Config{}, nil)
	if err := restored.Load(path); err != nil {
		t.Fatalf("load: %v", err)
	}
	if !restored.Loaded() {
		t.Fatal("load did not mark predictor ready")
	}

	want, _ := orig.PredictDurations(s, prob)
	got, err := restored.PredictDurations(s, prob)
	if err != nil {
		t.Fatalf("predict after load: %v", err)
	}
	for i := range want {
		if math.Abs(want[i].PredictedMinutes-got[i].PredictedMinutes) > 1e-9 {
			t.Fatalf("prediction %d differs after roundtrip: %g vs %g",
				i, want[i].PredictedMinutes, got[i].PredictedMinutes)
		}
	}
}

func TestLoadMissingWeights(t *testing.T) {
	p := NewPredictor(Config{}, nil)
	err := p.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if !errors.Is(err, ErrModelUnavailable) {
		t.Fatalf("want ErrModelUnavailable, got %v", err)
	}
	if p.Loaded() {
		t.Fatal("failed load marked predictor ready")
	}
}

func TestRecommend(t *testing.T) {
	p := NewPredictor(Config{Hidden: 8, BottleneckThreshold: 1e-9, DelayThreshold: 1e-9}, nil)
	p.InitSeed(42)
	s, prob := testSchedule(), testProblem()

	recos, err := p.Recommend(s, prob, 3)
	if err != nil {
		t.Fatalf("recommend: %v", err)
	}
	if len(recos) == 0 {
		t.Fatal("no recommendations despite tiny thresholds")
	}
	if len(recos) > 3 {
		t.Fatalf("recommendations = %d, cap is 3", len(recos))
	}
	for i, r := range recos {
		if r.Title == "" || r.Description == "" {
			t.Errorf("recommendation %d missing text: %+v", i, r)
		}
		if i > 0 && r.Priority > recos[i-1].Priority {
			t.Error("recommendations not ordered by priority")
		}
		if r.Confidence < 0 || r.Confidence > 1 {
			t.Errorf("confidence %g outside [0,1]", r.Confidence)
		}
	}
}
