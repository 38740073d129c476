package gnn

import (
	"errors"
	"fmt"
	"math/rand"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/lucasgrd/shopsched/core/logger"
	"github.com/lucasgrd/shopsched/core/model"
)

// ErrModelUnavailable signals that no trained weights are loaded. It
// is a soft failure: callers fall back to Tier 1/2 output alone.
var ErrModelUnavailable = errors.New("gnn model unavailable")

// Config defines Tier 3 parameters loaded from configuration.
type Config struct {
	Hidden              int     `json:"hidden"`
	BottleneckThreshold float64 `json:"bottleneck_threshold"`
	DelayThreshold      float64 `json:"delay_threshold"`
	WeightsPath         string  `json:"weights_path"`
	MaxRecommendations  int     `json:"max_recommendations"`
}

// SetDefaults fills unset fields with their defaults.
func (c *Config) SetDefaults() {
	if c.Hidden <= 0 {
		c.Hidden = 16
	}
	if c.BottleneckThreshold <= 0 {
		c.BottleneckThreshold = 0.6
	}
	if c.DelayThreshold <= 0 {
		c.DelayThreshold = 0.5
	}
	if c.MaxRecommendations <= 0 {
		c.MaxRecommendations = 5
	}
}

// BottleneckPrediction scores one machine as a binding constraint.
type BottleneckPrediction struct {
	MachineID   string  `json:"machine_id"`
	Probability float64 `json:"probability"`
	Operations  int     `json:"operations"`
}

// DurationPrediction estimates one operation's effective duration.
type DurationPrediction struct {
	OperationID      string  `json:"operation_id"`
	StandardMinutes  int     `json:"standard_minutes"`
	PredictedMinutes float64 `json:"predicted_minutes"`
}

// DelayPrediction scores one job's risk of finishing late.
type DelayPrediction struct {
	JobID            string  `json:"job_id"`
	Probability      float64 `json:"probability"`
	ExpectedDelayMin float64 `json:"expected_delay_minutes"`
}

// RecommendationPriority orders strategic recommendations.
type RecommendationPriority int

const (
	PriorityLowReco RecommendationPriority = iota
	PriorityMediumReco
	PriorityHighReco
	PriorityCriticalReco
)

// String returns the conventional upper-case label.
func (p RecommendationPriority) String() string {
	switch p {
	case PriorityCriticalReco:
		return "CRITICAL"
	case PriorityHighReco:
		return "HIGH"
	case PriorityMediumReco:
		return "MEDIUM"
	default:
		return "LOW"
	}
}

// Recommendation is a derived strategic suggestion.
type Recommendation struct {
	Priority    RecommendationPriority `json:"priority"`
	Title       string                 `json:"title"`
	Description string                 `json:"description"`
	Impact      string                 `json:"impact"`
	Effort      string                 `json:"effort"`
	Confidence  float64                `json:"confidence"`
}

// Predictor applies the graph-attention encoder and task heads to
// committed schedules. It never mutates the schedule. All predictions
// fail with ErrModelUnavailable until weights are loaded.
type Predictor struct {
	cfg Config
	log logger.Logger

	enc          *encoder
	bottleneck   *head
	delay        *head
	durationHead *head
	loaded       bool
}

// NewPredictor creates an unloaded predictor.
func NewPredictor(cfg Config, log logger.Logger) *Predictor {
	cfg.SetDefaults()
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Predictor{cfg: cfg, log: log}
}

// InitSeed initializes deterministic weights from a seed. Used for
// reproducible predictions before an externally trained weight set is
// available.
func (p *Predictor) InitSeed(seed int64) {
	rng := rand.New(rand.NewSource(seed))
	p.enc = newEncoder(rng, p.cfg.Hidden)
	p.bottleneck = newHead(rng, p.cfg.Hidden)
	p.delay = newHead(rng, p.cfg.Hidden)
	p.durationHead = newHead(rng, p.cfg.Hidden)
	p.loaded = true
}

// weightsFile is the YAML serialization of all learnable state.
type weightsFile struct {
	Hidden     int         `yaml:"hidden"`
	L1W        []float64   `yaml:"l1_w"`
	L1A        []float64   `yaml:"l1_a"`
	L2W        []float64   `yaml:"l2_w"`
	L2A        []float64   `yaml:"l2_a"`
	Heads      [][]float64 `yaml:"heads"`  // bottleneck, delay, duration
	HeadBiases []float64   `yaml:"biases"` // same order
}

// Load reads trained weights from a YAML file.
func (p *Predictor) Load(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}
	var wf weightsFile
	if err := yaml.Unmarshal(b, &wf); err != nil {
		return fmt.Errorf("parse weights: %w", err)
	}
	if wf.Hidden <= 0 || len(wf.Heads) != 3 || len(wf.HeadBiases) != 3 {
		return fmt.Errorf("weights file malformed")
	}
	p.cfg.Hidden = wf.Hidden
	p.InitSeed(0)
	if err := p.restore(wf); err != nil {
		p.loaded = false
		return err
	}
	p.log.Infof("gnn weights loaded from %s (hidden=%d)", path, wf.Hidden)
	return nil
}

func (p *Predictor) restore(wf weightsFile) error {
	h := wf.Hidden
	if len(wf.L1W) != h*FeatureDim || len(wf.L2W) != h*h {
		return fmt.Errorf("weights file dimension mismatch")
	}
	if len(wf.L1A) != 2*h || len(wf.L2A) != 2*h {
		return fmt.Errorf("attention vector dimension mismatch")
	}
	copy(p.enc.l1.w.RawMatrix().Data, wf.L1W)
	copy(p.enc.l1.a, wf.L1A)
	copy(p.enc.l2.w.RawMatrix().Data, wf.L2W)
	copy(p.enc.l2.a, wf.L2A)
	heads := []*head{p.bottleneck, p.delay, p.durationHead}
	for i, hd := range heads {
		if len(wf.Heads[i]) != h {
			return fmt.Errorf("head %d dimension mismatch", i)
		}
		copy(hd.w, wf.Heads[i])
		hd.bias = wf.HeadBiases[i]
	}
	return nil
}

// Save writes the current weights to a YAML file.
func (p *Predictor) Save(path string) error {
	if !p.loaded {
		return ErrModelUnavailable
	}
	wf := weightsFile{
		Hidden: p.cfg.Hidden,
		L1W:    append([]float64(nil), p.enc.l1.w.RawMatrix().Data...),
		L1A:    append([]float64(nil), p.enc.l1.a...),
		L2W:    append([]float64(nil), p.enc.l2.w.RawMatrix().Data...),
		L2A:    append([]float64(nil), p.enc.l2.a...),
		Heads: [][]float64{
			append([]float64(nil), p.bottleneck.w...),
			append([]float64(nil), p.delay.w...),
			append([]float64(nil), p.durationHead.w...),
		},
		HeadBiases: []float64{p.bottleneck.bias, p.delay.bias, p.durationHead.bias},
	}
	b, err := yaml.Marshal(wf)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

// Loaded reports whether usable weights are present.
func (p *Predictor) Loaded() bool { return p.loaded }

// embeddings runs the encoder over the schedule's operation graph.
func (p *Predictor) embeddings(s *model.Schedule, prob *model.Problem) (*OperationGraph, [][]float64, error) {
	if !p.loaded {
		return nil, nil, ErrModelUnavailable
	}
	g := BuildGraph(s, prob)
	if len(g.Nodes) == 0 {
		return g, nil, nil
	}
	emb := p.enc.embed(g)
	rows := make([][]float64, len(g.Nodes))
	for i := range g.Nodes {
		rows[i] = emb.RawRowView(i)
	}
	return g, rows, nil
}

// PredictBottlenecks aggregates per-node bottleneck probabilities by
// machine and returns machines above the threshold, most probable
// first.
func (p *Predictor) PredictBottlenecks(s *model.Schedule, prob *model.Problem, threshold float64) ([]BottleneckPrediction, error) {
	g, emb, err := p.embeddings(s, prob)
	if err != nil {
		return nil, err
	}
	if threshold <= 0 {
		threshold = p.cfg.BottleneckThreshold
	}
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for i, node := range g.Nodes {
		sums[node.MachineID] += p.bottleneck.prob(emb[i])
		counts[node.MachineID]++
	}
	var out []BottleneckPrediction
	for mid, sum := range sums {
		avg := sum / float64(counts[mid])
		if avg >= threshold {
			out = append(out, BottleneckPrediction{MachineID: mid, Probability: avg, Operations: counts[mid]})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Probability > out[j].Probability })
	return out, nil
}

// PredictDurations estimates effective durations per operation. The
// regression head predicts a multiplier over the standard duration.
func (p *Predictor) PredictDurations(s *model.Schedule, prob *model.Problem) ([]DurationPrediction, error) {
	g, emb, err := p.embeddings(s, prob)
	if err != nil {
		return nil, err
	}
	var out []DurationPrediction
	for i, node := range g.Nodes {
		op, ok := prob.OperationByID(node.OpID)
		if !ok {
			continue
		}
		// Bounded multiplier keeps estimates near the standard time.
		mult := 1 + 0.5*tanhClamp(p.durationHead.regress(emb[i]))
		out = append(out, DurationPrediction{
			OperationID:      node.OpID,
			StandardMinutes:  op.Duration,
			PredictedMinutes: float64(op.Duration) * mult,
		})
	}
	return out, nil
}

// PredictDelays aggregates per-node delay probabilities by job.
func (p *Predictor) PredictDelays(s *model.Schedule, prob *model.Problem, threshold float64) ([]DelayPrediction, error) {
	g, emb, err := p.embeddings(s, prob)
	if err != nil {
		return nil, err
	}
	if threshold <= 0 {
		threshold = p.cfg.DelayThreshold
	}
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for i, node := range g.Nodes {
		sums[node.JobID] += p.delay.prob(emb[i])
		counts[node.JobID]++
	}
	var out []DelayPrediction
	for jid, sum := range sums {
		avg := sum / float64(counts[jid])
		if avg < threshold {
			continue
		}
		expected := 0.0
		if job, ok := prob.JobByID(jid); ok {
			slack := s.JobCompletion(jid) - job.DueDate
			if slack > 0 {
				expected = float64(slack)
			} else {
				expected = avg * float64(jobDuration(job))
			}
		}
		out = append(out, DelayPrediction{JobID: jid, Probability: avg, ExpectedDelayMin: expected})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Probability > out[j].Probability })
	return out, nil
}

func jobDuration(j model.Job) int {
	total := 0
	for _, op := range j.Operations {
		total += op.Duration
	}
	return total
}

func tanhClamp(x float64) float64 {
	// cheap tanh approximation, exact enough for a bounded multiplier
	if x > 3 {
		return 1
	}
	if x < -3 {
		return -1
	}
	return x * (27 + x*x) / (27 + 9*x*x)
}
