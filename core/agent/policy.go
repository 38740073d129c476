// Package agent implements the Tier 2 reactive layer: a trainable
// policy proposing local schedule adjustments in response to
// disruptions, validated against the hard constraints before being
// offered.
package agent

import (
	"errors"
	"fmt"
	"math"
	"os"

	"gonum.org/v1/gonum/floats"
	"gopkg.in/yaml.v3"
)

// Kind selects the policy implementation.
type Kind int

const (
	KindPPO Kind = iota
	KindSAC
)

// String returns a human-readable representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindPPO:
		return "ppo"
	case KindSAC:
		return "sac"
	default:
		return "unknown"
	}
}

// ParseKind converts a textual agent kind.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "ppo", "":
		return KindPPO, nil
	case "sac":
		return KindSAC, nil
	default:
		return KindPPO, fmt.Errorf("unknown agent kind %q", s)
	}
}

// featureCount is the fixed length of candidate feature vectors.
const featureCount = 8

// Transition is one training sample: the chosen candidate's features,
// the observed discounted advantage, and the score the policy gave the
// candidate when it was chosen.
type Transition struct {
	Features  []float64
	Advantage float64
	OldScore  float64
}

// Policy scores candidate adjustments and learns from transitions.
type Policy interface {
	// Score returns the unnormalized preference for a candidate.
	Score(features []float64) float64
	// Update performs one learning step over a batch of transitions.
	Update(batch []Transition)
	// Checkpoint snapshots the learnable state.
	Checkpoint() Checkpoint
	// Restore loads a previously saved checkpoint.
	Restore(Checkpoint) error
	Kind() Kind
}

// NewPolicy builds a policy of the given kind.
func NewPolicy(k Kind, learningRate float64) (Policy, error) {
	if learningRate <= 0 {
		learningRate = 0.01
	}
	switch k {
	case KindPPO:
		return newPPO(learningRate), nil
	case KindSAC:
		return newSAC(learningRate), nil
	default:
		return nil, fmt.Errorf("unknown policy kind %d", k)
	}
}

// Checkpoint is the serializable learnable state of a policy. It is
// written as YAML so a cancelled training run leaves a usable file.
type Checkpoint struct {
	Kind       string    `yaml:"kind"`
	Theta      []float64 `yaml:"theta"`
	Alpha      float64   `yaml:"alpha,omitempty"`
	Episode    int       `yaml:"episode"`
	BestReward float64   `yaml:"best_reward"`
}

// Save writes the checkpoint to path.
func (c Checkpoint) Save(path string) error {
	b, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

// LoadCheckpoint reads a checkpoint from path.
func LoadCheckpoint(path string) (Checkpoint, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Checkpoint{}, err
	}
	var c Checkpoint
	if err := yaml.Unmarshal(b, &c); err != nil {
		return Checkpoint{}, fmt.Errorf("parse checkpoint: %w", err)
	}
	return c, nil
}

// ppoPolicy is a linear scoring policy trained with a clipped policy
// gradient in the PPO style.
type ppoPolicy struct {
	theta []float64
	lr    float64
	clip  float64
}

func newPPO(lr float64) *ppoPolicy {
	return &ppoPolicy{theta: make([]float64, featureCount), lr: lr, clip: 0.2}
}

func (p *ppoPolicy) Kind() Kind { return KindPPO }

func (p *ppoPolicy) Score(features []float64) float64 {
	return floats.Dot(p.theta, features)
}

func (p *ppoPolicy) Update(batch []Transition) {
	for _, tr := range batch {
		ratio := math.Exp(p.Score(tr.Features) - tr.OldScore)
		if ratio > 1+p.clip {
			ratio = 1 + p.clip
		} else if ratio < 1-p.clip {
			ratio = 1 - p.clip
		}
		step := p.lr * ratio * tr.Advantage
		floats.AddScaled(p.theta, step, tr.Features)
	}
}

func (p *ppoPolicy) Checkpoint() Checkpoint {
	return Checkpoint{Kind: p.Kind().String(), Theta: append([]float64(nil), p.theta...)}
}

func (p *ppoPolicy) Restore(c Checkpoint) error {
	if len(c.Theta) != featureCount {
		return fmt.Errorf("checkpoint has %d weights, want %d", len(c.Theta), featureCount)
	}
	p.theta = append([]float64(nil), c.Theta...)
	return nil
}

// sacPolicy is a linear scoring policy with an entropy temperature in
// the SAC style: exploration decays as the temperature anneals.
type sacPolicy struct {
	theta []float64
	alpha float64
	lr    float64
}

func newSAC(lr float64) *sacPolicy {
	return &sacPolicy{theta: make([]float64, featureCount), alpha: 1.0, lr: lr}
}

func (p *sacPolicy) Kind() Kind { return KindSAC }

func (p *sacPolicy) Score(features []float64) float64 {
	if p.alpha <= 0 {
		return floats.Dot(p.theta, features)
	}
	return floats.Dot(p.theta, features) / p.alpha
}

func (p *sacPolicy) Update(batch []Transition) {
	for _, tr := range batch {
		// Soft update: the entropy bonus keeps scores flat early on.
		step := p.lr * (tr.Advantage + p.alpha*entropyBonus)
		floats.AddScaled(p.theta, step, tr.Features)
	}
	p.alpha *= alphaDecay
	if p.alpha < alphaFloor {
		p.alpha = alphaFloor
	}
}

const (
	entropyBonus = 0.01
	alphaDecay   = 0.995
	alphaFloor   = 0.05
)

func (p *sacPolicy) Checkpoint() Checkpoint {
	return Checkpoint{
		Kind:  p.Kind().String(),
		Theta: append([]float64(nil), p.theta...),
		Alpha: p.alpha,
	}
}

func (p *sacPolicy) Restore(c Checkpoint) error {
	if len(c.Theta) != featureCount {
		return fmt.Errorf("checkpoint has %d weights, want %d", len(c.Theta), featureCount)
	}
	p.theta = append([]float64(nil), c.Theta...)
	if c.Alpha > 0 {
		p.alpha = c.Alpha
	}
	return nil
}

// RestorePolicy builds a policy from a checkpoint file.
func RestorePolicy(path string) (Policy, error) {
	c, err := LoadCheckpoint(path)
	if err != nil {
		return nil, err
	}
	kind, err := ParseKind(c.Kind)
	if err != nil {
		return nil, err
	}
	pol, err := NewPolicy(kind, 0)
	if err != nil {
		return nil, err
	}
	if err := pol.Restore(c); err != nil {
		return nil, err
	}
	return pol, nil
}

// ErrNoValidAdjustment is returned when every ranked candidate
// violates a hard constraint.
var ErrNoValidAdjustment = errors.New("no valid adjustment available")
