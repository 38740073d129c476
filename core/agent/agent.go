package agent

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/lucasgrd/shopsched/core/logger"
	"github.com/lucasgrd/shopsched/core/model"
	"github.com/lucasgrd/shopsched/core/tracker"
)

// Config defines Tier 2 parameters loaded from configuration.
type Config struct {
	Kind           string  `json:"kind"` // "ppo" or "sac"
	Episodes       int     `json:"episodes"`
	Gamma          float64 `json:"gamma"`
	LearningRate   float64 `json:"learning_rate"`
	Seed           int64   `json:"seed"`
	CheckpointPath string  `json:"checkpoint_path"`
	MaxCandidates  int     `json:"max_candidates"`
}

// SetDefaults fills unset fields with their defaults.
func (c *Config) SetDefaults() {
	if c.Kind == "" {
		c.Kind = "ppo"
	}
	if c.Episodes <= 0 {
		c.Episodes = 200
	}
	if c.Gamma <= 0 || c.Gamma > 1 {
		c.Gamma = 0.95
	}
	if c.LearningRate <= 0 {
		c.LearningRate = 0.01
	}
	if c.MaxCandidates <= 0 {
		c.MaxCandidates = 32
	}
}

// Validate checks the configuration is usable.
func (c Config) Validate() error {
	if _, err := ParseKind(c.Kind); err != nil {
		return err
	}
	return nil
}

// ScoredAdjustment pairs a candidate adjustment with its policy score
// and softmax confidence.
type ScoredAdjustment struct {
	Adjustment model.Adjustment
	Score      float64
	Confidence float64
}

// Agent ranks and validates adjustments for an active schedule.
// Recommend is synchronous and bounded: candidate enumeration is
// capped so it completes in interactive time.
type Agent struct {
	policy Policy
	cfg    Config
	log    logger.Logger
}

// New creates an agent. A nil logger defaults to a no-op logger.
func New(policy Policy, cfg Config, log logger.Logger) *Agent {
	cfg.SetDefaults()
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Agent{policy: policy, cfg: cfg, log: log}
}

// Recommend proposes the highest-confidence adjustment that survives
// hard-constraint validation against the given schedule. When the
// observation affects no operations it returns an ActionNone
// adjustment rather than a spurious change. When every candidate is
// invalid it returns ErrNoValidAdjustment.
func (a *Agent) Recommend(obs tracker.Observation, s *model.Schedule, p *model.Problem) (model.Adjustment, error) {
	start := time.Now()
	if len(obs.AffectedOps) == 0 {
		return model.Adjustment{
			Action:     model.ActionNone,
			Confidence: 1,
			Rationale:  fmt.Sprintf("%s affects no scheduled operations, no action needed", obs.Event.Type),
		}, nil
	}

	ranked := a.Rank(obs, s, p)
	for _, cand := range ranked {
		next, err := cand.Adjustment.Apply(s, p)
		if err != nil {
			continue
		}
		if err := model.Validate(next, p); err != nil {
			a.log.Debugf("candidate %s rejected: %v", cand.Adjustment.Action, err)
			continue
		}
		adj := cand.Adjustment
		adj.Confidence = cand.Confidence
		a.log.Infof("recommendation %s for %s in %s", adj.Action, adj.OperationID, time.Since(start))
		return adj, nil
	}
	return model.Adjustment{}, ErrNoValidAdjustment
}

// Rank enumerates candidate adjustments for the affected operations
// and orders them by policy score. Frozen operations are never
// targeted.
func (a *Agent) Rank(obs tracker.Observation, s *model.Schedule, p *model.Problem) []ScoredAdjustment {
	cands := enumerate(obs, s, p, a.cfg.MaxCandidates)
	scored := make([]ScoredAdjustment, 0, len(cands))
	for _, c := range cands {
		scored = append(scored, ScoredAdjustment{
			Adjustment: c,
			Score:      a.policy.Score(Featurize(obs, c, s, p)),
		})
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })

	// Softmax over scores yields the reported confidence.
	maxScore := math.Inf(-1)
	for _, c := range scored {
		if c.Score > maxScore {
			maxScore = c.Score
		}
	}
	var sum float64
	for i := range scored {
		scored[i].Confidence = math.Exp(scored[i].Score - maxScore)
		sum += scored[i].Confidence
	}
	if sum > 0 {
		for i := range scored {
			scored[i].Confidence /= sum
		}
	}
	return scored
}

// enumerate builds the structured action space: reassign to alternate
// eligible machines, delay past the disruption window, resequence
// behind the machine successor.
func enumerate(obs tracker.Observation, s *model.Schedule, p *model.Problem, max int) []model.Adjustment {
	var cands []model.Adjustment
	window := obs.Event.Window()
	for _, opID := range obs.AffectedOps {
		if obs.FrozenOps[opID] {
			continue
		}
		op, ok := p.OperationByID(opID)
		if !ok {
			continue
		}
		asn, ok := s.AssignmentFor(opID)
		if !ok {
			continue
		}
		for _, mid := range op.EligibleMachines {
			if mid == asn.MachineID {
				continue
			}
			cands = append(cands, model.Adjustment{
				Action:        model.ActionReassign,
				OperationID:   opID,
				TargetMachine: mid,
				Rationale:     fmt.Sprintf("move %s off %s to %s during %s", opID, asn.MachineID, mid, obs.Event.Type),
			})
		}
		if delay := window.End - asn.Start; delay > 0 {
			cands = append(cands, model.Adjustment{
				Action:       model.ActionDelay,
				OperationID:  opID,
				DelayMinutes: delay,
				Rationale:    fmt.Sprintf("delay %s by %d min until %s clears", opID, delay, obs.Event.Type),
			})
		}
		cands = append(cands, model.Adjustment{
			Action:      model.ActionResequence,
			OperationID: opID,
			Rationale:   fmt.Sprintf("push %s behind its successor on %s", opID, asn.MachineID),
		})
		if len(cands) >= max {
			break
		}
	}
	if len(cands) > max {
		cands = cands[:max]
	}
	return cands
}

// Featurize maps a candidate adjustment onto the fixed feature vector
// scored by the policy.
func Featurize(obs tracker.Observation, adj model.Adjustment, s *model.Schedule, p *model.Problem) []float64 {
	f := make([]float64, featureCount)
	switch adj.Action {
	case model.ActionReassign:
		f[0] = 1
	case model.ActionResequence:
		f[1] = 1
	case model.ActionDelay:
		f[2] = 1
	}
	mk := float64(obs.Makespan)
	if mk == 0 {
		mk = 1
	}
	if asn, ok := s.AssignmentFor(adj.OperationID); ok {
		f[3] = float64(asn.Start) / mk
		if op, ok := p.OperationByID(adj.OperationID); ok {
			f[4] = float64(op.Duration) / mk
		}
	}
	f[5] = obs.Utilization / 100
	f[6] = float64(obs.Tardiness) / mk
	f[7] = float64(adj.DelayMinutes) / mk
	return f
}
