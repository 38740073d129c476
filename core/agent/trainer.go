package agent

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lucasgrd/shopsched/core/logger"
	"github.com/lucasgrd/shopsched/core/metrics"
	"github.com/lucasgrd/shopsched/core/model"
	"github.com/lucasgrd/shopsched/internal/eventbus"
)

// TaskStatus is the lifecycle of a background training task.
type TaskStatus int

const (
	TaskPending TaskStatus = iota
	TaskRunning
	TaskCompleted
	TaskFailed
	TaskCancelled
)

// String returns a human-readable representation of the status.
func (s TaskStatus) String() string {
	switch s {
	case TaskPending:
		return "pending"
	case TaskRunning:
		return "running"
	case TaskCompleted:
		return "completed"
	case TaskFailed:
		return "failed"
	case TaskCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Progress is the pollable state of a training task.
type Progress struct {
	Status         TaskStatus
	Episode        int
	MaxEpisodes    int
	BestReward     float64
	BestMakespan   int
	BestTardiness  int
	EpisodesPerSec float64
	MovingAvg      float64
	Err            string
}

// Task is the handle shared between the caller and the training loop.
// It is the only shared state: the loop reads an immutable snapshot of
// the environment taken at start.
type Task struct {
	// ID identifies the run in logs and metrics.
	ID string

	mu       sync.Mutex
	progress Progress
	cancel   context.CancelFunc
	done     chan struct{}
	bus      *eventbus.Bus[Progress]
}

// Progress returns the current training progress.
func (t *Task) Progress() Progress {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.progress
}

// Updates exposes a stream of progress reports.
func (t *Task) Updates() <-chan Progress { return t.bus.Subscribe() }

// Cancel requests cooperative cancellation. The loop stops at the next
// episode boundary; the last-saved checkpoint remains usable.
func (t *Task) Cancel() { t.cancel() }

// Wait blocks until the task finishes.
func (t *Task) Wait() { <-t.done }

func (t *Task) set(mut func(*Progress)) {
	t.mu.Lock()
	mut(&t.progress)
	p := t.progress
	t.mu.Unlock()
	t.bus.Publish(p)
}

// Trainer runs training episodes as a long-lived background task.
type Trainer struct {
	cfg  Config
	log  logger.Logger
	sink metrics.MetricsSink
}

// NewTrainer creates a trainer. Nil logger and sink default to no-ops.
func NewTrainer(cfg Config, log logger.Logger, sink metrics.MetricsSink) *Trainer {
	cfg.SetDefaults()
	if log == nil {
		log = logger.NopLogger{}
	}
	if sink == nil {
		sink = metrics.NopSink{}
	}
	return &Trainer{cfg: cfg, log: log, sink: sink}
}

// Train launches the background loop and returns its handle
// immediately. A panic inside the loop marks the task Failed without
// affecting other runs.
func (tr *Trainer) Train(ctx context.Context, env *Environment, policy Policy) *Task {
	ctx, cancel := context.WithCancel(ctx)
	task := &Task{
		ID:     uuid.NewString(),
		cancel: cancel,
		done:   make(chan struct{}),
		bus:    eventbus.New[Progress](),
	}
	task.progress = Progress{Status: TaskPending, MaxEpisodes: tr.cfg.Episodes}

	go func() {
		defer close(task.done)
		defer task.bus.Close()
		defer func() {
			if r := recover(); r != nil {
				tr.log.Errorf("training panic: %v", r)
				task.set(func(p *Progress) {
					p.Status = TaskFailed
					p.Err = fmt.Sprint(r)
				})
			}
		}()
		tr.run(ctx, env, policy, task)
	}()
	return task
}

func (tr *Trainer) run(ctx context.Context, env *Environment, policy Policy, task *Task) {
	task.set(func(p *Progress) { p.Status = TaskRunning })
	tr.log.Infof("training task %s started: %d episodes", task.ID, tr.cfg.Episodes)
	start := time.Now()
	agent := New(policy, tr.cfg, tr.log)

	best := Progress{BestReward: 0}
	first := true
	var avg float64
	for ep := 1; ep <= tr.cfg.Episodes; ep++ {
		if ctx.Err() != nil {
			task.set(func(p *Progress) { p.Status = TaskCancelled })
			tr.log.Infof("training cancelled after %d episodes", ep-1)
			return
		}
		total, batch := tr.episode(env, agent, policy)
		policy.Update(batch)

		// Exponential moving average smooths the reported reward.
		if first {
			avg = total
			first = false
		} else {
			avg = 0.9*avg + 0.1*total
		}
		if total > best.BestReward || ep == 1 {
			best.BestReward = total
			best.BestMakespan = env.Current().Makespan()
			best.BestTardiness = env.Current().TotalTardiness(env.Problem())
			if tr.cfg.CheckpointPath != "" {
				ck := policy.Checkpoint()
				ck.Episode = ep
				ck.BestReward = total
				if err := ck.Save(tr.cfg.CheckpointPath); err != nil {
					tr.log.Warnf("checkpoint save failed: %v", err)
				}
			}
		}
		episode := ep
		task.set(func(p *Progress) {
			p.Episode = episode
			p.BestReward = best.BestReward
			p.BestMakespan = best.BestMakespan
			p.BestTardiness = best.BestTardiness
			p.MovingAvg = avg
			p.EpisodesPerSec = float64(episode) / time.Since(start).Seconds()
		})
		if err := tr.sink.RecordTraining(metrics.TrainingRecord{Episode: ep, BestReward: best.BestReward}); err != nil {
			tr.log.Warnf("training metrics: %v", err)
		}
	}
	task.set(func(p *Progress) { p.Status = TaskCompleted })
	tr.log.Infof("training completed: %d episodes, best reward %.2f", tr.cfg.Episodes, best.BestReward)
}

// episode plays one disruption sequence and collects discounted
// transitions for the policy update.
func (tr *Trainer) episode(env *Environment, agent *Agent, policy Policy) (float64, []Transition) {
	env.Reset()
	type step struct {
		features []float64
		score    float64
		reward   float64
	}
	var steps []step
	for !env.Done() {
		obs, err := env.Observe()
		if err != nil {
			continue
		}
		adj, err := agent.Recommend(obs, env.Current(), env.Problem())
		if err != nil {
			// All candidates invalid: skip this event.
			continue
		}
		reward, _ := env.Step(adj)
		if adj.Action == model.ActionNone {
			continue
		}
		f := Featurize(obs, adj, env.Current(), env.Problem())
		steps = append(steps, step{features: f, score: policy.Score(f), reward: reward})
	}

	// Discounted returns, then advantage against the episode mean.
	returns := make([]float64, len(steps))
	acc := 0.0
	total := 0.0
	for i := len(steps) - 1; i >= 0; i-- {
		acc = steps[i].reward + tr.cfg.Gamma*acc
		returns[i] = acc
		total += steps[i].reward
	}
	var mean float64
	for _, r := range returns {
		mean += r
	}
	if len(returns) > 0 {
		mean /= float64(len(returns))
	}
	batch := make([]Transition, len(steps))
	for i, s := range steps {
		batch[i] = Transition{Features: s.features, Advantage: returns[i] - mean, OldScore: s.score}
	}
	return total, batch
}
