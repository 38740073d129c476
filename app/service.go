// Package app assembles the scheduling tiers from configuration.
package app

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/lucasgrd/shopsched/config"
	"github.com/lucasgrd/shopsched/core/agent"
	"github.com/lucasgrd/shopsched/core/gnn"
	"github.com/lucasgrd/shopsched/core/hybrid"
	coremetrics "github.com/lucasgrd/shopsched/core/metrics"
	"github.com/lucasgrd/shopsched/core/model"
	"github.com/lucasgrd/shopsched/core/problem"
	"github.com/lucasgrd/shopsched/core/solver"
	"github.com/lucasgrd/shopsched/infra/logger"
	"github.com/lucasgrd/shopsched/infra/metrics"
)

// Service wires the coordinator, metrics sinks and problem builder
// behind a single entry point.
type Service struct {
	Coordinator *hybrid.Coordinator
	cfg         *config.Config
	sink        coremetrics.MetricsSink
	log         logger.Logger
}

// New creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	logger.Configure(cfg.Logging.Level, cfg.Logging.Format)
	logg := logger.New("service")

	sink, err := metrics.NewFromConfig(cfg.Metrics)
	if err != nil {
		return nil, fmt.Errorf("metrics sink: %w", err)
	}

	slv, err := solver.New(cfg.Solver, logger.New("solver"))
	if err != nil {
		return nil, fmt.Errorf("solver: %w", err)
	}

	var ag *agent.Agent
	if cfg.Hybrid.EnableRL {
		ag, err = buildAgent(cfg.Agent)
		if err != nil {
			return nil, fmt.Errorf("agent: %w", err)
		}
	}

	var pred *gnn.Predictor
	if cfg.Hybrid.EnableGNN {
		pred = gnn.NewPredictor(cfg.GNN, logger.New("gnn"))
		if cfg.GNN.WeightsPath != "" {
			if err := pred.Load(cfg.GNN.WeightsPath); err != nil {
				logg.Warnf("gnn weights %s unavailable: %v", cfg.GNN.WeightsPath, err)
			}
		}
	}

	coord, err := hybrid.New(slv, ag, pred, sink, logger.New("hybrid"))
	if err != nil {
		return nil, fmt.Errorf("coordinator: %w", err)
	}
	return &Service{Coordinator: coord, cfg: cfg, sink: sink, log: logg}, nil
}

func buildAgent(cfg agent.Config) (*agent.Agent, error) {
	logg := logger.New("agent")
	if cfg.CheckpointPath != "" {
		if pol, err := agent.RestorePolicy(cfg.CheckpointPath); err == nil {
			return agent.New(pol, cfg, logg), nil
		} else if !os.IsNotExist(err) {
			return nil, err
		}
	}
	kind, err := agent.ParseKind(cfg.Kind)
	if err != nil {
		return nil, err
	}
	pol, err := agent.NewPolicy(kind, cfg.LearningRate)
	if err != nil {
		return nil, err
	}
	return agent.New(pol, cfg, logg), nil
}

// LoadProblem reads a problem description from a JSON file and builds
// the scheduling problem with the configured options.
func (s *Service) LoadProblem(path string) (*model.Problem, error) {
	in, err := problem.LoadInput(path)
	if err != nil {
		return nil, fmt.Errorf("load problem: %w", err)
	}
	p, err := problem.Build(in, s.cfg.Problem.Options())
	if err != nil {
		return nil, fmt.Errorf("build problem: %w", err)
	}
	return p, nil
}

// Run loads a problem, executes a hybrid run with the configured tiers
// and returns the result. The Prometheus endpoint, when enabled, stays
// up for the lifetime of ctx.
func (s *Service) Run(ctx context.Context, problemPath string, events []model.DisruptionEvent) (*hybrid.Result, *model.Problem, error) {
	if s.cfg.Metrics.PrometheusEnabled {
		go func() {
			if err := metrics.StartPromServer(ctx, s.cfg.Metrics.PrometheusPort); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}
	p, err := s.LoadProblem(problemPath)
	if err != nil {
		return nil, nil, err
	}
	res, err := s.Coordinator.Run(ctx, p, hybrid.Options{
		EnableRL:  s.cfg.Hybrid.EnableRL,
		EnableGNN: s.cfg.Hybrid.EnableGNN,
		Events:    events,
	})
	if err != nil {
		return nil, nil, err
	}
	return res, p, nil
}

// WriteResult renders the final schedule of a run as JSON to path, or
// to stdout when path is empty.
func (s *Service) WriteResult(res *hybrid.Result, p *model.Problem, path string) error {
	out := res.Final.Export(p)
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	if path == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Close releases resources held by the service.
func (s *Service) Close() error { return s.sink.Close() }
