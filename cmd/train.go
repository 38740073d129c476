package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lucasgrd/shopsched/config"
	"github.com/lucasgrd/shopsched/core/agent"
	"github.com/lucasgrd/shopsched/core/fifo"
	"github.com/lucasgrd/shopsched/core/model"
	"github.com/lucasgrd/shopsched/core/problem"
	"github.com/lucasgrd/shopsched/infra/logger"
	"github.com/lucasgrd/shopsched/infra/metrics"
)

var trainProblemPath string

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train the reactive agent against synthetic disruptions",
	RunE:  runTrain,
}

func init() {
	trainCmd.Flags().StringVarP(&trainProblemPath, "problem", "p", "", "problem description file (JSON)")
	_ = trainCmd.MarkFlagRequired("problem")
	rootCmd.AddCommand(trainCmd)
}

func runTrain(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger.Configure(cfg.Logging.Level, cfg.Logging.Format)
	logg := logger.New("train-command")

	in, err := problem.LoadInput(trainProblemPath)
	if err != nil {
		return fmt.Errorf("load problem: %w", err)
	}
	p, err := problem.Build(in, cfg.Problem.Options())
	if err != nil {
		return fmt.Errorf("build problem: %w", err)
	}
	baseline := fifo.Generate(p)
	if baseline.Status == model.StatusInfeasible {
		return fmt.Errorf("baseline schedule is infeasible, cannot train")
	}

	kind, err := agent.ParseKind(cfg.Agent.Kind)
	if err != nil {
		return err
	}
	policy, err := agent.NewPolicy(kind, cfg.Agent.LearningRate)
	if err != nil {
		return err
	}

	sink, err := metrics.NewFromConfig(cfg.Metrics)
	if err != nil {
		return fmt.Errorf("metrics sink: %w", err)
	}
	defer func() {
		if err := sink.Close(); err != nil {
			logg.Errorf("sink close: %v", err)
		}
	}()

	env := agent.NewEnvironment(p, baseline, cfg.Agent.Seed)
	trainer := agent.NewTrainer(cfg.Agent, logg, sink)
	task := trainer.Train(ctx, env, policy)

	for prog := range task.Updates() {
		if prog.Episode%10 == 0 || prog.Episode == prog.MaxEpisodes {
			logg.Infof("episode %d/%d: best=%.2f avg=%.2f makespan=%d",
				prog.Episode, prog.MaxEpisodes, prog.BestReward, prog.MovingAvg, prog.BestMakespan)
		}
	}
	task.Wait()

	final := task.Progress()
	switch final.Status {
	case agent.TaskCompleted:
		logg.Infof("training complete: best reward %.2f, checkpoint %s",
			final.BestReward, cfg.Agent.CheckpointPath)
	case agent.TaskCancelled:
		logg.Warnf("training cancelled at episode %d", final.Episode)
	case agent.TaskFailed:
		return fmt.Errorf("training failed: %s", final.Err)
	}
	return nil
}
