package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lucasgrd/shopsched/config"
	"github.com/lucasgrd/shopsched/core/problem"
	"github.com/lucasgrd/shopsched/core/solver"
	"github.com/lucasgrd/shopsched/infra/logger"
)

var (
	solveProblemPath string
	solveOutPath     string
)

var solveCmd = &cobra.Command{
	Use:   "solve",
	Short: "Run the branch-and-bound optimizer on a problem file",
	RunE:  runSolve,
}

func init() {
	solveCmd.Flags().StringVarP(&solveProblemPath, "problem", "p", "", "problem description file (JSON)")
	solveCmd.Flags().StringVarP(&solveOutPath, "out", "o", "", "schedule output file (stdout if empty)")
	_ = solveCmd.MarkFlagRequired("problem")
	rootCmd.AddCommand(solveCmd)
}

func runSolve(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger.Configure(cfg.Logging.Level, cfg.Logging.Format)
	logg := logger.New("solve-command")

	in, err := problem.LoadInput(solveProblemPath)
	if err != nil {
		return fmt.Errorf("load problem: %w", err)
	}
	p, err := problem.Build(in, cfg.Problem.Options())
	if err != nil {
		return fmt.Errorf("build problem: %w", err)
	}

	slv, err := solver.New(cfg.Solver, logg)
	if err != nil {
		return err
	}
	res, err := slv.Solve(ctx, p)
	if err != nil {
		return fmt.Errorf("solve: %w", err)
	}
	logg.Infof("solved: status=%s makespan=%d gap=%.2f%% explored=%d",
		res.Status, res.Schedule.Makespan(), res.GapPct, res.Explored)
	return writeJSON(res.Schedule.Export(p), solveOutPath)
}
