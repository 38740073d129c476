package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lucasgrd/shopsched/config"
	"github.com/lucasgrd/shopsched/core/fifo"
	"github.com/lucasgrd/shopsched/core/problem"
	"github.com/lucasgrd/shopsched/infra/logger"
)

var (
	fifoProblemPath string
	fifoOutPath     string
)

var fifoCmd = &cobra.Command{
	Use:   "fifo",
	Short: "Generate the FIFO baseline schedule for a problem file",
	RunE:  runFIFO,
}

func init() {
	fifoCmd.Flags().StringVarP(&fifoProblemPath, "problem", "p", "", "problem description file (JSON)")
	fifoCmd.Flags().StringVarP(&fifoOutPath, "out", "o", "", "schedule output file (stdout if empty)")
	_ = fifoCmd.MarkFlagRequired("problem")
	rootCmd.AddCommand(fifoCmd)
}

func runFIFO(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger.Configure(cfg.Logging.Level, cfg.Logging.Format)
	logg := logger.New("fifo-command")

	in, err := problem.LoadInput(fifoProblemPath)
	if err != nil {
		return fmt.Errorf("load problem: %w", err)
	}
	p, err := problem.Build(in, cfg.Problem.Options())
	if err != nil {
		return fmt.Errorf("build problem: %w", err)
	}

	s := fifo.Generate(p)
	logg.Infof("fifo baseline: status=%s makespan=%d tardiness=%d",
		s.Status, s.Makespan(), s.TotalTardiness(p))
	return writeJSON(s.Export(p), fifoOutPath)
}
