package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/lucasgrd/shopsched/app"
	"github.com/lucasgrd/shopsched/config"
	"github.com/lucasgrd/shopsched/core/model"
	"github.com/lucasgrd/shopsched/infra/logger"
)

var (
	hybridProblemPath string
	hybridEventsPath  string
	hybridOutPath     string
)

var hybridCmd = &cobra.Command{
	Use:   "hybrid",
	Short: "Run the full three-tier pipeline on a problem file",
	RunE:  runHybrid,
}

func init() {
	hybridCmd.Flags().StringVarP(&hybridProblemPath, "problem", "p", "", "problem description file (JSON)")
	hybridCmd.Flags().StringVarP(&hybridEventsPath, "events", "e", "", "disruption events file (JSON, optional)")
	hybridCmd.Flags().StringVarP(&hybridOutPath, "out", "o", "", "schedule output file (stdout if empty)")
	_ = hybridCmd.MarkFlagRequired("problem")
	rootCmd.AddCommand(hybridCmd)
}

// eventInput mirrors the on-disk disruption event format.
type eventInput struct {
	ID          string   `json:"id"`
	Type        string   `json:"type"`
	Resource    string   `json:"resource"`
	Start       int      `json:"start"`
	Duration    int      `json:"duration"`
	AffectedOps []string `json:"affected_ops"`
	Notes       string   `json:"notes"`
}

func loadEvents(path string) ([]model.DisruptionEvent, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var inputs []eventInput
	if err := json.Unmarshal(data, &inputs); err != nil {
		return nil, fmt.Errorf("parse events: %w", err)
	}
	events := make([]model.DisruptionEvent, 0, len(inputs))
	for i, in := range inputs {
		t, ok := model.ParseDisruptionType(in.Type)
		if !ok {
			return nil, fmt.Errorf("event %d: unknown type %q", i, in.Type)
		}
		id := in.ID
		if id == "" {
			id = uuid.NewString()
		}
		events = append(events, model.DisruptionEvent{
			ID:          id,
			Type:        t,
			Resource:    in.Resource,
			Start:       in.Start,
			Duration:    in.Duration,
			AffectedOps: in.AffectedOps,
			Notes:       in.Notes,
		})
	}
	return events, nil
}

func runHybrid(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.New("hybrid-command").Errorf("service close: %v", err)
		}
	}()

	var events []model.DisruptionEvent
	if hybridEventsPath != "" {
		events, err = loadEvents(hybridEventsPath)
		if err != nil {
			return fmt.Errorf("load events: %w", err)
		}
	}

	res, p, err := svc.Run(ctx, hybridProblemPath, events)
	if err != nil {
		return err
	}
	return svc.WriteResult(res, p, hybridOutPath)
}
