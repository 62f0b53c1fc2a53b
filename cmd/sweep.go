package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kilianp07/dispatchsim/app"
	"github.com/kilianp07/dispatchsim/core/sim"
	"github.com/kilianp07/dispatchsim/pkg/export"
)

var sweepOpts struct {
	rates  []float64
	policy string
	out    string
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run the configuration once per arrival rate",
	RunE:  runSweep,
}

func init() {
	f := sweepCmd.Flags()
	f.Float64SliceVar(&sweepOpts.rates, "rates", nil, "comma separated arrival rates")
	f.StringVar(&sweepOpts.policy, "policy", "", "override the dispatch policy")
	f.StringVar(&sweepOpts.out, "out", "", "write one summary row per rate to this CSV file")
	_ = sweepCmd.MarkFlagRequired("rates")
	rootCmd.AddCommand(sweepCmd)
}

func runSweep(cmd *cobra.Command, _ []string) error {
	ctx, stop := signalContext()
	defer stop()

	for _, r := range sweepOpts.rates {
		if r <= 0 {
			return fmt.Errorf("rates must be positive, got %g", r)
		}
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyPolicy(cfg, sweepOpts.policy)
	svc, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer svc.Close()
	svc.Serve(ctx)

	stats, err := svc.Sweep(ctx, sweepOpts.rates, func(st sim.Stats) { printSummary(cmd, st) })
	if err != nil {
		return err
	}
	if sweepOpts.out == "" {
		return nil
	}
	f, err := os.Create(sweepOpts.out)
	if err != nil {
		return err
	}
	if err := export.WriteSummaryCSV(f, stats); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
