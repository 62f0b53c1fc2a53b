package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kilianp07/dispatchsim/config"
	"github.com/kilianp07/dispatchsim/core/sim"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:           "dispatchsim",
	Short:         "Dynamic multi-vehicle dispatch simulator",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "config.yaml", "configuration file")
}

// Execute runs the CLI.
func Execute() error { return rootCmd.Execute() }

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func printSummary(cmd *cobra.Command, st sim.Stats) {
	fmt.Fprintf(cmd.OutOrStdout(),
		"run=%s policy=%s rate=%g serviced=%d avg_wait=%.4f max_wait=%.4f max_queue_age=%.4f travel=%.4f replans=%d rejections=%d stop=%s\n",
		st.RunID, st.Policy, st.Rate, st.Serviced, st.AvgWait(), st.MaxWait, st.MaxQueueAge, st.TotalTravel, st.Replans, st.Rejections, st.Reason)
}
