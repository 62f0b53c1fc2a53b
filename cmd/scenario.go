package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kilianp07/dispatchsim/qa/scenarios"
)

var scenarioCmd = &cobra.Command{
	Use:   "scenario <file.yaml>",
	Short: "Run a QA scenario and check its expectations",
	Args:  cobra.ExactArgs(1),
	RunE:  runScenario,
}

func init() {
	rootCmd.AddCommand(scenarioCmd)
}

func runScenario(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	sc, err := scenarios.Load(args[0])
	if err != nil {
		return err
	}
	st, err := scenarios.Execute(ctx, sc)
	if err != nil {
		return err
	}
	printSummary(cmd, st)
	if msgs := sc.Expected.Check(st); len(msgs) > 0 {
		return fmt.Errorf("scenario %s failed:\n  %s", sc.Name, strings.Join(msgs, "\n  "))
	}
	fmt.Fprintf(cmd.OutOrStdout(), "scenario %s passed\n", sc.Name)
	return nil
}
