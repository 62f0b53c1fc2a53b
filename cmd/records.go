package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/dispatchsim/core/records"
	"github.com/kilianp07/dispatchsim/infra/logger"
	"github.com/kilianp07/dispatchsim/jobs/backfill"
	"github.com/kilianp07/dispatchsim/pkg/export"
)

var queryOpts struct {
	runID   string
	sinceID int
	actor   int
	limit   int
	format  string
}

var copyOpts struct {
	runID string
	dest  records.Config
}

var recordsCmd = &cobra.Command{
	Use:   "records",
	Short: "Inspect the record store",
}

var recordsQueryCmd = &cobra.Command{
	Use:   "query",
	Short: "Print serviced tasks from the configured store",
	RunE:  queryRecords,
}

var recordsCopyCmd = &cobra.Command{
	Use:   "copy",
	Short: "Copy records from the configured store into another backend",
	RunE:  copyRecords,
}

func init() {
	f := recordsQueryCmd.Flags()
	f.StringVar(&queryOpts.runID, "run-id", "", "only this run")
	f.IntVar(&queryOpts.sinceID, "since-id", 0, "only tasks with an id at or above this one")
	f.IntVar(&queryOpts.actor, "actor", 0, "only tasks serviced by this actor")
	f.IntVar(&queryOpts.limit, "limit", 0, "maximum number of records, 0 for all")
	f.StringVar(&queryOpts.format, "format", "csv", "output format: csv or json")
	recordsCmd.AddCommand(recordsQueryCmd)

	f = recordsCopyCmd.Flags()
	f.StringVar(&copyOpts.runID, "run-id", "", "only this run")
	f.StringVar(&copyOpts.dest.Backend, "to-backend", "", "destination backend")
	f.StringVar(&copyOpts.dest.Path, "to-path", "", "destination file for file based backends")
	f.StringVar(&copyOpts.dest.DSN, "to-dsn", "", "destination postgres connection string")
	_ = recordsCopyCmd.MarkFlagRequired("to-backend")
	recordsCmd.AddCommand(recordsCopyCmd)
	rootCmd.AddCommand(recordsCmd)
}

func queryRecords(cmd *cobra.Command, _ []string) error {
	ctx, stop := signalContext()
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Records.Backend == "none" {
		return fmt.Errorf("no record store configured")
	}
	store, err := records.Open(ctx, cfg.Records)
	if err != nil {
		return err
	}
	defer store.Close()

	q := records.Query{RunID: queryOpts.runID, SinceID: queryOpts.sinceID, Limit: queryOpts.limit}
	if cmd.Flags().Changed("actor") {
		a := queryOpts.actor
		q.Actor = &a
	}
	recs, err := store.Query(ctx, q)
	if err != nil {
		return err
	}
	switch queryOpts.format {
	case "csv":
		return export.WriteCSV(cmd.OutOrStdout(), recs)
	case "json":
		return export.WriteJSON(cmd.OutOrStdout(), recs)
	default:
		return fmt.Errorf("unknown format %s", queryOpts.format)
	}
}

func copyRecords(cmd *cobra.Command, _ []string) error {
	ctx, stop := signalContext()
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	dest := copyOpts.dest
	dest.SetDefaults()
	if err := dest.Validate(); err != nil {
		return err
	}
	src, err := records.Open(ctx, cfg.Records)
	if err != nil {
		return err
	}
	defer src.Close()
	dst, err := records.Open(ctx, dest)
	if err != nil {
		return err
	}
	defer dst.Close()

	n, err := backfill.Copy(ctx, dst, src, records.Query{RunID: copyOpts.runID})
	logger.New("backfill").Infof("copied %d records from %s to %s", n, cfg.Records.Backend, dest.Backend)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "copied %d records\n", n)
	return nil
}
