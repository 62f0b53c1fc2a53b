package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/kilianp07/dispatchsim/app"
	"github.com/kilianp07/dispatchsim/config"
	"github.com/kilianp07/dispatchsim/core/records"
	"github.com/kilianp07/dispatchsim/core/sim"
	"github.com/kilianp07/dispatchsim/infra/logger"
	"github.com/kilianp07/dispatchsim/internal/eventbus"
	"github.com/kilianp07/dispatchsim/pkg/export"
)

var runOpts struct {
	seed   int64
	policy string
	rate   float64
	export string
	follow bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one simulation",
	RunE:  runSimulation,
}

func init() {
	f := runCmd.Flags()
	f.Int64Var(&runOpts.seed, "seed", 0, "override the random seed")
	f.StringVar(&runOpts.policy, "policy", "", "override the dispatch policy")
	f.Float64Var(&runOpts.rate, "rate", 0, "override the arrival rate")
	f.StringVar(&runOpts.export, "export", "", "write the serviced tasks to a .csv or .json file")
	f.BoolVar(&runOpts.follow, "follow", false, "log progress events while running")
	rootCmd.AddCommand(runCmd)
}

// applyPolicy switches policy type, dropping options meant for another policy.
func applyPolicy(cfg *config.Config, name string) {
	if name == "" || name == cfg.Policy.Type {
		return
	}
	cfg.Policy.Type = name
	cfg.Policy.Conf = nil
}

func runSimulation(cmd *cobra.Command, _ []string) error {
	ctx, stop := signalContext()
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyPolicy(cfg, runOpts.policy)
	if runOpts.export != "" && cfg.Records.Backend == "none" {
		dir, err := os.MkdirTemp("", "dispatchsim-")
		if err != nil {
			return err
		}
		defer os.RemoveAll(dir)
		cfg.Records = records.Config{Backend: "jsonl", Path: filepath.Join(dir, "records.jsonl")}
	}

	svc, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.New("main").Errorf("service close: %v", err)
		}
	}()
	svc.Serve(ctx)
	if runOpts.follow {
		follow(ctx, svc.Bus())
	}

	flags := cmd.Flags()
	st, err := svc.Run(ctx, func(c *sim.Config) {
		if flags.Changed("seed") {
			c.Seed = runOpts.seed
		}
		if flags.Changed("rate") {
			c.ArrivalRate = runOpts.rate
		}
	})
	if err != nil {
		return err
	}
	printSummary(cmd, st)
	if runOpts.export != "" {
		return exportRun(ctx, svc.Store(), st.RunID, runOpts.export)
	}
	return nil
}

func exportRun(ctx context.Context, store records.Store, runID, path string) error {
	recs, err := store.Query(ctx, records.Query{RunID: runID})
	if err != nil {
		return fmt.Errorf("query records: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := export.Records(f, path, recs); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// follow logs bus events until ctx ends or the bus closes.
func follow(ctx context.Context, bus *eventbus.Bus[sim.Event]) {
	log := logger.New("follow")
	sub := bus.Subscribe()
	go func() {
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				switch ev.Kind {
				case sim.TaskServiced:
					log.Infof("t=%.2f task %d serviced by actor %d, wait %.3f", ev.SimTime, ev.TaskID, ev.Actor, ev.Wait)
				case sim.ReplanRejected:
					log.Warnf("t=%.2f replan of sector %d rejected", ev.SimTime, ev.Sector)
				case sim.RunFinished:
					if ev.Stats != nil {
						log.Infof("run finished after %d ticks: %s", ev.Stats.Ticks, ev.Stats.Reason)
					}
				default:
					log.Debugf("t=%.2f %s", ev.SimTime, ev.Kind)
				}
			}
		}
	}()
}
