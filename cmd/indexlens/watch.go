package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
	"go.uber.org/zap"

	"IndexLens/internal/recorder"
	"IndexLens/internal/scheduler"
)

type watchCmd struct {
	now bool
}

func (*watchCmd) Name() string     { return "watch" }
func (*watchCmd) Synopsis() string { return "rerun the pipeline on a schedule and record each run" }
func (*watchCmd) Usage() string {
	return `indexlens watch [-now]

  Reruns the pipeline on schedule.refresh_cron until interrupted.
  Runs are archived when a recorder is configured.
`
}

func (c *watchCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.now, "now", false, "Run once immediately before waiting for the schedule")
}

func (c *watchCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := newApp(false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	defer a.close()

	rec, err := recorder.Open(a.cfg.Recorder.Driver, a.cfg.Recorder.DSN, a.logger)
	if err != nil {
		a.logger.Warn("init recorder failed, using noop", zap.Error(err))
		rec = recorder.NewNoopRecorder()
	}
	defer rec.Close()

	sched := scheduler.NewScheduler(ctx, a.pipeline, rec, a.logger)
	if err := sched.Register(a.cfg.Schedule.RefreshCron); err != nil {
		a.logger.Error("register refresh task", zap.Error(err))
		return subcommands.ExitFailure
	}
	if c.now {
		// Runs before Start so the first scheduled cycle cannot overlap it.
		_, _ = sched.RunNow()
	}

	sched.Start()
	defer sched.Stop()

	a.logger.Info("watching, press Ctrl+C to stop")
	<-ctx.Done()
	a.logger.Info("shutdown signal received, stopping")
	return subcommands.ExitSuccess
}
