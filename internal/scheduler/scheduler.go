package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"IndexLens/internal/calculator"
	"IndexLens/internal/pipeline"
	"IndexLens/internal/recorder"
)

// ErrBusy is returned by RunNow while another cycle is running.
var ErrBusy = errors.New("refresh already running")

// Runner is the pipeline pass executed on every cycle.
type Runner interface {
	Run(ctx context.Context) (*pipeline.Result, error)
}

// Scheduler reruns the pipeline on a cron schedule.
type Scheduler struct {
	Cron     *cron.Cron
	Runner   Runner
	Recorder recorder.Recorder
	Logger   *zap.Logger
	Ctx      context.Context

	running sync.Mutex     // held for the duration of a cycle
	manual  sync.WaitGroup // RunNow calls in flight
}

// NewScheduler creates a new Scheduler. Cron specs carry a seconds field.
func NewScheduler(ctx context.Context, runner Runner, rec recorder.Recorder, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		Cron: cron.New(
			cron.WithSeconds(),
			cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
		Runner:   runner,
		Recorder: rec,
		Logger:   logger,
		Ctx:      ctx,
	}
}

// Register adds the refresh job.
func (s *Scheduler) Register(refreshCron string) error {
	if _, err := s.Cron.AddFunc(refreshCron, s.refresh); err != nil {
		return fmt.Errorf("register refresh task: %w", err)
	}
	s.Logger.Info("refresh task registered", zap.String("cron", refreshCron))
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.Logger.Info("scheduler started")
}

// Stop stops the cron scheduler and waits for running cycles, scheduled or
// manual, to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.manual.Wait()
	s.Logger.Info("scheduler stopped")
}

// RunNow executes one cycle synchronously. It returns ErrBusy when a
// scheduled cycle is already running.
func (s *Scheduler) RunNow() (*pipeline.Result, error) {
	s.manual.Add(1)
	defer s.manual.Done()
	return s.cycle()
}

func (s *Scheduler) refresh() {
	_, _ = s.cycle()
}

func (s *Scheduler) cycle() (*pipeline.Result, error) {
	if !s.running.TryLock() {
		s.Logger.Warn("refresh skipped", zap.Error(ErrBusy))
		return nil, ErrBusy
	}
	defer s.running.Unlock()

	if err := s.Ctx.Err(); err != nil {
		s.Logger.Warn("refresh skipped", zap.Error(err))
		return nil, err
	}
	s.Logger.Info("running refresh")

	res, err := s.Runner.Run(s.Ctx)
	if rerr := s.Recorder.RecordRun(s.Ctx, &recorder.RunRecord{Result: res, Err: err}); rerr != nil {
		s.Logger.Error("record run", zap.Error(rerr))
	}

	if err != nil {
		s.Logger.Error(pipeline.Banner(err), zap.Stringp("run_id", runID(res)))
		return res, err
	}

	for _, sum := range calculator.Summarize(res.Final.Rows) {
		s.Logger.Debug("symbol summary",
			zap.String("symbol", sum.Symbol),
			zap.Int("bars", sum.Bars),
			zap.Float64("mean_return", sum.MeanReturn),
			zap.Float64("total_dollar_return", sum.TotalDollarReturn))
	}
	s.Logger.Info("refresh complete",
		zap.String("run_id", res.RunID),
		zap.Int("rows", res.Final.Len()),
		zap.Int("symbols", len(res.Symbols)),
		zap.Int("failed", len(res.Failed())))
	return res, nil
}

func runID(res *pipeline.Result) *string {
	if res == nil {
		return nil
	}
	return &res.RunID
}
