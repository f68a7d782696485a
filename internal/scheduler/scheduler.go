package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/kofuk/homedns/internal/entity"
	"github.com/robfig/cron/v3"
)

// Job is one update cycle. The returned value is exposed on the status endpoint.
type Job func(ctx context.Context) (any, error)

type Run struct {
	Start    time.Time       `json:"start"`
	Duration time.Duration   `json:"duration"`
	Result   any             `json:"result,omitempty"`
	Error    string          `json:"error,omitempty"`
	ExitCode entity.ExitCode `json:"exitCode"`
}

// Status holds the outcome of the most recent cycle.
type Status struct {
	m       sync.Mutex
	runs    int
	failed  int
	lastRun *Run
}

func (s *Status) record(run Run) {
	s.m.Lock()
	defer s.m.Unlock()
	s.runs++
	if run.ExitCode != entity.ExitOK {
		s.failed++
	}
	s.lastRun = &run
}

type Snapshot struct {
	Runs    int  `json:"runs"`
	Failed  int  `json:"failed"`
	LastRun *Run `json:"lastRun,omitempty"`
}

func (s *Status) Snapshot() Snapshot {
	s.m.Lock()
	defer s.m.Unlock()
	snapshot := Snapshot{Runs: s.runs, Failed: s.failed}
	if s.lastRun != nil {
		run := *s.lastRun
		snapshot.LastRun = &run
	}
	return snapshot
}

type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...any) {
	slog.Debug(msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...any) {
	slog.Error(msg, append(keysAndValues, slog.Any("error", err))...)
}

// Scheduler runs Job on a cron schedule. A cycle that is still running when
// the next one is due causes that tick to be skipped.
type Scheduler struct {
	Spec string
	Job  Job
	// Immediate runs one cycle as soon as Run is called.
	Immediate bool
	Status    *Status
}

func (s *Scheduler) runOnce(ctx context.Context) {
	start := time.Now()
	result, err := s.Job(ctx)
	run := Run{
		Start:    start.UTC(),
		Duration: time.Since(start),
		Result:   result,
		ExitCode: entity.ExitCodeOf(err),
	}
	if err != nil {
		run.Error = err.Error()
		slog.Error("Update cycle failed", slog.Any("error", err), slog.Int("exitCode", int(run.ExitCode)))
	}
	if s.Status != nil {
		s.Status.record(run)
	}
}

func (s *Scheduler) Run(ctx context.Context) error {
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithChain(cron.SkipIfStillRunning(cronLogger{})),
	)

	if _, err := c.AddJob(s.Spec, cron.FuncJob(func() { s.runOnce(ctx) })); err != nil {
		return fmt.Errorf("%w: schedule %q: %w", entity.ErrInvalidConfig, s.Spec, err)
	}

	slog.Info("Scheduler started", slog.String("schedule", s.Spec))

	if s.Immediate {
		s.runOnce(ctx)
	}

	c.Start()

	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}
