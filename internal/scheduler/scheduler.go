package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/gladneycenter/bps-kpi-ingest/internal/ingest"
)

// Runner is the job the scheduler triggers.
type Runner interface {
	Run(ctx context.Context) (*ingest.Result, error)
}

type Scheduler struct {
	ctx     context.Context
	job     Runner
	logger  *logrus.Logger
	cron    *cron.Cron
	timeout time.Duration
}

// NewScheduler creates a scheduler whose runs never overlap: a tick that
// fires while the previous run is still going is skipped and logged.
// A positive timeout bounds each run.
func NewScheduler(ctx context.Context, job Runner, logger *logrus.Logger, timeout time.Duration) *Scheduler {
	return &Scheduler{
		ctx:    ctx,
		job:    job,
		logger: logger,
		cron: cron.New(
			cron.WithLogger(cron.PrintfLogger(logger)),
			cron.WithChain(cron.SkipIfStillRunning(cron.VerbosePrintfLogger(logger))),
		),
		timeout: timeout,
	}
}

// Start registers the job under the standard five-field cron spec and
// starts the scheduler.
func (s *Scheduler) Start(spec string) error {
	if _, err := s.cron.AddFunc(spec, s.runJob); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	s.cron.Start()
	return nil
}

// runJob executes one ingestion run; failures are logged and the next
// tick starts a fresh run.
func (s *Scheduler) runJob() {
	ctx := s.ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(s.ctx, s.timeout)
		defer cancel()
	}

	res, err := s.job.Run(ctx)
	if err != nil {
		s.logger.WithError(err).Error("Scheduled run failed")
		return
	}
	s.logger.WithFields(logrus.Fields{
		"run_id": res.RunID,
		"uri":    res.URI,
		"rows":   res.Rows,
	}).Info("Scheduled run completed")
}

// Stop the scheduler and wait for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
