package scheduler

import (
	"context"
	"fmt"
	"time"

	"markethealth/internal/batch"
	"markethealth/internal/components/assert"
	"markethealth/internal/components/chrono"
	"markethealth/internal/components/metrics"
	"markethealth/internal/components/telemetry"
	"markethealth/internal/health"

	"github.com/cenkalti/backoff/v4"
)

const (
	DefaultSpec = "@every 2m"

	report_scheduler_tick  = "scheduler.tick"
	report_scheduler_retry = "scheduler.retry"
)

// Batch is implemented by batch.Runner.
type Batch interface {
	Run(ctx context.Context) (batch.Report, error)
}

type RetryOptions struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries      uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

type Options struct {
	// Spec is a robfig/cron spec, defaults to DefaultSpec.
	Spec   string
	Gate   chrono.Gate
	Time   chrono.TimeAPI
	Health *health.Tracker
	Retry  RetryOptions
	// Metrics is optional.
	Metrics *metrics.Metrics
}

type Scheduler struct {
	opts  Options
	cron  chrono.CronAPI
	batch Batch
	tel   telemetry.API
}

func New(cron chrono.CronAPI, b Batch, opts Options, tel telemetry.API) Scheduler {
	assert.NotNil(cron)
	assert.NotNil(b)
	assert.NotNil(opts.Gate)
	assert.NotNil(opts.Time)
	assert.NotNil(opts.Health)
	assert.NotNil(tel)

	if opts.Spec == "" {
		opts.Spec = DefaultSpec
	}
	return Scheduler{
		opts:  opts,
		cron:  cron,
		batch: b,
		tel:   telemetry.NewScopedAPI("scheduler", tel),
	}
}

func (s Scheduler) retryPolicy(ctx context.Context) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	if s.opts.Retry.InitialInterval > 0 {
		exp.InitialInterval = s.opts.Retry.InitialInterval
	}
	if s.opts.Retry.MaxInterval > 0 {
		exp.MaxInterval = s.opts.Retry.MaxInterval
	}
	exp.MaxElapsedTime = 0
	exp.Reset()
	return backoff.WithContext(backoff.WithMaxRetries(exp, s.opts.Retry.MaxRetries), ctx)
}

func (s Scheduler) skip(reason string) {
	s.tel.ReportDebug("batch skipped", reason)
	if s.opts.Metrics != nil {
		s.opts.Metrics.Batches.WithLabelValues("skipped").Inc()
	}
}

// Tick runs one batch if the market is open and the breaker lets it
// through. Batch-fatal errors are retried with exponential backoff, query
// failures are not.
func (s Scheduler) Tick(ctx context.Context) {
	now := s.opts.Time.Now()
	if !s.opts.Gate.IsOpen(now) {
		s.skip("market closed")
		return
	}
	if !s.opts.Health.Allow(now) {
		s.skip("breaker open")
		return
	}

	var report batch.Report
	attempt := 0
	err := backoff.RetryNotify(
		func() error {
			attempt++
			var err error
			report, err = s.batch.Run(ctx)
			if err != nil && ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			return err
		},
		s.retryPolicy(ctx),
		func(err error, wait time.Duration) {
			s.tel.ReportWarning(report_scheduler_retry, err, attempt, wait.String())
		},
	)
	if ctx.Err() != nil {
		return
	}

	finished := s.opts.Time.Now()
	switch {
	case err != nil:
		s.tel.ReportBroken(report_scheduler_tick, fmt.Errorf("after %d attempts: %w", attempt, err))
		s.opts.Health.Failure(finished, err)
	case report.AllFailed():
		err = fmt.Errorf("all %d queries failed", report.Total)
		s.tel.ReportBroken(report_scheduler_tick, err)
		s.opts.Health.Failure(finished, err)
	default:
		s.tel.ReportDebug(
			"batch finished",
			report.Succeeded, report.NoData, report.Failed, report.PublishedUrl,
		)
		s.opts.Health.Success(finished)
	}

	if s.opts.Metrics != nil {
		status := s.opts.Health.Status()
		s.opts.Metrics.HealthState.Set(float64(status.State))
		s.opts.Metrics.ConsecutiveFails.Set(float64(status.ConsecutiveFailures))
	}
}

// Run schedules Tick on the cron spec and blocks until ctx is done, then
// waits for a running batch to finish. With `immediate` one tick runs
// before the first scheduled one.
func (s Scheduler) Run(ctx context.Context, immediate bool) error {
	err := s.cron.Cron(s.opts.Spec, func() {
		s.Tick(ctx)
	})
	if err != nil {
		return fmt.Errorf("invalid cron spec %q: %w", s.opts.Spec, err)
	}

	if immediate {
		s.Tick(ctx)
	}

	s.cron.Start()
	<-ctx.Done()
	<-s.cron.Stop().Done()
	return nil
}
