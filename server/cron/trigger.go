// Package cron refreshes run stores on a cron schedule.
//
// Each store with a refresh schedule gets one CronTrigger, owned by a
// Manager. When the schedule fires the trigger calls the store's fetcher,
// which merges the newest upstream page into the runs already loaded. A
// failed refresh is logged and the next one is still scheduled.
//
//	trigger, err := cron.NewCronTrigger("all", "*/5 * * * *", fetcher, logger)
//	if err != nil {
//	    return err
//	}
//	trigger.Start(ctx)
package cron

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// ErrInvalidCronSpec wraps parse errors for a store's refresh schedule.
var ErrInvalidCronSpec = errors.New("invalid cron spec")

// Runnable performs one refresh. fetch.Fetcher implements it.
type Runnable interface {
	Run() error
}

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// ValidateSpec reports whether spec is a valid five-field cron expression.
func ValidateSpec(spec string) error {
	if _, err := parser.Parse(spec); err != nil {
		return errors.Join(ErrInvalidCronSpec, err)
	}
	return nil
}

// CronTrigger refreshes one store on a five-field cron schedule.
type CronTrigger struct {
	name     string
	spec     string
	schedule cron.Schedule
	runnable Runnable
	logger   *slog.Logger
}

// NewCronTrigger returns a trigger named after the store it refreshes. spec
// uses the minute, hour, day of month, month and weekday fields.
func NewCronTrigger(name, spec string, runnable Runnable, logger *slog.Logger) (*CronTrigger, error) {
	schedule, err := parser.Parse(spec)
	if err != nil {
		return nil, errors.Join(ErrInvalidCronSpec, err)
	}

	return &CronTrigger{
		name:     name,
		spec:     spec,
		schedule: schedule,
		runnable: runnable,
		logger:   logger.With("trigger", name),
	}, nil
}

// Start schedules refreshes in the background until ctx is cancelled.
func (ct *CronTrigger) Start(ctx context.Context) {
	go ct.loop(ctx)
}

// NextRun reports when the next refresh is due.
func (ct *CronTrigger) NextRun() time.Time {
	return ct.schedule.Next(time.Now())
}

func (ct *CronTrigger) loop(ctx context.Context) {
	for {
		nextRun := ct.schedule.Next(time.Now())
		timer := time.NewTimer(time.Until(nextRun))

		ct.logger.Debug("waiting for next scheduled refresh", "next_run", nextRun)

		select {
		case <-ctx.Done():
			timer.Stop()
			ct.logger.Info("refresh schedule stopped")
			return
		case <-timer.C:
			ct.fire()
		}
	}
}

func (ct *CronTrigger) fire() {
	start := time.Now()
	if err := ct.runnable.Run(); err != nil {
		ct.logger.Warn("scheduled refresh failed", "error", err)
		return
	}
	ct.logger.Debug("scheduled refresh completed", "duration", time.Since(start))
}
