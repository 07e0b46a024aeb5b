package checker

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	"github.com/oshokin/swift-update-provider/internal/logger"
	"github.com/oshokin/swift-update-provider/internal/service/common"
)

// DefaultSchedule is used by Watch when no schedule is given.
const DefaultSchedule = "@every 1h"

// WatchOptions controls periodic checks.
type WatchOptions struct {
	Options

	// Schedule is a cron spec (five fields or a descriptor such as "@every 10m").
	Schedule string
}

// Watch checks once right away and then on every schedule tick until ctx is done.
// Failed checks are logged and do not stop the loop; overlapping ticks are skipped.
func Watch(ctx context.Context, opts *WatchOptions) error {
	ctx = logger.WithName(ctx, "watch")

	schedule := opts.Schedule
	if schedule == "" {
		schedule = DefaultSchedule
	}

	c, err := newChecker(&opts.Options)
	if err != nil {
		return err
	}

	scheduler := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))

	tick := func() {
		c.tick(ctx)
	}

	if _, err = scheduler.AddFunc(schedule, tick); err != nil {
		return fmt.Errorf("parse schedule %q: %w", schedule, err)
	}

	logger.InfoKV(ctx, "Watching for updates", "channel", c.provider.Channel(), "schedule", schedule)

	tick()
	scheduler.Start()

	<-ctx.Done()

	logger.Info(ctx, "Context canceled, waiting for the running check")
	<-scheduler.Stop().Done()

	return nil
}

// tick runs one check, prints it and flushes metrics; errors are only logged.
func (c *checker) tick(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	defer common.FlushMetrics(ctx, c.metrics, c.opts.MetricsFile)

	report, err := c.check(ctx)
	if err != nil {
		logger.ErrorKV(ctx, "Update check failed", "error", err)
		return
	}

	if err = c.print(report); err != nil {
		logger.ErrorKV(ctx, "Unable to print report", "error", err)
	}
}
