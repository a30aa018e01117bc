package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/MrSnakeDoc/leakdesk/internal/config"
	"github.com/MrSnakeDoc/leakdesk/internal/logger"
)

// ReportBroadcaster sends the daily report and returns how many chats got it.
type ReportBroadcaster interface {
	BroadcastReport(ctx context.Context) int
}

// DailyReporter fires once a day at a fixed local time
type DailyReporter struct {
	broadcaster  ReportBroadcaster
	logger       logger.Logger
	hour, minute int
	now          func() time.Time
	stopCh       chan struct{}
	done         chan struct{} // closed once the loop has returned
}

// NewDailyReporter creates a reporter running at "HH:MM" local time
func NewDailyReporter(at string, broadcaster ReportBroadcaster, log logger.Logger) (*DailyReporter, error) {
	h, m, err := config.ParseClock(at)
	if err != nil {
		return nil, fmt.Errorf("daily report time: %w", err)
	}
	return &DailyReporter{
		broadcaster: broadcaster,
		logger:      log,
		hour:        h,
		minute:      m,
		now:         time.Now,
		stopCh:      make(chan struct{}),
	}, nil
}

// NextRun returns the first report time strictly after from
func (dr *DailyReporter) NextRun(from time.Time) time.Time {
	next := time.Date(from.Year(), from.Month(), from.Day(), dr.hour, dr.minute, 0, 0, from.Location())
	if !next.After(from) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// Start schedules the report until ctx is done or Stop is called
func (dr *DailyReporter) Start(ctx context.Context) error {
	dr.done = make(chan struct{})
	go func() {
		defer close(dr.done)
		for {
			next := dr.NextRun(dr.now())
			dr.logger.Info("next daily report scheduled",
				logger.Time("at", next))

			timer := time.NewTimer(time.Until(next))
			select {
			case <-timer.C:
				dr.Run(ctx)
			case <-dr.stopCh:
				timer.Stop()
				return
			case <-ctx.Done():
				timer.Stop()
				return
			}
		}
	}()

	return nil
}

// Stop stops the reporter and waits for a report in progress
func (dr *DailyReporter) Stop() {
	close(dr.stopCh)
	if dr.done != nil {
		<-dr.done
	}
}

// Run sends the report now
func (dr *DailyReporter) Run(ctx context.Context) {
	start := dr.now()
	n := dr.broadcaster.BroadcastReport(ctx)
	dr.logger.Info("daily report run finished",
		logger.Int("delivered", n),
		logger.Duration("took", dr.now().Sub(start)))
}
