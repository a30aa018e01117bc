package scheduler

import (
	"context"
	"time"

	"github.com/MrSnakeDoc/leakdesk/internal/logger"
	"github.com/MrSnakeDoc/leakdesk/internal/services"
)

// StatusSource reports the current state of every monitored unit.
type StatusSource interface {
	StatusAll(ctx context.Context) []services.Record
}

// ChangeNotifier is told about status transitions.
type ChangeNotifier interface {
	NotifyChanges(ctx context.Context, changes []services.Change)
}

// ServiceMonitor polls unit statuses and reports transitions
type ServiceMonitor struct {
	source   StatusSource
	tracker  *services.Tracker
	notifier ChangeNotifier
	logger   logger.Logger
	interval time.Duration
	stopCh   chan struct{}
	done     chan struct{} // closed once the loop has returned
}

// NewServiceMonitor creates a new service monitor. A nil notifier only logs changes.
func NewServiceMonitor(
	source StatusSource,
	notifier ChangeNotifier,
	log logger.Logger,
	interval time.Duration,
) *ServiceMonitor {
	return &ServiceMonitor{
		source:   source,
		tracker:  services.NewTracker(),
		notifier: notifier,
		logger:   log,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start records a baseline round, then checks on every tick
func (sm *ServiceMonitor) Start(ctx context.Context) error {
	sm.Check(ctx)

	ticker := time.NewTicker(sm.interval)
	sm.done = make(chan struct{})
	go func() {
		defer close(sm.done)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				sm.Check(ctx)
			case <-sm.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop stops the monitor and waits for the loop to return
func (sm *ServiceMonitor) Stop() {
	close(sm.stopCh)
	if sm.done != nil {
		<-sm.done
	}
}

// Check runs one polling round and returns the detected changes
func (sm *ServiceMonitor) Check(ctx context.Context) []services.Change {
	records := sm.source.StatusAll(ctx)
	changes := sm.tracker.DetectStatusChanges(records)

	for _, c := range changes {
		sm.logger.Info("service status changed",
			logger.String("unit", c.Name),
			logger.String("from", c.Previous),
			logger.String("to", c.Current))
	}

	if len(changes) > 0 && sm.notifier != nil {
		sm.notifier.NotifyChanges(ctx, changes)
	}
	return changes
}
