package scheduler

import (
	"context"
	"time"

	"github.com/MrSnakeDoc/leakdesk/internal/index"
	"github.com/MrSnakeDoc/leakdesk/internal/logger"
)

const (
	// DefaultIdleThreshold is how long a bot session may stay unused before it is dropped
	DefaultIdleThreshold = 7 * 24 * time.Hour
)

// BotSessionDeleter removes a persisted bot session.
type BotSessionDeleter interface {
	DeleteBotSession(ctx context.Context, userID int64) error
}

// SessionSweeper drops bot sessions that have been idle for too long
type SessionSweeper struct {
	store     BotSessionDeleter
	index     *index.MemoryIndex
	logger    logger.Logger
	interval  time.Duration
	threshold time.Duration
	now       func() time.Time
	stopCh    chan struct{}
	done      chan struct{} // closed once the loop has returned
}

// NewSessionSweeper creates a new session sweeper. store may be nil.
func NewSessionSweeper(
	store BotSessionDeleter,
	idx *index.MemoryIndex,
	log logger.Logger,
	interval time.Duration,
	threshold time.Duration,
) *SessionSweeper {
	if threshold == 0 {
		threshold = DefaultIdleThreshold
	}

	return &SessionSweeper{
		store:     store,
		index:     idx,
		logger:    log,
		interval:  interval,
		threshold: threshold,
		now:       time.Now,
		stopCh:    make(chan struct{}),
	}
}

// Start begins the periodic sweep
func (ss *SessionSweeper) Start(ctx context.Context) error {
	ss.Sweep(ctx)

	ticker := time.NewTicker(ss.interval)
	ss.done = make(chan struct{})
	go func() {
		defer close(ss.done)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				ss.Sweep(ctx)
			case <-ss.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop stops the sweeper and waits for the loop to return
func (ss *SessionSweeper) Stop() {
	close(ss.stopCh)
	if ss.done != nil {
		<-ss.done
	}
}

// Sweep removes idle sessions and returns how many were dropped
func (ss *SessionSweeper) Sweep(ctx context.Context) int {
	cutoff := ss.now().Add(-ss.threshold)
	removed := ss.index.SweepIdleSessions(cutoff)

	for _, userID := range removed {
		if ss.store == nil {
			break
		}
		if err := ss.store.DeleteBotSession(ctx, userID); err != nil {
			ss.logger.Warn("failed to delete bot session from redis",
				logger.Int64("user_id", userID),
				logger.Error(err))
		}
	}

	if len(removed) > 0 {
		ss.logger.Info("idle bot sessions removed",
			logger.Int("count", len(removed)),
			logger.Duration("idle_for", ss.threshold))
	} else {
		ss.logger.Debug("no idle bot sessions")
	}

	return len(removed)
}
