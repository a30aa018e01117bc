package scheduler

import (
	"context"

	"github.com/MrSnakeDoc/leakdesk/internal/domain"
	"github.com/MrSnakeDoc/leakdesk/internal/index"
	"github.com/MrSnakeDoc/leakdesk/internal/logger"
)

// BotSessionSource lists persisted bot sessions.
type BotSessionSource interface {
	GetAllBotSessions(ctx context.Context) ([]domain.BotSession, error)
}

// RedisSyncer restores bot sessions from Redis into the memory index on startup
type RedisSyncer struct {
	store  BotSessionSource
	index  *index.MemoryIndex
	logger logger.Logger
}

// NewRedisSyncer creates a new Redis syncer
func NewRedisSyncer(
	store BotSessionSource,
	idx *index.MemoryIndex,
	log logger.Logger,
) *RedisSyncer {
	return &RedisSyncer{
		store:  store,
		index:  idx,
		logger: log,
	}
}

// Sync loads bot sessions from Redis and puts them in the memory index
func (rs *RedisSyncer) Sync(ctx context.Context) error {
	rs.logger.Info("restoring bot sessions from redis")

	sessions, err := rs.store.GetAllBotSessions(ctx)
	if err != nil {
		return err
	}

	if len(sessions) == 0 {
		rs.logger.Info("no bot sessions found in redis")
		return nil
	}

	monitoring := 0
	for _, s := range sessions {
		rs.index.PutSession(s)
		if s.Monitoring {
			monitoring++
		}
	}

	rs.logger.Info("restored bot sessions from redis",
		logger.Int("count", len(sessions)),
		logger.Int("monitoring", monitoring))

	return nil
}
