package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/MrSnakeDoc/leakdesk/internal/domain"
	"github.com/redis/go-redis/v9"
)

// DefaultBotSessionTTL bounds how long an idle bot session survives in Redis
// when the bot is not running to sweep it.
const DefaultBotSessionTTL = 30 * 24 * time.Hour

// Store handles Redis operations for dashboard sessions, bot sessions and
// report subscriptions.
type Store struct {
	client *redis.Client
}

// NewStore creates a new Redis store
func NewStore(client *redis.Client) *Store {
	return &Store{
		client: client,
	}
}

// Ping reports whether Redis answers.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// SaveBotSession stores a bot session in Redis
func (s *Store) SaveBotSession(ctx context.Context, session domain.BotSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal bot session: %w", err)
	}

	if err := s.client.Set(ctx, BotSessionKey(session.UserID), data, DefaultBotSessionTTL).Err(); err != nil {
		return fmt.Errorf("failed to save bot session: %w", err)
	}

	if err := s.client.SAdd(ctx, KeyAllBotSessions, session.UserID).Err(); err != nil {
		return fmt.Errorf("failed to add bot session to set: %w", err)
	}

	return nil
}

// GetBotSession retrieves a bot session by Telegram user ID
func (s *Store) GetBotSession(ctx context.Context, userID int64) (domain.BotSession, error) {
	var session domain.BotSession

	data, err := s.client.Get(ctx, BotSessionKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return session, fmt.Errorf("bot session not found: %d", userID)
		}
		return session, fmt.Errorf("failed to get bot session: %w", err)
	}

	if err := json.Unmarshal(data, &session); err != nil {
		return session, fmt.Errorf("failed to unmarshal bot session: %w", err)
	}

	return session, nil
}

// GetAllBotSessions retrieves every persisted bot session. Entries whose key
// expired are dropped from the index set.
func (s *Store) GetAllBotSessions(ctx context.Context) ([]domain.BotSession, error) {
	ids, err := s.client.SMembers(ctx, KeyAllBotSessions).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get bot session IDs: %w", err)
	}

	sessions := make([]domain.BotSession, 0, len(ids))
	for _, raw := range ids {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			continue
		}
		session, err := s.GetBotSession(ctx, id)
		if err != nil {
			// Key expired: keep the set in sync.
			_ = s.client.SRem(ctx, KeyAllBotSessions, raw).Err()
			continue
		}
		sessions = append(sessions, session)
	}

	return sessions, nil
}

// DeleteBotSession removes a bot session from Redis
func (s *Store) DeleteBotSession(ctx context.Context, userID int64) error {
	if err := s.client.Del(ctx, BotSessionKey(userID)).Err(); err != nil {
		return fmt.Errorf("failed to delete bot session: %w", err)
	}

	if err := s.client.SRem(ctx, KeyAllBotSessions, userID).Err(); err != nil {
		return fmt.Errorf("failed to remove bot session from set: %w", err)
	}

	return nil
}

// SaveBotSessionsMany stores multiple bot sessions in Redis (bulk operation)
func (s *Store) SaveBotSessionsMany(ctx context.Context, sessions []domain.BotSession) error {
	if len(sessions) == 0 {
		return nil
	}

	pipe := s.client.Pipeline()

	for _, session := range sessions {
		data, err := json.Marshal(session)
		if err != nil {
			return fmt.Errorf("failed to marshal bot session %d: %w", session.UserID, err)
		}

		pipe.Set(ctx, BotSessionKey(session.UserID), data, DefaultBotSessionTTL)
		pipe.SAdd(ctx, KeyAllBotSessions, session.UserID)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save bot sessions: %w", err)
	}

	return nil
}
