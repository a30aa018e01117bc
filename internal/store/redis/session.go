package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/MrSnakeDoc/leakdesk/internal/domain"
	"github.com/redis/go-redis/v9"
)

// SaveWebSession stores a dashboard session until ttl elapses.
func (s *Store) SaveWebSession(ctx context.Context, session domain.WebSession, ttl time.Duration) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := s.client.Set(ctx, WebSessionKey(session.ID), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// GetWebSession retrieves a dashboard session. A missing or expired session
// is reported with ok=false and no error.
func (s *Store) GetWebSession(ctx context.Context, id string) (domain.WebSession, bool, error) {
	var session domain.WebSession

	data, err := s.client.Get(ctx, WebSessionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return session, false, nil // Cache miss
		}
		return session, false, fmt.Errorf("failed to get session: %w", err)
	}

	if err := json.Unmarshal(data, &session); err != nil {
		return session, false, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return session, true, nil
}

// DeleteWebSession removes a dashboard session
func (s *Store) DeleteWebSession(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, WebSessionKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// FlushWebSessions removes all dashboard sessions, logging every user out.
func (s *Store) FlushWebSessions(ctx context.Context) (int, error) {
	n := 0
	iter := s.client.Scan(ctx, 0, KeyPrefixWebSession+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := s.client.Del(ctx, iter.Val()).Err(); err != nil {
			return n, fmt.Errorf("failed to delete session key: %w", err)
		}
		n++
	}
	if err := iter.Err(); err != nil {
		return n, fmt.Errorf("failed to flush sessions: %w", err)
	}
	return n, nil
}
