package redis

import (
	"context"
	"fmt"
	"sort"
	"strconv"
)

// Subscribe adds a chat to the daily report recipients
func (s *Store) Subscribe(ctx context.Context, chatID int64) error {
	if err := s.client.SAdd(ctx, KeyReportSubscribers, chatID).Err(); err != nil {
		return fmt.Errorf("failed to subscribe chat %d: %w", chatID, err)
	}
	return nil
}

// Unsubscribe removes a chat from the daily report recipients
func (s *Store) Unsubscribe(ctx context.Context, chatID int64) error {
	if err := s.client.SRem(ctx, KeyReportSubscribers, chatID).Err(); err != nil {
		return fmt.Errorf("failed to unsubscribe chat %d: %w", chatID, err)
	}
	return nil
}

// Subscribers returns the chats receiving the daily report, sorted.
func (s *Store) Subscribers(ctx context.Context) ([]int64, error) {
	raw, err := s.client.SMembers(ctx, KeyReportSubscribers).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get subscribers: %w", err)
	}

	ids := make([]int64, 0, len(raw))
	for _, r := range raw {
		id, err := strconv.ParseInt(r, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}
