package redis

import (
	"fmt"
	"strconv"
)

const (
	// KeyPrefixWebSession is the prefix for dashboard session keys
	KeyPrefixWebSession = "leakdesk:session:"
	// KeyPrefixBotSession is the prefix for bot session keys
	KeyPrefixBotSession = "leakdesk:bot:session:"
	// KeyAllBotSessions is the key for the set of all authorized Telegram user IDs
	KeyAllBotSessions = "leakdesk:bot:sessions:all"
	// KeyReportSubscribers is the key for the set of chats receiving the daily report
	KeyReportSubscribers = "leakdesk:bot:report:subscribers"
)

// WebSessionKey returns the Redis key for a dashboard session by ID
func WebSessionKey(id string) string {
	return KeyPrefixWebSession + id
}

// BotSessionKey returns the Redis key for a bot session by Telegram user ID
func BotSessionKey(userID int64) string {
	return KeyPrefixBotSession + strconv.FormatInt(userID, 10)
}

// ExtractBotUserID extracts the Telegram user ID from a bot session key
func ExtractBotUserID(key string) (int64, error) {
	if len(key) <= len(KeyPrefixBotSession) || key[:len(KeyPrefixBotSession)] != KeyPrefixBotSession {
		return 0, fmt.Errorf("invalid bot session key: %s", key)
	}
	id, err := strconv.ParseInt(key[len(KeyPrefixBotSession):], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid bot session key %s: %w", key, err)
	}
	return id, nil
}
