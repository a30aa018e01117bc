package index

import (
	"sort"
	"sync"
	"time"

	"github.com/MrSnakeDoc/leakdesk/internal/domain"
)

// MemoryIndex holds dashboard users and bot sessions in memory.
// Redis is only used to persist bot sessions across restarts.
type MemoryIndex struct {
	mu         sync.RWMutex
	users      map[string]*domain.User      // username -> User
	sessions   map[int64]*domain.BotSession // telegram user id -> session
	lastReload time.Time                    // Timestamp of last users reload
}

// NewMemoryIndex creates a new memory index
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		users:    make(map[string]*domain.User),
		sessions: make(map[int64]*domain.BotSession),
	}
}

// UpdateUsers replaces all users in the index
func (idx *MemoryIndex) UpdateUsers(users []*domain.User) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	// Clear and rebuild
	idx.users = make(map[string]*domain.User, len(users))
	for _, u := range users {
		idx.users[u.Username] = u
	}
	idx.lastReload = time.Now()
}

// GetUser retrieves a user by username
func (idx *MemoryIndex) GetUser(username string) (*domain.User, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	u, ok := idx.users[username]
	return u, ok
}

// UserCount returns the number of users in the index
func (idx *MemoryIndex) UserCount() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return len(idx.users)
}

// GetLastReload returns the timestamp of the last users reload
func (idx *MemoryIndex) GetLastReload() time.Time {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return idx.lastReload
}

// ─────────────────────────────────────────────────────────────────
// Bot session methods
// ─────────────────────────────────────────────────────────────────

// PutSession adds or replaces a session.
func (idx *MemoryIndex) PutSession(s domain.BotSession) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.sessions[s.UserID] = &s
}

// Authorize stores the session of a user who just logged in and returns
// the stored copy. A returning user keeps their rights, monitoring flag and
// command count. A new user becomes admin only when no admin exists yet.
// The check and the insert happen under one lock.
func (idx *MemoryIndex) Authorize(s domain.BotSession) domain.BotSession {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if prev, ok := idx.sessions[s.UserID]; ok {
		s.IsAdmin = prev.IsAdmin
		s.Monitoring = prev.Monitoring
		s.CommandCount = prev.CommandCount
	} else {
		s.IsAdmin = !idx.hasAdminLocked()
	}
	idx.sessions[s.UserID] = &s
	return s
}

// GetSession returns a copy of the session of userID.
func (idx *MemoryIndex) GetSession(userID int64) (domain.BotSession, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	s, ok := idx.sessions[userID]
	if !ok {
		return domain.BotSession{}, false
	}
	return *s, true
}

// Touch records a command on an existing session and returns the updated copy.
func (idx *MemoryIndex) Touch(userID int64, command string, at time.Time) (domain.BotSession, bool) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	s, ok := idx.sessions[userID]
	if !ok {
		return domain.BotSession{}, false
	}
	s.LastActivity = at
	s.LastCommand = command
	s.CommandCount++
	return *s, true
}

// SetMonitoring toggles status change notifications for userID.
func (idx *MemoryIndex) SetMonitoring(userID int64, on bool) (domain.BotSession, bool) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	s, ok := idx.sessions[userID]
	if !ok {
		return domain.BotSession{}, false
	}
	s.Monitoring = on
	return *s, true
}

// DeleteSession removes a session from the index
func (idx *MemoryIndex) DeleteSession(userID int64) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	delete(idx.sessions, userID)
}

// AllSessions returns copies of every session, most recently active first.
func (idx *MemoryIndex) AllSessions() []domain.BotSession {
	idx.mu.RLock()
	out := make([]domain.BotSession, 0, len(idx.sessions))
	for _, s := range idx.sessions {
		out = append(out, *s)
	}
	idx.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].LastActivity.Equal(out[j].LastActivity) {
			return out[i].UserID < out[j].UserID
		}
		return out[i].LastActivity.After(out[j].LastActivity)
	})
	return out
}

// SessionCount returns the number of sessions in the index
func (idx *MemoryIndex) SessionCount() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return len(idx.sessions)
}

// HasAdmin reports whether any session has admin rights.
func (idx *MemoryIndex) HasAdmin() bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return idx.hasAdminLocked()
}

func (idx *MemoryIndex) hasAdminLocked() bool {
	for _, s := range idx.sessions {
		if s.IsAdmin {
			return true
		}
	}
	return false
}

// MonitoringChats returns the chat ids that asked for status notifications.
func (idx *MemoryIndex) MonitoringChats() []int64 {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	chats := make([]int64, 0, len(idx.sessions))
	for _, s := range idx.sessions {
		if s.Monitoring {
			chats = append(chats, s.ChatID)
		}
	}
	sort.Slice(chats, func(i, j int) bool { return chats[i] < chats[j] })
	return chats
}

// DisableMonitoringChat turns notifications off for every session bound to
// chatID and returns the updated sessions.
func (idx *MemoryIndex) DisableMonitoringChat(chatID int64) []domain.BotSession {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	var changed []domain.BotSession
	for _, s := range idx.sessions {
		if s.ChatID == chatID && s.Monitoring {
			s.Monitoring = false
			changed = append(changed, *s)
		}
	}
	return changed
}

// SweepIdleSessions removes sessions inactive since before cutoff and returns
// their user ids.
func (idx *MemoryIndex) SweepIdleSessions(cutoff time.Time) []int64 {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	var removed []int64
	for id, s := range idx.sessions {
		if s.LastActivity.Before(cutoff) {
			delete(idx.sessions, id)
			removed = append(removed, id)
		}
	}
	sort.Slice(removed, func(i, j int) bool { return removed[i] < removed[j] })
	return removed
}
