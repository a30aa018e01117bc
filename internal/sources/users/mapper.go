package users

import (
	"fmt"
	"strings"

	"github.com/MrSnakeDoc/leakdesk/internal/domain"
)

// Mapper converts users.yaml entries to domain.User entities
type Mapper struct{}

// NewMapper creates a new mapper instance
func NewMapper() *Mapper {
	return &Mapper{}
}

// MapUsers converts a parsed File to []*domain.User.
// Entries without a username or hash are skipped, the first entry wins on
// duplicate usernames and unknown roles fall back to analyst.
func (m *Mapper) MapUsers(f File) ([]*domain.User, error) {
	seen := make(map[string]struct{}, len(f.Users))
	var out []*domain.User

	for _, e := range f.Users {
		username := strings.TrimSpace(e.Username)
		hash := strings.TrimSpace(e.PasswordHash)
		if username == "" || hash == "" {
			continue
		}
		if _, dup := seen[username]; dup {
			continue
		}
		seen[username] = struct{}{}

		name := strings.TrimSpace(e.Name)
		if name == "" {
			name = username
		}

		out = append(out, &domain.User{
			Username:     username,
			Name:         name,
			Role:         normalizeRole(e.Role),
			PasswordHash: hash,
		})
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("no valid users found in users file")
	}

	return out, nil
}

func normalizeRole(role string) string {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case domain.RoleAdmin:
		return domain.RoleAdmin
	default:
		return domain.RoleAnalyst
	}
}
