package users

import (
	"testing"

	"github.com/MrSnakeDoc/leakdesk/internal/domain"
)

func TestMapperMapUsers(t *testing.T) {
	f := File{Users: []Entry{
		{Username: " admin ", Name: "Admin", Role: "ADMIN", PasswordHash: "h1"},
		{Username: "ali", Role: "root", PasswordHash: "h2"},
		{Username: "admin", Role: "analyst", PasswordHash: "h3"},
		{Username: "nohash"},
		{PasswordHash: "orphan"},
	}}

	users, err := NewMapper().MapUsers(f)
	if err != nil {
		t.Fatalf("MapUsers() error = %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("MapUsers() returned %d users, want 2", len(users))
	}

	tests := []struct {
		idx      int
		username string
		name     string
		role     string
		hash     string
	}{
		{0, "admin", "Admin", domain.RoleAdmin, "h1"},
		{1, "ali", "ali", domain.RoleAnalyst, "h2"},
	}
	for _, tt := range tests {
		u := users[tt.idx]
		if u.Username != tt.username || u.Name != tt.name || u.Role != tt.role || u.PasswordHash != tt.hash {
			t.Errorf("users[%d] = %+v, want %s/%s/%s/%s", tt.idx, u, tt.username, tt.name, tt.role, tt.hash)
		}
	}
}

func TestMapperMapUsersEmpty(t *testing.T) {
	if _, err := NewMapper().MapUsers(File{}); err == nil {
		t.Error("MapUsers() with no users should return error")
	}
}
