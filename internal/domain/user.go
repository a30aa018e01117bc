package domain

import "time"

// Roles a dashboard user may have.
const (
	RoleAdmin   = "admin"
	RoleAnalyst = "analyst"
)

// User is a dashboard account loaded from the users file.
type User struct {
	Username     string
	Name         string
	Role         string
	PasswordHash string
}

func (u *User) IsAdmin() bool { return u != nil && u.Role == RoleAdmin }

// BotSession is a Telegram user authorized through /login.
type BotSession struct {
	UserID       int64     `json:"user_id"`
	ChatID       int64     `json:"chat_id"`
	Username     string    `json:"username"`
	IsAdmin      bool      `json:"is_admin"`
	AuthorizedAt time.Time `json:"authorized_at"`
	LastActivity time.Time `json:"last_activity"`
	LastCommand  string    `json:"last_command"`
	CommandCount int64     `json:"command_count"`
	Monitoring   bool      `json:"monitoring"`
}

// Unit is a host service the bot is allowed to observe and control.
type Unit struct {
	Name        string // systemd unit, ex: leakdesk-api.service
	DisplayName string
	Description string
}

// WebSession is a logged-in dashboard user.
type WebSession struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	LoginTime time.Time `json:"login_time"`
	Remember  bool      `json:"remember"`
}

func (s WebSession) IsAdmin() bool { return s.Role == RoleAdmin }
