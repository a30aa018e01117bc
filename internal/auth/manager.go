package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MrSnakeDoc/leakdesk/internal/domain"
	"github.com/MrSnakeDoc/leakdesk/internal/logger"
)

// CookieName is the dashboard session cookie.
const CookieName = "leakdesk_session"

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrMissingCredentials = errors.New("username and password are required")
)

// SessionStore persists dashboard sessions.
type SessionStore interface {
	SaveWebSession(ctx context.Context, s domain.WebSession, ttl time.Duration) error
	GetWebSession(ctx context.Context, id string) (domain.WebSession, bool, error)
	DeleteWebSession(ctx context.Context, id string) error
}

// UserSource resolves dashboard accounts by username.
type UserSource interface {
	GetUser(username string) (*domain.User, bool)
}

// Options configures a Manager.
type Options struct {
	TTL          time.Duration // session lifetime
	RememberTTL  time.Duration // lifetime when "remember me" is set
	CookieSecure bool
}

// Manager logs users in and out and resolves the session of a request.
type Manager struct {
	users    UserSource
	sessions SessionStore
	opts     Options
	log      logger.Logger
	now      func() time.Time
	newID    func() string
}

func NewManager(users UserSource, sessions SessionStore, opts Options, log logger.Logger) *Manager {
	if opts.TTL <= 0 {
		opts.TTL = 24 * time.Hour
	}
	if opts.RememberTTL < opts.TTL {
		opts.RememberTTL = opts.TTL
	}
	return &Manager{
		users:    users,
		sessions: sessions,
		opts:     opts,
		log:      log,
		now:      time.Now,
		newID:    func() string { return uuid.NewString() },
	}
}

// Login checks the credentials and opens a session.
func (m *Manager) Login(ctx context.Context, username, password string, remember bool) (domain.WebSession, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return domain.WebSession{}, ErrMissingCredentials
	}

	u, ok := m.users.GetUser(username)
	if !ok || !VerifyPassword(u.PasswordHash, password) {
		m.log.Warn("login failed", logger.String("username", username))
		return domain.WebSession{}, ErrInvalidCredentials
	}
	if IsLegacyHash(u.PasswordHash) {
		m.log.Warn("user still has a legacy sha256 password hash", logger.String("username", username))
	}

	s := domain.WebSession{
		ID:        m.newID(),
		Username:  u.Username,
		Name:      u.Name,
		Role:      u.Role,
		LoginTime: m.now().UTC(),
		Remember:  remember,
	}
	if err := m.sessions.SaveWebSession(ctx, s, m.ttl(remember)); err != nil {
		return domain.WebSession{}, fmt.Errorf("save session: %w", err)
	}

	m.log.Info("login succeeded",
		logger.String("username", u.Username),
		logger.String("role", u.Role),
		logger.Bool("remember", remember))
	return s, nil
}

// Logout ends the session carried by r, if any, and clears the cookie.
func (m *Manager) Logout(w http.ResponseWriter, r *http.Request) string {
	var username string
	if s, ok := CurrentUser(r); ok {
		username = s.Username
	}
	if c, err := r.Cookie(CookieName); err == nil && c.Value != "" {
		if err := m.sessions.DeleteWebSession(r.Context(), c.Value); err != nil {
			m.log.Warn("failed to delete session", logger.Error(err))
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.opts.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	if username != "" {
		m.log.Info("logout", logger.String("username", username))
	}
	return username
}

// SetCookie writes the session cookie for s.
func (m *Manager) SetCookie(w http.ResponseWriter, s domain.WebSession) {
	c := &http.Cookie{
		Name:     CookieName,
		Value:    s.ID,
		Path:     "/",
		HttpOnly: true,
		Secure:   m.opts.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
	// Without "remember me" the cookie dies with the browser.
	if s.Remember {
		c.MaxAge = int(m.opts.RememberTTL.Seconds())
	}
	http.SetCookie(w, c)
}

// Resolve returns the live session referenced by the request cookie. The
// role is refreshed from the users source, and a session whose user was
// removed is treated as logged out.
func (m *Manager) Resolve(r *http.Request) (domain.WebSession, bool) {
	c, err := r.Cookie(CookieName)
	if err != nil || c.Value == "" {
		return domain.WebSession{}, false
	}

	s, ok, err := m.sessions.GetWebSession(r.Context(), c.Value)
	if err != nil {
		m.log.Warn("session lookup failed", logger.Error(err))
		return domain.WebSession{}, false
	}
	if !ok {
		return domain.WebSession{}, false
	}

	u, ok := m.users.GetUser(s.Username)
	if !ok {
		return domain.WebSession{}, false
	}
	s.Role = u.Role
	s.Name = u.Name
	return s, true
}

func (m *Manager) ttl(remember bool) time.Duration {
	if remember {
		return m.opts.RememberTTL
	}
	return m.opts.TTL
}
