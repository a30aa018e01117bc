package auth

import (
	"context"
	"net/http"

	"github.com/MrSnakeDoc/leakdesk/internal/domain"
)

type ctxKey struct{}

// WithSession returns a copy of ctx carrying s.
func WithSession(ctx context.Context, s domain.WebSession) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// CurrentUser returns the session attached to r by the Sessions middleware.
func CurrentUser(r *http.Request) (domain.WebSession, bool) {
	s, ok := r.Context().Value(ctxKey{}).(domain.WebSession)
	return s, ok
}

// IsAuthenticated reports whether r carries a live session.
func IsAuthenticated(r *http.Request) bool {
	_, ok := CurrentUser(r)
	return ok
}

// IsAdmin reports whether r carries a live admin session.
func IsAdmin(r *http.Request) bool {
	s, ok := CurrentUser(r)
	return ok && s.IsAdmin()
}
